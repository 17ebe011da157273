/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxLength bounds both frame payload length and any encoded
// string/sequence length, so a corrupt or hostile length field cannot drive
// an unbounded allocation.
const MaxLength = (1 << 31) - 1

// Writer encodes the portable scalar/aggregate types used by control
// message payloads, accumulating into an internal buffer that WriteFrame
// then wraps with a type/length header.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns a ready-to-use Writer.
func NewWriter() *Writer { return &Writer{} }

// Bool appends a single byte: 1 for true, 0 for false.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
	return w
}

// Uint32 appends a big-endian uint32.
func (w *Writer) Uint32(v uint32) *Writer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
	return w
}

// Uint64 appends a big-endian uint64.
func (w *Writer) Uint64(v uint64) *Writer {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
	return w
}

// Int64 appends a big-endian two's-complement int64.
func (w *Writer) Int64(v int64) *Writer {
	return w.Uint64(uint64(v))
}

// Bytes appends a length-prefixed byte string: a uint32 length followed by
// the raw bytes.
func (w *Writer) Bytes(v []byte) *Writer {
	w.Uint32(uint32(len(v)))
	w.buf.Write(v)
	return w
}

// String appends a length-prefixed UTF-8 string.
func (w *Writer) String(v string) *Writer {
	return w.Bytes([]byte(v))
}

// OptionalString appends a presence byte followed by the string if present.
func (w *Writer) OptionalString(v *string) *Writer {
	if v == nil {
		return w.Bool(false)
	}
	w.Bool(true)
	return w.String(*v)
}

// SequenceHeader appends the element count of a sequence; the caller then
// writes each element using the appropriate method.
func (w *Writer) SequenceHeader(count int) *Writer {
	return w.Uint32(uint32(count))
}

// Payload returns the encoded payload built so far.
func (w *Writer) Payload() []byte {
	return w.buf.Bytes()
}

// Reader decodes a payload previously produced by Writer, reading
// sequentially and returning an error the first time the remaining buffer
// is too short or a length field exceeds MaxLength.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps payload for sequential decoding.
func NewReader(payload []byte) *Reader {
	return &Reader{buf: payload}
}

func (r *Reader) need(n int) error {
	if len(r.buf)-r.off < n {
		return fmt.Errorf("wire: short payload: need %d bytes, have %d", n, len(r.buf)-r.off)
	}
	return nil
}

// Bool reads one byte and interprets it as a boolean.
func (r *Reader) Bool() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	v := r.buf[r.off] != 0
	r.off++
	return v, nil
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// Uint64 reads a big-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// Int64 reads a big-endian two's-complement int64.
func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// Bytes reads a length-prefixed byte string.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if n > MaxLength {
		return nil, fmt.Errorf("wire: length %d exceeds maximum %d", n, MaxLength)
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	v := make([]byte, n)
	copy(v, r.buf[r.off:r.off+int(n)])
	r.off += int(n)
	return v, nil
}

// String reads a length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// OptionalString reads a presence byte and, if set, the string that
// follows.
func (r *Reader) OptionalString() (*string, error) {
	present, err := r.Bool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	s, err := r.String()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SequenceHeader reads a sequence's element count.
func (r *Reader) SequenceHeader() (int, error) {
	n, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	if n > MaxLength {
		return 0, fmt.Errorf("wire: sequence length %d exceeds maximum %d", n, MaxLength)
	}
	return int(n), nil
}

// Done reports whether every byte of the payload has been consumed.
func (r *Reader) Done() bool {
	return r.off == len(r.buf)
}

// WriteFrame writes a [type u32][length u32][payload] frame to w.
func WriteFrame(w io.Writer, msgType uint32, payload []byte) error {
	if len(payload) > MaxLength {
		return fmt.Errorf("wire: payload length %d exceeds maximum %d", len(payload), MaxLength)
	}

	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], msgType)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(payload)))

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: writing frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("wire: writing frame payload: %w", err)
		}
	}
	return nil
}

// ReadExpectedFrame reads a frame and requires its type to equal want; a
// mismatch is a failure, not a silent skip, since a control connection
// that sends an unexpected message type has desynchronized and cannot be
// trusted to recover.
func ReadExpectedFrame(r io.Reader, want uint32) ([]byte, error) {
	msgType, payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	if msgType != want {
		return nil, fmt.Errorf("wire: expected message type %d, got %d", want, msgType)
	}
	return payload, nil
}

// ReadFrame reads a [type u32][length u32][payload] frame from r.
func ReadFrame(r io.Reader) (msgType uint32, payload []byte, err error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}

	msgType = binary.BigEndian.Uint32(hdr[0:4])
	length := binary.BigEndian.Uint32(hdr[4:8])
	if length > MaxLength {
		return 0, nil, fmt.Errorf("wire: frame length %d exceeds maximum %d", length, MaxLength)
	}

	payload = make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, fmt.Errorf("wire: reading frame payload: %w", err)
		}
	}
	return msgType, payload, nil
}
