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
	"encoding/binary"
	"fmt"
	"io"
)

// BlockHeaderSize is the fixed size, in bytes, of a transfer-block header:
// offset_high, offset_low, block_size, file_index, each a 32-bit word.
const BlockHeaderSize = 16

// EndOfStreamFileIndex is the sentinel file index a channel writes exactly
// once, as the last thing it sends, to mark that it has no further blocks
// to transmit.
const EndOfStreamFileIndex uint32 = 0xFFFFFFFF

// endOfStreamOffset is the sentinel's 64-bit offset field: all bits set.
const endOfStreamOffset uint64 = 0xFFFFFFFFFFFFFFFF

// BlockHeader precedes every raw data block sent over a channel
// connection. It carries no type tag of its own: channel connections carry
// nothing but block headers and block payloads, back to back, until the
// end-of-stream sentinel. The 64-bit offset travels as two big-endian
// 32-bit words (offset_high, offset_low) rather than one 64-bit word, to
// match the wire's fixed four-word layout.
type BlockHeader struct {
	Offset    uint64
	BlockSize uint32
	FileIndex uint32
}

// IsEndOfStream reports whether this header is the channel's end-of-stream
// sentinel rather than a real block.
func (h BlockHeader) IsEndOfStream() bool {
	return h.FileIndex == EndOfStreamFileIndex && h.BlockSize == 0 && h.Offset == endOfStreamOffset
}

// EndOfStream returns the sentinel header a channel writes to mark that it
// is done sending blocks.
func EndOfStream() BlockHeader {
	return BlockHeader{Offset: endOfStreamOffset, BlockSize: 0, FileIndex: EndOfStreamFileIndex}
}

// WriteBlockHeader writes the fixed-size header to w.
func WriteBlockHeader(w io.Writer, h BlockHeader) error {
	var b [BlockHeaderSize]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(h.Offset>>32))
	binary.BigEndian.PutUint32(b[4:8], uint32(h.Offset))
	binary.BigEndian.PutUint32(b[8:12], h.BlockSize)
	binary.BigEndian.PutUint32(b[12:16], h.FileIndex)

	if _, err := w.Write(b[:]); err != nil {
		return fmt.Errorf("wire: writing block header: %w", err)
	}
	return nil
}

// ReadBlockHeader reads a fixed-size header from r.
func ReadBlockHeader(r io.Reader) (BlockHeader, error) {
	var b [BlockHeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return BlockHeader{}, err
	}

	high := binary.BigEndian.Uint32(b[0:4])
	low := binary.BigEndian.Uint32(b[4:8])
	return BlockHeader{
		Offset:    uint64(high)<<32 | uint64(low),
		BlockSize: binary.BigEndian.Uint32(b[8:12]),
		FileIndex: binary.BigEndian.Uint32(b[12:16]),
	}, nil
}
