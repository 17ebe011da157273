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
	"net"
)

// VectoredSender is the subset of xsocket.Conn that SendFrame needs. It is
// declared here, rather than imported, so the wire package stays free of a
// dependency on the socket layer.
type VectoredSender interface {
	SendVectored(bufs net.Buffers) error
}

// SendFrame encodes the frame header and writes it together with payload
// as a single vectored write, matching the codec's "sender computes
// payload bytes, then sends header and body in one vectored write" rule.
func SendFrame(conn VectoredSender, msgType uint32, payload []byte) error {
	if len(payload) > MaxLength {
		return fmt.Errorf("wire: payload length %d exceeds maximum %d", len(payload), MaxLength)
	}

	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], msgType)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(payload)))

	if err := conn.SendVectored(net.Buffers{hdr[:], payload}); err != nil {
		return fmt.Errorf("wire: sending frame: %w", err)
	}
	return nil
}
