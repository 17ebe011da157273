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

//go:build !linux

package xsocket

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// SendFile sends length bytes of f starting at offset. Only Linux gets the
// true sendfile(2) zero-copy path in this build; every other platform uses
// a buffered ReadAt/Write loop, which is still fed through the same
// adaptive block-size engine so the difference is purely "does the kernel
// avoid the user-space copy," not "does the protocol work."
func (c *Conn) SendFile(f *os.File, offset, length int64) (int64, error) {
	buf := make([]byte, 256*1024)
	var total int64

	for length > 0 {
		toRead := int64(len(buf))
		if toRead > length {
			toRead = length
		}
		n, err := f.ReadAt(buf[:toRead], offset)
		if n > 0 {
			if werr := c.SendAll(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
			offset += int64(n)
			length -= int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return total, fmt.Errorf("xsocket: sendfile fallback: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
