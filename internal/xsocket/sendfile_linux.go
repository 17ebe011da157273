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

//go:build linux

package xsocket

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// maxSendfileChunk caps each individual sendfile(2) call; the adaptive
// block-size layer above already bounds the requested length to 1 GiB, but
// the syscall itself is capped defensively in case a future caller doesn't.
const maxSendfileChunk = 1 << 30

// SendFile sends length bytes of f starting at offset using sendfile(2),
// looping over partial sends and EAGAIN/EINTR until the whole range has
// gone out or an unrecoverable error occurs.
func (c *Conn) SendFile(f *os.File, offset, length int64) (int64, error) {
	raw, err := c.tcp.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("xsocket: obtaining raw connection for sendfile: %w", err)
	}

	var total int64
	var sendErr error
	remaining := length
	off := offset

	for remaining > 0 {
		toSend := remaining
		if toSend > maxSendfileChunk {
			toSend = maxSendfileChunk
		}

		var written int
		controlErr := raw.Write(func(fd uintptr) bool {
			n, err := unix.Sendfile(int(fd), int(f.Fd()), &off, int(toSend))
			written = n
			if err != nil {
				if err == unix.EAGAIN || err == unix.EINTR {
					return false
				}
				sendErr = err
				return true
			}
			return true
		})
		if controlErr != nil {
			return total, fmt.Errorf("xsocket: sendfile: %w", controlErr)
		}
		if sendErr != nil {
			if sendErr == unix.EINVAL || sendErr == unix.ENOSYS {
				n, err := c.sendFileCopyFallback(f, off, remaining)
				return total + n, err
			}
			return total, fmt.Errorf("xsocket: sendfile: %w", sendErr)
		}

		if written == 0 {
			break
		}
		total += int64(written)
		remaining -= int64(written)
	}

	return total, nil
}

// sendFileCopyFallback is used when the kernel or target file type refuses
// sendfile (e.g. the destination is a pipe on an affected kernel, or the
// source is on a filesystem sendfile doesn't support).
func (c *Conn) sendFileCopyFallback(f *os.File, offset, length int64) (int64, error) {
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
			return total, fmt.Errorf("xsocket: sendfile copy fallback: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
