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

//go:build windows

package xsocket

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func tuneDialSocket(raw syscall.RawConn, opts DialOptions) error {
	var setErr error
	err := raw.Control(func(fd uintptr) {
		h := windows.Handle(fd)
		if opts.NoDelay {
			setErr = firstErr(setErr, windows.SetsockoptInt(h, windows.IPPROTO_TCP, windows.TCP_NODELAY, 1))
		}
		if opts.KeepAlive {
			setErr = firstErr(setErr, windows.SetsockoptInt(h, windows.SOL_SOCKET, windows.SO_KEEPALIVE, 1))
		}
		// TCP_FASTOPEN on Windows requires ConnectEx with an OVERLAPPED
		// buffer, not reachable through net.Dialer; FastOpen is a no-op
		// here and Dial still succeeds without it.
	})
	return firstErr(err, setErr)
}

func tuneListenSocket(raw syscall.RawConn, opts ListenOptions) error {
	var setErr error
	err := raw.Control(func(fd uintptr) {
		h := windows.Handle(fd)
		if opts.ReuseAddr {
			setErr = firstErr(setErr, windows.SetsockoptInt(h, windows.SOL_SOCKET, windows.SO_REUSEADDR, 1))
		}
		// Windows has no SO_REUSEPORT equivalent; ReusePort is ignored.
	})
	return firstErr(err, setErr)
}
