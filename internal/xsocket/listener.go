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

package xsocket

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"github.com/wenbinhou/xcp/internal/disposal"
)

// Listener is a tuned TCP listener with idempotent, concurrency-safe close
// that unblocks any in-flight Accept.
type Listener struct {
	ln   *net.TCPListener
	disp *disposal.Disposer
}

// Listen binds and listens on addr, applying opts to the listening socket.
// A zero port in addr lets the OS choose one; the caller reads the actual
// bound address back via Addr.
func Listen(addr *net.TCPAddr, opts ListenOptions) (*Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			return tuneListenSocket(c, opts)
		},
	}

	l, err := lc.Listen(context.Background(), "tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("xsocket: listening on %s: %w", addr, err)
	}

	tcpLn, ok := l.(*net.TCPListener)
	if !ok {
		l.Close()
		return nil, fmt.Errorf("xsocket: listener on %s is not a TCP listener", addr)
	}

	return &Listener{ln: tcpLn, disp: disposal.NewDisposer()}, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() *net.TCPAddr {
	return l.ln.Addr().(*net.TCPAddr)
}

// Accept blocks for the next incoming connection, applying
// DefaultDialOptions' NoDelay/KeepAlive tuning (accepted sockets are not
// dialed, so FastOpen does not apply) before returning it.
func (l *Listener) Accept() (*Conn, error) {
	c, err := l.ln.AcceptTCP()
	if err != nil {
		return nil, fmt.Errorf("xsocket: accept: %w", err)
	}

	conn := wrap(c)
	opts := DefaultDialOptions()
	if err := conn.applyDialOptions(opts); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Close tears the listener down exactly once, unblocking any goroutine
// parked in Accept.
func (l *Listener) Close() error {
	var closeErr error
	l.disp.Dispose(func() {
		closeErr = l.ln.Close()
	})
	return closeErr
}
