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

// Package xsocket wraps net.TCPConn/net.TCPListener with the socket option
// tuning, vectored and sendfile-based writes, and idempotent concurrent
// close that the portal and channel connections need. Every blocking call
// is a thin layer over the standard library's own blocking I/O — the
// point of this package is the option tuning and the zero-copy send path,
// not a reimplementation of blocking sockets.
package xsocket

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/wenbinhou/xcp/internal/disposal"
)

// DialOptions controls how Dial tunes the connecting socket.
type DialOptions struct {
	// FastOpen requests TCP_FASTOPEN on platforms that support it. It is
	// advisory: Dial still succeeds if the platform or kernel rejects it.
	FastOpen bool
	// NoDelay disables Nagle's algorithm. xcp always wants this: control
	// messages are small and latency-sensitive, and data blocks are large
	// enough that batching them would never help.
	NoDelay bool
	// KeepAlive enables TCP keep-alive probing so a silently-dead peer
	// (cable pulled, box powered off) is detected instead of hanging a
	// blocking read forever.
	KeepAlive bool
}

// DefaultDialOptions is what the portal and channel dialers use.
func DefaultDialOptions() DialOptions {
	return DialOptions{NoDelay: true, KeepAlive: true}
}

// ListenOptions controls how Listen tunes the listening socket.
type ListenOptions struct {
	ReuseAddr bool
	ReusePort bool
}

// DefaultListenOptions is what the portal and channel listeners use.
func DefaultListenOptions() ListenOptions {
	return ListenOptions{ReuseAddr: true}
}

// Conn is a tuned TCP connection with idempotent, concurrency-safe close.
type Conn struct {
	tcp  *net.TCPConn
	disp *disposal.Disposer
}

// Dial connects to addr and applies opts before returning.
func Dial(ctx context.Context, addr *net.TCPAddr, opts DialOptions) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("xsocket: dialing %s: %w", addr, err)
	}

	tcp, ok := c.(*net.TCPConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("xsocket: dialed connection to %s is not a TCP connection", addr)
	}

	conn := wrap(tcp)
	if err := conn.applyDialOptions(opts); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ConnectAndSend dials addr with FastOpen set and writes data immediately
// on the new connection. Dial applies the socket options only after the
// connection is established, so the TCP_FASTOPEN_CONNECT option that
// tuneDialSocket sets on Linux lands on an already-connected socket and
// has no effect: the handshake and data are always a plain connect
// followed by a separate send, on every platform.
func ConnectAndSend(ctx context.Context, addr *net.TCPAddr, opts DialOptions, data []byte) (*Conn, error) {
	opts.FastOpen = true
	conn, err := Dial(ctx, addr, opts)
	if err != nil {
		return nil, err
	}
	if err := conn.SendAll(data); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func wrap(tcp *net.TCPConn) *Conn {
	return &Conn{tcp: tcp, disp: disposal.NewDisposer()}
}

func (c *Conn) applyDialOptions(opts DialOptions) error {
	raw, err := c.tcp.SyscallConn()
	if err != nil {
		return fmt.Errorf("xsocket: obtaining raw connection: %w", err)
	}
	return tuneDialSocket(raw, opts)
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() *net.TCPAddr {
	return c.tcp.RemoteAddr().(*net.TCPAddr)
}

// LocalAddr returns the local bound address.
func (c *Conn) LocalAddr() *net.TCPAddr {
	return c.tcp.LocalAddr().(*net.TCPAddr)
}

// Raw exposes the underlying *net.TCPConn for callers (the wire codec) that
// only need a plain io.Reader/io.Writer.
func (c *Conn) Raw() *net.TCPConn {
	return c.tcp
}

// SendAll writes every byte of b, looping over short writes.
func (c *Conn) SendAll(b []byte) error {
	_, err := c.tcp.Write(b)
	if err != nil {
		return fmt.Errorf("xsocket: send: %w", err)
	}
	return nil
}

// SendVectored writes bufs as a single vectored write (writev on
// Unix-likes, WSASend with multiple buffers on Windows) via net.Buffers,
// avoiding the header-then-payload copy a manual concatenation would cost.
func (c *Conn) SendVectored(bufs net.Buffers) error {
	_, err := bufs.WriteTo(c.tcp)
	if err != nil {
		return fmt.Errorf("xsocket: vectored send: %w", err)
	}
	return nil
}

// RecvExact reads exactly len(buf) bytes, or returns an error (including
// io.EOF/io.ErrUnexpectedEOF) if the peer closes first.
func (c *Conn) RecvExact(buf []byte) error {
	_, err := io.ReadFull(c.tcp, buf)
	return err
}

// Close tears the connection down exactly once; concurrent and repeated
// calls are safe and all observe the same error.
func (c *Conn) Close() error {
	var closeErr error
	c.disp.Dispose(func() {
		closeErr = c.tcp.Close()
	})
	return closeErr
}

// Disposed reports whether Close has completed.
func (c *Conn) Disposed() bool {
	return c.disp.Disposed()
}
