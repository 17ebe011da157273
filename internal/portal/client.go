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

package portal

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/wenbinhou/xcp/internal/disposal"
	"github.com/wenbinhou/xcp/internal/endpoint"
	"github.com/wenbinhou/xcp/internal/identity"
	"github.com/wenbinhou/xcp/internal/transfer"
	"github.com/wenbinhou/xcp/internal/wire"
	"github.com/wenbinhou/xcp/internal/xlog"
	"github.com/wenbinhou/xcp/internal/xsocket"
)

// Result is the client-portal state's final outcome (spec.md §3
// "Client-portal state"), set exactly once by compare-and-swap from
// ResultUnknown.
type Result int32

const (
	ResultUnknown Result = iota
	ResultSucceeded
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultSucceeded:
		return "succeeded"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request describes the transfer the client asks the server to perform.
type Request struct {
	// IsFromServerToClient is true for a pull (server is the source),
	// false for a push (client is the source).
	IsFromServerToClient bool
	ServerPath           string
	LocalPath            string
	Recursive            bool
	BlockSize            uint64
	UserName             string
}

// Client is the client-portal state: one socket to the server, the
// transfer object, every opened channel connection, the "portal ready"
// gate, and the final result.
type Client struct {
	log xlog.Logger

	id      identity.Identity
	traceID uuid.UUID
	portal  *xsocket.Conn

	channelsMu sync.Mutex
	channels   []*xsocket.Conn

	ready  *disposal.Gate
	result atomic.Int32

	source      *transfer.Source
	destination *transfer.Destination

	disp *disposal.Disposer
}

// Run executes the full client-portal routine against the first address in
// candidates that accepts a connection (spec.md §4.4 "Client portal routine
// (client side)"), then blocks until the transfer completes or fails.
func Run(ctx context.Context, candidates []*net.TCPAddr, req Request, progress transfer.ProgressFunc, log xlog.Logger) (*Client, error) {
	id, err := identity.New()
	if err != nil {
		return nil, fmt.Errorf("portal: generating identity: %w", err)
	}

	conn, err := dialFirst(ctx, candidates)
	if err != nil {
		return nil, err
	}

	trace := uuid.New()
	c := &Client{
		log:     log.With(map[string]any{"client": id.String(), "trace_id": trace.String()}),
		id:      id,
		traceID: trace,
		portal:  conn,
		ready:   disposal.NewGate(1),
		disp:    disposal.NewDisposer(),
	}

	if err := c.run(ctx, req, progress); err != nil {
		c.result.CompareAndSwap(int32(ResultUnknown), int32(ResultFailed))
		c.dispose()
		return c, err
	}
	return c, nil
}

// dialFirst connects to the first candidate address that accepts,
// returning a connection error only once every address has refused.
func dialFirst(ctx context.Context, candidates []*net.TCPAddr) (*xsocket.Conn, error) {
	var lastErr error
	for _, addr := range candidates {
		conn, err := xsocket.Dial(ctx, addr, xsocket.DefaultDialOptions())
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("portal: no server address to dial")
	}
	return nil, fmt.Errorf("portal: connecting to server: %w", lastErr)
}

func (c *Client) run(ctx context.Context, req Request, progress transfer.ProgressFunc) error {
	if !req.IsFromServerToClient {
		src, err := transfer.NewSource(req.LocalPath, req.BlockSize, req.Recursive, progress)
		if err != nil {
			return err
		}
		c.source = src
	}

	if err := writePortalGreeting(c.portal, c.id, wire.ClientMin, wire.ClientMax); err != nil {
		return err
	}

	chosen, err := readChosenVersion(c.portal)
	if err != nil {
		return err
	}
	if chosen == wire.VersionInvalid {
		return fmt.Errorf("portal: server rejected our protocol version range [%d,%d]", wire.ClientMin, wire.ClientMax)
	}

	infoPayload, err := wire.ReadExpectedFrame(c.portal.Raw(), wire.MsgServerInformation)
	if err != nil {
		return err
	}
	info, err := wire.DecodeServerInformation(infoPayload)
	if err != nil {
		return fmt.Errorf("portal: decoding server_information: %w", err)
	}

	var wg sync.WaitGroup
	totalChannels := 0
	opened := 0
	for _, ch := range info.ServerChannels {
		addr, err := c.channelDialAddr(ch.Address)
		if err != nil {
			return err
		}
		for i := uint64(0); i < ch.Multiplicity; i++ {
			if opened >= 16 {
				time.Sleep(5 * time.Millisecond)
			}
			opened++
			totalChannels++
			wg.Add(1)
			go func(addr *net.TCPAddr) {
				defer wg.Done()
				c.runChannel(ctx, addr)
			}(addr)
		}
	}

	var reqTransferInfo *wire.BasicTransferInfo
	if c.source != nil {
		manifest := c.source.Manifest()
		reqTransferInfo = &manifest
	}
	request := wire.ClientTransferRequest{
		IsFromServerToClient: req.IsFromServerToClient,
		ServerPath:           req.ServerPath,
		TransferBlockSize:    req.BlockSize,
		IsRecursive:          req.Recursive,
		User:                 wire.UserIdentity{UserName: req.UserName},
		TransferInfo:         reqTransferInfo,
	}
	if err := wire.SendFrame(c.portal, wire.MsgClientTransferRequest, request.Encode()); err != nil {
		return err
	}

	respPayload, err := wire.ReadExpectedFrame(c.portal.Raw(), wire.MsgServerTransferResponse)
	if err != nil {
		return err
	}
	resp, err := wire.DecodeServerTransferResponse(respPayload)
	if err != nil {
		return fmt.Errorf("portal: decoding server_transfer_response: %w", err)
	}
	if !resp.Accepted() {
		return fmt.Errorf("portal: server rejected transfer request %d: %s", resp.ErrorCode, resp.ErrorMessage)
	}

	if req.IsFromServerToClient {
		if resp.TransferInfo == nil {
			return fmt.Errorf("portal: server_transfer_response missing transfer_info for a pull")
		}
		dst := transfer.NewDestination(req.LocalPath)
		if err := dst.InitTransferInfo(*resp.TransferInfo, totalChannels, progress); err != nil {
			return err
		}
		c.destination = dst
	}

	c.ready.Signal()

	var portalErr error
	if c.source != nil {
		portalErr = c.source.InvokePortal(c.portal)
	} else {
		portalErr = c.destination.InvokePortal(c.portal)
	}

	wg.Wait()

	if portalErr != nil {
		c.result.CompareAndSwap(int32(ResultUnknown), int32(ResultFailed))
		return portalErr
	}
	c.result.CompareAndSwap(int32(ResultUnknown), int32(ResultSucceeded))
	return nil
}

// channelDialAddr resolves a server-advertised channel address, replacing
// an unspecified ("any") address with the portal connection's peer address
// while keeping the advertised port.
func (c *Client) channelDialAddr(advertised string) (*net.TCPAddr, error) {
	addr, err := net.ResolveTCPAddr("tcp", advertised)
	if err != nil {
		return nil, fmt.Errorf("portal: resolving advertised channel address %q: %w", advertised, err)
	}
	if endpoint.New(addr).IsUnspecified() {
		peer := c.portal.RemoteAddr()
		return &net.TCPAddr{IP: peer.IP, Zone: peer.Zone, Port: addr.Port}, nil
	}
	return addr, nil
}

// runChannel is the client channel routine (spec.md §4.4 "Client channel
// routine"): connect_and_send the greeting (bundled into the Fast Open SYN
// when available), then wait for the portal to be ready and run the data
// loop.
func (c *Client) runChannel(ctx context.Context, addr *net.TCPAddr) {
	conn, err := xsocket.ConnectAndSend(ctx, addr, xsocket.DefaultDialOptions(), encodeChannelGreeting(c.id))
	if err != nil {
		c.log.Error("portal: channel connect failed", err, map[string]any{"addr": addr.String()})
		return
	}

	c.channelsMu.Lock()
	c.channels = append(c.channels, conn)
	c.channelsMu.Unlock()

	c.ready.Wait()
	if c.disp.Disposing() {
		_ = conn.Close()
		return
	}

	var loopErr error
	if c.source != nil {
		loopErr = c.source.InvokeChannel(conn)
	} else if c.destination != nil {
		loopErr = c.destination.InvokeChannel(conn)
	}
	if loopErr != nil {
		c.log.Error("portal: channel loop failed", loopErr, map[string]any{"addr": addr.String()})
		c.result.CompareAndSwap(int32(ResultUnknown), int32(ResultFailed))
	}
}

// Result returns the transfer's final outcome.
func (c *Client) Result() Result {
	return Result(c.result.Load())
}

// TransferredSize reports bytes moved so far, from whichever side (source
// or destination) this client is running.
func (c *Client) TransferredSize() uint64 {
	if c.source != nil {
		return c.source.TransferredSize()
	}
	if c.destination != nil {
		return c.destination.TransferredSize()
	}
	return 0
}

// TotalSize reports the transfer's total declared size.
func (c *Client) TotalSize() uint64 {
	if c.source != nil {
		return c.source.TotalSize()
	}
	if c.destination != nil {
		return c.destination.TotalSize()
	}
	return 0
}

// Close tears the client down: closes the portal and every channel
// connection.
func (c *Client) Close() {
	c.dispose()
}

func (c *Client) dispose() {
	c.disp.Dispose(func() {
		c.ready.ForceSignalAll()

		var errs *multierror.Error
		errs = multierror.Append(errs, c.portal.Close())

		c.channelsMu.Lock()
		channels := c.channels
		c.channels = nil
		c.channelsMu.Unlock()
		for _, ch := range channels {
			errs = multierror.Append(errs, ch.Close())
		}

		if c.source != nil {
			c.source.Close()
		}
		if c.destination != nil {
			c.destination.Close()
		}

		if err := errs.ErrorOrNil(); err != nil {
			c.log.Warning("portal: errors closing client sockets", map[string]any{"error": err.Error()})
		}
	})
}
