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
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/wenbinhou/xcp/internal/disposal"
	"github.com/wenbinhou/xcp/internal/identity"
	"github.com/wenbinhou/xcp/internal/metrics"
	"github.com/wenbinhou/xcp/internal/transfer"
	"github.com/wenbinhou/xcp/internal/wire"
	"github.com/wenbinhou/xcp/internal/xerr"
	"github.com/wenbinhou/xcp/internal/xlog"
	"github.com/wenbinhou/xcp/internal/xsocket"
)

// ClientInstance is the server-side state for one client's transfer:
// created the moment a portal connection has sent its identity, torn down
// by dispose, which closes the portal and every attached channel socket so
// that routines still blocked on them return; teardown does not wait for
// those routines to finish.
type ClientInstance struct {
	id  identity.Identity
	// traceID is a human-readable log-correlation id, separate from the
	// wire identity: the wire identity is an opaque byte token chosen for
	// map-key and timestamp properties, not for being easy to grep a log
	// file for.
	traceID uuid.UUID
	log     xlog.Logger

	portal *xsocket.Conn

	channelsRundown disposal.Rundown
	channels        []*xsocket.Conn

	totalChannels int
	connected     *disposal.Gate
	ready         *disposal.Gate

	source      *transfer.Source
	destination *transfer.Destination

	version uint16
	disp    *disposal.Disposer

	// metrics is optional; nil when the server was not started with
	// -metrics-addr.
	metrics *metrics.Collectors
}

func newClientInstance(id identity.Identity, portal *xsocket.Conn, totalChannels int, log xlog.Logger) *ClientInstance {
	trace := uuid.New()
	return &ClientInstance{
		id:            id,
		traceID:       trace,
		log:           log.With(map[string]any{"client": id.String(), "trace_id": trace.String()}),
		portal:        portal,
		totalChannels: totalChannels,
		connected:     disposal.NewGate(totalChannels),
		ready:         disposal.NewGate(1),
		disp:          disposal.NewDisposer(),
	}
}

// attachChannel appends conn to the channel list under rundown protection.
// ok is false if the instance is being (or has been) torn down; the caller
// must close conn itself in that case.
func (ci *ClientInstance) attachChannel(conn *xsocket.Conn) (ok bool) {
	unlock, ok := ci.channelsRundown.AcquireUnique()
	if !ok {
		return false
	}
	defer unlock()
	ci.channels = append(ci.channels, conn)
	return true
}

// dispose tears the instance down: closes the portal socket and every
// attached channel socket, unblocking any goroutine parked in a blocking
// recv/send or waiting on a gate. Safe to call concurrently and repeatedly.
func (ci *ClientInstance) dispose() {
	ci.disp.Dispose(ci.teardown)
}

// disposeAsync runs teardown on a fresh goroutine, for a caller (a channel
// routine noticing a failed transfer) that must not block its own unwind
// waiting on a join it is itself part of.
func (ci *ClientInstance) disposeAsync() {
	ci.disp.AsyncDispose(ci.teardown, false)
}

func (ci *ClientInstance) teardown() {
	unlock := ci.channelsRundown.AcquireRundown()
	channels := ci.channels
	ci.channels = nil
	unlock()

	ci.connected.ForceSignalAll()
	ci.ready.ForceSignalAll()

	var errs *multierror.Error
	errs = multierror.Append(errs, ci.portal.Close())
	for _, c := range channels {
		errs = multierror.Append(errs, c.Close())
	}
	if ci.source != nil {
		ci.source.Close()
	}
	if ci.destination != nil {
		ci.destination.Close()
	}

	if err := errs.ErrorOrNil(); err != nil {
		ci.log.Warning("portal: errors closing client-instance sockets", map[string]any{"error": err.Error()})
	}
}

// runPortal is the server-side client-instance portal routine (spec.md
// §4.4 "Client-instance portal routine (server side)"), run inline on the
// accept worker that received the portal connection.
func (ci *ClientInstance) runPortal(advertised []wire.ChannelEndpoint, resolveUser func(serverPath, userName string) (string, error)) error {
	defer ci.dispose()

	minVer, maxVer, err := readVersionRange(ci.portal)
	if err != nil {
		return err
	}
	chosen := wire.Negotiate(wire.ServerMin, wire.ServerMax, minVer, maxVer)
	if chosen == wire.VersionInvalid {
		_ = writeChosenVersion(ci.portal, wire.VersionInvalid)
		return fmt.Errorf("portal: version negotiation failed: client offered [%d,%d]", minVer, maxVer)
	}
	ci.version = chosen
	if err := writeChosenVersion(ci.portal, chosen); err != nil {
		return err
	}

	info := wire.ServerInformation{ServerChannels: advertised}
	if err := wire.SendFrame(ci.portal, wire.MsgServerInformation, info.Encode()); err != nil {
		return fmt.Errorf("portal: sending server_information: %w", err)
	}

	reqPayload, err := wire.ReadExpectedFrame(ci.portal.Raw(), wire.MsgClientTransferRequest)
	if err != nil {
		return fmt.Errorf("portal: reading client_transfer_request: %w", err)
	}
	req, err := wire.DecodeClientTransferRequest(reqPayload)
	if err != nil {
		return fmt.Errorf("portal: decoding client_transfer_request: %w", err)
	}

	resp := ci.prepareTransfer(req, resolveUser)
	ci.connected.Wait()
	if err := wire.SendFrame(ci.portal, wire.MsgServerTransferResponse, resp.Encode()); err != nil {
		return fmt.Errorf("portal: sending server_transfer_response: %w", err)
	}
	ci.ready.Signal()
	if !resp.Accepted() {
		return fmt.Errorf("portal: transfer request rejected: %s", resp.ErrorMessage)
	}

	if ci.source != nil {
		return ci.source.InvokePortal(ci.portal)
	}
	return ci.destination.InvokePortal(ci.portal)
}

// prepareTransfer resolves server_path and constructs the source or
// destination transfer object, returning the response to send back. It
// never returns an error itself: any failure is reported through a
// non-zero error_code in the response, per spec.md §4.4 step 6.
func (ci *ClientInstance) prepareTransfer(req wire.ClientTransferRequest, resolveUser func(string, string) (string, error)) wire.ServerTransferResponse {
	path, err := resolveUser(req.ServerPath, req.User.UserName)
	if err != nil {
		return errorResponse(err)
	}

	if req.IsFromServerToClient {
		src, err := transfer.NewSource(path, req.TransferBlockSize, req.IsRecursive, ci.progressFunc("send"))
		if err != nil {
			return errorResponse(err)
		}
		ci.source = src
		manifest := src.Manifest()
		return wire.ServerTransferResponse{TransferInfo: &manifest}
	}

	if req.TransferInfo == nil {
		return wire.ServerTransferResponse{ErrorCode: 1, ErrorMessage: "portal: client_transfer_request missing transfer_info for a client-to-server transfer"}
	}
	dst := transfer.NewDestination(path)
	if err := dst.InitTransferInfo(*req.TransferInfo, ci.totalChannels, ci.progressFunc("receive")); err != nil {
		return errorResponse(err)
	}
	ci.destination = dst
	return wire.ServerTransferResponse{}
}

// progressFunc returns a metrics-reporting progress callback for direction,
// or nil when metrics were not enabled for this server.
func (ci *ClientInstance) progressFunc(direction string) transfer.ProgressFunc {
	if ci.metrics == nil {
		return nil
	}
	return ci.metrics.ProgressFunc(direction)
}

// runChannel is the server-side client-instance channel routine (spec.md
// §4.4 "Client-instance channel routine (server side)").
func (ci *ClientInstance) runChannel(conn *xsocket.Conn) {
	ci.connected.Signal()
	ci.ready.Wait()

	if ci.disp.Disposing() {
		return
	}

	var err error
	if ci.source != nil {
		err = ci.source.InvokeChannel(conn)
	} else if ci.destination != nil {
		err = ci.destination.InvokeChannel(conn)
	}
	if err != nil {
		ci.log.Error("portal: channel loop failed", err, nil)
		ci.disposeAsync()
	}
}

// errorResponse turns a local failure into a rejection response, carrying
// the *xerr.Error's numeric code verbatim when one was attached so the
// peer sees the same errno-style value the local side would have logged.
func errorResponse(err error) wire.ServerTransferResponse {
	code := int32(1)
	var xe *xerr.Error
	if errors.As(err, &xe) && xe.Code() != 0 {
		code = xe.Code()
	}
	return wire.ServerTransferResponse{ErrorCode: code, ErrorMessage: err.Error()}
}
