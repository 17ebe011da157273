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

import "fmt"

// Control message types, sent as the frame's type word on the portal
// connection.
const (
	MsgServerInformation      uint32 = 1
	MsgClientTransferRequest  uint32 = 2
	MsgServerTransferResponse uint32 = 3
	MsgTransferDestinationFin uint32 = 4
)

// ChannelEndpoint is one (address, multiplicity) pair the client should
// open channel connections against.
type ChannelEndpoint struct {
	Address      string
	Multiplicity uint64
}

// ServerInformation is the first message the server sends on a new portal
// connection, after the greeting and version negotiation succeed: every
// channel endpoint the client should dial, with how many connections to
// open to each.
type ServerInformation struct {
	ServerChannels []ChannelEndpoint
}

// Encode serializes the message body (the frame header is written
// separately by the caller via WriteFrame).
func (m ServerInformation) Encode() []byte {
	w := NewWriter()
	w.SequenceHeader(len(m.ServerChannels))
	for _, ch := range m.ServerChannels {
		w.String(ch.Address)
		w.Uint64(ch.Multiplicity)
	}
	return w.Payload()
}

// DecodeServerInformation parses a ServerInformation payload.
func DecodeServerInformation(payload []byte) (ServerInformation, error) {
	r := NewReader(payload)
	var m ServerInformation

	n, err := r.SequenceHeader()
	if err != nil {
		return m, fmt.Errorf("wire: decoding server_information.server_channels header: %w", err)
	}
	m.ServerChannels = make([]ChannelEndpoint, n)
	for i := 0; i < n; i++ {
		addr, err := r.String()
		if err != nil {
			return m, fmt.Errorf("wire: decoding server_information.server_channels[%d].address: %w", i, err)
		}
		mult, err := r.Uint64()
		if err != nil {
			return m, fmt.Errorf("wire: decoding server_information.server_channels[%d].multiplicity: %w", i, err)
		}
		m.ServerChannels[i] = ChannelEndpoint{Address: addr, Multiplicity: mult}
	}

	return m, nil
}

// ClientTransferRequest asks the server to send (IsFromServerToClient)
// or accept (!IsFromServerToClient) a transfer at ServerPath. TransferInfo
// is present only when the client is pushing files to the server
// (!IsFromServerToClient); when the client is pulling, the server builds
// the manifest itself and returns it in ServerTransferResponse.
type ClientTransferRequest struct {
	IsFromServerToClient bool
	ServerPath           string
	TransferBlockSize    uint64
	IsRecursive          bool
	User                 UserIdentity
	TransferInfo         *BasicTransferInfo
}

// Encode serializes the message body.
func (m ClientTransferRequest) Encode() []byte {
	w := NewWriter()
	w.Bool(m.IsFromServerToClient)
	w.String(m.ServerPath)
	w.Uint64(m.TransferBlockSize)
	w.Bool(m.IsRecursive)
	m.User.encode(w)
	w.optionalTransferInfo(m.TransferInfo)
	return w.Payload()
}

// DecodeClientTransferRequest parses a ClientTransferRequest payload.
func DecodeClientTransferRequest(payload []byte) (ClientTransferRequest, error) {
	r := NewReader(payload)
	var m ClientTransferRequest
	var err error

	m.IsFromServerToClient, err = r.Bool()
	if err != nil {
		return m, fmt.Errorf("wire: decoding client_transfer_request.is_from_server_to_client: %w", err)
	}
	m.ServerPath, err = r.String()
	if err != nil {
		return m, fmt.Errorf("wire: decoding client_transfer_request.server_path: %w", err)
	}
	m.TransferBlockSize, err = r.Uint64()
	if err != nil {
		return m, fmt.Errorf("wire: decoding client_transfer_request.transfer_block_size: %w", err)
	}
	m.IsRecursive, err = r.Bool()
	if err != nil {
		return m, fmt.Errorf("wire: decoding client_transfer_request.is_recursive: %w", err)
	}
	m.User, err = decodeUserIdentity(r)
	if err != nil {
		return m, fmt.Errorf("wire: decoding client_transfer_request.user: %w", err)
	}
	m.TransferInfo, err = r.optionalTransferInfo()
	if err != nil {
		return m, fmt.Errorf("wire: decoding client_transfer_request.transfer_info: %w", err)
	}

	return m, nil
}

// ServerTransferResponse is the server's accept/reject reply to a
// ClientTransferRequest. ErrorCode == 0 means accepted; any other value
// means rejected, with ErrorMessage explaining why and TransferInfo absent.
// TransferInfo is present iff the server is the source of the transfer
// (IsFromServerToClient was true) and ErrorCode == 0.
type ServerTransferResponse struct {
	ErrorCode    int32
	ErrorMessage string
	TransferInfo *BasicTransferInfo
}

// Encode serializes the message body.
func (m ServerTransferResponse) Encode() []byte {
	w := NewWriter()
	w.Uint32(uint32(m.ErrorCode))
	w.String(m.ErrorMessage)
	w.optionalTransferInfo(m.TransferInfo)
	return w.Payload()
}

// DecodeServerTransferResponse parses a ServerTransferResponse payload.
func DecodeServerTransferResponse(payload []byte) (ServerTransferResponse, error) {
	r := NewReader(payload)
	var m ServerTransferResponse
	var err error

	code, err := r.Uint32()
	if err != nil {
		return m, fmt.Errorf("wire: decoding server_transfer_response.error_code: %w", err)
	}
	m.ErrorCode = int32(code)

	m.ErrorMessage, err = r.String()
	if err != nil {
		return m, fmt.Errorf("wire: decoding server_transfer_response.error_message: %w", err)
	}
	m.TransferInfo, err = r.optionalTransferInfo()
	if err != nil {
		return m, fmt.Errorf("wire: decoding server_transfer_response.transfer_info: %w", err)
	}

	return m, nil
}

// Accepted reports whether the server accepted the transfer request.
func (m ServerTransferResponse) Accepted() bool {
	return m.ErrorCode == 0
}

// TransferDestinationFinished is sent by the destination side back to the
// source side once every received byte has been written and every mapped
// file closed, so the source can tear its channels down cleanly instead of
// racing the destination's own teardown.
type TransferDestinationFinished struct {
	ErrorCode    int32
	ErrorMessage string
}

// Encode serializes the message body.
func (m TransferDestinationFinished) Encode() []byte {
	w := NewWriter()
	w.Uint32(uint32(m.ErrorCode))
	w.String(m.ErrorMessage)
	return w.Payload()
}

// DecodeTransferDestinationFinished parses a TransferDestinationFinished
// payload.
func DecodeTransferDestinationFinished(payload []byte) (TransferDestinationFinished, error) {
	r := NewReader(payload)
	var m TransferDestinationFinished
	var err error

	code, err := r.Uint32()
	if err != nil {
		return m, fmt.Errorf("wire: decoding transfer_destination_finished.error_code: %w", err)
	}
	m.ErrorCode = int32(code)

	m.ErrorMessage, err = r.String()
	if err != nil {
		return m, fmt.Errorf("wire: decoding transfer_destination_finished.error_message: %w", err)
	}

	return m, nil
}

// Success reports whether the destination finished without error.
func (m TransferDestinationFinished) Success() bool {
	return m.ErrorCode == 0
}
