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

// Package portal implements the connection model that multiplexes one
// portal and N channel connections by client identity: the server's accept
// dispatcher and per-client instance, and the client's portal/channel
// routines.
package portal

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/wenbinhou/xcp/internal/identity"
	"github.com/wenbinhou/xcp/internal/wire"
	"github.com/wenbinhou/xcp/internal/xsocket"
)

// greetingHeaderSize is magic1 + magic2 + role, the three fixed words every
// connection (portal or channel) leads with.
const greetingHeaderSize = 12

// readGreetingHeader reads and validates the two magic words, returning the
// role word. A magic mismatch is a protocol error; the caller closes the
// connection without touching any server state.
func readGreetingHeader(conn *xsocket.Conn) (role uint32, err error) {
	var hdr [greetingHeaderSize]byte
	if err := conn.RecvExact(hdr[:]); err != nil {
		return 0, fmt.Errorf("portal: reading greeting header: %w", err)
	}

	magic1 := binary.BigEndian.Uint32(hdr[0:4])
	magic2 := binary.BigEndian.Uint32(hdr[4:8])
	if magic1 != wire.Magic1 || magic2 != wire.Magic2 {
		return 0, fmt.Errorf("portal: greeting magic mismatch: got %#x/%#x", magic1, magic2)
	}

	return binary.BigEndian.Uint32(hdr[8:12]), nil
}

// readIdentity reads the 16-byte identity that follows the greeting header
// on every connection, regardless of role.
func readIdentity(conn *xsocket.Conn) (identity.Identity, error) {
	var b [identity.Size]byte
	if err := conn.RecvExact(b[:]); err != nil {
		return identity.Identity{}, fmt.Errorf("portal: reading identity: %w", err)
	}
	return identity.FromBytes(b[:])
}

// writePortalGreeting sends, in a single vectored write, the portal
// greeting: magic1, magic2, role=PORTAL, identity(16B), min_ver, max_ver.
func writePortalGreeting(conn *xsocket.Conn, id identity.Identity, minVer, maxVer uint16) error {
	var fixed [greetingHeaderSize]byte
	binary.BigEndian.PutUint32(fixed[0:4], wire.Magic1)
	binary.BigEndian.PutUint32(fixed[4:8], wire.Magic2)
	binary.BigEndian.PutUint32(fixed[8:12], wire.RolePortal)

	var ver [4]byte
	binary.BigEndian.PutUint16(ver[0:2], minVer)
	binary.BigEndian.PutUint16(ver[2:4], maxVer)

	if err := conn.SendVectored(net.Buffers{fixed[:], id.Bytes(), ver[:]}); err != nil {
		return fmt.Errorf("portal: sending portal greeting: %w", err)
	}
	return nil
}

// encodeChannelGreeting renders the channel greeting (magic1, magic2,
// role=CHANNEL, identity) as one contiguous buffer, so it can be handed to
// xsocket.ConnectAndSend as the first payload sent after connecting.
func encodeChannelGreeting(id identity.Identity) []byte {
	buf := make([]byte, greetingHeaderSize+identity.Size)
	binary.BigEndian.PutUint32(buf[0:4], wire.Magic1)
	binary.BigEndian.PutUint32(buf[4:8], wire.Magic2)
	binary.BigEndian.PutUint32(buf[8:12], wire.RoleChannel)
	copy(buf[greetingHeaderSize:], id.Bytes())
	return buf
}

// readVersionRange reads the client's offered [min_ver, max_ver] range,
// sent as two big-endian u16s immediately after the portal greeting.
func readVersionRange(conn *xsocket.Conn) (min, max uint16, err error) {
	var b [4]byte
	if err := conn.RecvExact(b[:]); err != nil {
		return 0, 0, fmt.Errorf("portal: reading version range: %w", err)
	}
	return binary.BigEndian.Uint16(b[0:2]), binary.BigEndian.Uint16(b[2:4]), nil
}

// writeChosenVersion sends the server's negotiated version as 2 bytes
// big-endian.
func writeChosenVersion(conn *xsocket.Conn, version uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], version)
	if err := conn.SendAll(b[:]); err != nil {
		return fmt.Errorf("portal: sending chosen version: %w", err)
	}
	return nil
}

// readChosenVersion reads the server's 2-byte chosen version reply.
func readChosenVersion(conn *xsocket.Conn) (uint16, error) {
	var b [2]byte
	if err := conn.RecvExact(b[:]); err != nil {
		return 0, fmt.Errorf("portal: reading chosen version: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}
