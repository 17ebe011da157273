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

package portal_test

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	. "github.com/onsi/gomega"

	"github.com/wenbinhou/xcp/internal/identity"
	"github.com/wenbinhou/xcp/internal/wire"
	"github.com/wenbinhou/xcp/internal/xlog"
	"github.com/wenbinhou/xcp/internal/xsocket"
)

// newPortalListener binds a loopback listener for a Server under test.
func newPortalListener() *xsocket.Listener {
	ln, err := xsocket.Listen(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}, xsocket.DefaultListenOptions())
	Expect(err).ToNot(HaveOccurred())
	return ln
}

// dialRaw opens a plain TCP connection to addr, standing in for the "raw
// TCP client" of spec scenario S6 that does not go through xsocket or the
// portal greeting helpers at all.
func dialRaw(addr net.Addr) net.Conn {
	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	Expect(err).ToNot(HaveOccurred())
	return conn
}

// writeRawGreetingHeader writes the 12-byte magic1/magic2/role header
// directly, bypassing every helper that would validate it.
func writeRawGreetingHeader(conn net.Conn, magic1, magic2, role uint32) {
	var hdr [12]byte
	binary.BigEndian.PutUint32(hdr[0:4], magic1)
	binary.BigEndian.PutUint32(hdr[4:8], magic2)
	binary.BigEndian.PutUint32(hdr[8:12], role)
	_, err := conn.Write(hdr[:])
	Expect(err).ToNot(HaveOccurred())
}

// writePortalGreetingWithVersions performs a full, otherwise-valid portal
// greeting (magic, role, identity) but offers an arbitrary version range,
// for exercising version-negotiation failure without touching unexported
// portal-package code.
func writePortalGreetingWithVersions(conn net.Conn, minVer, maxVer uint16) identity.Identity {
	writeRawGreetingHeader(conn, wire.Magic1, wire.Magic2, wire.RolePortal)

	id, err := identity.New()
	Expect(err).ToNot(HaveOccurred())
	_, err = conn.Write(id.Bytes())
	Expect(err).ToNot(HaveOccurred())

	var verBuf [4]byte
	binary.BigEndian.PutUint16(verBuf[0:2], minVer)
	binary.BigEndian.PutUint16(verBuf[2:4], maxVer)
	_, err = conn.Write(verBuf[:])
	Expect(err).ToNot(HaveOccurred())

	return id
}

// readChosenVersionRaw reads the server's 2-byte chosen-version reply.
func readChosenVersionRaw(conn net.Conn) uint16 {
	var b [2]byte
	_, err := io.ReadFull(conn, b[:])
	Expect(err).ToNot(HaveOccurred())
	return binary.BigEndian.Uint16(b[:])
}

// nopLog is the suite-wide discard logger, grounded on xlog.Nop.
var nopLog = xlog.Nop
