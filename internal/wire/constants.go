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

// Package wire implements the on-the-wire contract: greeting magics, role
// and protocol-version constants, the framed control-message codec, and the
// transfer-block header. Every multi-byte integer on the wire is
// big-endian.
package wire

// Greeting magics. The first 8 bytes of every portal/channel connection
// must equal these two 32-bit words exactly, or the connection is closed
// without mutating any server state.
const (
	Magic1 uint32 = 0x31c1b3f6
	Magic2 uint32 = 0xe5fd020e
)

// Connection roles, sent as the third greeting word.
const (
	RolePortal  uint32 = 0x8739e779
	RoleChannel uint32 = 0x7fbc389b
)

// Protocol versions. 0 (Invalid) means "negotiation failed" and is never a
// usable version. Only V1 exists today; negotiation still picks
// min(serverMax, clientMax) so a future V2 slots in without a protocol
// change.
const (
	VersionInvalid uint16 = 0x0000
	VersionV1      uint16 = 0x0001
)

// ServerMin and ServerMax bound the protocol versions this build of the
// server will negotiate.
const (
	ServerMin = VersionV1
	ServerMax = VersionV1
)

// ClientMin and ClientMax bound the protocol versions this build of the
// client will offer.
const (
	ClientMin = VersionV1
	ClientMax = VersionV1
)

// Negotiate picks the chosen version for a server with range [serverMin,
// serverMax] given a client-offered range [clientMin, clientMax]. It
// returns VersionInvalid if the client's range is malformed or the ranges
// do not intersect.
func Negotiate(serverMin, serverMax, clientMin, clientMax uint16) uint16 {
	if clientMin > clientMax {
		return VersionInvalid
	}
	if clientMax < serverMin || clientMin > serverMax {
		return VersionInvalid
	}

	chosen := serverMax
	if clientMax < chosen {
		chosen = clientMax
	}
	return chosen
}
