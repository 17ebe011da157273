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

// Package identity implements the 16-byte client identity token that binds
// one portal connection to its channel connections on the server side.
package identity

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// Size is the wire length of an Identity, in bytes.
const Size = 16

// Identity is an opaque 16-byte token: 8 bytes of wall-clock nanosecond
// timestamp (time.Now().UnixNano(), not a monotonic reading) followed by 8
// bytes of random data. It is a plain comparable
// array, so it can be used directly as a map key without any custom hash
// function (the C++ origin XORs the three words together; Go's built-in map
// hashing already does this job, so that hash is not ported).
type Identity [Size]byte

// Zero is the identity with all bytes unset. It is never a valid generated
// identity (the timestamp component is always non-zero in practice), so it
// is a safe "not yet assigned" sentinel for callers that need one.
var Zero Identity

// New generates a fresh identity from the current wall-clock time in
// nanoseconds and a crypto/rand-sourced random tail.
func New() (Identity, error) {
	var id Identity

	binary.BigEndian.PutUint64(id[0:8], uint64(time.Now().UnixNano()))

	if _, err := rand.Read(id[8:16]); err != nil {
		return Identity{}, fmt.Errorf("identity: generating random tail: %w", err)
	}

	return id, nil
}

// FromBytes copies a wire-format identity out of a 16-byte slice.
func FromBytes(b []byte) (Identity, error) {
	var id Identity

	if len(b) != Size {
		return id, fmt.Errorf("identity: expected %d bytes, got %d", Size, len(b))
	}

	copy(id[:], b)
	return id, nil
}

// Bytes returns the wire-format encoding of the identity.
func (id Identity) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, id[:])
	return out
}

// IsZero reports whether id is the zero identity.
func (id Identity) IsZero() bool {
	return id == Zero
}

// String renders the identity as a hex string, for log correlation only;
// it is never parsed back from this form.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}
