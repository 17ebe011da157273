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

// Scenarios S5 (version mismatch) and S6 (bad magic), plus the magic-gating
// and version-negotiation invariants they exist to cover.
package portal_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wenbinhou/xcp/internal/portal"
	"github.com/wenbinhou/xcp/internal/transfer"
	"github.com/wenbinhou/xcp/internal/wire"
)

var _ = Describe("Connection gating", func() {
	Context("with a bad-magic raw client (S6)", func() {
		It("closes the connection without disturbing the server, which keeps accepting valid clients", func() {
			portalLn := newPortalListener()
			server := portal.NewServer(portalLn, 1, nil, nopLog)
			go server.Run()
			defer server.Close()

			bad := dialRaw(portalLn.Addr())
			writeRawGreetingHeader(bad, 0x00000000, 0x00000000, wire.RolePortal)

			var b [1]byte
			_, err := bad.Read(b[:])
			Expect(err).To(HaveOccurred(), "server must close a connection whose magic does not match")
			_ = bad.Close()

			srcDir := GinkgoT().TempDir()
			dstDir := GinkgoT().TempDir()
			payload := []byte("still accepting valid clients after a bad-magic probe")
			srcPath := filepath.Join(srcDir, "probe.bin")
			Expect(os.WriteFile(srcPath, payload, 0644)).To(Succeed())

			req := portal.Request{
				ServerPath: filepath.Join(dstDir, "probe.bin"),
				LocalPath:  srcPath,
				BlockSize:  transfer.MinBlockSize,
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client, err := portal.Run(ctx, []*net.TCPAddr{portalLn.Addr()}, req, nil, nopLog)
			Expect(err).ToNot(HaveOccurred())
			defer client.Close()
			Expect(client.Result()).To(Equal(portal.ResultSucceeded))
		})
	})

	Context("with a client offering a version range the server does not support (S5)", func() {
		It("returns INVALID and closes the connection without touching any file", func() {
			portalLn := newPortalListener()
			server := portal.NewServer(portalLn, 1, nil, nopLog)
			go server.Run()
			defer server.Close()

			conn := dialRaw(portalLn.Addr())
			defer conn.Close()

			// Offer a range entirely above wire.ServerMax, so it cannot
			// intersect [wire.ServerMin, wire.ServerMax] regardless of
			// what this build's server happens to support.
			const offeredMin = wire.VersionV1 + 100
			const offeredMax = wire.VersionV1 + 200
			writePortalGreetingWithVersions(conn, offeredMin, offeredMax)

			chosen := readChosenVersionRaw(conn)
			Expect(chosen).To(Equal(wire.VersionInvalid))

			var b [1]byte
			_, err := conn.Read(b[:])
			Expect(err).To(HaveOccurred(), "server must close the connection after rejecting the version range")
		})
	})
})
