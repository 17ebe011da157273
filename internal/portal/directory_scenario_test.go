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

// Scenario S3: a directory with nested subdirectories and files from 0
// bytes to several MiB, copied recursively.
package portal_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wenbinhou/xcp/internal/portal"
	"github.com/wenbinhou/xcp/internal/transfer"
)

var _ = Describe("Recursive directory transfer", func() {
	Context("with nested subdirectories, an empty file, and files of varying size (S3)", func() {
		It("reproduces the whole tree at the destination, including empty files and permissions", func() {
			srcRoot := GinkgoT().TempDir()
			dstParent := GinkgoT().TempDir()
			dstRoot := filepath.Join(dstParent, "copy")

			layout := map[string]int{
				"top.txt":              4096,
				"empty.txt":            0,
				"nested/inner.bin":     256 * 1024,
				"nested/deep/leaf.bin": 17,
			}
			for rel, size := range layout {
				full := filepath.Join(srcRoot, rel)
				Expect(os.MkdirAll(filepath.Dir(full), 0755)).To(Succeed())
				buf := make([]byte, size)
				if size > 0 {
					_, err := rand.Read(buf)
					Expect(err).ToNot(HaveOccurred())
				}
				Expect(os.WriteFile(full, buf, 0640)).To(Succeed())
			}
			Expect(os.MkdirAll(filepath.Join(srcRoot, "nested", "emptydir"), 0750)).To(Succeed())

			portalLn := newPortalListener()
			server := portal.NewServer(portalLn, 4, nil, nopLog)
			go server.Run()
			defer server.Close()

			req := portal.Request{
				ServerPath: dstRoot,
				LocalPath:  srcRoot,
				Recursive:  true,
				BlockSize:  transfer.MinBlockSize,
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client, err := portal.Run(ctx, []*net.TCPAddr{portalLn.Addr()}, req, nil, nopLog)
			Expect(err).ToNot(HaveOccurred())
			defer client.Close()
			Expect(client.Result()).To(Equal(portal.ResultSucceeded))

			for rel, size := range layout {
				wantBytes, err := os.ReadFile(filepath.Join(srcRoot, rel))
				Expect(err).ToNot(HaveOccurred())
				Expect(wantBytes).To(HaveLen(size))

				gotBytes, err := os.ReadFile(filepath.Join(dstRoot, rel))
				Expect(err).ToNot(HaveOccurred())
				Expect(bytes.Equal(gotBytes, wantBytes)).To(BeTrue(), "content mismatch for %s", rel)

				wantInfo, err := os.Stat(filepath.Join(srcRoot, rel))
				Expect(err).ToNot(HaveOccurred())
				gotInfo, err := os.Stat(filepath.Join(dstRoot, rel))
				Expect(err).ToNot(HaveOccurred())
				Expect(gotInfo.Mode().Perm()).To(Equal(wantInfo.Mode().Perm()), "permission mismatch for %s", rel)
			}

			info, err := os.Stat(filepath.Join(dstRoot, "nested", "emptydir"))
			Expect(err).ToNot(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})
})
