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

package transfer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/wenbinhou/xcp/internal/disposal"
	"github.com/wenbinhou/xcp/internal/wire"
	"github.com/wenbinhou/xcp/internal/xerr"
	"github.com/wenbinhou/xcp/internal/xsocket"
	"github.com/xujiajun/mmap-go"
)

// destFile is one mapped destination file: the writable handle backing a
// memory map that every channel goroutine writes disjoint sub-ranges of.
type destFile struct {
	relativePath string
	path         string
	handle       *os.File
	size         uint64
	mapped       mmap.MMap
	received     atomic.Uint64
	closeOnce    sync.Once
}

// Destination is the receive half of the engine. Construction only records
// the destination path; InitTransferInfo does the filesystem work (stat,
// mkdir, create/truncate/chmod, mmap) once the manifest is known.
type Destination struct {
	rootPath string
	rootName string
	// renameRoot is true when rootPath itself becomes the copied root
	// directory (the not-found-so-create-it case); false when rootPath is
	// an existing directory the root is recreated underneath.
	renameRoot bool
	// singleFile is true when the transfer is a single regular file, in
	// which case rootPath is itself the exact destination path.
	singleFile bool

	files            []*destFile
	totalSize        uint64
	progress         *reporter
	channelsFinished *disposal.Gate
}

// NewDestination records path; filesystem preparation happens in
// InitTransferInfo once the manifest has arrived.
func NewDestination(path string) *Destination {
	return &Destination{rootPath: path}
}

// InitTransferInfo resolves the destination kind against the filesystem
// per spec.md §4.3's table, creates directories/files, truncates and
// memory-maps every file, and initializes the all-channels-finished gate
// to totalChannelMultiplicity.
func (d *Destination) InitTransferInfo(info wire.BasicTransferInfo, totalChannelMultiplicity int, progress ProgressFunc) error {
	st, statErr := os.Stat(d.rootPath)
	exists := statErr == nil
	if statErr != nil && !os.IsNotExist(statErr) {
		return xerr.Wrap(xerr.KindFilesystem, statErr, "transfer: stat destination "+d.rootPath)
	}

	if !info.SourceIsDirectory {
		d.singleFile = true
		if exists && st.IsDir() {
			return xerr.Wrap(xerr.KindTransferLogic, syscall.ENOSYS, "transfer: destination "+d.rootPath+" is a directory, source is a single file").WithCode(int32(syscall.ENOSYS))
		}
		if exists && !st.Mode().IsRegular() {
			return xerr.New(xerr.KindTransferLogic, "transfer: destination "+d.rootPath+" is a special file").WithCode(int32(syscall.ENOSYS))
		}
		if len(info.FilesInfo) != 1 {
			return xerr.New(xerr.KindTransferLogic, "transfer: single-file transfer_info does not carry exactly one file entry")
		}
		fi := info.FilesInfo[0]
		df, err := d.createFile(d.rootPath, fi)
		if err != nil {
			return err
		}
		d.files = []*destFile{df}
	} else {
		if len(info.DirsInfo) == 0 {
			return xerr.New(xerr.KindTransferLogic, "transfer: directory transfer_info carries no directory entries")
		}
		d.rootName = info.DirsInfo[0].RelativePath

		switch {
		case exists && st.IsDir():
			d.renameRoot = false
		case !exists:
			d.renameRoot = true
		default:
			return xerr.New(xerr.KindTransferLogic, "transfer: destination "+d.rootPath+" is a file, source is a directory").WithCode(int32(syscall.ENOSYS))
		}

		for _, dirInfo := range info.DirsInfo {
			target := d.resolveTarget(dirInfo.RelativePath)
			perm := os.FileMode(dirInfo.PosixPerm)
			if perm == 0 {
				perm = 0755
			}
			if err := os.MkdirAll(target, perm); err != nil {
				return xerr.Wrap(xerr.KindFilesystem, err, "transfer: creating directory "+target)
			}
			if err := os.Chmod(target, perm); err != nil {
				return xerr.Wrap(xerr.KindFilesystem, err, "transfer: chmod directory "+target)
			}
		}

		for _, fi := range info.FilesInfo {
			target := d.resolveTarget(fi.RelativePath)
			df, err := d.createFile(target, fi)
			if err != nil {
				return err
			}
			df.relativePath = fi.RelativePath
			d.files = append(d.files, df)
		}
	}

	for _, f := range d.files {
		d.totalSize += f.size
	}
	d.progress = newReporter(d.totalSize, progress)
	d.channelsFinished = disposal.NewGate(totalChannelMultiplicity)
	return nil
}

// resolveTarget maps a manifest-relative path to an absolute destination
// path, depending on whether the root itself is being renamed to rootPath
// (not-found case) or recreated as a child of an existing rootPath.
func (d *Destination) resolveTarget(relPath string) string {
	if d.renameRoot {
		suffix := strings.TrimPrefix(relPath, d.rootName)
		suffix = strings.TrimPrefix(suffix, "/")
		return filepath.Join(d.rootPath, suffix)
	}
	return filepath.Join(d.rootPath, relPath)
}

// createFile creates/truncates/chmods target, then memory-maps it
// PROT_READ|PROT_WRITE/MAP_SHARED for the channels to write into. A
// zero-length file is created and chmod'd but never mapped (mmap of an
// empty range is meaningless, and the partition of [0,0) is empty, so no
// channel will ever touch it).
func (d *Destination) createFile(target string, fi wire.BasicFileInfo) (*destFile, error) {
	if fi.Size > math.MaxInt64 {
		return nil, xerr.New(xerr.KindTransferLogic, "transfer: "+target+" declared size exceeds this platform's size_t").WithCode(int32(syscall.ENOSYS))
	}

	perm := os.FileMode(fi.PosixPerm)
	if perm == 0 {
		perm = 0644
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, xerr.Wrap(xerr.KindFilesystem, err, "transfer: creating parent directory of "+target)
	}

	f, err := os.OpenFile(target, os.O_RDWR|os.O_CREATE, perm)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindFilesystem, err, "transfer: creating "+target)
	}
	if err := f.Truncate(int64(fi.Size)); err != nil {
		f.Close()
		return nil, xerr.Wrap(xerr.KindFilesystem, err, "transfer: truncating "+target)
	}
	if err := os.Chmod(target, perm); err != nil {
		f.Close()
		return nil, xerr.Wrap(xerr.KindFilesystem, err, "transfer: chmod "+target)
	}

	df := &destFile{relativePath: fi.RelativePath, path: target, handle: f, size: fi.Size}

	if fi.Size == 0 {
		// Nothing will ever be mapped or written to a zero-length file; it
		// is closed once, uniformly, by Destination.Close.
		return df, nil
	}

	mapped, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, xerr.Wrap(xerr.KindFilesystem, err, "transfer: mmap "+target)
	}
	if err := adviseSequential(mapped); err != nil {
		// Best-effort readahead hint; the error is ignored: it is not
		// logged and does not fail the transfer.
		_ = err
	}
	df.mapped = mapped

	return df, nil
}

// TotalSize returns the sum of every file's declared size.
func (d *Destination) TotalSize() uint64 {
	return d.totalSize
}

// TransferredSize returns bytes received so far across every channel.
func (d *Destination) TransferredSize() uint64 {
	return d.progress.transferredSize()
}

// Close unmaps and closes every destination file still open. Files that
// have already reached their declared size are closed as soon as the last
// byte lands (see InvokeChannel), so this closes zero-length files (which
// no channel ever writes) and mops up partially-received files on an
// aborted transfer.
func (d *Destination) Close() {
	for _, f := range d.files {
		f.finish()
	}
}

func (f *destFile) finish() {
	f.closeOnce.Do(func() {
		if f.mapped != nil {
			_ = f.mapped.Flush()
			_ = f.mapped.Unmap()
		}
		_ = f.handle.Close()
	})
}

// InvokeChannel runs one channel connection's receive loop: read a block
// header, copy recv_exact output into the corresponding file's mapped
// range, and repeat until the per-channel end-of-stream sentinel arrives.
// No lock guards the mapped writes; the partition invariant upheld by the
// source's fetch-add dispatch guarantees every channel writes disjoint
// byte ranges.
func (d *Destination) InvokeChannel(conn *xsocket.Conn) error {
	defer d.channelsFinished.Signal()

	for {
		hdr, err := wire.ReadBlockHeader(conn.Raw())
		if err != nil {
			return fmt.Errorf("transfer: reading block header: %w", err)
		}
		if hdr.IsEndOfStream() {
			return nil
		}
		if int(hdr.FileIndex) >= len(d.files) {
			return fmt.Errorf("transfer: block header references file index %d, manifest has %d files", hdr.FileIndex, len(d.files))
		}

		f := d.files[hdr.FileIndex]
		end := hdr.Offset + uint64(hdr.BlockSize)
		if end > f.size || end > uint64(len(f.mapped)) {
			return fmt.Errorf("transfer: block [%d,%d) exceeds %s's declared size %d", hdr.Offset, end, f.relativePath, f.size)
		}

		if hdr.BlockSize > 0 {
			if err := conn.RecvExact(f.mapped[hdr.Offset:end]); err != nil {
				return fmt.Errorf("transfer: receiving block for %s: %w", f.relativePath, err)
			}
		}

		received := f.received.Add(uint64(hdr.BlockSize))
		if received == f.size {
			f.finish()
		}
		d.progress.add(uint64(hdr.BlockSize))
	}
}

// InvokePortal waits for every channel to finish, then sends the
// destination-finished message the source side is blocked on.
func (d *Destination) InvokePortal(conn *xsocket.Conn) error {
	d.channelsFinished.Wait()

	msg := wire.TransferDestinationFinished{ErrorCode: 0}
	if err := wire.SendFrame(conn, wire.MsgTransferDestinationFin, msg.Encode()); err != nil {
		return fmt.Errorf("transfer: sending destination-finished message: %w", err)
	}
	return nil
}
