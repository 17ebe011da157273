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
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/wenbinhou/xcp/internal/walk"
	"github.com/wenbinhou/xcp/internal/wire"
	"github.com/wenbinhou/xcp/internal/xerr"
	"github.com/wenbinhou/xcp/internal/xsocket"
)

// sourceFile is one open file backing the source side of a transfer: a
// read-only handle and the atomic cursor every channel goroutine fetch-adds
// against to claim its next block.
type sourceFile struct {
	relativePath string
	handle       *os.File
	size         uint64
	nextOffset   atomic.Uint64
}

// Source is the send half of the engine. It opens every file up front so
// construction failures surface before any channel starts sending, and
// closes them all on Close.
type Source struct {
	info      wire.BasicTransferInfo
	files     []*sourceFile
	blockSize uint64 // 0 means adaptive
	totalSize uint64
	progress  *reporter
}

// NewSource stats path (following symlinks) and prepares the send side of
// a transfer: a single regular file, or (recursive must be true) a
// directory tree walked per internal/walk's symlink-cycle and
// skip-permission-denied policy. Every file handle is opened immediately.
func NewSource(path string, blockSizeHint uint64, recursive bool, progress ProgressFunc) (*Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindFilesystem, err, "transfer: stat source "+path)
	}

	s := &Source{blockSize: clampFixedBlockSize(blockSizeHint)}

	switch {
	case fi.Mode().IsRegular():
		f, err := os.Open(path)
		if err != nil {
			return nil, xerr.Wrap(xerr.KindFilesystem, err, "transfer: opening source "+path)
		}
		sf := &sourceFile{relativePath: fi.Name(), handle: f, size: uint64(fi.Size())}
		s.files = []*sourceFile{sf}
		s.info = wire.BasicTransferInfo{
			SourceIsDirectory: false,
			FilesInfo:         []wire.BasicFileInfo{{RelativePath: sf.relativePath, Size: sf.size, PosixPerm: uint16(fi.Mode().Perm())}},
		}

	case fi.IsDir():
		if !recursive {
			return nil, errNotRecursive(path)
		}
		entries, err := walk.Dir(path)
		if err != nil {
			return nil, err
		}
		if err := s.openFromWalk(entries); err != nil {
			return nil, err
		}

	default:
		return nil, errUnsupportedFileType(path)
	}

	for _, f := range s.files {
		s.totalSize += f.size
	}
	s.progress = newReporter(s.totalSize, progress)
	return s, nil
}

func (s *Source) openFromWalk(entries []walk.Entry) error {
	s.info.SourceIsDirectory = true

	for _, e := range entries {
		switch e.Kind {
		case walk.KindDir:
			s.info.DirsInfo = append(s.info.DirsInfo, wire.BasicDirectoryInfo{
				RelativePath: e.RelativePath,
				PosixPerm:    uint16(e.Mode.Perm()),
			})
		case walk.KindFile:
			f, err := os.Open(e.AbsPath)
			if err != nil {
				return xerr.Wrap(xerr.KindFilesystem, err, "transfer: opening "+e.AbsPath)
			}
			sf := &sourceFile{relativePath: e.RelativePath, handle: f, size: uint64(e.Size)}
			s.files = append(s.files, sf)
			s.info.FilesInfo = append(s.info.FilesInfo, wire.BasicFileInfo{
				RelativePath: sf.relativePath,
				Size:         sf.size,
				PosixPerm:    uint16(e.Mode.Perm()),
			})
		}
	}
	return nil
}

// clampFixedBlockSize clamps a user-requested fixed block size into
// [MinBlockSize, MaxBlockSize]; 0 is passed through untouched to mean
// "adaptive".
func clampFixedBlockSize(hint uint64) uint64 {
	if hint == 0 {
		return 0
	}
	if hint < MinBlockSize {
		return MinBlockSize
	}
	if hint > MaxBlockSize {
		return MaxBlockSize
	}
	return hint
}

// Manifest returns the transfer_info the portal sends to the peer when
// this side is the source (server→client push or client→server's own
// advertised manifest).
func (s *Source) Manifest() wire.BasicTransferInfo {
	return s.info
}

// TotalSize returns the sum of every file's declared size.
func (s *Source) TotalSize() uint64 {
	return s.totalSize
}

// TransferredSize returns bytes sent so far across every channel.
func (s *Source) TransferredSize() uint64 {
	return s.progress.transferredSize()
}

// Close releases every open file handle. Safe to call once; callers are
// expected to call it exactly once from the owning client-instance's
// teardown.
func (s *Source) Close() {
	for _, f := range s.files {
		f.handle.Close()
	}
}

// InvokeChannel runs one channel connection's send loop: for every file,
// atomically claim successive byte ranges via fetch-add on that file's
// cursor and sendfile them out, until every file is exhausted, then emit
// the end-of-stream sentinel exactly once. No lock is held across a
// sendfile call; the partition invariant rests entirely on the fetch-add.
func (s *Source) InvokeChannel(conn *xsocket.Conn) error {
	adaptive := s.blockSize == 0
	current := s.blockSize
	if adaptive {
		current = initialBlockSize
	}

	for fileIndex, f := range s.files {
		for {
			blockLen := current
			offset := f.nextOffset.Add(blockLen) - blockLen
			if offset >= f.size {
				break
			}
			if remaining := f.size - offset; blockLen > remaining {
				blockLen = remaining
			}

			hdr := wire.BlockHeader{Offset: offset, BlockSize: uint32(blockLen), FileIndex: uint32(fileIndex)}

			started := time.Now()
			if err := wire.WriteBlockHeader(conn.Raw(), hdr); err != nil {
				return fmt.Errorf("transfer: writing block header: %w", err)
			}
			sent, err := conn.SendFile(f.handle, int64(offset), int64(blockLen))
			if err != nil {
				return fmt.Errorf("transfer: sendfile %s@%d+%d: %w", f.relativePath, offset, blockLen, err)
			}
			if uint64(sent) != blockLen {
				return fmt.Errorf("transfer: short sendfile on %s: wrote %d of %d", f.relativePath, sent, blockLen)
			}
			elapsed := time.Since(started)

			if adaptive {
				current = adjustBlockSize(current, elapsed.Microseconds())
			}
			s.progress.add(blockLen)
		}
	}

	if err := wire.WriteBlockHeader(conn.Raw(), wire.EndOfStream()); err != nil {
		return fmt.Errorf("transfer: writing end-of-stream sentinel: %w", err)
	}
	return nil
}

// InvokePortal waits for the destination's finished message on the portal
// connection and reports success/failure accordingly; any non-zero
// error_code fails the transfer (spec.md §9 open-question resolution).
func (s *Source) InvokePortal(conn *xsocket.Conn) error {
	payload, err := wire.ReadExpectedFrame(conn.Raw(), wire.MsgTransferDestinationFin)
	if err != nil {
		return fmt.Errorf("transfer: reading destination-finished message: %w", err)
	}

	msg, err := wire.DecodeTransferDestinationFinished(payload)
	if err != nil {
		return fmt.Errorf("transfer: decoding destination-finished message: %w", err)
	}
	if !msg.Success() {
		return fmt.Errorf("transfer: destination reported error %d: %s", msg.ErrorCode, msg.ErrorMessage)
	}
	return nil
}

func errNotRecursive(path string) error {
	return xerr.Wrap(xerr.KindTransferLogic, syscall.ENOSYS, "transfer: "+path+" is a directory, recursive transfer was not requested").WithCode(int32(syscall.ENOSYS))
}

func errUnsupportedFileType(path string) error {
	return xerr.Wrap(xerr.KindTransferLogic, syscall.ENOSYS, "transfer: "+path+" is not a regular file or directory").WithCode(int32(syscall.ENOSYS))
}
