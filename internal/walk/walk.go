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

// Package walk enumerates a source tree the way transfer_source's directory
// preparation does: directories and regular files are collected with their
// path relative to the transfer root, permission-denied entries are
// skipped rather than aborting the whole transfer, dangling symlinks are
// skipped too, and anything else that isn't a directory, regular file, or
// symlink to one of those is rejected.
package walk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/wenbinhou/xcp/internal/xerr"
)

// EntryKind distinguishes the two kinds of entry a transfer manifest needs.
type EntryKind uint8

const (
	KindFile EntryKind = iota
	KindDir
)

// Entry is one path discovered under a transfer root.
type Entry struct {
	// RelativePath is relative to the root's parent, so it includes the
	// root directory's own name as its first component — this is what the
	// destination recreates the tree under.
	RelativePath string
	AbsPath      string
	Kind         EntryKind
	Mode         fs.FileMode
	Size         int64
}

// visited tracks the directories on the current descent path (the root
// down to the directory being read), compared with os.SameFile, so a
// symlink that loops back to an ancestor directory does not recurse
// forever.
type visited struct {
	infos []os.FileInfo
}

func (v *visited) seen(fi os.FileInfo) bool {
	for _, prior := range v.infos {
		if os.SameFile(prior, fi) {
			return true
		}
	}
	return false
}

func (v *visited) push(fi os.FileInfo) *visited {
	next := &visited{infos: make([]os.FileInfo, len(v.infos)+1)}
	copy(next.infos, v.infos)
	next.infos[len(v.infos)] = fi
	return next
}

// Dir walks root (a directory) and returns every directory and regular
// file beneath it, relative paths rooted at root's own base name.
func Dir(root string) ([]Entry, error) {
	base := filepath.Base(filepath.Clean(root))

	rootInfo, err := os.Lstat(root)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindFilesystem, err, "walk: stat root")
	}

	var entries []Entry
	entries = append(entries, Entry{RelativePath: base, AbsPath: root, Kind: KindDir, Mode: rootInfo.Mode().Perm()})

	if err := walkInto(root, base, (&visited{}).push(rootInfo), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func walkInto(dir, relDir string, seen *visited, entries *[]Entry) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil
		}
		return xerr.Wrap(xerr.KindFilesystem, err, "walk: reading directory "+dir)
	}

	for _, child := range children {
		absPath := filepath.Join(dir, child.Name())
		relPath := filepath.Join(relDir, child.Name())

		info, err := os.Stat(absPath)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				continue
			}
			if errors.Is(err, fs.ErrNotExist) {
				// Broken symlink: skip rather than abort the transfer.
				continue
			}
			return xerr.Wrap(xerr.KindFilesystem, err, "walk: stat "+absPath)
		}

		switch {
		case info.IsDir():
			if seen.seen(info) {
				continue
			}
			*entries = append(*entries, Entry{RelativePath: relPath, AbsPath: absPath, Kind: KindDir, Mode: info.Mode().Perm()})
			if err := walkInto(absPath, relPath, seen.push(info), entries); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			*entries = append(*entries, Entry{RelativePath: relPath, AbsPath: absPath, Kind: KindFile, Mode: info.Mode().Perm(), Size: info.Size()})
		default:
			return xerr.Wrap(xerr.KindTransferLogic, syscall.ENOSYS, "walk: cannot transfer special file: "+absPath).WithCode(int32(syscall.ENOSYS))
		}
	}
	return nil
}
