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

// BasicDirectoryInfo is one directory entry in a transfer manifest.
type BasicDirectoryInfo struct {
	RelativePath string
	PosixPerm    uint16
}

func (d BasicDirectoryInfo) encode(w *Writer) {
	w.String(d.RelativePath)
	w.Uint32(uint32(d.PosixPerm))
}

func decodeBasicDirectoryInfo(r *Reader) (BasicDirectoryInfo, error) {
	var d BasicDirectoryInfo
	var err error

	d.RelativePath, err = r.String()
	if err != nil {
		return d, fmt.Errorf("wire: decoding directory_info.relative_path: %w", err)
	}
	perm, err := r.Uint32()
	if err != nil {
		return d, fmt.Errorf("wire: decoding directory_info.posix_perm: %w", err)
	}
	d.PosixPerm = uint16(perm)
	return d, nil
}

// BasicFileInfo is one regular-file entry in a transfer manifest.
// PosixPerm == 0 means "use the default 0644".
type BasicFileInfo struct {
	RelativePath string
	Size         uint64
	PosixPerm    uint16
}

func (f BasicFileInfo) encode(w *Writer) {
	w.String(f.RelativePath)
	w.Uint64(f.Size)
	w.Uint32(uint32(f.PosixPerm))
}

func decodeBasicFileInfo(r *Reader) (BasicFileInfo, error) {
	var f BasicFileInfo
	var err error

	f.RelativePath, err = r.String()
	if err != nil {
		return f, fmt.Errorf("wire: decoding file_info.relative_path: %w", err)
	}
	f.Size, err = r.Uint64()
	if err != nil {
		return f, fmt.Errorf("wire: decoding file_info.size: %w", err)
	}
	perm, err := r.Uint32()
	if err != nil {
		return f, fmt.Errorf("wire: decoding file_info.posix_perm: %w", err)
	}
	f.PosixPerm = uint16(perm)
	return f, nil
}

// BasicTransferInfo is the manifest of a transfer: whether the root is a
// directory, every directory entry (root first, when SourceIsDirectory),
// and every regular file entry, all with relative paths rooted at the
// transfer root.
type BasicTransferInfo struct {
	SourceIsDirectory bool
	DirsInfo          []BasicDirectoryInfo
	FilesInfo         []BasicFileInfo
}

// TotalBytes sums every file's declared size.
func (t BasicTransferInfo) TotalBytes() uint64 {
	var total uint64
	for _, f := range t.FilesInfo {
		total += f.Size
	}
	return total
}

func (t BasicTransferInfo) encode(w *Writer) {
	w.Bool(t.SourceIsDirectory)
	w.SequenceHeader(len(t.DirsInfo))
	for _, d := range t.DirsInfo {
		d.encode(w)
	}
	w.SequenceHeader(len(t.FilesInfo))
	for _, f := range t.FilesInfo {
		f.encode(w)
	}
}

func decodeBasicTransferInfo(r *Reader) (BasicTransferInfo, error) {
	var t BasicTransferInfo
	var err error

	t.SourceIsDirectory, err = r.Bool()
	if err != nil {
		return t, fmt.Errorf("wire: decoding transfer_info.source_is_directory: %w", err)
	}

	nDirs, err := r.SequenceHeader()
	if err != nil {
		return t, fmt.Errorf("wire: decoding transfer_info.dirs_info header: %w", err)
	}
	t.DirsInfo = make([]BasicDirectoryInfo, nDirs)
	for i := 0; i < nDirs; i++ {
		t.DirsInfo[i], err = decodeBasicDirectoryInfo(r)
		if err != nil {
			return t, fmt.Errorf("wire: decoding transfer_info.dirs_info[%d]: %w", i, err)
		}
	}

	nFiles, err := r.SequenceHeader()
	if err != nil {
		return t, fmt.Errorf("wire: decoding transfer_info.files_info header: %w", err)
	}
	t.FilesInfo = make([]BasicFileInfo, nFiles)
	for i := 0; i < nFiles; i++ {
		t.FilesInfo[i], err = decodeBasicFileInfo(r)
		if err != nil {
			return t, fmt.Errorf("wire: decoding transfer_info.files_info[%d]: %w", i, err)
		}
	}

	return t, nil
}

func (w *Writer) optionalTransferInfo(t *BasicTransferInfo) *Writer {
	if t == nil {
		return w.Bool(false)
	}
	w.Bool(true)
	t.encode(w)
	return w
}

func (r *Reader) optionalTransferInfo() (*BasicTransferInfo, error) {
	present, err := r.Bool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	t, err := decodeBasicTransferInfo(r)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UserIdentity names the local account a server_path should be resolved
// against. Any field may be empty; domain/SID only ever apply to Windows
// peers and are carried for wire compatibility.
type UserIdentity struct {
	UserName       string
	DomainUserName string
	UserSID        string
}

func (u UserIdentity) encode(w *Writer) {
	w.String(u.UserName)
	w.String(u.DomainUserName)
	w.String(u.UserSID)
}

func decodeUserIdentity(r *Reader) (UserIdentity, error) {
	var u UserIdentity
	var err error

	u.UserName, err = r.String()
	if err != nil {
		return u, fmt.Errorf("wire: decoding user.user_name: %w", err)
	}
	u.DomainUserName, err = r.String()
	if err != nil {
		return u, fmt.Errorf("wire: decoding user.domain_user_name: %w", err)
	}
	u.UserSID, err = r.String()
	if err != nil {
		return u, fmt.Errorf("wire: decoding user.user_sid: %w", err)
	}
	return u, nil
}
