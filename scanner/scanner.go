// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go7z.
//
// go7z is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go7z is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go7z.  If not, see <https://www.gnu.org/licenses/>.

// Package scanner walks a list of input paths and builds the ordered
// FileList a writer encodes. It is the only component that touches the
// host (or afero-backed) filesystem's directory structure directly.
package scanner

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/mossarchive/go7z/errs"
	"github.com/mossarchive/go7z/model"
)

// Result is a scan's output: the ordered FileList the writer encodes, and
// the filesystem path each entry was read from (empty for directories,
// which contribute no bytes).
type Result struct {
	Files       *model.FileList
	SourcePaths []string
}

// Scan walks every entry of inputs (files or directories) and appends the
// FileEntry values it finds, in directory-iterator order, to an ordered
// FileList. A regular file input contributes one entry named by its last
// path segment; a directory input contributes an entry for itself plus one
// for every descendant, named by joining the directory's last segment with
// the descendant's path relative to it using "/" regardless of host OS.
// Symbolic links, devices and sockets are skipped. A stat failure on any
// visited path is fatal.
func Scan(fs afero.Fs, inputs []string) (*Result, error) {
	res := &Result{Files: &model.FileList{}}
	for _, input := range inputs {
		if err := scanOne(fs, res, input); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func scanOne(fs afero.Fs, res *Result, input string) error {
	info, err := statNoFollow(fs, input)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", errs.ErrOpenFailed, input, err)
	}

	top := filepath.Base(filepath.Clean(input))

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil
		}
		res.append(entryFromInfo(top, info), input)
		return nil
	}

	res.append(entryFromInfo(top, info), "")
	return scanDir(fs, res, input, top)
}

func (r *Result) append(e model.FileEntry, sourcePath string) {
	r.Files.Append(e)
	r.SourcePaths = append(r.SourcePaths, sourcePath)
}

// scanDir recursively walks dir (an already-visited directory whose own
// entry has been appended), appending descendants named relative to dir's
// archive name.
func scanDir(fs afero.Fs, res *Result, dir, archiveName string) error {
	d, err := fs.Open(dir)
	if err != nil {
		return fmt.Errorf("%w: read dir %s: %w", errs.ErrOpenFailed, dir, err)
	}
	entries, err := d.Readdir(-1)
	_ = d.Close()
	if err != nil {
		return fmt.Errorf("%w: read dir %s: %w", errs.ErrOpenFailed, dir, err)
	}

	for _, entry := range entries {
		childPath := filepath.Join(dir, entry.Name())
		childArchiveName := path.Join(archiveName, entry.Name())

		info, err := statNoFollow(fs, childPath)
		if err != nil {
			return fmt.Errorf("%w: stat %s: %w", errs.ErrOpenFailed, childPath, err)
		}

		if !info.Mode().IsRegular() && !info.IsDir() {
			// Symlink, device, socket, or other non-regular,
			// non-directory entry: skipped.
			continue
		}

		if info.IsDir() {
			res.append(entryFromInfo(childArchiveName, info), "")
			if err := scanDir(fs, res, childPath, childArchiveName); err != nil {
				return err
			}
			continue
		}

		res.append(entryFromInfo(childArchiveName, info), childPath)
	}
	return nil
}

// statNoFollow stats path without following a terminal symlink, so that a
// symlink itself (as opposed to its target) is what gets classified and
// skipped. Falls back to Stat on filesystems that don't implement Lstat.
func statNoFollow(fs afero.Fs, path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return fs.Stat(path)
}

func entryFromInfo(archiveName string, info os.FileInfo) model.FileEntry {
	e := model.FileEntry{
		Name:        archiveName,
		IsDirectory: info.IsDir(),
		ModTime:     info.ModTime(),
		Attributes:  attributesFromMode(info),
	}
	if !e.IsDirectory {
		e.UncompressedSize = uint64(info.Size())
	}
	return e
}

// Low-16-bit Windows FILE_ATTRIBUTE_* bits stored in the attribute
// bitmask.
const (
	fileAttributeDirectory = 0x10
	fileAttributeArchive   = 0x20
	fileAttributeReadonly  = 0x01
)

func attributesFromMode(info os.FileInfo) uint32 {
	var attrs uint32
	if info.IsDir() {
		attrs |= fileAttributeDirectory
	} else {
		attrs |= fileAttributeArchive
	}
	if info.Mode().Perm()&0o200 == 0 {
		attrs |= fileAttributeReadonly
	}
	return attrs
}
