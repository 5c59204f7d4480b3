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

package volume

import (
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/mossarchive/go7z/errs"
)

// Source presents N physical volume files (or one single-file archive) as
// a random-access byte range [0, Size()).
type Source struct {
	fs    afero.Fs
	files []afero.File
	sizes []int64
	total int64
}

// OpenSource opens base as a single-file archive if <base>.001 doesn't
// exist, else opens <base>.001, <base>.002, ... in ascending order, failing
// on the first gap past .001.
func OpenSource(fs afero.Fs, base string) (*Source, error) {
	firstVolume := Name(base, 1)
	if exists, err := afero.Exists(fs, firstVolume); err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", errs.ErrOpenFailed, firstVolume, err)
	} else if !exists {
		return openSingleFile(fs, base)
	}
	return openSplitVolumes(fs, base)
}

func openSingleFile(fs afero.Fs, base string) (*Source, error) {
	f, err := fs.Open(base)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", errs.ErrOpenFailed, base, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", errs.ErrOpenFailed, base, err)
	}
	return &Source{fs: fs, files: []afero.File{f}, sizes: []int64{info.Size()}, total: info.Size()}, nil
}

func openSplitVolumes(fs afero.Fs, base string) (*Source, error) {
	src := &Source{fs: fs}
	for index := 1; index <= MaxVolumes; index++ {
		name := Name(base, index)
		exists, err := afero.Exists(fs, name)
		if err != nil {
			src.closeAll()
			return nil, fmt.Errorf("%w: stat %s: %w", errs.ErrOpenFailed, name, err)
		}
		if !exists {
			for later := index + 1; later <= MaxVolumes; later++ {
				if found, _ := afero.Exists(fs, Name(base, later)); found {
					src.closeAll()
					return nil, errs.New(errs.KindOpenFailed, fmt.Sprintf("volume %s missing before %s", name, Name(base, later)), nil)
				}
			}
			break
		}
		f, err := fs.Open(name)
		if err != nil {
			src.closeAll()
			return nil, fmt.Errorf("%w: open %s: %w", errs.ErrOpenFailed, name, err)
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			src.closeAll()
			return nil, fmt.Errorf("%w: stat %s: %w", errs.ErrOpenFailed, name, err)
		}
		src.files = append(src.files, f)
		src.sizes = append(src.sizes, info.Size())
		src.total += info.Size()
	}
	if len(src.files) == 0 {
		return nil, errs.New(errs.KindOpenFailed, "no volumes found for "+base, nil)
	}
	return src, nil
}

func (s *Source) closeAll() {
	for _, f := range s.files {
		_ = f.Close()
	}
}

// Size returns the total logical size across every volume.
func (s *Source) Size() int64 {
	return s.total
}

// ReadAt reads len(p) bytes starting at logical offset off, spanning
// volumes as needed. Implements io.ReaderAt.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > s.total {
		return 0, fmt.Errorf("%w: offset %d out of range", errs.ErrIORead, off)
	}

	volIndex, volOffset := s.locate(off)
	read := 0
	for read < len(p) && volIndex < len(s.files) {
		f := s.files[volIndex]
		n, err := f.ReadAt(p[read:], volOffset)
		read += n
		if err != nil && err != io.EOF {
			return read, fmt.Errorf("%w: read volume %d: %w", errs.ErrIORead, volIndex+1, err)
		}
		if read >= len(p) {
			break
		}
		volIndex++
		volOffset = 0
	}
	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

// locate returns the volume index and in-volume offset for a logical
// offset.
func (s *Source) locate(off int64) (int, int64) {
	for i, size := range s.sizes {
		if off < size {
			return i, off
		}
		off -= size
	}
	return len(s.sizes), 0
}

// Close releases every open volume handle, in ascending index order.
func (s *Source) Close() error {
	var first error
	for _, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = fmt.Errorf("%w: close volume: %w", errs.ErrIORead, err)
		}
	}
	return first
}
