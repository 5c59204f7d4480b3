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

// Sink presents N physical volume files as one logical, append-mostly
// stream with seek-back support for patching the Signature Header.
//
// write is free to span any number of underlying volumes; the next volume
// is opened lazily once the current one reaches MaxSize. If MaxSize is 0,
// the sink is a single file.
type Sink struct {
	fs      afero.Fs
	base    string
	maxSize int64 // 0 means unsplit

	files   []afero.File // files[0] is volume 1 (or the single file)
	cur     int          // index into files of the volume the cursor is in
	volOff  []int64      // current write offset within each opened volume
	volSize []int64      // high-water size of each opened volume
	pos     int64        // logical position across every volume
}

// NewSink creates a writer for base and opens its first volume (or the
// single output file when maxSize is 0).
func NewSink(fs afero.Fs, base string, maxSize int64) (*Sink, error) {
	if base == "" {
		return nil, errs.New(errs.KindInvalidParam, "volume sink: base path is empty", nil)
	}
	s := &Sink{fs: fs, base: base, maxSize: maxSize}
	if err := s.openVolume(0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) openVolume(index int) error {
	name := Name(s.base, volumeIndexToName(s.maxSize, index))
	f, err := s.fs.Create(name)
	if err != nil {
		return fmt.Errorf("%w: create volume %s: %w", errs.ErrOpenFailed, name, err)
	}
	s.files = append(s.files, f)
	s.volOff = append(s.volOff, 0)
	s.volSize = append(s.volSize, 0)
	return nil
}

// volumeIndexToName maps a 0-based volume index to the 1-based suffix used
// in filenames, or 0 (meaning "no suffix") when the sink is unsplit.
func volumeIndexToName(maxSize int64, index int) int {
	if maxSize == 0 {
		return 0
	}
	return index + 1
}

// Write implements io.Writer, spanning volumes as needed. Writing after a
// SeekAbsolute overwrites in place; bytes only count toward a volume's size
// when the cursor extends past its previous high-water mark.
func (s *Sink) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		f := s.files[s.cur]
		room := len(p)
		if s.maxSize > 0 {
			remaining := s.maxSize - s.volOff[s.cur]
			if remaining <= 0 {
				if err := s.advanceVolume(); err != nil {
					return written, err
				}
				continue
			}
			if int64(room) > remaining {
				room = int(remaining)
			}
		}

		n, err := f.Write(p[:room])
		written += n
		s.pos += int64(n)
		s.volOff[s.cur] += int64(n)
		if s.volOff[s.cur] > s.volSize[s.cur] {
			s.volSize[s.cur] = s.volOff[s.cur]
		}
		p = p[n:]
		if err != nil {
			return written, fmt.Errorf("%w: write volume %d: %w", errs.ErrIOWrite, s.cur+1, err)
		}
		if n < room {
			return written, fmt.Errorf("%w: short write on volume %d", errs.ErrIOWrite, s.cur+1)
		}
	}
	return written, nil
}

func (s *Sink) advanceVolume() error {
	s.cur++
	if s.cur >= len(s.files) {
		if s.cur+1 > MaxVolumes {
			return errs.New(errs.KindUnsupported, "archive split into more than 999 volumes", nil)
		}
		if err := s.openVolume(s.cur); err != nil {
			return err
		}
	}
	s.volOff[s.cur] = 0
	if _, err := s.files[s.cur].Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek volume %d: %w", errs.ErrIOWrite, s.cur+1, err)
	}
	return nil
}

// Position returns the current logical offset across all volumes.
func (s *Sink) Position() int64 {
	return s.pos
}

// SeekAbsolute repositions the sink's write cursor to an absolute logical
// offset. Used only to patch the Signature Header, whose 32 bytes always
// live in volume 0/1.
func (s *Sink) SeekAbsolute(pos int64) error {
	offset := pos
	for i, size := range s.volSize {
		if offset <= size || i == len(s.volSize)-1 {
			f := s.files[i]
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				return fmt.Errorf("%w: seek volume %d: %w", errs.ErrIOWrite, i+1, err)
			}
			s.cur = i
			s.volOff[i] = offset
			s.pos = pos
			return nil
		}
		offset -= size
	}
	return errs.New(errs.KindInvalidParam, "seek position out of range", nil)
}

// Close syncs and releases volume handles in ascending index order.
func (s *Sink) Close() error {
	var first error
	for _, f := range s.files {
		if err := f.Sync(); err != nil && first == nil {
			first = fmt.Errorf("%w: sync volume: %w", errs.ErrIOWrite, err)
		}
		if err := f.Close(); err != nil && first == nil {
			first = fmt.Errorf("%w: close volume: %w", errs.ErrIOWrite, err)
		}
	}
	return first
}
