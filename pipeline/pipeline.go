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

// Package pipeline is the core of the writer: it turns a scanned FileList
// into one solid packed stream written to a Volume sink, filling in each
// entry's CRC32 and returning the folder descriptor the header builder
// needs.
package pipeline

import (
	"fmt"
	"hash/crc32"
	"io"

	"github.com/spf13/afero"

	"github.com/mossarchive/go7z/codec"
	"github.com/mossarchive/go7z/config"
	"github.com/mossarchive/go7z/errs"
	"github.com/mossarchive/go7z/internal/logx"
	"github.com/mossarchive/go7z/model"
)

// sampleSize is the amount of a first file's head the mode-selection
// heuristic samples.
const sampleSize = 64 * 1024

// largeInputThreshold is the total-input-size floor past which the
// incompressibility heuristic is consulted at all.
const largeInputThreshold = 1 << 20

// Progress is called after each chunk is pushed through the codec.
// Returning true requests cancellation; the pipeline stops at the next
// chunk boundary with errs.KindCanceled.
type Progress func(bytesDone, bytesTotal, fileBytesDone, fileBytesTotal int64, currentFile string) (cancel bool)

// Sink is the subset of volume.Sink the pipeline needs: an io.Writer with
// a logical position, used to compute pack_start/pack_size.
type Sink interface {
	io.Writer
	Position() int64
}

// Encode reads every non-directory entry of fl (via fs, using sourcePaths
// aligned by index) as one solid byte sequence, compresses it with the
// selected coder, writes the packed stream to sink, and fills
// in fl's per-entry CRC32 fields. It returns the Folder descriptor the
// header builder serializes.
func Encode(fs afero.Fs, fl *model.FileList, sourcePaths []string, opts config.Options, sink Sink, progress Progress, log *logx.Logger) (model.Folder, error) {
	log = logx.OrDiscard(log)
	opts = opts.Normalize()

	coderName, sample, err := selectMode(fs, fl, sourcePaths, opts)
	if err != nil {
		return model.Folder{}, err
	}
	log.Info("pipeline: mode selected", logx.F("coder", coderName))

	packStart := sink.Position()

	enc, err := codec.NewEncoder(coderName, sink, opts.DictSize)
	if err != nil {
		return model.Folder{}, fmt.Errorf("%w: %w", errs.ErrUnsupported, err)
	}

	stream := newSolidStream(fs, fl, sourcePaths)
	var unpackSize uint64
	bytesTotal := int64(fl.TotalUncompressedSize())
	var bytesDone int64

	chunk := make([]byte, opts.ChunkSize)

	// The mode-selection sample was already consumed from the first
	// file's head; feed it through before continuing the stream so no
	// bytes are lost and that file's CRC still covers its full content.
	if len(sample) > 0 {
		if err := stream.prime(sample); err != nil {
			return model.Folder{}, err
		}
	}

	for {
		n, readErr := stream.Read(chunk)
		if n > 0 {
			if _, err := enc.Write(chunk[:n]); err != nil {
				return model.Folder{}, fmt.Errorf("%w: encode chunk: %w", errs.ErrIOWrite, err)
			}
			unpackSize += uint64(n)
			bytesDone += int64(n)
			curName, curDone, curTotal := stream.currentFileProgress()
			if progress != nil && progress(bytesDone, bytesTotal, curDone, curTotal, curName) {
				return model.Folder{}, errs.New(errs.KindCanceled, "pipeline: caller canceled", nil)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return model.Folder{}, fmt.Errorf("%w: read source: %w", errs.ErrIORead, readErr)
		}
	}

	if err := enc.Close(); err != nil {
		return model.Folder{}, fmt.Errorf("%w: finalize encoder: %w", errs.ErrIOWrite, err)
	}

	packSize := uint64(sink.Position() - packStart)

	folder := model.Folder{
		UnpackSize: unpackSize,
		PackSize:   packSize,
	}
	if coderName == "copy" {
		folder.Coder = model.CoderCopy
	} else {
		folder.Coder = model.CoderLZMA2
		folder.PropertyByte = enc.PropertyByte()
	}
	return folder, nil
}

// selectMode implements the deterministic coder choice: Store level
// always picks Copy; otherwise large inputs are probed on the first file's
// head. The sample bytes read off that first file are returned so the
// caller can feed them back into the stream instead of re-reading them.
func selectMode(fs afero.Fs, fl *model.FileList, sourcePaths []string, opts config.Options) (coderName string, sample []byte, err error) {
	if opts.Level == config.Store {
		return "copy", nil, nil
	}

	total := fl.TotalUncompressedSize()
	if total <= largeInputThreshold {
		return "lzma2", nil, nil
	}

	firstPath := firstNonDirectorySource(fl, sourcePaths)
	if firstPath == "" {
		return "lzma2", nil, nil
	}

	f, err := fs.Open(firstPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: open %s for mode probe: %w", errs.ErrOpenFailed, firstPath, err)
	}
	defer f.Close()

	sample = make([]byte, sampleSize)
	n, readErr := io.ReadFull(f, sample)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return "", nil, fmt.Errorf("%w: probe %s: %w", errs.ErrIORead, firstPath, readErr)
	}
	sample = sample[:n]

	if codec.LooksIncompressible(sample) {
		return "copy", sample, nil
	}
	if opts.DeepProbe && opts.Level >= config.Normal {
		incompressible, err := codec.DeepProbe(sample)
		if err == nil && incompressible {
			return "copy", sample, nil
		}
	}
	return "lzma2", sample, nil
}

func firstNonDirectorySource(fl *model.FileList, sourcePaths []string) string {
	for i, e := range fl.Entries {
		if !e.IsDirectory {
			return sourcePaths[i]
		}
	}
	return ""
}

// solidStream presents every non-directory entry's bytes, in FileList
// order, as a single io.Reader, filling in fl.Entries[i].CRC32 as each
// file's bytes finish passing through.
type solidStream struct {
	fs          afero.Fs
	fl          *model.FileList
	sourcePaths []string

	primed   []byte // bytes already consumed by mode selection, replayed first
	order    []int  // indices into fl.Entries of non-directory files, in order
	pos      int    // position within order
	cur      afero.File
	curHash  uint32
	curEntry int
	curDone  int64
	curName  string
}

func newSolidStream(fs afero.Fs, fl *model.FileList, sourcePaths []string) *solidStream {
	var order []int
	for i, e := range fl.Entries {
		if !e.IsDirectory {
			order = append(order, i)
		}
	}
	return &solidStream{fs: fs, fl: fl, sourcePaths: sourcePaths, order: order}
}

// prime seeds the stream with bytes the caller already consumed from the
// first file via a separate Open/Read, so Read() replays them (continuing
// to accumulate that file's CRC) before touching the filesystem again.
func (s *solidStream) prime(sample []byte) error {
	if len(s.order) == 0 {
		return nil
	}
	s.curEntry = s.order[0]
	s.curHash = crc32.Update(0, crc32.IEEETable, sample)
	s.curDone = int64(len(sample))
	s.curName = s.fl.Entries[s.curEntry].Name
	s.primed = sample
	s.pos = 0

	f, err := s.fs.Open(s.sourcePaths[s.curEntry])
	if err != nil {
		return fmt.Errorf("%w: reopen %s: %w", errs.ErrOpenFailed, s.sourcePaths[s.curEntry], err)
	}
	if _, err := f.Seek(int64(len(sample)), io.SeekStart); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: seek %s: %w", errs.ErrIORead, s.sourcePaths[s.curEntry], err)
	}
	s.cur = f
	s.pos = 1 // first order entry already opened
	return nil
}

func (s *solidStream) currentFileProgress() (name string, done, total int64) {
	if s.cur == nil && len(s.primed) == 0 {
		return "", 0, 0
	}
	entry := s.fl.Entries[s.curEntry]
	return entry.Name, s.curDone, int64(entry.UncompressedSize)
}

func (s *solidStream) Read(p []byte) (int, error) {
	if len(s.primed) > 0 {
		n := copy(p, s.primed)
		s.primed = s.primed[n:]
		return n, nil
	}

	for {
		if s.cur == nil {
			if s.pos >= len(s.order) {
				return 0, io.EOF
			}
			s.curEntry = s.order[s.pos]
			s.pos++
			f, err := s.fs.Open(s.sourcePaths[s.curEntry])
			if err != nil {
				return 0, fmt.Errorf("%w: open %s: %w", errs.ErrOpenFailed, s.sourcePaths[s.curEntry], err)
			}
			s.cur = f
			s.curHash = 0
			s.curDone = 0
			s.curName = s.fl.Entries[s.curEntry].Name
		}

		n, err := s.cur.Read(p)
		if n > 0 {
			s.curHash = crc32.Update(s.curHash, crc32.IEEETable, p[:n])
			s.curDone += int64(n)
		}
		if err == io.EOF {
			s.fl.Entries[s.curEntry].CRC32 = s.curHash
			_ = s.cur.Close()
			s.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		if err != nil {
			return n, fmt.Errorf("%w: read %s: %w", errs.ErrIORead, s.sourcePaths[s.curEntry], err)
		}
		return n, nil
	}
}
