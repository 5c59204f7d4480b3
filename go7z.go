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

// Package go7z creates, lists, tests and extracts 7z archives. It wires
// the scanner, pipeline, header builder/reader, volume sink/source and
// codec packages into a write path (scan -> compress -> header -> patch
// signature) and a read path (signature -> header -> decode).
package go7z

import (
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/mossarchive/go7z/config"
	"github.com/mossarchive/go7z/errs"
	"github.com/mossarchive/go7z/header"
	"github.com/mossarchive/go7z/internal/logx"
	"github.com/mossarchive/go7z/pipeline"
	"github.com/mossarchive/go7z/scanner"
	"github.com/mossarchive/go7z/volume"
)

// Progress is the writer/reader progress callback; either total may be
// zero if unknown. Returning true requests cancellation.
type Progress = pipeline.Progress

// Result summarizes a completed CreateArchive call.
type Result struct {
	FilesWritten int
	BytesWritten int64 // total packed-stream bytes across every volume
}

// OptionsDefaults returns the canonical Options defaults.
func OptionsDefaults() config.Options {
	return config.OptionsDefaults()
}

// lastError records the first error of the most recent public operation.
// It is cleared on entry to CreateArchive, ListArchive, ExtractArchive and
// TestArchive.
var lastError errs.LastError

// LastErrorContext returns the error context recorded by the most recent
// public operation, if any failed since it started.
func LastErrorContext() (errs.Context, bool) {
	return lastError.Get()
}

// CreateArchive scans inputs, compresses them into a single solid folder
// and writes a complete 7z archive to outputPath (or a split sequence of
// volumes, per opts.SplitSize).
//
// A non-split archive is staged under a UUID-suffixed temporary name next
// to outputPath and renamed into place only once every byte, including
// the patched Signature Header, has been written and synced, so a
// caller never observes a partially written file at outputPath itself. A
// split archive's volumes are written directly to their final names,
// since a later volume's presence already signals an incomplete archive
// the same way a missing or truncated single file would; renaming N
// volumes atomically together buys nothing a single rename doesn't
// already buy for the unsplit case.
func CreateArchive(fs afero.Fs, outputPath string, inputs []string, opts config.Options, progress Progress, log *logx.Logger) (Result, error) {
	lastError.Clear()
	res, err := createArchive(fs, outputPath, inputs, opts, progress, log)
	lastError.SetFromError(err)
	return res, err
}

func createArchive(fs afero.Fs, outputPath string, inputs []string, opts config.Options, progress Progress, log *logx.Logger) (Result, error) {
	log = logx.OrDiscard(log)
	opts = opts.Normalize()

	if outputPath == "" {
		return Result{}, errs.New(errs.KindInvalidParam, "create archive: output path is empty", nil)
	}
	if len(inputs) == 0 {
		return Result{}, errs.New(errs.KindInvalidParam, "create archive: no inputs", nil)
	}
	if opts.Password != "" {
		return Result{}, errs.New(errs.KindUnsupported, "create archive: encrypted output is disabled until the salt-in-header layout is settled", nil)
	}

	scan, err := scanner.Scan(fs, inputs)
	if err != nil {
		return Result{}, err
	}
	log.Info("go7z: scanned inputs", logx.F("files", scan.Files.Len()))

	splitting := opts.SplitSize > 0
	writePath := outputPath
	if !splitting {
		writePath = outputPath + ".tmp-" + uuid.NewString()
	}

	sink, err := volume.NewSink(fs, writePath, opts.SplitSize)
	if err != nil {
		return Result{}, err
	}
	closeErr := func() {
		if cerr := sink.Close(); cerr != nil {
			log.Warn("go7z: close sink", logx.F("error", cerr))
		}
	}

	if _, err := sink.Write(header.Placeholder()); err != nil {
		closeErr()
		cleanupTemp(fs, splitting, writePath)
		return Result{}, err
	}

	folder, err := pipeline.Encode(fs, scan.Files, scan.SourcePaths, opts, sink, progress, log)
	if err != nil {
		closeErr()
		cleanupTemp(fs, splitting, writePath)
		return Result{}, err
	}

	headerBytes, err := header.Build(scan.Files, folder)
	if err != nil {
		closeErr()
		cleanupTemp(fs, splitting, writePath)
		return Result{}, err
	}
	if _, err := sink.Write(headerBytes); err != nil {
		closeErr()
		cleanupTemp(fs, splitting, writePath)
		return Result{}, fmt.Errorf("%w: write header block: %w", errs.ErrIOWrite, err)
	}

	tuple := header.SignatureTuple{
		NextHeaderOffset: folder.PackSize,
		NextHeaderSize:   uint64(len(headerBytes)),
		NextHeaderCRC:    headerCRC(headerBytes),
	}
	if err := header.Patch(sink, tuple); err != nil {
		closeErr()
		cleanupTemp(fs, splitting, writePath)
		return Result{}, err
	}

	if err := sink.Close(); err != nil {
		cleanupTemp(fs, splitting, writePath)
		return Result{}, err
	}

	if !splitting {
		if err := fs.Rename(writePath, outputPath); err != nil {
			return Result{}, fmt.Errorf("%w: rename staged archive into place: %w", errs.ErrIOWrite, err)
		}
	}

	return Result{
		FilesWritten: scan.Files.NonDirectoryCount(),
		BytesWritten: int64(folder.PackSize),
	}, nil
}

func cleanupTemp(fs afero.Fs, splitting bool, writePath string) {
	if splitting {
		return // partial volumes are left for the caller to clean up
	}
	_ = fs.Remove(writePath)
}

// headerCRC is the CRC32 the Signature Header's NextHeaderCRC field stores.
func headerCRC(headerBytes []byte) uint32 {
	return crc32.ChecksumIEEE(headerBytes)
}
