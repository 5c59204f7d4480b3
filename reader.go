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

package go7z

import (
	"fmt"
	"hash/crc32"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/mossarchive/go7z/codec"
	"github.com/mossarchive/go7z/errs"
	"github.com/mossarchive/go7z/header"
	"github.com/mossarchive/go7z/internal/logx"
	"github.com/mossarchive/go7z/model"
	"github.com/mossarchive/go7z/volume"
)

// openParsed is the shared open -> verify signature -> load header ->
// parse header sequence used by ListArchive, ExtractArchive and
// TestArchive alike.
func openParsed(fs afero.Fs, inputPath string) (*volume.Source, *model.FileList, model.Folder, error) {
	src, err := volume.OpenSource(fs, inputPath)
	if err != nil {
		return nil, nil, model.Folder{}, err
	}

	tuple, err := header.ReadTuple(src)
	if err != nil {
		_ = src.Close()
		return nil, nil, model.Folder{}, err
	}

	headerBytes, err := header.ReadHeaderBlock(src, tuple)
	if err != nil {
		_ = src.Close()
		return nil, nil, model.Folder{}, err
	}

	fl, folder, err := header.Parse(headerBytes)
	if err != nil {
		_ = src.Close()
		return nil, nil, model.Folder{}, err
	}

	return src, fl, folder, nil
}

// ListArchive parses inputPath's Header Block and returns its FileList
// without touching the packed stream. password is accepted for interface
// symmetry with ExtractArchive/TestArchive but is not required to list an
// unencrypted archive's metadata.
func ListArchive(fs afero.Fs, inputPath string, password string) (*model.FileList, error) {
	_ = password
	lastError.Clear()
	src, fl, _, err := openParsed(fs, inputPath)
	if err != nil {
		lastError.SetFromError(err)
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return fl, nil
}

// ExtractArchive decodes every file in inputPath and writes it under
// outputDir, verifying each file's CRC32 as it is written. Directories
// are created in place.
func ExtractArchive(fs afero.Fs, inputPath, outputDir string, password string, progress Progress, log *logx.Logger) error {
	lastError.Clear()
	err := runExtractLoop(fs, inputPath, outputDir, password, progress, log, false)
	lastError.SetFromError(err)
	return err
}

// TestArchive runs the same decode-and-CRC-verify loop as ExtractArchive
// but discards the decoded bytes.
func TestArchive(fs afero.Fs, inputPath string, password string, progress Progress, log *logx.Logger) error {
	lastError.Clear()
	err := runExtractLoop(fs, inputPath, "", password, progress, log, true)
	lastError.SetFromError(err)
	return err
}

func runExtractLoop(fs afero.Fs, inputPath, outputDir, password string, progress Progress, log *logx.Logger, discard bool) error {
	log = logx.OrDiscard(log)
	if password != "" {
		return errs.New(errs.KindUnsupported, "extract archive: encrypted archives are not supported", nil)
	}

	src, fl, folder, err := openParsed(fs, inputPath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	packOffset := int64(header.SignatureHeaderSize)
	packedRegion := io.NewSectionReader(src, packOffset, int64(folder.PackSize))

	dec, err := codec.NewDecoder(folder.Coder.MethodName(), packedRegion, folder.PropertyByte)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrUnsupported, err)
	}

	bytesTotal := int64(fl.TotalUncompressedSize())
	var bytesDone int64
	buf := make([]byte, 1<<20)

	for i := range fl.Entries {
		entry := &fl.Entries[i]

		if entry.IsDirectory {
			if !discard {
				if err := fs.MkdirAll(filepath.Join(outputDir, filepath.FromSlash(entry.Name)), 0o755); err != nil {
					return fmt.Errorf("%w: create directory %s: %w", errs.ErrOpenFailed, entry.Name, err)
				}
			}
			continue
		}

		var out io.Writer = io.Discard
		var outFile afero.File
		if !discard {
			destPath := filepath.Join(outputDir, filepath.FromSlash(entry.Name))
			if err := fs.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				return fmt.Errorf("%w: create parent dirs for %s: %w", errs.ErrOpenFailed, entry.Name, err)
			}
			f, err := fs.Create(destPath)
			if err != nil {
				return fmt.Errorf("%w: create %s: %w", errs.ErrOpenFailed, destPath, err)
			}
			outFile = f
			out = f
		}

		hash := uint32(0)
		remaining := int64(entry.UncompressedSize)
		var fileDone int64
		for remaining > 0 {
			n := len(buf)
			if int64(n) > remaining {
				n = int(remaining)
			}
			read, readErr := io.ReadFull(dec, buf[:n])
			if read > 0 {
				hash = crc32.Update(hash, crc32.IEEETable, buf[:read])
				if _, werr := out.Write(buf[:read]); werr != nil {
					if outFile != nil {
						_ = outFile.Close()
					}
					return fmt.Errorf("%w: write %s: %w", errs.ErrIOWrite, entry.Name, werr)
				}
				remaining -= int64(read)
				bytesDone += int64(read)
				fileDone += int64(read)
			}
			if readErr != nil {
				if outFile != nil {
					_ = outFile.Close()
				}
				return fmt.Errorf("%w: decode %s: %w", errs.ErrCorruptData, entry.Name, readErr)
			}
			if progress != nil && progress(bytesDone, bytesTotal, fileDone, int64(entry.UncompressedSize), entry.Name) {
				if outFile != nil {
					_ = outFile.Close()
				}
				return errs.New(errs.KindCanceled, "extract archive: caller canceled", nil)
			}
		}

		if outFile != nil {
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("%w: close %s: %w", errs.ErrIOWrite, entry.Name, err)
			}
		}

		if hash != entry.CRC32 {
			return errs.New(errs.KindCorruptData, fmt.Sprintf("crc mismatch for %s", entry.Name), nil).WithFile(entry.Name)
		}
		log.Debug("go7z: extracted file", logx.F("name", entry.Name), logx.F("size", entry.UncompressedSize))
	}

	return nil
}
