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

// Package model holds the data types shared by the scanner, pipeline,
// header builder and archive reader: the ordered file list an archive is
// built from or decoded into.
package model

import "time"

// windowsEpochOffset is the number of 100ns ticks between the Windows
// FILETIME epoch (1601-01-01 UTC) and the Unix epoch (1970-01-01 UTC).
const windowsEpochOffset = 116444736000000000

// FileEntry describes one file or directory in an archive's ordered file
// list. Its position in a FileList is significant: the writer, the pipeline
// and the reader all agree on a single stable ordering.
type FileEntry struct {
	// Name is the archive-relative path, using "/" as the separator
	// regardless of host OS. It is stored on disk as UTF-16LE,
	// null-terminated.
	Name string

	// IsDirectory marks an entry that contributes no bytes to the packed
	// stream.
	IsDirectory bool

	// UncompressedSize is the entry's size in bytes; always 0 for
	// directories.
	UncompressedSize uint64

	// ModTime is the entry's modification time.
	ModTime time.Time

	// Attributes holds file-system attribute bits; the low 16 bits are
	// Windows-style (FILE_ATTRIBUTE_*), higher bits are reserved.
	Attributes uint32

	// CRC32 is the IEEE CRC-32 of the entry's uncompressed bytes.
	// Undefined (and ignored) for directories.
	CRC32 uint32
}

// FileTime converts ModTime to a 7z/Windows FILETIME: the count of 100ns
// ticks since 1601-01-01 UTC.
func (e FileEntry) FileTime() uint64 {
	return uint64(e.ModTime.UTC().UnixNano()/100) + windowsEpochOffset
}

// FileEntryFromFileTime converts a 7z FILETIME value into a UTC time.Time.
func FileEntryFromFileTime(ft uint64) time.Time {
	unixNano := (int64(ft) - windowsEpochOffset) * 100
	return time.Unix(0, unixNano).UTC()
}

// FileList is an ordered sequence of FileEntry. Order is stable from scan
// through encode through decode.
type FileList struct {
	Entries []FileEntry
}

// Len returns the number of entries.
func (fl *FileList) Len() int {
	return len(fl.Entries)
}

// Append adds an entry to the end of the list.
func (fl *FileList) Append(e FileEntry) {
	fl.Entries = append(fl.Entries, e)
}

// TotalUncompressedSize sums UncompressedSize over every non-directory
// entry. Used as the bytes_total argument of progress callbacks.
func (fl *FileList) TotalUncompressedSize() uint64 {
	var total uint64
	for _, e := range fl.Entries {
		if !e.IsDirectory {
			total += e.UncompressedSize
		}
	}
	return total
}

// NonDirectoryCount returns the number of entries that contribute bytes to
// the packed stream.
func (fl *FileList) NonDirectoryCount() int {
	n := 0
	for _, e := range fl.Entries {
		if !e.IsDirectory {
			n++
		}
	}
	return n
}

// Coder identifies the compression method applied to a Folder's packed
// stream.
type Coder int

const (
	// CoderLZMA2 is the LZMA2 coder, 7z method ID 0x21.
	CoderLZMA2 Coder = iota
	// CoderCopy is the identity coder, 7z method ID 0x00.
	CoderCopy
)

// MethodName returns the codec package's coder name string for c ("lzma2"
// or "copy"), the form codec.NewEncoder/NewDecoder expect.
func (c Coder) MethodName() string {
	if c == CoderCopy {
		return "copy"
	}
	return "lzma2"
}

// Folder describes the single coder pipeline applied to one packed stream.
// This module's supported subset always has exactly one coder and exactly
// one packed stream per Folder.
type Folder struct {
	Coder Coder

	// PropertyByte is the single LZMA2 property byte (dictionary size
	// exponent). Unused for Copy.
	PropertyByte byte

	// UnpackSize is the sum of the sizes of every entry this Folder
	// produced.
	UnpackSize uint64

	// PackSize is the size in bytes of the folder's packed stream.
	PackSize uint64
}
