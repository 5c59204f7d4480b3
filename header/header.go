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

// Package header builds and parses the 7z Header Block: the nested
// property-ID TLV stream describing a Folder's coder, the per-file sizes
// and CRCs, and the FileList's names, mtimes and attributes. It also reads,
// writes and patches the 32-byte Signature Header at file offset 0.
package header

// 7z Header Block property IDs. Unlisted IDs encountered on read (e.g.
// 0x13 Comment) are skipped using their body_size, never interpreted.
const (
	idEnd              = 0x00
	idHeader           = 0x01
	idMainStreamsInfo  = 0x04
	idFilesInfo        = 0x05
	idPackInfo         = 0x06
	idUnpackInfo       = 0x07
	idSubStreamsInfo   = 0x08
	idPackSize         = 0x09
	idCRC              = 0x0A
	idFolder           = 0x0B
	idCodersUnpackSize = 0x0C
	idNumUnpackStream  = 0x0D
	idEmptyStream      = 0x0E
	idName             = 0x11
	idMTime            = 0x14
	idWinAttrib        = 0x15
)

// coderFlagsIsComplex and coderFlagsHasAttributes are the high-nibble bits
// of a coder's flags byte; the low nibble is the codec-ID length.
const (
	coderFlagsIsComplex     = 0x10
	coderFlagsHasAttributes = 0x20
)
