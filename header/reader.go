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

package header

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mossarchive/go7z/errs"
	"github.com/mossarchive/go7z/internal/varint"
	"github.com/mossarchive/go7z/model"
)

// cursor is a small sequential reader over the header byte slice, used by
// every Parse* helper below. It implements io.ByteReader so varint.Decode
// can read directly from it.
type cursor struct {
	r *bytes.Reader
}

func newCursor(b []byte) *cursor {
	return &cursor{r: bytes.NewReader(b)}
}

func (c *cursor) ReadByte() (byte, error) {
	return c.r.ReadByte()
}

func (c *cursor) expectByte(want byte, context string) error {
	got, err := c.r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errs.ErrCorruptArchive, context, err)
	}
	if got != want {
		return errs.New(errs.KindCorruptArchive, fmt.Sprintf("%s: expected property id 0x%02X, got 0x%02X", context, want, got), nil)
	}
	return nil
}

func (c *cursor) readVarint(context string) (uint64, error) {
	v, _, err := varint.Decode(c)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errs.ErrCorruptArchive, context, err)
	}
	return v, nil
}

func (c *cursor) readBytes(n uint64, context string) ([]byte, error) {
	if n > uint64(c.r.Len()) {
		return nil, errs.New(errs.KindCorruptArchive, fmt.Sprintf("%s: %d bytes declared, %d remain", context, n, c.r.Len()), nil)
	}
	buf := make([]byte, n)
	if _, err := c.r.Read(buf); err != nil && n > 0 {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrCorruptArchive, context, err)
	}
	return buf, nil
}

// Parse decodes the Header Block produced by Build, reconstructing the
// FileList (names, mtimes, attributes, sizes, CRCs, is_directory) and the
// single Folder descriptor.
func Parse(b []byte) (*model.FileList, model.Folder, error) {
	c := newCursor(b)

	if err := c.expectByte(idHeader, "header"); err != nil {
		return nil, model.Folder{}, err
	}

	folder, sizes, crcs, err := parseMainStreamsInfo(c)
	if err != nil {
		return nil, model.Folder{}, err
	}

	fl, err := parseFilesInfo(c, len(sizes))
	if err != nil {
		return nil, model.Folder{}, err
	}

	if err := assignSizesAndCRCs(fl, sizes, crcs); err != nil {
		return nil, model.Folder{}, err
	}

	if _, err := c.r.ReadByte(); err != nil {
		return nil, model.Folder{}, fmt.Errorf("%w: header end marker: %w", errs.ErrCorruptArchive, err)
	}

	return fl, folder, nil
}

func parseMainStreamsInfo(c *cursor) (model.Folder, []uint64, []uint32, error) {
	if err := c.expectByte(idMainStreamsInfo, "MainStreamsInfo"); err != nil {
		return model.Folder{}, nil, nil, err
	}

	packSize, err := parsePackInfo(c)
	if err != nil {
		return model.Folder{}, nil, nil, err
	}

	folder, err := parseUnpackInfo(c)
	if err != nil {
		return model.Folder{}, nil, nil, err
	}
	folder.PackSize = packSize

	sizes, crcs, err := parseSubStreamsInfo(c, folder.UnpackSize)
	if err != nil {
		return model.Folder{}, nil, nil, err
	}

	if err := c.expectByte(idEnd, "MainStreamsInfo end"); err != nil {
		return model.Folder{}, nil, nil, err
	}
	return folder, sizes, crcs, nil
}

func parsePackInfo(c *cursor) (uint64, error) {
	if err := c.expectByte(idPackInfo, "PackInfo"); err != nil {
		return 0, err
	}
	if _, err := c.readVarint("pack_offset"); err != nil {
		return 0, err
	}
	if _, err := c.readVarint("num_pack_streams"); err != nil {
		return 0, err
	}
	if err := c.expectByte(idPackSize, "PackInfo pack size"); err != nil {
		return 0, err
	}
	packSize, err := c.readVarint("pack_size")
	if err != nil {
		return 0, err
	}
	if err := c.expectByte(idEnd, "PackInfo end"); err != nil {
		return 0, err
	}
	return packSize, nil
}

func parseUnpackInfo(c *cursor) (model.Folder, error) {
	if err := c.expectByte(idUnpackInfo, "UnpackInfo"); err != nil {
		return model.Folder{}, err
	}
	if err := c.expectByte(idFolder, "Folder group"); err != nil {
		return model.Folder{}, err
	}
	if _, err := c.readVarint("num_folders"); err != nil {
		return model.Folder{}, err
	}
	if _, err := c.r.ReadByte(); err != nil { // inline/external marker
		return model.Folder{}, fmt.Errorf("%w: folder inline marker: %w", errs.ErrCorruptArchive, err)
	}
	if _, err := c.readVarint("num_coders"); err != nil {
		return model.Folder{}, err
	}

	folder, err := parseCoderSpec(c)
	if err != nil {
		return model.Folder{}, err
	}

	if err := c.expectByte(idCodersUnpackSize, "CodersUnpackSize"); err != nil {
		return model.Folder{}, err
	}
	unpackSize, err := c.readVarint("total_unpack_size")
	if err != nil {
		return model.Folder{}, err
	}
	folder.UnpackSize = unpackSize

	if err := c.expectByte(idEnd, "UnpackInfo end"); err != nil {
		return model.Folder{}, err
	}
	return folder, nil
}

func parseCoderSpec(c *cursor) (model.Folder, error) {
	flags, err := c.r.ReadByte()
	if err != nil {
		return model.Folder{}, fmt.Errorf("%w: coder flags: %w", errs.ErrCorruptArchive, err)
	}
	idLen := int(flags & 0x0F)
	methodID, err := c.readBytes(uint64(idLen), "coder method id")
	if err != nil {
		return model.Folder{}, err
	}

	var folder model.Folder
	switch {
	case idLen == 1 && len(methodID) == 1 && methodID[0] == 0x00:
		folder.Coder = model.CoderCopy
	case idLen == 1 && len(methodID) == 1 && methodID[0] == 0x21:
		folder.Coder = model.CoderLZMA2
	default:
		return model.Folder{}, errs.New(errs.KindUnsupported, fmt.Sprintf("unsupported coder method id %x", methodID), nil)
	}

	if flags&coderFlagsHasAttributes != 0 {
		propsSize, err := c.readVarint("coder properties size")
		if err != nil {
			return model.Folder{}, err
		}
		props, err := c.readBytes(propsSize, "coder properties")
		if err != nil {
			return model.Folder{}, err
		}
		if folder.Coder == model.CoderLZMA2 && len(props) >= 1 {
			folder.PropertyByte = props[0]
		}
	}
	return folder, nil
}

func parseSubStreamsInfo(c *cursor, totalUnpackSize uint64) ([]uint64, []uint32, error) {
	if err := c.expectByte(idSubStreamsInfo, "SubStreamsInfo"); err != nil {
		return nil, nil, err
	}
	if err := c.expectByte(idNumUnpackStream, "num unpack streams"); err != nil {
		return nil, nil, err
	}
	numFiles, err := c.readVarint("num_files_in_folder")
	if err != nil {
		return nil, nil, err
	}
	if numFiles > uint64(c.r.Len()) {
		return nil, nil, errs.New(errs.KindCorruptArchive, fmt.Sprintf("SubStreamsInfo: %d substreams declared, %d bytes remain", numFiles, c.r.Len()), nil)
	}

	sizes := make([]uint64, numFiles)
	if numFiles > 0 {
		peek, err := c.r.ReadByte()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: SubStreamsInfo body: %w", errs.ErrCorruptArchive, err)
		}
		if peek == idPackSize {
			var sum uint64
			for i := uint64(0); i < numFiles-1; i++ {
				sz, err := c.readVarint("substream size")
				if err != nil {
					return nil, nil, err
				}
				sizes[i] = sz
				sum += sz
			}
			if numFiles > 0 {
				sizes[numFiles-1] = totalUnpackSize - sum
			}
			peek, err = c.r.ReadByte()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: SubStreamsInfo body: %w", errs.ErrCorruptArchive, err)
			}
		} else if numFiles == 1 {
			sizes[0] = totalUnpackSize
		}

		if peek == idCRC {
			if _, err := c.r.ReadByte(); err != nil { // all-defined byte
				return nil, nil, fmt.Errorf("%w: CRC all-defined byte: %w", errs.ErrCorruptArchive, err)
			}
			crcs := make([]uint32, numFiles)
			for i := uint64(0); i < numFiles; i++ {
				b, err := c.readBytes(4, "substream crc")
				if err != nil {
					return nil, nil, err
				}
				crcs[i] = binary.LittleEndian.Uint32(b)
			}
			if err := c.expectByte(idEnd, "SubStreamsInfo end"); err != nil {
				return nil, nil, err
			}
			return sizes, crcs, nil
		}

		if peek != idEnd {
			return nil, nil, errs.New(errs.KindCorruptArchive, fmt.Sprintf("SubStreamsInfo: unexpected property id 0x%02X", peek), nil)
		}
		return sizes, nil, nil
	}

	if err := c.expectByte(idEnd, "SubStreamsInfo end"); err != nil {
		return nil, nil, err
	}
	return sizes, nil, nil
}

func parseFilesInfo(c *cursor, numStreams int) (*model.FileList, error) {
	if err := c.expectByte(idFilesInfo, "FilesInfo"); err != nil {
		return nil, err
	}
	numFiles, err := c.readVarint("num_files")
	if err != nil {
		return nil, err
	}
	// Every entry either takes a substream size or is flagged by one
	// EmptyStream bit, so the count is bounded by what remains.
	if numFiles > uint64(c.r.Len())*8+uint64(numStreams) {
		return nil, errs.New(errs.KindCorruptArchive, fmt.Sprintf("FilesInfo: %d files declared, more than the header can describe", numFiles), nil)
	}

	fl := &model.FileList{Entries: make([]model.FileEntry, numFiles)}
	var emptyStream []bool
	var names [][]byte
	var mtimes [][]byte
	var attrs [][]byte

	for {
		id, err := c.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: FilesInfo property id: %w", errs.ErrCorruptArchive, err)
		}
		if id == idEnd {
			break
		}
		bodySize, err := c.readVarint("FilesInfo property body size")
		if err != nil {
			return nil, err
		}
		body, err := c.readBytes(bodySize, "FilesInfo property body")
		if err != nil {
			return nil, err
		}

		switch id {
		case idEmptyStream:
			emptyStream = decodeBitVector(body, int(numFiles))
		case idName:
			if len(body) < 1 {
				return nil, errs.New(errs.KindCorruptArchive, "Name property body too short for external byte", nil)
			}
			names = splitNullTerminated(body[1:]) // skip external byte
		case idMTime:
			if len(body) < 2 {
				return nil, errs.New(errs.KindCorruptArchive, "MTime property body too short for all-defined and external bytes", nil)
			}
			mtimes = fixedWidthFields(body[2:], 8) // skip all-defined + external
		case idWinAttrib:
			if len(body) < 2 {
				return nil, errs.New(errs.KindCorruptArchive, "WinAttrib property body too short for all-defined and external bytes", nil)
			}
			attrs = fixedWidthFields(body[2:], 4)
		default:
			// Unknown property (e.g. Comment 0x13): skip it by its
			// declared body size rather than failing the walk.
		}
	}

	for i := range fl.Entries {
		if emptyStream != nil && i < len(emptyStream) && emptyStream[i] {
			fl.Entries[i].IsDirectory = true
		}
		if i < len(names) {
			name, err := decodeName(names[i])
			if err != nil {
				return nil, fmt.Errorf("%w: decode name %d: %w", errs.ErrCorruptArchive, i, err)
			}
			fl.Entries[i].Name = name
		}
		if i < len(mtimes) {
			fl.Entries[i].ModTime = model.FileEntryFromFileTime(binary.LittleEndian.Uint64(mtimes[i]))
		}
		if i < len(attrs) {
			fl.Entries[i].Attributes = binary.LittleEndian.Uint32(attrs[i])
		}
	}
	return fl, nil
}

// fixedWidthFields splits b into n-byte records.
func fixedWidthFields(b []byte, width int) [][]byte {
	var out [][]byte
	for i := 0; i+width <= len(b); i += width {
		out = append(out, b[i:i+width])
	}
	return out
}

func decodeBitVector(data []byte, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		if i/8 >= len(data) {
			break
		}
		out[i] = data[i/8]&(0x80>>uint(i%8)) != 0
	}
	return out
}

// assignSizesAndCRCs distributes SubStreamsInfo's per-non-directory-entry
// sizes and CRCs onto fl, in list order.
func assignSizesAndCRCs(fl *model.FileList, sizes []uint64, crcs []uint32) error {
	idx := 0
	for i := range fl.Entries {
		if fl.Entries[i].IsDirectory {
			continue
		}
		if idx >= len(sizes) {
			return errs.New(errs.KindCorruptArchive, "fewer substream sizes than non-directory entries", nil)
		}
		fl.Entries[i].UncompressedSize = sizes[idx]
		if crcs != nil {
			fl.Entries[i].CRC32 = crcs[idx]
		}
		idx++
	}
	return nil
}
