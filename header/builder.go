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

	"github.com/mossarchive/go7z/internal/varint"
	"github.com/mossarchive/go7z/model"
)

// Build serializes the Header Block for a single-folder, single-coder
// archive: MainStreamsInfo (PackInfo, UnpackInfo, SubStreamsInfo) followed
// by FilesInfo.
func Build(fl *model.FileList, folder model.Folder) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(idHeader)

	main, err := buildMainStreamsInfo(fl, folder)
	if err != nil {
		return nil, err
	}
	buf.Write(main)

	files, err := buildFilesInfo(fl)
	if err != nil {
		return nil, err
	}
	buf.Write(files)

	buf.WriteByte(idEnd)
	return buf.Bytes(), nil
}

func buildMainStreamsInfo(fl *model.FileList, folder model.Folder) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(idMainStreamsInfo)
	buf.Write(buildPackInfo(folder))
	buf.Write(buildUnpackInfo(folder))

	sub, err := buildSubStreamsInfo(fl, folder)
	if err != nil {
		return nil, err
	}
	buf.Write(sub)

	buf.WriteByte(idEnd)
	return buf.Bytes(), nil
}

func buildPackInfo(folder model.Folder) []byte {
	var buf bytes.Buffer
	buf.WriteByte(idPackInfo)
	buf.Write(varint.Encode(nil, 0)) // pack_offset
	buf.Write(varint.Encode(nil, 1)) // num_pack_streams
	buf.WriteByte(idPackSize)
	buf.Write(varint.Encode(nil, folder.PackSize))
	buf.WriteByte(idEnd)
	return buf.Bytes()
}

func buildUnpackInfo(folder model.Folder) []byte {
	var buf bytes.Buffer
	buf.WriteByte(idUnpackInfo)
	buf.Write(buildFolderGroup(folder))
	buf.WriteByte(idCodersUnpackSize)
	buf.Write(varint.Encode(nil, folder.UnpackSize))
	buf.WriteByte(idEnd)
	return buf.Bytes()
}

func buildFolderGroup(folder model.Folder) []byte {
	var buf bytes.Buffer
	buf.WriteByte(idFolder)
	buf.Write(varint.Encode(nil, 1)) // num_folders
	buf.WriteByte(0x00)              // inline (not external)
	buf.Write(varint.Encode(nil, 1)) // num_coders
	buf.Write(buildCoderSpec(folder))
	return buf.Bytes()
}

func buildCoderSpec(folder model.Folder) []byte {
	var buf bytes.Buffer
	if folder.Coder == model.CoderCopy {
		buf.WriteByte(0x01) // flags: id length 1, no attributes
		buf.WriteByte(0x00) // copy method id
		return buf.Bytes()
	}
	buf.WriteByte(0x01 | coderFlagsHasAttributes) // 0x21
	buf.WriteByte(0x21)                           // lzma2 method id
	buf.Write(varint.Encode(nil, 1))              // properties_size
	buf.WriteByte(folder.PropertyByte)
	return buf.Bytes()
}

func buildSubStreamsInfo(fl *model.FileList, folder model.Folder) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(idSubStreamsInfo)

	var sizes []uint64
	var crcs []uint32
	for _, e := range fl.Entries {
		if !hasStream(e) {
			continue
		}
		sizes = append(sizes, e.UncompressedSize)
		crcs = append(crcs, e.CRC32)
	}

	buf.WriteByte(idNumUnpackStream)
	buf.Write(varint.Encode(nil, uint64(len(sizes))))

	if len(sizes) > 1 {
		buf.WriteByte(idPackSize)
		for _, sz := range sizes[:len(sizes)-1] {
			buf.Write(varint.Encode(nil, sz))
		}
	}

	if len(crcs) > 0 {
		buf.WriteByte(idCRC)
		buf.WriteByte(1) // all-defined
		for _, crc := range crcs {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], crc)
			buf.Write(b[:])
		}
	}

	buf.WriteByte(idEnd)
	return buf.Bytes(), nil
}

func buildFilesInfo(fl *model.FileList) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(idFilesInfo)
	buf.Write(varint.Encode(nil, uint64(fl.Len())))

	if body := buildEmptyStreamBody(fl); body != nil {
		buf.WriteByte(idEmptyStream)
		buf.Write(varint.Encode(nil, uint64(len(body))))
		buf.Write(body)
	}

	nameBody, err := buildNameBody(fl)
	if err != nil {
		return nil, err
	}
	buf.WriteByte(idName)
	buf.Write(varint.Encode(nil, uint64(len(nameBody))))
	buf.Write(nameBody)

	mtimeBody := buildMTimeBody(fl)
	buf.WriteByte(idMTime)
	buf.Write(varint.Encode(nil, uint64(len(mtimeBody))))
	buf.Write(mtimeBody)

	attrBody := buildWinAttribBody(fl)
	buf.WriteByte(idWinAttrib)
	buf.Write(varint.Encode(nil, uint64(len(attrBody))))
	buf.Write(attrBody)

	buf.WriteByte(idEnd)
	return buf.Bytes(), nil
}

// hasStream reports whether e contributes bytes to the packed stream.
// Directories and zero-byte files do not; they are flagged in the
// EmptyStream bit vector instead of the substream tables.
func hasStream(e model.FileEntry) bool {
	return !e.IsDirectory && e.UncompressedSize > 0
}

func buildEmptyStreamBody(fl *model.FileList) []byte {
	any := false
	for _, e := range fl.Entries {
		if !hasStream(e) {
			any = true
			break
		}
	}
	if !any {
		return nil
	}
	out := make([]byte, (fl.Len()+7)/8)
	for i, e := range fl.Entries {
		if !hasStream(e) {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out
}

func buildNameBody(fl *model.FileList) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(0x00) // external = 0
	for _, e := range fl.Entries {
		encoded, err := encodeName(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}
	return buf.Bytes(), nil
}

func buildMTimeBody(fl *model.FileList) []byte {
	var buf bytes.Buffer
	buf.WriteByte(1)    // all-defined
	buf.WriteByte(0x00) // external = 0
	for _, e := range fl.Entries {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], e.FileTime())
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func buildWinAttribBody(fl *model.FileList) []byte {
	var buf bytes.Buffer
	buf.WriteByte(1)    // all-defined
	buf.WriteByte(0x00) // external = 0
	for _, e := range fl.Entries {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], e.Attributes)
		buf.Write(b[:])
	}
	return buf.Bytes()
}
