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
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/mossarchive/go7z/errs"
	binutil "github.com/mossarchive/go7z/internal/binary"
)

// SignatureHeaderSize is the fixed size in bytes of the Signature Header at
// the start of every 7z archive.
const SignatureHeaderSize = 32

var magic = [6]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}

const (
	versionMajor = 0
	versionMinor = 4
)

// SignatureTuple is the patchable part of the Signature Header: the offset,
// size and CRC of the Header Block that follows the packed region.
type SignatureTuple struct {
	NextHeaderOffset uint64 // measured from byte 32, i.e. the end of the Signature Header
	NextHeaderSize   uint64
	NextHeaderCRC    uint32
}

// Placeholder returns 32 zero bytes, written at archive-creation time
// before the packed region and real header exist; the real Signature
// Header is patched in once pack_size is known.
func Placeholder() []byte {
	return make([]byte, SignatureHeaderSize)
}

// Encode serializes the full 32-byte Signature Header for tuple.
func Encode(tuple SignatureTuple) []byte {
	b := make([]byte, SignatureHeaderSize)
	copy(b[0:6], magic[:])
	b[6] = versionMajor
	b[7] = versionMinor

	var body [20]byte
	binary.LittleEndian.PutUint64(body[0:8], tuple.NextHeaderOffset)
	binary.LittleEndian.PutUint64(body[8:16], tuple.NextHeaderSize)
	binary.LittleEndian.PutUint32(body[16:20], tuple.NextHeaderCRC)
	copy(b[12:32], body[:])

	startCRC := crc32.ChecksumIEEE(body[:])
	binary.LittleEndian.PutUint32(b[8:12], startCRC)
	return b
}

// Decode parses and verifies a 32-byte Signature Header, returning its
// tuple.
func Decode(b []byte) (SignatureTuple, error) {
	if len(b) != SignatureHeaderSize {
		return SignatureTuple{}, errs.New(errs.KindCorruptArchive, "signature header: wrong length", nil)
	}
	if string(b[0:6]) != string(magic[:]) {
		return SignatureTuple{}, errs.New(errs.KindCorruptArchive, "signature header: bad magic", nil)
	}
	if b[6] != versionMajor {
		return SignatureTuple{}, errs.New(errs.KindCorruptArchive, fmt.Sprintf("signature header: unsupported major version %d", b[6]), nil)
	}

	wantCRC := binary.LittleEndian.Uint32(b[8:12])
	gotCRC := crc32.ChecksumIEEE(b[12:32])
	if gotCRC != wantCRC {
		return SignatureTuple{}, errs.New(errs.KindCorruptArchive, "signature header: StartHeaderCRC mismatch", nil)
	}

	return SignatureTuple{
		NextHeaderOffset: binary.LittleEndian.Uint64(b[12:20]),
		NextHeaderSize:   binary.LittleEndian.Uint64(b[20:28]),
		NextHeaderCRC:    binary.LittleEndian.Uint32(b[28:32]),
	}, nil
}

// sigWriter is the subset of volume.Sink the patch helpers need.
type sigWriter interface {
	io.Writer
	SeekAbsolute(pos int64) error
}

// Patch seeks w back to offset 0 and overwrites the Signature Header with
// tuple, the second pass of the placeholder-then-patch write.
func Patch(w sigWriter, tuple SignatureTuple) error {
	if err := w.SeekAbsolute(0); err != nil {
		return fmt.Errorf("%w: seek to signature header: %w", errs.ErrIOWrite, err)
	}
	if _, err := w.Write(Encode(tuple)); err != nil {
		return fmt.Errorf("%w: write signature header: %w", errs.ErrIOWrite, err)
	}
	return nil
}

// sigReader is the subset of volume.Source the read helpers need.
type sigReader interface {
	io.ReaderAt
	Size() int64
}

// ReadTuple reads and verifies the Signature Header from the start of src.
func ReadTuple(src sigReader) (SignatureTuple, error) {
	if src.Size() < SignatureHeaderSize {
		return SignatureTuple{}, errs.New(errs.KindCorruptArchive, "archive shorter than signature header", nil)
	}
	b, err := binutil.ReadBytesAt(src, 0, SignatureHeaderSize)
	if err != nil {
		return SignatureTuple{}, fmt.Errorf("%w: signature header: %w", errs.ErrIORead, err)
	}
	return Decode(b)
}

// ReadHeaderBlock reads the NextHeaderSize bytes at 32+NextHeaderOffset and
// verifies NextHeaderCRC.
func ReadHeaderBlock(src sigReader, tuple SignatureTuple) ([]byte, error) {
	off := int64(SignatureHeaderSize) + int64(tuple.NextHeaderOffset)
	if off < SignatureHeaderSize || off+int64(tuple.NextHeaderSize) > src.Size() {
		return nil, errs.New(errs.KindCorruptArchive, "header block extends past end of archive", nil).WithOffset(off)
	}
	b, err := binutil.ReadBytesAt(src, off, int(tuple.NextHeaderSize))
	if err != nil {
		return nil, fmt.Errorf("%w: header block: %w", errs.ErrIORead, err)
	}
	if crc32.ChecksumIEEE(b) != tuple.NextHeaderCRC {
		return nil, errs.New(errs.KindCorruptArchive, "header block: NextHeaderCRC mismatch", nil).WithOffset(off)
	}
	return b, nil
}
