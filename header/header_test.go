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
	"testing"
	"time"

	"github.com/mossarchive/go7z/model"
)

func sampleFileList() *model.FileList {
	fl := &model.FileList{}
	fl.Append(model.FileEntry{
		Name:             "a.txt",
		UncompressedSize: 5,
		ModTime:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Attributes:       0x20,
		CRC32:            0xDEADBEEF,
	})
	fl.Append(model.FileEntry{
		Name:        "dir",
		IsDirectory: true,
		ModTime:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Attributes:  0x10,
	})
	fl.Append(model.FileEntry{
		Name:             "dir/b.txt",
		UncompressedSize: 7,
		ModTime:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Attributes:       0x20,
		CRC32:            0xCAFEBABE,
	})
	return fl
}

func TestBuildParseRoundTrip(t *testing.T) {
	t.Parallel()

	fl := sampleFileList()
	folder := model.Folder{
		Coder:        model.CoderLZMA2,
		PropertyByte: 23,
		UnpackSize:   12,
		PackSize:     9,
	}

	b, err := Build(fl, folder)
	if err != nil {
		t.Fatal(err)
	}

	gotFL, gotFolder, err := Parse(b)
	if err != nil {
		t.Fatal(err)
	}

	if gotFolder != folder {
		t.Fatalf("folder = %+v, want %+v", gotFolder, folder)
	}
	if gotFL.Len() != fl.Len() {
		t.Fatalf("len = %d, want %d", gotFL.Len(), fl.Len())
	}
	for i := range fl.Entries {
		want := fl.Entries[i]
		got := gotFL.Entries[i]
		if got.Name != want.Name {
			t.Fatalf("entry %d name = %q, want %q", i, got.Name, want.Name)
		}
		if got.IsDirectory != want.IsDirectory {
			t.Fatalf("entry %d is_directory = %v, want %v", i, got.IsDirectory, want.IsDirectory)
		}
		if !got.IsDirectory && got.UncompressedSize != want.UncompressedSize {
			t.Fatalf("entry %d size = %d, want %d", i, got.UncompressedSize, want.UncompressedSize)
		}
		if !got.IsDirectory && got.CRC32 != want.CRC32 {
			t.Fatalf("entry %d crc = %x, want %x", i, got.CRC32, want.CRC32)
		}
		if got.Attributes != want.Attributes {
			t.Fatalf("entry %d attrs = %x, want %x", i, got.Attributes, want.Attributes)
		}
		if !got.ModTime.Equal(want.ModTime) {
			t.Fatalf("entry %d mtime = %v, want %v", i, got.ModTime, want.ModTime)
		}
	}
}

func TestBuildParseRoundTripCopyCoderSingleFile(t *testing.T) {
	t.Parallel()

	fl := &model.FileList{}
	fl.Append(model.FileEntry{Name: "only.bin", UncompressedSize: 2048, CRC32: 0x12345678})
	folder := model.Folder{Coder: model.CoderCopy, UnpackSize: 2048, PackSize: 2048}

	b, err := Build(fl, folder)
	if err != nil {
		t.Fatal(err)
	}
	gotFL, gotFolder, err := Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	if gotFolder.Coder != model.CoderCopy {
		t.Fatalf("coder = %v, want Copy", gotFolder.Coder)
	}
	if gotFL.Entries[0].CRC32 != 0x12345678 {
		t.Fatalf("crc = %x, want 12345678", gotFL.Entries[0].CRC32)
	}
}

func TestZeroByteFileFlaggedAsEmptyStream(t *testing.T) {
	t.Parallel()

	fl := &model.FileList{}
	fl.Append(model.FileEntry{Name: "empty.txt"})
	fl.Append(model.FileEntry{Name: "data.bin", UncompressedSize: 4, CRC32: 0xFEEDFACE})
	folder := model.Folder{Coder: model.CoderCopy, UnpackSize: 4, PackSize: 4}

	b, err := Build(fl, folder)
	if err != nil {
		t.Fatal(err)
	}
	gotFL, _, err := Parse(b)
	if err != nil {
		t.Fatal(err)
	}

	// A zero-byte file carries no substream, so on read it comes back
	// flagged like a directory entry, and the sized file still gets its
	// size and CRC from the single remaining substream.
	if !gotFL.Entries[0].IsDirectory {
		t.Fatal("zero-byte entry should come back with the empty-stream flag set")
	}
	if gotFL.Entries[1].UncompressedSize != 4 || gotFL.Entries[1].CRC32 != 0xFEEDFACE {
		t.Fatalf("sized entry = %+v, want size 4 crc FEEDFACE", gotFL.Entries[1])
	}
}

func TestParseRejectsTruncatedPropertyBodies(t *testing.T) {
	t.Parallel()

	// A minimal valid header up through FilesInfo's file count: one empty
	// Copy folder, zero substreams, one file entry.
	prefix := []byte{
		0x01,                         // Header
		0x04,                         // MainStreamsInfo
		0x06, 0x00, 0x01, 0x09, 0x00, // PackInfo: offset 0, 1 stream, size 0
		0x00,                   // PackInfo end
		0x07,                   // UnpackInfo
		0x0B, 0x01, 0x00, 0x01, // Folder group: 1 folder, inline, 1 coder
		0x01, 0x00, // coder spec: Copy
		0x0C, 0x00, // CodersUnpackSize: 0
		0x00,                   // UnpackInfo end
		0x08, 0x0D, 0x00, 0x00, // SubStreamsInfo: 0 files, end
		0x00,       // MainStreamsInfo end
		0x05, 0x01, // FilesInfo: 1 file
	}

	tests := []struct {
		name string
		tail []byte
	}{
		{name: "name body missing external byte", tail: []byte{0x11, 0x00}},
		{name: "mtime body missing external byte", tail: []byte{0x14, 0x01, 0x01}},
		{name: "attrib body missing external byte", tail: []byte{0x15, 0x01, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append(append([]byte{}, prefix...), tt.tail...)
			if _, _, err := Parse(b); err == nil {
				t.Fatal("expected a parse error for a truncated property body")
			}
		})
	}
}

func TestTrickyNamesRoundTrip(t *testing.T) {
	t.Parallel()

	fl := &model.FileList{}
	fl.Append(model.FileEntry{Name: "a b.txt", UncompressedSize: 1})
	fl.Append(model.FileEntry{Name: "α.txt", UncompressedSize: 1})
	fl.Append(model.FileEntry{Name: "nested/deep/deep/f.txt", UncompressedSize: 1})
	folder := model.Folder{Coder: model.CoderCopy, UnpackSize: 3, PackSize: 3}

	b, err := Build(fl, folder)
	if err != nil {
		t.Fatal(err)
	}
	gotFL, _, err := Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"a b.txt", "α.txt", "nested/deep/deep/f.txt"} {
		if gotFL.Entries[i].Name != want {
			t.Fatalf("entry %d name = %q, want %q", i, gotFL.Entries[i].Name, want)
		}
	}
}

func TestSignatureHeaderEncodeDecode(t *testing.T) {
	t.Parallel()

	tuple := SignatureTuple{NextHeaderOffset: 48, NextHeaderSize: 128, NextHeaderCRC: 0xAABBCCDD}
	b := Encode(tuple)
	if len(b) != SignatureHeaderSize {
		t.Fatalf("len = %d, want %d", len(b), SignatureHeaderSize)
	}
	if !bytes.Equal(b[0:6], magic[:]) {
		t.Fatalf("magic mismatch: %x", b[0:6])
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != tuple {
		t.Fatalf("tuple = %+v, want %+v", got, tuple)
	}
}

func TestSignatureHeaderRejectsBadCRC(t *testing.T) {
	t.Parallel()

	tuple := SignatureTuple{NextHeaderOffset: 1, NextHeaderSize: 2, NextHeaderCRC: 3}
	b := Encode(tuple)
	b[20] ^= 0xFF // corrupt NextHeaderSize without updating the CRC

	if _, err := Decode(b); err == nil {
		t.Fatal("expected a CRC mismatch error")
	}
}

func TestSignatureHeaderRejectsBadMagic(t *testing.T) {
	t.Parallel()

	b := Encode(SignatureTuple{})
	b[0] = 'X'
	if _, err := Decode(b); err == nil {
		t.Fatal("expected a bad-magic error")
	}
}

type fakeSigSink struct {
	buf bytes.Buffer
	pos int64
}

func (f *fakeSigSink) Write(p []byte) (int, error) {
	if f.pos == int64(f.buf.Len()) {
		n, err := f.buf.Write(p)
		f.pos += int64(n)
		return n, err
	}
	// overwrite in place, used by SeekAbsolute(0) + Write(32 bytes)
	b := f.buf.Bytes()
	n := copy(b[f.pos:], p)
	f.pos += int64(n)
	return n, nil
}

func (f *fakeSigSink) SeekAbsolute(pos int64) error {
	f.pos = pos
	return nil
}

func TestPatchIdempotence(t *testing.T) {
	t.Parallel()

	sink := &fakeSigSink{}
	if _, err := sink.Write(Placeholder()); err != nil {
		t.Fatal(err)
	}
	if _, err := sink.Write([]byte("packed-region-bytes")); err != nil {
		t.Fatal(err)
	}

	tuple := SignatureTuple{NextHeaderOffset: 20, NextHeaderSize: 10, NextHeaderCRC: 0x1122}
	if err := Patch(sink, tuple); err != nil {
		t.Fatal(err)
	}
	firstPass := append([]byte{}, sink.buf.Bytes()[:SignatureHeaderSize]...)

	if err := Patch(sink, tuple); err != nil {
		t.Fatal(err)
	}
	secondPass := sink.buf.Bytes()[:SignatureHeaderSize]

	if !bytes.Equal(firstPass, secondPass) {
		t.Fatal("patching twice with the same tuple produced different bytes")
	}
}
