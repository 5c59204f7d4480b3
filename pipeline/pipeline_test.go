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

package pipeline

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/spf13/afero"

	"github.com/mossarchive/go7z/codec"
	"github.com/mossarchive/go7z/config"
	"github.com/mossarchive/go7z/model"
	"github.com/mossarchive/go7z/scanner"
)

// memSink is a minimal in-memory Sink for exercising Encode without the
// volume package's file-splitting machinery.
type memSink struct {
	buf bytes.Buffer
}

func (m *memSink) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memSink) Position() int64             { return int64(m.buf.Len()) }

func decodeFolder(t *testing.T, folder model.Folder, packed []byte) []byte {
	t.Helper()
	coderName := "lzma2"
	if folder.Coder == model.CoderCopy {
		coderName = "copy"
	}
	dec, err := codec.NewDecoder(coderName, bytes.NewReader(packed), folder.PropertyByte)
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestEncodeSmallFileUsesLZMA2(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	content := bytes.Repeat([]byte("hello go7z "), 50)
	if err := afero.WriteFile(fs, "/in/a.txt", content, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := scanner.Scan(fs, []string{"/in/a.txt"})
	if err != nil {
		t.Fatal(err)
	}

	sink := &memSink{}
	opts := config.OptionsDefaults()
	folder, err := Encode(fs, res.Files, res.SourcePaths, opts, sink, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if folder.Coder != model.CoderLZMA2 {
		t.Fatalf("coder = %v, want LZMA2", folder.Coder)
	}
	if folder.UnpackSize != uint64(len(content)) {
		t.Fatalf("unpack size = %d, want %d", folder.UnpackSize, len(content))
	}

	got := decodeFolder(t, folder, sink.buf.Bytes())
	if !bytes.Equal(got, content) {
		t.Fatal("decoded bytes do not match input")
	}
	if res.Files.Entries[0].CRC32 == 0 {
		t.Fatal("CRC32 was not filled in")
	}
}

func TestEncodeIncompressibleDataUsesCopy(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	content := make([]byte, 2<<20)
	if _, err := rand.Read(content); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/in/random.bin", content, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := scanner.Scan(fs, []string{"/in/random.bin"})
	if err != nil {
		t.Fatal(err)
	}

	sink := &memSink{}
	opts := config.OptionsDefaults()
	folder, err := Encode(fs, res.Files, res.SourcePaths, opts, sink, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if folder.Coder != model.CoderCopy {
		t.Fatalf("coder = %v, want Copy", folder.Coder)
	}
	if folder.PackSize != uint64(len(content)) {
		t.Fatalf("pack size = %d, want %d (copy coder must not change size)", folder.PackSize, len(content))
	}

	got := decodeFolder(t, folder, sink.buf.Bytes())
	if !bytes.Equal(got, content) {
		t.Fatal("decoded bytes do not match input")
	}
}

func TestEncodeStoreLevelAlwaysCopiesRegardlessOfSize(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	content := bytes.Repeat([]byte("aaaaaaaaaa"), 100)
	if err := afero.WriteFile(fs, "/in/a.txt", content, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := scanner.Scan(fs, []string{"/in/a.txt"})
	if err != nil {
		t.Fatal(err)
	}

	sink := &memSink{}
	opts := config.OptionsDefaults()
	opts.Level = config.Store
	folder, err := Encode(fs, res.Files, res.SourcePaths, opts, sink, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if folder.Coder != model.CoderCopy {
		t.Fatalf("coder = %v, want Copy for Store level", folder.Coder)
	}
}

func TestEncodeSolidMultiFileOrderAndCRCs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	a := bytes.Repeat([]byte{'a'}, 1024)
	b := bytes.Repeat([]byte{'b'}, 2048)
	if err := afero.WriteFile(fs, "/in/dir/a.txt", a, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/in/dir/sub/b.txt", b, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := scanner.Scan(fs, []string{"/in/dir"})
	if err != nil {
		t.Fatal(err)
	}

	sink := &memSink{}
	opts := config.OptionsDefaults()
	folder, err := Encode(fs, res.Files, res.SourcePaths, opts, sink, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := append(append([]byte{}, a...), b...)
	if folder.UnpackSize != uint64(len(want)) {
		t.Fatalf("unpack size = %d, want %d", folder.UnpackSize, len(want))
	}

	got := decodeFolder(t, folder, sink.buf.Bytes())
	if !bytes.Equal(got, want) {
		t.Fatal("solid stream did not reconstruct files in order")
	}

	for _, e := range res.Files.Entries {
		if e.IsDirectory {
			continue
		}
		if e.CRC32 == 0 {
			t.Fatalf("entry %q missing CRC32", e.Name)
		}
	}
}

func TestEncodeProgressCancellation(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	content := bytes.Repeat([]byte("x"), 5<<20)
	if err := afero.WriteFile(fs, "/in/big.bin", content, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := scanner.Scan(fs, []string{"/in/big.bin"})
	if err != nil {
		t.Fatal(err)
	}

	sink := &memSink{}
	opts := config.OptionsDefaults()
	opts.ChunkSize = 1 << 20
	calls := 0
	_, err = Encode(fs, res.Files, res.SourcePaths, opts, sink, func(done, total, fDone, fTotal int64, name string) bool {
		calls++
		return true
	}, nil)
	if err == nil {
		t.Fatal("expected Canceled error")
	}
	if calls == 0 {
		t.Fatal("progress callback was never invoked")
	}
}
