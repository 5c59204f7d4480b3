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

package varint

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	values := []uint64{
		0, 1, 127, 128, 129, 255, 256,
		1<<14 - 1, 1 << 14, 1<<21 - 1, 1 << 21,
		1<<28 - 1, 1 << 28, 1<<35 - 1, 1 << 35,
		1<<42 - 1, 1 << 42, 1<<49 - 1, 1 << 49,
		1<<56 - 1, 1 << 56, 1<<63 - 1, 1 << 63,
		^uint64(0),
	}

	for _, v := range values {
		enc := Encode(nil, v)
		got, n, err := DecodeBytes(enc)
		if err != nil {
			t.Fatalf("decode(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("decode(encode(%d)) = %d", v, got)
		}
		if n != len(enc) {
			t.Fatalf("decode consumed %d bytes, encode produced %d", n, len(enc))
		}
		if n != AppendedLen(v) {
			t.Fatalf("AppendedLen(%d) = %d, want %d", v, AppendedLen(v), n)
		}
	}
}

func TestEncodeShortestForm(t *testing.T) {
	t.Parallel()

	cases := []struct {
		v       uint64
		wantLen int
	}{
		{0, 1},
		{0x7F, 1},
		{0x80, 2},
		{1<<14 - 1, 2},
		{1 << 14, 3},
		{^uint64(0), 9},
	}

	for _, c := range cases {
		enc := Encode(nil, c.v)
		if len(enc) != c.wantLen {
			t.Errorf("Encode(%#x) len = %d, want %d (bytes: %x)", c.v, len(enc), c.wantLen, enc)
		}
	}
}

func TestZeroIsSingleByte(t *testing.T) {
	t.Parallel()

	enc := Encode(nil, 0)
	if !bytes.Equal(enc, []byte{0x00}) {
		t.Fatalf("Encode(0) = %x, want 00", enc)
	}
}

func TestMaxValueIsNineBytes(t *testing.T) {
	t.Parallel()

	enc := Encode(nil, ^uint64(0))
	if len(enc) != 9 || enc[0] != 0xFF {
		t.Fatalf("Encode(max) = %x, want 9 bytes starting with FF", enc)
	}
}

func TestDecodeTruncated(t *testing.T) {
	t.Parallel()

	// A prefix that promises one extra byte but supplies none.
	_, _, err := DecodeBytes([]byte{0x80})
	if err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestAppend(t *testing.T) {
	t.Parallel()

	buf := []byte{0xAA}
	buf = Encode(buf, 5)
	if !bytes.Equal(buf, []byte{0xAA, 0x05}) {
		t.Fatalf("Encode append = %x", buf)
	}
}
