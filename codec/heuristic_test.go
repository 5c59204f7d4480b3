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

package codec

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestLooksIncompressibleOnRandomData(t *testing.T) {
	t.Parallel()

	sample := make([]byte, 2<<20)
	if _, err := rand.Read(sample); err != nil {
		t.Fatal(err)
	}
	if !LooksIncompressible(sample) {
		t.Fatal("expected uniformly random data to be judged incompressible")
	}
}

func TestLooksIncompressibleOnRepetitiveData(t *testing.T) {
	t.Parallel()

	sample := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 4000)
	if LooksIncompressible(sample) {
		t.Fatal("expected repetitive text to be judged compressible")
	}
}

func TestLzma2PropertyByteRoundTrip(t *testing.T) {
	t.Parallel()

	sizes := []uint32{1 << 16, 1 << 20, 32 << 20, 64 << 20, 1 << 30}
	for _, size := range sizes {
		b := lzma2PropertyByte(size)
		got := lzma2DictSizeForProperty(b)
		if got < size {
			t.Fatalf("property byte %d for size %d decodes to smaller size %d", b, size, got)
		}
	}
}
