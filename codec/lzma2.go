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
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// lzma2PropertyByte encodes a dictionary size as the single byte 7z stores
// for an LZMA2 coder. Byte values 0-39 index dict sizes (2|b&1)<<(b/2+11);
// 40 means the maximum, 0xFFFFFFFF. This is the same "round up to the
// nearest 2<<i or 3<<i" shape as the CHD LZMA dictionary-size heuristic,
// run to classify a size into a property byte instead of deriving a raw
// size from a hunk length.
func lzma2PropertyByte(dictSize uint32) byte {
	for b := 0; b < 40; b++ {
		candidate := lzma2DictSizeForProperty(byte(b))
		if candidate >= dictSize {
			return byte(b)
		}
	}
	return 40
}

// lzma2DictSizeForProperty is the inverse of lzma2PropertyByte.
func lzma2DictSizeForProperty(b byte) uint32 {
	if b >= 40 {
		return 0xFFFFFFFF
	}
	base := uint32(2 | (b & 1))
	shift := uint(b)/2 + 11
	return base << shift
}

type lzma2Encoder struct {
	w    *lzma.Writer2
	prop byte
}

func newLZMA2Encoder(w io.Writer, dictSize int) (Encoder, error) {
	if dictSize <= 0 {
		dictSize = 32 << 20
	}
	prop := lzma2PropertyByte(uint32(dictSize))
	cfg := lzma.Writer2Config{
		Properties: &lzma.Properties{LC: 3, LP: 0, PB: 2},
		DictCap:    int(lzma2DictSizeForProperty(prop)),
	}
	lw, err := cfg.NewWriter2(w)
	if err != nil {
		return nil, fmt.Errorf("codec: create lzma2 writer: %w", err)
	}
	return &lzma2Encoder{w: lw, prop: prop}, nil
}

func (e *lzma2Encoder) Write(p []byte) (int, error) { return e.w.Write(p) }
func (e *lzma2Encoder) Close() error                { return e.w.Close() }
func (e *lzma2Encoder) PropertyByte() byte          { return e.prop }

func newLZMA2Decoder(r io.Reader, propertyByte byte) (Decoder, error) {
	dictCap := int(lzma2DictSizeForProperty(propertyByte))
	lr, err := lzma.Reader2Config{DictCap: dictCap}.NewReader2(r)
	if err != nil {
		return nil, fmt.Errorf("codec: create lzma2 reader: %w", err)
	}
	return lr, nil
}
