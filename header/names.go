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
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// encodeName converts an archive name (held as UTF-8) to null-terminated
// UTF-16LE, the on-disk encoding of the Name property group.
func encodeName(name string) ([]byte, error) {
	b, _, err := transform.Bytes(utf16le.NewEncoder(), []byte(name))
	if err != nil {
		return nil, fmt.Errorf("header: encode name %q: %w", name, err)
	}
	return append(b, 0x00, 0x00), nil
}

// decodeName converts one null-terminated UTF-16LE name back to UTF-8.
// Malformed UTF-16 never fails the listing: the decoder emits U+FFFD for
// an unpaired surrogate, and if the transform itself reports an error the
// name is decoded again by replaceInvalidUTF16, which substitutes '?'.
func decodeName(b []byte) (string, error) {
	dec := utf16le.NewDecoder()
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return replaceInvalidUTF16(b), nil
	}
	return string(out), nil
}

// replaceInvalidUTF16 is the non-strict fallback: decode code unit pairs
// one at a time, substituting '?' for anything the strict decoder
// rejected, instead of failing the whole name.
func replaceInvalidUTF16(b []byte) string {
	var out []rune
	for i := 0; i+1 < len(b); i += 2 {
		unit := uint16(b[i]) | uint16(b[i+1])<<8
		if unit >= 0xD800 && unit <= 0xDFFF {
			out = append(out, '?')
			continue
		}
		out = append(out, rune(unit))
	}
	return string(out)
}

// splitNullTerminated splits b into runs ending at each 0x00 0x00 pair, one
// per name, dropping the terminator itself.
func splitNullTerminated(b []byte) [][]byte {
	var names [][]byte
	start := 0
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			names = append(names, b[start:i])
			start = i + 2
		}
	}
	return names
}
