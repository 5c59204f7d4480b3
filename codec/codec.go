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

// Package codec wraps the opaque compression engines behind a streaming
// contract: an Encoder that turns a lazily-read byte stream into a packed
// stream, and a Decoder that reverses it. The LZMA2
// engine itself is github.com/ulikunitz/xz/lzma; this package only adapts
// its API to the 7z folder/coder model and adds the Copy passthrough.
package codec

import "io"

// MethodID are the 7z coder method IDs this module understands.
var (
	MethodIDCopy  = []byte{0x00}
	MethodIDLZMA2 = []byte{0x21}
)

// Encoder compresses a byte stream into a packed stream. Implementations
// must emit a self-terminating stream (LZMA2's end-marker chunk, or for
// Copy simply however many bytes were written); callers never scan for an
// end marker themselves.
type Encoder interface {
	io.Writer
	io.Closer
	// PropertyByte returns the single property byte 7z stores for this
	// coder (dictionary-size exponent for LZMA2, unused for Copy).
	PropertyByte() byte
}

// Decoder decompresses a packed stream back into the original bytes.
type Decoder interface {
	io.Reader
}

// NewEncoder returns an Encoder for the given coder writing to w, using
// dictSize as a hint (ignored by Copy).
func NewEncoder(coderName string, w io.Writer, dictSize int) (Encoder, error) {
	switch coderName {
	case "lzma2":
		return newLZMA2Encoder(w, dictSize)
	case "copy":
		return newCopyEncoder(w), nil
	default:
		return nil, errUnsupportedCoder(coderName)
	}
}

// NewDecoder returns a Decoder for the given coder reading from r.
// propertyByte is the single LZMA2 dictionary-size byte (ignored by Copy).
func NewDecoder(coderName string, r io.Reader, propertyByte byte) (Decoder, error) {
	switch coderName {
	case "lzma2":
		return newLZMA2Decoder(r, propertyByte)
	case "copy":
		return r, nil
	default:
		return nil, errUnsupportedCoder(coderName)
	}
}
