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

// Package security implements the AES-256-CBC primitive and the
// password-based key derivation for encrypted archives. Nothing wires it
// into the writer or reader yet: encrypted output stays disabled until the
// salt and IV have a settled place in the archive header.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/mossarchive/go7z/errs"
)

const blockSize = 16

// Encrypt pads plaintext with PKCS#7 and encrypts it with AES-256-CBC.
// key must be 32 bytes, iv must be 16 bytes.
func Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}
	if len(iv) != blockSize {
		return nil, errs.New(errs.KindInvalidParam, "iv must be 16 bytes", nil)
	}

	padded := pkcs7Pad(plaintext, blockSize)
	out := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out, padded)
	return out, nil
}

// Decrypt decrypts an AES-256-CBC ciphertext and strips its PKCS#7 padding.
// It fails with KindWrongPasswordOrCorrupt if the padding is invalid, which
// is the expected signal when the key was derived from the wrong password.
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}
	if len(iv) != blockSize {
		return nil, errs.New(errs.KindInvalidParam, "iv must be 16 bytes", nil)
	}
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, errs.New(errs.KindWrongPasswordOrCorrupt, "ciphertext is not a multiple of the block size", nil)
	}

	plain := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plain, ciphertext)

	return pkcs7Unpad(plain)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errs.New(errs.KindWrongPasswordOrCorrupt, "empty plaintext", nil)
	}
	pad := int(data[len(data)-1])
	if pad < 1 || pad > blockSize || pad > len(data) {
		return nil, errs.New(errs.KindWrongPasswordOrCorrupt, "invalid PKCS#7 padding byte", nil)
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, errs.New(errs.KindWrongPasswordOrCorrupt, "inconsistent PKCS#7 padding", nil)
		}
	}
	return data[:len(data)-pad], nil
}
