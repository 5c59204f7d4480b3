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

package security

import "crypto/sha256"

// KeyDerivationRounds is the number of iterated SHA-256 rounds used to turn
// a password and salt into an AES-256 key.
//
// This is simpler than 7-Zip's own key schedule, which folds a 64-bit
// round counter into every round's input; full 7-Zip interop would need
// the counter-folding schedule instead.
const KeyDerivationRounds = 1 << 18

// DeriveKey computes the AES-256 key for password and salt: the first
// round hashes password‖salt, every subsequent round hashes the previous
// 32-byte digest.
func DeriveKey(password, salt []byte) [32]byte {
	h := sha256.Sum256(append(append([]byte{}, password...), salt...))
	for i := 1; i < KeyDerivationRounds; i++ {
		h = sha256.Sum256(h[:])
	}
	return h
}
