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

// Package volume presents N physical files as one logical, seekable byte
// stream: a Sink for writing (used by the pipeline and header builder) and
// a Source for reading (used by the archive reader). Both are built on
// afero.Fs so the same code runs against a real filesystem or an in-memory
// one in tests.
package volume

import "fmt"

// MaxVolumes is the largest number of volumes a split archive can use: the
// naming scheme only has 3 decimal digits.
const MaxVolumes = 999

// Name returns the volume filename for index (1-based) given base. index 0
// means the single-file (unsplit) case and returns base unchanged.
func Name(base string, index int) string {
	if index == 0 {
		return base
	}
	return fmt.Sprintf("%s.%03d", base, index)
}
