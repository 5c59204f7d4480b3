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

import "io"

// copyEncoder is the identity coder used when the incompressibility
// heuristic (see heuristic.go) judges a folder's data not worth
// compressing.
type copyEncoder struct {
	w io.Writer
}

func newCopyEncoder(w io.Writer) Encoder {
	return &copyEncoder{w: w}
}

func (c *copyEncoder) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *copyEncoder) Close() error                { return nil }
func (c *copyEncoder) PropertyByte() byte          { return 0 }
