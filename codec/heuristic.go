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

	"github.com/klauspost/compress/flate"
)

const (
	sampleCap               = 64 * 1024
	frequentByteDivisor     = 512
	incompressibleThreshold = 220
)

// LooksIncompressible applies a byte-histogram heuristic over the first
// min(len(sample), 64 KiB) bytes: count distinct byte values whose
// frequency exceeds sample_len/512; more than 220 such values means the
// data is judged incompressible.
func LooksIncompressible(sample []byte) bool {
	if len(sample) > sampleCap {
		sample = sample[:sampleCap]
	}
	var histogram [256]int
	for _, b := range sample {
		histogram[b]++
	}
	threshold := len(sample) / frequentByteDivisor
	frequent := 0
	for _, count := range histogram {
		if count > threshold {
			frequent++
		}
	}
	return frequent > incompressibleThreshold
}

// DeepProbe is an optional secondary incompressibility check: it runs a
// fast general-purpose compressor over the same sample and reports
// whether it also fails to shrink the data by more than 2%. Only consulted
// when the caller has already decided the mandatory heuristic says
// "compressible" and wants a tie-breaker before committing to LZMA2.
func DeepProbe(sample []byte) (incompressible bool, err error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return false, err
	}
	if _, err := fw.Write(sample); err != nil {
		return false, err
	}
	if err := fw.Close(); err != nil {
		return false, err
	}
	if len(sample) == 0 {
		return false, nil
	}
	shrinkage := 1 - float64(buf.Len())/float64(len(sample))
	return shrinkage <= 0.02, nil
}
