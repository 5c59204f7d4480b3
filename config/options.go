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

// Package config holds the Options struct that drives CreateArchive and
// friends, plus a loader for an optional TOML sidecar file of defaults.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Level is the compression-effort knob.
type Level int

const (
	Store Level = iota
	Fastest
	Fast
	Normal
	Maximum
	Ultra
)

func (l Level) String() string {
	switch l {
	case Store:
		return "Store"
	case Fastest:
		return "Fastest"
	case Fast:
		return "Fast"
	case Normal:
		return "Normal"
	case Maximum:
		return "Maximum"
	case Ultra:
		return "Ultra"
	default:
		return "Unknown"
	}
}

const (
	defaultChunkSize = 64 << 20 // 64 MiB
	defaultDictSize  = 32 << 20 // 32 MiB
)

// Options bundles every knob CreateArchive recognizes. Zero value is not
// meaningful on its own; use OptionsDefaults or config.Load.
type Options struct {
	Level Level `toml:"level"`

	// Threads is accepted and loaded from TOML, but nothing reads it: the
	// LZMA2 encoder is created without a worker count.
	Threads int `toml:"threads"`

	// DictSize overrides the LZMA2 dictionary size in bytes; 0 means the
	// 32 MiB default (the codec engine's encoder exposes no separate
	// per-level sizing table).
	DictSize int `toml:"dict_size"`

	// SplitSize is the per-volume byte limit; 0 means a single-file
	// archive.
	SplitSize int64 `toml:"split_size"`

	// ChunkSize bounds how many bytes the pipeline pulls from the
	// source reader per iteration; 0 means the 64 MiB default.
	ChunkSize int `toml:"chunk_size"`

	// Password enables AES-256-CBC encryption of the packed stream.
	// Encrypted output stays disabled until the salt-in-header layout is
	// settled; setting this field returns Unsupported from CreateArchive
	// today.
	Password string `toml:"-"`

	// Solid is accepted for interface compatibility; the pipeline
	// always treats the folder as solid regardless of this value.
	Solid bool `toml:"solid"`

	// DeepProbe enables the flate-based secondary incompressibility
	// check on top of the byte-histogram heuristic. Default false keeps
	// the Copy/LZMA2 decision purely histogram-driven.
	DeepProbe bool `toml:"deep_probe"`
}

// OptionsDefaults returns the canonical defaults.
func OptionsDefaults() Options {
	return Options{
		Level:     Normal,
		Threads:   0,
		DictSize:  defaultDictSize,
		SplitSize: 0,
		ChunkSize: defaultChunkSize,
		Solid:     true,
		DeepProbe: false,
	}
}

// Normalize fills in zero-valued size fields with their defaults,
// leaving explicit non-zero overrides untouched.
func (o Options) Normalize() Options {
	if o.DictSize <= 0 {
		o.DictSize = defaultDictSize
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	return o
}

// Load reads a TOML sidecar file of Options overrides, starting from
// OptionsDefaults and overwriting only the fields present in the file.
func Load(path string) (Options, error) {
	opts := OptionsDefaults()
	if _, err := os.Stat(path); err != nil {
		return Options{}, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, &opts); err != nil {
		return Options{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return opts, nil
}
