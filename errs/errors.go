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

// Package errs defines the typed error kinds shared by the writer and
// reader, plus the instance-scoped last-error context.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way callers of the public API branch on
// it, independent of the wrapped Go error chain.
type Kind int

const (
	// KindInvalidParam indicates a null/empty required input or a
	// nonsensical option combination.
	KindInvalidParam Kind = iota
	// KindOpenFailed indicates a missing or unreadable input, or an
	// unwritable output.
	KindOpenFailed
	// KindIORead indicates a short or failed read at a codec boundary.
	KindIORead
	// KindIOWrite indicates a short or failed write at a codec boundary.
	KindIOWrite
	// KindCorruptArchive indicates a bad magic, version, CRC mismatch on
	// the Signature Header or Header Block, or a malformed TLV.
	KindCorruptArchive
	// KindCorruptData indicates a codec error or per-file CRC mismatch in
	// the extract loop.
	KindCorruptData
	// KindWrongPasswordOrCorrupt indicates the PKCS#7 padding check
	// failed during AES decryption.
	KindWrongPasswordOrCorrupt
	// KindOutOfMemory indicates an allocation was refused.
	KindOutOfMemory
	// KindCanceled indicates the progress sink requested cancellation.
	KindCanceled
	// KindUnsupported indicates a coder or property combination isn't
	// implemented (encrypted header, BCJ filters, ...).
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParam:
		return "InvalidParam"
	case KindOpenFailed:
		return "OpenFailed"
	case KindIORead:
		return "IoRead"
	case KindIOWrite:
		return "IoWrite"
	case KindCorruptArchive:
		return "CorruptArchive"
	case KindCorruptData:
		return "CorruptData"
	case KindWrongPasswordOrCorrupt:
		return "WrongPasswordOrCorrupt"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindCanceled:
		return "Canceled"
	case KindUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across the public surface. It
// carries enough context for a caller to report a useful message without
// re-deriving it from the wrapped error.
type Error struct {
	Kind       Kind
	Message    string
	FileName   string // file_context, empty if not applicable
	ByteOffset int64  // -1 if not known
	Suggestion string
	Err        error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.FileName != "" {
		msg = fmt.Sprintf("%s (file %q)", msg, e.FileName)
	}
	if e.ByteOffset >= 0 {
		msg = fmt.Sprintf("%s (offset %d)", msg, e.ByteOffset)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind, so callers can
// write errors.Is(err, errs.ErrCorruptData) instead of a type switch.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && errors.Is(target, sentinel)
}

// New builds an *Error with ByteOffset left unset (-1).
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, ByteOffset: -1, Err: cause}
}

// WithFile returns a copy of e annotated with a file_context.
func (e *Error) WithFile(name string) *Error {
	cp := *e
	cp.FileName = name
	return &cp
}

// WithOffset returns a copy of e annotated with a byte offset.
func (e *Error) WithOffset(offset int64) *Error {
	cp := *e
	cp.ByteOffset = offset
	return &cp
}

// Sentinel errors, one per Kind, for use with errors.Is against a plain
// error value (e.g. a wrapped cause returned from a lower layer that
// doesn't build a full *Error).
var (
	ErrInvalidParam           = errors.New("invalid parameter")
	ErrOpenFailed             = errors.New("open failed")
	ErrIORead                 = errors.New("io read error")
	ErrIOWrite                = errors.New("io write error")
	ErrCorruptArchive         = errors.New("corrupt archive")
	ErrCorruptData            = errors.New("corrupt data")
	ErrWrongPasswordOrCorrupt = errors.New("wrong password or corrupt data")
	ErrOutOfMemory            = errors.New("out of memory")
	ErrCanceled               = errors.New("canceled")
	ErrUnsupported            = errors.New("unsupported")
)

var kindSentinels = map[Kind]error{
	KindInvalidParam:           ErrInvalidParam,
	KindOpenFailed:             ErrOpenFailed,
	KindIORead:                 ErrIORead,
	KindIOWrite:                ErrIOWrite,
	KindCorruptArchive:         ErrCorruptArchive,
	KindCorruptData:            ErrCorruptData,
	KindWrongPasswordOrCorrupt: ErrWrongPasswordOrCorrupt,
	KindOutOfMemory:            ErrOutOfMemory,
	KindCanceled:               ErrCanceled,
	KindUnsupported:            ErrUnsupported,
}
