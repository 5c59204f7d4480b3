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

package errs

import (
	"errors"
	"sync/atomic"
)

// Context is a snapshot of the most recent error encountered by one
// archive-writer or archive-reader instance.
type Context struct {
	Kind       Kind
	Message    string
	FileName   string
	ByteOffset int64
	Suggestion string
}

// LastError holds the last-error context for a single writer or reader
// instance. Go has no supported OS-thread-local primitive; each instance
// already owns all of its own state (no concurrent readers/writers of the
// same archive), so an instance-scoped atomic slot gives the same
// "per caller, no locking" guarantee. Embed a LastError by value in a
// writer/reader struct.
type LastError struct {
	ptr atomic.Pointer[Context]
}

// Clear resets the context. Called at the start of every public operation.
func (l *LastError) Clear() {
	l.ptr.Store(nil)
}

// Set records ctx as the last error, but only if no error has been recorded
// since the last Clear (the first error encountered wins).
func (l *LastError) Set(ctx Context) {
	l.ptr.CompareAndSwap(nil, &ctx)
}

// SetFromError records err's kind, message and offset. A wrapped *Error
// anywhere in err's chain supplies the full context; otherwise the kind is
// recovered from whichever sentinel the chain matches.
func (l *LastError) SetFromError(err error) {
	if err == nil {
		return
	}
	var e *Error
	if !errors.As(err, &e) {
		e = New(kindOf(err), err.Error(), err)
	}
	l.Set(Context{
		Kind:       e.Kind,
		Message:    e.Message,
		FileName:   e.FileName,
		ByteOffset: e.ByteOffset,
		Suggestion: e.Suggestion,
	})
}

// kindOf maps a plain error chain to a Kind via the sentinel it wraps.
func kindOf(err error) Kind {
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindCorruptData
}

// Get returns the last recorded context, or the zero Context if none was
// recorded since the last Clear.
func (l *LastError) Get() (Context, bool) {
	p := l.ptr.Load()
	if p == nil {
		return Context{}, false
	}
	return *p, true
}
