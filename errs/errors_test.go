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
	"strings"
	"testing"
)

func TestErrorIsMatchesSentinel(t *testing.T) {
	t.Parallel()

	err := New(KindCorruptData, "crc mismatch", nil).WithFile("a.txt").WithOffset(42)
	if !errors.Is(err, ErrCorruptData) {
		t.Fatalf("expected errors.Is to match ErrCorruptData, got %v", err)
	}
	if errors.Is(err, ErrOpenFailed) {
		t.Fatalf("did not expect errors.Is to match ErrOpenFailed")
	}
}

func TestErrorMessageIncludesContext(t *testing.T) {
	t.Parallel()

	err := New(KindCorruptArchive, "bad magic", nil).WithFile("x.7z").WithOffset(0)
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	for _, want := range []string{"CorruptArchive", "bad magic", "x.7z", "offset 0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestLastErrorFirstWins(t *testing.T) {
	t.Parallel()

	var le LastError
	le.Clear()
	le.SetFromError(New(KindIORead, "first", nil))
	le.SetFromError(New(KindIOWrite, "second", nil))

	ctx, ok := le.Get()
	if !ok {
		t.Fatal("expected a recorded context")
	}
	if ctx.Kind != KindIORead || ctx.Message != "first" {
		t.Fatalf("expected first error to win, got %+v", ctx)
	}
}

func TestLastErrorClear(t *testing.T) {
	t.Parallel()

	var le LastError
	le.SetFromError(New(KindCanceled, "stop", nil))
	le.Clear()

	if _, ok := le.Get(); ok {
		t.Fatal("expected no context after Clear")
	}
}
