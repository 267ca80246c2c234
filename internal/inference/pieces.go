// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"strings"
	"unicode/utf8"
)

// pieceDecoder joins token pieces into valid UTF-8 fragments.
// A multi-byte character split across tokens is held back until the
// tokens that complete it arrive.
type pieceDecoder struct {
	pending []byte
}

// Push appends piece and returns the longest complete prefix, which may be
// empty.
func (d *pieceDecoder) Push(piece []byte) string {
	d.pending = append(d.pending, piece...)
	n := completeLen(d.pending)
	if n == 0 {
		return ""
	}
	out := string(d.pending[:n])
	rest := copy(d.pending, d.pending[n:])
	d.pending = d.pending[:rest]
	return out
}

// Flush returns whatever is still held back, with invalid bytes replaced.
func (d *pieceDecoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	out := strings.ToValidUTF8(string(d.pending), "�")
	d.pending = d.pending[:0]
	return out
}

// completeLen returns the length of the prefix of b that does not end in a
// truncated multi-byte sequence. Invalid bytes count as complete.
func completeLen(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
