// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the WinChi application.
package util

import "github.com/mattn/go-runewidth"

// UNICODE: All helpers measure display columns, not bytes or runes, so CJK
// and emoji in model names and generated text line up in the sidebar and
// status bar.

const ellipsis = "..."

// TruncateWidth truncates a string to a maximum display width.
// If the string is truncated, "..." is appended within the width budget.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(ellipsis) {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, ellipsis)
}

// FitWidth truncates or right-pads s so it occupies exactly width columns.
func FitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = TruncateWidth(s, width)
	return runewidth.FillRight(s, width)
}

// StringWidth returns the display width of a string.
// Double-width characters (CJK) count as 2 columns.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
