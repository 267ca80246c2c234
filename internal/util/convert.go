// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the WinChi application.
package util

import "strconv"

// FormatTemperature formats a sampling temperature with one decimal place,
// matching the 0.1 step of the settings control.
func FormatTemperature(t float64) string {
	return strconv.FormatFloat(t, 'f', 1, 64)
}

// FormatTokens formats a token count for display.
func FormatTokens(n int) string {
	return strconv.Itoa(n)
}
