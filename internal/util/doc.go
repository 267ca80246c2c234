// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the WinChi application.
//
// This package contains small display helpers shared by the terminal UI
// and the line-mode commands.
//
// # Key Functions
//
//   - TruncateWidth: display-width aware truncation with ellipsis
//   - FitWidth: truncate or pad to an exact column count
//   - FormatTemperature, FormatTokens: settings value formatting
//
// # Usage
//
//	// Truncate long model names for the sidebar
//	label := util.TruncateWidth(name, 16)
package util
