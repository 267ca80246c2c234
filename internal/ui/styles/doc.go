// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the WinChi TUI.
//
// # Key Types
//
//   - Theme: Lip Gloss styles for every part of the screen
//
// Colors are AdaptiveColor values, so light and dark terminals both read
// well without configuration.
//
// # Usage
//
//	theme := styles.NewTheme()
//	label := theme.UserLabel.Render("User:")
package styles
