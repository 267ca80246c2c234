// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer wraps a glamour renderer and rebuilds it when the
// wrap width changes.
type markdownRenderer struct {
	style string
	width int
	r     *glamour.TermRenderer
}

func newMarkdownRenderer(style string) *markdownRenderer {
	if style == "" {
		style = "dark"
	}
	return &markdownRenderer{style: style}
}

// Render renders text as markdown wrapped at width.
func (m *markdownRenderer) Render(text string, width int) (string, error) {
	if m.r == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		m.r = r
		m.width = width
	}

	out, err := m.r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
