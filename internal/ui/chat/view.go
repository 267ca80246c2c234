// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/session"
	"github.com/Bankaii7723/WinChi/internal/ui/styles"
	"github.com/Bankaii7723/WinChi/internal/util"
)

// View renders the UI shell.
func (m Model) View() string {
	if !m.ready {
		return "Starting WinChi..."
	}

	var page string
	switch m.page {
	case PageSettings:
		page = m.renderSettings()
	default:
		page = m.renderChat()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), page)
	parts := []string{body, m.renderStatusBar()}
	if h := m.renderHelp(); h != "" {
		parts = append(parts, h)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.SidebarBrand.Render("WinChi"))
	b.WriteString("\n")

	itemWidth := styles.SidebarWidth - m.theme.Sidebar.GetHorizontalFrameSize() + 1
	for p := PageChat; p <= PageSettings; p++ {
		label := util.FitWidth(p.String(), itemWidth-1)
		if p == m.page {
			b.WriteString(m.theme.SidebarItemActive.Render(label))
		} else {
			b.WriteString(m.theme.SidebarItem.Render(label))
		}
		b.WriteString("\n")
	}

	h := m.bodyHeight()
	return m.theme.Sidebar.Height(h).MaxHeight(h).Render(strings.TrimRight(b.String(), "\n"))
}

// =============================================================================
// CHAT PAGE
// =============================================================================

func (m Model) renderChat() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.renderInput())
}

// renderInput renders the pending quick action line above the entry field.
// The line is always present so the layout height does not change.
func (m Model) renderInput() string {
	var badge string
	if prefix := m.params.Prefix(); prefix != "" {
		badge = m.theme.PrefixBadge.Render(session.PrefixLabel(prefix)) +
			m.theme.SettingsHint.Render("  Esc to clear")
	} else {
		badge = m.theme.SettingsHint.Render("F1 like I'm 5 · F2 thoroughly · F3 efficiently")
	}

	width := m.pageWidth()
	return m.theme.InputContainer.Width(width).Render(badge + "\n" + m.input.View())
}

// =============================================================================
// SETTINGS PAGE
// =============================================================================

func (m Model) renderSettings() string {
	t := m.theme
	s := m.settings

	row := func(field settingsField, label, value, hint string) string {
		marker := "  "
		valueStyle := t.SettingsValue
		if s.focus == field {
			marker = t.SettingsFocused.Render("> ")
			valueStyle = t.SettingsFocused
		}
		line := marker + t.SettingsLabel.Render(label) + valueStyle.Render(value)
		if hint != "" {
			line += "  " + t.SettingsHint.Render(hint)
		}
		return line
	}

	lines := []string{
		t.SettingsTitle.Render("Settings"),
		row(fieldTokens, "Max tokens", util.FormatTokens(m.params.MaxTokens()),
			fmt.Sprintf("%d-%d, ←/→ ±%d, shift ±%d", config.MinMaxTokens, config.MaxMaxTokens, tokenStep, tokenStepBig)),
		row(fieldTemperature, "Temperature", util.FormatTemperature(m.params.Temperature()),
			fmt.Sprintf("%s-%s, ←/→ ±0.1, shift ±0.5",
				util.FormatTemperature(config.MinTemperature), util.FormatTemperature(config.MaxTemperature))),
		row(fieldPath, "Model file", s.pathInput.View(), "Enter to load"),
		row(fieldBrowse, "", "[ Browse... ]", "Enter to pick a .gguf or .bin file"),
		"",
		"  " + t.SettingsLabel.Render("Loaded") + m.renderModelName(),
	}
	if m.engine != nil {
		lines = append(lines, "  "+t.SettingsLabel.Render("Backend")+t.SettingsValue.Render(m.engine.Name()))
	}

	if s.picking {
		lines = append(lines,
			"",
			t.SettingsTitle.Render("Select a model file")+"  "+t.SettingsHint.Render("Esc to close"),
			t.SettingsHint.Render(util.TruncateWidth(s.picker.CurrentDirectory, m.pageWidth()-4)),
			s.picker.View(),
		)
	}

	h := m.bodyHeight()
	return lipgloss.NewStyle().
		Width(m.pageWidth()).
		Height(h).
		MaxHeight(h).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderModelName() string {
	switch {
	case m.loading:
		return m.theme.ModelMissing.Render("loading...")
	case m.model != nil:
		return m.theme.ModelLoaded.Render(m.model.Name())
	default:
		return m.theme.ModelMissing.Render("none")
	}
}

// =============================================================================
// STATUS BAR AND HELP
// =============================================================================

func (m Model) renderStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var state string
	switch m.state {
	case StateGenerating:
		state = m.spinner.View() + " " + m.theme.StatusGenerating.Render("Generating")
	case StateStopping:
		state = m.theme.StatusStopping.Render("Stopping")
	default:
		state = m.theme.StatusIdle.Render("Idle")
	}

	model := "no model"
	switch {
	case m.loading:
		model = "loading..."
	case m.model != nil:
		model = m.model.Name()
	}
	parts := []string{model,
		"tokens " + util.FormatTokens(m.params.MaxTokens()),
		"temp " + util.FormatTemperature(m.params.Temperature()),
	}
	if n := m.bridge.Pending(); n > 0 && m.state != StateIdle {
		parts = append(parts, fmt.Sprintf("%d queued", n))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}

	budget := width - m.theme.StatusBar.GetHorizontalFrameSize() - lipgloss.Width(state) - 3
	rest := util.TruncateWidth(strings.Join(parts, " | "), budget)

	return m.theme.StatusBar.Width(width).MaxWidth(width).Render(state + " | " + rest)
}

func (m Model) renderHelp() string {
	return m.help.View(m.keys)
}
