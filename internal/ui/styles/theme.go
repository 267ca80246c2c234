// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// SidebarWidth is the fixed width of the page list.
const SidebarWidth = 16

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// SIDEBAR STYLES
	// ==========================================================================

	Sidebar           lipgloss.Style
	SidebarBrand      lipgloss.Style
	SidebarItem       lipgloss.Style
	SidebarItemActive lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	Transcript     lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Notice         lipgloss.Style
	ErrorLine      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	PrefixBadge    lipgloss.Style

	// ==========================================================================
	// SETTINGS STYLES
	// ==========================================================================

	SettingsTitle   lipgloss.Style
	SettingsLabel   lipgloss.Style
	SettingsValue   lipgloss.Style
	SettingsFocused lipgloss.Style
	SettingsHint    lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar        lipgloss.Style
	StatusIdle       lipgloss.Style
	StatusGenerating lipgloss.Style
	StatusStopping   lipgloss.Style
	ModelLoaded      lipgloss.Style
	ModelMissing     lipgloss.Style
	Spinner          lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	// Detect terminal capabilities
	colorProfile := termenv.ColorProfile()
	hasTrueColor := colorProfile == termenv.TrueColor
	isDark := termenv.HasDarkBackground()

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: hasTrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		Width(SidebarWidth).
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(1, 1)

	t.SidebarBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		MarginBottom(1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextSecondary).
		PaddingLeft(1)

	t.SidebarItemActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		Background(SurfaceBright).
		PaddingLeft(1)

	// Transcript
	t.Transcript = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald).
		Italic(true)

	t.ErrorLine = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.PrefixBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Amber).
		Padding(0, 1)

	// Settings
	t.SettingsTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)

	t.SettingsLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(14)

	t.SettingsValue = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.SettingsFocused = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.SettingsHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusIdle = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.StatusGenerating = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.StatusStopping = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.ModelLoaded = lipgloss.NewStyle().
		Foreground(Emerald)

	t.ModelMissing = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
}

// GlamourStyle returns the glamour standard style matching the terminal
// background.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// GenerationSpinner is the busy indicator shown while a reply streams.
// ASCII frames keep it legible on every terminal.
var GenerationSpinner = spinner.Spinner{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    time.Second / 10,
}
