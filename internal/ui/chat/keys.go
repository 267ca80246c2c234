// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the UI shell.
type KeyMap struct {
	// Global
	Submit     key.Binding
	Stop       key.Binding
	SwitchPage key.Binding
	ELI5       key.Binding
	Thorough   key.Binding
	Efficient  key.Binding
	Help       key.Binding
	Quit       key.Binding

	// Transcript scrolling
	PageUp   key.Binding
	PageDown key.Binding

	// Settings page
	Up          key.Binding
	Down        key.Binding
	Decrease    key.Binding
	Increase    key.Binding
	DecreaseBig key.Binding
	IncreaseBig key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop"),
		),
		SwitchPage: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "chat/settings"),
		),
		ELI5: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "like I'm 5"),
		),
		Thorough: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("F2", "thoroughly"),
		),
		Efficient: key.NewBinding(
			key.WithKeys("f3"),
			key.WithHelp("F3", "efficiently"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next"),
		),
		Decrease: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "decrease"),
		),
		Increase: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "increase"),
		),
		DecreaseBig: key.NewBinding(
			key.WithKeys("shift+left"),
			key.WithHelp("S-←", "decrease more"),
		),
		IncreaseBig: key.NewBinding(
			key.WithKeys("shift+right"),
			key.WithHelp("S-→", "increase more"),
		),
	}
}

// =============================================================================
// HELP INTERFACE (bubbles/help.KeyMap)
// =============================================================================

// ShortHelp returns the bindings shown in the one-line help.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Stop, k.SwitchPage, k.ELI5, k.Thorough, k.Efficient, k.Quit}
}

// FullHelp returns all bindings grouped into columns.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Stop, k.PageUp, k.PageDown},
		{k.ELI5, k.Thorough, k.Efficient},
		{k.Up, k.Down, k.Decrease, k.Increase, k.DecreaseBig, k.IncreaseBig},
		{k.SwitchPage, k.Help, k.Quit},
	}
}
