// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"path/filepath"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
)

// Coarse steps for shift+←/→.
const (
	tokenStep       = 1
	tokenStepBig    = 64
	temperatureBig  = 5 // in 0.1 steps
	temperatureStep = 1
)

// settingsField is a focusable control on the settings page.
type settingsField int

const (
	fieldTokens settingsField = iota
	fieldTemperature
	fieldPath
	fieldBrowse
	fieldCount
)

// settingsPage holds the state of the settings page controls.
type settingsPage struct {
	focus     settingsField
	pathInput textinput.Model
	picker    filepicker.Model
	picking   bool
	startDir  string
}

func newSettingsPage(cfg *config.Config) settingsPage {
	in := textinput.New()
	in.Placeholder = "/path/to/model.gguf"
	in.Prompt = ""
	in.CharLimit = 4096
	if cfg.Inference.ModelPath != "" {
		in.SetValue(cfg.Inference.ModelPath)
	}

	fp := filepicker.New()
	fp.AllowedTypes = append([]string(nil), modelfile.Extensions...)
	fp.AutoHeight = false
	fp.Height = 10
	fp.ShowPermissions = false

	return settingsPage{
		pathInput: in,
		picker:    fp,
		startDir:  cfg.UI.ModelDir,
	}
}

// syncFocus focuses the path field when it is the selected control.
func (s *settingsPage) syncFocus() {
	if s.focus == fieldPath {
		s.pathInput.Focus()
	} else {
		s.pathInput.Blur()
	}
}

func (s *settingsPage) blur() {
	s.pathInput.Blur()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.settings

	switch {
	case key.Matches(msg, m.keys.Up):
		s.focus = (s.focus + fieldCount - 1) % fieldCount
		s.syncFocus()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		s.focus = (s.focus + 1) % fieldCount
		s.syncFocus()
		return m, nil
	}

	switch s.focus {
	case fieldTokens:
		if delta, ok := m.adjustment(msg, tokenStep, tokenStepBig); ok {
			m.params.StepMaxTokens(delta)
		}
		return m, nil

	case fieldTemperature:
		if steps, ok := m.adjustment(msg, temperatureStep, temperatureBig); ok {
			m.params.StepTemperature(steps)
		}
		return m, nil

	case fieldPath:
		if key.Matches(msg, m.keys.Submit) {
			return m.requestLoad(s.pathInput.Value())
		}
		var cmd tea.Cmd
		s.pathInput, cmd = s.pathInput.Update(msg)
		return m, cmd

	case fieldBrowse:
		if key.Matches(msg, m.keys.Submit) {
			return m.openPicker()
		}
	}
	return m, nil
}

// adjustment maps ←/→ (and their shifted forms) to a signed step.
func (m Model) adjustment(msg tea.KeyMsg, small, big int) (int, bool) {
	switch {
	case key.Matches(msg, m.keys.Decrease):
		return -small, true
	case key.Matches(msg, m.keys.Increase):
		return small, true
	case key.Matches(msg, m.keys.DecreaseBig):
		return -big, true
	case key.Matches(msg, m.keys.IncreaseBig):
		return big, true
	}
	return 0, false
}

// =============================================================================
// FILE PICKER
// =============================================================================

func (m Model) openPicker() (tea.Model, tea.Cmd) {
	if m.state != StateIdle {
		m.reject("load")
		return m, nil
	}

	dir := m.settings.startDir
	if p := modelfile.ExpandPath(m.settings.pathInput.Value()); p != "" {
		dir = filepath.Dir(p)
	}
	m.settings.picker.CurrentDirectory = modelfile.StartDir(dir)
	m.settings.picking = true
	return m, m.settings.picker.Init()
}

// updatePicker routes keys to the open file picker. Esc closes it.
func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.settings.picking = false
		return m, nil
	}

	var cmd tea.Cmd
	m.settings.picker, cmd = m.settings.picker.Update(msg)

	if ok, path := m.settings.picker.DidSelectFile(msg); ok {
		m.settings.picking = false
		m.settings.startDir = filepath.Dir(path)
		m.settings.pathInput.SetValue(path)
		next, loadCmd := m.requestLoad(path)
		return next, tea.Batch(cmd, loadCmd)
	}
	if ok, path := m.settings.picker.DidSelectDisabledFile(msg); ok {
		m.status = filepath.Base(path) + " is not a .gguf or .bin file"
	}
	return m, cmd
}
