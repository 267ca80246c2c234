// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
	"github.com/Bankaii7723/WinChi/internal/session"
	"github.com/Bankaii7723/WinChi/internal/util"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.bridge.RequestStop()
		m.cancelMgr.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop) && m.state == StateGenerating:
		return m.stopGeneration()

	case m.settings.picking:
		return m.updatePicker(msg)

	case key.Matches(msg, m.keys.SwitchPage):
		if m.page == PageChat {
			m.setPage(PageSettings)
		} else {
			m.setPage(PageChat)
		}
		return m, nil

	case key.Matches(msg, m.keys.ELI5):
		return m.applyQuickAction(0)
	case key.Matches(msg, m.keys.Thorough):
		return m.applyQuickAction(1)
	case key.Matches(msg, m.keys.Efficient):
		return m.applyQuickAction(2)

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.page == PageSettings {
		return m.handleSettingsKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Stop):
		// Esc while idle drops a pending quick action
		if m.params.Prefix() != "" {
			m.params.ClearPrefix()
			m.status = "Quick action cleared"
			m.layout()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyQuickAction sets the prefix for the next request.
func (m Model) applyQuickAction(i int) (tea.Model, tea.Cmd) {
	action := session.QuickActions[i]
	m.params.SetPrefix(action.Prefix)
	m.status = "Next message: " + action.Name
	m.setPage(PageChat)
	m.layout()
	return m, nil
}

// =============================================================================
// GENERATION
// =============================================================================

// submit starts a generation for the input text.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if m.state != StateIdle {
		m.reject("submit")
		return m, nil
	}
	if m.loading {
		m.transcript.AddNotice(loadingMessage)
		m.refreshTranscript(true)
		return m, nil
	}
	if m.model == nil {
		m.transcript.AddNotice(noModelMessage)
		m.refreshTranscript(true)
		return m, nil
	}

	req := m.params.BuildRequest(text)
	m.bridge.ClearStop()
	m.bridge.Reset()
	m.transcript.AddExchange(req.Text)
	m.input.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	done := m.cancelMgr.set(req.ID, cancel)
	m.activeID = req.ID
	m.state = StateGenerating
	m.genStart = time.Now()
	m.status = ""

	log.Printf("GENERATION_START | id=%s model=%s max_tokens=%d temperature=%s prefixed=%t",
		req.ShortID(), m.model.Name(), req.MaxTokens, util.FormatTemperature(req.Temperature), req.Prompt != req.Text)

	m.layout()
	m.refreshTranscript(true)
	return m, tea.Batch(generateCmd(ctx, m.model, req, m.bridge, done), m.spinner.Tick)
}

// stopGeneration asks the running task to stop at its next fragment.
func (m Model) stopGeneration() (tea.Model, tea.Cmd) {
	m.bridge.RequestStop()
	m.cancelMgr.cancel()
	m.state = StateStopping
	log.Printf("GENERATION_STOP_REQUESTED | id=%s", shortID(m.activeID))
	return m, nil
}

// reject refuses an action that would overlap the running generation.
func (m *Model) reject(action string) {
	m.transcript.AddNotice(busyMessage)
	m.refreshTranscript(true)
	log.Printf("REQUEST_REJECTED | action=%s state=%s", action, m.state)
}

// handleTick drains the bridge into the open reply and schedules the next
// tick. It runs in every state.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.drain()
	return m, tickCmd(m.cfg.TickInterval())
}

// drain appends all queued fragments, in order, and follows the output.
func (m *Model) drain() {
	frags := m.bridge.DrainAll()
	if len(frags) == 0 {
		return
	}
	if m.transcript.AppendReply(strings.Join(frags, "")) {
		m.refreshTranscript(true)
	}
}

func (m Model) handleGenerationDone(msg GenerationDoneMsg) (tea.Model, tea.Cmd) {
	if msg.RequestID != m.activeID {
		return m, nil
	}

	m.drain()
	m.transcript.FinishReply()
	m.cancelMgr.clear(msg.RequestID)
	m.activeID = ""
	m.state = StateIdle

	res := msg.Result
	id := shortID(msg.RequestID)
	switch {
	case res.Err != nil:
		m.transcript.AddError("Error generating text: " + res.Err.Error())
		m.status = ""
		log.Printf("GENERATION_ERROR | id=%s fragments=%d error=%v", id, res.Fragments, res.Err)
	case res.Stopped:
		m.status = "Stopped"
		log.Printf("GENERATION_STOPPED | id=%s fragments=%d elapsed_ms=%d", id, res.Fragments, res.Elapsed.Milliseconds())
	default:
		m.status = ""
		log.Printf("GENERATION_DONE | id=%s fragments=%d chars=%d elapsed_ms=%d",
			id, res.Fragments, len(m.transcript.LastReply()), res.Elapsed.Milliseconds())
	}

	m.refreshTranscript(true)
	return m, nil
}

// =============================================================================
// MODEL LOADING
// =============================================================================

// requestLoad starts loading the model at path.
func (m Model) requestLoad(path string) (tea.Model, tea.Cmd) {
	path = modelfile.ExpandPath(path)
	if path == "" {
		m.status = "Enter a model path first"
		return m, nil
	}
	if m.state != StateIdle {
		m.reject("load")
		return m, nil
	}
	if m.loading {
		m.status = "A model is already loading"
		return m, nil
	}

	m.loading = true
	m.status = "Loading " + inference.DisplayName(path) + "..."
	return m, loadModelCmd(m.engine, path)
}

func (m Model) handleModelLoaded(msg ModelLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false

	if msg.Err != nil {
		m.status = ""
		m.transcript.AddError("Error loading model: " + msg.Err.Error())
		m.refreshTranscript(true)
		log.Printf("MODEL_LOAD_FAILED | path=%s error=%v", msg.Path, msg.Err)
		return m, nil
	}

	var cmds []tea.Cmd
	if m.model != nil {
		cmds = append(cmds, closeModelCmd(m.model))
	}
	m.model = msg.Model

	name := inference.DisplayName(msg.Path)
	m.transcript.Clear()
	m.transcript.AddNotice("Model loaded: " + name)
	m.settings.pathInput.SetValue(msg.Path)
	m.status = ""
	backend := ""
	if m.engine != nil {
		backend = m.engine.Name()
	}
	log.Printf("MODEL_LOAD | path=%s name=%s backend=%s", msg.Path, name, backend)

	if cmd := m.watchModel(msg.Path); cmd != nil {
		cmds = append(cmds, cmd)
	}

	m.setPage(PageChat)
	m.layout()
	m.refreshTranscript(true)
	return m, tea.Batch(cmds...)
}

// watchModel replaces the model file watcher. Returns nil when watching is
// disabled or fails.
func (m *Model) watchModel(path string) tea.Cmd {
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
	}
	if !m.cfg.UI.WatchModel {
		return nil
	}

	w, err := modelfile.NewWatcher(path, watchDebounce)
	if err != nil {
		log.Printf("MODEL_WATCH_FAILED | path=%s error=%v", path, err)
		return nil
	}
	m.watcher = w
	return waitForModelChange(w)
}

func (m Model) handleModelFileChanged(msg ModelFileChangedMsg) (tea.Model, tea.Cmd) {
	if msg.watcher == nil || msg.watcher != m.watcher {
		return m, nil
	}

	m.transcript.AddNotice(changedMessage)
	m.refreshTranscript(true)
	log.Printf("MODEL_FILE_CHANGED | path=%s kind=%s", msg.Change.Path, msg.Change.Kind)
	return m, waitForModelChange(m.watcher)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
