// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/inference/inferencetest"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
	"github.com/Bankaii7723/WinChi/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	tabKey   = tea.KeyMsg{Type: tea.KeyTab}
	f1Key    = tea.KeyMsg{Type: tea.KeyF1}
)

func newTestModel(t *testing.T, engine inference.Engine) Model {
	t.Helper()
	cfg := config.Default()
	cfg.UI.WatchModel = false
	cfg.UI.RenderMarkdown = false

	m := New(Options{Engine: engine, Config: cfg, Theme: styles.NewTheme()})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func writeModelFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("GGUF"), 0o644))
	return path
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// load runs a model load to completion.
func load(t *testing.T, m Model, path string) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.requestLoad(path)
	require.NotNil(t, cmd)
	return update(next.(Model), cmd())
}

func send(m Model, text string) (Model, tea.Cmd) {
	m.input.SetValue(text)
	return update(m, enterKey)
}

// launch runs cmd and any batched commands in the background and delivers
// the generation result.
func launch(cmd tea.Cmd) <-chan GenerationDoneMsg {
	out := make(chan GenerationDoneMsg, 1)
	var run func(c tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() {
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, sub := range batch {
					run(sub)
				}
				return
			}
			if done, ok := msg.(GenerationDoneMsg); ok {
				out <- done
			}
		}()
	}
	run(cmd)
	return out
}

func wait(t *testing.T, ch <-chan GenerationDoneMsg) GenerationDoneMsg {
	t.Helper()
	select {
	case done := <-ch:
		return done
	case <-time.After(5 * time.Second):
		t.Fatal("generation task did not finish")
		return GenerationDoneMsg{}
	}
}

// runSync executes cmd, flattening batches, and returns the messages.
// Only for commands that do not block.
func runSync(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, sub := range batch {
			out = append(out, runSync(sub)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func tick(m Model) Model {
	m, _ = update(m, TickMsg(time.Now()))
	return m
}

// =============================================================================
// GENERATION FLOW
// =============================================================================

func TestSubmit_StreamsReplyIntoTranscript(t *testing.T) {
	engine := &inferencetest.Engine{Fragments: []string{"Hi", " there", "!"}}
	m := newTestModel(t, engine)
	m, _ = load(t, m, writeModelFile(t, "tiny.gguf"))
	assert.Equal(t, "Model loaded: tiny.gguf", m.Transcript().String())

	m, cmd := send(m, "Hello")
	require.NotNil(t, cmd)
	assert.Equal(t, StateGenerating, m.State())
	assert.Empty(t, m.input.Value())
	assert.Equal(t, "Model loaded: tiny.gguf\nUser: Hello\nAssistant: ", m.Transcript().String())

	done := wait(t, launch(cmd))
	m = tick(m)
	m, _ = update(m, done)

	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, "Model loaded: tiny.gguf\nUser: Hello\nAssistant: Hi there!", m.Transcript().String())
	assert.Equal(t, 3, done.Result.Fragments)

	calls := engine.Models()[0].Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Hello", calls[0].Prompt)
	assert.Equal(t, 256, calls[0].Config.MaxTokens)
	assert.InDelta(t, 0.7, calls[0].Config.Temperature, 1e-9)
	assert.True(t, calls[0].Config.Streaming)
}

func TestSubmit_NoModelLoaded(t *testing.T) {
	m := newTestModel(t, &inferencetest.Engine{})

	m, cmd := send(m, "Hello")

	assert.Nil(t, cmd)
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, noModelMessage, m.Transcript().String())
	assert.Equal(t, 0, m.Bridge().Pending())
}

func TestSubmit_EmptyInputIgnored(t *testing.T) {
	m := newTestModel(t, &inferencetest.Engine{})

	m, cmd := send(m, "   ")

	assert.Nil(t, cmd)
	assert.Equal(t, 0, m.Transcript().Len())
}

func TestQuickAction_PrefixesNextPromptOnce(t *testing.T) {
	engine := &inferencetest.Engine{Fragments: []string{"Stars collapse."}}
	m := newTestModel(t, engine)
	m, _ = load(t, m, writeModelFile(t, "tiny.gguf"))

	m, _ = update(m, f1Key)
	assert.Equal(t, "Explain simply like I'm 5: ", m.Params().Prefix())

	m, cmd := send(m, "black holes")
	m, _ = update(m, wait(t, launch(cmd)))

	calls := engine.Models()[0].Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Explain simply like I'm 5: black holes", calls[0].Prompt)
	assert.Empty(t, m.Params().Prefix())
	assert.Contains(t, m.Transcript().String(), "User: black holes\n")
	assert.Contains(t, m.Transcript().String(), "Assistant: Stars collapse.")
}

func TestQuickAction_EscClearsPendingPrefix(t *testing.T) {
	m := newTestModel(t, &inferencetest.Engine{})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyF3})
	require.NotEmpty(t, m.Params().Prefix())

	m, _ = update(m, escKey)
	assert.Empty(t, m.Params().Prefix())
}

func TestStop_NoFragmentsAfterStop(t *testing.T) {
	gate := make(chan struct{})
	engine := &inferencetest.Engine{Fragments: []string{"one ", "two ", "three ", "four "}, Gate: gate}
	m := newTestModel(t, engine)
	m, _ = load(t, m, writeModelFile(t, "tiny.gguf"))

	m, cmd := send(m, "count")
	results := launch(cmd)

	gate <- struct{}{}
	gate <- struct{}{}
	require.Eventually(t, func() bool { return m.Bridge().Pending() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, m.View(), "2 queued")
	m = tick(m)
	assert.Equal(t, "one two ", m.Transcript().LastReply())
	assert.NotContains(t, m.View(), "queued")

	m, _ = update(m, escKey)
	assert.Equal(t, StateStopping, m.State())

	done := wait(t, results)
	assert.True(t, done.Result.Stopped)
	assert.NoError(t, done.Result.Err)

	m = tick(m)
	m, _ = update(m, done)

	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, "one two ", m.Transcript().LastReply())
	assert.NotContains(t, m.Transcript().String(), "Error generating text")
}

func TestClose_WaitsForRunningGeneration(t *testing.T) {
	gate := make(chan struct{})
	engine := &inferencetest.Engine{Fragments: []string{"one ", "two "}, Gate: gate}
	m := newTestModel(t, engine)
	m, _ = load(t, m, writeModelFile(t, "tiny.gguf"))

	m, cmd := send(m, "count")
	results := launch(cmd)

	gate <- struct{}{}
	require.Eventually(t, func() bool { return m.Bridge().Pending() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Quit while the task is blocked in the stream, then release as main does
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	m.Close()

	model := engine.Models()[0]
	assert.True(t, model.Closed())
	assert.False(t, model.ClosedWhileStreaming(), "model released while the task still held its stream")
	assert.True(t, wait(t, results).Result.Stopped)
}

func TestSubmit_RejectedWhileGenerating(t *testing.T) {
	gate := make(chan struct{})
	engine := &inferencetest.Engine{Fragments: []string{"x"}, Gate: gate}
	m := newTestModel(t, engine)
	m, _ = load(t, m, writeModelFile(t, "tiny.gguf"))

	m, cmd := send(m, "first")
	results := launch(cmd)
	m.Params().SetPrefix("Summarize: ")

	m, second := send(m, "second")
	assert.Nil(t, second)
	assert.Equal(t, StateGenerating, m.State())
	assert.Equal(t, "second", m.input.Value())
	assert.Equal(t, "Summarize: ", m.Params().Prefix())
	assert.Contains(t, m.Transcript().String(), busyMessage)

	// Loading a different model is refused as well
	next, loadCmd := m.requestLoad(writeModelFile(t, "other.gguf"))
	m = next.(Model)
	assert.Nil(t, loadCmd)
	assert.Len(t, engine.Models(), 1)

	m, _ = update(m, escKey)
	m, _ = update(m, wait(t, results))
	assert.Equal(t, StateIdle, m.State())

	require.Eventually(t, func() bool { return len(engine.Models()[0].Calls()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestSubmit_ParameterChangeDoesNotAlterRunningRequest(t *testing.T) {
	gate := make(chan struct{})
	engine := &inferencetest.Engine{Fragments: []string{"a"}, Gate: gate}
	m := newTestModel(t, engine)
	m, _ = load(t, m, writeModelFile(t, "tiny.gguf"))

	m, cmd := send(m, "hi")
	results := launch(cmd)
	m.Params().SetMaxTokens(10)
	m.Params().SetTemperature(1.9)

	gate <- struct{}{}
	gate <- struct{}{}
	m, _ = update(m, wait(t, results))

	calls := engine.Models()[0].Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 256, calls[0].Config.MaxTokens)
	assert.InDelta(t, 0.7, calls[0].Config.Temperature, 1e-9)
	assert.Equal(t, "a", m.Transcript().LastReply())
}

func TestGenerationError_ShownAfterPartialReply(t *testing.T) {
	engine := &inferencetest.Engine{Fragments: []string{"partial"}, GenErr: errors.New("decode failed")}
	m := newTestModel(t, engine)
	m, _ = load(t, m, writeModelFile(t, "tiny.gguf"))

	m, cmd := send(m, "go")
	m, _ = update(m, wait(t, launch(cmd)))

	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t,
		"Model loaded: tiny.gguf\nUser: go\nAssistant: partial\nError generating text: decode failed",
		m.Transcript().String())
}

func TestGenerationDone_StaleRequestIgnored(t *testing.T) {
	m := newTestModel(t, &inferencetest.Engine{})
	m.Bridge().Enqueue("stale")

	m, _ = update(m, GenerationDoneMsg{RequestID: "not-active"})

	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, 0, m.Transcript().Len())
}

func TestTick_ReschedulesInEveryState(t *testing.T) {
	m := newTestModel(t, &inferencetest.Engine{})
	_, cmd := update(m, TickMsg(time.Now()))
	assert.NotNil(t, cmd)
}

// =============================================================================
// MODEL LOADING
// =============================================================================

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("x"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "ghost.gguf")},
		{"wrong extension", notes},
		{"directory", dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, &inferencetest.Engine{})
			m, _ = load(t, m, tt.path)

			assert.Nil(t, m.model)
			assert.True(t, strings.HasPrefix(m.Transcript().String(), "Error loading model: "))
		})
	}
}

func TestLoad_FailureKeepsPreviousModel(t *testing.T) {
	engine := &inferencetest.Engine{}
	m := newTestModel(t, engine)
	m, _ = load(t, m, writeModelFile(t, "good.gguf"))
	first := m.model

	engine.LoadErr = errors.New("bad magic")
	m, _ = load(t, m, writeModelFile(t, "broken.gguf"))

	assert.Same(t, first, m.model)
	assert.False(t, engine.Models()[0].Closed())
	assert.Contains(t, m.Transcript().String(), "Error loading model: ")
	assert.Contains(t, m.Transcript().String(), "bad magic")
}

func TestLoad_ReplacesAndClosesPreviousModel(t *testing.T) {
	engine := &inferencetest.Engine{}
	m := newTestModel(t, engine)
	m, _ = load(t, m, writeModelFile(t, "a.gguf"))

	m, cmd := load(t, m, writeModelFile(t, "b.bin"))
	for _, msg := range runSync(cmd) {
		m, _ = update(m, msg)
	}

	models := engine.Models()
	require.Len(t, models, 2)
	assert.True(t, models[0].Closed())
	assert.Same(t, models[1], m.model)
	assert.Equal(t, "Model loaded: b.bin", m.Transcript().String())
	assert.Equal(t, PageChat, m.Page())
}

func TestLoad_FromTypedPath(t *testing.T) {
	engine := &inferencetest.Engine{}
	m := newTestModel(t, engine)
	path := writeModelFile(t, "typed.gguf")

	m, _ = update(m, tabKey)
	require.Equal(t, PageSettings, m.Page())
	m.settings.focus = fieldPath
	m.settings.syncFocus()
	m.settings.pathInput.SetValue("  " + path + "  ")

	m, cmd := update(m, enterKey)
	require.NotNil(t, cmd)
	m, _ = update(m, cmd())

	assert.Equal(t, []string{path}, engine.Loads())
	assert.Equal(t, "Model loaded: typed.gguf", m.Transcript().String())
}

func TestModelFileChanged_ShowsNotice(t *testing.T) {
	cfg := config.Default()
	cfg.UI.WatchModel = true
	m := New(Options{Engine: &inferencetest.Engine{}, Config: cfg, Theme: styles.NewTheme()})
	m, _ = update(m, tea.WindowSizeMsg{Width: 100, Height: 30})

	path := writeModelFile(t, "watched.gguf")
	m, _ = load(t, m, path)
	require.NotNil(t, m.watcher)
	t.Cleanup(m.Close)

	// A change from a watcher that is no longer current is dropped
	m, cmd := update(m, ModelFileChangedMsg{Change: modelfile.Change{Path: path, Kind: modelfile.Modified}})
	assert.Nil(t, cmd)
	assert.NotContains(t, m.Transcript().String(), changedMessage)

	m, cmd = update(m, ModelFileChangedMsg{
		Change:  modelfile.Change{Path: path, Kind: modelfile.Removed},
		watcher: m.watcher,
	})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.Transcript().String(), changedMessage)
}

// =============================================================================
// SETTINGS PAGE
// =============================================================================

func TestSettings_AdjustParameters(t *testing.T) {
	m := newTestModel(t, &inferencetest.Engine{})
	m, _ = update(m, tabKey)
	require.Equal(t, PageSettings, m.Page())

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 257, m.Params().MaxTokens())
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyShiftRight})
	assert.Equal(t, 321, m.Params().MaxTokens())
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyShiftLeft})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 256, m.Params().MaxTokens())

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.InDelta(t, 0.6, m.Params().Temperature(), 1e-9)
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyShiftLeft})
	assert.InDelta(t, 0.1, m.Params().Temperature(), 1e-9)
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyShiftLeft})
	assert.InDelta(t, 0.1, m.Params().Temperature(), 1e-9)
}

func TestSettings_PageSwitching(t *testing.T) {
	m := newTestModel(t, &inferencetest.Engine{})
	assert.Equal(t, PageChat, m.Page())
	assert.True(t, m.input.Focused())

	m, _ = update(m, tabKey)
	assert.Equal(t, PageSettings, m.Page())
	assert.False(t, m.input.Focused())
	assert.Contains(t, m.View(), "Max tokens")

	// Quick actions jump back to the chat page
	m, _ = update(m, f1Key)
	assert.Equal(t, PageChat, m.Page())
	assert.True(t, m.input.Focused())
}

func TestSettings_FilePickerOpensAndCloses(t *testing.T) {
	m := newTestModel(t, &inferencetest.Engine{})
	m, _ = update(m, tabKey)
	m.settings.focus = fieldBrowse

	m, cmd := update(m, enterKey)
	assert.NotNil(t, cmd)
	assert.True(t, m.settings.picking)

	m, _ = update(m, escKey)
	assert.False(t, m.settings.picking)
	assert.Equal(t, PageSettings, m.Page())
}

// =============================================================================
// VIEW
// =============================================================================

func TestView_RendersShell(t *testing.T) {
	m := New(Options{Engine: &inferencetest.Engine{}, Theme: styles.NewTheme()})
	assert.Equal(t, "Starting WinChi...", m.View())

	m, _ = update(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	view := m.View()
	for _, want := range []string{"WinChi", "Chat", "Settings", "Idle", "no model", "Load a model in Settings"} {
		assert.Contains(t, view, want)
	}

	m.transcript.AddNotice("hello")
	m.refreshTranscript(false)
	assert.NotContains(t, m.View(), "Load a model in Settings")
}

func TestView_ShowsPendingPrefix(t *testing.T) {
	m := newTestModel(t, &inferencetest.Engine{})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyF2})
	assert.Contains(t, m.View(), "Explain thoroughly")
}
