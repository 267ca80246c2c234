// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
	"github.com/Bankaii7723/WinChi/internal/session"
	"github.com/Bankaii7723/WinChi/internal/stream"
	"github.com/Bankaii7723/WinChi/internal/ui/styles"
)

// =============================================================================
// PAGES AND STATES
// =============================================================================

// Page is one of the screens listed in the sidebar.
type Page int

const (
	PageChat Page = iota
	PageSettings
)

var pageNames = []string{"Chat", "Settings"}

func (p Page) String() string {
	if int(p) < len(pageNames) {
		return pageNames[p]
	}
	return "Unknown"
}

// State is the generation state of the UI shell.
type State int

const (
	// StateIdle: no background task is running
	StateIdle State = iota
	// StateGenerating: one background task is streaming a reply
	StateGenerating
	// StateStopping: stop was requested, waiting for the task to return
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateGenerating:
		return "Generating"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// Transcript lines shown by the shell.
const (
	busyMessage    = "A response is still being generated. Stop it first."
	noModelMessage = "Please load a model first in Settings."
	loadingMessage = "A model is still loading. Try again when it is ready."
	changedMessage = "Model file changed on disk: reload it from Settings."
	emptyMessage   = "Load a model in Settings (Tab), then type a message."
)

// watchDebounce coalesces bursts of writes to the model file.
const watchDebounce = 500 * time.Millisecond

// closeWait bounds how long Close waits for a running generation.
const closeWait = 5 * time.Second

// =============================================================================
// MODEL
// =============================================================================

// Options configures a new Model.
type Options struct {
	// Engine loads model files. Required for loading.
	Engine inference.Engine
	// Params holds the session parameters; defaults come from Config when nil.
	Params *session.Params
	// Config supplies UI settings; config.Default() when nil.
	Config *config.Config
	// Theme; styles.NewTheme() when nil.
	Theme *styles.Theme
	// ModelPath, if set, is loaded on start.
	ModelPath string
}

// Model is the Bubble Tea model of the UI shell.
type Model struct {
	cfg    *config.Config
	theme  *styles.Theme
	keys   KeyMap
	engine inference.Engine
	params *session.Params

	// Loaded model handle, swapped only while idle
	model   inference.Model
	loading bool
	initial string
	watcher *modelfile.Watcher

	// Generation
	state     State
	bridge    *stream.Bridge
	cancelMgr *cancelManager // pointer: shared across model copies
	activeID  string
	genStart  time.Time

	transcript *Transcript
	md         *markdownRenderer

	// Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	settings settingsPage

	// Layout
	page     Page
	width    int
	height   int
	ready    bool
	showHelp bool
	status   string
}

// New creates the UI shell.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	params := opts.Params
	if params == nil {
		params = session.FromConfig(cfg)
	}

	input := textinput.New()
	input.Placeholder = "Type a message and press Enter"
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.Focus()

	sp := spinner.New()
	sp.Spinner = styles.GenerationSpinner
	sp.Style = theme.Spinner

	m := Model{
		cfg:        cfg,
		theme:      theme,
		keys:       DefaultKeyMap(),
		engine:     opts.Engine,
		params:     params,
		initial:    opts.ModelPath,
		bridge:     stream.NewBridge(),
		cancelMgr:  newCancelManager(),
		transcript: NewTranscript(),
		viewport:   viewport.New(80, 20),
		input:      input,
		spinner:    sp,
		help:       help.New(),
		settings:   newSettingsPage(cfg),
	}
	if cfg.UI.RenderMarkdown {
		m.md = newMarkdownRenderer(theme.GlamourStyle())
	}
	if m.initial != "" {
		m.loading = true
	}
	return m
}

// Init starts the drain tick, the cursor blink and the initial model load.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, tickCmd(m.cfg.TickInterval())}
	if m.initial != "" {
		cmds = append(cmds, loadModelCmd(m.engine, modelfile.ExpandPath(m.initial)))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		return m.handleTick()

	case GenerationDoneMsg:
		return m.handleGenerationDone(msg)

	case ModelLoadedMsg:
		return m.handleModelLoaded(msg)

	case ModelClosedMsg:
		if msg.Err != nil {
			log.Printf("MODEL_CLOSE_FAILED | model=%s error=%v", msg.Name, msg.Err)
		}
		return m, nil

	case ModelFileChangedMsg:
		return m.handleModelFileChanged(msg)

	case spinner.TickMsg:
		if m.state == StateIdle {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

// updateComponents forwards messages nobody else claimed (cursor blink,
// file picker directory reads).
func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.settings.picking {
		m.settings.picker, cmd = m.settings.picker.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.settings.pathInput, cmd = m.settings.pathInput.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current generation state.
func (m Model) State() State { return m.state }

// Page returns the visible page.
func (m Model) Page() Page { return m.page }

// Transcript returns the session transcript.
func (m Model) Transcript() *Transcript { return m.transcript }

// Params returns the session parameters.
func (m Model) Params() *session.Params { return m.params }

// Bridge returns the streaming bridge.
func (m Model) Bridge() *stream.Bridge { return m.bridge }

// Close stops any generation and releases the watcher and model. Call it
// after the program exits. The model is released only once the running
// task has returned; if it does not return within closeWait the handle is
// left to the process exit.
func (m Model) Close() {
	running := m.cancelMgr.active()
	m.bridge.RequestStop()
	m.cancelMgr.cancel()
	if m.watcher != nil {
		m.watcher.Close()
	}
	if running {
		log.Printf("SHUTDOWN_WAIT | id=%s", shortID(m.activeID))
	}
	if !m.cancelMgr.wait(closeWait) {
		if m.model != nil {
			log.Printf("MODEL_CLOSE_SKIPPED | model=%s reason=generation still running", m.model.Name())
		}
		return
	}
	if m.model != nil {
		if err := m.model.Close(); err != nil {
			log.Printf("MODEL_CLOSE_FAILED | model=%s error=%v", m.model.Name(), err)
		}
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.layout()
	return m, nil
}

// layout sizes the components from the window size.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	pageWidth := m.pageWidth()
	bodyHeight := m.bodyHeight()

	inputHeight := lipgloss.Height(m.renderInput())
	vpHeight := bodyHeight - inputHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = pageWidth
	m.viewport.Height = vpHeight
	m.input.Width = pageWidth - 6
	m.settings.pathInput.Width = pageWidth - 40
	m.settings.picker.Height = max(bodyHeight-12, 3)
	m.help.Width = m.width

	m.refreshTranscript(false)
}

func (m Model) pageWidth() int {
	w := m.width - styles.SidebarWidth - 1
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) bodyHeight() int {
	h := m.height - lipgloss.Height(m.renderStatusBar()) - lipgloss.Height(m.renderHelp())
	if h < 3 {
		h = 3
	}
	return h
}

// refreshTranscript re-renders the transcript into the viewport and, if
// follow is set, scrolls to the end.
func (m *Model) refreshTranscript(follow bool) {
	width := m.viewport.Width - m.theme.Transcript.GetHorizontalFrameSize()
	content := m.transcript.Render(m.theme, m.md, width)
	if m.transcript.Len() == 0 {
		content = m.theme.SettingsHint.Render(emptyMessage)
	}
	m.viewport.SetContent(m.theme.Transcript.Render(content))
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setPage(p Page) {
	m.page = p
	if p == PageChat {
		m.input.Focus()
		m.settings.blur()
	} else {
		m.input.Blur()
		m.settings.syncFocus()
	}
}
