// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Bankaii7723/WinChi/internal/ui/styles"
)

// Transcript line prefixes.
const (
	userPrefix      = "User: "
	assistantPrefix = "Assistant: "
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

type entryKind int

const (
	entryExchange entryKind = iota
	entryNotice
	entryError
)

// entry is one block of the transcript. An exchange holds the user text
// and the reply streamed so far.
type entry struct {
	kind  entryKind
	text  string
	reply strings.Builder
	done  bool

	// rendered caches the markdown form of a finished reply
	rendered      string
	renderedWidth int
}

// Transcript is the chat log of the current session, held only in memory.
type Transcript struct {
	entries []*entry
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// AddExchange appends the "User: <text>" header and opens an empty reply.
func (t *Transcript) AddExchange(text string) {
	t.finishOpen()
	t.entries = append(t.entries, &entry{kind: entryExchange, text: text})
}

// AppendReply appends streamed text to the open reply. Without an open
// reply the text is dropped.
func (t *Transcript) AppendReply(text string) bool {
	e := t.open()
	if e == nil || text == "" {
		return false
	}
	e.reply.WriteString(text)
	return true
}

// FinishReply closes the open reply.
func (t *Transcript) FinishReply() {
	t.finishOpen()
}

// AddNotice appends an informational line.
func (t *Transcript) AddNotice(line string) {
	t.entries = append(t.entries, &entry{kind: entryNotice, text: line})
}

// AddError appends an error line.
func (t *Transcript) AddError(line string) {
	t.entries = append(t.entries, &entry{kind: entryError, text: line})
}

// Clear removes everything.
func (t *Transcript) Clear() {
	t.entries = nil
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// LastReply returns the text of the most recent reply.
func (t *Transcript) LastReply() string {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].kind == entryExchange {
			return t.entries[i].reply.String()
		}
	}
	return ""
}

// String returns the transcript as plain text, one line per header,
// notice or error.
func (t *Transcript) String() string {
	lines := make([]string, 0, len(t.entries)*2)
	for _, e := range t.entries {
		switch e.kind {
		case entryExchange:
			lines = append(lines, userPrefix+e.text, assistantPrefix+e.reply.String())
		default:
			lines = append(lines, e.text)
		}
	}
	return strings.Join(lines, "\n")
}

// open returns the latest exchange if its reply is still streaming. Notices
// added mid-reply do not close it.
func (t *Transcript) open() *entry {
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		if e.kind != entryExchange {
			continue
		}
		if e.done {
			return nil
		}
		return e
	}
	return nil
}

func (t *Transcript) finishOpen() {
	if e := t.open(); e != nil {
		e.done = true
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// Render styles the transcript for a viewport of the given width. Finished
// replies go through md when it is non-nil; the open reply is shown raw.
func (t *Transcript) Render(theme *styles.Theme, md *markdownRenderer, width int) string {
	if width < 10 {
		width = 10
	}
	wrap := lipgloss.NewStyle().Width(width)

	blocks := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		switch e.kind {
		case entryExchange:
			user := theme.UserLabel.Render(strings.TrimSpace(userPrefix)) + " " + e.text
			blocks = append(blocks, wrap.Render(user)+"\n"+t.renderReply(theme, md, e, width))
		case entryNotice:
			blocks = append(blocks, wrap.Render(theme.Notice.Render(e.text)))
		case entryError:
			blocks = append(blocks, wrap.Render(theme.ErrorLine.Render(e.text)))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (t *Transcript) renderReply(theme *styles.Theme, md *markdownRenderer, e *entry, width int) string {
	label := theme.AssistantLabel.Render(strings.TrimSpace(assistantPrefix))
	reply := e.reply.String()

	if e.done && md != nil && strings.TrimSpace(reply) != "" {
		if e.renderedWidth != width || e.rendered == "" {
			out, err := md.Render(reply, width)
			if err != nil {
				out = ""
			}
			e.rendered = out
			e.renderedWidth = width
		}
		if e.rendered != "" {
			return label + "\n" + e.rendered
		}
	}

	return lipgloss.NewStyle().Width(width).Render(label + " " + reply)
}
