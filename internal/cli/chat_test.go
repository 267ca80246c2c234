// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference/inferencetest"
	"github.com/Bankaii7723/WinChi/internal/session"
)

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// scriptReader plays back lines, then returns io.EOF.
type scriptReader struct {
	lines   []string
	history []string
}

func (r *scriptReader) Prompt(string) (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptReader) AppendHistory(item string) {
	r.history = append(r.history, item)
}

func newTestSession(m *inferencetest.Model, out io.Writer) *chatSession {
	return newChatSession(m, session.DefaultParams(), time.Millisecond, out)
}

func writeModelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiny.gguf")
	require.NoError(t, os.WriteFile(path, []byte("GGUF"), 0o644))
	return path
}

// =============================================================================
// CHAT SESSION
// =============================================================================

func TestChatSession_SendStreamsReply(t *testing.T) {
	var out syncBuffer
	m := inferencetest.NewModel("tiny.gguf", "Hel", "lo", "!")
	s := newTestSession(m, &out)

	res := s.send(context.Background(), "hi")

	require.NoError(t, res.Err)
	assert.False(t, res.Stopped)
	assert.Equal(t, 3, res.Fragments)
	assert.Equal(t, "Hello!\n", out.String())

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "hi", calls[0].Prompt)
	assert.True(t, calls[0].Config.Streaming)
	assert.Equal(t, config.DefaultMaxTokens, calls[0].Config.MaxTokens)
}

func TestChatSession_StopEndsReply(t *testing.T) {
	var out syncBuffer
	m := inferencetest.NewModel("tiny.gguf", "one ", "two ", "three")
	m.Gate = make(chan struct{})
	s := newTestSession(m, &out)

	done := make(chan struct{})
	var stopped bool
	go func() {
		defer close(done)
		stopped = s.send(context.Background(), "count").Stopped
	}()

	m.Gate <- struct{}{}
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "one ")
	}, 5*time.Second, time.Millisecond)

	s.stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("send did not return after stop")
	}
	assert.True(t, stopped)
	assert.NotContains(t, out.String(), "two")
}

func TestChatSession_GenerationError(t *testing.T) {
	var out syncBuffer
	m := inferencetest.NewModel("tiny.gguf", "partial")
	m.Err = assert.AnError
	s := newTestSession(m, &out)

	res := s.send(context.Background(), "hi")

	assert.ErrorIs(t, res.Err, assert.AnError)
	assert.Contains(t, out.String(), "partial")
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func TestChatSession_Commands(t *testing.T) {
	var out syncBuffer
	s := newTestSession(inferencetest.NewModel("tiny.gguf"), &out)

	more, err := s.handleCommand("/tokens 100")
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, 100, s.params.MaxTokens())

	_, err = s.handleCommand("/tokens 99999")
	require.NoError(t, err)
	assert.Equal(t, config.MaxMaxTokens, s.params.MaxTokens(), "out of range values are clamped")

	_, err = s.handleCommand("/temp 0.2")
	require.NoError(t, err)
	assert.Equal(t, 0.2, s.params.Temperature())

	_, err = s.handleCommand("/tokens lots")
	assert.Error(t, err)

	_, err = s.handleCommand("/nope")
	assert.ErrorContains(t, err, "unknown command")

	_, err = s.handleCommand("/thorough")
	require.NoError(t, err)
	assert.Equal(t, session.QuickActions[1].Prefix, s.params.Prefix())

	_, err = s.handleCommand("/settings")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "tiny.gguf")

	for _, quit := range []string{"/quit", "/exit", "/q"} {
		more, err := s.handleCommand(quit)
		require.NoError(t, err)
		assert.False(t, more, quit)
	}
}

func TestChatSession_LoopAppliesPrefixOnce(t *testing.T) {
	var out syncBuffer
	m := inferencetest.NewModel("tiny.gguf", "ok")
	s := newTestSession(m, &out)
	in := &scriptReader{lines: []string{"/eli5", "what is rain", "", "and snow", "/quit", "never sent"}}

	require.NoError(t, s.loop(context.Background(), in))

	calls := m.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, session.QuickActions[0].Prefix+"what is rain", calls[0].Prompt)
	assert.Equal(t, "and snow", calls[1].Prompt)
	assert.Equal(t, []string{"/eli5", "what is rain", "and snow", "/quit"}, in.history)
}

func TestChatSession_LoopEndsOnEOF(t *testing.T) {
	var out syncBuffer
	s := newTestSession(inferencetest.NewModel("tiny.gguf", "x"), &out)

	assert.NoError(t, s.loop(context.Background(), &scriptReader{lines: []string{"hi"}}))
	assert.Contains(t, out.String(), "x")
}

func TestChatSession_LoopReportsErrors(t *testing.T) {
	var out syncBuffer
	m := inferencetest.NewModel("tiny.gguf")
	m.Err = assert.AnError
	s := newTestSession(m, &out)

	require.NoError(t, s.loop(context.Background(), &scriptReader{lines: []string{"hi"}}))
	assert.Contains(t, out.String(), "Error generating text")
}

// =============================================================================
// ASK
// =============================================================================

func TestRunAsk_Plain(t *testing.T) {
	cfg := config.Default()
	cfg.Inference.ModelPath = writeModelFile(t)
	cfg.Generation.MaxTokens = 77
	engine := &inferencetest.Engine{Fragments: []string{"**Blue** ", "light scatters."}}

	var out bytes.Buffer
	err := RunAsk(context.Background(), cfg, engine, Args{Prompt: "why blue", Plain: true}, &out)
	require.NoError(t, err)
	assert.Equal(t, "**Blue** light scatters.\n", out.String())

	models := engine.Models()
	require.Len(t, models, 1)
	assert.True(t, models[0].Closed(), "model is released after answering")

	calls := models[0].Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Config.Streaming)
	assert.Equal(t, 77, calls[0].Config.MaxTokens)
}

func TestRunAsk_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Inference.ModelPath = ""
	var out bytes.Buffer

	err := RunAsk(context.Background(), cfg, &inferencetest.Engine{}, Args{Prompt: "x"}, &out)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	cfg.Inference.ModelPath = filepath.Join(t.TempDir(), "missing.gguf")
	err = RunAsk(context.Background(), cfg, &inferencetest.Engine{}, Args{Prompt: "x"}, &out)
	assert.Equal(t, ExitModelError, ExitCode(err))
	assert.Empty(t, out.String())
}

func TestRenderAnswer(t *testing.T) {
	assert.Equal(t, "# Title", renderAnswer("# Title", false, 80))

	rendered := renderAnswer("# Title\n\nbody text", true, 60)
	assert.Contains(t, rendered, "Title")
	assert.Contains(t, rendered, "body text")
}

// =============================================================================
// BENCH
// =============================================================================

func TestRunBench_ConfiguredModel(t *testing.T) {
	cfg := config.Default()
	cfg.Inference.ModelPath = writeModelFile(t)
	engine := &inferencetest.Engine{Fragments: []string{"Hello", " there"}}

	var out bytes.Buffer
	require.NoError(t, RunBench(context.Background(), cfg, engine, Args{}, &out))

	assert.Contains(t, out.String(), "Model: tiny.gguf")
	assert.Contains(t, out.String(), "Latency Test")
	require.Len(t, engine.Models(), 1)
	assert.True(t, engine.Models()[0].Closed())
}

func TestRunBench_CompareJSON(t *testing.T) {
	cfg := config.Default()
	engine := &inferencetest.Engine{Fragments: []string{"ok"}}
	a := writeModelFile(t)

	var out bytes.Buffer
	require.NoError(t, RunBench(context.Background(), cfg, engine, Args{JSON: true, Models: []string{a}}, &out))

	var decoded struct {
		Models  []string                   `json:"models"`
		Results map[string]json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, []string{"tiny.gguf"}, decoded.Models)
	assert.Contains(t, decoded.Results, "tiny.gguf")
}

func TestRunBench_NoModel(t *testing.T) {
	cfg := config.Default()
	cfg.Inference.ModelPath = ""
	var out bytes.Buffer

	err := RunBench(context.Background(), cfg, &inferencetest.Engine{}, Args{}, &out)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestRunBench_SelectedTests(t *testing.T) {
	cfg := config.Default()
	cfg.Inference.ModelPath = writeModelFile(t)
	engine := &inferencetest.Engine{Fragments: []string{"Hello"}}

	var out bytes.Buffer
	args := Args{Tests: []string{"latency"}, Prompt: "count to five"}
	require.NoError(t, RunBench(context.Background(), cfg, engine, args, &out))

	assert.Contains(t, out.String(), "Latency Test")
	assert.Contains(t, out.String(), "Custom Prompt Test")
	assert.NotContains(t, out.String(), "Speed Test")

	calls := engine.Models()[0].Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "count to five", calls[1].Prompt)
}

func TestRunBench_UnknownTestType(t *testing.T) {
	cfg := config.Default()
	cfg.Inference.ModelPath = writeModelFile(t)
	var out bytes.Buffer

	err := RunBench(context.Background(), cfg, &inferencetest.Engine{}, Args{Tests: []string{"vibes"}}, &out)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}
