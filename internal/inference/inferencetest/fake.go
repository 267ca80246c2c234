// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package inferencetest provides scripted engines and models for tests.
package inferencetest

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Bankaii7723/WinChi/internal/inference"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine loads scripted Models. Model files are still validated with
// inference.CheckModelFile, so tests exercise real path handling.
type Engine struct {
	mu sync.Mutex

	// Fragments is the script every loaded model plays back
	Fragments []string
	// GenErr, if set, is returned after the fragments
	GenErr error
	// LoadErr, if set, fails every Load after validation
	LoadErr error
	// Gate, if set, is handed to loaded models (see Model.Gate)
	Gate chan struct{}

	loads  []string
	models []*Model
}

// Name identifies the backend.
func (e *Engine) Name() string { return "fake" }

// Load validates path and returns a scripted model.
func (e *Engine) Load(ctx context.Context, path string) (inference.Model, error) {
	if err := inference.CheckModelFile(path); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads = append(e.loads, path)

	if e.LoadErr != nil {
		return nil, &inference.Error{Kind: inference.KindLoad, Path: path, Message: "engine rejected model file", Cause: e.LoadErr}
	}

	m := &Model{
		PathValue: path,
		Fragments: append([]string(nil), e.Fragments...),
		Err:       e.GenErr,
		Gate:      e.Gate,
	}
	e.models = append(e.models, m)
	return m, nil
}

// Loads returns the paths passed to successful validations, in order.
func (e *Engine) Loads() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.loads...)
}

// Models returns every model handed out, in order.
func (e *Engine) Models() []*Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Model(nil), e.models...)
}

// =============================================================================
// MODEL
// =============================================================================

// Call records one Stream or Generate invocation.
type Call struct {
	Prompt string
	Config inference.GenerateConfig
}

// Model plays back Fragments for every prompt.
type Model struct {
	PathValue string
	Fragments []string
	// Err, if set, is returned by Next after the fragments
	Err error
	// Gate, if set, makes every Next wait for a receive from Gate
	// (or for the context to be cancelled)
	Gate chan struct{}

	mu      sync.Mutex
	calls   []Call
	closed  bool
	streams int
	// closedEarly is set when Close ran with a stream still open
	closedEarly bool
}

// NewModel creates a model at path that yields fragments.
func NewModel(path string, fragments ...string) *Model {
	return &Model{PathValue: path, Fragments: fragments}
}

func (m *Model) Name() string { return filepath.Base(m.PathValue) }
func (m *Model) Path() string { return m.PathValue }

// Stream records the call and returns a scripted stream.
func (m *Model) Stream(ctx context.Context, prompt string, cfg inference.GenerateConfig) (inference.Stream, error) {
	m.record(prompt, cfg)
	m.mu.Lock()
	m.streams++
	m.mu.Unlock()
	return &Stream{
		ctx:   ctx,
		frags: append([]string(nil), m.Fragments...),
		err:   m.Err,
		gate:  m.Gate,
		owner: m,
	}, nil
}

// Generate records the call and returns the joined fragments.
func (m *Model) Generate(ctx context.Context, prompt string, cfg inference.GenerateConfig) (string, error) {
	m.record(prompt, cfg)
	if m.Err != nil {
		return "", m.Err
	}
	return strings.Join(m.Fragments, ""), nil
}

func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.streams > 0 {
		m.closedEarly = true
	}
	return nil
}

// ClosedWhileStreaming reports whether Close ran before every stream was
// closed.
func (m *Model) ClosedWhileStreaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closedEarly
}

func (m *Model) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams--
}

// Closed reports whether Close was called.
func (m *Model) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Calls returns the recorded invocations.
func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *Model) record(prompt string, cfg inference.GenerateConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Prompt: prompt, Config: cfg})
}

// =============================================================================
// STREAM
// =============================================================================

// Stream yields a fixed script.
type Stream struct {
	ctx   context.Context
	frags []string
	pos   int
	err   error
	gate  chan struct{}
	owner *Model
	once  sync.Once
}

func (s *Stream) Next() (string, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		}
	}
	if s.pos >= len(s.frags) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	f := s.frags[s.pos]
	s.pos++
	return f, nil
}

func (s *Stream) Close() error {
	s.pos = len(s.frags)
	s.once.Do(func() {
		if s.owner != nil {
			s.owner.release()
		}
	})
	return nil
}
