// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/inference/inferencetest"
	"github.com/Bankaii7723/WinChi/internal/ollama"
)

func writeModel(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// =============================================================================
// ERRORS AND VALIDATION
// =============================================================================

func TestError_Classification(t *testing.T) {
	cause := errors.New("bad magic")
	loadErr := &inference.Error{Kind: inference.KindLoad, Path: "/m/x.gguf", Message: "engine rejected model file", Cause: cause}
	genErr := &inference.Error{Kind: inference.KindGeneration, Message: "generation failed", Cause: cause}

	assert.True(t, inference.IsLoadError(loadErr))
	assert.False(t, inference.IsGenerationError(loadErr))
	assert.True(t, inference.IsGenerationError(genErr))
	assert.ErrorIs(t, loadErr, cause)
	assert.Equal(t, "engine rejected model file (/m/x.gguf): bad magic", loadErr.Error())
	assert.Equal(t, "generation failed: bad magic", genErr.Error())
	assert.Equal(t, "load", inference.KindLoad.String())
}

func TestCheckModelFile(t *testing.T) {
	good := writeModel(t, "tiny.gguf", "GGUF")
	bin := writeModel(t, "tiny.bin", "GGUF")
	txt := writeModel(t, "notes.txt", "hello")

	require.NoError(t, inference.CheckModelFile(good))
	require.NoError(t, inference.CheckModelFile(bin))

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(t.TempDir(), "nope.gguf"), inference.ErrModelNotFound},
		{"empty", "", inference.ErrModelNotFound},
		{"directory", t.TempDir(), inference.ErrIsDirectory},
		{"wrong extension", txt, inference.ErrUnsupportedFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := inference.CheckModelFile(tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, inference.IsLoadError(err))
		})
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := config.Default()
	e, err := inference.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "llama", e.Name())

	cfg.Inference.Backend = config.BackendOllama
	e, err = inference.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ollama", e.Name())

	cfg.Inference.Backend = "tpu"
	_, err = inference.New(cfg)
	require.Error(t, err)
}

func TestLlamaEngine_RejectsBadPathBeforeLoadingLibrary(t *testing.T) {
	e := inference.NewLlamaEngine(inference.LlamaOptions{})
	_, err := e.Load(context.Background(), filepath.Join(t.TempDir(), "missing.gguf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrModelNotFound)
}

// =============================================================================
// RUN
// =============================================================================

func TestRun_Streaming(t *testing.T) {
	m := inferencetest.NewModel("/m/tiny.gguf", "Hi", " there")
	cfg := inference.GenerateConfig{MaxTokens: 256, Temperature: 0.7, Streaming: true}

	s, err := inference.Run(context.Background(), m, "Hello", cfg)
	require.NoError(t, err)

	var got []string
	for {
		frag, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, frag)
	}
	assert.Equal(t, []string{"Hi", " there"}, got)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Hello", calls[0].Prompt)
	assert.Equal(t, cfg, calls[0].Config)
}

func TestRun_NonStreamingYieldsOneFragment(t *testing.T) {
	m := inferencetest.NewModel("/m/tiny.gguf", "Hi", " there")

	s, err := inference.Run(context.Background(), m, "Hello", inference.GenerateConfig{MaxTokens: 8, Temperature: 0.7})
	require.NoError(t, err)

	frag, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "Hi there", frag)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRun_NoModel(t *testing.T) {
	_, err := inference.Run(context.Background(), nil, "Hello", inference.GenerateConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrNoModel)
}

func TestCollect_KeepsTextBeforeError(t *testing.T) {
	m := inferencetest.NewModel("/m/tiny.gguf", "a", "b")
	m.Err = errors.New("boom")

	s, err := m.Stream(context.Background(), "p", inference.GenerateConfig{Streaming: true})
	require.NoError(t, err)

	text, err := inference.Collect(s)
	assert.Equal(t, "ab", text)
	assert.EqualError(t, err, "boom")
}

func TestStaticStream_Empty(t *testing.T) {
	s := inference.NewStaticStream("")
	_, err := s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

// =============================================================================
// OLLAMA ENGINE
// =============================================================================

// ollamaStub records API traffic and serves a fixed generation.
type ollamaStub struct {
	mu      sync.Mutex
	blobs   map[string]int
	created []ollama.CreateRequest
	deleted []string
	gens    []ollama.GenerateRequest
	lines   []string
	fail    bool
}

func newOllamaStub(t *testing.T) (*ollamaStub, *inference.OllamaEngine) {
	t.Helper()
	stub := &ollamaStub{blobs: make(map[string]int)}
	srv := httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(srv.Close)

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	return stub, inference.NewOllamaEngine(client)
}

func (s *ollamaStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/api/blobs/"):
		digest := strings.TrimPrefix(r.URL.Path, "/api/blobs/")
		if r.Method == http.MethodHead {
			if _, ok := s.blobs[digest]; ok {
				return
			}
			w.WriteHeader(http.StatusNotFound)
			return
		}
		data, _ := io.ReadAll(r.Body)
		s.blobs[digest] += len(data)
		w.WriteHeader(http.StatusCreated)

	case r.URL.Path == "/api/create":
		var req ollama.CreateRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.created = append(s.created, req)
		json.NewEncoder(w).Encode(ollama.StatusResponse{Status: "success"})

	case r.URL.Path == "/api/delete":
		var req ollama.DeleteRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.deleted = append(s.deleted, req.Model)

	case r.URL.Path == "/api/generate":
		var req ollama.GenerateRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.gens = append(s.gens, req)
		if s.fail {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ollama.OllamaError{Error: "llama runner process has terminated"})
			return
		}
		if !req.Stream {
			json.NewEncoder(w).Encode(ollama.GenerateResponse{Response: "Hi there", Done: true})
			return
		}
		for _, line := range s.lines {
			io.WriteString(w, line+"\n")
		}
	}
}

func TestOllamaEngine_LoadUploadsOnce(t *testing.T) {
	stub, engine := newOllamaStub(t)
	path := writeModel(t, "Tiny.gguf", "GGUF-bytes")

	m1, err := engine.Load(context.Background(), path)
	require.NoError(t, err)
	m2, err := engine.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Tiny.gguf", m1.Name())
	assert.Equal(t, path, m2.Path())

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.blobs, 1)
	for digest, n := range stub.blobs {
		assert.True(t, strings.HasPrefix(digest, "sha256:"))
		assert.Equal(t, len("GGUF-bytes"), n, "blob uploaded more than once")
	}
	require.Len(t, stub.created, 2)
	assert.True(t, strings.HasPrefix(stub.created[0].Model, "winchi-tiny-"))
	assert.Contains(t, stub.created[0].Files, "Tiny.gguf")
}

func TestOllamaEngine_StreamAndGenerate(t *testing.T) {
	stub, engine := newOllamaStub(t)
	stub.lines = []string{
		`{"response":"Hi","done":false}`,
		`{"response":"","done":false}`,
		`{"response":" there","done":false}`,
		`{"response":"","done":true,"eval_count":2}`,
	}
	path := writeModel(t, "tiny.gguf", "GGUF")

	m, err := engine.Load(context.Background(), path)
	require.NoError(t, err)

	cfg := inference.GenerateConfig{MaxTokens: 64, Temperature: 0.5, Streaming: true}
	s, err := inference.Run(context.Background(), m, "Hello", cfg)
	require.NoError(t, err)
	text, err := inference.Collect(s)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)

	cfg.Streaming = false
	s, err = inference.Run(context.Background(), m, "Hello", cfg)
	require.NoError(t, err)
	text, err = inference.Collect(s)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)

	require.NoError(t, m.Close())

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.gens, 2)
	assert.Equal(t, "Hello", stub.gens[0].Prompt)
	assert.Equal(t, 64, stub.gens[0].Options.NumPredict)
	assert.InDelta(t, 0.5, stub.gens[0].Options.Temperature, 1e-9)
	assert.True(t, stub.gens[0].Raw)
	assert.Equal(t, []string{stub.created[0].Model}, stub.deleted)
}

func TestOllamaEngine_GenerationErrorIsTyped(t *testing.T) {
	stub, engine := newOllamaStub(t)
	stub.fail = true
	path := writeModel(t, "tiny.gguf", "GGUF")

	m, err := engine.Load(context.Background(), path)
	require.NoError(t, err)

	_, err = m.Stream(context.Background(), "Hello", inference.GenerateConfig{MaxTokens: 8, Temperature: 0.7, Streaming: true})
	require.Error(t, err)
	assert.True(t, inference.IsGenerationError(err))
	assert.Contains(t, err.Error(), "llama runner process has terminated")
}

func TestOllamaEngine_ServerDownIsLoadError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	engine := inference.NewOllamaEngine(ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url, Timeout: time.Second}))
	_, err := engine.Load(context.Background(), writeModel(t, "tiny.gguf", "GGUF"))
	require.Error(t, err)
	assert.True(t, inference.IsLoadError(err))
	assert.True(t, ollama.IsNotRunning(err))
}
