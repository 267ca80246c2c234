// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Bankaii7723/WinChi/internal/ollama"
)

// =============================================================================
// OLLAMA ENGINE
// =============================================================================

// OllamaEngine imports model files into a local Ollama server and generates
// through its API.
type OllamaEngine struct {
	client *ollama.Client
}

// NewOllamaEngine creates an engine backed by client.
func NewOllamaEngine(client *ollama.Client) *OllamaEngine {
	return &OllamaEngine{client: client}
}

// Name identifies the backend.
func (e *OllamaEngine) Name() string {
	return "ollama"
}

// Load uploads the file as a blob (skipped when the server already has it)
// and registers it as a model.
func (e *OllamaEngine) Load(ctx context.Context, path string) (Model, error) {
	if err := CheckModelFile(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, loadError(path, "cannot open model file", err)
	}
	defer f.Close()

	digest, size, err := fileDigest(f)
	if err != nil {
		return nil, loadError(path, "cannot read model file", err)
	}

	have, err := e.client.HasBlob(ctx, digest)
	if err != nil {
		return nil, loadError(path, "cannot reach Ollama", err)
	}
	if !have {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, loadError(path, "cannot read model file", err)
		}
		if err := e.client.PushBlob(ctx, digest, f, size); err != nil {
			return nil, loadError(path, "model upload failed", err)
		}
	}

	name := ollamaModelName(path, digest)
	files := map[string]string{filepath.Base(path): digest}
	if err := e.client.CreateModel(ctx, name, files); err != nil {
		return nil, loadError(path, "engine rejected model file", err)
	}

	log.Printf("OLLAMA_IMPORT | model=%s digest=%s uploaded=%t", name, digest, !have)
	return &ollamaModel{client: e.client, name: name, path: path}, nil
}

// fileDigest returns the "sha256:<hex>" digest and size of r.
func fileDigest(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), n, nil
}

// ollamaModelName derives a server-side model name from the file name and
// digest, e.g. "winchi-tinyllama-q4-1a2b3c4d".
func ollamaModelName(path, digest string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ToLower(stem)

	var sb strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	clean := strings.Trim(sb.String(), "-.")
	if clean == "" {
		clean = "model"
	}

	short := strings.TrimPrefix(digest, "sha256:")
	if len(short) > 8 {
		short = short[:8]
	}
	return "winchi-" + clean + "-" + short
}

// =============================================================================
// OLLAMA MODEL
// =============================================================================

type ollamaModel struct {
	client *ollama.Client
	name   string
	path   string

	mu     sync.Mutex
	closed bool
}

func (m *ollamaModel) Name() string { return DisplayName(m.path) }
func (m *ollamaModel) Path() string { return m.path }

func (m *ollamaModel) request(prompt string, cfg GenerateConfig) ollama.GenerateRequest {
	return ollama.GenerateRequest{
		Model:  m.name,
		Prompt: prompt,
		Raw:    true,
		Options: &ollama.Options{
			NumPredict:  cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
	}
}

func (m *ollamaModel) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Stream starts a streaming completion.
func (m *ollamaModel) Stream(ctx context.Context, prompt string, cfg GenerateConfig) (Stream, error) {
	if m.isClosed() {
		return nil, generationError("cannot generate", ErrNoModel)
	}

	reader, err := m.client.GenerateStream(ctx, m.request(prompt, cfg))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, generationError("generation failed", err)
	}
	return &ollamaStream{ctx: ctx, reader: reader, model: m.name}, nil
}

// Generate runs a non-streaming completion.
func (m *ollamaModel) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	if m.isClosed() {
		return "", generationError("cannot generate", ErrNoModel)
	}

	resp, err := m.client.Generate(ctx, m.request(prompt, cfg))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", generationError("generation failed", err)
	}
	log.Printf("OLLAMA_GENERATE_DONE | model=%s eval_count=%d total_ms=%d",
		m.name, resp.EvalCount, resp.TotalTime().Milliseconds())
	return resp.Response, nil
}

// Close unregisters the model from the server. The uploaded blob stays, so
// loading the same file again skips the upload.
func (m *ollamaModel) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.DeleteModel(ctx, m.name)
}

// =============================================================================
// OLLAMA STREAM
// =============================================================================

type ollamaStream struct {
	ctx    context.Context
	reader *ollama.StreamReader
	model  string
}

// Next returns the next non-empty response fragment.
func (s *ollamaStream) Next() (string, error) {
	for {
		chunk, err := s.reader.Next()
		if errors.Is(err, io.EOF) {
			log.Printf("OLLAMA_STREAM_DONE | model=%s %s", s.model, s.reader.Stats().Format())
			return "", io.EOF
		}
		if err != nil {
			if s.ctx.Err() != nil {
				return "", s.ctx.Err()
			}
			return "", generationError("generation failed", err)
		}
		if chunk.Content != "" {
			return chunk.Content, nil
		}
	}
}

func (s *ollamaStream) Close() error {
	return s.reader.Close()
}
