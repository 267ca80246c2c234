// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
	"github.com/Bankaii7723/WinChi/internal/ollama"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Engine loads model files.
type Engine interface {
	// Load opens the model at path. Fails with a KindLoad error when the file
	// is missing, is a directory, has an unsupported extension, or the
	// engine rejects it.
	Load(ctx context.Context, path string) (Model, error)

	// Name identifies the backend ("llama", "ollama").
	Name() string
}

// Model is a loaded model handle.
type Model interface {
	// Stream starts a lazy generation. Fragments are produced on demand by
	// Stream.Next; nothing is computed ahead of the consumer.
	Stream(ctx context.Context, prompt string, cfg GenerateConfig) (Stream, error)

	// Generate runs a full generation and returns the complete text.
	Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error)

	// Name is a short display name (the file's base name).
	Name() string

	// Path is the model file path.
	Path() string

	// Close releases the model. The handle must not be used afterwards.
	Close() error
}

// Stream is a finite, non-restartable sequence of text fragments.
type Stream interface {
	// Next returns the next fragment, io.EOF when the generation is
	// complete, or a KindGeneration error. Fragments already returned are
	// never retracted.
	Next() (string, error)

	// Close stops the generation and releases its resources.
	Close() error
}

// GenerateConfig holds per-request generation settings.
type GenerateConfig struct {
	MaxTokens   int
	Temperature float64
	Streaming   bool
}

// =============================================================================
// ENGINE CONSTRUCTION
// =============================================================================

// New constructs the engine selected by cfg.Inference.Backend.
func New(cfg *config.Config) (Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	switch strings.ToLower(cfg.Inference.Backend) {
	case "", config.BackendLlama:
		return NewLlamaEngine(LlamaOptions{
			LibPath:     cfg.Inference.LibPath,
			GPULayers:   cfg.Inference.GPULayers,
			ContextSize: cfg.Inference.ContextSize,
			BatchSize:   cfg.Inference.BatchSize,
		}), nil
	case config.BackendOllama:
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL: cfg.Ollama.URL,
			Timeout: cfg.OllamaTimeout(),
		})
		return NewOllamaEngine(client), nil
	default:
		return nil, fmt.Errorf("unknown inference backend %q", cfg.Inference.Backend)
	}
}

// CheckModelFile verifies that path names an existing regular file with a
// supported model extension.
func CheckModelFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return loadError(path, "no model file given", ErrModelNotFound)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return loadError(path, "model file does not exist", ErrModelNotFound)
		}
		return loadError(path, "cannot access model file", err)
	}
	if info.IsDir() {
		return loadError(path, "expected a file, got a directory", ErrIsDirectory)
	}
	if !modelfile.HasModelExtension(path) {
		return loadError(path, "expected a "+strings.Join(modelfile.Extensions, " or ")+" file", ErrUnsupportedFile)
	}
	return nil
}

// DisplayName returns the name shown for a model loaded from path.
func DisplayName(path string) string {
	return filepath.Base(path)
}
