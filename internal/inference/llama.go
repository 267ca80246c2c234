// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"
)

// =============================================================================
// LLAMA.CPP ENGINE
// =============================================================================

// LlamaOptions configures the in-process llama.cpp engine.
type LlamaOptions struct {
	// LibPath is the directory containing the llama.cpp shared libraries.
	// Falls back to $YZMA_LIB when empty.
	LibPath string
	// GPULayers is the number of layers to offload (-1 = all, 0 = CPU only)
	GPULayers int
	// ContextSize is the context window in tokens (0 = model default)
	ContextSize int
	// BatchSize is the prompt batch size in tokens (0 = library default)
	BatchSize int
}

// LlamaEngine runs GGUF models in-process through llama.cpp, loaded with
// purego so no cgo toolchain is needed.
type LlamaEngine struct {
	opts LlamaOptions
}

// NewLlamaEngine creates a llama.cpp engine. The shared libraries are not
// loaded until the first Load.
func NewLlamaEngine(opts LlamaOptions) *LlamaEngine {
	return &LlamaEngine{opts: opts}
}

// Name identifies the backend.
func (e *LlamaEngine) Name() string {
	return "llama"
}

var (
	libMu     sync.Mutex
	libLoaded bool
)

// initLibrary loads llama.cpp once per process. A failed load is retried
// on the next call, so a corrected path takes effect without a restart.
func initLibrary(libPath string) error {
	libMu.Lock()
	defer libMu.Unlock()
	if libLoaded {
		return nil
	}

	if libPath == "" {
		libPath = os.Getenv("YZMA_LIB")
	}
	if libPath == "" {
		return errors.New("llama.cpp library path not set (inference.lib_path or WINCHI_LIB)")
	}
	if err := llama.Load(libPath); err != nil {
		return fmt.Errorf("failed to load llama.cpp libraries from %s: %w", libPath, err)
	}
	llama.Init()
	libLoaded = true
	log.Printf("LLAMA_INIT | lib=%s", libPath)
	return nil
}

// Load opens a GGUF model. When GPU offload fails the model is retried on
// the CPU.
func (e *LlamaEngine) Load(ctx context.Context, path string) (Model, error) {
	if err := CheckModelFile(path); err != nil {
		return nil, err
	}
	if err := initLibrary(e.opts.LibPath); err != nil {
		return nil, loadError(path, "inference engine unavailable", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, loadError(path, "load cancelled", err)
	}

	params := llama.ModelDefaultParams()
	params.NGpuLayers = int32(e.opts.GPULayers)

	model, err := llama.ModelLoadFromFile(path, params)
	if err != nil && e.opts.GPULayers != 0 {
		log.Printf("LLAMA_GPU_FALLBACK | path=%s error=%v", path, err)
		params.NGpuLayers = 0
		model, err = llama.ModelLoadFromFile(path, params)
	}
	if err != nil {
		return nil, loadError(path, "engine rejected model file", err)
	}

	return &llamaModel{
		model: model,
		path:  path,
		opts:  e.opts,
	}, nil
}

// =============================================================================
// LLAMA MODEL
// =============================================================================

type llamaModel struct {
	mu     sync.Mutex
	model  llama.Model
	path   string
	opts   LlamaOptions
	closed bool
	// streams counts open streams; the model is freed when the handle is
	// closed and the count reaches zero
	streams int
}

func (m *llamaModel) Name() string { return DisplayName(m.path) }
func (m *llamaModel) Path() string { return m.path }

// Stream sets up a fresh context for the prompt, evaluates it, and returns
// a stream that samples one token per Next call.
func (m *llamaModel) Stream(ctx context.Context, prompt string, cfg GenerateConfig) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, generationError("cannot generate", ErrNoModel)
	}

	ctxParams := llama.ContextDefaultParams()
	ctxParams.Embeddings = 0
	if m.opts.ContextSize > 0 {
		ctxParams.NCtx = uint32(m.opts.ContextSize)
	}
	if m.opts.BatchSize > 0 {
		ctxParams.NBatch = uint32(m.opts.BatchSize)
	}
	lctx, err := llama.InitFromModel(m.model, ctxParams)
	if err != nil {
		return nil, generationError("failed to create context", err)
	}

	vocab := llama.ModelGetVocab(m.model)
	tokens := llama.Tokenize(vocab, prompt, true, false)
	if len(tokens) == 0 {
		llama.Free(lctx)
		return nil, generationError("prompt produced no tokens", nil)
	}
	if n := int(llama.NCtx(lctx)); n > 0 && len(tokens) >= n {
		llama.Free(lctx)
		return nil, generationError(fmt.Sprintf("prompt too long: %d tokens does not fit the %d token context", len(tokens), n), nil)
	}

	sp := llama.DefaultSamplerParams()
	sp.Temp = float32(cfg.Temperature)
	sampler := llama.NewSampler(m.model, llama.DefaultSamplers, sp)

	// BatchGetOne returns a batch view over tokens; it is not freed.
	for _, chunk := range promptChunks(tokens, int(llama.NBatch(lctx))) {
		if _, err := llama.Decode(lctx, llama.BatchGetOne(chunk)); err != nil {
			llama.SamplerFree(sampler)
			llama.Free(lctx)
			return nil, generationError("prompt decode failed", err)
		}
	}

	m.streams++
	return &llamaStream{
		owner:     m,
		ctx:       ctx,
		lctx:      lctx,
		vocab:     vocab,
		sampler:   sampler,
		maxTokens: cfg.MaxTokens,
		buf:       make([]byte, 64),
	}, nil
}

// promptChunks splits tokens into batches of at most size tokens. A size of
// zero or less yields a single batch.
func promptChunks(tokens []llama.Token, size int) [][]llama.Token {
	if size <= 0 || len(tokens) <= size {
		return [][]llama.Token{tokens}
	}
	chunks := make([][]llama.Token, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}

// Generate runs the stream to completion.
func (m *llamaModel) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	s, err := m.Stream(ctx, prompt, cfg)
	if err != nil {
		return "", err
	}
	return Collect(s)
}

func (m *llamaModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.streams == 0 {
		llama.ModelFree(m.model)
	} else {
		log.Printf("LLAMA_FREE_DEFERRED | model=%s streams=%d", m.Name(), m.streams)
	}
	return nil
}

// release is called by a stream after it has freed its own context.
func (m *llamaModel) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams--
	if m.closed && m.streams == 0 {
		llama.ModelFree(m.model)
	}
}

// =============================================================================
// LLAMA STREAM
// =============================================================================

type llamaStream struct {
	owner   *llamaModel
	ctx     context.Context
	lctx    llama.Context
	vocab   llama.Vocab
	sampler llama.Sampler

	maxTokens int
	generated int
	finished  bool
	buf       []byte
	dec       pieceDecoder

	closeOnce sync.Once
}

// Next samples tokens until it has a complete UTF-8 fragment to return.
// A cancelled context is returned as-is so callers can tell a stop from a
// failure.
func (s *llamaStream) Next() (string, error) {
	for {
		if s.finished {
			if rest := s.dec.Flush(); rest != "" {
				return rest, nil
			}
			s.Close()
			return "", io.EOF
		}

		if err := s.ctx.Err(); err != nil {
			s.finished = true
			s.Close()
			return "", err
		}

		if s.maxTokens > 0 && s.generated >= s.maxTokens {
			s.finished = true
			continue
		}

		token := llama.SamplerSample(s.sampler, s.lctx, -1)
		if llama.VocabIsEOG(s.vocab, token) {
			s.finished = true
			continue
		}
		s.generated++

		n := llama.TokenToPiece(s.vocab, token, s.buf, 0, true)
		if n < 0 {
			// Buffer too small; -n is the required size
			s.buf = make([]byte, -n)
			n = llama.TokenToPiece(s.vocab, token, s.buf, 0, true)
		}

		if _, err := llama.Decode(s.lctx, llama.BatchGetOne([]llama.Token{token})); err != nil {
			s.finished = true
			s.Close()
			return "", generationError(fmt.Sprintf("decode failed at token %d", s.generated), err)
		}

		if n > 0 {
			if frag := s.dec.Push(s.buf[:n]); frag != "" {
				return frag, nil
			}
		}
	}
}

// Close frees the sampler and context. Safe to call more than once.
func (s *llamaStream) Close() error {
	s.closeOnce.Do(func() {
		s.finished = true
		llama.SamplerFree(s.sampler)
		llama.Free(s.lctx)
		s.owner.release()
	})
	return nil
}
