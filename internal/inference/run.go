// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/Bankaii7723/WinChi/internal/stream"
)

// Run starts a generation on m and always hands back a Stream.
//
// With cfg.Streaming set, the model's own stream is returned. Otherwise the
// full text is generated first and wrapped in a single-fragment stream, so
// callers consume both modes the same way.
func Run(ctx context.Context, m Model, prompt string, cfg GenerateConfig) (Stream, error) {
	if m == nil {
		return nil, generationError("cannot generate", ErrNoModel)
	}

	if cfg.Streaming {
		return m.Stream(ctx, prompt, cfg)
	}

	text, err := m.Generate(ctx, prompt, cfg)
	if err != nil {
		return nil, err
	}
	return NewStaticStream(text), nil
}

// Opener wraps Run for stream.RunOpened.
func Opener(m Model, prompt string, cfg GenerateConfig) stream.Opener {
	return func(ctx context.Context) (stream.Source, error) {
		s, err := Run(ctx, m, prompt, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Collect drains s and returns the concatenated text. On error the text
// produced so far is returned with it.
func Collect(s Stream) (string, error) {
	defer s.Close()

	var sb strings.Builder
	for {
		frag, err := s.Next()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(frag)
	}
}

// =============================================================================
// STATIC STREAM
// =============================================================================

// staticStream yields a fixed list of fragments.
type staticStream struct {
	frags []string
	pos   int
}

// NewStaticStream returns a stream that yields text as one fragment.
// Empty text yields no fragments.
func NewStaticStream(text string) Stream {
	if text == "" {
		return &staticStream{}
	}
	return &staticStream{frags: []string{text}}
}

func (s *staticStream) Next() (string, error) {
	if s.pos >= len(s.frags) {
		return "", io.EOF
	}
	f := s.frags[s.pos]
	s.pos++
	return f, nil
}

func (s *staticStream) Close() error {
	s.pos = len(s.frags)
	return nil
}
