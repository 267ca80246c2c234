// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader reads a /api/generate NDJSON response one chunk at a time.
// It is not safe for concurrent use.
type StreamReader struct {
	body   io.ReadCloser
	reader *bufio.Reader
	model  string
	done   bool
	stats  *StreamStats
}

// NewStreamReader creates a new stream reader over body.
func NewStreamReader(body io.ReadCloser) *StreamReader {
	return &StreamReader{
		body:   body,
		reader: bufio.NewReader(body),
		stats:  NewStreamStats(),
	}
}

// Next returns the next chunk. After the final chunk (Done set) it returns
// io.EOF. Blank and malformed lines are skipped. A server-side error line
// is returned as a ClientError.
func (s *StreamReader) Next() (StreamChunk, error) {
	for {
		if s.done {
			return StreamChunk{}, io.EOF
		}

		line, err := s.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return StreamChunk{}, &ClientError{
					Type:    ErrTypeInvalidResponse,
					Message: "stream ended before completion",
				}
			}
			return StreamChunk{}, err
		}

		chunk, ok, perr := s.parse(line)
		if perr != nil {
			return StreamChunk{}, perr
		}
		if !ok {
			if err != nil {
				// Last line was unusable and there is nothing more to read
				s.done = true
			}
			continue
		}

		if chunk.Content != "" {
			s.stats.RecordFirstToken()
		}
		if chunk.Done {
			s.done = true
			s.stats.Finalize(chunk)
		}
		return chunk, nil
	}
}

// parse decodes one NDJSON line. ok is false for lines to skip.
func (s *StreamReader) parse(line []byte) (StreamChunk, bool, error) {
	var response GenerateResponse
	if err := json.Unmarshal(line, &response); err != nil {
		// Skip malformed lines
		return StreamChunk{}, false, nil
	}

	if response.Error != "" {
		return StreamChunk{}, false, &ClientError{Type: ErrTypeServer, Message: response.Error}
	}

	// Track the model
	if response.Model != "" {
		s.model = response.Model
	}

	chunk := StreamChunk{
		Content:    response.Response,
		Done:       response.Done,
		DoneReason: response.DoneReason,
		Model:      s.model,
	}

	// On completion, extract statistics
	if response.Done {
		chunk.TotalDuration = time.Duration(response.TotalDuration)
		chunk.PromptEvalDuration = time.Duration(response.PromptEvalDuration)
		chunk.EvalDuration = time.Duration(response.EvalDuration)
		chunk.PromptTokens = response.PromptEvalCount
		chunk.CompletionTokens = response.EvalCount
	}

	return chunk, true, nil
}

// Close releases the underlying response body. Closing early aborts the
// server-side generation.
func (s *StreamReader) Close() error {
	s.done = true
	return s.body.Close()
}

// Stats returns the statistics collected so far.
func (s *StreamReader) Stats() *StreamStats {
	return s.stats
}

// Model returns the model name reported by the stream.
func (s *StreamReader) Model() string {
	return s.model
}

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// StreamStats holds statistics collected during streaming.
type StreamStats struct {
	// Timing
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Durations (from Ollama response)
	TotalDuration time.Duration
	EvalDuration  time.Duration

	// Token counts
	PromptTokens     int
	CompletionTokens int

	// Computed
	TTFT            time.Duration // Time to first token
	TokensPerSecond float64
}

// NewStreamStats creates a new StreamStats with start time set.
func NewStreamStats() *StreamStats {
	return &StreamStats{
		StartTime: time.Now(),
	}
}

// RecordFirstToken marks the time of first token arrival.
func (s *StreamStats) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes final statistics from the last chunk.
func (s *StreamStats) Finalize(chunk StreamChunk) {
	s.EndTime = time.Now()
	s.TotalDuration = chunk.TotalDuration
	s.EvalDuration = chunk.EvalDuration
	s.PromptTokens = chunk.PromptTokens
	s.CompletionTokens = chunk.CompletionTokens

	if s.EvalDuration > 0 {
		s.TokensPerSecond = float64(s.CompletionTokens) / s.EvalDuration.Seconds()
	}
}

// Format returns a compact one-line summary for logs.
func (s *StreamStats) Format() string {
	return "tokens=" + strconv.Itoa(s.CompletionTokens) +
		" tps=" + strconv.FormatFloat(s.TokensPerSecond, 'f', 1, 64) +
		" ttft_ms=" + strconv.FormatInt(s.TTFT.Milliseconds(), 10)
}
