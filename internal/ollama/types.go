// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Options contains model parameters for inference.
type Options struct {
	// Sampling parameters
	Temperature float64 `json:"temperature,omitempty"` // 0.0-2.0, default 0.8
	TopK        int     `json:"top_k,omitempty"`       // Default 40
	TopP        float64 `json:"top_p,omitempty"`       // 0.0-1.0, default 0.9

	// Context parameters
	NumCtx     int `json:"num_ctx,omitempty"`     // Context window size, default 2048
	NumPredict int `json:"num_predict,omitempty"` // Max tokens to generate, -1 for unlimited

	// Performance parameters
	NumGPU   int `json:"num_gpu,omitempty"`   // Number of GPU layers to use
	NumBatch int `json:"num_batch,omitempty"` // Batch size for prompt processing
}

// GenerateRequest is the request body for /api/generate endpoint.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
	Raw     bool     `json:"raw,omitempty"`
}

// CreateRequest is the request body for /api/create endpoint.
type CreateRequest struct {
	Model  string            `json:"model"`
	Files  map[string]string `json:"files"` // file name -> blob digest
	Stream bool              `json:"stream"`
}

// DeleteRequest is the request body for /api/delete endpoint.
type DeleteRequest struct {
	Model string `json:"model"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is the response from /api/generate endpoint.
// In streaming mode each NDJSON line decodes into one GenerateResponse.
type GenerateResponse struct {
	Model              string    `json:"model"`
	CreatedAt          time.Time `json:"created_at"`
	Response           string    `json:"response"`
	Done               bool      `json:"done"`
	DoneReason         string    `json:"done_reason,omitempty"`
	Error              string    `json:"error,omitempty"`
	TotalDuration      int64     `json:"total_duration,omitempty"`       // nanoseconds
	LoadDuration       int64     `json:"load_duration,omitempty"`        // nanoseconds
	PromptEvalCount    int       `json:"prompt_eval_count,omitempty"`    // number of tokens in prompt
	PromptEvalDuration int64     `json:"prompt_eval_duration,omitempty"` // nanoseconds
	EvalCount          int       `json:"eval_count,omitempty"`           // number of tokens generated
	EvalDuration       int64     `json:"eval_duration,omitempty"`        // nanoseconds
}

// StatusResponse is the response from /api/create when streaming is off.
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// TokensPerSecond calculates the generation speed from a response.
func (r *GenerateResponse) TokensPerSecond() float64 {
	if r.EvalDuration == 0 {
		return 0
	}
	seconds := float64(r.EvalDuration) / 1e9
	return float64(r.EvalCount) / seconds
}

// TotalTime returns the total generation time.
func (r *GenerateResponse) TotalTime() time.Duration {
	return time.Duration(r.TotalDuration)
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk represents a single chunk from a streaming response.
type StreamChunk struct {
	// Content is the response text carried by this chunk
	Content string

	// Timing information (only populated on final chunk)
	Done               bool
	DoneReason         string
	TotalDuration      time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration

	// Token counts (only populated on final chunk)
	PromptTokens     int
	CompletionTokens int

	// Model information
	Model string
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// OllamaError represents an error from the Ollama API.
type OllamaError struct {
	Error string `json:"error"`
}
