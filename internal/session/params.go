// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Bankaii7723/WinChi/internal/config"
)

// =============================================================================
// SESSION PARAMETERS
// =============================================================================

// Params holds the per-session generation settings. Values are always within
// their configured ranges; setters clamp instead of failing.
type Params struct {
	mu sync.Mutex

	maxTokens   int
	temperature float64
	prefix      string
}

// NewParams creates session parameters with the given initial values,
// clamped to range.
func NewParams(maxTokens int, temperature float64) *Params {
	p := &Params{}
	p.SetMaxTokens(maxTokens)
	p.SetTemperature(temperature)
	return p
}

// DefaultParams returns parameters with the default token limit and
// temperature.
func DefaultParams() *Params {
	return NewParams(config.DefaultMaxTokens, config.DefaultTemperature)
}

// FromConfig creates session parameters from the generation section of cfg.
func FromConfig(cfg *config.Config) *Params {
	if cfg == nil {
		return DefaultParams()
	}
	return NewParams(cfg.Generation.MaxTokens, cfg.Generation.Temperature)
}

// MaxTokens returns the current token limit.
func (p *Params) MaxTokens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxTokens
}

// Temperature returns the current temperature.
func (p *Params) Temperature() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.temperature
}

// Prefix returns the pending prefix without consuming it.
func (p *Params) Prefix() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefix
}

// SetMaxTokens sets the token limit, clamped to [MinMaxTokens, MaxMaxTokens].
func (p *Params) SetMaxTokens(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxTokens = clampTokens(n)
	return p.maxTokens
}

// StepMaxTokens adjusts the token limit by delta and returns the new value.
func (p *Params) StepMaxTokens(delta int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxTokens = clampTokens(p.maxTokens + delta)
	return p.maxTokens
}

// SetTemperature sets the temperature, snapped to 0.1 steps and clamped to
// [MinTemperature, MaxTemperature].
func (p *Params) SetTemperature(t float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.temperature = clampTemperature(t)
	return p.temperature
}

// StepTemperature adjusts the temperature by steps of 0.1 and returns the
// new value.
func (p *Params) StepTemperature(steps int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.temperature = clampTemperature(p.temperature + float64(steps)*config.TemperatureStep)
	return p.temperature
}

// SetPrefix sets the prefix prepended to the next submitted message.
// An empty string clears it.
func (p *Params) SetPrefix(prefix string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefix = prefix
}

// ClearPrefix discards any pending prefix.
func (p *Params) ClearPrefix() {
	p.SetPrefix("")
}

// BuildRequest snapshots the parameters into a Request for text and consumes
// the pending prefix. Later parameter changes do not affect the request.
func (p *Params) BuildRequest(text string) Request {
	p.mu.Lock()
	defer p.mu.Unlock()

	req := Request{
		ID:          uuid.NewString(),
		Text:        text,
		Prompt:      p.prefix + text,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}
	p.prefix = ""
	return req
}

func clampTokens(n int) int {
	if n < config.MinMaxTokens {
		return config.MinMaxTokens
	}
	if n > config.MaxMaxTokens {
		return config.MaxMaxTokens
	}
	return n
}

func clampTemperature(t float64) float64 {
	if math.IsNaN(t) {
		return config.DefaultTemperature
	}
	t = math.Round(t*10) / 10
	if t < config.MinTemperature {
		return config.MinTemperature
	}
	if t > config.MaxTemperature {
		return config.MaxTemperature
	}
	return t
}

// =============================================================================
// GENERATION REQUEST
// =============================================================================

// Request is an immutable snapshot of one generation request.
type Request struct {
	// ID identifies the request in logs
	ID string
	// Text is the user's message as typed, shown in the transcript
	Text string
	// Prompt is the full text sent to the model (prefix + Text)
	Prompt string
	// MaxTokens is the token limit for this request
	MaxTokens int
	// Temperature is the sampling temperature for this request
	Temperature float64
}

// ShortID returns the first eight characters of the request ID.
func (r Request) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// =============================================================================
// QUICK ACTIONS
// =============================================================================

// QuickAction is a named prompt prefix.
type QuickAction struct {
	Name   string
	Prefix string
}

// QuickActions are the built-in prefixes, in key order (F1, F2, F3).
var QuickActions = []QuickAction{
	{Name: "Explain like I'm 5", Prefix: "Explain simply like I'm 5: "},
	{Name: "Explain thoroughly", Prefix: "Explain thoroughly with examples: "},
	{Name: "Explain efficiently", Prefix: "Explain efficiently and concisely: "},
}

// PrefixLabel returns the quick action name for prefix, or the trimmed
// prefix itself when it is not a built-in one.
func PrefixLabel(prefix string) string {
	for _, qa := range QuickActions {
		if qa.Prefix == prefix {
			return qa.Name
		}
	}
	return strings.TrimSpace(prefix)
}
