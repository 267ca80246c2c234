// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bankaii7723/WinChi/internal/config"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 256, p.MaxTokens())
	assert.InDelta(t, 0.7, p.Temperature(), 1e-9)
	assert.Empty(t, p.Prefix())
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Generation.MaxTokens = 100
	cfg.Generation.Temperature = 1.5

	p := FromConfig(cfg)
	assert.Equal(t, 100, p.MaxTokens())
	assert.InDelta(t, 1.5, p.Temperature(), 1e-9)

	assert.Equal(t, 256, FromConfig(nil).MaxTokens())
}

func TestParams_Clamping(t *testing.T) {
	tests := []struct {
		name       string
		tokens     int
		temp       float64
		wantTokens int
		wantTemp   float64
	}{
		{"in range", 512, 1.0, 512, 1.0},
		{"lower bounds", 1, 0.1, 1, 0.1},
		{"upper bounds", 2048, 2.0, 2048, 2.0},
		{"below range", 0, 0.0, 1, 0.1},
		{"negative", -50, -3, 1, 0.1},
		{"above range", 10000, 9.9, 2048, 2.0},
		{"snaps to tenth", 256, 0.74, 256, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParams(tt.tokens, tt.temp)
			assert.Equal(t, tt.wantTokens, p.MaxTokens())
			assert.InDelta(t, tt.wantTemp, p.Temperature(), 1e-9)
		})
	}
}

func TestParams_Steps(t *testing.T) {
	p := DefaultParams()

	assert.Equal(t, 257, p.StepMaxTokens(1))
	assert.Equal(t, 2048, p.StepMaxTokens(5000))
	assert.Equal(t, 1, p.StepMaxTokens(-5000))

	assert.InDelta(t, 0.8, p.StepTemperature(1), 1e-9)
	assert.InDelta(t, 0.3, p.StepTemperature(-5), 1e-9)
	assert.InDelta(t, 0.1, p.StepTemperature(-10), 1e-9)
	assert.InDelta(t, 2.0, p.StepTemperature(100), 1e-9)
}

func TestParams_RepeatedStepsDoNotDrift(t *testing.T) {
	p := NewParams(256, 0.1)
	for i := 0; i < 19; i++ {
		p.StepTemperature(1)
	}
	assert.Equal(t, 2.0, p.Temperature())
}

func TestBuildRequest_SnapshotsParameters(t *testing.T) {
	p := DefaultParams()
	req := p.BuildRequest("Hello")

	p.SetMaxTokens(10)
	p.SetTemperature(1.9)

	assert.Equal(t, "Hello", req.Prompt)
	assert.Equal(t, "Hello", req.Text)
	assert.Equal(t, 256, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	assert.NotEmpty(t, req.ID)
	assert.Len(t, req.ShortID(), 8)
}

func TestBuildRequest_ConsumesPrefix(t *testing.T) {
	p := DefaultParams()
	p.SetPrefix(QuickActions[0].Prefix)

	req := p.BuildRequest("black holes")
	assert.Equal(t, "Explain simply like I'm 5: black holes", req.Prompt)
	assert.Equal(t, "black holes", req.Text)
	assert.Empty(t, p.Prefix())

	next := p.BuildRequest("again")
	assert.Equal(t, "again", next.Prompt)
}

func TestBuildRequest_UniqueIDs(t *testing.T) {
	p := DefaultParams()
	a := p.BuildRequest("x")
	b := p.BuildRequest("x")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestQuickActions(t *testing.T) {
	require.Len(t, QuickActions, 3)
	assert.Equal(t, "Explain thoroughly with examples: ", QuickActions[1].Prefix)
	assert.Equal(t, "Explain efficiently and concisely: ", QuickActions[2].Prefix)

	assert.Equal(t, "Explain like I'm 5", PrefixLabel("Explain simply like I'm 5: "))
	assert.Equal(t, "Summarize:", PrefixLabel("Summarize: "))
}

// TestParams_ConcurrentAccess tests that setters and BuildRequest can race
// without corrupting state.
// Run with: go test -race -v ./internal/session/
func TestParams_ConcurrentAccess(t *testing.T) {
	p := DefaultParams()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			p.StepMaxTokens(n%3 - 1)
			p.StepTemperature(n%3 - 1)
		}(i)
		go func() {
			defer wg.Done()
			req := p.BuildRequest("hi")
			if req.MaxTokens < config.MinMaxTokens || req.MaxTokens > config.MaxMaxTokens {
				t.Errorf("token limit out of range: %d", req.MaxTokens)
			}
		}()
	}
	wg.Wait()
}
