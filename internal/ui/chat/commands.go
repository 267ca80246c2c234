// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
	"github.com/Bankaii7723/WinChi/internal/session"
	"github.com/Bankaii7723/WinChi/internal/stream"
)

// =============================================================================
// COMMANDS
// =============================================================================

// tickCmd schedules the next bridge drain.
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// generateCmd is the background task for one request. It pulls fragments
// from the model into bridge and reports the result when done. done is
// called once the stream is closed.
func generateCmd(ctx context.Context, model inference.Model, req session.Request, bridge *stream.Bridge, done func()) tea.Cmd {
	return func() tea.Msg {
		defer done()
		open := inference.Opener(model, req.Prompt, inference.GenerateConfig{
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			Streaming:   true,
		})
		return GenerationDoneMsg{RequestID: req.ID, Result: stream.RunOpened(ctx, open, bridge)}
	}
}

// loadModelCmd loads path with engine off the event loop.
func loadModelCmd(engine inference.Engine, path string) tea.Cmd {
	return func() tea.Msg {
		if engine == nil {
			return ModelLoadedMsg{Path: path, Err: errors.New("no inference engine configured")}
		}
		model, err := engine.Load(context.Background(), path)
		return ModelLoadedMsg{Path: path, Model: model, Err: err}
	}
}

// closeModelCmd releases a replaced model handle.
func closeModelCmd(model inference.Model) tea.Cmd {
	return func() tea.Msg {
		return ModelClosedMsg{Name: model.Name(), Err: model.Close()}
	}
}

// waitForModelChange blocks until w reports a change. It returns nil once
// the watcher is closed.
func waitForModelChange(w *modelfile.Watcher) tea.Cmd {
	return func() tea.Msg {
		change, ok := w.Next()
		if !ok {
			return nil
		}
		return ModelFileChangedMsg{Change: change, watcher: w}
	}
}
