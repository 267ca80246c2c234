// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
	"github.com/Bankaii7723/WinChi/internal/stream"
)

// =============================================================================
// GENERATION MESSAGES
// =============================================================================

// TickMsg drives the periodic drain of the streaming bridge.
type TickMsg time.Time

// GenerationDoneMsg is sent when the background task for RequestID returns.
type GenerationDoneMsg struct {
	RequestID string
	Result    stream.Result
}

// =============================================================================
// MODEL MESSAGES
// =============================================================================

// ModelLoadedMsg reports the outcome of a model load.
type ModelLoadedMsg struct {
	Path  string
	Model inference.Model
	Err   error
}

// ModelClosedMsg reports that a replaced model handle was released.
type ModelClosedMsg struct {
	Name string
	Err  error
}

// ModelFileChangedMsg is sent when the watched model file changes on disk.
type ModelFileChangedMsg struct {
	Change  modelfile.Change
	watcher *modelfile.Watcher
}
