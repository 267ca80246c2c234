// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
)

// loadModel loads the model for a line-mode command. A missing path is a
// usage error.
func loadModel(ctx context.Context, engine inference.Engine, path, command string) (inference.Model, error) {
	path = modelfile.ExpandPath(path)
	if path == "" {
		return nil, usageErrorf(command, "no model file given: use --model PATH or set inference.model_path")
	}
	if engine == nil {
		return nil, errors.New("no inference engine configured")
	}

	start := time.Now()
	m, err := engine.Load(ctx, path)
	if err != nil {
		log.Printf("MODEL_LOAD_FAILED | path=%s error=%v", path, err)
		return nil, err
	}

	log.Printf("MODEL_LOAD | path=%s name=%s backend=%s elapsed_ms=%d",
		path, m.Name(), engine.Name(), time.Since(start).Milliseconds())
	return m, nil
}
