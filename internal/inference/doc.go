// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package inference wraps the engines that turn a prompt into text.
//
// An Engine loads a model file into a Model; a Model yields a Stream of
// text fragments for a prompt. Two engines are provided: llama.cpp running
// in-process (the default) and a local Ollama server.
//
// # Key Types
//
//   - Engine: Loads .gguf/.bin model files
//   - Model: Loaded handle with Stream and Generate
//   - Stream: Pull-style fragment iterator ending in io.EOF
//   - Error: Load or generation failure with Kind and Cause
//
// # Usage
//
//	engine, err := inference.New(cfg)
//	model, err := engine.Load(ctx, "/models/tiny.gguf")
//	defer model.Close()
//
//	s, err := inference.Run(ctx, model, "Hello", inference.GenerateConfig{
//	    MaxTokens:   256,
//	    Temperature: 0.7,
//	    Streaming:   true,
//	})
//	for {
//	    frag, err := s.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    fmt.Print(frag)
//	}
package inference
