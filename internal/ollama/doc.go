// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a local Ollama server.
//
// WinChi uses Ollama as an alternative inference backend: a GGUF file is
// uploaded as a blob, registered as a model, and prompted through
// /api/generate.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama API
//   - ClientError: Typed error with an ErrorType category
//   - StreamReader: Pull-style reader over an NDJSON generate stream
//   - StreamStats: Timing and throughput of a finished stream
//
// # Usage
//
// Import a model file:
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url})
//	if ok, _ := client.HasBlob(ctx, digest); !ok {
//	    err = client.PushBlob(ctx, digest, file, size)
//	}
//	err = client.CreateModel(ctx, "winchi-tiny", map[string]string{"tiny.gguf": digest})
//
// Stream a completion:
//
//	reader, err := client.GenerateStream(ctx, ollama.GenerateRequest{Model: name, Prompt: p})
//	defer reader.Close()
//	for {
//	    chunk, err := reader.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    fmt.Print(chunk.Content)
//	}
package ollama
