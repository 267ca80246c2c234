// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package benchmark measures how a loaded model performs through the same
// streaming path the chat uses.
//
// Each test streams a prompt through stream.RunOpened and records the time
// to the first fragment, fragments per second and a rough quality score.
// Fragments are the engine's output pieces, one per token for llama.cpp.
//
// # Key Types
//
//   - Runner: runs the test suite on one model
//   - Result: per-model results and averages
//   - Comparison: results for several model files
//   - Test: a prompt plus a quality evaluator
//
// # Usage
//
//	runner := benchmark.NewRunner(model, 256, 0.7)
//	result, err := runner.Run(ctx)
//	fmt.Println(result.Summary())
//
// Compare model files:
//
//	tests, err := benchmark.SelectTests([]string{"latency", "speed"}, "")
//	cmp, err := benchmark.RunComparison(ctx, engine, paths, tests, 256, 0.7)
//	fmt.Println(cmp.ComparisonSummary())
package benchmark
