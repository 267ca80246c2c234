// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements WinChi's command-line surface: argument parsing,
// configuration loading, exit codes and the line-mode commands.
//
// # Commands
//
//	winchi [tui]              full-screen UI (the default)
//	winchi chat --model PATH  interactive line-mode chat
//	winchi ask --model PATH PROMPT...
//	winchi bench [--json] [MODEL...]
//	winchi version | help
//
// # Line Mode
//
// RunChat streams replies to the terminal through the same stream.Bridge
// and worker as the UI, draining the queue on a ticker. RunAsk performs a
// single non-streaming generation and optionally renders it as markdown.
// RunBench times the configured model, or compares several model files,
// with the benchmark package.
//
// # Exit Codes
//
// ExitCode maps errors to process exit codes: usage errors to 2, invalid
// configuration to 3, model load failures to 4 and generation failures
// to 5.
package cli
