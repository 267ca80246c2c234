// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for WinChi.
//
// Supports TOML, YAML and JSON configuration formats, with sensible defaults,
// .env and environment variable overrides, and validation. Configuration is
// read-only: WinChi never writes a config file back.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - InferenceConfig: Backend selection and llama.cpp tuning
//   - GenerationConfig: Initial token limit and temperature
//   - ValidateErrors: Aggregated validation failures
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (WINCHI_*), including those set by ./.env
//   - $WINCHI_CONFIG
//   - ~/.winchi/config.toml
//   - ~/.winchi/config.yaml (or config.yml)
//   - ~/.winchi/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tick := cfg.TickInterval()
package config
