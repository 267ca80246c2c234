// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
winchi-setup checks the system for WinChi and writes a starter config file.

# Checks

  - Operating system
  - Inference backend: the llama.cpp library directory, or a running
    Ollama server when inference.backend is "ollama"
  - The configured model file (exists, regular file, .gguf or .bin)
  - Free disk space where models are kept

# Building

	go build -o winchi-setup ./cmd/winchi-setup

# Command Line Options

	--model, -m PATH   Model file to configure
	--backend NAME     llama or ollama
	--config, -c PATH  Config file to write (default ~/.winchi/config.toml)
	--check            Only run the checks; exit 1 if any fails
	--force            Overwrite an existing config file

Without --model and with an interactive terminal, the model path is asked
for. An existing config file is kept unless --force is given.
*/
package main
