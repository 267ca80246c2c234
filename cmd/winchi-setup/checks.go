// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/modelfile"
	"github.com/Bankaii7723/WinChi/internal/ollama"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Label is the bracketed marker printed before a result.
func (s Status) Label() string {
	switch s {
	case StatusPass:
		return "[OK]"
	case StatusWarn:
		return "[!!]"
	default:
		return "[XX]"
	}
}

// CheckResult represents a system check result.
type CheckResult struct {
	Name    string
	Status  Status
	Message string
	Fix     string
}

// minFreeSpace is the free space below which the disk check warns. Small
// quantized models need a few gigabytes.
const minFreeSpace = 4 << 30

// ollamaCheckTimeout bounds the Ollama health check.
const ollamaCheckTimeout = 3 * time.Second

// runChecks runs every system check against cfg.
func runChecks(ctx context.Context, cfg *config.Config) []CheckResult {
	return []CheckResult{
		checkOS(),
		checkBackend(ctx, cfg),
		checkModel(cfg.Inference.ModelPath),
		checkDisk(diskCheckDir(cfg)),
	}
}

func checkOS() CheckResult {
	return CheckResult{
		Name:    "Operating System",
		Status:  StatusPass,
		Message: fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// checkBackend verifies that the configured inference backend is usable.
func checkBackend(ctx context.Context, cfg *config.Config) CheckResult {
	switch strings.ToLower(cfg.Inference.Backend) {
	case config.BackendOllama:
		return checkOllama(ctx, cfg)
	default:
		return checkLlamaLib(cfg.Inference.LibPath)
	}
}

func checkLlamaLib(libPath string) CheckResult {
	res := CheckResult{Name: "llama.cpp Library"}
	if libPath == "" {
		libPath = os.Getenv("YZMA_LIB")
	}
	if libPath == "" {
		res.Status = StatusFail
		res.Message = "Library path not set"
		res.Fix = "Set inference.lib_path in the config or WINCHI_LIB to the llama.cpp library directory"
		return res
	}

	info, err := os.Stat(libPath)
	switch {
	case err != nil:
		res.Status = StatusFail
		res.Message = "Not found: " + libPath
		res.Fix = "Install the llama.cpp shared libraries and point inference.lib_path at them"
	case !info.IsDir():
		res.Status = StatusWarn
		res.Message = libPath + " is a file, expected the library directory"
		res.Fix = "Set inference.lib_path to the directory that holds the libraries"
	default:
		res.Status = StatusPass
		res.Message = libPath
	}
	return res
}

func checkOllama(ctx context.Context, cfg *config.Config) CheckResult {
	res := CheckResult{Name: "Ollama Service"}

	ctx, cancel := context.WithTimeout(ctx, ollamaCheckTimeout)
	defer cancel()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL: cfg.Ollama.URL,
		Timeout: ollamaCheckTimeout,
	})
	if err := client.CheckRunning(ctx); err != nil {
		res.Status = StatusFail
		res.Message = "Not reachable at " + cfg.Ollama.URL
		res.Fix = "Run: ollama serve"
		return res
	}

	res.Status = StatusPass
	res.Message = "Running at " + cfg.Ollama.URL
	return res
}

// checkModel validates the configured model file.
func checkModel(path string) CheckResult {
	res := CheckResult{Name: "Model File"}
	path = modelfile.ExpandPath(path)
	if path == "" {
		res.Status = StatusWarn
		res.Message = "No model configured"
		res.Fix = "Pass --model PATH, or load one from the Settings page"
		return res
	}

	if err := inference.CheckModelFile(path); err != nil {
		res.Status = StatusFail
		res.Message = err.Error()
		res.Fix = "Point --model at an existing " + strings.Join(modelfile.Extensions, " or ") + " file"
		return res
	}

	res.Status = StatusPass
	res.Message = inference.DisplayName(path)
	if info, err := os.Stat(path); err == nil {
		res.Message += " (" + humanize.IBytes(uint64(info.Size())) + ")"
	}
	return res
}

// checkDisk reports the free space on the volume holding dir.
func checkDisk(dir string) CheckResult {
	res := CheckResult{Name: "Disk Space"}

	free, err := freeDiskSpace(dir)
	if err != nil {
		res.Status = StatusWarn
		res.Message = "Could not determine free space: " + err.Error()
		return res
	}

	res.Message = humanize.IBytes(free) + " free in " + dir
	if free < minFreeSpace {
		res.Status = StatusWarn
		res.Fix = "Free up space before downloading models (" + humanize.IBytes(minFreeSpace) + " recommended)"
		return res
	}
	res.Status = StatusPass
	return res
}

// diskCheckDir picks the directory models are kept in: the model file's
// directory, the picker directory, then the home directory.
func diskCheckDir(cfg *config.Config) string {
	if p := modelfile.ExpandPath(cfg.Inference.ModelPath); p != "" {
		if dir := filepath.Dir(p); isDir(dir) {
			return dir
		}
	}
	return modelfile.StartDir(modelfile.ExpandPath(cfg.UI.ModelDir))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// failed reports whether any result failed.
func failed(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}
