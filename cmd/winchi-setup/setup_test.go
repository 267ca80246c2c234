// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bankaii7723/WinChi/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WINCHI_CONFIG", "WINCHI_BACKEND", "WINCHI_MODEL", "WINCHI_LIB", "YZMA_LIB",
		"WINCHI_GPU_LAYERS", "WINCHI_MAX_TOKENS", "WINCHI_TEMPERATURE",
		"WINCHI_OLLAMA_URL", "WINCHI_TICK_MS", "WINCHI_MARKDOWN", "WINCHI_LOG_FILE",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// CHECKS
// =============================================================================

func TestCheckModel(t *testing.T) {
	assert.Equal(t, StatusWarn, checkModel("").Status)

	missing := checkModel(filepath.Join(t.TempDir(), "gone.gguf"))
	assert.Equal(t, StatusFail, missing.Status)
	assert.NotEmpty(t, missing.Fix)

	wrongExt := checkModel(writeFile(t, "notes.txt", "x"))
	assert.Equal(t, StatusFail, wrongExt.Status)

	ok := checkModel(writeFile(t, "tiny.gguf", "GGUF"))
	assert.Equal(t, StatusPass, ok.Status)
	assert.Equal(t, "tiny.gguf (4 B)", ok.Message)
}

func TestCheckLlamaLib(t *testing.T) {
	clearEnv(t)

	assert.Equal(t, StatusFail, checkLlamaLib("").Status)
	assert.Equal(t, StatusFail, checkLlamaLib(filepath.Join(t.TempDir(), "nope")).Status)
	assert.Equal(t, StatusWarn, checkLlamaLib(writeFile(t, "libllama.so", "")).Status)

	dir := t.TempDir()
	res := checkLlamaLib(dir)
	assert.Equal(t, StatusPass, res.Status)
	assert.Equal(t, dir, res.Message)

	t.Setenv("YZMA_LIB", dir)
	assert.Equal(t, StatusPass, checkLlamaLib("").Status)
}

func TestCheckOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Inference.Backend = config.BackendOllama
	cfg.Ollama.URL = srv.URL

	res := checkBackend(context.Background(), cfg)
	assert.Equal(t, "Ollama Service", res.Name)
	assert.Equal(t, StatusPass, res.Status)

	srv.Close()
	res = checkBackend(context.Background(), cfg)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, "Run: ollama serve", res.Fix)
}

func TestCheckDisk(t *testing.T) {
	dir := t.TempDir()
	res := checkDisk(dir)
	assert.NotEqual(t, StatusFail, res.Status)
	assert.Contains(t, res.Message, dir)
}

func TestDiskCheckDir(t *testing.T) {
	model := writeFile(t, "tiny.gguf", "GGUF")
	cfg := config.Default()
	cfg.Inference.ModelPath = model
	assert.Equal(t, filepath.Dir(model), diskCheckDir(cfg))

	modelDir := t.TempDir()
	cfg.Inference.ModelPath = ""
	cfg.UI.ModelDir = modelDir
	assert.Equal(t, modelDir, diskCheckDir(cfg))
}

func TestFailed(t *testing.T) {
	assert.False(t, failed([]CheckResult{{Status: StatusPass}, {Status: StatusWarn}}))
	assert.True(t, failed([]CheckResult{{Status: StatusPass}, {Status: StatusFail}}))
}

// =============================================================================
// SETUP FLOW
// =============================================================================

func newTestSetup(configPath, model string, input string) (*setup, *bytes.Buffer) {
	var out bytes.Buffer
	return &setup{
		out:         &out,
		in:          bufio.NewReader(strings.NewReader(input)),
		interactive: input != "",
		model:       model,
		configPath:  configPath,
	}, &out
}

func runSetup(t *testing.T, s *setup) {
	t.Helper()
	if err := s.run(context.Background()); err != nil {
		require.ErrorIs(t, err, errChecksFailed)
	}
}

func TestSetup_WritesConfig(t *testing.T) {
	clearEnv(t)
	model := writeFile(t, "tiny.gguf", "GGUF")
	path := filepath.Join(t.TempDir(), "config.toml")

	s, out := newTestSetup(path, model, "")
	runSetup(t, s)

	assert.Contains(t, out.String(), "SYSTEM CHECK")
	assert.Contains(t, out.String(), "Wrote "+path)

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, model, cfg.Inference.ModelPath)
}

func TestSetup_KeepsExistingConfigWithoutForce(t *testing.T) {
	clearEnv(t)
	first := writeFile(t, "first.gguf", "GGUF")
	second := writeFile(t, "second.gguf", "GGUF")
	path := filepath.Join(t.TempDir(), "config.toml")

	s, _ := newTestSetup(path, first, "")
	runSetup(t, s)

	s, out := newTestSetup(path, second, "")
	runSetup(t, s)
	assert.Contains(t, out.String(), "already exists")

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, first, cfg.Inference.ModelPath)

	s, _ = newTestSetup(path, second, "")
	s.force = true
	runSetup(t, s)

	cfg, err = config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, second, cfg.Inference.ModelPath)
}

func TestSetup_AsksForModel(t *testing.T) {
	clearEnv(t)
	model := writeFile(t, "tiny.gguf", "GGUF")
	path := filepath.Join(t.TempDir(), "config.toml")

	input := filepath.Join(t.TempDir(), "missing.gguf") + "\n" + model + "\n"
	s, out := newTestSetup(path, "", input)
	runSetup(t, s)

	assert.Contains(t, out.String(), "[XX]")
	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, model, cfg.Inference.ModelPath)
}

func TestSetup_CheckOnlyWritesNothing(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	s, out := newTestSetup(path, "", "")
	s.checkOnly = true
	runSetup(t, s)

	assert.NotContains(t, out.String(), "CONFIGURATION")
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
