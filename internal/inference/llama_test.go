// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"path/filepath"
	"testing"

	"github.com/hybridgroup/yzma/pkg/llama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLibrary_RetriesAfterFailure(t *testing.T) {
	t.Setenv("YZMA_LIB", "")

	err := initLibrary("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library path not set")

	missing := filepath.Join(t.TempDir(), "no-libs")
	err = initLibrary(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing, "second call tries the new path")
}

func TestPromptChunks(t *testing.T) {
	tokens := []llama.Token{1, 2, 3, 4, 5}

	assert.Equal(t, [][]llama.Token{tokens}, promptChunks(tokens, 0))
	assert.Equal(t, [][]llama.Token{tokens}, promptChunks(tokens, 8))
	assert.Equal(t, [][]llama.Token{{1, 2}, {3, 4}, {5}}, promptChunks(tokens, 2))
	assert.Equal(t, [][]llama.Token{{1, 2, 3, 4, 5}}, promptChunks(tokens, 5))
}
