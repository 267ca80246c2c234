// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelfile

import (
	"os"
	"path/filepath"
	"strings"
)

// Extensions lists the accepted model file extensions, lower case.
var Extensions = []string{".gguf", ".bin"}

// HasModelExtension reports whether path ends in a model file extension.
// The comparison is case-insensitive.
func HasModelExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ExpandPath expands a leading ~ and cleans the path. Typed paths go through
// this before validation.
func ExpandPath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, `"'`)
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// StartDir returns the directory the file picker opens in: dir when it
// exists, else the home directory, else the working directory.
func StartDir(dir string) string {
	if dir != "" {
		dir = ExpandPath(dir)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
