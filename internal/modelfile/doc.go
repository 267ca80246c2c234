// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modelfile handles model file paths and watches the loaded file.
//
// # Key Types
//
//   - Watcher: fsnotify watcher for one file with debounced Change events
//   - Change: A modification or removal of the watched file
//
// # Usage
//
//	if !modelfile.HasModelExtension(path) {
//	    return errUnsupported
//	}
//	w, err := modelfile.NewWatcher(path, 250*time.Millisecond)
//	defer w.Close()
//	if c, ok := w.Next(); ok {
//	    log.Printf("model %s", c.Kind)
//	}
package modelfile
