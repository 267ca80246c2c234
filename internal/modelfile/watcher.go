// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelfile

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CHANGE EVENTS
// =============================================================================

// ChangeKind describes what happened to the watched file.
type ChangeKind int

const (
	// Modified means the file was written or recreated.
	Modified ChangeKind = iota
	// Removed means the file was deleted or renamed away.
	Removed
)

func (k ChangeKind) String() string {
	if k == Removed {
		return "removed"
	}
	return "modified"
}

// Change is delivered once per debounced burst of events on the file.
type Change struct {
	Path string
	Kind ChangeKind
}

// =============================================================================
// WATCHER
// =============================================================================

// Watcher reports changes to a single model file.
//
// The parent directory is watched rather than the file itself, so atomic
// replacements (write to temp, rename over) are seen as well.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	changes  chan Change

	mu      sync.Mutex
	pending *Change
	timer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewWatcher starts watching path. Events are coalesced over debounce.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     abs,
		watcher:  fsw,
		debounce: debounce,
		changes:  make(chan Change, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	go w.processEvents()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Next blocks until the next change or until the watcher is closed, in
// which case ok is false.
func (w *Watcher) Next() (Change, bool) {
	c, ok := <-w.changes
	return c, ok
}

// Close stops watching and ends any pending Next. Safe to call more than
// once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.watcher.Close()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.pending = nil
		close(w.changes)
		w.mu.Unlock()
	})
	return err
}

// processEvents filters directory events down to the watched file.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}

			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.schedule(Removed)
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.schedule(Modified)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("MODEL_WATCH_ERROR | path=%s error=%v", w.path, err)
		}
	}
}

// schedule records kind and (re)starts the debounce timer. The last kind
// seen in a burst wins.
func (w *Watcher) schedule(kind ChangeKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	w.pending = &Change{Path: w.path, Kind: kind}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush delivers the pending change without blocking; an undelivered
// earlier change is replaced.
func (w *Watcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending == nil || w.ctx.Err() != nil {
		return
	}
	c := *w.pending
	w.pending = nil

	select {
	case w.changes <- c:
	default:
		select {
		case <-w.changes:
		default:
		}
		w.changes <- c
	}
}
