// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager holds the cancel function of the running generation.
// It must be held by pointer in Model so Bubble Tea's model copies share
// one mutex.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	requestID  string
	// running is closed when the task of requestID returns
	running chan struct{}
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// set stores the cancel function for requestID, cancelling any previous one.
// The task must call the returned function when it returns.
func (cm *cancelManager) set(requestID string, fn context.CancelFunc) (done func()) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.cancelFunc = fn
	cm.requestID = requestID

	running := make(chan struct{})
	cm.running = running
	var once sync.Once
	return func() { once.Do(func() { close(running) }) }
}

// wait blocks until the most recent task has returned or timeout elapses.
// It reports whether no task is still running.
func (cm *cancelManager) wait(timeout time.Duration) bool {
	cm.mu.Lock()
	running := cm.running
	cm.mu.Unlock()
	if running == nil {
		return true
	}
	select {
	case <-running:
		return true
	case <-time.After(timeout):
		return false
	}
}

// cancel cancels the running generation. Safe to call with nothing running.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
}

// clear releases the context of requestID once its task has finished.
// A stale ID leaves a newer generation untouched.
func (cm *cancelManager) clear(requestID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.requestID != requestID {
		return
	}
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.cancelFunc = nil
	cm.requestID = ""
}

// active reports whether a generation context is outstanding.
func (cm *cancelManager) active() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.cancelFunc != nil
}
