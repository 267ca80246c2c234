// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"sync"
	"sync/atomic"
)

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge hands text fragments from the generation goroutine to the UI loop.
//
// Fragments are kept in an unbounded FIFO. There is one producer (the
// worker) and one consumer (the UI tick). Nothing on the Bridge blocks
// beyond a short critical section.
//
// IMPORTANT: Bridge must be shared by pointer. Bubble Tea copies models on
// every Update, and copying the mutex would split the queue.
type Bridge struct {
	mu    sync.Mutex
	queue []string

	stop atomic.Bool
}

// NewBridge creates an empty bridge with the stop flag cleared.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Enqueue appends a fragment to the queue. Called from the worker goroutine.
func (b *Bridge) Enqueue(fragment string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, fragment)
}

// DrainAll removes and returns every queued fragment in production order.
// Returns nil when the queue is empty. Called from the UI loop.
func (b *Bridge) DrainAll() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return nil
	}
	out := b.queue
	b.queue = nil
	return out
}

// Reset discards all queued fragments.
// Calling Reset before a new worker starts guarantees no fragment from an
// earlier generation is drained afterwards.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = nil
}

// Pending returns the number of queued fragments.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// =============================================================================
// CANCELLATION FLAG
// =============================================================================

// RequestStop asks the worker to stop at its next fragment boundary.
func (b *Bridge) RequestStop() {
	b.stop.Store(true)
}

// IsStopped reports whether a stop has been requested.
func (b *Bridge) IsStopped() bool {
	return b.stop.Load()
}

// ClearStop clears the cancellation flag before a new generation.
func (b *Bridge) ClearStop() {
	b.stop.Store(false)
}
