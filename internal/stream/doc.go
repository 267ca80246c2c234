// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream moves generated text from the background task to the UI.
//
// The worker (Run) pulls fragments from the model and pushes them onto a
// Bridge; the UI drains the Bridge on a periodic tick. A stop request is an
// atomic flag the worker checks between fragments.
//
// # Key Types
//
//   - Bridge: Fragment queue plus cancellation flag
//   - Source: Anything that yields fragments (inference.Stream)
//   - Result: Outcome of a worker run
//   - Opener: Starts a generation for RunOpened
//
// # Usage
//
//	bridge.ClearStop()
//	bridge.Reset()
//	go func() {
//	    res := stream.Run(ctx, src, bridge)
//	    done <- res
//	}()
//
//	// on every tick
//	for _, frag := range bridge.DrainAll() {
//	    transcript.WriteString(frag)
//	}
package stream
