// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"time"
)

// Source yields fragments until it returns io.EOF.
// inference.Stream satisfies it.
type Source interface {
	Next() (string, error)
}

// Result summarizes a finished worker run.
type Result struct {
	// Fragments is the number of fragments enqueued
	Fragments int
	// Stopped is true when the run ended because a stop was requested
	Stopped bool
	// Err is the generation error, if the source failed
	Err error
	// Elapsed is the wall time of the run
	Elapsed time.Duration
}

// Run pulls fragments from src and enqueues them on bridge until the source
// is exhausted, fails, or a stop is requested.
//
// The stop flag is checked after every received fragment and before it is
// enqueued, so once RequestStop has been observed no further fragment
// reaches the queue. Errors returned after a stop (typically a cancelled
// context) are reported as a stop, not as a failure.
func Run(ctx context.Context, src Source, bridge *Bridge) Result {
	start := time.Now()
	var res Result

	finish := func() Result {
		res.Elapsed = time.Since(start)
		return res
	}

	for {
		if bridge.IsStopped() {
			res.Stopped = true
			return finish()
		}

		frag, err := src.Next()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
			case bridge.IsStopped():
				res.Stopped = true
			case ctx.Err() != nil && errors.Is(err, ctx.Err()):
				res.Stopped = true
			default:
				res.Err = err
			}
			return finish()
		}

		if bridge.IsStopped() {
			res.Stopped = true
			return finish()
		}

		bridge.Enqueue(frag)
		res.Fragments++
	}
}

// Opener starts a generation and returns its fragment source.
type Opener func(ctx context.Context) (Source, error)

// RunOpened calls open and runs the source it returns into bridge. A failure
// to open is reported as the run's error, or as a stop when one was
// requested. Sources that implement io.Closer are closed afterwards.
func RunOpened(ctx context.Context, open Opener, bridge *Bridge) Result {
	start := time.Now()

	src, err := open(ctx)
	if err != nil {
		res := Result{Elapsed: time.Since(start)}
		if bridge.IsStopped() || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
			res.Stopped = true
		} else {
			res.Err = err
		}
		return res
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	res := Run(ctx, src, bridge)
	res.Elapsed = time.Since(start)
	return res
}
