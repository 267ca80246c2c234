// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// Kind categorizes inference errors.
type Kind int

const (
	// KindLoad means the model file could not be opened or loaded.
	KindLoad Kind = iota + 1
	// KindGeneration means the engine failed while producing text.
	KindGeneration
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindGeneration:
		return "generation"
	default:
		return "unknown"
	}
}

// Error is returned by engines and models for every failure.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" && e.Kind == KindLoad {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrModelNotFound   = errors.New("model file not found")
	ErrUnsupportedFile = errors.New("unsupported model file type")
	ErrIsDirectory     = errors.New("model path is a directory")
	ErrNoModel         = errors.New("no model loaded")
)

// loadError builds a KindLoad error.
func loadError(path, message string, cause error) *Error {
	return &Error{Kind: KindLoad, Path: path, Message: message, Cause: cause}
}

// generationError builds a KindGeneration error.
func generationError(message string, cause error) *Error {
	return &Error{Kind: KindGeneration, Message: message, Cause: cause}
}

// IsLoadError checks if an error is a model load failure.
func IsLoadError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindLoad
	}
	return false
}

// IsGenerationError checks if an error is a generation failure.
func IsGenerationError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindGeneration
	}
	return false
}
