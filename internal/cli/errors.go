// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/Bankaii7723/WinChi/internal/config"
	"github.com/Bankaii7723/WinChi/internal/inference"
	"github.com/Bankaii7723/WinChi/internal/ollama"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitModelError indicates the model file could not be loaded
	ExitModelError = 4
	// ExitGenerationError indicates generation failed
	ExitGenerationError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid arguments.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return e.Command + ": " + e.Reason
}

func usageErrorf(command, format string, args ...any) error {
	return &UsageError{Command: command, Reason: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var validation config.ValidateErrors
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &validation):
		return ExitConfigError
	case inference.IsLoadError(err):
		return ExitModelError
	case inference.IsGenerationError(err):
		return ExitGenerationError
	default:
		return ExitGeneralError
	}
}

// DisplayError prints err in the CLI error style.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("[Error]"), err)

	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, infoStyle.Render(hint))
	}
}

// errorHint suggests a fix for errors the user can act on.
func errorHint(err error) string {
	var usage *UsageError
	switch {
	case errors.As(err, &usage):
		return "Run 'winchi help' for usage."
	case ollama.IsNotRunning(err):
		return "Start the server with 'ollama serve', or set inference.backend = \"llama\"."
	case ollama.IsTimeout(err):
		return "The Ollama server did not answer in time. Raise ollama.timeout_secs."
	case ollama.IsModelNotFound(err):
		return "The model is no longer on the Ollama server. Run the command again to re-import it."
	default:
		return ""
	}
}
