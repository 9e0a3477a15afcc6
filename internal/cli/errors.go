// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for the command handlers.
//
// Handlers always return errors; main decides how to display them.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/backoffice-tui/internal/config"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	// ExitAuthError covers bad credentials, no session and expired sessions.
	ExitAuthError    = 4
	ExitNetworkError = 5
	// ExitDenied is returned by "can" when the screen redirects.
	ExitDenied = 6
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a malformed command line.
type UsageError struct {
	Message string
	Usage   string
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Message, e.Usage)
	}
	return e.Message
}

// ErrMissingArgument reports a required argument that was not given.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Message: "missing required argument: " + argName, Usage: usage}
}

// ErrDenied is returned by "can" when the route is not rendered as asked.
var ErrDenied = errors.New("access redirected")

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	// can has already printed the outcome
	if err == nil || err == ErrDenied {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var validateErrs config.ValidateErrors
	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &validateErrs):
		return ExitConfigError
	case errors.Is(err, ErrDenied):
		return ExitDenied
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, session.ErrNotAuthenticated),
		errors.Is(err, session.ErrTooManyAttempts):
		return ExitAuthError
	case identity.IsNetwork(err):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}
