// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials matches an *AuthError of kind InvalidCredentials.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired matches an *AuthError of kind SessionExpired.
	ErrSessionExpired = errors.New("session expired")

	// ErrLoginSuperseded is returned by a Login that was overtaken by Logout.
	ErrLoginSuperseded = errors.New("login superseded by logout")

	// ErrTooManyAttempts is returned when the client-side login throttle trips.
	ErrTooManyAttempts = errors.New("too many login attempts, wait a minute and try again")

	// ErrNotAuthenticated is returned by bearer operations without a session.
	ErrNotAuthenticated = errors.New("not logged in")
)

// AuthErrorKind classifies an AuthError.
type AuthErrorKind int

const (
	InvalidCredentials AuthErrorKind = iota + 1
	SessionExpired
)

// String returns the kind name.
func (k AuthErrorKind) String() string {
	switch k {
	case InvalidCredentials:
		return "InvalidCredentials"
	case SessionExpired:
		return "SessionExpired"
	default:
		return "Unknown"
	}
}

// AuthError is an authentication failure.
type AuthError struct {
	Kind AuthErrorKind
	// Message is the service's message, when it sent one.
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	base := ErrInvalidCredentials.Error()
	if e.Kind == SessionExpired {
		base = ErrSessionExpired.Error()
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", base, e.Message)
	}
	return base
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *AuthError) Is(target error) bool {
	switch e.Kind {
	case InvalidCredentials:
		return target == ErrInvalidCredentials
	case SessionExpired:
		return target == ErrSessionExpired
	}
	return false
}

func invalidCredentials(msg string, cause error) error {
	return &AuthError{Kind: InvalidCredentials, Message: msg, Err: cause}
}

func sessionExpired(msg string) error {
	return &AuthError{Kind: SessionExpired, Message: msg}
}
