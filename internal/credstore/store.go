// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credstore persists the authenticated session between runs.
//
// A record is three keys written and removed together:
//   - token: the bearer token
//   - user: the user record as JSON
//   - login_time: milliseconds since the Unix epoch
//
// Token and user are both present or both absent. A record missing one of
// them is cleared on load and reported as ErrCorrupt.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jeranaias/backoffice-tui/internal/identity"
)

// Storage keys.
const (
	KeyToken     = "token"
	KeyUser      = "user"
	KeyLoginTime = "login_time"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

var (
	// ErrCorrupt indicates a partial or undecodable record. The store has
	// already been cleared when this is returned.
	ErrCorrupt = errors.New("stored credentials are corrupt")

	// ErrClosed indicates use of a closed store.
	ErrClosed = errors.New("credential store is closed")

	// ErrIncomplete indicates an attempt to save a record without token or user.
	ErrIncomplete = errors.New("credential record requires both token and user")
)

// Record is a persisted session.
type Record struct {
	Token     string
	User      identity.UserRecord
	LoginTime time.Time
}

// Store persists at most one Record.
type Store interface {
	// Save replaces the stored record atomically.
	Save(rec Record) error
	// Load returns the stored record, or nil when there is none.
	Load() (*Record, error)
	// Clear removes the record. Clearing an empty store is not an error.
	Clear() error
	Close() error
}

// Open creates the store for a backend name.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendFile:
		return NewFileStore(path), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown credential store backend %q", backend)
	}
}

// =============================================================================
// ENCODING
// =============================================================================

// encode flattens a record into its storage keys.
func encode(rec Record) (map[string]string, error) {
	if rec.Token == "" || (rec.User.Email == "" && rec.User.ID == "") {
		return nil, ErrIncomplete
	}
	user, err := json.Marshal(rec.User)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	return map[string]string{
		KeyToken:     rec.Token,
		KeyUser:      string(user),
		KeyLoginTime: strconv.FormatInt(rec.LoginTime.UnixMilli(), 10),
	}, nil
}

// decode rebuilds a record. No keys at all means no session. A missing or
// unreadable login_time yields the zero time, which callers treat as expired.
func decode(values map[string]string) (*Record, error) {
	token, hasToken := values[KeyToken]
	userJSON, hasUser := values[KeyUser]
	if !hasToken && !hasUser {
		return nil, nil
	}
	if !hasToken || !hasUser || token == "" || userJSON == "" {
		return nil, ErrCorrupt
	}

	var user identity.UserRecord
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	rec := &Record{Token: token, User: user}
	if raw, ok := values[KeyLoginTime]; ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			rec.LoginTime = time.UnixMilli(ms)
		}
	}
	return rec, nil
}
