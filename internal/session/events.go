// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/jeranaias/backoffice-tui/internal/identity"
)

// EventType identifies a session event.
type EventType int

const (
	// EventLoggedIn follows a successful Login.
	EventLoggedIn EventType = iota + 1
	// EventRestored follows a Restore that found a live session.
	EventRestored
	// EventWarning fires shortly before the lifetime runs out.
	EventWarning
	// EventExpired fires when the lifetime runs out, before the logout.
	EventExpired
	// EventLoggedOut follows every transition to no session.
	EventLoggedOut
)

// String returns the event name.
func (e EventType) String() string {
	switch e {
	case EventLoggedIn:
		return "LOGGED_IN"
	case EventRestored:
		return "RESTORED"
	case EventWarning:
		return "WARNING"
	case EventExpired:
		return "EXPIRED"
	case EventLoggedOut:
		return "LOGGED_OUT"
	default:
		return "UNKNOWN"
	}
}

// Reason tells why a session ended.
type Reason string

// Logout reasons.
const (
	ReasonUser     Reason = "user"
	ReasonExpired  Reason = "expired"
	ReasonRejected Reason = "token-rejected"
)

// Event is delivered to subscribers.
type Event struct {
	Type EventType
	// User is the session's user; zero for EventLoggedOut without a session.
	User identity.UserRecord
	At   time.Time
	// Remaining is set on EventWarning and EventRestored.
	Remaining time.Duration
	// Reason is set on EventLoggedOut.
	Reason Reason
}

// Listener receives session events.
type Listener func(Event)
