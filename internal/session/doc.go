// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the authenticated staff session.
//
// The Manager logs in against the identity service, persists the session
// through a credstore.Store, and enforces an absolute wall-clock lifetime
// with a single expiry timer. The lifetime is measured from login and is
// not extended by activity.
//
// # Lifecycle
//
//	Login    -> SESSION_CREATED, timer armed for the full lifetime
//	Restore  -> SESSION_RESTORED, timer armed for the remaining lifetime
//	           (or SESSION_EXPIRED and a cleared store when none remains)
//	Expiry   -> EventExpired, then logout
//	Logout   -> SESSION_TERMINATED, store cleared, in-flight requests cancelled
//
// # Concurrency
//
// All state is guarded by one mutex. Every logout bumps an epoch counter;
// a login or directory fetch that started under an older epoch is discarded
// when it completes, so logout always wins. Listeners run outside the lock,
// on the goroutine that caused the event (the timer goroutine for expiry).
package session
