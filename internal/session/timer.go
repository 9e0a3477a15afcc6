// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "time"

// expiryTimer is the single expiry task of a Manager. Arming always replaces
// the previous task. Each arm bumps the generation; a callback whose
// generation is no longer current was superseded and must do nothing.
//
// Not safe for concurrent use; the Manager's mutex guards it.
type expiryTimer struct {
	gen      uint64
	expire   Timer
	warn     Timer
	deadline time.Time
}

// arm schedules onExpire at deadline and, when warnBefore > 0 leaves room,
// onWarn at deadline-warnBefore. It returns the new generation.
func (t *expiryTimer) arm(clock Clock, deadline time.Time, warnBefore time.Duration, onWarn, onExpire func(gen uint64)) uint64 {
	t.disarm()
	gen := t.gen
	t.deadline = deadline

	d := deadline.Sub(clock.Now())
	if d < 0 {
		d = 0
	}
	t.expire = clock.AfterFunc(d, func() { onExpire(gen) })

	if warnBefore > 0 && d > warnBefore && onWarn != nil {
		t.warn = clock.AfterFunc(d-warnBefore, func() { onWarn(gen) })
	}
	return gen
}

// disarm cancels any scheduled callbacks and invalidates their generation.
func (t *expiryTimer) disarm() {
	t.gen++
	if t.expire != nil {
		t.expire.Stop()
		t.expire = nil
	}
	if t.warn != nil {
		t.warn.Stop()
		t.warn = nil
	}
	t.deadline = time.Time{}
}

// current reports whether gen is the live generation of an armed timer.
func (t *expiryTimer) current(gen uint64) bool {
	return t.expire != nil && gen == t.gen
}

func (t *expiryTimer) armed() bool {
	return t.expire != nil
}
