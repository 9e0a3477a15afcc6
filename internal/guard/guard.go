// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard decides which screen to render for a navigation request.
// It combines the session's current role with the access policy and keeps
// the answer current as the session changes underneath it.
package guard

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/logging"
	"github.com/jeranaias/backoffice-tui/internal/session"
)

// DefaultMaxHops bounds how many redirects one navigation may follow.
const DefaultMaxHops = 4

// ReasonLoop marks an outcome whose redirect chain revisited a route or ran
// out of hops. The login screen is rendered in that case.
const ReasonLoop access.Reason = "redirect-loop"

// Sessions is the slice of the session manager the guard reads.
type Sessions interface {
	Role() access.Role
	Subscribe(fn session.Listener) func()
}

// Outcome is the result of a navigation.
type Outcome struct {
	// Requested is the route that was asked for.
	Requested access.RouteID
	// Render is the route to show after following redirects.
	Render access.RouteID
	// Redirected is true when Render differs from Requested.
	Redirected bool
	// Reason is the reason of the first redirect, or ReasonAllowed.
	Reason access.Reason
	// Path lists every route visited, Requested first and Render last.
	Path []access.RouteID
}

func (o Outcome) String() string {
	if !o.Redirected {
		return fmt.Sprintf("%s: allowed", o.Render)
	}
	hops := make([]string, len(o.Path))
	for i, r := range o.Path {
		hops[i] = string(r)
	}
	return fmt.Sprintf("%s: %s (%s)", o.Requested, strings.Join(hops, " -> "), o.Reason)
}

// Option configures a Guard.
type Option func(*Guard)

// WithMaxHops overrides DefaultMaxHops.
func WithMaxHops(n int) Option {
	return func(g *Guard) {
		if n > 0 {
			g.maxHops = n
		}
	}
}

// WithLogger logs redirects.
func WithLogger(l *logging.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l.WithComponent("guard")
		}
	}
}

// Guard tracks the current route for one console.
type Guard struct {
	sessions Sessions
	policy   *access.Policy
	maxHops  int
	log      *logging.Logger

	mu       sync.Mutex
	current  Outcome
	onChange func(Outcome)
	unsub    func()
	// gen counts session events. An outcome evaluated under an older gen
	// is stale and never published.
	gen uint64
}

// New creates a Guard positioned on the login route and subscribes it to
// session events. A nil policy means access.Default().
func New(sessions Sessions, policy *access.Policy, opts ...Option) *Guard {
	if policy == nil {
		policy = access.Default()
	}
	g := &Guard{
		sessions: sessions,
		policy:   policy,
		maxHops:  DefaultMaxHops,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.current = g.evaluate(access.RouteLogin)
	g.unsub = sessions.Subscribe(g.handleEvent)
	return g
}

// Navigate evaluates route for the current session, records the result as
// the current screen and publishes it.
//
// A session event arriving while route is being evaluated invalidates the
// result; route is then evaluated again against the new session.
func (g *Guard) Navigate(route access.RouteID) Outcome {
	for {
		g.mu.Lock()
		gen := g.gen
		g.mu.Unlock()

		out := g.evaluate(route)
		if g.publish(out, gen) {
			return out
		}
	}
}

// NavigateTo accepts a route ID or path.
func (g *Guard) NavigateTo(target string) (Outcome, error) {
	r, ok := access.Lookup(target)
	if !ok {
		return Outcome{}, fmt.Errorf("unknown route %q", target)
	}
	return g.Navigate(r.ID), nil
}

// Check evaluates route without moving.
func (g *Guard) Check(route access.RouteID) Outcome {
	return g.evaluate(route)
}

// Current returns the screen being shown.
func (g *Guard) Current() Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Refresh re-evaluates the requested route of the current screen.
func (g *Guard) Refresh() Outcome {
	g.mu.Lock()
	requested := g.current.Requested
	g.mu.Unlock()
	return g.Navigate(requested)
}

// OnChange sets the listener called with every new outcome. It replaces any
// previous listener; nil removes it.
func (g *Guard) OnChange(fn func(Outcome)) {
	g.mu.Lock()
	g.onChange = fn
	g.mu.Unlock()
}

// Close unsubscribes from session events.
func (g *Guard) Close() {
	g.mu.Lock()
	unsub := g.unsub
	g.unsub = nil
	g.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// evaluate follows redirects from route until a route is allowed.
func (g *Guard) evaluate(route access.RouteID) Outcome {
	role := g.sessions.Role()
	out := Outcome{Requested: route, Reason: access.ReasonAllowed, Path: []access.RouteID{route}}
	seen := map[access.RouteID]bool{route: true}

	cur := route
	for hop := 0; ; hop++ {
		d := g.policy.Resolve(role, cur)
		if d.Allow {
			out.Render = cur
			break
		}
		if hop == 0 {
			out.Reason = d.Reason
		}
		if seen[d.Redirect] || hop+1 > g.maxHops {
			out.Path = append(out.Path, access.RouteLogin)
			out.Render = access.RouteLogin
			out.Reason = ReasonLoop
			g.log.Error("redirect loop", "role", string(role), "route", string(route))
			break
		}
		seen[d.Redirect] = true
		out.Path = append(out.Path, d.Redirect)
		cur = d.Redirect
	}

	out.Redirected = out.Render != route
	if out.Redirected {
		g.log.SessionEvent(logging.EventAccessRedirected, "", "",
			fmt.Sprintf("role=%q route=%s render=%s reason=%s", role, route, out.Render, out.Reason))
	}
	return out
}

// publish records out unless a session event arrived since gen.
func (g *Guard) publish(out Outcome, gen uint64) bool {
	g.mu.Lock()
	if g.gen != gen {
		g.mu.Unlock()
		return false
	}
	g.current = out
	fn := g.onChange
	g.mu.Unlock()
	if fn != nil {
		fn(out)
	}
	return true
}

// handleEvent keeps the current screen valid. A fresh login lands on the
// role's landing route; any other event re-evaluates where we are.
func (g *Guard) handleEvent(ev session.Event) {
	g.mu.Lock()
	g.gen++
	g.mu.Unlock()

	switch ev.Type {
	case session.EventLoggedIn:
		g.Navigate(access.LandingRoute(g.sessions.Role()))
	default:
		g.Refresh()
	}
}
