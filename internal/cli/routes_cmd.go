// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/guard"
	"github.com/jeranaias/backoffice-tui/internal/session"
	"github.com/jeranaias/backoffice-tui/internal/util"
)

const canUsage = "backoffice can <route|path> [--role admin|cashier|user|none]"

// fixedRole answers guard questions for a role other than the session's.
type fixedRole access.Role

func (r fixedRole) Role() access.Role               { return access.Role(r) }
func (fixedRole) Subscribe(session.Listener) func() { return func() {} }

// HandleRoutes lists every screen with the roles that may open it. With a
// session, a column shows where the current role ends up.
func HandleRoutes(env *Env, args Args) error {
	role := env.Sessions.Role()
	var g *guard.Guard
	if role != access.RoleNone {
		g = guard.New(fixedRole(role), env.Policy)
		defer g.Close()
	}

	var rows []RouteData
	for _, r := range access.Routes() {
		row := RouteData{ID: string(r.ID), Path: r.Path, Title: r.Title, Public: r.Public, Roles: []string{}}
		for _, ar := range env.Policy.AllowedRoles(r.ID) {
			row.Roles = append(row.Roles, ar.String())
		}
		if g != nil {
			allowed := !g.Check(r.ID).Redirected
			row.Allowed = &allowed
		}
		rows = append(rows, row)
	}

	if env.JSON {
		return NewJSONResponse("routes", rows).Write(env.Out)
	}
	printRoutes(env.Out, rows, g)
	fmt.Fprintln(env.Out, DimStyle.Render("access table: "+string(env.Policy.Table())))
	return nil
}

func printRoutes(w io.Writer, rows []RouteData, g *guard.Guard) {
	const (
		idW    = 17
		pathW  = 18
		titleW = 14
		rolesW = 22
	)
	header := util.PadWidth("ROUTE", idW) + util.PadWidth("PATH", pathW) + util.PadWidth("TITLE", titleW) + util.PadWidth("ROLES", rolesW)
	if g != nil {
		header += "YOU"
	}
	fmt.Fprintln(w, TitleStyle.Render(strings.TrimRight(header, " ")))

	for _, row := range rows {
		roles := strings.Join(row.Roles, ",")
		if row.Public {
			roles = "signed out"
		}
		line := util.PadWidth(row.ID, idW) + util.PadWidth(row.Path, pathW) +
			util.PadWidth(row.Title, titleW) + util.PadWidth(util.TruncateWidth(roles, rolesW-1), rolesW)
		if g != nil {
			out := g.Check(access.RouteID(row.ID))
			if out.Redirected {
				line += WarningStyle.Render("-> " + string(out.Render))
			} else {
				line += SuccessStyle.Render("yes")
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

// HandleCan shows where a role ends up when it opens a screen. It returns
// ErrDenied when the screen redirects.
func HandleCan(env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	target := p.Positional(0)
	if target == "" {
		return ErrMissingArgument("route", canUsage)
	}
	route, ok := access.Lookup(target)
	if !ok {
		return &UsageError{Message: fmt.Sprintf("unknown route %q", target), Usage: canUsage}
	}

	role := env.Sessions.Role()
	if p.HasFlag("role") {
		name := p.Flag("role")
		switch strings.ToLower(name) {
		case "", "none":
			role = access.RoleNone
		default:
			r, err := access.ParseRole(name)
			if err != nil {
				return &UsageError{Message: err.Error(), Usage: canUsage}
			}
			role = r
		}
	}

	g := guard.New(fixedRole(role), env.Policy)
	defer g.Close()
	out := g.Check(route.ID)

	if env.JSON {
		data := OutcomeData{
			Role:       role.String(),
			Requested:  string(out.Requested),
			Render:     string(out.Render),
			Redirected: out.Redirected,
			Reason:     string(out.Reason),
		}
		for _, id := range out.Path {
			data.Path = append(data.Path, string(id))
		}
		if err := NewJSONResponse("can", data).Write(env.Out); err != nil {
			return err
		}
	} else {
		printOutcome(env.Out, role, out)
	}
	if out.Redirected {
		return ErrDenied
	}
	return nil
}

func printOutcome(w io.Writer, role access.Role, out guard.Outcome) {
	if !out.Redirected {
		fmt.Fprintf(w, "%s %s may open %s\n", SuccessStyle.Render("allowed:"), role, out.Requested.Title())
		return
	}
	hops := make([]string, len(out.Path))
	for i, id := range out.Path {
		hops[i] = string(id)
	}
	fmt.Fprintf(w, "%s %s opening %s sees %s (%s)\n", WarningStyle.Render("redirected:"),
		role, out.Requested.Title(), out.Render.Title(), out.Reason)
	fmt.Fprintln(w, DimStyle.Render("  "+strings.Join(hops, " -> ")))
}
