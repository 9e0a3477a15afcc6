// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/session"
	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
	"github.com/jeranaias/backoffice-tui/internal/util"
)

const registerUsage = "backoffice register --email E --username U [--role R] [--inactive] [--password-stdin]"

// HandleRegister registers a staff member. The current session, if any, is
// not changed.
func HandleRegister(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw, "inactive", "password-stdin")

	form := identity.RegisterForm{
		Email:    p.Flag("email"),
		Username: p.Flag("username"),
		Role:     strings.ToLower(p.FlagOrDefault("role", env.Config.Access.DefaultRegisterRole)),
		Active:   !p.BoolFlag("inactive"),
	}
	if form.Email == "" {
		return ErrMissingArgument("--email", registerUsage)
	}
	if form.Username == "" {
		return ErrMissingArgument("--username", registerUsage)
	}
	if _, err := access.ParseRole(form.Role); err != nil {
		return &UsageError{Message: err.Error(), Usage: registerUsage}
	}

	var err error
	switch {
	case p.BoolFlag("password-stdin"):
		form.Password, err = env.Prompt.ReadSecretLine()
	case env.Prompt.Interactive():
		form.Password, err = env.Prompt.Secret("Password for " + form.Email + ": ")
	default:
		return ErrMissingArgument("password (use --password-stdin)", registerUsage)
	}
	if err != nil {
		return err
	}

	res := env.Sessions.Register(ctx, form)
	if !res.Success {
		return fmt.Errorf("register failed: %s", res.Message)
	}
	if env.JSON {
		return NewJSONResponse("register", res.Data).Write(env.Out)
	}
	msg := res.Message
	if msg == "" {
		msg = "Registered"
	}
	fmt.Fprintf(env.Out, "%s %s: %s %s\n",
		SuccessStyle.Render(styles.StatusIndicators.Success), msg, form.Email, styles.RenderRole(form.Role))
	return nil
}

// HandleUsers lists the staff directory. It needs a session whose role may
// open the Users screen.
func HandleUsers(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw)

	role := env.Sessions.Role()
	if role == access.RoleNone {
		return fmt.Errorf("%w: run backoffice login first", session.ErrNotAuthenticated)
	}
	if !env.Policy.Allowed(role, access.RouteSettingsUsers) {
		return fmt.Errorf("the staff directory is for %s: %w",
			joinRoles(env.Policy.AllowedRoles(access.RouteSettingsUsers)), ErrDenied)
	}

	users, err := env.Sessions.FetchAdmins(ctx)
	if err != nil {
		return err
	}
	filter := identity.Filter{Search: p.Flag("search"), Role: strings.ToLower(p.Flag("role"))}
	shown := filter.Apply(users)
	identity.SortByEmail(shown)

	if env.JSON {
		return NewJSONResponse("users", shown).Write(env.Out)
	}
	printUsers(env.Out, shown, GetTerminalWidth())
	fmt.Fprintln(env.Out, DimStyle.Render(fmt.Sprintf("%d of %d shown", len(shown), len(users))))
	return nil
}

// printUsers writes an aligned table. The email column takes the width
// left after the fixed columns.
func printUsers(w io.Writer, users []identity.UserRecord, width int) {
	const (
		nameW   = 16
		roleW   = 9
		statusW = 8
	)
	emailW := width - nameW - roleW - statusW - 6
	if emailW < 16 {
		emailW = 16
	}

	header := util.PadWidth("EMAIL", emailW) + "  " + util.PadWidth("USERNAME", nameW) + "  " +
		util.PadWidth("ROLE", roleW) + " " + "STATUS"
	fmt.Fprintln(w, TitleStyle.Render(header))
	for _, u := range users {
		fmt.Fprintf(w, "%s  %s  %s %s\n",
			util.PadWidth(util.TruncateWidth(u.Email, emailW), emailW),
			util.PadWidth(util.TruncateWidth(u.Username, nameW), nameW),
			util.PadWidth(util.TruncateWidth(u.Role, roleW), roleW),
			u.StatusLabel())
	}
}

func joinRoles(roles []access.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}
