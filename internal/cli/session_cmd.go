// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/session"
	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
	"github.com/jeranaias/backoffice-tui/internal/util"
)

const (
	loginUsage = "backoffice login [--email E] [--password-stdin]"
	labelWidth = 12
)

// HandleLogin signs in and persists the session.
func HandleLogin(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw, "password-stdin")

	email := p.FlagOrDefault("email", p.Positional(0))
	if email == "" {
		if !env.Prompt.Interactive() {
			return ErrMissingArgument("--email", loginUsage)
		}
		var err error
		if email, err = env.Prompt.Line("Email: "); err != nil {
			return err
		}
	}

	var password string
	var err error
	switch {
	case p.BoolFlag("password-stdin"):
		password, err = env.Prompt.ReadSecretLine()
	case env.Prompt.Interactive():
		password, err = env.Prompt.Secret("Password: ")
	default:
		return ErrMissingArgument("password (use --password-stdin)", loginUsage)
	}
	if err != nil {
		return err
	}

	if _, err := env.Sessions.Login(ctx, email, password); err != nil {
		return err
	}

	data := statusData(env.Sessions)
	if env.JSON {
		return NewJSONResponse("login", data).Write(env.Out)
	}
	fmt.Fprintf(env.Out, "%s Signed in as %s %s\n",
		SuccessStyle.Render(styles.StatusIndicators.Success), data.Email, styles.RenderRole(data.Role))
	printSessionLines(env, data)
	return nil
}

// HandleLogout ends the session and clears saved credentials.
func HandleLogout(env *Env, args Args) error {
	had := env.Sessions.Current() != nil
	if err := env.Sessions.Logout(); err != nil {
		return err
	}
	if env.JSON {
		return NewJSONResponse("logout", map[string]bool{"signed_out": had}).Write(env.Out)
	}
	if had {
		fmt.Fprintln(env.Out, "Signed out.")
	} else {
		fmt.Fprintln(env.Out, "Not signed in; saved credentials cleared.")
	}
	return nil
}

// HandleStatus shows the session and its remaining time.
func HandleStatus(env *Env, args Args) error {
	data := statusData(env.Sessions)
	if env.JSON {
		return NewJSONResponse("status", data).Write(env.Out)
	}
	if !data.Authenticated {
		fmt.Fprintln(env.Out, DimStyle.Render("Not signed in. Run: backoffice login"))
		return nil
	}
	fmt.Fprintln(env.Out, TitleStyle.Render("Session"))
	fmt.Fprintf(env.Out, "%s%s\n", RenderLabel("Email", labelWidth), ValueStyle.Render(data.Email))
	fmt.Fprintf(env.Out, "%s%s\n", RenderLabel("Username", labelWidth), ValueStyle.Render(data.Username))
	fmt.Fprintf(env.Out, "%s%s\n", RenderLabel("Role", labelWidth), styles.RenderRole(data.Role))
	printSessionLines(env, data)
	return nil
}

func printSessionLines(env *Env, data StatusData) {
	st := env.Sessions.Status()
	remaining := util.FormatRemaining(st.Remaining)
	if st.Remaining <= env.Config.Session.WarnBefore() {
		remaining = WarningStyle.Render(remaining)
	}
	fmt.Fprintf(env.Out, "%s%s\n", RenderLabel("Signed in", labelWidth), st.IssuedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(env.Out, "%s%s (in %s)\n", RenderLabel("Ends", labelWidth), st.ExpiresAt.Local().Format("15:04:05"), remaining)
	if r, ok := access.RouteByID(access.RouteID(data.Landing)); ok {
		fmt.Fprintf(env.Out, "%s%s (%s)\n", RenderLabel("Opens on", labelWidth), r.Title, r.Path)
	}
}

func statusData(m *session.Manager) StatusData {
	st := m.Status()
	if !st.Authenticated {
		return StatusData{}
	}
	return StatusData{
		Authenticated: true,
		Email:         st.User.Email,
		Username:      st.User.Username,
		Role:          strings.ToLower(st.User.Role),
		IssuedAt:      st.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt:     st.ExpiresAt.UTC().Format(time.RFC3339),
		RemainingMs:   st.Remaining.Milliseconds(),
		Landing:       string(access.LandingRoute(m.Role())),
	}
}
