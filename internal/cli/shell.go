// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/config"
	"github.com/jeranaias/backoffice-tui/internal/guard"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/session"
	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
	"github.com/jeranaias/backoffice-tui/internal/util"
)

const shellHelp = `Commands:
  go <route|path>   open a screen (alias: cd)
  where             show the current screen (alias: pwd)
  menu              show the menu for your role
  routes            list every screen
  login [email]     sign in
  logout            sign out
  status            show the session
  users [search]    list staff (admin)
  help              show this help
  exit              leave the shell (alias: quit)
`

// Shell is a line-oriented navigator over the route guard. It shows what
// the console would render without drawing it.
type Shell struct {
	env   *Env
	guard *guard.Guard
	out   io.Writer

	// readPassword reads a password for "login"; set by RunShell.
	readPassword func(prompt string) (string, error)
	unsub        func()
}

// NewShell creates a shell over env's session. It reports navigation and
// session events as they happen.
func NewShell(env *Env, out io.Writer) *Shell {
	s := &Shell{
		env:   env,
		guard: guard.New(env.Sessions, env.Policy, guard.WithLogger(env.Logger)),
		out:   out,
		readPassword: func(prompt string) (string, error) {
			return env.Prompt.Secret(prompt)
		},
	}
	s.guard.OnChange(s.printOutcome)
	s.unsub = env.Sessions.Subscribe(s.onSessionEvent)
	return s
}

// Close detaches the shell from the session.
func (s *Shell) Close() {
	s.unsub()
	s.guard.Close()
}

// Prompt returns the prompt for the current screen.
func (s *Shell) Prompt() string {
	cur := s.guard.Current()
	path := "/login"
	if r, ok := access.RouteByID(cur.Render); ok {
		path = r.Path
	}
	return "backoffice:" + path + "> "
}

// Exec runs one command line. It reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, rest := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "exit", "quit", "q":
		return true, nil

	case "help", "?":
		fmt.Fprint(s.out, shellHelp)

	case "go", "cd", "open":
		if len(rest) == 0 {
			return false, errors.New("usage: go <route|path>")
		}
		if _, err := s.guard.NavigateTo(rest[0]); err != nil {
			return false, err
		}

	case "where", "pwd":
		s.printOutcome(s.guard.Current())

	case "menu":
		s.printMenu()

	case "routes":
		return false, HandleRoutes(s.env, Args{})

	case "login":
		return false, s.login(ctx, rest)

	case "logout":
		return false, s.env.Sessions.Logout()

	case "status":
		return false, HandleStatus(s.env, Args{})

	case "users":
		users, err := s.env.Sessions.FetchAdmins(ctx)
		if err != nil {
			return false, err
		}
		filter := identity.Filter{Search: strings.Join(rest, " ")}
		shown := filter.Apply(users)
		identity.SortByEmail(shown)
		printUsers(s.out, shown, GetTerminalWidth())

	default:
		// A bare route or path navigates.
		if _, ok := access.Lookup(cmd); ok {
			_, err := s.guard.NavigateTo(cmd)
			return false, err
		}
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return false, nil
}

func (s *Shell) login(ctx context.Context, rest []string) error {
	email := ""
	if len(rest) > 0 {
		email = rest[0]
	} else {
		var err error
		if email, err = s.env.Prompt.Line("Email: "); err != nil {
			return err
		}
	}
	password, err := s.readPassword("Password: ")
	if err != nil {
		return err
	}
	_, err = s.env.Sessions.Login(ctx, email, password)
	return err
}

func (s *Shell) printOutcome(out guard.Outcome) {
	title := out.Render.Title()
	path := ""
	if r, ok := access.RouteByID(out.Render); ok {
		path = r.Path
	}
	if out.Redirected && out.Requested != access.RouteLogin {
		fmt.Fprintf(s.out, "%s %s -> %s %s (%s)\n", WarningStyle.Render("redirected:"),
			out.Requested.Title(), title, DimStyle.Render(path), out.Reason)
		return
	}
	fmt.Fprintf(s.out, "%s %s\n", TitleStyle.Render(title), DimStyle.Render(path))
}

func (s *Shell) printMenu() {
	role := s.env.Sessions.Role()
	items := s.env.Policy.Menu(role)
	if len(items) == 0 {
		fmt.Fprintln(s.out, DimStyle.Render("Sign in to see the menu."))
		return
	}
	current := s.guard.Current().Render
	mark := func(r access.RouteID) string {
		if r == current {
			return "*"
		}
		return " "
	}
	for _, it := range items {
		fmt.Fprintf(s.out, "%s %s\n", mark(it.Route), it.Title)
		for _, c := range it.Children {
			line := fmt.Sprintf("%s   %s", mark(c.Route), c.Title)
			if !c.Allowed {
				line += DimStyle.Render(" (locked)")
			}
			fmt.Fprintln(s.out, line)
		}
	}
}

func (s *Shell) onSessionEvent(ev session.Event) {
	switch ev.Type {
	case session.EventWarning:
		fmt.Fprintf(s.out, "\n%s session ends in %s\n", WarningStyle.Render(styles.StatusIndicators.Warning), util.FormatRemaining(ev.Remaining))
	case session.EventExpired:
		fmt.Fprintf(s.out, "\n%s session expired after %s, sign in again\n",
			ErrorStyle.Render(styles.StatusIndicators.Error), util.FormatDuration(s.env.Sessions.Lifetime()))
	case session.EventLoggedOut:
		if ev.Reason == session.ReasonRejected {
			fmt.Fprintf(s.out, "%s the identity service rejected the session\n", ErrorStyle.Render(styles.StatusIndicators.Error))
		}
	}
}

// =============================================================================
// INTERACTIVE LOOP
// =============================================================================

// RunShell reads commands with line editing and history until exit, EOF
// or Ctrl+C.
func RunShell(ctx context.Context, env *Env) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeShell)

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "shell_history")
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	sh := NewShell(env, env.Out)
	defer sh.Close()
	sh.readPassword = line.PasswordPrompt

	fmt.Fprintln(env.Out, DimStyle.Render("Type help for commands."))
	sh.printOutcome(sh.guard.Current())

	for {
		input, err := line.Prompt(sh.Prompt())
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed terminal
			fmt.Fprintln(env.Out)
			break
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		quit, err := sh.Exec(ctx, input)
		if err != nil {
			DisplayError(env.ErrOut, "shell", err, false)
		}
		if quit || ctx.Err() != nil {
			break
		}
	}

	if historyFile != "" {
		if err := config.EnsureConfigDir(); err == nil {
			if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}
	}
	return nil
}

var shellWords = []string{"go ", "where", "menu", "routes", "login ", "logout", "status", "users ", "help", "exit"}

// completeShell completes command words, and route IDs after "go".
func completeShell(line string) []string {
	var out []string
	if rest, ok := strings.CutPrefix(line, "go "); ok {
		for _, r := range access.Routes() {
			if strings.HasPrefix(string(r.ID), rest) {
				out = append(out, "go "+string(r.ID))
			}
		}
		return out
	}
	for _, w := range shellWords {
		if strings.HasPrefix(w, line) {
			out = append(out, w)
		}
	}
	return out
}
