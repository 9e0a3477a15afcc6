// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/session"
)

// =============================================================================
// MESSAGES
// =============================================================================

// sessionEventMsg carries a session event into the update loop.
type sessionEventMsg struct {
	event session.Event
}

// loginResultMsg is the result of a login attempt.
type loginResultMsg struct {
	user identity.UserRecord
	err  error
}

// adminsMsg is the result of a staff directory fetch.
type adminsMsg struct {
	users []identity.UserRecord
	err   error
}

// registerResultMsg is the result of a staff registration.
type registerResultMsg struct {
	email  string
	result session.RegisterResult
}

// tickMsg drives the status bar countdown.
type tickMsg time.Time

// =============================================================================
// COMMANDS
// =============================================================================

// waitForEvent blocks until the next session event or until done closes.
func waitForEvent(events <-chan session.Event, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-events:
			return sessionEventMsg{event: ev}
		case <-done:
			return nil
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func loginCmd(ctx context.Context, m *session.Manager, email, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := m.Login(ctx, email, password)
		return loginResultMsg{user: user, err: err}
	}
}

func fetchAdminsCmd(ctx context.Context, m *session.Manager) tea.Cmd {
	return func() tea.Msg {
		users, err := m.FetchAdmins(ctx)
		return adminsMsg{users: users, err: err}
	}
}

func registerCmd(ctx context.Context, m *session.Manager, form identity.RegisterForm) tea.Cmd {
	return func() tea.Msg {
		return registerResultMsg{email: form.Email, result: m.Register(ctx, form)}
	}
}

// logoutResultMsg is the result of a logout.
type logoutResultMsg struct {
	err error
}

func logoutCmd(m *session.Manager) tea.Cmd {
	return func() tea.Msg {
		return logoutResultMsg{err: m.Logout()}
	}
}
