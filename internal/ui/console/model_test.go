// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/credstore"
	"github.com/jeranaias/backoffice-tui/internal/guard"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/session"
	"github.com/jeranaias/backoffice-tui/internal/ui/components"
	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
)

// stubIdentity accepts password "pw" for every known email.
type stubIdentity struct {
	mu       sync.Mutex
	users    map[string]identity.UserRecord
	listErr  error
	register identity.RegisterForm
}

func newStubIdentity() *stubIdentity {
	return &stubIdentity{users: map[string]identity.UserRecord{
		"admin@x.io":   {ID: "1", Email: "admin@x.io", Username: "ada", Role: "admin", Active: true},
		"cashier@x.io": {ID: "2", Email: "cashier@x.io", Username: "cal", Role: "cashier", Active: true},
		"user@x.io":    {ID: "3", Email: "user@x.io", Username: "uma", Role: "user", Active: true},
	}}
}

func (s *stubIdentity) Login(_ context.Context, email, password string) (*identity.LoginResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok || password != "pw" {
		return nil, &identity.APIError{Op: "login", Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	}
	return &identity.LoginResponse{Token: "tok-" + u.ID, User: u}, nil
}

func (s *stubIdentity) Register(_ context.Context, form identity.RegisterForm) (*identity.RegisterResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.register = form
	if _, taken := s.users[form.Email]; taken {
		return &identity.RegisterResponse{Success: false, Message: "Email already exists"}, nil
	}
	s.users[form.Email] = identity.UserRecord{ID: "9", Email: form.Email, Username: form.Username, Role: form.Role, Active: form.Active}
	return &identity.RegisterResponse{Success: true, Message: "Admin registered"}, nil
}

func (s *stubIdentity) ListAdmins(_ context.Context, _ string) ([]identity.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []identity.UserRecord
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

type harness struct {
	clock *session.FakeClock
	ids   *stubIdentity
	mgr   *session.Manager
	guard *guard.Guard
	model Model
	msgs  chan tea.Msg
}

func newHarness(t *testing.T, opts ...session.Option) *harness {
	t.Helper()
	h := &harness{
		clock: session.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		ids:   newStubIdentity(),
		msgs:  make(chan tea.Msg, 1024),
	}
	opts = append([]session.Option{session.WithClock(h.clock), session.WithLoginRate(1000)}, opts...)
	h.mgr = session.NewManager(h.ids, credstore.NewMemoryStore(), opts...)
	h.guard = guard.New(h.mgr, nil)
	h.model = New(context.Background(), Deps{
		Sessions: h.mgr,
		Guard:    h.guard,
		Theme:    styles.NewTheme(styles.Options{NoColor: true}),
	})
	t.Cleanup(func() {
		h.model.Close()
		h.guard.Close()
		h.mgr.Close()
	})
	h.start(h.model.Init())
	h.run(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// send delivers msg and returns the updated model without running commands.
func (h *harness) send(msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return h.model, cmd
}

// start runs cmd in the background; its message lands in h.msgs.
func (h *harness) start(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() { h.msgs <- cmd() }()
}

// run delivers msg and then feeds the model every resulting message until
// nothing arrives for a short while. Ticks and quits are dropped.
func (h *harness) run(msg tea.Msg) {
	_, cmd := h.send(msg)
	h.start(cmd)
	h.settle()
}

func (h *harness) settle() {
	for {
		select {
		case msg := <-h.msgs:
			switch msg := msg.(type) {
			case nil, tickMsg, tea.QuitMsg:
			case tea.BatchMsg:
				for _, c := range msg {
					h.start(c)
				}
			default:
				_, cmd := h.send(msg)
				h.start(cmd)
			}
		case <-time.After(30 * time.Millisecond):
			return
		}
	}
}

func (h *harness) login(t *testing.T, email string) {
	t.Helper()
	h.run(components.FormSubmitMsg{FormID: formLogin, Values: []string{email, "pw"}})
	require.NotEqual(t, access.RouteLogin, h.model.outcome.Render, "login as %s", email)
}

func (h *harness) open(t *testing.T, route access.RouteID) {
	t.Helper()
	h.model.focus = focusMenu
	for i := 0; i < 20; i++ {
		if sel, ok := h.model.sidebar.Selected(); ok && sel == route {
			h.run(keyMsg("enter"))
			return
		}
		h.send(keyMsg("down"))
	}
	for i := 0; i < 20; i++ {
		if sel, ok := h.model.sidebar.Selected(); ok && sel == route {
			h.run(keyMsg("enter"))
			return
		}
		h.send(keyMsg("up"))
	}
	t.Fatalf("route %s not in menu", route)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// =============================================================================
// LOGIN
// =============================================================================

func TestStartsOnLogin(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, access.RouteLogin, h.model.outcome.Render)
	assert.Contains(t, h.model.View(), "Sign in")
	assert.Contains(t, h.model.View(), "signed out")
}

func TestLoginLandsOnRoleLanding(t *testing.T) {
	tests := []struct {
		email string
		want  access.RouteID
	}{
		{"admin@x.io", access.RouteDashboard},
		{"cashier@x.io", access.RouteDashboard},
		{"user@x.io", access.RouteOrderList},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			h := newHarness(t)
			h.login(t, tt.email)
			assert.Equal(t, tt.want, h.model.outcome.Render)
			assert.Contains(t, h.model.View(), tt.email)
			assert.Empty(t, h.model.login.Error())
		})
	}
}

func TestLoginFailureShowsServiceMessage(t *testing.T) {
	h := newHarness(t)
	h.send(keyMsg("admin@x.io"))
	h.send(keyMsg("enter"))
	h.send(keyMsg("nope"))
	require.Equal(t, []string{"admin@x.io", "nope"}, h.model.login.Values())
	h.run(keyMsg("enter"))

	assert.Equal(t, access.RouteLogin, h.model.outcome.Render)
	assert.Equal(t, "Invalid email or password", h.model.login.Error())
	assert.False(t, h.model.login.Busy())
	assert.Empty(t, h.model.login.Values()[1], "password is cleared after a failure")
	assert.Equal(t, "admin@x.io", h.model.login.Values()[0], "email is kept for the retry")
}

func TestLoginSubmitMarksFormBusy(t *testing.T) {
	h := newHarness(t)
	_, cmd := h.send(components.FormSubmitMsg{FormID: formLogin, Values: []string{"admin@x.io", "pw"}})
	require.NotNil(t, cmd)
	assert.True(t, h.model.login.Busy())
}

func TestLoginErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"service message", &session.AuthError{Kind: session.InvalidCredentials, Message: "Account is inactive"}, "Account is inactive"},
		{"no message", &session.AuthError{Kind: session.InvalidCredentials}, "Invalid email or password"},
		{"throttled", session.ErrTooManyAttempts, "Too many attempts. Wait a minute and try again."},
		{"network", &identity.NetworkError{Op: "login", Err: errors.New("dial tcp: refused")}, "Cannot reach the identity service. Check your connection."},
		{"other", errors.New("failed to persist session: disk full"), "failed to persist session: disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loginErrorText(tt.err))
		})
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

func TestMenuNavigation(t *testing.T) {
	h := newHarness(t)
	h.login(t, "cashier@x.io")

	h.open(t, access.RoutePayment)
	assert.Equal(t, access.RoutePayment, h.model.outcome.Render)
	assert.Contains(t, h.model.View(), "Take payment for open orders.")
}

func TestLockedEntryRedirects(t *testing.T) {
	h := newHarness(t)
	h.login(t, "cashier@x.io")

	h.open(t, access.RouteSettingsUsers)
	assert.Equal(t, access.RouteDashboard, h.model.outcome.Render)
	assert.True(t, h.model.outcome.Redirected)
	assert.Contains(t, h.model.View(), "Users is not available to your role")
}

func TestProfileScreen(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@x.io")

	h.open(t, access.RouteSettingsProfile)
	view := h.model.View()
	assert.Contains(t, view, "ada")
	assert.Contains(t, view, "[ADMIN]")
	assert.Contains(t, view, "Active")
}

func TestHelpToggle(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@x.io")

	h.send(keyMsg("?"))
	require.True(t, h.model.showHelp)
	assert.Contains(t, h.model.View(), "Back Office Console")

	h.send(keyMsg("esc"))
	assert.False(t, h.model.showHelp)
}

func TestHelpWrap(t *testing.T) {
	assert.Equal(t, 76, helpWrap(0))
	assert.Equal(t, 116, helpWrap(120))
	for _, w := range []int{-5, 1, 3, 4, 10, 24} {
		assert.Equal(t, minHelpWrap, helpWrap(w), "width %d", w)
	}
	assert.Contains(t, renderHelp(3, false), "Office")
}

func TestQuit(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@x.io")

	_, cmd := h.send(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, h.model.View())
}

func TestQKeyTypesOnLoginScreen(t *testing.T) {
	h := newHarness(t)
	h.send(keyMsg("q"))
	assert.False(t, h.model.quitting)
	assert.Equal(t, "q", h.model.login.Values()[0])
}

// =============================================================================
// STAFF DIRECTORY
// =============================================================================

func TestUsersScreenLoadsDirectory(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@x.io")

	h.open(t, access.RouteSettingsUsers)
	require.Equal(t, access.RouteSettingsUsers, h.model.outcome.Render)
	assert.Len(t, h.model.staff.Visible(), 3)
	assert.Contains(t, h.model.View(), "3 of 3 shown")
}

func TestUsersScreenNetworkErrorKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.ids.listErr = &identity.NetworkError{Op: "list admins", Err: errors.New("timeout")}
	h.login(t, "admin@x.io")

	h.open(t, access.RouteSettingsUsers)
	assert.Equal(t, access.RouteSettingsUsers, h.model.outcome.Render)
	assert.Contains(t, h.model.View(), "Could not load staff")
	assert.NotNil(t, h.mgr.Current())
}

func TestRejectedTokenReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.ids.listErr = &identity.APIError{Op: "list admins", Status: http.StatusUnauthorized, Message: "jwt expired"}
	h.login(t, "admin@x.io")

	h.open(t, access.RouteSettingsUsers)
	assert.Equal(t, access.RouteLogin, h.model.outcome.Render)
	assert.Contains(t, h.model.login.Error(), "rejected")
	assert.Nil(t, h.mgr.Current())
}

func TestRegisterStaff(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@x.io")
	h.open(t, access.RouteSettingsUsers)

	h.send(keyMsg("tab"))
	h.send(keyMsg("n"))
	require.True(t, h.model.registering)
	assert.Contains(t, h.model.View(), "Register staff")

	h.run(components.FormSubmitMsg{FormID: formRegister, Values: []string{"new@x.io", "neo", "secret", "Cashier", "inactive"}})
	assert.False(t, h.model.registering)
	assert.Equal(t, "cashier", h.ids.register.Role)
	assert.False(t, h.ids.register.Active)
	assert.Len(t, h.model.staff.Visible(), 4)
	assert.Contains(t, h.model.View(), "Registered new@x.io")
	assert.Equal(t, "admin@x.io", h.mgr.Current().User.Email, "registering never switches the session")
}

func TestRegisterRejected(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@x.io")
	h.open(t, access.RouteSettingsUsers)
	h.send(keyMsg("tab"))
	h.send(keyMsg("n"))

	h.run(components.FormSubmitMsg{FormID: formRegister, Values: []string{"cashier@x.io", "cal", "pw", "cashier", ""}})
	assert.True(t, h.model.registering)
	assert.Equal(t, "Email already exists", h.model.register.Error())
}

func TestRegisterBadStatus(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@x.io")
	h.open(t, access.RouteSettingsUsers)
	h.send(keyMsg("tab"))
	h.send(keyMsg("n"))

	_, cmd := h.send(components.FormSubmitMsg{FormID: formRegister, Values: []string{"a@x.io", "a", "pw", "user", "maybe"}})
	assert.Nil(t, cmd)
	assert.Contains(t, h.model.register.Error(), "status must be active or inactive")
}

func TestRegisterCancel(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@x.io")
	h.open(t, access.RouteSettingsUsers)
	h.send(keyMsg("tab"))
	h.send(keyMsg("n"))

	h.run(keyMsg("esc"))
	assert.False(t, h.model.registering)
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"", "active", "Active", " yes ", "true"} {
		v, err := parseStatus(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"inactive", "NO", "false"} {
		v, err := parseStatus(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := parseStatus("sometimes")
	assert.Error(t, err)
}

// =============================================================================
// SESSION LIFETIME
// =============================================================================

func TestWarningOverlay(t *testing.T) {
	h := newHarness(t, session.WithWarningBefore(2*time.Minute))
	h.login(t, "cashier@x.io")

	h.clock.Advance(58 * time.Minute)
	h.settle()
	require.True(t, h.model.overlay.IsVisible())
	assert.False(t, h.model.overlay.IsExpired())
	assert.Contains(t, h.model.View(), "Session Ending")

	h.run(keyMsg("x"))
	assert.False(t, h.model.overlay.IsVisible())
	assert.Equal(t, access.RouteDashboard, h.model.outcome.Render, "dismissing does not extend or end the session")
}

func TestExpiryReturnsToLogin(t *testing.T) {
	h := newHarness(t, session.WithWarningBefore(0))
	h.login(t, "admin@x.io")
	h.open(t, access.RouteSettingsUsers)

	h.clock.Advance(session.DefaultLifetime)
	h.settle()
	require.True(t, h.model.overlay.IsExpired())
	assert.Contains(t, h.model.View(), "Session Expired")
	assert.Equal(t, access.RouteLogin, h.model.outcome.Render)
	assert.Empty(t, h.model.staff.Visible(), "directory is cleared on logout")

	h.run(keyMsg("enter"))
	assert.False(t, h.model.overlay.IsVisible())
	assert.Contains(t, h.model.View(), "Your session expired")
}

func TestLogoutKey(t *testing.T) {
	h := newHarness(t)
	h.login(t, "user@x.io")

	h.run(keyMsg("ctrl+o"))
	assert.Equal(t, access.RouteLogin, h.model.outcome.Render)
	assert.Nil(t, h.mgr.Current())
	assert.Contains(t, h.model.View(), "Signed out")
}

func TestRestoredSessionStartsSignedIn(t *testing.T) {
	clock := session.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := credstore.NewMemoryStore()
	user := identity.UserRecord{ID: "2", Email: "cashier@x.io", Username: "cal", Role: "cashier", Active: true}
	require.NoError(t, store.Save(credstore.Record{Token: "tok-2", User: user, LoginTime: clock.Now().Add(-10 * time.Minute)}))

	mgr := session.NewManager(newStubIdentity(), store, session.WithClock(clock))
	g := guard.New(mgr, nil)
	_, err := mgr.Restore()
	require.NoError(t, err)

	m := New(context.Background(), Deps{Sessions: mgr, Guard: g, Theme: styles.NewTheme(styles.Options{NoColor: true})})
	defer m.Close()
	defer g.Close()
	defer mgr.Close()

	assert.Equal(t, access.RouteDashboard, m.outcome.Render)
	assert.Greater(t, m.sidebar.Len(), 0)
	assert.True(t, strings.Contains(m.View(), "50:00"), "countdown continues from the original login")
}
