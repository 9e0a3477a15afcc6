// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package console implements the interactive back office console: a login
// screen, a role-aware menu and the screens behind it, all driven by the
// session manager and the route guard.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/guard"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/logging"
	"github.com/jeranaias/backoffice-tui/internal/session"
	"github.com/jeranaias/backoffice-tui/internal/ui/components"
	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// focusArea is the pane receiving keys when signed in.
type focusArea int

const (
	focusMenu focusArea = iota
	focusContent
)

const (
	formLogin    = "login"
	formRegister = "register"

	loginHint = "enter to continue, ctrl+c to quit"
)

// Deps are the collaborators of the console.
type Deps struct {
	Sessions *session.Manager
	Guard    *guard.Guard
	// Policy builds the menu; nil means access.Default().
	Policy *access.Policy
	Theme  *styles.Theme
	Logger *logging.Logger
	// WarnBefore colours the countdown; zero means session.DefaultWarningBefore.
	WarnBefore time.Duration
}

// Model is the console's bubbletea model.
type Model struct {
	ctx      context.Context
	sessions *session.Manager
	guard    *guard.Guard
	policy   *access.Policy
	theme    *styles.Theme
	log      *logging.Logger
	keys     KeyMap
	help     help.Model

	events chan session.Event
	done   chan struct{}
	stop   func()

	width, height int
	outcome       guard.Outcome
	focus         focusArea
	showHelp      bool
	helpView      string
	registering   bool
	quitting      bool

	login    components.Form
	register components.Form
	sidebar  components.Sidebar
	status   components.StatusBar
	overlay  components.ExpiryOverlay
	staff    components.StaffTable
}

// New creates the console model and subscribes it to session events. Call
// Close once the program has exited.
func New(ctx context.Context, deps Deps) Model {
	policy := deps.Policy
	if policy == nil {
		policy = access.Default()
	}
	log := deps.Logger
	if log == nil {
		log = logging.Discard()
	}
	warnAt := deps.WarnBefore
	if warnAt <= 0 {
		warnAt = session.DefaultWarningBefore
	}

	m := Model{
		ctx:      ctx,
		sessions: deps.Sessions,
		guard:    deps.Guard,
		policy:   policy,
		theme:    deps.Theme,
		log:      log.WithComponent("console"),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		events:   make(chan session.Event, 16),
		done:     make(chan struct{}),
	}

	m.login = components.NewForm(m.theme, formLogin, "Sign in", []components.Field{
		{Label: "Email   ", Placeholder: "you@example.com", CharLimit: 128},
		{Label: "Password", Placeholder: "password", Secret: true, CharLimit: 128},
	})
	m.login.SetHint(loginHint)
	m.register = components.NewForm(m.theme, formRegister, "Register staff", []components.Field{
		{Label: "Email   ", Placeholder: "staff@example.com", CharLimit: 128},
		{Label: "Username", Placeholder: "username", CharLimit: 64},
		{Label: "Password", Placeholder: "password", Secret: true, CharLimit: 128},
		{Label: "Role    ", Placeholder: "admin, cashier or user", CharLimit: 16},
		{Label: "Status  ", Placeholder: "active or inactive", CharLimit: 16},
	})
	m.register.SetHint("enter on the last field submits, esc cancels")
	m.sidebar = components.NewSidebar(m.theme)
	m.status = components.NewStatusBar(m.theme)
	m.status.SetWarnAt(warnAt)
	m.status.SetShortcuts(m.help.ShortHelpView(m.keys.ShortHelp()))
	m.overlay = components.NewExpiryOverlay(m.theme, m.sessions.Lifetime())
	m.staff = components.NewStaffTable(m.theme)

	events, done := m.events, m.done
	unsub := m.sessions.Subscribe(func(ev session.Event) {
		select {
		case events <- ev:
		case <-done:
		}
	})
	var once sync.Once
	m.stop = func() {
		once.Do(func() {
			unsub()
			close(done)
		})
	}

	if sess := m.sessions.Current(); sess != nil {
		m.sidebar.SetMenu(m.policy.Menu(sess.Role()))
	}
	m.refreshStatus()
	m, _ = m.syncRoute()
	return m
}

// Close unsubscribes from session events.
func (m Model) Close() {
	m.stop()
}

// Init starts the event bridge and the countdown.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.events, m.done), tick()}
	if m.outcome.Render == access.RouteSettingsUsers {
		cmds = append(cmds, fetchAdminsCmd(m.ctx, m.sessions))
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case sessionEventMsg:
		return m.handleSessionEvent(msg.event)

	case tickMsg:
		m.refreshStatus()
		if m.overlay.IsVisible() && !m.overlay.IsExpired() {
			m.overlay.UpdateTime(m.sessions.Remaining())
		}
		return m, tick()

	case loginResultMsg:
		m.login.SetBusy(false)
		if msg.err != nil && !errors.Is(msg.err, session.ErrLoginSuperseded) {
			m.login.ClearSecrets()
			m.login.SetError(loginErrorText(msg.err))
		}
		return m, nil

	case logoutResultMsg:
		if msg.err != nil {
			m.log.Error("logout", "error", msg.err.Error())
			m.status.SetMessage("Signed out, but saved credentials could not be cleared")
		}
		return m, nil

	case adminsMsg:
		return m.handleAdmins(msg), nil

	case registerResultMsg:
		return m.handleRegistered(msg)

	case components.FormSubmitMsg:
		return m.handleSubmit(msg)

	case components.FormCancelMsg:
		if msg.FormID == formRegister {
			m.registering = false
			m.register.Reset()
		}
		return m, nil

	case components.ExpiryDismissedMsg:
		if msg.Expired {
			m.focus = focusMenu
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blinks and the like go to whichever input is active.
	var cmd tea.Cmd
	switch {
	case m.onLogin():
		m.login, cmd = m.login.Update(msg)
	case m.registering:
		m.register, cmd = m.register.Update(msg)
	}
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.status.SetWidth(msg.Width)
	m.overlay.SetSize(msg.Width, msg.Height)
	body := m.bodyHeight()
	m.sidebar.SetSize(m.theme.SidebarWidth(), body)
	m.staff.SetSize(m.contentWidth(), body-2)
	if m.showHelp {
		m.helpView = renderHelp(m.contentWidth(), m.theme.HasColor())
	}
	return m
}

func (m Model) handleSessionEvent(ev session.Event) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case session.EventLoggedIn, session.EventRestored:
		m.sidebar.SetMenu(m.policy.Menu(m.sessions.Role()))
		m.focus = focusMenu
		m.overlay.Hide()
		m.login.Reset()
		m.login.SetHint(loginHint)
		m.status.SetMessage("")

	case session.EventWarning:
		m.overlay.ShowWarning(ev.Remaining)

	case session.EventExpired:
		m.overlay.ShowExpired()

	case session.EventLoggedOut:
		m.sidebar.SetMenu(nil)
		m.staff.SetUsers(nil)
		m.registering = false
		m.register.Reset()
		m.showHelp = false
		m.login.Reset()
		switch ev.Reason {
		case session.ReasonRejected:
			m.login.SetError("Your session was rejected by the server. Sign in again.")
		case session.ReasonExpired:
			m.login.SetHint("Your session expired. Sign in again.")
		default:
			m.status.SetMessage("Signed out")
		}
	}

	m.refreshStatus()
	m, cmd := m.syncRoute()
	return m, tea.Batch(cmd, waitForEvent(m.events, m.done))
}

func (m Model) handleAdmins(msg adminsMsg) Model {
	if msg.err == nil {
		m.staff.SetUsers(msg.users)
		return m
	}
	if errors.Is(msg.err, session.ErrSessionExpired) || errors.Is(msg.err, session.ErrNotAuthenticated) {
		// The logout event takes over.
		return m
	}
	m.staff.SetError("Could not load staff: " + msg.err.Error())
	return m
}

func (m Model) handleRegistered(msg registerResultMsg) (tea.Model, tea.Cmd) {
	m.register.SetBusy(false)
	if !msg.result.Success {
		m.register.ClearSecrets()
		m.register.SetError(msg.result.Message)
		return m, nil
	}
	m.registering = false
	m.register.Reset()
	m.status.SetMessage("Registered " + msg.email)
	m.staff.SetLoading()
	return m, fetchAdminsCmd(m.ctx, m.sessions)
}

func (m Model) handleSubmit(msg components.FormSubmitMsg) (tea.Model, tea.Cmd) {
	switch msg.FormID {
	case formLogin:
		m.login.SetError("")
		m.login.SetBusy(true)
		return m, loginCmd(m.ctx, m.sessions, msg.Values[0], msg.Values[1])

	case formRegister:
		active, err := parseStatus(msg.Values[4])
		if err != nil {
			m.register.SetError(err.Error())
			return m, nil
		}
		form := identity.RegisterForm{
			Email:    strings.TrimSpace(msg.Values[0]),
			Username: strings.TrimSpace(msg.Values[1]),
			Password: msg.Values[2],
			Role:     strings.ToLower(strings.TrimSpace(msg.Values[3])),
			Active:   active,
		}
		m.register.SetError("")
		m.register.SetBusy(true)
		return m, registerCmd(m.ctx, m.sessions, form)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	var cmd tea.Cmd
	switch {
	case m.overlay.IsVisible():
		m.overlay, cmd = m.overlay.Update(msg)
		return m, cmd
	case m.onLogin():
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	case m.registering:
		m.register, cmd = m.register.Update(msg)
		return m, cmd
	case m.staff.Searching():
		m.staff, cmd = m.staff.Update(msg)
		return m, cmd
	}

	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Help), msg.String() == "esc":
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.helpView = renderHelp(m.contentWidth(), m.theme.HasColor())
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		return m, logoutCmd(m.sessions)
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusMenu {
			m.focus = focusContent
		} else {
			m.focus = focusMenu
		}
		return m, nil
	}

	onUsers := m.outcome.Render == access.RouteSettingsUsers
	if onUsers {
		switch {
		case key.Matches(msg, m.keys.Refresh):
			m.staff.SetLoading()
			return m, fetchAdminsCmd(m.ctx, m.sessions)
		case key.Matches(msg, m.keys.NewStaff) && m.focus == focusContent:
			m.register.Reset()
			m.registering = true
			return m, nil
		}
	}

	if m.focus == focusMenu {
		switch {
		case key.Matches(msg, m.keys.Up):
			m.sidebar.MoveUp()
		case key.Matches(msg, m.keys.Down):
			m.sidebar.MoveDown()
		case key.Matches(msg, m.keys.Open):
			if route, ok := m.sidebar.Selected(); ok {
				m.guard.Navigate(route)
				return m.syncRoute()
			}
		}
		return m, nil
	}

	if onUsers {
		m.staff, cmd = m.staff.Update(msg)
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

// syncRoute copies the guard's current outcome into the view and starts a
// directory fetch when the Users screen is entered.
func (m Model) syncRoute() (Model, tea.Cmd) {
	prev := m.outcome.Render
	m.outcome = m.guard.Current()
	m.sidebar.SetCurrent(m.outcome.Render)
	m.status.SetRoute(m.outcome.Render.Title())

	if m.outcome.Redirected {
		switch m.outcome.Reason {
		case access.ReasonRoleDenied:
			m.status.SetMessage(fmt.Sprintf("%s is not available to your role", m.outcome.Requested.Title()))
		case guard.ReasonLoop:
			m.status.SetMessage("No screen is available to your role")
		}
	}

	if m.outcome.Render != access.RouteSettingsUsers {
		m.registering = false
		return m, nil
	}
	if prev == access.RouteSettingsUsers {
		return m, nil
	}
	m.staff.SetLoading()
	return m, fetchAdminsCmd(m.ctx, m.sessions)
}

func (m *Model) refreshStatus() {
	st := m.sessions.Status()
	if !st.Authenticated {
		m.status.SetSession("", "", 0)
		return
	}
	m.status.SetSession(st.User.Email, st.User.Role, st.Remaining)
}

func (m Model) onLogin() bool {
	return m.outcome.Render == access.RouteLogin
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the console.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.overlay.IsVisible() {
		return m.overlay.View()
	}

	header := m.renderHeader()
	var body string
	if m.onLogin() {
		body = m.login.View()
		if m.width > 0 {
			body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, body)
		}
	} else {
		content := m.theme.Panel.Width(m.contentWidth()).Render(m.renderContent())
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), content)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.status.View())
}

func (m Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("Back Office")
	title := m.theme.Title.Render(m.outcome.Render.Title())
	return m.theme.Header.Render(brand + "  " + title)
}

func (m Model) renderContent() string {
	if m.showHelp {
		return m.helpView
	}
	if m.registering {
		return m.register.View()
	}
	return screenView(m.theme, m.outcome.Render, m.sessions.Current(), m.staff)
}

func (m Model) bodyHeight() int {
	h := m.height - 2
	if h < 5 {
		h = 5
	}
	return h
}

func (m Model) contentWidth() int {
	w := m.width - m.theme.SidebarWidth() - 2
	if w < 30 {
		w = 30
	}
	return w
}

// =============================================================================
// HELPERS
// =============================================================================

// loginErrorText turns a login error into a message for the form.
func loginErrorText(err error) string {
	var authErr *session.AuthError
	switch {
	case errors.As(err, &authErr) && authErr.Kind == session.InvalidCredentials:
		if authErr.Message != "" {
			return authErr.Message
		}
		return "Invalid email or password"
	case errors.Is(err, session.ErrTooManyAttempts):
		return "Too many attempts. Wait a minute and try again."
	case identity.IsNetwork(err):
		return "Cannot reach the identity service. Check your connection."
	default:
		return err.Error()
	}
}

// parseStatus reads the register form's status field. Empty means active.
func parseStatus(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active", "yes", "true":
		return true, nil
	case "inactive", "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("status must be active or inactive, got %q", s)
}
