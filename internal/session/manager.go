// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/credstore"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/logging"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultLifetime is the absolute session lifetime.
	DefaultLifetime = 3_600_000 * time.Millisecond

	// DefaultWarningBefore is how long before expiry EventWarning fires.
	DefaultWarningBefore = 2 * time.Minute

	// DefaultLoginAttemptsPerMinute is the client-side login throttle.
	DefaultLoginAttemptsPerMinute = 5
)

// =============================================================================
// TYPES
// =============================================================================

// Identity is the subset of the identity service the Manager needs.
type Identity interface {
	Login(ctx context.Context, email, password string) (*identity.LoginResponse, error)
	Register(ctx context.Context, form identity.RegisterForm) (*identity.RegisterResponse, error)
	ListAdmins(ctx context.Context, token string) ([]identity.UserRecord, error)
}

// Session is an authenticated session. Token and User are always both set.
type Session struct {
	// ID correlates log lines; it is never sent anywhere.
	ID       string
	Token    string
	User     identity.UserRecord
	IssuedAt time.Time
}

// Role returns the session user's role. A session is never RoleNone, even
// when the service sent no role.
func (s *Session) Role() access.Role {
	if s == nil {
		return access.RoleNone
	}
	if s.User.Role == "" {
		return access.RoleUnassigned
	}
	return access.Role(s.User.Role)
}

// Status is a snapshot for display.
type Status struct {
	Authenticated bool
	User          identity.UserRecord
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Remaining     time.Duration
}

// RegisterResult is the outcome of Register.
type RegisterResult struct {
	Success bool
	Data    map[string]interface{}
	Message string
}

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Manager.
type Option func(*Manager)

// WithClock injects the time source.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLifetime sets the absolute session lifetime.
func WithLifetime(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lifetime = d
		}
	}
}

// WithWarningBefore sets the expiry warning lead time; 0 disables it.
func WithWarningBefore(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.warnBefore = d
		}
	}
}

// WithLogger sets the event logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l.WithComponent("session")
		}
	}
}

// WithLoginRate limits login attempts per minute.
func WithLoginRate(perMinute int) Option {
	return func(m *Manager) {
		if perMinute > 0 {
			m.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
		}
	}
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the session state machine.
type Manager struct {
	client Identity
	store  credstore.Store
	clock  Clock
	log    *logging.Logger

	lifetime   time.Duration
	warnBefore time.Duration
	limiter    *rate.Limiter

	mu      sync.Mutex
	session *Session
	timer   expiryTimer
	// epoch increments on every logout
	epoch uint64
	// lifeCtx is cancelled on logout to abort in-flight requests
	lifeCtx    context.Context
	lifeCancel context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]Listener
	nextSub int
}

// NewManager creates a Manager. It does not touch the store; call Restore
// to pick up a persisted session.
func NewManager(client Identity, store credstore.Store, opts ...Option) *Manager {
	m := &Manager{
		client:     client,
		store:      store,
		clock:      SystemClock{},
		log:        logging.Discard(),
		lifetime:   DefaultLifetime,
		warnBefore: DefaultWarningBefore,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/DefaultLoginAttemptsPerMinute), DefaultLoginAttemptsPerMinute),
		subs:       make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lifeCtx, m.lifeCancel = context.WithCancel(context.Background())
	return m
}

// Lifetime returns the configured session lifetime.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// Login authenticates against the identity service. On success the session
// is persisted, the expiry timer is armed for the full lifetime and the user
// is returned. On failure any existing session is left untouched.
func (m *Manager) Login(ctx context.Context, email, password string) (identity.UserRecord, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		m.log.SessionEvent(logging.EventLoginFailed, "", email, "missing email or password")
		return identity.UserRecord{}, invalidCredentials("email and password are required", nil)
	}

	if !m.limiter.Allow() {
		m.log.SessionEvent(logging.EventLoginThrottled, "", email, "")
		return identity.UserRecord{}, ErrTooManyAttempts
	}

	reqCtx, epoch, done := m.requestContext(ctx)
	resp, err := m.client.Login(reqCtx, email, password)
	done()

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.log.SessionEvent(logging.EventLoginSuperseded, "", email, "logout during login")
		return identity.UserRecord{}, ErrLoginSuperseded
	}

	if err != nil {
		m.mu.Unlock()
		if identity.IsClientError(err) {
			var apiErr *identity.APIError
			errors.As(err, &apiErr)
			m.log.SessionEvent(logging.EventLoginFailed, "", email, fmt.Sprintf("status=%d", apiErr.Status))
			return identity.UserRecord{}, invalidCredentials(apiErr.Message, err)
		}
		m.log.SessionEvent(logging.EventLoginFailed, "", email, err.Error())
		return identity.UserRecord{}, err
	}

	sess := &Session{
		ID:       uuid.NewString(),
		Token:    resp.Token,
		User:     resp.User,
		IssuedAt: m.clock.Now(),
	}
	if err := m.store.Save(credstore.Record{Token: sess.Token, User: sess.User, LoginTime: sess.IssuedAt}); err != nil {
		m.mu.Unlock()
		m.log.SessionEvent(logging.EventLoginFailed, sess.ID, email, "persist failed: "+err.Error())
		return identity.UserRecord{}, fmt.Errorf("failed to persist session: %w", err)
	}
	m.session = sess
	m.armLocked(sess.IssuedAt.Add(m.lifetime))
	m.mu.Unlock()

	m.log.SessionEvent(logging.EventSessionCreated, sess.ID, sess.User.Email,
		fmt.Sprintf("role=%s lifetime=%v", sess.User.Role, m.lifetime))
	m.emit(Event{Type: EventLoggedIn, User: sess.User, At: sess.IssuedAt, Remaining: m.lifetime})
	return sess.User, nil
}

// Logout ends the session: the timer is cancelled, in-flight requests are
// aborted and the store is cleared. Calling it without a session still
// clears the store and is otherwise a no-op.
func (m *Manager) Logout() error {
	m.mu.Lock()
	ended, err := m.endLocked()
	m.mu.Unlock()

	if ended != nil {
		m.log.SessionEvent(logging.EventSessionTerminated, ended.ID, ended.User.Email,
			fmt.Sprintf("duration=%v", m.clock.Now().Sub(ended.IssuedAt).Round(time.Second)))
		m.emit(Event{Type: EventLoggedOut, User: ended.User, At: m.clock.Now(), Reason: ReasonUser})
	}
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// endLocked tears down the session. Caller holds m.mu.
func (m *Manager) endLocked() (*Session, error) {
	ended := m.session
	m.session = nil
	m.epoch++
	m.timer.disarm()
	m.lifeCancel()
	m.lifeCtx, m.lifeCancel = context.WithCancel(context.Background())
	return ended, m.store.Clear()
}

// requestContext derives a context that is also cancelled by Logout.
// done must be called when the request finishes.
func (m *Manager) requestContext(ctx context.Context) (context.Context, uint64, func()) {
	m.mu.Lock()
	epoch := m.epoch
	life := m.lifeCtx
	m.mu.Unlock()

	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(life, cancel)
	return reqCtx, epoch, func() {
		stop()
		cancel()
	}
}

// =============================================================================
// EXPIRY
// =============================================================================

// armLocked replaces the expiry timer. Caller holds m.mu.
func (m *Manager) armLocked(deadline time.Time) {
	m.timer.arm(m.clock, deadline, m.warnBefore, m.onWarning, m.onExpire)
}

func (m *Manager) onWarning(gen uint64) {
	m.mu.Lock()
	if !m.timer.current(gen) || m.session == nil {
		m.mu.Unlock()
		return
	}
	user := m.session.User
	remaining := m.timer.deadline.Sub(m.clock.Now())
	m.mu.Unlock()

	m.emit(Event{Type: EventWarning, User: user, At: m.clock.Now(), Remaining: remaining})
}

func (m *Manager) onExpire(gen uint64) {
	m.mu.Lock()
	if !m.timer.current(gen) || m.session == nil {
		// Superseded by a newer arm or a logout
		m.mu.Unlock()
		return
	}
	ended, err := m.endLocked()
	m.mu.Unlock()

	now := m.clock.Now()
	m.log.SessionEvent(logging.EventSessionExpired, ended.ID, ended.User.Email,
		fmt.Sprintf("duration=%v", now.Sub(ended.IssuedAt).Round(time.Second)))
	if err != nil {
		m.log.Error("failed to clear credentials on expiry", "error", err.Error())
	}

	m.emit(Event{Type: EventExpired, User: ended.User, At: now})
	m.emit(Event{Type: EventLoggedOut, User: ended.User, At: now, Reason: ReasonExpired})
}

// =============================================================================
// RESTORE
// =============================================================================

// Restore loads the persisted session. With none it returns nil, nil. If the
// lifetime has passed since login, or the token is a JWT whose exp is in the
// past, the session is logged out and ErrSessionExpired returned. Otherwise
// the timer is armed for the remaining lifetime.
func (m *Manager) Restore() (*Session, error) {
	m.mu.Lock()

	rec, err := m.store.Load()
	if errors.Is(err, credstore.ErrCorrupt) {
		m.mu.Unlock()
		m.log.SessionEvent(logging.EventSessionInvalid, "", "", "partial credentials discarded")
		return nil, nil
	}
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if rec == nil {
		// Nothing persisted; an in-memory session without a record cannot survive
		if m.session != nil {
			ended, _ := m.endLocked()
			m.mu.Unlock()
			m.emit(Event{Type: EventLoggedOut, User: ended.User, At: m.clock.Now(), Reason: ReasonRejected})
			return nil, nil
		}
		m.mu.Unlock()
		return nil, nil
	}

	now := m.clock.Now()
	elapsed := now.Sub(rec.LoginTime)
	if elapsed < 0 {
		// Login time in the future: clock moved backwards; count from now
		elapsed = 0
	}

	reason := ""
	switch {
	case rec.LoginTime.IsZero():
		reason = "missing login time"
	case elapsed >= m.lifetime:
		reason = fmt.Sprintf("elapsed=%v", elapsed.Round(time.Second))
	case tokenExpired(rec.Token, now):
		reason = "token exp passed"
	}
	if reason != "" {
		ended, clearErr := m.endLocked()
		m.mu.Unlock()
		m.log.SessionEvent(logging.EventSessionExpired, "", rec.User.Email, reason)
		if ended != nil {
			m.emit(Event{Type: EventLoggedOut, User: ended.User, At: now, Reason: ReasonExpired})
		}
		if clearErr != nil {
			return nil, fmt.Errorf("failed to clear expired credentials: %w", clearErr)
		}
		return nil, sessionExpired(reason)
	}

	id := uuid.NewString()
	if m.session != nil && m.session.Token == rec.Token {
		id = m.session.ID
	}
	sess := &Session{ID: id, Token: rec.Token, User: rec.User, IssuedAt: rec.LoginTime}
	if elapsed == 0 && rec.LoginTime.After(now) {
		sess.IssuedAt = now
	}
	m.session = sess
	deadline := sess.IssuedAt.Add(m.lifetime)
	m.armLocked(deadline)
	out := *sess
	m.mu.Unlock()

	remaining := deadline.Sub(now)
	m.log.SessionEvent(logging.EventSessionRestored, sess.ID, sess.User.Email,
		fmt.Sprintf("remaining=%v", remaining.Round(time.Second)))
	m.emit(Event{Type: EventRestored, User: sess.User, At: now, Remaining: remaining})
	return &out, nil
}

// tokenExpired reports whether token is a JWT with an exp claim at or
// before now. Opaque tokens never expire here; the lifetime still applies.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(now)
}

// =============================================================================
// REGISTER / DIRECTORY
// =============================================================================

// Register creates a staff account. It never changes the current session.
func (m *Manager) Register(ctx context.Context, form identity.RegisterForm) RegisterResult {
	form.Email = strings.TrimSpace(form.Email)
	form.Username = strings.TrimSpace(form.Username)
	if form.Email == "" || form.Username == "" || form.Password == "" || strings.TrimSpace(form.Role) == "" {
		return RegisterResult{Success: false, Message: "All fields are required"}
	}
	role, err := access.ParseRole(form.Role)
	if err != nil {
		return RegisterResult{Success: false, Message: err.Error()}
	}
	form.Role = string(role)

	resp, err := m.client.Register(ctx, form)
	if err != nil {
		m.log.Warning("register failed", "user", form.Email, "error", err.Error())
		return RegisterResult{Success: false, Message: err.Error()}
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Register failed"
		}
		m.log.Warning("register rejected", "user", form.Email, "message", msg)
		return RegisterResult{Success: false, Message: msg}
	}

	m.log.SessionEvent(logging.EventStaffRegistered, m.currentID(), form.Email, "role="+form.Role)
	return RegisterResult{Success: true, Data: resp.Data, Message: resp.Message}
}

// FetchAdmins returns the staff directory. A 401 means the token was
// rejected: the session is logged out and ErrSessionExpired returned.
// Network failures are returned as-is and the session is kept.
func (m *Manager) FetchAdmins(ctx context.Context) ([]identity.UserRecord, error) {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()
	if sess == nil {
		return nil, ErrNotAuthenticated
	}

	reqCtx, epoch, done := m.requestContext(ctx)
	users, err := m.client.ListAdmins(reqCtx, sess.Token)
	done()

	m.mu.Lock()
	if m.epoch != epoch {
		// Logged out while the request was in flight: drop the late result
		m.mu.Unlock()
		return nil, ErrNotAuthenticated
	}

	if err != nil && identity.IsUnauthorized(err) {
		ended, clearErr := m.endLocked()
		m.mu.Unlock()
		m.log.SessionEvent(logging.EventSessionInvalid, sess.ID, sess.User.Email, "token rejected by identity service")
		if clearErr != nil {
			m.log.Error("failed to clear credentials", "error", clearErr.Error())
		}
		if ended != nil {
			m.emit(Event{Type: EventLoggedOut, User: ended.User, At: m.clock.Now(), Reason: ReasonRejected})
		}
		return nil, sessionExpired("token rejected")
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Warning("fetch admins failed", "error", err.Error())
		return nil, err
	}
	return users, nil
}

// =============================================================================
// STATE
// =============================================================================

// Current returns a copy of the session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// Role returns the current role, RoleNone without a session.
func (m *Manager) Role() access.Role {
	return m.Current().Role()
}

// Remaining returns the time left before expiry, 0 without a session.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.timer.armed() {
		return 0
	}
	d := m.timer.deadline.Sub(m.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Deadline returns when the session expires, zero without a session.
func (m *Manager) Deadline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return time.Time{}
	}
	return m.timer.deadline
}

// Status returns a display snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Status{}
	}
	remaining := m.timer.deadline.Sub(m.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Authenticated: true,
		User:          m.session.User,
		IssuedAt:      m.session.IssuedAt,
		ExpiresAt:     m.timer.deadline,
		Remaining:     remaining,
	}
}

func (m *Manager) currentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.ID
}

// Close stops the expiry timer without ending the session; the persisted
// record stays for the next Restore.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer.disarm()
	m.lifeCancel()
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn for session events and returns an unsubscribe func.
func (m *Manager) Subscribe(fn Listener) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// emit delivers ev to listeners in subscription order. Never call with m.mu held.
func (m *Manager) emit(ev Event) {
	m.subMu.Lock()
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, m.subs[id])
	}
	m.subMu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
