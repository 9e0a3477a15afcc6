// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/config"
	"github.com/jeranaias/backoffice-tui/internal/credstore"
	"github.com/jeranaias/backoffice-tui/internal/devserver"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/session"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{name: "no args starts the console", argv: nil, wantCmd: CmdTUI},
		{name: "login", argv: []string{"login", "--email", "a@x.io"}, wantCmd: CmdLogin,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, []string{"--email", "a@x.io"}, a.Raw)
			}},
		{name: "global flags anywhere", argv: []string{"--json", "status", "--no-color", "-v"}, wantCmd: CmdStatus,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
				assert.True(t, a.NoColor)
				assert.True(t, a.Verbose)
				assert.Empty(t, a.Raw)
			}},
		{name: "config path", argv: []string{"--config", "/tmp/c.toml", "routes"}, wantCmd: CmdRoutes,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/c.toml", a.ConfigPath)
			}},
		{name: "config equals", argv: []string{"can", "--config=/tmp/c.toml", "payment"}, wantCmd: CmdCan,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/c.toml", a.ConfigPath)
				assert.Equal(t, []string{"payment"}, a.Raw)
			}},
		{name: "ephemeral", argv: []string{"--ephemeral", "shell"}, wantCmd: CmdShell,
			check: func(t *testing.T, a Args) { assert.True(t, a.Ephemeral) }},
		{name: "alias", argv: []string{"staff"}, wantCmd: CmdUsers},
		{name: "case insensitive", argv: []string{"LOGOUT"}, wantCmd: CmdLogout},
		{name: "devserver", argv: []string{"devserver", "--addr", ":0"}, wantCmd: CmdDevServer},
		{name: "version", argv: []string{"--version"}, wantCmd: CmdVersion},
		{name: "help", argv: []string{"-h"}, wantCmd: CmdHelp},
		{name: "unknown", argv: []string{"frobnicate"}, wantCmd: CmdUnknown,
			check: func(t *testing.T, a Args) { assert.Equal(t, "frobnicate", a.Name) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"--email", "a@x.io", "--inactive", "extra", "--role=cashier", "--json=false", "--", "--literal"}, "inactive")

	assert.Equal(t, "a@x.io", p.Flag("email"))
	assert.Equal(t, "cashier", p.Flag("--role"))
	assert.True(t, p.BoolFlag("inactive"))
	assert.False(t, p.BoolFlag("json"))
	assert.True(t, p.HasFlag("json"))
	assert.Equal(t, 2, p.PositionalCount())
	assert.Equal(t, "extra", p.Positional(0))
	assert.Equal(t, "--literal", p.Positional(1))
	assert.Equal(t, "", p.Positional(5))
	assert.Equal(t, "user", p.FlagOrDefault("missing", "user"))
}

func TestArgParser_WithoutSwitchConsumesValue(t *testing.T) {
	p := NewArgParser([]string{"--inactive", "extra"})
	assert.Equal(t, "extra", p.Flag("inactive"))
	assert.Equal(t, 0, p.PositionalCount())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{ErrMissingArgument("--email", loginUsage), ExitUsageError},
		{config.ValidateErrors{{Field: "session.lifetime_ms", Message: "must be positive"}}, ExitConfigError},
		{ErrDenied, ExitDenied},
		{&session.AuthError{Kind: session.InvalidCredentials}, ExitAuthError},
		{session.ErrTooManyAttempts, ExitAuthError},
		{errors.Join(errors.New("users"), session.ErrNotAuthenticated), ExitAuthError},
		{&identity.NetworkError{Op: "login", Err: errors.New("refused")}, ExitNetworkError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetExitCode(tt.err), "%v", tt.err)
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, "can", ErrDenied, false)
	assert.Empty(t, buf.String())

	DisplayError(&buf, "login", errors.New("nope"), false)
	assert.Contains(t, buf.String(), "nope")

	buf.Reset()
	DisplayError(&buf, "login", errors.New("nope"), true)
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "nope", *resp.Error)
}

// =============================================================================
// PROMPTER
// =============================================================================

func TestPrompter_NonTerminal(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("a@x.io\nsecret\r\nlast"), &out)

	assert.False(t, p.Interactive())
	email, err := p.Line("Email: ")
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", email)

	pw, err := p.Secret("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)

	last, err := p.ReadSecretLine()
	require.NoError(t, err)
	assert.Equal(t, "last", last)

	_, err = p.ReadSecretLine()
	assert.Error(t, err)
	assert.Equal(t, "Email: Password: ", out.String())
}

// =============================================================================
// HANDLERS AGAINST THE DEV SERVER
// =============================================================================

type testEnv struct {
	*Env
	out *bytes.Buffer
	url string
}

func newTestEnv(t *testing.T, stdin string) *testEnv {
	t.Helper()
	srv, err := devserver.New(devserver.Options{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	for _, f := range []identity.RegisterForm{
		{Email: "admin@x.io", Username: "ada", Password: "pw", Role: "admin", Active: true},
		{Email: "cashier@x.io", Username: "cal", Password: "pw", Role: "cashier", Active: true},
		{Email: "gone@x.io", Username: "gus", Password: "pw", Role: "user", Active: false},
	} {
		_, err := srv.Directory().Create(f)
		require.NoError(t, err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return envFor(t, ts.URL, credstore.NewMemoryStore(), stdin)
}

// envFor builds an Env against the dev server at baseURL with its output
// captured.
func envFor(t *testing.T, baseURL string, store credstore.Store, stdin string) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Identity.BaseURL = baseURL + "/api"
	cfg.Identity.LoginAttemptsPerMinute = 100
	client := identity.NewClient(cfg.Identity.BaseURL).WithMaxRetries(0)

	env, err := NewEnv(cfg, client, store, nil)
	require.NoError(t, err)
	t.Cleanup(env.Close)

	out := &bytes.Buffer{}
	env.Out = out
	env.ErrOut = io.Discard
	env.Prompt = NewPrompter(strings.NewReader(stdin), io.Discard)
	return &testEnv{Env: env, out: out, url: baseURL}
}

func login(t *testing.T, te *testEnv, email string) {
	t.Helper()
	te.Prompt = NewPrompter(strings.NewReader("pw\n"), io.Discard)
	require.NoError(t, HandleLogin(context.Background(), te.Env, Args{Raw: []string{"--email", email, "--password-stdin"}}))
}

func TestLoginStatusLogout(t *testing.T) {
	te := newTestEnv(t, "")
	login(t, te, "admin@x.io")
	assert.Contains(t, te.out.String(), "Signed in as admin@x.io")
	assert.Contains(t, te.out.String(), "Dashboard")

	te.out.Reset()
	te.JSON = true
	require.NoError(t, HandleStatus(te.Env, Args{}))
	var resp struct {
		Success bool       `json:"success"`
		Data    StatusData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	assert.True(t, resp.Data.Authenticated)
	assert.Equal(t, "admin", resp.Data.Role)
	assert.Equal(t, "dashboard", resp.Data.Landing)
	assert.Greater(t, resp.Data.RemainingMs, int64(3_590_000))

	te.out.Reset()
	te.JSON = false
	require.NoError(t, HandleLogout(te.Env, Args{}))
	assert.Contains(t, te.out.String(), "Signed out.")
	assert.Nil(t, te.Sessions.Current())

	te.out.Reset()
	require.NoError(t, HandleStatus(te.Env, Args{}))
	assert.Contains(t, te.out.String(), "Not signed in")
}

func TestLogin_Failures(t *testing.T) {
	te := newTestEnv(t, "wrong\n")
	err := HandleLogin(context.Background(), te.Env, Args{Raw: []string{"--email", "admin@x.io", "--password-stdin"}})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Equal(t, ExitAuthError, GetExitCode(err))
	assert.Nil(t, te.Sessions.Current())

	te.Prompt = NewPrompter(strings.NewReader("pw\n"), io.Discard)
	err = HandleLogin(context.Background(), te.Env, Args{Raw: []string{"gone@x.io", "--password-stdin"}})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Account is inactive")
}

func TestLogin_NonInteractiveNeedsInput(t *testing.T) {
	te := newTestEnv(t, "")
	err := HandleLogin(context.Background(), te.Env, Args{})
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = HandleLogin(context.Background(), te.Env, Args{Raw: []string{"--email", "admin@x.io"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestRegisterAndUsers(t *testing.T) {
	te := newTestEnv(t, "s3cret\n")
	require.NoError(t, HandleRegister(context.Background(), te.Env, Args{Raw: []string{
		"--email", "new@x.io", "--username", "neo", "--role", "Cashier", "--inactive", "--password-stdin",
	}}))
	assert.Contains(t, te.out.String(), "new@x.io")
	assert.Nil(t, te.Sessions.Current(), "registering does not sign in")

	login(t, te, "admin@x.io")
	te.out.Reset()
	te.JSON = true
	require.NoError(t, HandleUsers(context.Background(), te.Env, Args{Raw: []string{"--role", "cashier"}}))
	var resp struct {
		Data []identity.UserRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "cashier@x.io", resp.Data[0].Email)
	assert.Equal(t, "new@x.io", resp.Data[1].Email)
	assert.False(t, resp.Data[1].Active)

	te.out.Reset()
	te.JSON = false
	require.NoError(t, HandleUsers(context.Background(), te.Env, Args{Raw: []string{"--search", "ADA"}}))
	assert.Contains(t, te.out.String(), "admin@x.io")
	assert.Contains(t, te.out.String(), "1 of 4 shown")
}

func TestRegister_Rejected(t *testing.T) {
	te := newTestEnv(t, "pw\n")
	err := HandleRegister(context.Background(), te.Env, Args{Raw: []string{
		"--email", "admin@x.io", "--username", "ada2", "--password-stdin",
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email already exists")

	err = HandleRegister(context.Background(), te.Env, Args{Raw: []string{"--email", "x@x.io", "--username", "x", "--role", "chef"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestUsers_AccessRules(t *testing.T) {
	te := newTestEnv(t, "")
	err := HandleUsers(context.Background(), te.Env, Args{})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	login(t, te, "cashier@x.io")
	err = HandleUsers(context.Background(), te.Env, Args{})
	require.ErrorIs(t, err, ErrDenied)
	assert.Contains(t, err.Error(), "admin")
	assert.Equal(t, ExitDenied, GetExitCode(err))
}

func TestCan(t *testing.T) {
	te := newTestEnv(t, "")

	err := HandleCan(te.Env, Args{Raw: []string{"settings-users", "--role", "cashier"}})
	assert.Equal(t, ErrDenied, err)
	assert.Contains(t, te.out.String(), "Dashboard")
	assert.Contains(t, te.out.String(), "settings-users -> dashboard")

	te.out.Reset()
	require.NoError(t, HandleCan(te.Env, Args{Raw: []string{"/payment", "--role", "user"}}))
	assert.Contains(t, te.out.String(), "may open Payment")

	te.out.Reset()
	te.JSON = true
	err = HandleCan(te.Env, Args{Raw: []string{"report"}})
	assert.Equal(t, ErrDenied, err)
	var resp struct {
		Data OutcomeData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	assert.Equal(t, "none", resp.Data.Role)
	assert.Equal(t, "login", resp.Data.Render)
	assert.Equal(t, "unauthenticated", resp.Data.Reason)

	err = HandleCan(te.Env, Args{Raw: []string{"kitchen"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	err = HandleCan(te.Env, Args{})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestRoutes(t *testing.T) {
	te := newTestEnv(t, "")
	te.JSON = true
	require.NoError(t, HandleRoutes(te.Env, Args{}))
	var resp struct {
		Data []RouteData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	require.Len(t, resp.Data, 11)
	for _, r := range resp.Data {
		assert.Nil(t, r.Allowed, "no session, no allowed column")
	}

	login(t, te, "cashier@x.io")
	te.out.Reset()
	te.JSON = false
	require.NoError(t, HandleRoutes(te.Env, Args{}))
	out := te.out.String()
	assert.Contains(t, out, "YOU")
	assert.Contains(t, out, "-> dashboard")
	assert.Contains(t, out, "access table: strict")
}

func TestSessionSurvivesRestart(t *testing.T) {
	te := newTestEnv(t, "")
	path := filepath.Join(t.TempDir(), "credentials.db")

	store, err := credstore.OpenSQLite(path)
	require.NoError(t, err)
	first := envFor(t, te.url, store, "pw\n")
	require.Nil(t, first.Restored)
	require.NoError(t, HandleLogin(context.Background(), first.Env, Args{Raw: []string{"--email", "cashier@x.io", "--password-stdin"}}))

	store2, err := credstore.OpenSQLite(path)
	require.NoError(t, err)
	second := envFor(t, te.url, store2, "")
	require.NotNil(t, second.Restored)
	assert.Equal(t, "cashier@x.io", second.Restored.User.Email)
	assert.Equal(t, access.RoleCashier, second.Sessions.Role())
}

// =============================================================================
// SHELL
// =============================================================================

func TestShell(t *testing.T) {
	te := newTestEnv(t, "")
	var out bytes.Buffer
	sh := NewShell(te.Env, &out)
	defer sh.Close()
	sh.readPassword = func(string) (string, error) { return "pw", nil }
	ctx := context.Background()

	assert.Equal(t, "backoffice:/login> ", sh.Prompt())

	_, err := sh.Exec(ctx, "go /payment")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Login")

	_, err = sh.Exec(ctx, "login cashier@x.io")
	require.NoError(t, err)
	assert.Equal(t, "backoffice:/> ", sh.Prompt())

	out.Reset()
	_, err = sh.Exec(ctx, "go settings-users")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "redirected:")
	assert.Contains(t, out.String(), "Users -> Dashboard")

	out.Reset()
	_, err = sh.Exec(ctx, "/payment")
	require.NoError(t, err)
	assert.Equal(t, "backoffice:/payment> ", sh.Prompt())

	out.Reset()
	_, err = sh.Exec(ctx, "menu")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "* Payment")
	assert.Contains(t, out.String(), "Users (locked)")

	out.Reset()
	_, err = sh.Exec(ctx, "users gus")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "gone@x.io")
	assert.NotContains(t, out.String(), "admin@x.io")

	_, err = sh.Exec(ctx, "bogus")
	assert.Error(t, err)

	_, err = sh.Exec(ctx, "logout")
	require.NoError(t, err)
	assert.Equal(t, "backoffice:/login> ", sh.Prompt())

	quit, err := sh.Exec(ctx, "exit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestCompleteShell(t *testing.T) {
	assert.ElementsMatch(t, []string{"login ", "logout"}, completeShell("lo"))
	assert.ElementsMatch(t, []string{"go settings", "go settings-profile", "go settings-users"}, completeShell("go se"))
	assert.Empty(t, completeShell("zzz"))
}
