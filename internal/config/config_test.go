// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolateHome points the home directory at a temp dir so tests never read
// the developer's real ~/.backoffice.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{
		"BACKOFFICE_IDENTITY_URL", "BACKOFFICE_SESSION_LIFETIME_MS", "BACKOFFICE_STORE",
		"BACKOFFICE_ACCESS_TABLE", "BACKOFFICE_LOG_LEVEL", "BACKOFFICE_LOG_FILE",
	} {
		t.Setenv(k, "")
	}
	return home
}

// =============================================================================
// GLOBAL SINGLETON TESTS
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolateHome(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Access.Table = TableMenu
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_GlobalFallsBackToDefaults(t *testing.T) {
	isolateHome(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	cfg := Global()
	require.NotNil(t, cfg)
	require.Equal(t, DefaultSessionLifetimeMs, cfg.Session.LifetimeMs)
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolateHome(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	c := Default()
	c.Session.Store = StoreMemory
	SetGlobal(c)
	require.Equal(t, StoreMemory, Global().Session.Store)
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	require.Equal(t, DefaultIdentityURL, cfg.Identity.BaseURL)
	require.Equal(t, time.Hour, cfg.Session.Lifetime())
	require.Equal(t, StoreSQLite, cfg.Session.Store)
	require.Equal(t, TableStrict, cfg.Access.Table)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"zero lifetime", func(c *Config) { c.Session.LifetimeMs = 0 }, "session.lifetime_ms"},
		{"negative lifetime", func(c *Config) { c.Session.LifetimeMs = -5 }, "session.lifetime_ms"},
		{"unknown store", func(c *Config) { c.Session.Store = "redis" }, "session.store"},
		{"unknown table", func(c *Config) { c.Access.Table = "loose" }, "access.table"},
		{"unknown role", func(c *Config) { c.Access.DefaultRegisterRole = "manager" }, "access.default_register_role"},
		{"relative url", func(c *Config) { c.Identity.BaseURL = "/api" }, "identity.base_url"},
		{"bad scheme", func(c *Config) { c.Identity.BaseURL = "ftp://example.com" }, "identity.base_url"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"retries out of range", func(c *Config) { c.Identity.MaxRetries = 99 }, "identity.max_retries"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestConfig_ValidateAcceptsMenuTable(t *testing.T) {
	c := Default()
	c.Access.Table = TableMenu
	c.Session.Store = StoreFile
	require.NoError(t, c.Validate())
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

func TestConfig_LoadTOMLFillsDefaults(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[session]
lifetime_ms = 60000
store = "file"

[access]
table = "menu"
`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, int64(60000), cfg.Session.LifetimeMs)
	require.Equal(t, StoreFile, cfg.Session.Store)
	require.Equal(t, TableMenu, cfg.Access.Table)
	require.Equal(t, DefaultIdentityURL, cfg.Identity.BaseURL)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestConfig_LoadFromPathRejectsInvalid(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[session]\nlifetime_ms = -1\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "session.lifetime_ms")
}

func TestConfig_LoadJSON(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"identity":{"base_url":"http://localhost:8787/api"}}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8787/api", cfg.Identity.BaseURL)
}

func TestConfig_SaveTOMLRoundTrip(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	c := Default()
	c.Session.LifetimeMs = 1234
	c.DevServer.JWTSecret = "s3cret"
	require.NoError(t, SaveTOML(c, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		require.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, int64(1234), loaded.Session.LifetimeMs)
	require.Equal(t, "s3cret", loaded.DevServer.JWTSecret)
}

func TestConfig_LoadPrefersHomeTOML(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, configDirName)
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[access]\ntable = \"menu\"\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"access":{"table":"strict"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, TableMenu, cfg.Access.Table)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("BACKOFFICE_IDENTITY_URL", "http://127.0.0.1:9000/api")
	t.Setenv("BACKOFFICE_SESSION_LIFETIME_MS", "5000")
	t.Setenv("BACKOFFICE_STORE", "MEMORY")
	t.Setenv("BACKOFFICE_ACCESS_TABLE", "menu")
	t.Setenv("BACKOFFICE_LOG_LEVEL", "debug")

	c := Default()
	c.ApplyEnvOverrides()

	require.Equal(t, "http://127.0.0.1:9000/api", c.Identity.BaseURL)
	require.Equal(t, int64(5000), c.Session.LifetimeMs)
	require.Equal(t, StoreMemory, c.Session.Store)
	require.Equal(t, TableMenu, c.Access.Table)
	require.Equal(t, "debug", c.Logging.Level)
}

func TestConfig_ApplyEnvOverridesIgnoresMalformedNumbers(t *testing.T) {
	isolateHome(t)
	t.Setenv("BACKOFFICE_SESSION_LIFETIME_MS", "an hour")

	c := Default()
	c.ApplyEnvOverrides()
	require.Equal(t, DefaultSessionLifetimeMs, c.Session.LifetimeMs)
}

func TestConfig_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	isolateHome(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	require.NoError(t, os.WriteFile(".env", []byte("BACKOFFICE_ACCESS_TABLE=menu\nBACKOFFICE_LOG_LEVEL=debug\n"), 0600))
	t.Setenv("BACKOFFICE_LOG_LEVEL", "error")
	t.Setenv("BACKOFFICE_ACCESS_TABLE", "")
	os.Unsetenv("BACKOFFICE_ACCESS_TABLE")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, TableMenu, cfg.Access.Table)
	require.Equal(t, "error", cfg.Logging.Level)
}

// =============================================================================
// PATHS AND REDACTION
// =============================================================================

func TestConfig_CredentialPath(t *testing.T) {
	home := isolateHome(t)

	c := Default()
	p, err := c.CredentialPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, configDirName, "credentials.db"), p)

	c.Session.Store = StoreFile
	p, err = c.CredentialPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, configDirName, "credentials.json"), p)

	c.Session.Store = StoreMemory
	p, err = c.CredentialPath()
	require.NoError(t, err)
	require.Empty(t, p)

	c.Session.StorePath = "/tmp/custom.db"
	p, err = c.CredentialPath()
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.db", p)
}

func TestConfig_StringRedactsSecret(t *testing.T) {
	c := Default()
	c.DevServer.JWTSecret = "super-secret"
	require.NotContains(t, c.String(), "super-secret")
	require.Contains(t, c.String(), "[REDACTED]")
}
