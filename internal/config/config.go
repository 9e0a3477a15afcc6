// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/backoffice-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultIdentityURL is the hosted Click2Eat admin identity service.
	DefaultIdentityURL = "https://click2eat-backend-admin-service.onrender.com/api"

	// DefaultSessionLifetimeMs is the hard session lifetime (one hour).
	DefaultSessionLifetimeMs int64 = 3_600_000

	// Credential store backends.
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"

	// Access table variants.
	TableStrict = "strict"
	TableMenu   = "menu"

	configDirName = ".backoffice"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete backoffice configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Remote identity service
	Identity IdentityConfig `toml:"identity" json:"identity"`

	// Session lifetime and credential persistence
	Session SessionConfig `toml:"session" json:"session"`

	// Route access policy
	Access AccessConfig `toml:"access" json:"access"`

	Logging LoggingConfig `toml:"logging" json:"logging"`

	UI UIConfig `toml:"ui" json:"ui"`

	// Local stand-in identity service
	DevServer DevServerConfig `toml:"devserver" json:"devserver"`
}

// IdentityConfig configures the identity service client.
type IdentityConfig struct {
	// BaseURL is the API root, e.g. https://host/api
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds a single HTTP request
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries for transport errors and 5xx responses
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// LoginAttemptsPerMinute is the client-side login throttle
	LoginAttemptsPerMinute int `toml:"login_attempts_per_minute" json:"login_attempts_per_minute"`
}

// SessionConfig configures session lifetime and the credential store.
type SessionConfig struct {
	// LifetimeMs is the absolute session lifetime measured from login
	LifetimeMs int64 `toml:"lifetime_ms" json:"lifetime_ms"`
	// WarnBeforeSecs shows the expiry warning this long before the cutoff (0 disables)
	WarnBeforeSecs int `toml:"warn_before_secs" json:"warn_before_secs"`
	// Store is the credential backend: sqlite, file or memory
	Store string `toml:"store" json:"store"`
	// StorePath overrides the backend's default file location
	StorePath string `toml:"store_path" json:"store_path,omitempty"`
}

// AccessConfig configures the route access policy.
type AccessConfig struct {
	// Table selects the rule variant: strict or menu
	Table string `toml:"table" json:"table"`
	// DefaultRegisterRole is used by `register` when --role is omitted
	DefaultRegisterRole string `toml:"default_register_role" json:"default_register_role"`
}

// LoggingConfig configures the event log.
type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
	// File receives rotated log output; empty means ~/.backoffice/logs/backoffice.log
	File string `toml:"file" json:"file,omitempty"`
	// Format is text or json
	Format string `toml:"format" json:"format"`
}

// UIConfig configures the console.
type UIConfig struct {
	Theme   string `toml:"theme" json:"theme"`
	NoColor bool   `toml:"no_color" json:"no_color"`
}

// DevServerConfig configures `backoffice devserver`.
type DevServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
	// JWTSecret signs issued tokens; generated at startup when empty
	JWTSecret string `toml:"jwt_secret" json:"jwt_secret,omitempty"`
	// TokenTTLSecs sets the exp claim of issued tokens
	TokenTTLSecs int `toml:"token_ttl_secs" json:"token_ttl_secs"`
	// SeedFile is an optional JSON file of staff accounts loaded at startup
	SeedFile string `toml:"seed_file" json:"seed_file,omitempty"`
}

// Lifetime returns the session lifetime as a duration.
func (s SessionConfig) Lifetime() time.Duration {
	return time.Duration(s.LifetimeMs) * time.Millisecond
}

// WarnBefore returns the expiry warning lead time.
func (s SessionConfig) WarnBefore() time.Duration {
	return time.Duration(s.WarnBeforeSecs) * time.Second
}

// Timeout returns the per-request timeout.
func (i IdentityConfig) Timeout() time.Duration {
	return time.Duration(i.TimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Identity: IdentityConfig{
			BaseURL:                DefaultIdentityURL,
			TimeoutSecs:            30,
			MaxRetries:             2,
			LoginAttemptsPerMinute: 5,
		},
		Session: SessionConfig{
			LifetimeMs:     DefaultSessionLifetimeMs,
			WarnBeforeSecs: 120,
			Store:          StoreSQLite,
		},
		Access: AccessConfig{
			Table:               TableStrict,
			DefaultRegisterRole: "user",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		UI: UIConfig{
			Theme: "dark",
		},
		DevServer: DevServerConfig{
			Addr:         "127.0.0.1:8787",
			TokenTTLSecs: 3600,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the backoffice configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// CredentialPath returns the file used by the configured credential store.
// The memory store has no file and returns "".
func (c *Config) CredentialPath() (string, error) {
	if c.Session.StorePath != "" {
		return c.Session.StorePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	switch c.Session.Store {
	case StoreSQLite:
		return filepath.Join(dir, "credentials.db"), nil
	case StoreFile:
		return filepath.Join(dir, "credentials.json"), nil
	default:
		return "", nil
	}
}

// LogPath returns the log file path, defaulting under the config directory.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs", "backoffice.log"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv reads .env from the working directory if present.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last. A broken config file does not
// prevent startup: defaults are returned together with the load error.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if err := LoadDotEnv(); err != nil {
		loadErr = err
	}

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err = finish(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// finish applies env overrides, fills defaults and validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults fills in any missing values with defaults.
// Zero lifetimes are left alone so Validate can reject them.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Identity
	if cfg.Identity.BaseURL == "" {
		cfg.Identity.BaseURL = defaults.Identity.BaseURL
	}
	if cfg.Identity.TimeoutSecs == 0 {
		cfg.Identity.TimeoutSecs = defaults.Identity.TimeoutSecs
	}
	if cfg.Identity.LoginAttemptsPerMinute == 0 {
		cfg.Identity.LoginAttemptsPerMinute = defaults.Identity.LoginAttemptsPerMinute
	}

	// Session
	if cfg.Session.Store == "" {
		cfg.Session.Store = defaults.Session.Store
	}

	// Access
	if cfg.Access.Table == "" {
		cfg.Access.Table = defaults.Access.Table
	}
	if cfg.Access.DefaultRegisterRole == "" {
		cfg.Access.DefaultRegisterRole = defaults.Access.DefaultRegisterRole
	}

	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	// DevServer
	if cfg.DevServer.Addr == "" {
		cfg.DevServer.Addr = defaults.DevServer.Addr
	}
	if cfg.DevServer.TokenTTLSecs == 0 {
		cfg.DevServer.TokenTTLSecs = defaults.DevServer.TokenTTLSecs
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# backoffice configuration file\n")
	b.WriteString("# Generated by backoffice - edit with care\n")
	b.WriteString("\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WritePrivateFile(path, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WritePrivateFile(path, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validStores  = map[string]bool{StoreSQLite: true, StoreFile: true, StoreMemory: true}
	validTables  = map[string]bool{TableStrict: true, TableMenu: true}
	validRoles   = map[string]bool{"admin": true, "cashier": true, "user": true}
	validLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}
	validThemes  = map[string]bool{"dark": true, "light": true}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Identity
	u, err := url.Parse(c.Identity.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "identity.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http(s) URL", c.Identity.BaseURL),
		})
	}
	if c.Identity.TimeoutSecs < 1 || c.Identity.TimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "identity.timeout_secs",
			Message: fmt.Sprintf("timeout %d out of range (1-300)", c.Identity.TimeoutSecs),
		})
	}
	if c.Identity.MaxRetries < 0 || c.Identity.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "identity.max_retries",
			Message: fmt.Sprintf("max_retries %d out of range (0-10)", c.Identity.MaxRetries),
		})
	}
	if c.Identity.LoginAttemptsPerMinute < 1 {
		errs = append(errs, ValidationError{
			Field:   "identity.login_attempts_per_minute",
			Message: "must be at least 1",
		})
	}

	// Session
	if c.Session.LifetimeMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "session.lifetime_ms",
			Message: fmt.Sprintf("lifetime must be positive, got %d", c.Session.LifetimeMs),
		})
	}
	if c.Session.WarnBeforeSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.warn_before_secs",
			Message: "must not be negative",
		})
	}
	if !validStores[strings.ToLower(c.Session.Store)] {
		errs = append(errs, ValidationError{
			Field:   "session.store",
			Message: fmt.Sprintf("invalid store '%s', must be one of: sqlite, file, memory", c.Session.Store),
		})
	}

	// Access
	if !validTables[strings.ToLower(c.Access.Table)] {
		errs = append(errs, ValidationError{
			Field:   "access.table",
			Message: fmt.Sprintf("invalid table '%s', must be one of: strict, menu", c.Access.Table),
		})
	}
	if !validRoles[strings.ToLower(c.Access.DefaultRegisterRole)] {
		errs = append(errs, ValidationError{
			Field:   "access.default_register_role",
			Message: fmt.Sprintf("unknown role '%s', must be one of: admin, cashier, user", c.Access.DefaultRegisterRole),
		})
	}

	// Logging
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Logging.Level),
		})
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json", c.Logging.Format),
		})
	}

	// UI
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light", c.UI.Theme),
		})
	}

	// DevServer
	if c.DevServer.TokenTTLSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "devserver.token_ttl_secs",
			Message: "must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies BACKOFFICE_* environment variables to the config.
// Malformed numeric values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("BACKOFFICE_IDENTITY_URL"); v != "" {
		c.Identity.BaseURL = v
	}

	if v := os.Getenv("BACKOFFICE_SESSION_LIFETIME_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Session.LifetimeMs = ms
		}
	}

	if v := os.Getenv("BACKOFFICE_STORE"); v != "" {
		c.Session.Store = strings.ToLower(v)
	}

	if v := os.Getenv("BACKOFFICE_ACCESS_TABLE"); v != "" {
		c.Access.Table = strings.ToLower(v)
	}

	if v := os.Getenv("BACKOFFICE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("BACKOFFICE_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// =============================================================================
// CLONE / STRING
// =============================================================================

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as JSON with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.DevServer.JWTSecret != "" {
		safe.DevServer.JWTSecret = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
