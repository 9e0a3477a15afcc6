// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/config"
	"github.com/jeranaias/backoffice-tui/internal/credstore"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/logging"
	"github.com/jeranaias/backoffice-tui/internal/session"
)

// Env is what the command handlers share: the loaded config and the
// session stack built from it.
type Env struct {
	Config   *config.Config
	Logger   *logging.Logger
	Store    credstore.Store
	Sessions *session.Manager
	Policy   *access.Policy

	Out    io.Writer
	ErrOut io.Writer
	Prompt *Prompter
	JSON   bool

	// Restored is the session found on startup, or nil.
	Restored *session.Session
}

// Setup loads the config named by args and builds the session stack.
// The persisted session, if any, is restored.
func Setup(args Args) (*Env, error) {
	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		return nil, err
	}
	if args.NoColor || cfg.UI.NoColor {
		DisableColors()
	}

	level := cfg.Logging.Level
	if args.Verbose {
		level = "debug"
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		logPath = ""
	}
	log := logging.NewLogger(level, logPath)
	log.SetFormatter(cfg.Logging.Format)

	backend := cfg.Session.Store
	if args.Ephemeral {
		backend = config.StoreMemory
	}
	storePath, err := cfg.CredentialPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate credential store: %w", err)
	}
	if backend != config.StoreMemory {
		if err := config.EnsureConfigDir(); err != nil && cfg.Session.StorePath == "" {
			return nil, err
		}
	}
	store, err := credstore.Open(backend, storePath)
	if err != nil {
		return nil, err
	}

	client := identity.NewClient(cfg.Identity.BaseURL).
		WithTimeout(cfg.Identity.Timeout()).
		WithMaxRetries(cfg.Identity.MaxRetries).
		WithLogger(log)

	env, err := NewEnv(cfg, client, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	env.JSON = args.JSON
	return env, nil
}

// NewEnv builds an Env around an identity client and store. Output goes to
// stdout/stderr until the caller replaces it.
func NewEnv(cfg *config.Config, client session.Identity, store credstore.Store, log *logging.Logger) (*Env, error) {
	if log == nil {
		log = logging.Discard()
	}
	policy, err := access.NewPolicy(access.Table(cfg.Access.Table))
	if err != nil {
		return nil, err
	}

	mgr := session.NewManager(client, store,
		session.WithLifetime(cfg.Session.Lifetime()),
		session.WithWarningBefore(cfg.Session.WarnBefore()),
		session.WithLoginRate(cfg.Identity.LoginAttemptsPerMinute),
		session.WithLogger(log),
	)

	env := &Env{
		Config:   cfg,
		Logger:   log,
		Store:    store,
		Sessions: mgr,
		Policy:   policy,
		Out:      os.Stdout,
		ErrOut:   os.Stderr,
		Prompt:   NewPrompter(os.Stdin, os.Stderr),
	}

	restored, err := mgr.Restore()
	switch {
	case err == nil:
		env.Restored = restored
	case errors.Is(err, session.ErrSessionExpired):
		// Expired records are cleared by Restore; start signed out.
	default:
		log.Warning("restore failed", "error", err.Error())
	}
	return env, nil
}

// Close stops the session timer and closes the store. The persisted
// session survives for the next run.
func (e *Env) Close() {
	e.Sessions.Close()
	if err := e.Store.Close(); err != nil {
		e.Logger.Warning("close store", "error", err.Error())
	}
	_ = e.Logger.Close()
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if cfg == nil {
		return nil, err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v (using defaults)\n", WarningStyle.Render("Warning:"), err)
	}
	config.SetGlobal(cfg)
	return cfg, nil
}
