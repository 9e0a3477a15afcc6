// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// backoffice console.
//
// Configuration file locations (in order of precedence):
//   - the path given with --config
//   - ~/.backoffice/config.toml
//   - ~/.backoffice/config.json
//   - Built-in defaults
//
// A .env file in the working directory is read before the environment
// overrides are applied; it never replaces variables already set in the
// process environment.
//
// # Environment Overrides
//
//   - BACKOFFICE_IDENTITY_URL: identity.base_url
//   - BACKOFFICE_SESSION_LIFETIME_MS: session.lifetime_ms
//   - BACKOFFICE_STORE: session.store (sqlite, file, memory)
//   - BACKOFFICE_ACCESS_TABLE: access.table (strict, menu)
//   - BACKOFFICE_LOG_LEVEL: logging.level
//   - BACKOFFICE_LOG_FILE: logging.file
//
// # Usage
//
//	cfg := config.Global()
//	lifetime := cfg.Session.Lifetime()
package config
