// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers of the
// backoffice binary.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed global flags plus the command's raw arguments
//   - Env: Config, logger, credential store and session manager shared by
//     the handlers
//
// # Usage
//
//	cmd, args := cli.Parse()
//	env, err := cli.Setup(args)
//	...
//	err = cli.HandleStatus(env, args)
//
// # Commands Overview
//
// Session commands:
//   - login, logout, status
//
// Staff commands:
//   - register, users
//
// Navigation commands:
//   - routes, can, shell, tui
//
// Development:
//   - devserver: local identity service
//
// Commands that print data support --json.
package cli
