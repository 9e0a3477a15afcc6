// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the backoffice packages.
//
// # Key Functions
//
//   - WritePrivateFile: owner-only file replacement (temp file, fsync, rename)
//   - TruncateWidth, PadWidth: display-width aware column helpers for tables
//   - FormatRemaining, FormatDuration: countdown and duration formatting
//
// # Usage
//
//	// Persist a credential document without ever exposing a half-written file
//	err := util.WritePrivateFile(path, data)
//
//	// Fit an email address into a 24 column table cell
//	cell := util.PadWidth(util.TruncateWidth(email, 24), 24)
package util
