// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is a local stand-in for the staff identity service.
//
// Endpoints (under /api):
//   - POST /admins/login     - {email, password} -> {token, user}
//   - POST /admins/register  - {email, username, password, role, status} -> {success, data}
//   - GET  /admins/profile   - bearer; {success, data: [user...]}
//   - GET  /health           - liveness
//
// Accounts live in memory and can be seeded from a JSON file. Passwords are
// stored as bcrypt hashes and tokens are HS256 JWTs with an exp claim, so the
// console's restore path sees the same token shape as production.
package devserver
