// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity is the client for the Click2Eat admin identity service.
//
// Endpoints:
//   - POST /admins/login    {email, password} -> {token, user}
//   - POST /admins/register {email, username, password, role, status}
//   - GET  /admins/profile  (bearer) -> {success, data: [user...]}
//
// Transport failures and 5xx responses on login and profile are retried with
// exponential backoff. Register is never retried since the service does not
// deduplicate accounts created by a replayed request.
//
// # Errors
//
//   - *NetworkError: the request never produced an HTTP response
//   - *APIError: the service answered with a non-2xx status or success=false
//
// Use IsUnauthorized to detect a rejected bearer token.
package identity
