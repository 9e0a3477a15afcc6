// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package access implements the role-based route access policy.
//
// Resolve is pure: given a role and a route it returns either Allow or a
// redirect target. The rule table is built once per Policy and never
// modified.
//
// # Redirect Rules
//
//   - no authenticated user: redirect to login
//   - role not allowed, role is cashier: redirect to dashboard
//   - role not allowed, any other role: redirect to order-list
//
// # Table Variants
//
// Two tables exist. TableStrict (the default) keeps admins out of the
// settings root; TableMenu, which mirrors the navigation menu, lets them in.
// Every other rule is identical.
package access
