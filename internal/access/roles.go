// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package access

import (
	"fmt"
	"strings"
)

// Role is a staff role.
type Role string

// Roles.
const (
	// RoleNone means no authenticated user.
	RoleNone    Role = ""
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleUser    Role = "user"

	// RoleUnassigned is a signed-in user whose record carries no role. It is
	// authenticated but matches no rule.
	RoleUnassigned Role = "(unassigned)"
)

// String returns the role name, or "none".
func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// IsKnown reports whether r is one of admin, cashier or user.
func (r Role) IsKnown() bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleUser:
		return true
	}
	return false
}

// AllRoles returns the known roles in display order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleCashier, RoleUser}
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsKnown() {
		return RoleNone, fmt.Errorf("unknown role %q (want admin, cashier or user)", s)
	}
	return r, nil
}
