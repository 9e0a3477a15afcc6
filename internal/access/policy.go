// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package access

import (
	"fmt"
	"strings"
)

// =============================================================================
// DECISION
// =============================================================================

// Reason explains a Decision.
type Reason string

// Reasons.
const (
	ReasonAllowed         Reason = "allowed"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonRoleDenied      Reason = "role-denied"
	ReasonAuthenticated   Reason = "already-authenticated"
)

// Decision is the outcome of Resolve: Allow, or redirect to Redirect.
type Decision struct {
	Allow    bool
	Redirect RouteID
	Reason   Reason
}

func (d Decision) String() string {
	if d.Allow {
		return "allow"
	}
	return fmt.Sprintf("redirect to %s (%s)", d.Redirect, d.Reason)
}

func allow() Decision { return Decision{Allow: true, Reason: ReasonAllowed} }

func redirect(to RouteID, why Reason) Decision {
	return Decision{Redirect: to, Reason: why}
}

// =============================================================================
// RULE TABLES
// =============================================================================

// Table selects a rule variant.
type Table string

// Table variants.
const (
	TableStrict Table = "strict"
	TableMenu   Table = "menu"
)

// ParseTable parses a table variant name; empty means TableStrict.
func ParseTable(s string) (Table, error) {
	switch t := Table(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TableStrict, nil
	case TableStrict, TableMenu:
		return t, nil
	default:
		return "", fmt.Errorf("unknown access table %q (want strict or menu)", s)
	}
}

var (
	adminCashier     = []Role{RoleAdmin, RoleCashier}
	allStaff         = []Role{RoleAdmin, RoleCashier, RoleUser}
	cashierUser      = []Role{RoleCashier, RoleUser}
	adminOnly        = []Role{RoleAdmin}
	strictRuleSource = map[RouteID][]Role{
		RouteDashboard:       adminCashier,
		RouteCustomers:       allStaff,
		RoutePayment:         allStaff,
		RouteStock:           allStaff,
		RouteOrderList:       allStaff,
		RouteReceiptPrint:    allStaff,
		RouteReport:          adminCashier,
		RouteSettings:        cashierUser,
		RouteSettingsProfile: adminOnly,
		RouteSettingsUsers:   adminOnly,
	}
)

// buildRules materialises a table variant into set form.
func buildRules(t Table) map[RouteID]map[Role]bool {
	rules := make(map[RouteID]map[Role]bool, len(strictRuleSource))
	for route, roles := range strictRuleSource {
		set := make(map[Role]bool, len(roles))
		for _, r := range roles {
			set[r] = true
		}
		rules[route] = set
	}
	if t == TableMenu {
		rules[RouteSettings][RoleAdmin] = true
	}
	return rules
}

// =============================================================================
// POLICY
// =============================================================================

// Policy is an immutable access rule table.
type Policy struct {
	table Table
	rules map[RouteID]map[Role]bool
}

// NewPolicy builds the policy for a table variant.
func NewPolicy(t Table) (*Policy, error) {
	t, err := ParseTable(string(t))
	if err != nil {
		return nil, err
	}
	return &Policy{table: t, rules: buildRules(t)}, nil
}

// MustPolicy is NewPolicy for known-good variants.
func MustPolicy(t Table) *Policy {
	p, err := NewPolicy(t)
	if err != nil {
		panic(err)
	}
	return p
}

var defaultPolicy = MustPolicy(TableStrict)

// Default returns the strict policy.
func Default() *Policy {
	return defaultPolicy
}

// Resolve applies the default (strict) policy.
func Resolve(role Role, route RouteID) Decision {
	return defaultPolicy.Resolve(role, route)
}

// Table returns the variant this policy was built from.
func (p *Policy) Table() Table {
	return p.table
}

// Resolve decides whether role may render route.
//
// The login route is public. An authenticated user asking for it is sent to
// their landing route instead.
func (p *Policy) Resolve(role Role, route RouteID) Decision {
	if route == RouteLogin {
		if role == RoleNone {
			return allow()
		}
		return redirect(LandingRoute(role), ReasonAuthenticated)
	}

	if role == RoleNone {
		return redirect(RouteLogin, ReasonUnauthenticated)
	}

	if p.rules[route][role] {
		return allow()
	}

	if role == RoleCashier {
		return redirect(RouteDashboard, ReasonRoleDenied)
	}
	return redirect(RouteOrderList, ReasonRoleDenied)
}

// Allowed reports whether role may render route.
func (p *Policy) Allowed(role Role, route RouteID) bool {
	return p.Resolve(role, route).Allow
}

// AllowedRoles returns the roles admitted to route, in display order.
func (p *Policy) AllowedRoles(route RouteID) []Role {
	var out []Role
	for _, r := range AllRoles() {
		if p.rules[route][r] {
			out = append(out, r)
		}
	}
	return out
}

// LandingRoute is where a role goes right after login.
func LandingRoute(role Role) RouteID {
	switch role {
	case RoleAdmin, RoleCashier:
		return RouteDashboard
	case RoleNone:
		return RouteLogin
	default:
		return RouteOrderList
	}
}
