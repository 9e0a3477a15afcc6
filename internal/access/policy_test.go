// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package access

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var guarded = []RouteID{
	RouteDashboard, RouteCustomers, RoutePayment, RouteStock, RouteOrderList,
	RouteReceiptPrint, RouteReport, RouteSettings, RouteSettingsProfile, RouteSettingsUsers,
}

// =============================================================================
// RULE TABLE
// =============================================================================

func TestResolve_StrictTable(t *testing.T) {
	want := map[RouteID][]Role{
		RouteDashboard:       {RoleAdmin, RoleCashier},
		RouteCustomers:       {RoleAdmin, RoleCashier, RoleUser},
		RoutePayment:         {RoleAdmin, RoleCashier, RoleUser},
		RouteStock:           {RoleAdmin, RoleCashier, RoleUser},
		RouteOrderList:       {RoleAdmin, RoleCashier, RoleUser},
		RouteReceiptPrint:    {RoleAdmin, RoleCashier, RoleUser},
		RouteReport:          {RoleAdmin, RoleCashier},
		RouteSettings:        {RoleCashier, RoleUser},
		RouteSettingsProfile: {RoleAdmin},
		RouteSettingsUsers:   {RoleAdmin},
	}
	p := Default()
	for route, roles := range want {
		require.Equal(t, roles, p.AllowedRoles(route), "route %s", route)
	}
}

func TestResolve_MenuTableAdmitsAdminToSettings(t *testing.T) {
	strict := MustPolicy(TableStrict)
	menu := MustPolicy(TableMenu)

	require.False(t, strict.Allowed(RoleAdmin, RouteSettings))
	require.True(t, menu.Allowed(RoleAdmin, RouteSettings))

	// Every other cell is the same
	for _, route := range guarded {
		for _, role := range AllRoles() {
			if route == RouteSettings && role == RoleAdmin {
				continue
			}
			require.Equal(t, strict.Allowed(role, route), menu.Allowed(role, route), "%s/%s", role, route)
		}
	}
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestResolve_DeniedRolesAlwaysRedirect(t *testing.T) {
	for _, table := range []Table{TableStrict, TableMenu} {
		p := MustPolicy(table)
		for _, route := range guarded {
			allowed := map[Role]bool{}
			for _, r := range p.AllowedRoles(route) {
				allowed[r] = true
			}
			for _, role := range []Role{RoleAdmin, RoleCashier, RoleUser, Role("manager")} {
				d := p.Resolve(role, route)
				if allowed[role] {
					require.True(t, d.Allow, "%s %s %s", table, role, route)
					continue
				}
				require.False(t, d.Allow, "%s %s %s", table, role, route)
				require.Equal(t, ReasonRoleDenied, d.Reason)
				if role == RoleCashier {
					require.Equal(t, RouteDashboard, d.Redirect)
				} else {
					require.Equal(t, RouteOrderList, d.Redirect)
				}
			}
		}
	}
}

func TestResolve_NoUserAlwaysRedirectsToLogin(t *testing.T) {
	for _, route := range append(guarded, RouteID("does-not-exist")) {
		d := Resolve(RoleNone, route)
		require.False(t, d.Allow)
		require.Equal(t, RouteLogin, d.Redirect)
		require.Equal(t, ReasonUnauthenticated, d.Reason)
	}
}

func TestResolve_LoginRoute(t *testing.T) {
	require.True(t, Resolve(RoleNone, RouteLogin).Allow)

	d := Resolve(RoleCashier, RouteLogin)
	require.Equal(t, Decision{Redirect: RouteDashboard, Reason: ReasonAuthenticated}, d)

	d = Resolve(RoleUser, RouteLogin)
	require.Equal(t, RouteOrderList, d.Redirect)
}

func TestResolve_UnassignedRoleIsSignedIn(t *testing.T) {
	for _, route := range guarded {
		d := Resolve(RoleUnassigned, route)
		require.False(t, d.Allow, route)
		require.Equal(t, RouteOrderList, d.Redirect, route)
		require.Equal(t, ReasonRoleDenied, d.Reason, route)
	}

	d := Resolve(RoleUnassigned, RouteLogin)
	require.False(t, d.Allow, "a signed-in user without a role must not see the login screen")
	require.Equal(t, ReasonAuthenticated, d.Reason)
	require.False(t, RoleUnassigned.IsKnown())
}

func TestResolve_Scenario(t *testing.T) {
	require.True(t, Resolve(RoleAdmin, RouteReport).Allow)
	require.Equal(t, Decision{Redirect: RouteDashboard, Reason: ReasonRoleDenied}, Resolve(RoleCashier, RouteSettingsUsers))
	require.Equal(t, Decision{Redirect: RouteOrderList, Reason: ReasonRoleDenied}, Resolve(RoleUser, RouteReport))
}

func TestResolve_RedirectTargetsAreReachable(t *testing.T) {
	// A denial must never bounce to a route the same role is also denied.
	for _, table := range []Table{TableStrict, TableMenu} {
		p := MustPolicy(table)
		for _, role := range AllRoles() {
			for _, route := range guarded {
				d := p.Resolve(role, route)
				if d.Allow {
					continue
				}
				require.True(t, p.Resolve(role, d.Redirect).Allow, "%s: %s -> %s", role, route, d.Redirect)
			}
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func TestLandingRoute(t *testing.T) {
	require.Equal(t, RouteDashboard, LandingRoute(RoleAdmin))
	require.Equal(t, RouteDashboard, LandingRoute(RoleCashier))
	require.Equal(t, RouteOrderList, LandingRoute(RoleUser))
	require.Equal(t, RouteLogin, LandingRoute(RoleNone))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Cashier ")
	require.NoError(t, err)
	require.Equal(t, RoleCashier, r)

	_, err = ParseRole("manager")
	require.Error(t, err)
	_, err = ParseRole("")
	require.Error(t, err)
}

func TestParseTable(t *testing.T) {
	tbl, err := ParseTable("")
	require.NoError(t, err)
	require.Equal(t, TableStrict, tbl)

	tbl, err = ParseTable("MENU")
	require.NoError(t, err)
	require.Equal(t, TableMenu, tbl)

	_, err = NewPolicy("loose")
	require.Error(t, err)
}

func TestPolicy_RulesAreIsolated(t *testing.T) {
	// Building the menu variant must not leak into the strict one.
	_ = MustPolicy(TableMenu)
	require.False(t, Default().Allowed(RoleAdmin, RouteSettings))
}
