// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package access

// MenuItem is an entry of the navigation menu.
type MenuItem struct {
	Title string
	// Route is empty for pure groups (Order).
	Route    RouteID
	Children []MenuChild
}

// MenuChild is a sub-entry. Children are listed whatever the role; Allowed
// tells the renderer whether following it will redirect.
type MenuChild struct {
	Title   string
	Route   RouteID
	Allowed bool
}

type menuEntry struct {
	title    string
	route    RouteID
	roles    []Role
	children []RouteID
}

// The menu's own visibility roles. Setting is shown to every role even
// though the strict table denies admins its root.
var menuTable = []menuEntry{
	{title: "Dashboard", route: RouteDashboard, roles: adminCashier},
	{title: "Customers", route: RouteCustomers, roles: allStaff},
	{title: "Payment", route: RoutePayment, roles: allStaff},
	{title: "Stock", route: RouteStock, roles: allStaff},
	{title: "Order", roles: allStaff, children: []RouteID{RouteOrderList, RouteReceiptPrint}},
	{title: "Report", route: RouteReport, roles: adminCashier},
	{title: "Setting", route: RouteSettings, roles: allStaff, children: []RouteID{RouteSettingsProfile, RouteSettingsUsers}},
}

// Menu returns the menu entries visible to role. No role sees nothing.
func (p *Policy) Menu(role Role) []MenuItem {
	var items []MenuItem
	for _, e := range menuTable {
		if !hasRole(e.roles, role) {
			continue
		}
		item := MenuItem{Title: e.title, Route: e.route}
		for _, c := range e.children {
			item.Children = append(item.Children, MenuChild{
				Title:   c.Title(),
				Route:   c,
				Allowed: p.Allowed(role, c),
			})
		}
		items = append(items, item)
	}
	return items
}

// Flatten lists every navigable route in the menu, depth first.
func Flatten(items []MenuItem) []RouteID {
	var out []RouteID
	for _, it := range items {
		if it.Route != "" {
			out = append(out, it.Route)
		}
		for _, c := range it.Children {
			out = append(out, c.Route)
		}
	}
	return out
}

func hasRole(roles []Role, r Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}
