// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package access

import "strings"

// RouteID names a screen.
type RouteID string

// Routes.
const (
	RouteDashboard       RouteID = "dashboard"
	RouteCustomers       RouteID = "customers"
	RoutePayment         RouteID = "payment"
	RouteStock           RouteID = "stock"
	RouteOrderList       RouteID = "order-list"
	RouteReceiptPrint    RouteID = "receipt-print"
	RouteReport          RouteID = "report"
	RouteSettings        RouteID = "settings"
	RouteSettingsProfile RouteID = "settings-profile"
	RouteSettingsUsers   RouteID = "settings-users"
	RouteLogin           RouteID = "login"
)

// Route describes a screen.
type Route struct {
	ID    RouteID
	Path  string
	Title string
	// Public routes are reachable without a session.
	Public bool
}

var routeTable = []Route{
	{ID: RouteDashboard, Path: "/", Title: "Dashboard"},
	{ID: RouteCustomers, Path: "/customers", Title: "Customers"},
	{ID: RoutePayment, Path: "/payment", Title: "Payment"},
	{ID: RouteStock, Path: "/stock", Title: "Stock"},
	{ID: RouteOrderList, Path: "/order/view-order", Title: "View Order"},
	{ID: RouteReceiptPrint, Path: "/order/receipt", Title: "Print Receipt"},
	{ID: RouteReport, Path: "/report", Title: "Report"},
	{ID: RouteSettings, Path: "/setting", Title: "Setting"},
	{ID: RouteSettingsProfile, Path: "/setting/profile", Title: "Profile"},
	{ID: RouteSettingsUsers, Path: "/setting/users", Title: "Users"},
	{ID: RouteLogin, Path: "/login", Title: "Login", Public: true},
}

var (
	routesByID   = make(map[RouteID]Route, len(routeTable))
	routesByPath = make(map[string]Route, len(routeTable))
)

func init() {
	for _, r := range routeTable {
		routesByID[r.ID] = r
		routesByPath[r.Path] = r
	}
}

// Routes returns every route in menu order.
func Routes() []Route {
	out := make([]Route, len(routeTable))
	copy(out, routeTable)
	return out
}

// RouteByID looks up a route by ID.
func RouteByID(id RouteID) (Route, bool) {
	r, ok := routesByID[id]
	return r, ok
}

// RouteByPath looks up a route by path. Trailing slashes are ignored.
func RouteByPath(path string) (Route, bool) {
	path = strings.TrimSpace(path)
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		path = "/"
	}
	r, ok := routesByPath[path]
	return r, ok
}

// Lookup accepts either a route ID or a path.
func Lookup(s string) (Route, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/") {
		return RouteByPath(s)
	}
	return RouteByID(RouteID(strings.ToLower(s)))
}

// Title returns the route's display title, or the raw ID when unknown.
func (id RouteID) Title() string {
	if r, ok := routesByID[id]; ok {
		return r.Title
	}
	return string(id)
}
