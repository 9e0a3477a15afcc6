// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"strings"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/session"
	"github.com/jeranaias/backoffice-tui/internal/ui/components"
	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
	"github.com/jeranaias/backoffice-tui/internal/util"
)

// Screens other than Profile and Users have no content of their own in this
// console; they show what they are for.
var screenBlurbs = map[access.RouteID]string{
	access.RouteDashboard:    "Today's sales, open orders and shift totals.",
	access.RouteCustomers:    "Customer accounts and loyalty balances.",
	access.RoutePayment:      "Take payment for open orders.",
	access.RouteStock:        "Stock levels and adjustments.",
	access.RouteOrderList:    "Orders placed today.",
	access.RouteReceiptPrint: "Reprint the receipt of a completed order.",
	access.RouteReport:       "Sales and shift reports.",
	access.RouteSettings:     "Console settings. Pick Profile or Users below Setting.",
}

func screenView(t *styles.Theme, route access.RouteID, sess *session.Session, staff components.StaffTable) string {
	switch route {
	case access.RouteSettingsProfile:
		return profileView(t, sess)
	case access.RouteSettingsUsers:
		return t.Title.Render("Users") + "\n" +
			staff.View() + "\n" +
			t.Muted.Render("tab to focus the table, n to register staff, ctrl+r to reload")
	}
	lines := []string{t.Title.Render(route.Title())}
	if blurb, ok := screenBlurbs[route]; ok {
		lines = append(lines, t.Body.Render(blurb))
	}
	return strings.Join(lines, "\n\n")
}

func profileView(t *styles.Theme, sess *session.Session) string {
	if sess == nil {
		return t.Muted.Render("Not signed in.")
	}
	u := sess.User
	row := func(k, v string) string {
		return t.StatusKey.Render(util.PadWidth(k, 11)) + t.StatusValue.Render(v)
	}
	return strings.Join([]string{
		t.Title.Render("Profile"),
		"",
		row("Email", u.Email),
		row("Username", u.Username),
		row("Role", "") + styles.RenderRole(u.Role),
		row("Status", u.StatusLabel()),
		row("Signed in", sess.IssuedAt.Local().Format("2006-01-02 15:04")),
	}, "\n")
}
