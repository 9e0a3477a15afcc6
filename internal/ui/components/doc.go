// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable pieces of the backoffice console.

# Components

Form (form.go) - Labelled text inputs with focus cycling; used for login and
staff registration.
Sidebar (sidebar.go) - Role-filtered navigation menu built from the access
policy.
StatusBar (statusbar.go) - Bottom bar with user, role, route and time left.
StaffTable (staff_table.go) - Staff directory with search and role filter.
ExpiryOverlay (expiry_overlay.go) - Countdown warning before the session's
hard expiry and the notice shown once it has expired.

All components take a *styles.Theme:

	theme := styles.NewTheme(styles.Options{})
	bar := components.NewStatusBar(theme)
	bar.SetWidth(80)
	view := bar.View()
*/
package components
