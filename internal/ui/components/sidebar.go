// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
	"github.com/jeranaias/backoffice-tui/internal/util"
)

// sidebarRow is one rendered line. Group headers have no route.
type sidebarRow struct {
	title   string
	route   access.RouteID
	child   bool
	allowed bool
}

// Sidebar is the navigation menu for the signed-in role.
type Sidebar struct {
	theme   *styles.Theme
	rows    []sidebarRow
	cursor  int
	current access.RouteID
	width   int
	height  int
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) Sidebar {
	return Sidebar{theme: theme}
}

// SetMenu replaces the entries. The cursor moves to the first route.
func (s *Sidebar) SetMenu(items []access.MenuItem) {
	s.rows = s.rows[:0]
	for _, it := range items {
		s.rows = append(s.rows, sidebarRow{title: it.Title, route: it.Route, allowed: it.Route != ""})
		for _, c := range it.Children {
			s.rows = append(s.rows, sidebarRow{title: c.Title, route: c.Route, child: true, allowed: c.Allowed})
		}
	}
	s.cursor = s.next(-1, 1)
}

// SetSize sets the sidebar dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// SetCurrent marks the rendered route and moves the cursor onto it.
func (s *Sidebar) SetCurrent(route access.RouteID) {
	s.current = route
	for i, r := range s.rows {
		if r.route == route {
			s.cursor = i
			return
		}
	}
}

// MoveUp moves to the previous route.
func (s *Sidebar) MoveUp() {
	if i := s.next(s.cursor, -1); i >= 0 {
		s.cursor = i
	}
}

// MoveDown moves to the next route.
func (s *Sidebar) MoveDown() {
	if i := s.next(s.cursor, 1); i >= 0 {
		s.cursor = i
	}
}

// Selected returns the route under the cursor.
func (s Sidebar) Selected() (access.RouteID, bool) {
	if s.cursor < 0 || s.cursor >= len(s.rows) {
		return "", false
	}
	return s.rows[s.cursor].route, true
}

// Len returns the number of navigable entries.
func (s Sidebar) Len() int {
	n := 0
	for _, r := range s.rows {
		if r.route != "" {
			n++
		}
	}
	return n
}

// next finds the next row with a route from i in direction dir, or -1.
func (s Sidebar) next(i, dir int) int {
	for j := i + dir; j >= 0 && j < len(s.rows); j += dir {
		if s.rows[j].route != "" {
			return j
		}
	}
	return -1
}

// View renders the sidebar. Children whose route the role cannot open are
// marked with a lock so the redirect is not a surprise.
func (s Sidebar) View() string {
	t := s.theme
	width := s.width
	if width <= 0 {
		width = 22
	}
	inner := width - 3

	var lines []string
	for i, r := range s.rows {
		label := r.title
		if r.child {
			label = "  " + label
		}
		if r.child && !r.allowed {
			label += " (locked)"
		}
		label = util.PadWidth(util.TruncateWidth(label, inner), inner)

		switch {
		case i == s.cursor:
			lines = append(lines, t.SidebarSelected.Render(label))
		case r.route != "" && r.route == s.current:
			lines = append(lines, t.SidebarCurrent.Render(label))
		case r.route == "":
			lines = append(lines, t.SidebarGroup.Render(label))
		default:
			lines = append(lines, t.SidebarItem.Render(label))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, t.Muted.Render("(sign in)"))
	}

	style := t.Sidebar.Width(width)
	if s.height > 0 {
		style = style.Height(s.height)
	}
	return style.Render(strings.Join(lines, "\n"))
}
