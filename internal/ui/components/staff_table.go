// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
	"github.com/jeranaias/backoffice-tui/internal/util"
)

// =============================================================================
// STAFF TABLE
// =============================================================================

// roleCycle is the order the role filter steps through; "" is all roles.
var roleCycle = []string{"", string(access.RoleAdmin), string(access.RoleCashier), string(access.RoleUser)}

// StaffTable lists staff accounts with a search box and a role filter.
type StaffTable struct {
	theme  *styles.Theme
	table  table.Model
	search textinput.Model

	all       []identity.UserRecord
	filter    identity.Filter
	roleIdx   int
	searching bool
	loading   bool
	err       string
	width     int
	height    int
}

// NewStaffTable creates an empty table.
func NewStaffTable(theme *styles.Theme) StaffTable {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search email or username"
	search.CharLimit = 64

	st := StaffTable{theme: theme, search: search}
	st.table = table.New(table.WithColumns(st.columns(80)), table.WithFocused(true), table.WithHeight(10))
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(styles.Overlay).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(styles.TextInverse).Background(styles.Purple).Bold(false)
	st.table.SetStyles(s)
	return st
}

func (st StaffTable) columns(width int) []table.Column {
	email := width - 16 - 10 - 10 - 8
	if email < 20 {
		email = 20
	}
	return []table.Column{
		{Title: "Email", Width: email},
		{Title: "Username", Width: 16},
		{Title: "Role", Width: 10},
		{Title: "Status", Width: 10},
	}
}

// SetSize sets the table dimensions.
func (st *StaffTable) SetSize(width, height int) {
	st.width = width
	st.height = height
	st.table.SetColumns(st.columns(width))
	h := height - 4
	if h < 3 {
		h = 3
	}
	st.table.SetHeight(h)
}

// SetLoading shows a loading line until SetUsers or SetError.
func (st *StaffTable) SetLoading() {
	st.loading = true
	st.err = ""
}

// SetUsers replaces the directory contents.
func (st *StaffTable) SetUsers(users []identity.UserRecord) {
	st.loading = false
	st.err = ""
	st.all = append([]identity.UserRecord(nil), users...)
	identity.SortByEmail(st.all)
	st.refresh()
}

// SetError shows an inline error and keeps the last rows.
func (st *StaffTable) SetError(msg string) {
	st.loading = false
	st.err = msg
}

// Visible returns the rows that pass the filter.
func (st StaffTable) Visible() []identity.UserRecord {
	return st.filter.Apply(st.all)
}

// Searching reports whether the search box has focus.
func (st StaffTable) Searching() bool { return st.searching }

// RoleFilter returns the active role filter, "" for all.
func (st StaffTable) RoleFilter() string { return st.filter.Role }

func (st *StaffTable) refresh() {
	visible := st.Visible()
	rows := make([]table.Row, len(visible))
	for i, u := range visible {
		rows[i] = table.Row{u.Email, u.Username, u.Role, u.StatusLabel()}
	}
	st.table.SetRows(rows)
	if st.table.Cursor() >= len(rows) {
		st.table.SetCursor(0)
	}
}

// Update handles "/" search, "r" role cycling and table navigation.
func (st StaffTable) Update(msg tea.Msg) (StaffTable, tea.Cmd) {
	key, isKey := msg.(tea.KeyMsg)

	if st.searching {
		if isKey {
			switch key.String() {
			case "enter", "esc":
				st.searching = false
				st.search.Blur()
				if key.String() == "esc" {
					st.search.SetValue("")
				}
				st.filter.Search = st.search.Value()
				st.refresh()
				return st, nil
			}
		}
		var cmd tea.Cmd
		st.search, cmd = st.search.Update(msg)
		st.filter.Search = st.search.Value()
		st.refresh()
		return st, cmd
	}

	if isKey {
		switch key.String() {
		case "/":
			st.searching = true
			return st, st.search.Focus()
		case "r":
			st.roleIdx = (st.roleIdx + 1) % len(roleCycle)
			st.filter.Role = roleCycle[st.roleIdx]
			st.refresh()
			return st, nil
		}
	}

	var cmd tea.Cmd
	st.table, cmd = st.table.Update(msg)
	return st, cmd
}

// View renders the search line, the table and a summary.
func (st StaffTable) View() string {
	t := st.theme
	role := st.filter.Role
	if role == "" {
		role = "all"
	}
	header := t.Muted.Render(fmt.Sprintf("role: %s  (r to cycle, / to search)", role))
	if st.searching || st.search.Value() != "" {
		header = st.search.View() + "  " + header
	}

	body := st.table.View()
	switch {
	case st.loading:
		body = t.Muted.Render("Loading staff directory...")
	case len(st.all) > 0 && len(st.Visible()) == 0:
		body = t.Muted.Render("No staff match the current filter.")
	}

	footer := t.Muted.Render(fmt.Sprintf("%d of %d shown", len(st.Visible()), len(st.all)))
	if st.err != "" {
		footer = styles.RenderError(util.TruncateWidth(st.err, 70))
	}
	return header + "\n" + body + "\n" + footer
}
