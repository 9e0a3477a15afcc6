// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# Back Office Console

Sessions last **one hour** from sign in. The timer is not extended by
activity; a warning appears shortly before the end.

## Keys

| Key | Action |
| --- | --- |
| up / down | move in the menu |
| enter | open the selected screen |
| tab | switch between menu and content |
| n | register a staff member (Users screen) |
| / | search staff (Users screen) |
| r | cycle the role filter (Users screen) |
| ctrl+r | reload the staff directory |
| ctrl+o | log out |
| ? | toggle this help |
| q, ctrl+c | quit |

## Access

* **Dashboard** and **Report** are for admins and cashiers.
* **Users** and **Profile** under Setting are for admins.
* Opening a screen your role cannot use sends you to the nearest one it can.
`

// renderHelp renders the help page for the given width. Rendering failures
// fall back to the raw markdown.
func renderHelp(width int, color bool) string {
	style := "notty"
	if color {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(helpWrap(width)),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return strings.TrimRight(out, "\n")
}

const (
	defaultHelpWrap = 76
	minHelpWrap     = 20
)

// helpWrap is the word-wrap column for a terminal width columns wide; 0
// means the width is not known yet.
func helpWrap(width int) int {
	if width <= 0 {
		return defaultHelpWrap
	}
	if w := width - 4; w > minHelpWrap {
		return w
	}
	return minHelpWrap
}
