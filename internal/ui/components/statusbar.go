// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
	"github.com/jeranaias/backoffice-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar is the bottom bar of the console.
type StatusBar struct {
	theme *styles.Theme
	width int

	user      string
	role      string
	route     string
	remaining time.Duration
	warnAt    time.Duration
	message   string
	shortcuts string
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) StatusBar {
	return StatusBar{theme: theme, warnAt: 2 * time.Minute}
}

// SetWidth sets the bar width.
func (s *StatusBar) SetWidth(w int) { s.width = w }

// SetSession sets the signed-in user; an empty email means signed out.
func (s *StatusBar) SetSession(email, role string, remaining time.Duration) {
	s.user = email
	s.role = role
	s.remaining = remaining
}

// SetRoute sets the title of the current screen.
func (s *StatusBar) SetRoute(title string) { s.route = title }

// SetWarnAt sets the remaining time below which the countdown turns amber.
func (s *StatusBar) SetWarnAt(d time.Duration) { s.warnAt = d }

// SetMessage sets a transient message; "" clears it.
func (s *StatusBar) SetMessage(msg string) { s.message = msg }

// SetShortcuts sets the right-aligned key hints.
func (s *StatusBar) SetShortcuts(hints string) { s.shortcuts = hints }

// View renders the bar.
func (s StatusBar) View() string {
	t := s.theme
	var left []string
	if s.user == "" {
		left = append(left, t.StatusKey.Render("signed out"))
	} else {
		left = append(left, styles.RenderRole(s.role), t.StatusValue.Render(s.user))
		left = append(left, t.StatusKey.Render("ends in ")+s.countdown())
	}
	if s.route != "" {
		left = append(left, t.StatusKey.Render("@ ")+t.StatusValue.Render(s.route))
	}
	if s.message != "" {
		left = append(left, t.InfoStyle.Render(s.message))
	}
	leftStr := strings.Join(left, "  ")

	right := t.StatusKey.Render(s.shortcuts)
	width := s.width
	if width <= 0 {
		return t.StatusBar.Render(leftStr + "  " + right)
	}

	inner := width - 2
	gap := inner - lipgloss.Width(leftStr) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = inner - lipgloss.Width(leftStr)
		if gap < 0 {
			gap = 0
		}
	}
	return t.StatusBar.Width(width).MaxWidth(width).Render(leftStr + strings.Repeat(" ", gap) + right)
}

func (s StatusBar) countdown() string {
	text := util.FormatRemaining(s.remaining)
	if s.remaining <= s.warnAt {
		return s.theme.StatusWarning.Render(text)
	}
	return s.theme.StatusValue.Render(text)
}
