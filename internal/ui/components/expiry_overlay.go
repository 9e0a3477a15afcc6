// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
	"github.com/jeranaias/backoffice-tui/internal/util"
)

// =============================================================================
// EXPIRY OVERLAY
// =============================================================================

// ExpiryOverlay warns that the session is about to hit its hard lifetime and
// then tells the user it has ended. The lifetime is absolute, so the overlay
// can only be dismissed, never used to extend the session.
type ExpiryOverlay struct {
	theme *styles.Theme

	visible       bool
	expired       bool
	timeRemaining time.Duration
	lifetime      time.Duration

	width  int
	height int
}

// NewExpiryOverlay creates a hidden overlay. lifetime is only used in the
// expired message.
func NewExpiryOverlay(theme *styles.Theme, lifetime time.Duration) ExpiryOverlay {
	return ExpiryOverlay{theme: theme, lifetime: lifetime}
}

// SetSize sets the overlay dimensions.
func (o *ExpiryOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// ShowWarning displays the countdown.
func (o *ExpiryOverlay) ShowWarning(remaining time.Duration) {
	o.visible = true
	o.expired = false
	o.timeRemaining = remaining
}

// ShowExpired displays the expired notice.
func (o *ExpiryOverlay) ShowExpired() {
	o.visible = true
	o.expired = true
	o.timeRemaining = 0
}

// UpdateTime updates the countdown.
func (o *ExpiryOverlay) UpdateTime(remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	o.timeRemaining = remaining
}

// Hide hides the overlay.
func (o *ExpiryOverlay) Hide() {
	o.visible = false
	o.expired = false
}

// IsVisible returns whether the overlay is shown.
func (o ExpiryOverlay) IsVisible() bool { return o.visible }

// IsExpired returns whether the expired notice is shown.
func (o ExpiryOverlay) IsExpired() bool { return o.expired }

// TimeRemaining returns the countdown value.
func (o ExpiryOverlay) TimeRemaining() time.Duration { return o.timeRemaining }

// ExpiryDismissedMsg is sent when the user dismisses the overlay.
type ExpiryDismissedMsg struct {
	Expired bool
}

// Update handles messages for the overlay. Any key dismisses it.
func (o ExpiryOverlay) Update(msg tea.Msg) (ExpiryOverlay, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		o.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if o.visible {
			expired := o.expired
			o.Hide()
			return o, func() tea.Msg { return ExpiryDismissedMsg{Expired: expired} }
		}
	}
	return o, nil
}

// View renders the overlay, or "" when hidden.
func (o ExpiryOverlay) View() string {
	if !o.visible {
		return ""
	}
	if o.expired {
		return o.render(styles.Rose,
			styles.StatusIndicators.Error+" Session Expired",
			"Your session reached its "+util.FormatDuration(o.lifetime)+" limit. Sign in again to continue.",
			"Press any key to return to the login screen")
	}
	return o.render(styles.Amber,
		styles.StatusIndicators.Warning+" Session Ending",
		"You will be signed out in "+util.FormatRemaining(o.timeRemaining),
		"Save your work. Press any key to dismiss")
}

func (o ExpiryOverlay) render(color lipgloss.AdaptiveColor, title, message, hint string) string {
	width := o.width
	if width == 0 {
		width = 60
	}
	height := o.height
	if height == 0 {
		height = 24
	}
	maxWidth := width - 8
	if maxWidth < 40 {
		maxWidth = 40
	}
	if maxWidth > 60 {
		maxWidth = 60
	}

	parts := []string{
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(title),
		"",
		lipgloss.NewStyle().Foreground(styles.TextPrimary).Width(maxWidth - 8).Align(lipgloss.Center).Render(message),
		"",
		lipgloss.NewStyle().Foreground(styles.TextSecondary).Italic(true).Render(hint),
	}
	content := lipgloss.JoinVertical(lipgloss.Center, parts...)

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Padding(1, 3).
		Width(maxWidth).
		Align(lipgloss.Center).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim))
}
