// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colour palette and lipgloss styles for the
// backoffice console.
//
// Colours are lipgloss.AdaptiveColor values so they follow the terminal's
// light or dark background. Every status also carries an ASCII indicator
// ([OK], [X], [!], [i]) so meaning never depends on colour alone.
//
// Usage:
//
//	theme := styles.NewTheme(styles.Options{NoColor: cfg.UI.NoColor})
//	fmt.Println(theme.Title.Render("Dashboard"))
//	fmt.Println(styles.RenderRole("cashier"))
package styles
