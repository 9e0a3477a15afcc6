// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Filter narrows a staff directory listing.
type Filter struct {
	// Search matches a substring of email or username, ignoring case and
	// Unicode normalisation differences.
	Search string
	// Role keeps only this role; empty or "all" keeps every role.
	Role string
}

// fold normalises s for case-insensitive comparison. A Caser keeps state,
// so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// Match reports whether u passes the filter.
func (f Filter) Match(u UserRecord) bool {
	if role := strings.ToLower(strings.TrimSpace(f.Role)); role != "" && role != "all" && u.Role != role {
		return false
	}
	q := fold(f.Search)
	if q == "" {
		return true
	}
	return strings.Contains(fold(u.Email), q) || strings.Contains(fold(u.Username), q)
}

// Apply returns the users matching f, preserving order.
func (f Filter) Apply(users []UserRecord) []UserRecord {
	out := make([]UserRecord, 0, len(users))
	for _, u := range users {
		if f.Match(u) {
			out = append(out, u)
		}
	}
	return out
}

// SortByEmail sorts users by folded email in place.
func SortByEmail(users []UserRecord) {
	sort.SliceStable(users, func(i, j int) bool {
		return fold(users[i].Email) < fold(users[j].Email)
	})
}
