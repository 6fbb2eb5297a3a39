package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for first/last name and session name normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeUsername trims whitespace and lower-cases the login identity so lookups
// and uniqueness checks are case-insensitive.
func NormalizeUsername(s string) Username {
	return Username(strings.ToLower(strings.TrimSpace(s)))
}
