package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is applied to a member's full name at signup.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail trims surrounding whitespace; identity services compare addresses case-insensitively.
func NormalizeEmail(s string) string {
	return strings.TrimSpace(s)
}
