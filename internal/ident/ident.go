// Package ident normalizes free-form identifiers into filesystem-safe tokens.
package ident

import "strings"

// SanitizeID maps every character outside [A-Za-z0-9_-] to '_'.
// It is pure and total but not injective: distinct ids can collapse to
// the same sanitized form.
func SanitizeID(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// SanitizeFilename is SanitizeID followed by lowercasing, used where a
// token also serves as a case-insensitive filename fragment.
func SanitizeFilename(raw string) string {
	return strings.ToLower(SanitizeID(raw))
}
