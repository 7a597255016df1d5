package session

import "strings"

// NormalizeLogin makes login matching insensitive to case and surrounding
// whitespace.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// NormalizePassword trims surrounding whitespace. Case is preserved.
func NormalizePassword(password string) string {
	return strings.TrimSpace(password)
}
