package utils

import (
	"regexp"
	"strings"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)
	tagRegex      = regexp.MustCompile(`<[^>]*>`)
)

// StripHTML removes all HTML tags from a string
func StripHTML(input string) string {
	return tagRegex.ReplaceAllString(input, "")
}

// ValidateUsername allows 3-30 letters, digits, underscores and hyphens.
func ValidateUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// NormalizeEmail lowercases and trims an email address before lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
