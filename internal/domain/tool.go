package domain

import (
	"regexp"
	"strings"
)

// ProtectedTool is an external tool reachable only by entitled users.
type ProtectedTool struct {
	Slug string
	Name string
	URL  string
}

var slugPattern = regexp.MustCompile(`[^a-z0-9-]`)

// SanitizeSlug strips everything outside [a-z0-9-] from a lower-cased slug.
func SanitizeSlug(raw string) string {
	return slugPattern.ReplaceAllString(strings.ToLower(raw), "")
}
