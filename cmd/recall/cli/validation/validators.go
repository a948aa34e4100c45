// Package validation provides input validation functions for the Recall CLI.
// This package has no dependencies to avoid import cycles.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// pathSafeRegex matches alphanumeric characters, underscores, and hyphens only.
// Used to validate IDs that will be used in file paths.
var pathSafeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// sessionSlugRegex matches the YYYY-MM-DD/slug form used in Session trailers.
var sessionSlugRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}/.+$`)

// ValidateSessionID validates that a session ID doesn't contain path separators.
// This prevents path traversal attacks when session IDs are used in file paths.
func ValidateSessionID(id string) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("invalid session ID %q: contains path separators", id)
	}
	return nil
}

// IsSessionSlug reports whether s matches the YYYY-MM-DD/slug trailer format.
func IsSessionSlug(s string) bool {
	return sessionSlugRegex.MatchString(s)
}

// SafeFileComponent reduces an arbitrary ID to a string safe for use as a
// single path component. Every character outside [a-zA-Z0-9_-] becomes a dash.
func SafeFileComponent(id string) string {
	if pathSafeRegex.MatchString(id) {
		return id
	}
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
