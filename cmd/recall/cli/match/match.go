// Package match provides the two matching primitives shared by the trailer
// index and the prompt analyzer. This package has no dependencies to avoid
// import cycles.
package match

import (
	"regexp"
	"strings"
)

// Scope reports whether a stored hierarchical scope key matches a query
// pattern. Matching is case-insensitive and hierarchical: pattern "auth"
// matches keys "auth", "auth/login" and "auth/login/flow" but not "authn".
// Prefix semantics live entirely here; stored keys are never pre-expanded.
func Scope(storedKey, pattern string) bool {
	k := strings.ToLower(storedKey)
	p := strings.ToLower(pattern)
	return k == p || strings.HasPrefix(k, p+"/")
}

// WordBoundary reports whether keyword appears in text as a whole word.
// The keyword is regexp-escaped, so it is always treated literally.
func WordBoundary(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
