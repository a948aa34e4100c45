// Package trailers provides parsing and validation for Recall commit message
// trailers. Trailers are key-value metadata appended to git commit messages
// following the git trailer convention (key: value lines after a blank line).
package trailers

import (
	"encoding/json"
	"errors"
	"regexp"
)

// Trailer keys recognized in commit messages. Keys are matched
// case-insensitively; values preserve case.
const (
	IntentTrailerKey         = "Intent"
	ScopeTrailerKey          = "Scope"
	DecidedAgainstTrailerKey = "Decided-Against"
	SessionTrailerKey        = "Session"
	RefsTrailerKey           = "Refs"
	ContextTrailerKey        = "Context"
	BreakingTrailerKey       = "Breaking"
)

// knownTrailerKeys is the allow-list that gates trailer detection. A line is
// only treated as a trailer when its lowercased key is in this set; shape
// alone is never enough (a body line like "WEBHOOK_URL: https://..." must
// stay in the body).
var knownTrailerKeys = map[string]bool{
	"intent":          true,
	"scope":           true,
	"decided-against": true,
	"session":         true,
	"refs":            true,
	"context":         true,
	"breaking":        true,
	"signed-off-by":   true,
	"co-authored-by":  true,
}

// Intents is the controlled vocabulary of strategic commit motivations.
var Intents = []string{
	"enable-capability",
	"fix-defect",
	"improve-quality",
	"restructure",
	"configure-infra",
	"document",
	"explore",
	"resolve-blocker",
}

// ValidIntent reports whether s is in the controlled intent vocabulary.
func ValidIntent(s string) bool {
	for _, i := range Intents {
		if s == i {
			return true
		}
	}
	return false
}

// CommitTypes is the closed set of conventional-commit types.
var CommitTypes = []string{
	"feat", "fix", "refactor", "perf", "docs", "test", "build", "ci", "chore", "revert",
}

// subjectRegex matches a conventional-commit header:
// type(scope)!: subject. The type set is closed.
var subjectRegex = regexp.MustCompile(
	`^(feat|fix|refactor|perf|docs|test|build|ci|chore|revert)(\(([^)]+)\))?(!)?:\s+(.+)$`)

// trailerLineRegex matches the shape of a trailer line. The known-keys
// allow-list is applied on top of this.
var trailerLineRegex = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9-]*):\s*(.*)$`)

// sessionSlugPattern matches the YYYY-MM-DD/slug form of Session trailers.
var sessionSlugPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}/.+$`)

// Parser errors.
var (
	ErrMissingRequiredFields  = errors.New("missing-required-fields")
	ErrNonConventionalSubject = errors.New("non-conventional-subject")
)

// StructuredCommit is the parsed form of one commit.
type StructuredCommit struct {
	Hash        string `json:"hash"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	HeaderScope string `json:"headerScope,omitempty"`
	Subject     string `json:"subject"`
	Body        string `json:"body,omitempty"`

	Intent         string           `json:"intent,omitempty"`
	Scope          []string         `json:"scope,omitempty"`
	DecidedAgainst []string         `json:"decidedAgainst,omitempty"`
	Session        string           `json:"session,omitempty"`
	Refs           []string         `json:"refs,omitempty"`
	Context        map[string]any   `json:"context,omitempty"`
	Breaking       string           `json:"breaking,omitempty"`
}

// Severity classifies a validation diagnostic.
type Severity string

// Diagnostic severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one validation finding for a commit message.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
}

// Trailer is a raw key-value trailer line in original order.
type Trailer struct {
	Key   string
	Value string
}

// parseContext parses a Context trailer value into a map, or nil when the
// value is not a JSON object.
func parseContext(value string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		return nil
	}
	return m
}
