package trailers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxHeaderLength is the maximum commit header length.
const MaxHeaderLength = 72

// MaxScopeEntries is the number of Scope entries above which a warning is
// emitted.
const MaxScopeEntries = 3

// bodyOptionalTypes are commit types that do not warrant a body.
var bodyOptionalTypes = map[string]bool{"chore": true, "ci": true, "build": true}

// Validate applies the commit-format rules to a raw commit message and
// returns diagnostics. It never fails; an unparseable message simply yields
// error-severity diagnostics.
func Validate(message string) []Diagnostic {
	var diags []Diagnostic

	lines := strings.Split(strings.TrimRight(message, "\n"), "\n")
	header := ""
	if len(lines) > 0 {
		header = lines[0]
	}

	if len(header) > MaxHeaderLength {
		diags = append(diags, Diagnostic{SeverityError, "header-max-length",
			fmt.Sprintf("header is %d chars (max %d)", len(header), MaxHeaderLength)})
	}

	m := subjectRegex.FindStringSubmatch(header)
	if m == nil {
		diags = append(diags, Diagnostic{SeverityError, "non-conventional-subject",
			"header must match type(scope)!: subject with a known type"})
	} else {
		subject := m[5]
		if strings.HasSuffix(subject, ".") {
			diags = append(diags, Diagnostic{SeverityWarning, "subject-trailing-period",
				"subject should not end with a period"})
		}
		if first := firstWord(subject); first != "" {
			lower := strings.ToLower(first)
			if strings.HasSuffix(lower, "ed") || strings.HasSuffix(lower, "ing") {
				diags = append(diags, Diagnostic{SeverityWarning, "subject-imperative-mood",
					fmt.Sprintf("subject should use imperative mood (%q looks past/continuous tense)", first)})
			}
		}
	}

	body, found := SplitBodyTrailers(strings.Join(lines[1:], "\n"))

	if strings.TrimSpace(body) == "" {
		commitType := ""
		if m != nil {
			commitType = m[1]
		}
		if !bodyOptionalTypes[commitType] {
			diags = append(diags, Diagnostic{SeverityWarning, "body-required",
				"commit should have a body explaining the change"})
		}
	}

	diags = append(diags, validateTrailers(found)...)
	return diags
}

func validateTrailers(found []Trailer) []Diagnostic {
	var diags []Diagnostic

	var intents, scopes []string
	session := ""
	sessionSeen := false
	for _, t := range found {
		switch t.Key {
		case "intent":
			intents = append(intents, t.Value)
		case "scope":
			scopes = append(scopes, splitList(t.Value)...)
		case "session":
			if !sessionSeen {
				session = t.Value
				sessionSeen = true
			}
		case "context":
			var js map[string]any
			if err := json.Unmarshal([]byte(t.Value), &js); err != nil {
				diags = append(diags, Diagnostic{SeverityError, "context-json",
					"Context trailer is not a parseable JSON object"})
			}
		}
	}

	switch {
	case len(intents) == 0:
		diags = append(diags, Diagnostic{SeverityError, "intent-required",
			"exactly one Intent trailer is required"})
	case len(intents) > 1:
		diags = append(diags, Diagnostic{SeverityError, "intent-duplicate",
			fmt.Sprintf("found %d Intent trailers, want exactly one", len(intents))})
	case !ValidIntent(intents[0]):
		diags = append(diags, Diagnostic{SeverityError, "intent-invalid",
			fmt.Sprintf("intent %q is not in the vocabulary (%s)", intents[0], strings.Join(Intents, ", "))})
	}

	if len(scopes) == 0 {
		diags = append(diags, Diagnostic{SeverityError, "scope-required",
			"at least one Scope trailer is required"})
	} else {
		if len(scopes) > MaxScopeEntries {
			diags = append(diags, Diagnostic{SeverityWarning, "scope-max-entries",
				fmt.Sprintf("%d scope entries (max %d recommended)", len(scopes), MaxScopeEntries)})
		}
		for _, s := range scopes {
			if !strings.Contains(s, "/") {
				diags = append(diags, Diagnostic{SeverityWarning, "scope-format",
					fmt.Sprintf("scope %q should use domain/module form", s)})
			}
		}
	}

	if sessionSeen && !sessionSlugPattern.MatchString(session) {
		diags = append(diags, Diagnostic{SeverityWarning, "session-format",
			fmt.Sprintf("session %q should match YYYY-MM-DD/slug", session)})
	}

	return diags
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// HasErrors reports whether any diagnostic is error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
