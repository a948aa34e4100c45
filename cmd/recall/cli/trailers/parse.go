package trailers

import (
	"fmt"
	"strings"
)

// RecordSeparator delimits commit records in the git log batch format.
const RecordSeparator = "---commit---"

// LogFormat is the --format value that produces the batch record format.
const LogFormat = RecordSeparator + "%nHash: %H%nDate: %aI%nSubject: %s%n%b"

// SplitRecords splits raw git log output into individual commit records.
// Empty records (e.g. from leading separators) are dropped.
func SplitRecords(logOutput string) []string {
	parts := strings.Split(logOutput, RecordSeparator)
	records := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			records = append(records, strings.TrimPrefix(p, "\n"))
		}
	}
	return records
}

// ParseRecord parses one commit record into a StructuredCommit.
// A record has the form:
//
//	Hash: <hash>
//	Date: <iso-8601>
//	Subject: <conventional header>
//	<body and trailers>
//
// Returns ErrMissingRequiredFields when Hash, Date, or Subject are absent and
// ErrNonConventionalSubject when the header does not match the type regex.
func ParseRecord(record string) (*StructuredCommit, error) {
	lines := strings.Split(record, "\n")

	var hash, date, subject string
	rest := 0
	for i, line := range lines {
		if v, ok := strings.CutPrefix(line, "Hash: "); ok && hash == "" {
			hash = strings.TrimSpace(v)
			rest = i + 1
			continue
		}
		if v, ok := strings.CutPrefix(line, "Date: "); ok && date == "" {
			date = strings.TrimSpace(v)
			rest = i + 1
			continue
		}
		if v, ok := strings.CutPrefix(line, "Subject: "); ok && subject == "" {
			subject = strings.TrimSpace(v)
			rest = i + 1
		}
		break
	}

	if hash == "" || date == "" || subject == "" {
		return nil, fmt.Errorf("%w: record needs Hash, Date and Subject", ErrMissingRequiredFields)
	}

	m := subjectRegex.FindStringSubmatch(subject)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrNonConventionalSubject, subject)
	}

	body, rawTrailers := SplitBodyTrailers(strings.Join(lines[rest:], "\n"))
	body = strings.Trim(body, "\n")

	commit := &StructuredCommit{
		Hash:        hash,
		Date:        date,
		Type:        m[1],
		HeaderScope: m[3],
		Subject:     m[5],
		Body:        body,
	}
	applyTrailers(commit, rawTrailers)
	return commit, nil
}

// SplitBodyTrailers separates a commit message tail into body text and its
// trailer block. The trailer block is the last contiguous run of lines whose
// lowercased key is in the known-keys allow-list, scanning backwards. A
// single blank line inside the block is tolerated only when the lines above
// it are also recognized trailers (structured trailers, blank, then
// Co-Authored-By is the common case). Any other line terminates detection.
func SplitBodyTrailers(message string) (body string, found []Trailer) {
	lines := strings.Split(message, "\n")

	// Drop trailing blank lines before scanning.
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if end == 0 {
		return "", nil
	}

	start := end // first line of the trailer block
	i := end - 1
	for i >= 0 {
		line := lines[i]
		if _, _, ok := recognizeTrailer(line); ok {
			start = i
			i--
			continue
		}
		if strings.TrimSpace(line) == "" {
			// A single blank is allowed only when the line above continues
			// the trailer block.
			if i > 0 {
				if _, _, ok := recognizeTrailer(lines[i-1]); ok {
					i--
					continue
				}
			}
		}
		break
	}

	if start == end {
		return strings.TrimRight(message, "\n"), nil
	}

	for _, line := range lines[start:end] {
		if key, value, ok := recognizeTrailer(line); ok {
			found = append(found, Trailer{Key: key, Value: value})
		}
	}

	body = strings.Join(lines[:start], "\n")
	body = strings.TrimRight(body, " \n")
	return body, found
}

// recognizeTrailer returns the canonical (lowercased) key and value when line
// is a trailer whose key is in the allow-list.
func recognizeTrailer(line string) (key, value string, ok bool) {
	m := trailerLineRegex.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	lower := strings.ToLower(m[1])
	if !knownTrailerKeys[lower] {
		return "", "", false
	}
	return lower, strings.TrimSpace(m[2]), true
}

// applyTrailers performs typed extraction of the recognized trailers onto a
// StructuredCommit. Repeated Scope/Refs/Decided-Against trailers accumulate;
// Intent is kept only when it is in the controlled vocabulary.
func applyTrailers(c *StructuredCommit, raw []Trailer) {
	for _, t := range raw {
		switch t.Key {
		case "intent":
			if c.Intent == "" && ValidIntent(t.Value) {
				c.Intent = t.Value
			}
		case "scope":
			c.Scope = append(c.Scope, splitList(t.Value)...)
		case "refs":
			c.Refs = append(c.Refs, splitList(t.Value)...)
		case "decided-against":
			if t.Value != "" {
				c.DecidedAgainst = append(c.DecidedAgainst, t.Value)
			}
		case "session":
			if c.Session == "" {
				c.Session = t.Value
			}
		case "context":
			if c.Context == nil {
				c.Context = parseContext(t.Value)
			}
		case "breaking":
			if c.Breaking == "" {
				c.Breaking = t.Value
			}
		}
	}
}

// splitList splits a comma-separated trailer value, trimming whitespace and
// dropping empty entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Serialize renders a StructuredCommit back into the batch record format.
// Used by tests and debugging; parse(Serialize(c)) round-trips typed fields.
func (c *StructuredCommit) Serialize() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hash: %s\n", c.Hash)
	fmt.Fprintf(&b, "Date: %s\n", c.Date)
	b.WriteString("Subject: ")
	b.WriteString(c.Type)
	if c.HeaderScope != "" {
		fmt.Fprintf(&b, "(%s)", c.HeaderScope)
	}
	fmt.Fprintf(&b, ": %s\n", c.Subject)
	if c.Body != "" {
		b.WriteString(c.Body)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if c.Intent != "" {
		fmt.Fprintf(&b, "%s: %s\n", IntentTrailerKey, c.Intent)
	}
	if len(c.Scope) > 0 {
		fmt.Fprintf(&b, "%s: %s\n", ScopeTrailerKey, strings.Join(c.Scope, ", "))
	}
	for _, d := range c.DecidedAgainst {
		fmt.Fprintf(&b, "%s: %s\n", DecidedAgainstTrailerKey, d)
	}
	if c.Session != "" {
		fmt.Fprintf(&b, "%s: %s\n", SessionTrailerKey, c.Session)
	}
	if len(c.Refs) > 0 {
		fmt.Fprintf(&b, "%s: %s\n", RefsTrailerKey, strings.Join(c.Refs, ", "))
	}
	if c.Breaking != "" {
		fmt.Fprintf(&b, "%s: %s\n", BreakingTrailerKey, c.Breaking)
	}
	return b.String()
}
