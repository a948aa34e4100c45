package trailers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordTypedFields(t *testing.T) {
	record := `Hash: abc123
Date: 2026-01-15T10:30:00+01:00
Subject: feat(auth): add login throttling

Slow down brute-force attempts.

Intent: enable-capability
Scope: auth/login, auth/session
Decided-Against: Per-IP bans
Session: 2026-01-15/login-hardening
Refs: #42, #51
Context: {"attempts": 5}
`
	c, err := ParseRecord(record)
	require.NoError(t, err)

	assert.Equal(t, "abc123", c.Hash)
	assert.Equal(t, "2026-01-15T10:30:00+01:00", c.Date)
	assert.Equal(t, "feat", c.Type)
	assert.Equal(t, "auth", c.HeaderScope)
	assert.Equal(t, "add login throttling", c.Subject)
	assert.Equal(t, "Slow down brute-force attempts.", c.Body)
	assert.Equal(t, "enable-capability", c.Intent)
	assert.Equal(t, []string{"auth/login", "auth/session"}, c.Scope)
	assert.Equal(t, []string{"Per-IP bans"}, c.DecidedAgainst)
	assert.Equal(t, "2026-01-15/login-hardening", c.Session)
	assert.Equal(t, []string{"#42", "#51"}, c.Refs)
	assert.Equal(t, map[string]any{"attempts": float64(5)}, c.Context)
}

// A body line shaped like a trailer but with an unknown key must stay in the
// body. This is the WEBHOOK_URL collision from the trailer convention.
func TestParseRecordBodyURLNotATrailer(t *testing.T) {
	record := `Hash: def456
Date: 2026-02-01T09:00:00Z
Subject: feat(api): deliver webhooks

Configure via WEBHOOK_URL: https://example.com

Intent: enable-capability
Scope: api/webhooks
`
	c, err := ParseRecord(record)
	require.NoError(t, err)

	assert.Contains(t, c.Body, "Configure via WEBHOOK_URL: https://example.com")
	assert.Equal(t, "enable-capability", c.Intent)
	assert.Equal(t, []string{"api/webhooks"}, c.Scope)
}

func TestParseRecordBlankLineBeforeCoAuthoredBy(t *testing.T) {
	record := `Hash: aaa111
Date: 2026-02-01T09:00:00Z
Subject: fix(cache): evict stale entries

The TTL check compared seconds to millis.

Intent: fix-defect
Scope: cache

Co-Authored-By: Pat Doe <pat@example.com>
`
	c, err := ParseRecord(record)
	require.NoError(t, err)

	assert.Equal(t, "The TTL check compared seconds to millis.", c.Body)
	assert.Equal(t, "fix-defect", c.Intent)
	assert.Equal(t, []string{"cache"}, c.Scope)
}

func TestParseRecordInvalidIntentDropped(t *testing.T) {
	record := `Hash: bbb222
Date: 2026-02-01T09:00:00Z
Subject: chore: tidy

Intent: make-it-nice
Scope: build/ci
`
	c, err := ParseRecord(record)
	require.NoError(t, err)
	assert.Empty(t, c.Intent)
	assert.Equal(t, []string{"build/ci"}, c.Scope)
}

func TestParseRecordContextInvalidJSONIsNil(t *testing.T) {
	record := `Hash: ccc333
Date: 2026-02-01T09:00:00Z
Subject: fix: handle nil

Intent: fix-defect
Scope: core/runtime
Context: {not json}
`
	c, err := ParseRecord(record)
	require.NoError(t, err)
	assert.Nil(t, c.Context)
}

func TestParseRecordMissingFields(t *testing.T) {
	_, err := ParseRecord("Hash: abc\nSubject: feat: x\n")
	assert.ErrorIs(t, err, ErrMissingRequiredFields)
}

func TestParseRecordNonConventionalSubject(t *testing.T) {
	record := "Hash: abc\nDate: 2026-01-01T00:00:00Z\nSubject: update stuff\n"
	_, err := ParseRecord(record)
	assert.ErrorIs(t, err, ErrNonConventionalSubject)
}

func TestSplitRecords(t *testing.T) {
	out := RecordSeparator + "\nHash: a\nDate: d\nSubject: fix: one\n" +
		RecordSeparator + "\nHash: b\nDate: d\nSubject: fix: two\n"
	records := SplitRecords(out)
	require.Len(t, records, 2)
	assert.Contains(t, records[0], "Hash: a")
	assert.Contains(t, records[1], "Hash: b")
}

func TestSerializeRoundTrip(t *testing.T) {
	orig := &StructuredCommit{
		Hash:           "abc123",
		Date:           "2026-01-15T10:30:00Z",
		Type:           "fix",
		HeaderScope:    "cache",
		Subject:        "evict stale entries",
		Body:           "The TTL check compared seconds to millis.",
		Intent:         "fix-defect",
		Scope:          []string{"cache", "core/ttl"},
		DecidedAgainst: []string{"Redis sentinel"},
		Session:        "2026-01-15/cache-fix",
		Refs:           []string{"#9"},
	}

	parsed, err := ParseRecord(orig.Serialize())
	require.NoError(t, err)

	assert.Equal(t, orig.Hash, parsed.Hash)
	assert.Equal(t, orig.Date, parsed.Date)
	assert.Equal(t, orig.Type, parsed.Type)
	assert.Equal(t, orig.HeaderScope, parsed.HeaderScope)
	assert.Equal(t, orig.Subject, parsed.Subject)
	assert.Equal(t, orig.Body, parsed.Body)
	assert.Equal(t, orig.Intent, parsed.Intent)
	assert.Equal(t, orig.Scope, parsed.Scope)
	assert.Equal(t, orig.DecidedAgainst, parsed.DecidedAgainst)
	assert.Equal(t, orig.Session, parsed.Session)
	assert.Equal(t, orig.Refs, parsed.Refs)
}

func TestSplitBodyTrailersTerminatesOnBodyLine(t *testing.T) {
	// Trailers followed by more prose are not a trailer block.
	body, found := SplitBodyTrailers("Intent: fix-defect\nand then some more prose")
	assert.Empty(t, found)
	assert.Contains(t, body, "Intent: fix-defect")
}
