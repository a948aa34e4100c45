package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMemory() *WorkingMemory {
	return &WorkingMemory{
		Version:   Version,
		SessionID: "2026-03-01/auth-work",
		Created:   "2026-03-01T09:00:00Z",
		Updated:   "2026-03-01T11:30:00Z",
		Entries: []Entry{
			{Tag: "finding", Text: "token refresh races the cache", Scope: []string{"auth"}},
			{Tag: "decision", Text: "Redis sentinel", Scope: []string{"cache"}},
			{Tag: "hypothesis", Text: "stale TTL on the session store"},
			{Tag: "decision", Text: "JWT blacklist"},
			{Tag: "todo", Text: "add integration test for refresh", Source: "review"},
		},
	}
}

func TestGroupByTag(t *testing.T) {
	groups := GroupByTag(sampleMemory().Entries)

	assert.Len(t, groups["decision"], 2)
	assert.Len(t, groups["finding"], 1)
	assert.Equal(t, "Redis sentinel", groups["decision"][0].Text)
	assert.Equal(t, "JWT blacklist", groups["decision"][1].Text)
}

func TestCollectScopes(t *testing.T) {
	scopes := CollectScopes(sampleMemory().Entries)
	assert.Equal(t, []string{"auth", "cache"}, scopes)
}

func TestDecisionsToTrailers(t *testing.T) {
	hints := DecisionsToTrailers(sampleMemory().Entries)

	assert.Equal(t, []string{"Redis sentinel", "JWT blacklist"}, hints.DecidedAgainst)
	assert.Equal(t, []string{"auth", "cache"}, hints.Scopes)
}

func TestCollapseNearDuplicates(t *testing.T) {
	entries := []Entry{
		{Tag: "finding", Text: "token refresh races the cache"},
		{Tag: "finding", Text: "token refresh races the cache."},
		{Tag: "finding", Text: "sessions expire after one hour"},
		// Same text under a different tag is not a duplicate.
		{Tag: "hypothesis", Text: "token refresh races the cache"},
	}

	kept := CollapseNearDuplicates(entries)
	require.Len(t, kept, 3)
	assert.Equal(t, "token refresh races the cache", kept[0].Text)
	assert.Equal(t, "sessions expire after one hour", kept[1].Text)
	assert.Equal(t, "hypothesis", kept[2].Tag)
}

func TestFormatSessionSummary(t *testing.T) {
	out := FormatSessionSummary(sampleMemory())

	assert.Contains(t, out, "# Session Summary: 2026-03-01/auth-work")
	assert.Contains(t, out, "- Entries: 5")
	assert.Contains(t, out, "- Scopes: auth, cache")
	assert.Contains(t, out, "- Redis sentinel [scope: cache]")
	assert.Contains(t, out, "- add integration test for refresh (source: review)")

	// Fixed section order.
	decisions := strings.Index(out, "## Decisions")
	findings := strings.Index(out, "## Findings")
	hypotheses := strings.Index(out, "## Hypotheses")
	todos := strings.Index(out, "## TODOs")
	require.True(t, decisions >= 0 && findings >= 0 && hypotheses >= 0 && todos >= 0)
	assert.True(t, decisions < findings && findings < hypotheses && hypotheses < todos)

	// No context entries, no Context section.
	assert.NotContains(t, out, "## Context")
}

func TestFormatTrailerHints(t *testing.T) {
	out := FormatTrailerHints(TrailerHints{
		Scopes:         []string{"auth", "cache"},
		DecidedAgainst: []string{"Redis sentinel", "JWT blacklist"},
	})

	assert.Equal(t, "Scope: auth, cache\nDecided-Against: Redis sentinel\nDecided-Against: JWT blacklist\n", out)
}

func TestFormatTrailerHintsEmpty(t *testing.T) {
	assert.Equal(t, "", FormatTrailerHints(TrailerHints{}))
}
