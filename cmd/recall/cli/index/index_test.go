package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/cli/cmd/recall/cli/trailers"
)

// buildTestIndex builds the three-commit index from the query scenarios:
// aaa{scope:[auth/login], intent:fix-defect}, bbb{scope:[cache],
// intent:fix-defect, decidedAgainst:[Redis sentinel]},
// ccc{scope:[auth], intent:enable-capability}.
func buildTestIndex(t *testing.T) *TrailerIndex {
	t.Helper()

	ix := New("head123")
	commits := []*trailers.StructuredCommit{
		{Hash: "aaa", Date: "2026-03-03T10:00:00Z", Type: "fix", Subject: "tighten login flow",
			Intent: "fix-defect", Scope: []string{"auth/login"}},
		{Hash: "bbb", Date: "2026-03-02T10:00:00Z", Type: "fix", Subject: "evict stale cache entries",
			Intent: "fix-defect", Scope: []string{"cache"}, DecidedAgainst: []string{"Redis sentinel"}},
		{Hash: "ccc", Date: "2026-03-01T10:00:00Z", Type: "feat", Subject: "add auth tokens",
			Intent: "enable-capability", Scope: []string{"auth"}, Session: "2026-03-01/auth-work"},
	}
	for _, c := range commits {
		ix.Add(c)
	}
	return ix
}

func hashes(results []IndexedCommit) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Hash)
	}
	return out
}

func TestQueryScope(t *testing.T) {
	ix := buildTestIndex(t)
	got := ix.Query(QueryParams{Scope: "auth"})
	assert.Equal(t, []string{"aaa", "ccc"}, hashes(got))
}

func TestQueryDecidedAgainst(t *testing.T) {
	ix := buildTestIndex(t)
	got := ix.Query(QueryParams{DecidedAgainst: "Redis"})
	assert.Equal(t, []string{"bbb"}, hashes(got))

	// Word-boundary: "Red" is not a word in "Redis sentinel".
	got = ix.Query(QueryParams{DecidedAgainst: "Red"})
	assert.Empty(t, got)
}

func TestQueryIntentAndScope(t *testing.T) {
	ix := buildTestIndex(t)
	got := ix.Query(QueryParams{Intents: []string{"fix-defect"}, Scope: "cache"})
	assert.Equal(t, []string{"bbb"}, hashes(got))
}

func TestQuerySession(t *testing.T) {
	ix := buildTestIndex(t)
	got := ix.Query(QueryParams{Session: "2026-03-01/auth-work"})
	assert.Equal(t, []string{"ccc"}, hashes(got))
}

func TestQueryNoFiltersReturnsEmpty(t *testing.T) {
	ix := buildTestIndex(t)
	got := ix.Query(QueryParams{})
	assert.Empty(t, got)
}

func TestQueryLimit(t *testing.T) {
	ix := buildTestIndex(t)
	got := ix.Query(QueryParams{Intents: []string{"fix-defect"}, Limit: 1})
	assert.Equal(t, []string{"aaa"}, hashes(got))
}

// Every hash in any bucket must map to a key in Commits, and intent bucket
// membership must agree with the stored intent.
func TestIndexInvariants(t *testing.T) {
	ix := buildTestIndex(t)

	for intent, bucket := range ix.ByIntent {
		for _, h := range bucket {
			c, ok := ix.Commits[h]
			require.True(t, ok, "hash %s not in commits", h)
			assert.Equal(t, intent, c.Intent)
		}
	}
	for _, key := range ix.ByScope.Keys() {
		for _, h := range ix.ByScope.Get(key) {
			_, ok := ix.Commits[h]
			assert.True(t, ok, "hash %s not in commits", h)
		}
	}
	for _, h := range ix.WithDecidedAgainst {
		c, ok := ix.Commits[h]
		require.True(t, ok)
		assert.NotEmpty(t, c.DecidedAgainst)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trailer-index.json")

	ix := buildTestIndex(t)
	require.NoError(t, ix.Save(path))

	loaded, err := Load(path, "head123")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, ix.CommitCount, loaded.CommitCount)
	assert.Equal(t, ix.HeadCommit, loaded.HeadCommit)

	// Scope bucket insertion order survives persistence.
	assert.Equal(t, []string{"auth/login", "cache", "auth"}, loaded.ByScope.Keys())
	assert.Equal(t, []string{"aaa", "ccc"}, hashes(loaded.Query(QueryParams{Scope: "auth"})))
}

func TestLoadStaleReturnsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trailer-index.json")

	ix := buildTestIndex(t)
	require.NoError(t, ix.Save(path))

	loaded, err := Load(path, "otherhead")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadMissingReturnsAbsent(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "nope.json"), "head")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadUnknownVersionReturnsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trailer-index.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99}`), 0o600))

	loaded, err := Load(path, "head")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestBuildFromGitLog(t *testing.T) {
	logOut := strings.Join([]string{
		trailers.RecordSeparator,
		"Hash: aaa", "Date: 2026-03-03T10:00:00Z", "Subject: fix(auth): tighten login flow",
		"body", "",
		"Intent: fix-defect", "Scope: auth/login",
		trailers.RecordSeparator,
		"Hash: zzz", "Date: 2026-03-02T10:00:00Z", "Subject: not conventional at all",
		trailers.RecordSeparator,
		"Hash: bbb", "Date: 2026-03-01T10:00:00Z", "Subject: feat(cache): add cache",
		"body", "",
		"Intent: enable-capability", "Scope: cache",
	}, "\n") + "\n"

	run := func(_ context.Context, args ...string) (string, error) {
		if args[0] == "rev-parse" {
			return "head456\n", nil
		}
		return logOut, nil
	}

	ix, err := Build(context.Background(), run, 0)
	require.NoError(t, err)

	// The non-conventional record is discarded.
	assert.Equal(t, 2, ix.CommitCount)
	assert.Equal(t, "head456", ix.HeadCommit)
	assert.Equal(t, []string{"aaa"}, ix.ByIntent["fix-defect"])
	assert.Equal(t, []string{"bbb"}, ix.ByIntent["enable-capability"])
}

func TestFallbackQuery(t *testing.T) {
	logOut := strings.Join([]string{
		trailers.RecordSeparator,
		"Hash: aaa", "Date: 2026-03-03T10:00:00Z", "Subject: fix(auth): tighten login flow",
		"body", "",
		"Intent: fix-defect", "Scope: auth/login",
	}, "\n") + "\n"

	var grepArg string
	run := func(_ context.Context, args ...string) (string, error) {
		for _, a := range args {
			if strings.HasPrefix(a, "--grep=") {
				grepArg = a
			}
		}
		return logOut, nil
	}

	got, err := FallbackQuery(context.Background(), run, QueryParams{Scope: "auth"})
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa"}, hashes(got))
	assert.Contains(t, grepArg, "Scope: ")

	// Nothing to grep for means nothing to return.
	got, err = FallbackQuery(context.Background(), run, QueryParams{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBucketMapJSONOrder(t *testing.T) {
	m := NewBucketMap()
	m.Append("zeta/one", "a")
	m.Append("alpha/two", "b")
	m.Append("zeta/one", "c")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.True(t, strings.Index(string(data), "zeta/one") < strings.Index(string(data), "alpha/two"))

	var back BucketMap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"zeta/one", "alpha/two"}, back.Keys())
	assert.Equal(t, []string{"a", "c"}, back.Get("zeta/one"))
}
