package memory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "working-memory.json")
}

func TestAddEntryCreatesFile(t *testing.T) {
	path := memPath(t)

	wm, err := AddEntry(path, "2026-03-01/auth-work", Entry{
		Tag: "finding", Scope: []string{"auth"}, Text: "token refresh races the cache",
	})
	require.NoError(t, err)
	require.Len(t, wm.Entries, 1)
	assert.Equal(t, "2026-03-01/auth-work", wm.SessionID)
	assert.NotEmpty(t, wm.Entries[0].Timestamp)
	assert.NotEmpty(t, wm.Created)
	assert.Equal(t, wm.Updated, wm.Entries[0].Timestamp)
}

func TestAddEntryAppendsInOrder(t *testing.T) {
	path := memPath(t)
	session := "2026-03-01/auth-work"

	texts := []string{"first", "second", "third"}
	for _, txt := range texts {
		_, err := AddEntry(path, session, Entry{Tag: "finding", Text: txt})
		require.NoError(t, err)
	}

	wm, err := Load(path, session)
	require.NoError(t, err)
	require.NotNil(t, wm)
	require.Len(t, wm.Entries, 3)
	for i, txt := range texts {
		assert.Equal(t, txt, wm.Entries[i].Text)
	}
}

func TestAddEntryRejectsUnknownTag(t *testing.T) {
	_, err := AddEntry(memPath(t), "s", Entry{Tag: "idea", Text: "x"})
	require.ErrorIs(t, err, ErrInvalidTag)
}

func TestLoadSessionMismatchIsAbsent(t *testing.T) {
	path := memPath(t)
	_, err := AddEntry(path, "2026-03-01/old-session", Entry{Tag: "finding", Text: "stale"})
	require.NoError(t, err)

	wm, err := Load(path, "2026-03-02/new-session")
	require.NoError(t, err)
	assert.Nil(t, wm)
}

func TestLoadMissingIsAbsent(t *testing.T) {
	wm, err := Load(memPath(t), "s")
	require.NoError(t, err)
	assert.Nil(t, wm)
}

func TestClear(t *testing.T) {
	path := memPath(t)
	_, err := AddEntry(path, "s", Entry{Tag: "todo", Text: "x"})
	require.NoError(t, err)

	require.NoError(t, Clear(path))

	wm, err := Load(path, "s")
	require.NoError(t, err)
	assert.Nil(t, wm)

	// Clearing again is still success.
	require.NoError(t, Clear(path))
}

func TestFormatBlock(t *testing.T) {
	wm := &WorkingMemory{
		Version:   Version,
		SessionID: "2026-03-01/auth-work",
		Entries: []Entry{
			{Tag: "finding", Text: "token refresh races the cache", Scope: []string{"auth"}},
			{Tag: "decision", Text: "JWT blacklist", Source: "discussion"},
		},
	}

	block := wm.FormatBlock(0)
	assert.Contains(t, block, `<working-memory session="2026-03-01/auth-work" entries="2">`)
	assert.Contains(t, block, "[finding] token refresh races the cache [scope: auth]")
	assert.Contains(t, block, "[decision] JWT blacklist (source: discussion)")
	assert.True(t, len(block) > 0 && block[len(block)-1] == '>')
}

func TestFormatBlockLimitsEntries(t *testing.T) {
	wm := &WorkingMemory{Version: Version, SessionID: "s"}
	for i := 0; i < 25; i++ {
		wm.Entries = append(wm.Entries, Entry{Tag: "finding", Text: string(rune('a' + i))})
	}

	block := wm.FormatBlock(0)
	assert.Contains(t, block, `entries="25"`)
	assert.NotContains(t, block, "[finding] a\n")
	assert.Contains(t, block, "[finding] f\n")
}
