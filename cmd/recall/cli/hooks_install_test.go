package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookCommand(t *testing.T) {
	assert.Equal(t, "recall hooks stop", hookCommand(false, "stop"))
	assert.Equal(t, "go run ${CLAUDE_PROJECT_DIR}/cmd/recall hooks stop", hookCommand(true, "stop"))
}

func TestIsRecallHookCommand(t *testing.T) {
	assert.True(t, isRecallHookCommand("recall hooks user-prompt-submit"))
	assert.True(t, isRecallHookCommand("go run ${CLAUDE_PROJECT_DIR}/cmd/recall hooks stop"))
	assert.False(t, isRecallHookCommand("some-other-tool hooks stop"))
	assert.False(t, isRecallHookCommand("echo recall hooks stop"))
}

func TestAddHookToMatcher(t *testing.T) {
	matchers := addHookToMatcher(nil, "Bash", "recall hooks post-tool-use")
	require.Len(t, matchers, 1)
	assert.Equal(t, "Bash", matchers[0].Matcher)
	require.Len(t, matchers[0].Hooks, 1)
	assert.Equal(t, "command", matchers[0].Hooks[0].Type)

	// Re-adding the same command is a no-op.
	matchers = addHookToMatcher(matchers, "Bash", "recall hooks post-tool-use")
	assert.Len(t, matchers[0].Hooks, 1)

	// A different command under the same matcher appends.
	matchers = addHookToMatcher(matchers, "Bash", "other-tool post")
	assert.Len(t, matchers[0].Hooks, 2)
}

func TestStripRecallEntries(t *testing.T) {
	matchers := []claudeHookMatcher{
		{Matcher: "Bash", Hooks: []claudeHookEntry{
			{Type: "command", Command: "recall hooks post-tool-use"},
			{Type: "command", Command: "other-tool post"},
		}},
		{Hooks: []claudeHookEntry{
			{Type: "command", Command: "recall hooks stop"},
		}},
	}

	kept := stripRecallEntries(matchers)
	require.Len(t, kept, 1)
	assert.Equal(t, "Bash", kept[0].Matcher)
	require.Len(t, kept[0].Hooks, 1)
	assert.Equal(t, "other-tool post", kept[0].Hooks[0].Command)
}

func TestInstallHooksRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, InstallHooks(false, false))
	assert.True(t, AreHooksInstalled())

	data, err := os.ReadFile(filepath.Join(".claude", "settings.json"))
	require.NoError(t, err)
	var hooks struct {
		Hooks claudeHooks `json:"hooks"`
	}
	require.NoError(t, json.Unmarshal(data, &hooks))
	require.Len(t, hooks.Hooks.PostToolUse, 1)
	assert.Equal(t, "Bash", hooks.Hooks.PostToolUse[0].Matcher)
	require.Len(t, hooks.Hooks.UserPromptSubmit, 1)
	require.Len(t, hooks.Hooks.Stop, 1)

	// Installing twice does not duplicate entries.
	require.NoError(t, InstallHooks(false, false))
	data, err = os.ReadFile(filepath.Join(".claude", "settings.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &hooks))
	assert.Len(t, hooks.Hooks.UserPromptSubmit[0].Hooks, 1)

	require.NoError(t, UninstallHooks())
	assert.False(t, AreHooksInstalled())
}

func TestInstallHooksPreservesUnknownKeys(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, os.MkdirAll(".claude", 0o750))
	seed := `{"permissions":{"allow":["Bash(ls:*)"]},"model":"opus"}`
	require.NoError(t, os.WriteFile(filepath.Join(".claude", "settings.json"), []byte(seed), 0o600))

	require.NoError(t, InstallHooks(false, false))

	data, err := os.ReadFile(filepath.Join(".claude", "settings.json"))
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "permissions")
	assert.Contains(t, raw, "model")
	assert.Contains(t, raw, "hooks")
}

func TestInstallHooksForceReplacesStaleEntries(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, InstallHooks(true, false))
	require.NoError(t, InstallHooks(false, true))

	data, err := os.ReadFile(filepath.Join(".claude", "settings.json"))
	require.NoError(t, err)
	var hooks struct {
		Hooks claudeHooks `json:"hooks"`
	}
	require.NoError(t, json.Unmarshal(data, &hooks))
	require.Len(t, hooks.Hooks.Stop, 1)
	require.Len(t, hooks.Hooks.Stop[0].Hooks, 1)
	assert.Equal(t, "recall hooks stop", hooks.Hooks.Stop[0].Hooks[0].Command)
}
