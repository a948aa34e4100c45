package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPromptSignals(t *testing.T) {
	keys := []string{"auth", "auth/login", "cache"}

	got := ExtractPromptSignals("fix the AUTH login bug", keys)

	assert.Contains(t, got.ScopeHints, "auth")
	assert.Equal(t, []string{"fix-defect"}, got.IntentHints)
	assert.Equal(t, []string{"login"}, got.Keywords)
}

func TestExtractPromptSignalsScopeToken(t *testing.T) {
	// A token naming a parent of a stored key counts as a scope hint, a
	// token naming only a child segment does not.
	keys := []string{"api/webhooks"}

	got := ExtractPromptSignals("update the api webhooks handler", keys)

	assert.Equal(t, []string{"api"}, got.ScopeHints)
	assert.Contains(t, got.Keywords, "webhooks")
	assert.Contains(t, got.Keywords, "handler")
}

func TestExtractPromptSignalsMultipleIntents(t *testing.T) {
	got := ExtractPromptSignals("refactor and document the parser", nil)

	assert.Equal(t, []string{"restructure", "document"}, got.IntentHints)
	assert.Equal(t, []string{"parser"}, got.Keywords)
}

func TestExtractPromptSignalsDedupe(t *testing.T) {
	got := ExtractPromptSignals("fix the bug, fix the login bug", []string{"auth"})

	assert.Equal(t, []string{"fix-defect"}, got.IntentHints)
	assert.Equal(t, []string{"login"}, got.Keywords)
}

func TestExtractPromptSignalsEmptyInput(t *testing.T) {
	for _, prompt := range []string{"", "   ", "\t\n"} {
		got := ExtractPromptSignals(prompt, []string{"auth"})
		assert.Empty(t, got.ScopeHints)
		assert.Empty(t, got.IntentHints)
		assert.Empty(t, got.Keywords)
		assert.True(t, got.Empty())
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Fix AUTH/login (it's broken!) v2")

	assert.Equal(t, []string{"fix", "auth/login", "it", "broken", "v2"}, got)
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	got := tokenize("a b cd")

	assert.Equal(t, []string{"cd"}, got)
}
