package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Claude Code hook wiring. The agent reads .claude/settings.json and runs
// matching hook commands at lifecycle events; we register the recall binary
// for the three events the memory layer cares about.

const claudeSettingsFile = ".claude/settings.json"

type claudeHookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

type claudeHookMatcher struct {
	Matcher string            `json:"matcher,omitempty"`
	Hooks   []claudeHookEntry `json:"hooks"`
}

type claudeHooks struct {
	UserPromptSubmit []claudeHookMatcher `json:"UserPromptSubmit,omitempty"`
	PostToolUse      []claudeHookMatcher `json:"PostToolUse,omitempty"`
	Stop             []claudeHookMatcher `json:"Stop,omitempty"`
}

// recallHookPrefixes identifies our entries in a settings file regardless of
// how they were installed (released binary vs local-dev go run).
var recallHookPrefixes = []string{
	"recall hooks ",
	"go run ${CLAUDE_PROJECT_DIR}/cmd/recall hooks ",
}

func hookCommand(localDev bool, event string) string {
	if localDev {
		return "go run ${CLAUDE_PROJECT_DIR}/cmd/recall hooks " + event
	}
	return "recall hooks " + event
}

// InstallHooks registers the three lifecycle hooks in .claude/settings.json,
// preserving every unrelated key in the file. With force, existing recall
// entries are replaced rather than left alone.
func InstallHooks(localDev, force bool) error {
	raw, err := readClaudeSettings()
	if err != nil {
		return err
	}

	var hooks claudeHooks
	if existing, ok := raw["hooks"]; ok {
		if err := json.Unmarshal(existing, &hooks); err != nil {
			return fmt.Errorf("parsing hooks in %s: %w", claudeSettingsFile, err)
		}
	}

	if force {
		removeRecallHooks(&hooks)
	}

	hooks.UserPromptSubmit = addHookToMatcher(hooks.UserPromptSubmit, "", hookCommand(localDev, "user-prompt-submit"))
	hooks.PostToolUse = addHookToMatcher(hooks.PostToolUse, "Bash", hookCommand(localDev, "post-tool-use"))
	hooks.Stop = addHookToMatcher(hooks.Stop, "", hookCommand(localDev, "stop"))

	encoded, err := json.Marshal(hooks)
	if err != nil {
		return fmt.Errorf("encoding hooks: %w", err)
	}
	raw["hooks"] = encoded

	return writeClaudeSettings(raw)
}

// UninstallHooks removes recall entries and leaves everything else untouched.
func UninstallHooks() error {
	raw, err := readClaudeSettings()
	if err != nil {
		return err
	}
	existing, ok := raw["hooks"]
	if !ok {
		return nil
	}

	var hooks claudeHooks
	if err := json.Unmarshal(existing, &hooks); err != nil {
		return fmt.Errorf("parsing hooks in %s: %w", claudeSettingsFile, err)
	}
	removeRecallHooks(&hooks)

	encoded, err := json.Marshal(hooks)
	if err != nil {
		return fmt.Errorf("encoding hooks: %w", err)
	}
	raw["hooks"] = encoded
	return writeClaudeSettings(raw)
}

// AreHooksInstalled reports whether all three events carry a recall command.
func AreHooksInstalled() bool {
	raw, err := readClaudeSettings()
	if err != nil {
		return false
	}
	existing, ok := raw["hooks"]
	if !ok {
		return false
	}
	var hooks claudeHooks
	if err := json.Unmarshal(existing, &hooks); err != nil {
		return false
	}
	return hasRecallHook(hooks.UserPromptSubmit) &&
		hasRecallHook(hooks.PostToolUse) &&
		hasRecallHook(hooks.Stop)
}

func readClaudeSettings() (map[string]json.RawMessage, error) {
	raw := map[string]json.RawMessage{}
	data, err := os.ReadFile(claudeSettingsFile)
	if os.IsNotExist(err) {
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", claudeSettingsFile, err)
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", claudeSettingsFile, err)
	}
	return raw, nil
}

func writeClaudeSettings(raw map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", claudeSettingsFile, err)
	}
	if err := os.MkdirAll(filepath.Dir(claudeSettingsFile), 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(claudeSettingsFile), err)
	}
	if err := os.WriteFile(claudeSettingsFile, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", claudeSettingsFile, err)
	}
	return nil
}

// addHookToMatcher appends command under the matcher, creating the matcher
// block if needed. Existing recall entries for the matcher are left in place.
func addHookToMatcher(matchers []claudeHookMatcher, matcher, command string) []claudeHookMatcher {
	for i := range matchers {
		if matchers[i].Matcher != matcher {
			continue
		}
		if hookCommandExists(matchers[i].Hooks, command) {
			return matchers
		}
		matchers[i].Hooks = append(matchers[i].Hooks, claudeHookEntry{Type: "command", Command: command})
		return matchers
	}
	return append(matchers, claudeHookMatcher{
		Matcher: matcher,
		Hooks:   []claudeHookEntry{{Type: "command", Command: command}},
	})
}

func hookCommandExists(entries []claudeHookEntry, command string) bool {
	for _, e := range entries {
		if e.Command == command {
			return true
		}
	}
	return false
}

func isRecallHookCommand(command string) bool {
	for _, prefix := range recallHookPrefixes {
		if strings.HasPrefix(command, prefix) {
			return true
		}
	}
	return false
}

func hasRecallHook(matchers []claudeHookMatcher) bool {
	for _, m := range matchers {
		for _, e := range m.Hooks {
			if isRecallHookCommand(e.Command) {
				return true
			}
		}
	}
	return false
}

func removeRecallHooks(hooks *claudeHooks) {
	hooks.UserPromptSubmit = stripRecallEntries(hooks.UserPromptSubmit)
	hooks.PostToolUse = stripRecallEntries(hooks.PostToolUse)
	hooks.Stop = stripRecallEntries(hooks.Stop)
}

func stripRecallEntries(matchers []claudeHookMatcher) []claudeHookMatcher {
	var kept []claudeHookMatcher
	for _, m := range matchers {
		var entries []claudeHookEntry
		for _, e := range m.Hooks {
			if !isRecallHookCommand(e.Command) {
				entries = append(entries, e)
			}
		}
		if len(entries) > 0 {
			m.Hooks = entries
			kept = append(kept, m)
		}
	}
	return kept
}
