// Package memory persists the session-scoped working memory and consolidates
// it into a session summary at session end.
//
// Working memory is a small append-only log of tagged observations written by
// hooks and CLI commands during one agent session. It lives as a single JSON
// file under <git-dir>/info and is replaced whole on every write.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/recallhq/cli/cmd/recall/cli/jsonutil"
	"github.com/recallhq/cli/redact"
)

// Version is the persisted working-memory format version.
const Version = 1

// DefaultFormatLimit is how many trailing entries the context block renders.
const DefaultFormatLimit = 20

// Working-memory errors.
var (
	ErrInvalidTag = errors.New("invalid-tag")
	ErrIOFailed   = errors.New("io-failed")
)

// Tags is the closed set of entry tags.
var Tags = []string{"finding", "hypothesis", "decision", "context", "todo"}

// ValidTag reports whether tag is one of the known entry tags.
func ValidTag(tag string) bool {
	for _, t := range Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Entry is one tagged observation.
type Entry struct {
	Timestamp string   `json:"timestamp"`
	Tag       string   `json:"tag"`
	Scope     []string `json:"scope,omitempty"`
	Text      string   `json:"text"`
	Source    string   `json:"source,omitempty"`
}

// WorkingMemory is the persisted per-session log.
type WorkingMemory struct {
	Version   int     `json:"version"`
	SessionID string  `json:"sessionId"`
	Created   string  `json:"created"`
	Updated   string  `json:"updated"`
	Entries   []Entry `json:"entries"`
}

// Load reads the working-memory file and checks it belongs to sessionID.
// Returns (nil, nil) when the file is absent, has an unknown version, or was
// written by a different session — a stale file from a prior session must
// not leak into the current one.
func Load(path, sessionID string) (*WorkingMemory, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from paths package or tests
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}

	var wm WorkingMemory
	if err := json.Unmarshal(data, &wm); err != nil {
		return nil, fmt.Errorf("%w: parsing working memory: %v", ErrIOFailed, err)
	}
	if wm.Version != Version {
		return nil, nil
	}
	if sessionID != "" && wm.SessionID != sessionID {
		return nil, nil
	}
	return &wm, nil
}

// AddEntry appends one entry, stamping the current instant and scrubbing the
// text for secrets before it touches disk. Creates the file on first write.
// The entry's Timestamp field is ignored.
func AddEntry(path, sessionID string, e Entry) (*WorkingMemory, error) {
	if !ValidTag(e.Tag) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTag, e.Tag)
	}

	wm, err := Load(path, sessionID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if wm == nil {
		wm = &WorkingMemory{
			Version:   Version,
			SessionID: sessionID,
			Created:   now,
			Entries:   []Entry{},
		}
	}

	e.Timestamp = now
	e.Text = redact.String(e.Text)
	e.Source = redact.String(e.Source)
	wm.Entries = append(wm.Entries, e)
	wm.Updated = now

	if err := jsonutil.WriteJSONFileAtomic(path, wm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return wm, nil
}

// Clear removes the working-memory file. A missing file is success.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return nil
}

// FormatBlock renders the last n entries (default 20) as a tagged plain-text
// block for injection into the agent's context.
func (wm *WorkingMemory) FormatBlock(n int) string {
	if n <= 0 {
		n = DefaultFormatLimit
	}
	entries := wm.Entries
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<working-memory session=%q entries=%q>\n", wm.SessionID, fmt.Sprint(len(wm.Entries)))
	for _, e := range entries {
		b.WriteString(formatEntryLine(e))
		b.WriteByte('\n')
	}
	b.WriteString("</working-memory>")
	return b.String()
}

// formatEntryLine renders one entry as "[tag] text [scope: …] (source: …)".
func formatEntryLine(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Tag, e.Text)
	if len(e.Scope) > 0 {
		fmt.Fprintf(&b, " [scope: %s]", strings.Join(e.Scope, ", "))
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " (source: %s)", e.Source)
	}
	return b.String()
}
