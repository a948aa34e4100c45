// Package index builds, persists and queries the inverted trailer index.
//
// The index maps intent, scope, session and decided-against dimensions to
// commit hashes. Hierarchical scope keys are stored flat and verbatim;
// prefix semantics live entirely in the query layer.
package index

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/recallhq/cli/cmd/recall/cli/jsonutil"
)

// Version is the persisted index format version.
const Version = 1

// Index errors.
var (
	ErrIOFailed = errors.New("io-failed")
)

// IndexedCommit is the compact per-commit record stored in the index.
type IndexedCommit struct {
	Hash           string   `json:"hash"`
	Date           string   `json:"date"`
	Subject        string   `json:"subject"`
	Intent         string   `json:"intent,omitempty"`
	Scope          []string `json:"scope,omitempty"`
	Session        string   `json:"session,omitempty"`
	DecidedAgainst []string `json:"decidedAgainst,omitempty"`
}

// TrailerIndex is the persisted inverted index.
type TrailerIndex struct {
	Version            int                      `json:"version"`
	Generated          string                   `json:"generated"`
	HeadCommit         string                   `json:"headCommit"`
	CommitCount        int                      `json:"commitCount"`
	ByIntent           map[string][]string      `json:"byIntent"`
	ByScope            *BucketMap               `json:"byScope"`
	BySession          map[string][]string      `json:"bySession"`
	WithDecidedAgainst []string                 `json:"withDecidedAgainst"`
	Commits            map[string]IndexedCommit `json:"commits"`
}

// BucketMap is a string-to-hashes map that preserves key insertion order
// across JSON round-trips. Scope union results are ordered by the buckets'
// first appearance during the build, so the order must survive persistence.
type BucketMap struct {
	keys    []string
	buckets map[string][]string
}

// NewBucketMap returns an empty ordered bucket map.
func NewBucketMap() *BucketMap {
	return &BucketMap{buckets: make(map[string][]string)}
}

// Append adds a hash to the bucket for key, creating the bucket (and
// recording its position) on first use.
func (m *BucketMap) Append(key, hash string) {
	if _, ok := m.buckets[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.buckets[key] = append(m.buckets[key], hash)
}

// Keys returns the bucket keys in insertion order.
func (m *BucketMap) Keys() []string {
	return m.keys
}

// Get returns the hashes for key in insertion order.
func (m *BucketMap) Get(key string) []string {
	return m.buckets[key]
}

// Len returns the number of buckets.
func (m *BucketMap) Len() int {
	return len(m.keys)
}

// MarshalJSON emits the buckets as a JSON object in insertion order.
func (m *BucketMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(m.buckets[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving its key order.
func (m *BucketMap) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.buckets = make(map[string][]string)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("byScope: expected JSON object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("byScope: expected string key")
		}
		var hashes []string
		if err := dec.Decode(&hashes); err != nil {
			return err
		}
		m.keys = append(m.keys, key)
		m.buckets[key] = hashes
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Save persists the index as pretty-printed JSON at path.
func (ix *TrailerIndex) Save(path string) error {
	if err := jsonutil.WriteJSONFileAtomic(path, ix); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return nil
}

// Load reads a persisted index and checks it against the current HEAD.
// Returns (nil, nil) when the file is absent, has an unknown version, or is
// stale (headCommit differs from currentHead) — callers transparently fall
// back to live git log in those cases.
func Load(path, currentHead string) (*TrailerIndex, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from paths package or tests
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}

	var ix TrailerIndex
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("%w: parsing index: %v", ErrIOFailed, err)
	}
	if ix.Version != Version {
		return nil, nil
	}
	if currentHead != "" && ix.HeadCommit != currentHead {
		return nil, nil
	}
	if ix.ByScope == nil {
		ix.ByScope = NewBucketMap()
	}
	return &ix, nil
}

// ScopeKeys returns the stored scope keys in insertion order.
func (ix *TrailerIndex) ScopeKeys() []string {
	if ix.ByScope == nil {
		return nil
	}
	return ix.ByScope.Keys()
}
