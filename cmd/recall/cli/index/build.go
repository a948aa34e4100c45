package index

import (
	"context"
	"time"

	"github.com/recallhq/cli/cmd/recall/cli/gitexec"
	"github.com/recallhq/cli/cmd/recall/cli/trailers"
)

// Build ingests up to limit commits from git log and produces a fresh index
// stamped with the current HEAD. Records that fail to parse (non-conventional
// subjects, missing fields) are discarded, not errors: history predating the
// commit format is expected.
func Build(ctx context.Context, run gitexec.Runner, limit int) (*TrailerIndex, error) {
	out, err := gitexec.LogRecords(ctx, run, limit)
	if err != nil {
		return nil, err
	}

	head, err := gitexec.Head(ctx, run)
	if err != nil {
		return nil, err
	}

	ix := New(head)
	for _, record := range trailers.SplitRecords(out) {
		commit, err := trailers.ParseRecord(record)
		if err != nil {
			continue
		}
		ix.Add(commit)
	}
	return ix, nil
}

// New returns an empty index stamped with head and the current time.
func New(head string) *TrailerIndex {
	return &TrailerIndex{
		Version:    Version,
		Generated:  time.Now().UTC().Format(time.RFC3339),
		HeadCommit: head,
		ByIntent:   make(map[string][]string),
		ByScope:    NewBucketMap(),
		BySession:  make(map[string][]string),
		Commits:    make(map[string]IndexedCommit),
	}
}

// Add inserts one parsed commit into every applicable bucket. Bucket order
// follows insertion order, which follows git log order (reverse
// chronological) during a build.
func (ix *TrailerIndex) Add(c *trailers.StructuredCommit) {
	if _, exists := ix.Commits[c.Hash]; exists {
		return
	}

	ix.Commits[c.Hash] = IndexedCommit{
		Hash:           c.Hash,
		Date:           c.Date,
		Subject:        c.Subject,
		Intent:         c.Intent,
		Scope:          c.Scope,
		Session:        c.Session,
		DecidedAgainst: c.DecidedAgainst,
	}
	ix.CommitCount++

	if c.Intent != "" {
		ix.ByIntent[c.Intent] = append(ix.ByIntent[c.Intent], c.Hash)
	}
	for _, s := range c.Scope {
		ix.ByScope.Append(s, c.Hash)
	}
	if c.Session != "" {
		ix.BySession[c.Session] = append(ix.BySession[c.Session], c.Hash)
	}
	if len(c.DecidedAgainst) > 0 {
		ix.WithDecidedAgainst = append(ix.WithDecidedAgainst, c.Hash)
	}
}
