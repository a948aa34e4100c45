package index

import (
	"context"
	"regexp"
	"strings"

	"github.com/recallhq/cli/cmd/recall/cli/gitexec"
	"github.com/recallhq/cli/cmd/recall/cli/match"
	"github.com/recallhq/cli/cmd/recall/cli/trailers"
)

// DefaultQueryLimit caps results when no limit is given.
const DefaultQueryLimit = 20

// QueryParams selects commits along the indexed dimensions. A zero field
// means "unconstrained"; a query with no constraints returns nothing (the
// API asks "which commits match these dimensions", not "give me all").
type QueryParams struct {
	Scope          string   `json:"scope,omitempty"`
	Intents        []string `json:"intents,omitempty"`
	Session        string   `json:"session,omitempty"`
	DecidedAgainst string   `json:"decidedAgainst,omitempty"`
	Limit          int      `json:"limit,omitempty"`
}

// Empty reports whether no filter is set.
func (p QueryParams) Empty() bool {
	return p.Scope == "" && len(p.Intents) == 0 && p.Session == "" && p.DecidedAgainst == ""
}

// Query intersects the candidate set with each present filter and returns
// the matching commits in bucket-insertion order, truncated to the limit.
func (ix *TrailerIndex) Query(p QueryParams) []IndexedCommit {
	var candidates []string
	constrained := false

	if len(p.Intents) > 0 {
		var matched []string
		for _, intent := range p.Intents {
			matched = append(matched, ix.ByIntent[intent]...)
		}
		candidates = intersect(candidates, constrained, matched)
		constrained = true
	}

	if p.Session != "" {
		candidates = intersect(candidates, constrained, ix.BySession[p.Session])
		constrained = true
	}

	if p.DecidedAgainst != "" {
		var matched []string
		for _, h := range ix.WithDecidedAgainst {
			for _, rejection := range ix.Commits[h].DecidedAgainst {
				if match.WordBoundary(rejection, p.DecidedAgainst) {
					matched = append(matched, h)
					break
				}
			}
		}
		candidates = intersect(candidates, constrained, matched)
		constrained = true
	}

	if p.Scope != "" {
		var matched []string
		for _, key := range ix.ByScope.Keys() {
			if match.Scope(key, p.Scope) {
				matched = append(matched, ix.ByScope.Get(key)...)
			}
		}
		candidates = intersect(candidates, constrained, matched)
		constrained = true
	}

	if !constrained {
		return []IndexedCommit{}
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	results := make([]IndexedCommit, 0, min(len(candidates), limit))
	seen := make(map[string]bool, len(candidates))
	for _, h := range candidates {
		if seen[h] {
			continue
		}
		seen[h] = true
		if c, ok := ix.Commits[h]; ok {
			results = append(results, c)
			if len(results) >= limit {
				break
			}
		}
	}
	return results
}

// intersect narrows the running candidate set. An unconstrained (nil) set
// adopts the matched hashes; otherwise candidate order is preserved and
// non-matching hashes drop out.
func intersect(candidates []string, constrained bool, matched []string) []string {
	if !constrained {
		return matched
	}
	matchedSet := make(map[string]bool, len(matched))
	for _, h := range matched {
		matchedSet[h] = true
	}
	kept := make([]string, 0, len(candidates))
	for _, h := range candidates {
		if matchedSet[h] {
			kept = append(kept, h)
		}
	}
	return kept
}

// FallbackQuery answers a query straight from git log --grep when no fresh
// persisted index exists. It greps for the most selective present filter,
// builds an ephemeral index from the matching records, and runs the same
// intersection.
func FallbackQuery(ctx context.Context, run gitexec.Runner, p QueryParams) ([]IndexedCommit, error) {
	pattern := grepPattern(p)
	if pattern == "" {
		return []IndexedCommit{}, nil
	}

	out, err := gitexec.GrepRecords(ctx, run, pattern, gitexec.DefaultLogLimit)
	if err != nil {
		return nil, err
	}

	ix := New("")
	for _, record := range trailers.SplitRecords(out) {
		if c, err := trailers.ParseRecord(record); err == nil {
			ix.Add(c)
		}
	}
	return ix.Query(p), nil
}

// grepPattern builds a basic-regex --grep pattern from the most selective
// filter present: scope first, then decided-against, then intent.
func grepPattern(p QueryParams) string {
	switch {
	case p.Scope != "":
		return `^Scope: .*` + regexp.QuoteMeta(p.Scope)
	case p.DecidedAgainst != "":
		return `^Decided-Against: .*` + regexp.QuoteMeta(p.DecidedAgainst)
	case len(p.Intents) > 0:
		return `^Intent: ` + regexp.QuoteMeta(strings.TrimSpace(p.Intents[0]))
	case p.Session != "":
		return `^Session: ` + regexp.QuoteMeta(p.Session)
	}
	return ""
}
