package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// sections fixes the summary section order and headings per tag.
var sections = []struct {
	tag     string
	heading string
}{
	{"decision", "Decisions"},
	{"finding", "Findings"},
	{"hypothesis", "Hypotheses"},
	{"context", "Context"},
	{"todo", "TODOs"},
}

// duplicateSimilarity is the text-similarity ratio above which two entries
// with the same tag count as duplicates during consolidation.
const duplicateSimilarity = 0.9

// TrailerHints are commit-trailer suggestions derived from a session's
// working memory.
type TrailerHints struct {
	Scopes         []string `json:"scopes"`
	DecidedAgainst []string `json:"decidedAgainst"`
}

// GroupByTag partitions entries by tag, preserving entry order within each
// group.
func GroupByTag(entries []Entry) map[string][]Entry {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		groups[e.Tag] = append(groups[e.Tag], e)
	}
	return groups
}

// CollectScopes unions the scopes of all entries, sorted.
func CollectScopes(entries []Entry) []string {
	seen := make(map[string]bool)
	var scopes []string
	for _, e := range entries {
		for _, s := range e.Scope {
			if !seen[s] {
				seen[s] = true
				scopes = append(scopes, s)
			}
		}
	}
	sort.Strings(scopes)
	return scopes
}

// DecisionsToTrailers turns every decision-tagged entry into a
// Decided-Against candidate and attaches the session's collected scopes.
func DecisionsToTrailers(entries []Entry) TrailerHints {
	hints := TrailerHints{Scopes: CollectScopes(entries)}
	for _, e := range entries {
		if e.Tag == "decision" {
			hints.DecidedAgainst = append(hints.DecidedAgainst, e.Text)
		}
	}
	return hints
}

// CollapseNearDuplicates drops entries whose text is nearly identical to an
// earlier kept entry with the same tag. Hooks tend to record the same
// observation more than once across turns; the summary should not.
func CollapseNearDuplicates(entries []Entry) []Entry {
	dmp := diffmatchpatch.New()
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		dup := false
		for _, k := range kept {
			if k.Tag == e.Tag && similarity(dmp, k.Text, e.Text) >= duplicateSimilarity {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, e)
		}
	}
	return kept
}

// similarity returns 1 - levenshtein/maxLen over the two texts.
func similarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	diffs := dmp.DiffMain(a, b, false)
	return 1 - float64(dmp.DiffLevenshtein(diffs))/float64(longest)
}

// FormatSessionSummary renders the working memory as a Markdown session
// summary: a header with session metadata, then one section per tag in fixed
// order, one bullet per entry. Near-duplicate entries are collapsed first.
func FormatSessionSummary(wm *WorkingMemory) string {
	entries := CollapseNearDuplicates(wm.Entries)
	groups := GroupByTag(entries)
	scopes := CollectScopes(entries)

	var b strings.Builder
	fmt.Fprintf(&b, "# Session Summary: %s\n\n", wm.SessionID)
	fmt.Fprintf(&b, "- Started: %s\n", wm.Created)
	fmt.Fprintf(&b, "- Ended: %s\n", wm.Updated)
	fmt.Fprintf(&b, "- Entries: %d\n", len(entries))
	if len(scopes) > 0 {
		fmt.Fprintf(&b, "- Scopes: %s\n", strings.Join(scopes, ", "))
	}

	for _, sec := range sections {
		group := groups[sec.tag]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", sec.heading)
		for _, e := range group {
			b.WriteString("- ")
			b.WriteString(e.Text)
			if len(e.Scope) > 0 {
				fmt.Fprintf(&b, " [scope: %s]", strings.Join(e.Scope, ", "))
			}
			if e.Source != "" {
				fmt.Fprintf(&b, " (source: %s)", e.Source)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// FormatTrailerHints renders the hints as ready-to-paste trailer lines: a
// Scope line when any scope was collected, then one Decided-Against line per
// rejection.
func FormatTrailerHints(h TrailerHints) string {
	var b strings.Builder
	if len(h.Scopes) > 0 {
		fmt.Fprintf(&b, "Scope: %s\n", strings.Join(h.Scopes, ", "))
	}
	for _, d := range h.DecidedAgainst {
		fmt.Fprintf(&b, "Decided-Against: %s\n", d)
	}
	return b.String()
}
