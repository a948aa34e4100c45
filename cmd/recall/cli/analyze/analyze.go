// Package analyze extracts retrieval signals from a free-form user prompt.
//
// A prompt is tokenized and each token classified into one of three disjoint
// sets: scope hints (tokens matching a stored scope key), intent hints
// (tokens in the synonym table), and residual keywords. The hints drive the
// trailer index query that selects context for injection.
package analyze

import (
	"strings"

	"github.com/recallhq/cli/cmd/recall/cli/match"
)

// PromptSignals holds the classified tokens of one prompt.
type PromptSignals struct {
	ScopeHints  []string `json:"scopeHints"`
	IntentHints []string `json:"intentHints"`
	Keywords    []string `json:"keywords"`
}

// Empty reports whether no signal of any kind was found.
func (s PromptSignals) Empty() bool {
	return len(s.ScopeHints) == 0 && len(s.IntentHints) == 0 && len(s.Keywords) == 0
}

// ExtractPromptSignals tokenizes prompt and classifies each token against
// the stored scope keys and the intent synonym table. A token that matches a
// scope key or a synonym is consumed; leftovers that are not stop words
// become keywords. All three sets preserve first-seen order.
func ExtractPromptSignals(prompt string, scopeKeys []string) PromptSignals {
	signals := PromptSignals{
		ScopeHints:  []string{},
		IntentHints: []string{},
		Keywords:    []string{},
	}

	seenScope := make(map[string]bool)
	seenIntent := make(map[string]bool)
	seenKeyword := make(map[string]bool)

	for _, token := range tokenize(prompt) {
		consumed := false

		for _, key := range scopeKeys {
			if match.Scope(key, token) {
				if !seenScope[token] {
					seenScope[token] = true
					signals.ScopeHints = append(signals.ScopeHints, token)
				}
				consumed = true
				break
			}
		}

		if intent, ok := intentSynonyms[token]; ok {
			if !seenIntent[intent] {
				seenIntent[intent] = true
				signals.IntentHints = append(signals.IntentHints, intent)
			}
			consumed = true
		}

		if consumed || stopWords[token] {
			continue
		}
		if !seenKeyword[token] {
			seenKeyword[token] = true
			signals.Keywords = append(signals.Keywords, token)
		}
	}
	return signals
}

// tokenize lowercases the prompt, strips characters outside [a-z0-9/_-],
// splits on whitespace, and drops tokens of length 1 or less.
func tokenize(prompt string) []string {
	lowered := strings.ToLower(prompt)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '/', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	var tokens []string
	for _, t := range strings.Fields(b.String()) {
		if len(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
