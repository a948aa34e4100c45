package rlm

import (
	"fmt"
	"strings"

	"github.com/recallhq/cli/cmd/recall/cli/trailers"
)

// scopeSampleLimit caps how many scope keys the system prompt shows.
const scopeSampleLimit = 20

// BuildSystemPrompt describes the sandbox API to the LLM: the bound names,
// the intent vocabulary, a sample of the stored scope keys, and the budget
// numbers. It deliberately carries shapes and counts only, never commit
// hashes or index contents.
func BuildSystemPrompt(env Env, cfg ReplConfig) string {
	commitCount := 0
	if env.Index != nil {
		commitCount = env.Index.CommitCount
	}
	memoryState := "no working memory for this session"
	if env.WorkingMemory != nil && len(env.WorkingMemory.Entries) > 0 {
		memoryState = fmt.Sprintf("working memory present (%d entries)", len(env.WorkingMemory.Entries))
	}

	sample := env.ScopeKeys
	if len(sample) > scopeSampleLimit {
		sample = sample[:scopeSampleLimit]
	}
	scopeLine := "(none indexed)"
	if len(sample) > 0 {
		scopeLine = strings.Join(sample, ", ")
	}

	var b strings.Builder
	b.WriteString("You are analyzing a project's commit history to find context relevant to a task.\n")
	b.WriteString("You write JavaScript fragments; each fragment runs in a sandbox with these bindings:\n\n")
	b.WriteString("- query({scope?, intents?, session?, decidedAgainst?, limit?}) -> [commit] — search the commit index\n")
	b.WriteString("- callLlm(messages) -> string — ask the LLM a sub-question (messages: [{role, content}])\n")
	b.WriteString("- gitLog(args) -> string — run a restricted git log (flags: --format, --author, --since, --until, --grep, --no-merges, -n)\n")
	b.WriteString("- done(answer) — finish with your answer string\n")
	b.WriteString("- console.log(...) — print intermediate output\n")
	b.WriteString("- index, workingMemory, scopeKeys — read-only data\n\n")
	fmt.Fprintf(&b, "Intents: %s\n", strings.Join(trailers.Intents, ", "))
	fmt.Fprintf(&b, "Scope keys (sample): %s\n", scopeLine)
	fmt.Fprintf(&b, "Indexed commits: %d; %s.\n\n", commitCount, memoryState)
	fmt.Fprintf(&b, "Budgets: %d iterations, %d LLM calls, %dms total.\n", cfg.MaxIterations, cfg.MaxLlmCalls, cfg.TimeoutBudgetMs)
	b.WriteString("Reply with one fenced ```js code block per turn, or plain text for a final answer.\n")
	b.WriteString("Variables persist between fragments. Call done(answer) as soon as you have enough context.")
	return b.String()
}
