package rlm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ReplConfig bounds one REPL run.
type ReplConfig struct {
	MaxIterations   int
	MaxLlmCalls     int
	TimeoutBudgetMs int
	MaxOutputTokens int
}

// ReplConfigFrom extracts the REPL budgets from the persisted config.
func ReplConfigFrom(cfg Config) ReplConfig {
	return ReplConfig{
		MaxIterations:   cfg.ReplMaxIterations,
		MaxLlmCalls:     cfg.ReplMaxLlmCalls,
		TimeoutBudgetMs: cfg.ReplTimeoutBudgetMs,
		MaxOutputTokens: cfg.ReplMaxOutputTokens,
	}
}

// TraceEntry records one REPL iteration for debugging and tests.
type TraceEntry struct {
	Iteration int    `json:"iteration"`
	Code      string `json:"codeGenerated"`
	Result    string `json:"executionResult"`
	SubCalls  int    `json:"subCallCount"`
}

// ReplResult is the outcome of one REPL run. Answer is always set: the
// driver degrades rather than fails once the conversation has started.
type ReplResult struct {
	Answer     string       `json:"answer"`
	Iterations int          `json:"iterations"`
	LlmCalls   int          `json:"llmCalls"`
	Trace      []TraceEntry `json:"trace"`
}

// llmTracker enforces the shared LLM-call budget across driver turns and
// sandbox sub-calls. The sandbox runs on its own goroutine, hence the lock.
type llmTracker struct {
	mu     sync.Mutex
	calls  int
	budget int
	llm    LlmEffect
}

func (t *llmTracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// take reserves one call, or reports the budget consumed.
func (t *llmTracker) take() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.calls >= t.budget {
		return false
	}
	t.calls++
	return true
}

// forceTake reserves one call past the budget. The forced final text turn
// may exceed maxLlmCalls by exactly one.
func (t *llmTracker) forceTake() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
}

// subCall is the effect handed to the sandbox: budgeted, never forced.
func (t *llmTracker) subCall(ctx context.Context, messages []Message) (string, error) {
	if !t.take() {
		return "", ErrLlmBudgetExhausted
	}
	return t.llm(ctx, messages)
}

// RunRepl drives the multi-turn loop between the LLM and the sandbox. LLM
// transport failures propagate; sandbox execution errors and timeouts are
// fed back to the LLM as conversation turns. The sandbox is terminated on
// every exit path.
func RunRepl(ctx context.Context, cfg ReplConfig, prompt string, env Env, llm LlmEffect, git GitEffect) (*ReplResult, error) {
	start := time.Now()
	budget := time.Duration(cfg.TimeoutBudgetMs) * time.Millisecond
	tracker := &llmTracker{budget: cfg.MaxLlmCalls, llm: llm}
	result := &ReplResult{}

	sb, err := NewSandbox(env, tracker.subCall, git)
	if err != nil {
		return nil, err
	}
	defer sb.Terminate()
	defer func() { result.LlmCalls = tracker.count() }()

	conversation := []Message{
		{Role: "system", Content: BuildSystemPrompt(env, cfg)},
		{Role: "user", Content: "Task: " + prompt + "\n\nWrite JavaScript code to find relevant context from the commit history. Call done(answer) when you have it."},
	}

	for i := 1; i <= cfg.MaxIterations; i++ {
		if time.Since(start) > budget || !tracker.take() {
			break
		}

		response, err := llm(ctx, conversation)
		if err != nil {
			return nil, err
		}

		code, found := ExtractCodeBlock(response)
		if !found {
			result.Iterations = i
			result.Answer = response
			return result, nil
		}
		conversation = append(conversation, Message{Role: "assistant", Content: response})

		output, execErr := sb.Execute(ctx, code)
		result.Iterations = i

		entry := TraceEntry{Iteration: i, Code: code, SubCalls: output.SubCalls}
		switch {
		case execErr != nil:
			entry.Result = execErr.Error()
		case output.Error != "":
			entry.Result = output.Error
		default:
			entry.Result = output.Stdout
		}
		result.Trace = append(result.Trace, entry)

		// The done flag alone decides completion: done("") is a deliberate
		// empty answer, not a request for another turn.
		if output.Done {
			result.Answer = output.DoneAnswer
			return result, nil
		}

		if execErr != nil || output.Error != "" {
			conversation = append(conversation, Message{Role: "user", Content: fmt.Sprintf(
				"Execution error: %s\n%s\nFix the error or call done() with your best answer.",
				entry.Result, output.Stdout)})
			continue
		}

		stdout := output.Stdout
		if strings.TrimSpace(stdout) == "" {
			stdout = "(no output)"
		}
		conversation = append(conversation, Message{Role: "user", Content: fmt.Sprintf(
			"Output:\n%s\n\nContinue analysis or call done(answer).", stdout)})
	}

	// Budget exhausted without done: force one plain-text turn if the wall
	// clock allows, otherwise degrade to the last execution output.
	if time.Since(start) <= budget {
		conversation = append(conversation, Message{Role: "user",
			Content: "Iteration budget exhausted. Provide your best answer as plain text (no code block)."})
		tracker.forceTake()
		if response, err := llm(ctx, conversation); err == nil {
			result.Answer = response
			return result, nil
		}
	}

	if len(result.Trace) > 0 {
		result.Answer = result.Trace[len(result.Trace)-1].Result
	}
	return result, nil
}

// codeFences are the recognized opening fence tags.
var codeFences = []string{"```js\n", "```javascript\n", "```\n"}

// ExtractCodeBlock returns the first fenced code block in text. A missing
// closing fence treats the remainder as code. Returns false when no
// recognized fence is present, in which case the whole response is the
// final answer.
func ExtractCodeBlock(text string) (string, bool) {
	// Normalize so a fence at end-of-text still opens a block.
	search := text + "\n"
	best := -1
	bestLen := 0
	for _, fence := range codeFences {
		if idx := strings.Index(search, fence); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestLen = len(fence)
		}
	}
	if best < 0 {
		return "", false
	}

	body := search[best+bestLen:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}
