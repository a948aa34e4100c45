package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallhq/cli/cmd/recall/cli/analyze"
	"github.com/recallhq/cli/cmd/recall/cli/gitexec"
	"github.com/recallhq/cli/cmd/recall/cli/index"
	"github.com/recallhq/cli/cmd/recall/cli/jsonutil"
	"github.com/recallhq/cli/cmd/recall/cli/logging"
	"github.com/recallhq/cli/cmd/recall/cli/memory"
	"github.com/recallhq/cli/cmd/recall/cli/paths"
	"github.com/recallhq/cli/cmd/recall/cli/rlm"
	"github.com/recallhq/cli/cmd/recall/cli/settings"
	"github.com/recallhq/cli/cmd/recall/cli/trailers"
	"github.com/recallhq/cli/cmd/recall/cli/validation"
	"github.com/recallhq/cli/redact"
)

// hookEnvelope is the JSON object the host agent writes on stdin. Fields we
// don't read pass through unharmed.
type hookEnvelope struct {
	HookEventName string `json:"hook_event_name"`
	SessionID     string `json:"session_id"`
	Prompt        string `json:"prompt,omitempty"`
	ToolName      string `json:"tool_name,omitempty"`
	ToolInput     struct {
		Command string `json:"command,omitempty"`
	} `json:"tool_input,omitempty"`
	ToolResponse struct {
		Stdout string `json:"stdout,omitempty"`
	} `json:"tool_response,omitempty"`
}

type hookHandler func(ctx context.Context, env hookEnvelope, out io.Writer) error

// runHook reads the envelope, runs the handler, and always reports success.
// A hook that fails must never fail the agent's turn, so every internal
// error ends up in the session log instead of the exit code.
func runHook(cmd *cobra.Command, name string, handler hookHandler) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil
	}
	var env hookEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}

	safeSession := validation.SafeFileComponent(env.SessionID)
	if err := logging.Init(safeSession); err == nil {
		defer logging.Close()
	}
	ctx := logging.WithHook(logging.WithSession(cmd.Context(), env.SessionID), name)

	if err := handler(ctx, env, cmd.OutOrStdout()); err != nil {
		logging.Error(ctx, "hook failed", "error", err.Error())
	}
	return nil
}

// handleUserPromptSubmit analyzes the prompt for scope and intent signals,
// queries the trailer index, and emits context blocks the agent can read
// before it starts working.
func handleUserPromptSubmit(ctx context.Context, env hookEnvelope, out io.Writer) error {
	s, err := settings.Load()
	if err != nil || !s.Enabled {
		return err
	}

	ix, err := loadFreshIndex(ctx)
	if err != nil {
		return err
	}
	var scopeKeys []string
	if ix != nil {
		scopeKeys = ix.ScopeKeys()
	}

	signals := analyze.ExtractPromptSignals(env.Prompt, scopeKeys)
	results, err := queryForSignals(ctx, ix, nil, signals)
	if err != nil {
		return err
	}
	if len(results) > 0 {
		fmt.Fprintln(out, "<commit-memory>")
		if ix == nil {
			fmt.Fprintln(out, "(no fresh index; answered from git log)")
		}
		fmt.Fprintln(out, "Commits from this repository relevant to the prompt:")
		for _, c := range results {
			fmt.Fprintln(out, formatCommitLine(c))
		}
		fmt.Fprintln(out, "</commit-memory>")
	}

	memPath, err := paths.WorkingMemoryPath()
	if err != nil {
		return err
	}
	wm, err := memory.Load(memPath, env.SessionID)
	if err != nil {
		return err
	}
	if wm != nil && len(wm.Entries) > 0 {
		fmt.Fprintln(out, wm.FormatBlock(0))
	}

	writeRlmAnalysis(ctx, env, out, ix, wm)
	return nil
}

// queryForSignals runs one index query per scope hint (or a single
// intent-only query when no scope matched) and merges by hash. With no fresh
// index it answers each query live from git log --grep instead of going
// dark.
func queryForSignals(ctx context.Context, ix *index.TrailerIndex, run gitexec.Runner, signals analyze.PromptSignals) ([]index.IndexedCommit, error) {
	if signals.Empty() {
		return nil, nil
	}

	params := []index.QueryParams{}
	for _, scope := range signals.ScopeHints {
		params = append(params, index.QueryParams{Scope: scope, Intents: signals.IntentHints})
	}
	if len(params) == 0 {
		params = append(params, index.QueryParams{Intents: signals.IntentHints})
	}

	seen := map[string]bool{}
	var merged []index.IndexedCommit
	for _, p := range params {
		if p.Empty() {
			continue
		}
		commits := []index.IndexedCommit{}
		if ix != nil {
			commits = ix.Query(p)
		} else {
			var err error
			commits, err = index.FallbackQuery(ctx, run, p)
			if err != nil {
				return nil, err
			}
		}
		for _, c := range commits {
			if seen[c.Hash] {
				continue
			}
			seen[c.Hash] = true
			merged = append(merged, c)
		}
	}
	if len(merged) > index.DefaultQueryLimit {
		merged = merged[:index.DefaultQueryLimit]
	}
	return merged, nil
}

// writeRlmAnalysis runs the REPL over the prompt when both RLM and its REPL
// mode are enabled. Failures are logged and suppressed: the deterministic
// blocks above are the dependable output.
func writeRlmAnalysis(ctx context.Context, env hookEnvelope, out io.Writer, ix *index.TrailerIndex, wm *memory.WorkingMemory) {
	cfg, err := loadRlmConfig()
	if err != nil || !cfg.Enabled || !cfg.ReplEnabled || ix == nil {
		return
	}

	client := rlm.NewOllamaClient(cfg)
	gitEffect := func(ctx context.Context, args []string) (string, error) {
		return gitexec.Log(ctx, nil, args)
	}
	result, err := rlm.RunRepl(ctx, rlm.ReplConfigFrom(cfg), env.Prompt,
		rlm.Env{Index: ix, WorkingMemory: wm, ScopeKeys: ix.ScopeKeys()},
		client.Chat, gitEffect)
	if err != nil {
		logging.Warn(ctx, "rlm analysis failed", "error", err.Error())
		return
	}
	if strings.TrimSpace(result.Answer) == "" {
		return
	}
	fmt.Fprintf(out, "<rlm-analysis>\n%s\n</rlm-analysis>\n", strings.TrimSpace(result.Answer))
}

// handlePostToolUse watches Bash commands the agent just ran. Commits get
// their message validated and an index staleness reminder; recall queries
// are re-answered from the index so the agent sees structured results.
func handlePostToolUse(ctx context.Context, env hookEnvelope, out io.Writer) error {
	s, err := settings.Load()
	if err != nil || !s.Enabled {
		return err
	}
	if env.ToolName != "Bash" {
		return nil
	}
	command := strings.TrimSpace(env.ToolInput.Command)

	switch {
	case isGitCommitCommand(command):
		return reviewCommit(ctx, out)
	case strings.HasPrefix(command, "recall query"):
		return reanswerQuery(ctx, command, out)
	}
	return nil
}

func isGitCommitCommand(command string) bool {
	fields := strings.Fields(command)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "git" && fields[i+1] == "commit" {
			return true
		}
	}
	return false
}

// reviewCommit validates the HEAD message against the trailer rules and
// reminds the agent when the index no longer covers the new commit.
func reviewCommit(ctx context.Context, out io.Writer) error {
	msg, err := gitexec.Run(ctx, "log", "-1", "--format=%B")
	if err != nil {
		return err
	}

	var lines []string
	for _, d := range trailers.Validate(msg) {
		lines = append(lines, fmt.Sprintf("%s [%s]: %s", d.Severity, d.Rule, d.Message))
	}

	ix, err := loadFreshIndex(ctx)
	if err != nil {
		return err
	}
	if ix == nil {
		lines = append(lines, "The trailer index does not cover this commit yet; run 'recall index build'.")
	}

	if len(lines) == 0 {
		return nil
	}
	fmt.Fprintln(out, "<commit-validation>")
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, "</commit-validation>")
	return nil
}

// reanswerQuery parses the flags of a 'recall query' invocation and answers
// it from the index directly, so the structured results reach the agent even
// when the shell output was truncated.
func reanswerQuery(ctx context.Context, command string, out io.Writer) error {
	p := parseQueryCommand(command)
	if p.Empty() {
		return nil
	}

	results, fromIndex, err := queryIndexOrFallback(ctx, p)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "<commit-memory>")
	if !fromIndex {
		fmt.Fprintln(out, "(no fresh index; answered from git log)")
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching commits.")
	}
	for _, c := range results {
		fmt.Fprintln(out, formatCommitLine(c))
	}
	fmt.Fprintln(out, "</commit-memory>")
	return nil
}

// parseQueryCommand extracts the query flags from a shell command line. Only
// the flags 'recall query' itself accepts are recognized; anything else is
// skipped.
func parseQueryCommand(command string) index.QueryParams {
	var p index.QueryParams
	fields := strings.Fields(command)
	for i := 0; i < len(fields); i++ {
		name := fields[i]
		value := ""
		inline := false
		if eq := strings.Index(name, "="); eq >= 0 {
			value = name[eq+1:]
			name = name[:eq]
			inline = true
		} else if i+1 < len(fields) {
			value = fields[i+1]
		}
		value = strings.Trim(value, `"'`)

		consumed := true
		switch name {
		case "--scope":
			p.Scope = value
		case "--intent":
			p.Intents = append(p.Intents, strings.Split(value, ",")...)
		case "--session":
			p.Session = value
		case "--decided-against":
			p.DecidedAgainst = value
		case "--limit":
			if n, err := strconv.Atoi(value); err == nil {
				p.Limit = n
			}
		default:
			consumed = false
		}
		// Only --flag value spends the next token; --flag=value does not.
		if consumed && !inline {
			i++
		}
	}
	return p
}

// handleStop consolidates working memory into a session summary on disk,
// surfaces trailer hints for the wrap-up commit, then clears the memory.
func handleStop(ctx context.Context, env hookEnvelope, out io.Writer) error {
	s, err := settings.Load()
	if err != nil || !s.Enabled {
		return err
	}

	memPath, err := paths.WorkingMemoryPath()
	if err != nil {
		return err
	}
	wm, err := memory.Load(memPath, env.SessionID)
	if err != nil {
		return err
	}
	if wm == nil || len(wm.Entries) == 0 {
		return nil
	}

	wm.Entries = memory.CollapseNearDuplicates(wm.Entries)
	summary := redact.String(memory.FormatSessionSummary(wm))

	safeSession := validation.SafeFileComponent(env.SessionID)
	summaryPath, err := paths.SessionSummaryPath(safeSession)
	if err != nil {
		return err
	}
	if err := jsonutil.WriteFileAtomic(summaryPath, []byte(summary), 0o600); err != nil {
		return err
	}
	logging.Info(ctx, "session summary written", "path", summaryPath, "entries", len(wm.Entries))

	fmt.Fprintln(out, "<session-summary>")
	fmt.Fprintf(out, "Session summary written to %s\n", summaryPath)
	hints := memory.DecisionsToTrailers(wm.Entries)
	if block := memory.FormatTrailerHints(hints); block != "" {
		fmt.Fprintln(out, "Suggested trailers for a wrap-up commit:")
		fmt.Fprint(out, block)
	}
	fmt.Fprintln(out, "</session-summary>")

	return memory.Clear(memPath)
}
