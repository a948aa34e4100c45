package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallhq/cli/cmd/recall/cli/gitexec"
	"github.com/recallhq/cli/cmd/recall/cli/memory"
	"github.com/recallhq/cli/cmd/recall/cli/paths"
	"github.com/recallhq/cli/cmd/recall/cli/rlm"
)

func newAskCmd() *cobra.Command {
	var showTrace bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the local LLM a question about the commit history",
		Long: `Runs the RLM loop: the configured local LLM writes small JavaScript
fragments that query the trailer index, and returns an answer. Requires
'enabled: true' in rlm-config.json and a running endpoint.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRlmConfig()
			if err != nil {
				return err
			}
			if !cfg.Enabled {
				return fmt.Errorf("RLM analysis is disabled; enable it in rlm-config.json")
			}

			ix, err := loadFreshIndex(cmd.Context())
			if err != nil {
				return err
			}
			if ix == nil {
				return fmt.Errorf("no fresh index; run 'recall index build' first")
			}

			memPath, err := paths.WorkingMemoryPath()
			if err != nil {
				return err
			}
			wm, _ := memory.Load(memPath, "")

			env := rlm.Env{Index: ix, WorkingMemory: wm, ScopeKeys: ix.ScopeKeys()}
			client := rlm.NewOllamaClient(cfg)
			gitEffect := func(ctx context.Context, args []string) (string, error) {
				return gitexec.Log(ctx, nil, args)
			}

			result, err := rlm.RunRepl(cmd.Context(), rlm.ReplConfigFrom(cfg),
				strings.Join(args, " "), env, client.Chat, gitEffect)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Answer)
			if showTrace {
				fmt.Fprintf(out, "\n-- %d iterations, %d LLM calls --\n", result.Iterations, result.LlmCalls)
				for _, entry := range result.Trace {
					fmt.Fprintf(out, "[%d] code:\n%s\nresult:\n%s\n", entry.Iteration, entry.Code, entry.Result)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the iteration trace")
	return cmd
}
