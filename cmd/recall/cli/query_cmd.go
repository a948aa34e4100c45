package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recallhq/cli/cmd/recall/cli/index"
)

func newQueryCmd() *cobra.Command {
	var params index.QueryParams
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query indexed commits by trailer dimensions",
		Example: `  recall query --scope auth
  recall query --intent fix-defect --scope cache
  recall query --decided-against Redis`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if checkDisabledGuard(cmd.OutOrStdout()) {
				return nil
			}
			if params.Empty() {
				return fmt.Errorf("at least one of --scope, --intent, --session, --decided-against is required")
			}

			results, fromIndex, err := queryIndexOrFallback(cmd.Context(), params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !fromIndex {
				fmt.Fprintln(out, "(no fresh index; answering from git log)")
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No matching commits.")
				return nil
			}
			for _, c := range results {
				fmt.Fprintln(out, formatCommitLine(c))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Scope, "scope", "", "scope key or prefix (auth matches auth/login)")
	cmd.Flags().StringSliceVar(&params.Intents, "intent", nil, "intent values to match")
	cmd.Flags().StringVar(&params.Session, "session", "", "session identifier (YYYY-MM-DD/slug)")
	cmd.Flags().StringVar(&params.DecidedAgainst, "decided-against", "", "keyword matched against rejected approaches")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "maximum results (default 20)")
	return cmd
}
