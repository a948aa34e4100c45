package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recallhq/cli/cmd/recall/cli/gitexec"
	"github.com/recallhq/cli/cmd/recall/cli/index"
	"github.com/recallhq/cli/cmd/recall/cli/paths"
	"github.com/recallhq/cli/cmd/recall/cli/settings"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and inspect the trailer index",
	}
	cmd.AddCommand(newIndexBuildCmd())
	cmd.AddCommand(newIndexStatusCmd())
	return cmd
}

func newIndexBuildCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Index commit trailers from git log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if checkDisabledGuard(cmd.OutOrStdout()) {
				return nil
			}
			if limit <= 0 {
				if s, err := settings.Load(); err == nil && s.IndexLimit > 0 {
					limit = s.IndexLimit
				}
			}

			ix, err := index.Build(cmd.Context(), nil, limit)
			if err != nil {
				return err
			}

			path, err := paths.TrailerIndexPath()
			if err != nil {
				return err
			}
			if err := ix.Save(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d commits at %.8s (%d scopes, %d sessions)\n",
				ix.CommitCount, ix.HeadCommit, ix.ByScope.Len(), len(ix.BySession))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum commits to ingest (default 500)")
	return cmd
}

func newIndexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index freshness and size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := paths.TrailerIndexPath()
			if err != nil {
				return err
			}
			head, err := gitexec.Head(cmd.Context(), nil)
			if err != nil {
				return err
			}

			// Load without the freshness gate so staleness can be reported.
			ix, err := index.Load(path, "")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ix == nil {
				fmt.Fprintln(out, "No index found. Run 'recall index build'.")
				return nil
			}

			fmt.Fprintf(out, "Commits:   %d\n", ix.CommitCount)
			fmt.Fprintf(out, "Scopes:    %d\n", ix.ByScope.Len())
			fmt.Fprintf(out, "Sessions:  %d\n", len(ix.BySession))
			fmt.Fprintf(out, "Generated: %s\n", ix.Generated)
			if ix.HeadCommit == head {
				fmt.Fprintf(out, "Fresh at %.8s\n", head)
			} else {
				fmt.Fprintf(out, "Stale: indexed at %.8s, HEAD is %.8s. Run 'recall index build'.\n",
					ix.HeadCommit, head)
			}
			return nil
		},
	}
}
