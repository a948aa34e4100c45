package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallhq/cli/cmd/recall/cli/memory"
	"github.com/recallhq/cli/cmd/recall/cli/paths"
)

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage the current session's working memory",
	}
	cmd.AddCommand(newMemoryAddCmd())
	cmd.AddCommand(newMemoryShowCmd())
	cmd.AddCommand(newMemoryClearCmd())
	return cmd
}

func newMemoryAddCmd() *cobra.Command {
	var (
		session string
		tag     string
		scope   []string
		source  string
	)
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Append a tagged entry to working memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := paths.WorkingMemoryPath()
			if err != nil {
				return err
			}

			wm, err := memory.AddEntry(path, session, memory.Entry{
				Tag:    tag,
				Scope:  scope,
				Text:   strings.Join(args, " "),
				Source: source,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s entry (%d total)\n", tag, len(wm.Entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session identifier the entry belongs to")
	cmd.Flags().StringVar(&tag, "tag", "finding", "entry tag: finding, hypothesis, decision, context, todo")
	cmd.Flags().StringSliceVar(&scope, "scope", nil, "scope keys the entry relates to")
	cmd.Flags().StringVar(&source, "source", "", "where the entry came from")
	return cmd
}

func newMemoryShowCmd() *cobra.Command {
	var session string
	var limit int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show working-memory entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := paths.WorkingMemoryPath()
			if err != nil {
				return err
			}
			wm, err := memory.Load(path, session)
			if err != nil {
				return err
			}
			if wm == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No working memory for this session.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), wm.FormatBlock(limit))
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session identifier to load")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many trailing entries (default 20)")
	return cmd
}

func newMemoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the working-memory file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := paths.WorkingMemoryPath()
			if err != nil {
				return err
			}
			if err := memory.Clear(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Working memory cleared.")
			return nil
		},
	}
}
