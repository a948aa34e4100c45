package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newHooksCmd wires the lifecycle entry points the host agent invokes. The
// command tree is hidden: users install it via 'recall enable', not by hand.
func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hooks",
		Short:  "Lifecycle hooks invoked by the coding agent",
		Hidden: true,
	}
	cmd.AddCommand(newHookCmd("user-prompt-submit", handleUserPromptSubmit))
	cmd.AddCommand(newHookCmd("post-tool-use", handlePostToolUse))
	cmd.AddCommand(newHookCmd("stop", handleStop))
	cmd.AddCommand(newHooksInstallCmd())
	cmd.AddCommand(newHooksUninstallCmd())
	return cmd
}

func newHookCmd(name string, handler hookHandler) *cobra.Command {
	return &cobra.Command{
		Use:    name,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Hooks never fail the agent: internal errors are logged and
			// swallowed, and the process exits 0.
			return runHook(cmd, name, handler)
		},
	}
}

func newHooksInstallCmd() *cobra.Command {
	var localDev, force bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register recall hooks in .claude/settings.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := InstallHooks(localDev, force); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Hooks installed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&localDev, "local-dev", false, "register 'go run' commands instead of the installed binary")
	cmd.Flags().BoolVar(&force, "force", false, "replace existing recall hook entries")
	return cmd
}

func newHooksUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove recall hooks from .claude/settings.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := UninstallHooks(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Hooks removed.")
			return nil
		},
	}
}
