package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/recallhq/cli/cmd/recall/cli/paths"
	"github.com/recallhq/cli/cmd/recall/cli/rlm"
	"github.com/recallhq/cli/cmd/recall/cli/settings"
)

func newEnableCmd() *cobra.Command {
	var localDev bool
	var forceHooks bool
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable Recall",
		Long:  "Install the agent hooks, create default settings, and turn Recall on for this repository.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnable(cmd.OutOrStdout(), localDev, forceHooks, nonInteractive)
		},
	}

	cmd.Flags().BoolVar(&localDev, "local-dev", false, "Use go run instead of the recall binary for hooks")
	cmd.Flags().MarkHidden("local-dev") //nolint:errcheck,gosec // flag is defined above
	cmd.Flags().BoolVarP(&forceHooks, "force", "f", false, "Force reinstall hooks (removes existing Recall hooks first)")
	cmd.Flags().BoolVarP(&nonInteractive, "yes", "y", false, "Skip interactive prompts")
	return cmd
}

func runEnable(w io.Writer, localDev, forceHooks, nonInteractive bool) error {
	if _, err := paths.RepoRoot(); err != nil {
		return fmt.Errorf("recall requires a git repository: %w", err)
	}

	if err := InstallHooks(localDev, forceHooks); err != nil {
		return fmt.Errorf("failed to install agent hooks: %w", err)
	}
	fmt.Fprintln(w, "✓ Agent hooks installed")

	s, err := settings.Load()
	if err != nil {
		s = &settings.RecallSettings{Enabled: true}
	}
	s.Enabled = true

	// First enable on this machine asks once; the answer sticks in settings.
	if s.Telemetry == nil && !nonInteractive {
		optIn := true
		form := NewAccessibleForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Share anonymous usage data to help improve Recall?").
					Value(&optIn),
			),
		)
		if err := form.Run(); err == nil {
			s.Telemetry = &optIn
		}
	}

	if err := settings.Save(s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Fprintln(w, "✓ Settings saved (.recall/settings.json)")

	if err := ensureRlmConfig(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n✓ Recall enabled")
	fmt.Fprintln(w, "Run 'recall index build' to index your commit history.")
	return nil
}

// ensureRlmConfig writes the default RLM config on first enable so users can
// find and edit it. An existing file is left alone.
func ensureRlmConfig() error {
	path, err := paths.RlmConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return rlm.SaveConfig(path, rlm.DefaultConfig())
}

func newDisableCmd() *cobra.Command {
	var removeHooks bool
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Disable Recall",
		Long:  "Disable Recall temporarily. Hooks will exit silently and commands will show a disabled message.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDisable(cmd.OutOrStdout(), removeHooks)
		},
	}
	cmd.Flags().BoolVar(&removeHooks, "remove-hooks", false, "Also remove the entries from .claude/settings.json")
	return cmd
}

func runDisable(w io.Writer, removeHooks bool) error {
	s, err := settings.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	s.Enabled = false
	if err := settings.Save(s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if removeHooks {
		if err := UninstallHooks(); err != nil {
			return fmt.Errorf("failed to remove hooks: %w", err)
		}
		fmt.Fprintln(w, "✓ Agent hooks removed")
	}
	fmt.Fprintln(w, "Recall is now disabled.")
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show Recall status",
		Long:  "Show whether Recall is enabled, hooks are installed, and the index is fresh.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, w io.Writer) error {
	if _, err := paths.RepoRoot(); err != nil {
		fmt.Fprintln(w, "✕ not a git repository")
		return nil //nolint:nilerr // not being in a git repo is a valid status
	}

	s, err := settings.Load()
	if err != nil {
		return fmt.Errorf("failed to check status: %w", err)
	}
	if s.Enabled {
		fmt.Fprintln(w, "● enabled")
	} else {
		fmt.Fprintln(w, "○ disabled (run `recall enable` to re-enable)")
	}

	if AreHooksInstalled() {
		fmt.Fprintln(w, "● hooks installed")
	} else {
		fmt.Fprintln(w, "○ hooks not installed (run `recall enable`)")
	}

	ix, err := loadFreshIndex(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(w, "○ index unavailable: %v\n", err)
	case ix == nil:
		fmt.Fprintln(w, "○ index absent or stale (run `recall index build`)")
	default:
		fmt.Fprintf(w, "● index fresh (%d commits, %d scopes)\n", ix.CommitCount, ix.ByScope.Len())
	}

	cfg, err := loadRlmConfig()
	if err == nil && cfg.Enabled {
		mode := "single-shot"
		if cfg.ReplEnabled {
			mode = "REPL"
		}
		fmt.Fprintf(w, "● RLM enabled (%s, %s)\n", mode, cfg.Model)
	} else {
		fmt.Fprintln(w, "○ RLM disabled")
	}
	return nil
}

// DisabledMessage is shown by commands that refuse to run while disabled.
const DisabledMessage = "Recall is disabled. Run `recall enable` to re-enable."

// checkDisabledGuard prints the disabled message and reports whether the
// caller should bail. Settings errors default to enabled.
func checkDisabledGuard(w io.Writer) bool {
	s, err := settings.Load()
	if err != nil {
		return false
	}
	if !s.Enabled {
		fmt.Fprintln(w, DisabledMessage)
		return true
	}
	return false
}
