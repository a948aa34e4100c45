// Package cli implements the recall command-line interface and the lifecycle
// hooks that inject commit-history context into an AI coding agent.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/recallhq/cli/cmd/recall/cli/logging"
	"github.com/recallhq/cli/cmd/recall/cli/settings"
	"github.com/recallhq/cli/cmd/recall/cli/telemetry"
	"github.com/recallhq/cli/cmd/recall/cli/versioncheck"
)

const gettingStarted = `

Getting Started:
  To get started with Recall, run 'recall enable' inside a git repository
  to install the agent hooks, then 'recall index build' to index your
  commit history.

`

// Version information (can be set at build time)
var (
	Version = "dev"
	Commit  = "unknown"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Commit-history memory for AI coding agents",
		Long:  "Recall indexes structured commit trailers and feeds relevant history back into your coding agent" + gettingStarted,
		// Let main.go handle error printing to avoid duplication
		SilenceErrors: true,
		// Hide completion command from help but keep it functional
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logging.SetLogLevelGetter(func() string {
				s, err := settings.Load()
				if err != nil {
					return ""
				}
				return s.LogLevel
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			// Load telemetry preference from settings (ignore errors - nil defaults to disabled)
			var telemetryEnabled *bool
			enabled := false
			if s, err := settings.Load(); err == nil {
				telemetryEnabled = s.Telemetry
				enabled = s.Enabled
			}

			telemetryClient := telemetry.NewClient(Version, telemetryEnabled)
			defer telemetryClient.Close()
			telemetryClient.TrackCommand(cmd, enabled)

			versioncheck.CheckAndNotify(cmd, Version)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newEnableCmd())
	cmd.AddCommand(newDisableCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newMemoryCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newHooksCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("Recall CLI %s (%s)\n", Version, Commit)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
