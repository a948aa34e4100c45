package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallhq/cli/cmd/recall/cli/gitexec"
	"github.com/recallhq/cli/cmd/recall/cli/trailers"
)

func newValidateCmd() *cobra.Command {
	var message string
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a commit message against the trailer format",
		Long: `Validate a commit message against the conventional-subject and trailer
rules. With no flags, validates the message of HEAD. Errors exit 1;
warnings alone exit 0.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := resolveMessage(cmd, message, file)
			if err != nil {
				return err
			}

			diags := trailers.Validate(msg)
			printDiagnostics(diags)
			if trailers.HasErrors(diags) {
				cmd.SilenceUsage = true
				// Diagnostics already explain the failure.
				cmd.SilenceErrors = true
				return fmt.Errorf("commit message has errors")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "message text to validate")
	cmd.Flags().StringVarP(&file, "file", "F", "", "read the message from a file")
	return cmd
}

func resolveMessage(cmd *cobra.Command, message, file string) (string, error) {
	if message != "" {
		return message, nil
	}
	if file != "" {
		data, err := os.ReadFile(file) //nolint:gosec // user-supplied path by design
		if err != nil {
			return "", fmt.Errorf("reading message file: %w", err)
		}
		return string(data), nil
	}
	out, err := gitexec.Run(cmd.Context(), "log", "-1", "--format=%B")
	if err != nil {
		return "", fmt.Errorf("reading HEAD message: %w", err)
	}
	return out, nil
}

// printDiagnostics writes validator output to stderr: a checkmark when
// clean, otherwise one line per diagnostic.
func printDiagnostics(diags []trailers.Diagnostic) {
	if len(diags) == 0 {
		fmt.Fprintln(os.Stderr, "✓ commit message ok")
		return
	}
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s [%s]: %s\n", d.Severity, d.Rule, d.Message)
	}
}
