package cli

import (
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// NewAccessibleForm builds a huh form that degrades to plain line-based
// prompts when stdout is not a terminal (CI, pipes, screen readers).
func NewAccessibleForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).
		WithAccessible(!term.IsTerminal(int(os.Stdout.Fd())))
}
