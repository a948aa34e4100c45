// Package gitexec runs git subprocesses for batch history ingestion and the
// sandboxed gitLog effect. Commands accept a context and support an
// injectable runner for tests.
package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/recallhq/cli/cmd/recall/cli/trailers"
)

// ErrGitLogFailed tags git log subprocess failures.
var ErrGitLogFailed = errors.New("git-log-failed")

// DefaultLogLimit is the number of commits ingested when building the index.
const DefaultLogLimit = 500

// Runner executes git with the given args and returns stdout.
// The default runner shells out; tests inject a fake.
type Runner func(ctx context.Context, args ...string) (string, error)

// Run is the default Runner.
func Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s (exit %d): %s: %w",
				strings.Join(args, " "), exitErr.ExitCode(), strings.TrimSpace(stderr.String()), err)
		}
		return "", fmt.Errorf("running git %s: %w", strings.Join(args, " "), err)
	}
	return stdout.String(), nil
}

// LogRecords runs git log in the batch record format and returns the raw
// output, ready for trailers.SplitRecords.
func LogRecords(ctx context.Context, run Runner, limit int) (string, error) {
	if run == nil {
		run = Run
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	out, err := run(ctx, "log", "-"+strconv.Itoa(limit), "--no-merges", "--format="+trailers.LogFormat)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGitLogFailed, err)
	}
	return out, nil
}

// GrepRecords runs git log --grep in the batch record format. Used as the
// live fallback when the persisted index is stale or absent.
func GrepRecords(ctx context.Context, run Runner, pattern string, limit int) (string, error) {
	if run == nil {
		run = Run
	}
	if limit <= 0 {
		limit = 50
	}
	out, err := run(ctx, "log", "-"+strconv.Itoa(limit), "--no-merges",
		"--grep="+pattern, "-i", "--format="+trailers.LogFormat)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGitLogFailed, err)
	}
	return out, nil
}

// Head returns the current HEAD commit hash via git rev-parse.
func Head(ctx context.Context, run Runner) (string, error) {
	if run == nil {
		run = Run
	}
	out, err := run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Log runs a pre-sanitized git log invocation for the sandbox gitLog effect.
// Callers must pass args through rlm argument sanitization first.
func Log(ctx context.Context, run Runner, args []string) (string, error) {
	if run == nil {
		run = Run
	}
	full := append([]string{"log"}, args...)
	out, err := run(ctx, full...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGitLogFailed, err)
	}
	return out, nil
}
