// Package paths locates the repository, its git metadata directory, and the
// files Recall stores there.
package paths

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
)

// Directory constants relative to the repository root.
const (
	RecallDir = ".recall"
	LogsDir   = ".recall/logs"
)

// File names under <git-dir>/info.
const (
	TrailerIndexFileName  = "trailer-index.json"
	WorkingMemoryFileName = "working-memory.json"
	RlmConfigFileName     = "rlm-config.json"
)

// repoRootCache caches the repository root to avoid repeated discovery.
// The cache is keyed by the current working directory to handle directory changes.
var (
	repoMu        sync.RWMutex
	repoRootCache string
	gitDirCache   string
	repoCacheDir  string
)

func lookup() (root, gitDir string, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	repoMu.RLock()
	if repoRootCache != "" && repoCacheDir == cwd {
		root, gitDir = repoRootCache, gitDirCache
		repoMu.RUnlock()
		return root, gitDir, nil
	}
	repoMu.RUnlock()

	root, gitDir, err = discover()
	if err != nil {
		return "", "", err
	}

	repoMu.Lock()
	repoRootCache = root
	gitDirCache = gitDir
	repoCacheDir = cwd
	repoMu.Unlock()

	return root, gitDir, nil
}

// discover resolves the repo root and git dir, preferring go-git and falling
// back to the git binary (covers worktrees and odd GIT_DIR setups go-git
// occasionally mishandles in hook contexts).
func discover() (string, string, error) {
	if _, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true}); err == nil {
		root, rootErr := gitRevParse("--show-toplevel")
		gitDir, dirErr := gitRevParse("--absolute-git-dir")
		if rootErr == nil && dirErr == nil {
			return root, gitDir, nil
		}
	}

	root, err := gitRevParse("--show-toplevel")
	if err != nil {
		return "", "", fmt.Errorf("failed to locate git repository: %w", err)
	}
	gitDir, err := gitRevParse("--absolute-git-dir")
	if err != nil {
		return "", "", fmt.Errorf("failed to locate git dir: %w", err)
	}
	return root, gitDir, nil
}

func gitRevParse(flag string) (string, error) {
	cmd := exec.CommandContext(context.Background(), "git", "rev-parse", flag)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse %s: %w", flag, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// RepoRoot returns the git repository root directory.
// The result is cached per working directory.
// Returns an error if not inside a git repository.
func RepoRoot() (string, error) {
	root, _, err := lookup()
	return root, err
}

// GitDir returns the repository's git metadata directory (usually .git).
func GitDir() (string, error) {
	_, gitDir, err := lookup()
	return gitDir, err
}

// ClearCache clears the cached repository locations.
// This is primarily useful for testing when changing directories.
func ClearCache() {
	repoMu.Lock()
	repoRootCache = ""
	gitDirCache = ""
	repoCacheDir = ""
	repoMu.Unlock()
}

// InfoDir returns <git-dir>/info, creating it if necessary.
func InfoDir() (string, error) {
	gitDir, err := GitDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(gitDir, "info")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create info dir: %w", err)
	}
	return dir, nil
}

// TrailerIndexPath returns the path of the persisted trailer index.
func TrailerIndexPath() (string, error) {
	dir, err := InfoDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, TrailerIndexFileName), nil
}

// WorkingMemoryPath returns the path of the working-memory file.
func WorkingMemoryPath() (string, error) {
	dir, err := InfoDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, WorkingMemoryFileName), nil
}

// RlmConfigPath returns the path of the RLM configuration file.
func RlmConfigPath() (string, error) {
	dir, err := InfoDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, RlmConfigFileName), nil
}

// SessionSummaryPath returns the path for a session summary file. The caller
// is expected to pass an already path-safe session component.
func SessionSummaryPath(safeSessionID string) (string, error) {
	dir, err := InfoDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session-summary-"+safeSessionID+".md"), nil
}

// AbsPath returns the absolute path for a relative path within the repository.
// If the path is already absolute, it is returned as-is.
func AbsPath(relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return relPath, nil
	}
	root, err := RepoRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, relPath), nil
}
