// Package versioncheck notifies users when a newer release is available.
// Checks run at most daily and are silent on every failure.
package versioncheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/recallhq/cli/cmd/recall/cli/logging"
)

// CheckAndNotify performs a version check and notifies the user if a newer
// version is available. Silent on all errors to avoid interrupting CLI
// operations.
func CheckAndNotify(cmd *cobra.Command, currentVersion string) {
	// Hook invocations are hidden commands; never check there.
	if cmd.Hidden {
		return
	}
	if currentVersion == "dev" || currentVersion == "" {
		return
	}

	if err := ensureGlobalConfigDir(); err != nil {
		return
	}

	cache, err := loadCache()
	if err != nil {
		cache = &VersionCache{}
	}

	if time.Since(cache.LastCheckTime) < checkInterval {
		return
	}

	latestVersion, err := fetchLatestVersion()

	// Always update cache to avoid retrying on every CLI invocation
	cache.LastCheckTime = time.Now()
	if saveErr := saveCache(cache); saveErr != nil {
		logging.Debug(context.Background(), "version check: failed to save cache",
			"error", saveErr.Error())
	}

	if err != nil {
		logging.Debug(context.Background(), "version check: failed to fetch latest version",
			"error", err.Error())
		return
	}

	if isOutdated(currentVersion, latestVersion) {
		printNotification(cmd, currentVersion, latestVersion)
	}
}

// globalConfigDirPath returns the expanded path to ~/.config/recall.
func globalConfigDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, globalConfigDirName), nil
}

func ensureGlobalConfigDir() error {
	configDir, err := globalConfigDirPath()
	if err != nil {
		return err
	}

	//nolint:gosec // ~/.config/recall is user home directory, 0o755 is appropriate
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return nil
}

func cacheFilePath() (string, error) {
	configDir, err := globalConfigDirPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, cacheFileName), nil
}

func loadCache() (*VersionCache, error) {
	filePath, err := cacheFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath) //nolint:gosec // cacheFilePath is safe
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var cache VersionCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing cache: %w", err)
	}
	return &cache, nil
}

// saveCache writes the cache atomically (temp file, then rename).
func saveCache(cache *VersionCache) error {
	filePath, err := cacheFilePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	dir := filepath.Dir(filePath)
	tmpFile, err := os.CreateTemp(dir, ".version_check_tmp_")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filePath); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

func fetchLatestVersion() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubAPIURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "recall-cli")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Limit to 1MB to prevent memory exhaustion
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	version, err := parseGitHubRelease(body)
	if err != nil {
		return "", fmt.Errorf("parsing release: %w", err)
	}
	return version, nil
}

// parseGitHubRelease extracts the latest stable version, skipping
// prereleases.
func parseGitHubRelease(body []byte) (string, error) {
	var release GitHubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return "", fmt.Errorf("parsing JSON: %w", err)
	}
	if release.Prerelease {
		return "", errors.New("only prerelease versions available")
	}
	if release.TagName == "" {
		return "", errors.New("empty tag name")
	}
	return release.TagName, nil
}

// isOutdated compares current and latest using semantic versioning.
func isOutdated(current, latest string) bool {
	if !strings.HasPrefix(current, "v") {
		current = "v" + current
	}
	if !strings.HasPrefix(latest, "v") {
		latest = "v" + latest
	}
	return semver.Compare(current, latest) < 0
}

func printNotification(cmd *cobra.Command, current, latest string) {
	msg := fmt.Sprintf("\nA newer version of Recall CLI is available: %s (current: %s)\nRun 'go install github.com/recallhq/cli/cmd/recall@latest' to update.\n",
		latest, current)
	fmt.Fprint(cmd.OutOrStdout(), msg)
}
