// Package settings provides configuration loading for Recall.
// This package is separate from cli so leaf packages can import it without
// creating an import cycle.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/recallhq/cli/cmd/recall/cli/paths"
)

const (
	// RecallSettingsFile is the path to the Recall settings file.
	RecallSettingsFile = ".recall/settings.json"
	// RecallSettingsLocalFile is the path to the local settings override file (not committed).
	RecallSettingsLocalFile = ".recall/settings.local.json"
)

// RecallSettings represents the .recall/settings.json configuration.
type RecallSettings struct {
	// Enabled indicates whether Recall is active. When false, CLI commands
	// show a disabled message and hooks exit silently. Defaults to true.
	Enabled bool `json:"enabled"`

	// LogLevel sets the logging verbosity (debug, info, warn, error).
	// Can be overridden by RECALL_LOG_LEVEL environment variable.
	// Defaults to "info".
	LogLevel string `json:"log_level,omitempty"`

	// IndexLimit caps how many commits an index build ingests. Zero means
	// the built-in default.
	IndexLimit int `json:"index_limit,omitempty"`

	// Telemetry controls anonymous usage analytics.
	// nil = not asked yet (show prompt), true = opted in, false = opted out
	Telemetry *bool `json:"telemetry,omitempty"`
}

// Load loads the Recall settings from .recall/settings.json, then applies
// any overrides from .recall/settings.local.json if it exists. Returns
// default settings if neither file exists. Works from any subdirectory
// within the repository.
func Load() (*RecallSettings, error) {
	settingsFileAbs, err := paths.AbsPath(RecallSettingsFile)
	if err != nil {
		settingsFileAbs = RecallSettingsFile
	}
	localSettingsFileAbs, err := paths.AbsPath(RecallSettingsLocalFile)
	if err != nil {
		localSettingsFileAbs = RecallSettingsLocalFile
	}

	settings, err := loadFromFile(settingsFileAbs)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	localData, err := os.ReadFile(localSettingsFileAbs) //nolint:gosec // path is from AbsPath or constant
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading local settings file: %w", err)
		}
	} else {
		if err := mergeJSON(settings, localData); err != nil {
			return nil, fmt.Errorf("merging local settings: %w", err)
		}
	}

	return settings, nil
}

// loadFromFile loads settings from a specific file path.
// Returns default settings if the file doesn't exist.
func loadFromFile(filePath string) (*RecallSettings, error) {
	settings := &RecallSettings{
		Enabled: true,
	}

	data, err := os.ReadFile(filePath) //nolint:gosec // path is from caller
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("%w", err)
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	return settings, nil
}

// mergeJSON merges JSON data into existing settings. Only fields present in
// the JSON override existing settings.
func mergeJSON(settings *RecallSettings, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	if enabledRaw, ok := raw["enabled"]; ok {
		var e bool
		if err := json.Unmarshal(enabledRaw, &e); err != nil {
			return fmt.Errorf("parsing enabled field: %w", err)
		}
		settings.Enabled = e
	}

	if logLevelRaw, ok := raw["log_level"]; ok {
		var ll string
		if err := json.Unmarshal(logLevelRaw, &ll); err != nil {
			return fmt.Errorf("parsing log_level field: %w", err)
		}
		if ll != "" {
			settings.LogLevel = ll
		}
	}

	if limitRaw, ok := raw["index_limit"]; ok {
		var n int
		if err := json.Unmarshal(limitRaw, &n); err != nil {
			return fmt.Errorf("parsing index_limit field: %w", err)
		}
		if n > 0 {
			settings.IndexLimit = n
		}
	}

	if telemetryRaw, ok := raw["telemetry"]; ok {
		var t bool
		if err := json.Unmarshal(telemetryRaw, &t); err != nil {
			return fmt.Errorf("parsing telemetry field: %w", err)
		}
		settings.Telemetry = &t
	}

	return nil
}

// Save writes settings to .recall/settings.json at the repository root.
func Save(settings *RecallSettings) error {
	path, err := paths.AbsPath(RecallSettingsFile)
	if err != nil {
		path = RecallSettingsFile
	}
	return saveToFile(path, settings)
}

func saveToFile(path string, settings *RecallSettings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}
