// Package rlm runs LLM-driven analysis over the trailer index: a sandboxed
// JavaScript execution environment, a multi-turn REPL driver, and the local
// LLM client they share.
package rlm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/recallhq/cli/cmd/recall/cli/jsonutil"
)

// ConfigVersion is the persisted rlm-config format version.
const ConfigVersion = 1

// ErrConfigInvalid tags unreadable or malformed rlm-config files.
var ErrConfigInvalid = errors.New("io-failed")

// Config is the persisted RLM configuration at <git-dir>/info/rlm-config.json.
type Config struct {
	Version             int    `json:"version"`
	Enabled             bool   `json:"enabled"`
	Endpoint            string `json:"endpoint"`
	Model               string `json:"model"`
	TimeoutMs           int    `json:"timeoutMs"`
	MaxTokens           int    `json:"maxTokens"`
	ReplEnabled         bool   `json:"replEnabled"`
	ReplMaxIterations   int    `json:"replMaxIterations"`
	ReplMaxLlmCalls     int    `json:"replMaxLlmCalls"`
	ReplTimeoutBudgetMs int    `json:"replTimeoutBudgetMs"`
	ReplMaxOutputTokens int    `json:"replMaxOutputTokens"`
}

// DefaultConfig returns the configuration used when no file exists:
// everything disabled, pointed at a local Ollama.
func DefaultConfig() Config {
	return Config{
		Version:             ConfigVersion,
		Enabled:             false,
		Endpoint:            "http://localhost:11434",
		Model:               "qwen2.5-coder",
		TimeoutMs:           5000,
		MaxTokens:           256,
		ReplEnabled:         false,
		ReplMaxIterations:   6,
		ReplMaxLlmCalls:     10,
		ReplTimeoutBudgetMs: 15000,
		ReplMaxOutputTokens: 512,
	}
}

// LoadConfig reads the config file at path. A missing file yields the
// defaults; a malformed file is an error. Zero-valued numeric fields are
// backfilled from the defaults so a hand-edited partial file still works.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is from paths package or tests
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("%w: parsing rlm config: %v", ErrConfigInvalid, err)
	}

	defaults := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = defaults.TimeoutMs
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.ReplMaxIterations <= 0 {
		cfg.ReplMaxIterations = defaults.ReplMaxIterations
	}
	if cfg.ReplMaxLlmCalls <= 0 {
		cfg.ReplMaxLlmCalls = defaults.ReplMaxLlmCalls
	}
	if cfg.ReplTimeoutBudgetMs <= 0 {
		cfg.ReplTimeoutBudgetMs = defaults.ReplTimeoutBudgetMs
	}
	if cfg.ReplMaxOutputTokens <= 0 {
		cfg.ReplMaxOutputTokens = defaults.ReplMaxOutputTokens
	}
	return cfg, nil
}

// SaveConfig writes the config as pretty JSON at path.
func SaveConfig(path string, cfg Config) error {
	cfg.Version = ConfigVersion
	if err := jsonutil.WriteJSONFileAtomic(path, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}
