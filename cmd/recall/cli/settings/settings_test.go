package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileMissingYieldsDefaults(t *testing.T) {
	s, err := loadFromFile(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	assert.True(t, s.Enabled)
	assert.Empty(t, s.LogLevel)
	assert.Nil(t, s.Telemetry)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"enabled":false,"log_level":"debug","index_limit":100}`), 0o600))

	s, err := loadFromFile(path)
	require.NoError(t, err)

	assert.False(t, s.Enabled)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 100, s.IndexLimit)
}

func TestMergeJSONOverrides(t *testing.T) {
	s := &RecallSettings{Enabled: true, LogLevel: "info"}

	require.NoError(t, mergeJSON(s, []byte(`{"enabled":false,"telemetry":true}`)))

	assert.False(t, s.Enabled)
	assert.Equal(t, "info", s.LogLevel)
	require.NotNil(t, s.Telemetry)
	assert.True(t, *s.Telemetry)
}

func TestMergeJSONIgnoresEmptyLogLevel(t *testing.T) {
	s := &RecallSettings{Enabled: true, LogLevel: "warn"}

	require.NoError(t, mergeJSON(s, []byte(`{"log_level":""}`)))
	assert.Equal(t, "warn", s.LogLevel)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".recall", "settings.json")
	enabled := true
	want := &RecallSettings{Enabled: false, LogLevel: "debug", Telemetry: &enabled}

	require.NoError(t, saveToFile(path, want))

	got, err := loadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
