package versioncheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOutdated(t *testing.T) {
	tests := []struct {
		current string
		latest  string
		want    bool
	}{
		{"1.0.0", "1.0.1", true},
		{"1.0.0", "1.0.0", false},
		{"1.2.0", "1.0.9", false},
		{"v0.9.0", "v1.0.0", true},
		{"0.9.0", "v1.0.0", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isOutdated(tt.current, tt.latest),
			"current %s latest %s", tt.current, tt.latest)
	}
}

func TestParseGitHubRelease(t *testing.T) {
	version, err := parseGitHubRelease([]byte(`{"tag_name":"v1.2.3","prerelease":false}`))
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", version)
}

func TestParseGitHubReleaseSkipsPrerelease(t *testing.T) {
	_, err := parseGitHubRelease([]byte(`{"tag_name":"v2.0.0-rc1","prerelease":true}`))
	require.Error(t, err)
}

func TestParseGitHubReleaseEmptyTag(t *testing.T) {
	_, err := parseGitHubRelease([]byte(`{"tag_name":"","prerelease":false}`))
	require.Error(t, err)
}
