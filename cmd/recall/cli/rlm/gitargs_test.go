package rlm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeGitLogArgsAllowed(t *testing.T) {
	args := []string{"--grep=auth", "--no-merges", "--since=2026-01-01", "-n", "10", "--format=%H %s"}

	got, err := SanitizeGitLogArgs(args)
	require.NoError(t, err)
	assert.Equal(t, args, got)
}

func TestSanitizeGitLogArgsCapsN(t *testing.T) {
	got, err := SanitizeGitLogArgs([]string{"-n", "500"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-n", "50"}, got)
}

func TestSanitizeGitLogArgsInvalidN(t *testing.T) {
	for _, args := range [][]string{
		{"-n"},
		{"-n", "zero"},
		{"-n", "0"},
		{"-n", "-3"},
	} {
		_, err := SanitizeGitLogArgs(args)
		assert.ErrorIs(t, err, ErrInvalidN, "args %v", args)
	}
}

func TestSanitizeGitLogArgsDisallowedFlags(t *testing.T) {
	for _, args := range [][]string{
		{"--output=/tmp/x"},
		{"--exec=sh"},
		{"-p"},
		{"--all"},
	} {
		_, err := SanitizeGitLogArgs(args)
		assert.ErrorIs(t, err, ErrDisallowedFlag, "args %v", args)
	}
}

func TestSanitizeGitLogArgsDangerousCharacters(t *testing.T) {
	for _, args := range [][]string{
		{"--grep=x; rm -rf /"},
		{"--author=a|b"},
		{"--since=$(date)"},
		{"--grep=`id`"},
		{"--grep=a\\b"},
		{"branch&"},
	} {
		_, err := SanitizeGitLogArgs(args)
		assert.ErrorIs(t, err, ErrDangerousCharacter, "args %v", args)
	}
}

func TestSanitizeGitLogArgsPositional(t *testing.T) {
	got, err := SanitizeGitLogArgs([]string{"--grep=fix", "main"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--grep=fix", "main"}, got)
}
