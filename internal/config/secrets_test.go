package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSecret_EnvOnly(t *testing.T) {
	t.Setenv("TEST_SECRET_ENV_ONLY", "env-value")

	value, err := ResolveSecret("TEST_SECRET_ENV_ONLY")
	require.NoError(t, err)
	assert.Equal(t, "env-value", value)
}

func TestResolveSecret_FilePrecedence(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secretFile, []byte("file-value\n"), 0600))

	t.Setenv("TEST_SECRET_BOTH", "env-value")
	t.Setenv("TEST_SECRET_BOTH_FILE", secretFile)

	value, err := ResolveSecret("TEST_SECRET_BOTH")
	require.NoError(t, err)
	assert.Equal(t, "file-value", value, "file wins and is trimmed")
}

func TestResolveSecret_MissingFile(t *testing.T) {
	t.Setenv("TEST_SECRET_MISSING_FILE", "/nonexistent/path/secret.txt")

	_, err := ResolveSecret("TEST_SECRET_MISSING")
	assert.Error(t, err)
}

func TestResolveSecret_NeitherSet(t *testing.T) {
	value, err := ResolveSecret("TEST_SECRET_NEITHER_SET")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestLoadSecrets_OperatorPair(t *testing.T) {
	t.Setenv(EnvOperatorUser, "gm")
	t.Setenv(EnvOperatorPass, "")

	_, err := LoadSecrets()
	assert.Error(t, err)

	t.Setenv(EnvOperatorPass, "s3cret")
	s, err := LoadSecrets()
	require.NoError(t, err)
	assert.True(t, s.OperatorAuthEnabled())
}
