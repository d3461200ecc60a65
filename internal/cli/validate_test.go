package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureQuest = "testdata/sunken_temple.json"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_CanonicalJSON(t *testing.T) {
	out, err := execute(t, "validate", "--format", "json", fixtureQuest)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "sunken_temple", []byte(out))
}

func TestValidate_Text(t *testing.T) {
	out, err := execute(t, "validate", fixtureQuest)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Sunken Temple (sunken_temple): 2 path(s)")
	assert.Contains(t, out, "1. Flooded Hall: 2 step(s), 45.5s, 2 effect(s)")
	assert.Contains(t, out, "2. Altar: 1 step(s), 30s, 0 effect(s)")
	assert.Contains(t, out, `skipped effect: effects[2]: invalid step "vibration"`)
}

func TestValidate_InvalidQuest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"title": "Broken",
		"paths": [{"path_name": "Only", "time_limit": 10,
			"solution_sequence": [{"sensor": "lever", "value": "up"}]}]
	}`), 0o644))

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "unknown sensor type")

	out, err = execute(t, "validate", "--format", "json", path)
	require.Error(t, err)
	assert.Contains(t, out, `"valid": false`)
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "version", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "questbox ")

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "boom", assert.AnError)))
}
