package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario next to a copy of the observations schema.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	schema, err := os.ReadFile(filepath.Join("testdata", "schemas", "observations.cue"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "observations.cue"), schema, 0o644))

	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: roundtrip
description: "Round trip"
schema: observations.cue
sequence: obs
server: "2.14"
rows:
  - [1, 20.5]
expect:
  rows: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "roundtrip", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "observations.cue"), scenario.Schema)
	assert.Equal(t, "obs", scenario.Sequence)
	assert.Equal(t, "2.14", scenario.Server)
	require.Len(t, scenario.Rows, 1)
	assert.Equal(t, []any{1, 20.5}, scenario.Rows[0])
	assert.Equal(t, 1, scenario.Expect.Rows)
	assert.Nil(t, scenario.CancelAfter)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "Typo in expect"
schema: observations.cue
sequence: obs
expects:
  rows: 0
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing name", "description: d\nschema: observations.cue\nsequence: obs\n", "name is required"},
		{"missing description", "name: n\nschema: observations.cue\nsequence: obs\n", "description is required"},
		{"missing schema", "name: n\ndescription: d\nsequence: obs\n", "schema is required"},
		{"missing sequence", "name: n\ndescription: d\nschema: observations.cue\n", "sequence is required"},
		{"bad server", "name: n\ndescription: d\nschema: observations.cue\nsequence: obs\nserver: three\n", "server"},
		{"bad hex", "name: n\ndescription: d\nschema: observations.cue\nsequence: obs\nwire: 5a0\n", "wire"},
		{"rows and wire", "name: n\ndescription: d\nschema: observations.cue\nsequence: obs\nwire: a5000000\nrows: [[1, 2.5]]\n", "mutually exclusive"},
		{"negative rows", "name: n\ndescription: d\nschema: observations.cue\nsequence: obs\nexpect:\n  rows: -1\n", "expect.rows"},
		{"unknown error kind", "name: n\ndescription: d\nschema: observations.cue\nsequence: obs\nexpect:\n  error: boom\n", "expect.error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios_SortedByFileName(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "observation_roundtrip")
	assert.Contains(t, names, "legacy_partial_row")
}

func TestDecodeHex_IgnoresWhitespace(t *testing.T) {
	b, err := decodeHex("5a000000\n  a5000000")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x5a, 0, 0, 0, 0xa5, 0, 0, 0}, b)
}
