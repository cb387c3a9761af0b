package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dapseq/internal/grid"
)

var regionArgs = []string{"--west", "140", "--east", "160", "--south", "-10", "--north", "10", "--nlon", "3", "--nlat", "2"}

func TestGrid_ComputedThenCached(t *testing.T) {
	opts := &RootOptions{Format: "json", Config: testConfig(t)}

	out, err := runSub(t, NewGridCommand(opts), regionArgs...)
	require.NoError(t, err)
	first := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, false, first["cached"])
	assert.EqualValues(t, 6, first["rows"])
	assert.Equal(t, "Topography_x140_X160_y-10_Y10_nx3_ny2", first["name"])

	wantKey, err := grid.Request{West: 140, East: 160, South: -10, North: 10, NLon: 3, NLat: 2}.Key()
	require.NoError(t, err)
	assert.Equal(t, wantKey, first["key"])

	path := first["path"].(string)
	_, err = os.Stat(path)
	require.NoError(t, err, "artifact should be persisted")

	out, err = runSub(t, NewGridCommand(opts), regionArgs...)
	require.NoError(t, err)
	second := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, path, second["path"])
}

func TestGrid_RequestFile(t *testing.T) {
	opts := &RootOptions{Format: "text", Config: testConfig(t)}

	out, err := runSub(t, NewGridCommand(opts), "--request", filepath.Join("testdata", "region.yaml"), "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Topography_x140_X160_y-10_Y10_nx3_ny2 (topo-")
	assert.Contains(t, out, "6 row(s), computed")
	assert.Contains(t, out, "} topography = { { 140, -10, ")
}

func TestGrid_ComputeOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Dir = ""
	cfg.Store.Path = ""

	out, err := runSub(t, NewGridCommand(&RootOptions{Format: "text", Config: cfg}), regionArgs...)
	require.NoError(t, err)
	assert.Contains(t, out, "computed")
	assert.NotContains(t, out, "artifact:")
}

func TestGrid_InvalidRequest(t *testing.T) {
	opts := &RootOptions{Format: "text", Config: testConfig(t)}

	out, err := runSub(t, NewGridCommand(opts), "--west", "10", "--east", "0", "--nlon", "2", "--nlat", "2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeGrid+"]")
	assert.Contains(t, out, "reversed")
}

func TestGrid_BadRequestFile(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("westt: 1\n"), 0o644))

	out, err := runSub(t, NewGridCommand(&RootOptions{Format: "text", Config: testConfig(t)}), "--request", bad)
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeReadFailed+"]")
}
