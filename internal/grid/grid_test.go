package grid

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dapseq/internal/cache"
	"github.com/roach88/dapseq/internal/dap"
	"github.com/roach88/dapseq/internal/keylock"
)

var westPacific = Request{West: 140, East: 160, South: -10, North: 10, NLon: 21, NLat: 11}

func TestValidate(t *testing.T) {
	require.NoError(t, westPacific.Validate())
	require.NoError(t, Request{West: 0, East: 0, South: 0, North: 0, NLon: 1, NLat: 1}.Validate())

	tests := map[string]Request{
		"reversed lon":   {West: 10, East: 0, South: 0, North: 1, NLon: 2, NLat: 2},
		"lat too far":    {West: 0, East: 1, South: -91, North: 0, NLon: 2, NLat: 2},
		"no points":      {West: 0, East: 1, South: 0, North: 1, NLon: 0, NLat: 2},
		"too many":       {West: 0, East: 1, South: 0, North: 1, NLon: 4000, NLat: 4000},
		"east above 360": {West: 0, East: 400, South: 0, North: 1, NLon: 2, NLat: 2},
	}
	for name, r := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, r.Validate())
		})
	}
}

func TestKey_StableAndDistinct(t *testing.T) {
	k1, err := westPacific.Key()
	require.NoError(t, err)
	k2, err := westPacific.Key()
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Regexp(t, `^topo-[0-9a-f]{64}$`, k1)

	finer := westPacific
	finer.NLon = 201
	k3, err := finer.Key()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	_, err = Request{}.Key()
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "Topography_x140_X160_y-10_Y10_nx21_ny11", westPacific.Name())

	r := Request{West: -135.5, East: -105, South: 22.25, North: 50, NLon: 201, NLat: 301}
	assert.Equal(t, "Topography_x-135.5_X-105_y22.25_Y50_nx201_ny301", r.Name())
}

func TestAxes(t *testing.T) {
	assert.Equal(t, 140.0, westPacific.Lon(0))
	assert.Equal(t, 160.0, westPacific.Lon(20))
	assert.Equal(t, 141.0, westPacific.Lon(1))
	assert.Equal(t, -10.0, westPacific.Lat(0))
	assert.Equal(t, 10.0, westPacific.Lat(10))

	single := Request{West: 0, East: 10, South: 0, North: 4, NLon: 1, NLat: 1}
	assert.Equal(t, 5.0, single.Lon(0))
	assert.Equal(t, 2.0, single.Lat(0))
}

func TestBuild(t *testing.T) {
	s, err := Build(context.Background(), westPacific, nil)
	require.NoError(t, err)
	require.Equal(t, 21*11, s.RowCount())
	require.NoError(t, s.CheckSemantics(true))

	first, err := s.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []any{140.0, -10.0, SyntheticRelief(140, -10)}, first.Values())

	// Latitude-major: the second row steps longitude.
	second, err := s.Row(1)
	require.NoError(t, err)
	assert.Equal(t, 141.0, second.Values()[0])
	assert.Equal(t, -10.0, second.Values()[1])
}

func TestBuild_CustomSampler(t *testing.T) {
	req := Request{West: 0, East: 1, South: 0, North: 1, NLon: 2, NLat: 2}
	s, err := Build(context.Background(), req, func(lon, lat float64) float32 {
		return float32(lon*10 + lat)
	})
	require.NoError(t, err)

	var got []float32
	for i := 0; i < s.RowCount(); i++ {
		v, err := s.RowVariable(i, "value")
		require.NoError(t, err)
		got = append(got, v.(*dap.Float32).Value)
	}
	assert.Equal(t, []float32{0, 10, 1, 11}, got)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, westPacific, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSyntheticRelief_Deterministic(t *testing.T) {
	assert.Equal(t, SyntheticRelief(150.5, -3.25), SyntheticRelief(150.5, -3.25))
	assert.NotEqual(t, SyntheticRelief(0, 0), SyntheticRelief(45, 10))
}

func TestCodec_RoundTrip(t *testing.T) {
	s, err := Build(context.Background(), westPacific, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Codec{}.Encode(&buf, s))

	got, err := Codec{}.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, s.RowCount(), got.RowCount())
	for i := 0; i < s.RowCount(); i++ {
		want, _ := s.Row(i)
		have, _ := got.Row(i)
		assert.Equal(t, want.Values(), have.Values())
	}
}

func TestCodec_TruncatedFails(t *testing.T) {
	s, err := Build(context.Background(), westPacific, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Codec{}.Encode(&buf, s))
	data := buf.Bytes()

	_, err = Codec{}.Decode(bytes.NewReader(data[:len(data)/2]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func newGridCache(t *testing.T, dir string) *cache.Cache[*dap.Sequence] {
	t.Helper()
	c, err := cache.New[*dap.Sequence](keylock.NewRegistry(), Codec{},
		cache.Config{Dir: dir, Extension: ".dods"},
		cache.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return c
}

func TestFetch_SingleFlight(t *testing.T) {
	c := newGridCache(t, t.TempDir())

	var samples int64
	sampler := func(lon, lat float64) float32 {
		atomic.AddInt64(&samples, 1)
		return SyntheticRelief(lon, lat)
	}

	const callers = 8
	rowCounts := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := Fetch(context.Background(), c, westPacific, sampler)
			if assert.NoError(t, err) {
				rowCounts[i] = s.RowCount()
			}
		}(i)
	}
	wg.Wait()

	for _, n := range rowCounts {
		assert.Equal(t, 21*11, n)
	}
	assert.Equal(t, int64(21*11), atomic.LoadInt64(&samples), "grid sampled exactly once")
	assert.Equal(t, int64(1), c.NotCached())
	assert.Equal(t, int64(callers-1), c.Cached())
}

func TestFetch_RecoversFromTruncatedArtifact(t *testing.T) {
	c := newGridCache(t, t.TempDir())
	ctx := context.Background()

	_, err := Fetch(ctx, c, westPacific, nil)
	require.NoError(t, err)

	key, err := westPacific.Key()
	require.NoError(t, err)
	path := c.Path(key)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-4], 0o644))

	s, err := Fetch(ctx, c, westPacific, nil)
	require.NoError(t, err)
	assert.Equal(t, 21*11, s.RowCount())
	assert.Equal(t, int64(2), c.NotCached())

	// The rewritten artifact decodes cleanly.
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = Codec{}.Decode(f)
	assert.NoError(t, err)
}

func TestFetch_InvalidRequest(t *testing.T) {
	c := newGridCache(t, t.TempDir())
	_, err := Fetch(context.Background(), c, Request{}, nil)
	assert.Error(t, err)
}
