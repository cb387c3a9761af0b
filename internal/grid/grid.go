// Package grid produces gridded topography Sequences for a geographic region
// and serves them through the artifact cache.
package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/roach88/dapseq/internal/cache"
	"github.com/roach88/dapseq/internal/canon"
	"github.com/roach88/dapseq/internal/dap"
)

// Key derivation constants. Bump the domain version if the grid layout or
// sampling changes meaning.
const (
	KeyDomain = "dapseq/grid/v1"
	KeyPrefix = "topo"
)

// MaxPoints bounds NLon*NLat for one request.
const MaxPoints = 4_000_000

// Request describes a regular lon/lat grid.
type Request struct {
	West  float64 `json:"west" yaml:"west"`
	East  float64 `json:"east" yaml:"east"`
	South float64 `json:"south" yaml:"south"`
	North float64 `json:"north" yaml:"north"`
	NLon  int     `json:"nlon" yaml:"nlon"`
	NLat  int     `json:"nlat" yaml:"nlat"`
}

// Validate checks bounds and dimensions.
func (r Request) Validate() error {
	var errs []error
	bounds := []struct {
		name string
		v    float64
	}{{"west", r.West}, {"east", r.East}, {"south", r.South}, {"north", r.North}}
	for _, b := range bounds {
		if math.IsNaN(b.v) || math.IsInf(b.v, 0) {
			errs = append(errs, fmt.Errorf("%s is not finite", b.name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("grid: invalid request: %w", errors.Join(errs...))
	}
	if r.West < -180 || r.East > 360 || r.West > r.East {
		errs = append(errs, fmt.Errorf("longitude range [%g, %g] outside [-180, 360] or reversed", r.West, r.East))
	}
	if r.South < -90 || r.North > 90 || r.South > r.North {
		errs = append(errs, fmt.Errorf("latitude range [%g, %g] outside [-90, 90] or reversed", r.South, r.North))
	}
	if r.NLon < 1 || r.NLat < 1 {
		errs = append(errs, fmt.Errorf("grid needs at least 1x1 points, got %dx%d", r.NLon, r.NLat))
	} else if int64(r.NLon)*int64(r.NLat) > MaxPoints {
		errs = append(errs, fmt.Errorf("%dx%d points exceeds limit %d", r.NLon, r.NLat, MaxPoints))
	}
	if len(errs) > 0 {
		return fmt.Errorf("grid: invalid request: %w", errors.Join(errs...))
	}
	return nil
}

// Params returns the canonical parameter object the key is derived from.
func (r Request) Params() canon.Object {
	return canon.Object{
		"west":  canon.Float(r.West),
		"east":  canon.Float(r.East),
		"south": canon.Float(r.South),
		"north": canon.Float(r.North),
		"nlon":  canon.Int(r.NLon),
		"nlat":  canon.Int(r.NLat),
	}
}

// Key returns the cache key for r.
func (r Request) Key() (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	return canon.Key(KeyDomain, KeyPrefix, r.Params())
}

// Name returns a human-readable identifier such as
// "Topography_x140_X160_y-10_Y10_nx201_ny201". Distinct requests can share a
// Name when their bounds print alike; use Key for identity.
func (r Request) Name() string {
	return "Topography" +
		"_x" + shortFloat(r.West) +
		"_X" + shortFloat(r.East) +
		"_y" + shortFloat(r.South) +
		"_Y" + shortFloat(r.North) +
		"_nx" + strconv.Itoa(r.NLon) +
		"_ny" + strconv.Itoa(r.NLat)
}

func shortFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Lon returns the longitude of column i.
func (r Request) Lon(i int) float64 {
	return axis(r.West, r.East, r.NLon, i)
}

// Lat returns the latitude of row j.
func (r Request) Lat(j int) float64 {
	return axis(r.South, r.North, r.NLat, j)
}

func axis(lo, hi float64, n, i int) float64 {
	if n == 1 {
		return (lo + hi) / 2
	}
	return lo + (hi-lo)*float64(i)/float64(n-1)
}

// Sampler returns the surface value at a point.
type Sampler func(lon, lat float64) float32

// SyntheticRelief is a smooth deterministic stand-in for a bathymetry source,
// in metres: ocean basins around -4000 with ridges and continental highs.
func SyntheticRelief(lon, lat float64) float32 {
	x := lon * math.Pi / 180
	y := lat * math.Pi / 180
	h := -4000 +
		3500*math.Sin(3*x)*math.Cos(2*y) +
		900*math.Cos(7*x+1)*math.Sin(5*y) +
		250*math.Sin(13*x)*math.Sin(11*y+0.5)
	return float32(h)
}

// Template returns a fresh, empty grid Sequence:
// lon Float64, lat Float64, value Float32.
func Template() *dap.Sequence {
	s := dap.NewSequence("topography")
	s.AddVariable(dap.NewFloat64("lon", 0))
	s.AddVariable(dap.NewFloat64("lat", 0))
	s.AddVariable(dap.NewFloat32("value", 0))
	return s
}

// Build samples every grid point, latitude-major, into a new Sequence.
func Build(ctx context.Context, req Request, sample Sampler) (*dap.Sequence, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if sample == nil {
		sample = SyntheticRelief
	}

	s := Template()
	for j := 0; j < req.NLat; j++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lat := req.Lat(j)
		for i := 0; i < req.NLon; i++ {
			lon := req.Lon(i)
			row := s.NewRow()
			row[0].(*dap.Float64).Value = lon
			row[1].(*dap.Float64).Value = lat
			row[2].(*dap.Float32).Value = sample(lon, lat)
			if err := s.AddRow(row); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Codec persists grid Sequences as DAP sequence streams.
type Codec struct {
	// Peer selects the framing; nil means current framing.
	Peer *dap.Peer
}

var _ cache.Codec[*dap.Sequence] = Codec{}

func (c Codec) Encode(w io.Writer, s *dap.Sequence) error {
	return s.Encode(w)
}

// Decode reads one grid Sequence. A short or damaged stream fails, which
// the cache treats as a corrupt artifact.
func (c Codec) Decode(r io.Reader) (*dap.Sequence, error) {
	s := Template()
	if err := s.Decode(context.Background(), r, c.Peer, nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Fetch returns the grid for req through c, building it with sample on a miss.
func Fetch(ctx context.Context, c *cache.Cache[*dap.Sequence], req Request, sample Sampler) (*dap.Sequence, error) {
	key, err := req.Key()
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, key, func(ctx context.Context) (*dap.Sequence, error) {
		return Build(ctx, req, sample)
	})
}
