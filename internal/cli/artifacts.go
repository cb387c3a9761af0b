package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/dapseq/internal/cache"
	"github.com/roach88/dapseq/internal/dap"
	"github.com/roach88/dapseq/internal/grid"
	"github.com/roach88/dapseq/internal/keylock"
	"github.com/roach88/dapseq/internal/store"
)

// locks is shared by every cache the process opens so that requests for the
// same key serialize regardless of which command built the cache.
var locks = keylock.NewRegistry()

// artifacts is the grid cache plus its optional ledger, built from config.
type artifacts struct {
	cache *cache.Cache[*dap.Sequence]
	store *store.Store // nil when store.path is not configured
}

// openArtifacts builds the grid cache described by opts' configuration.
// cacheDir overrides cache.dir when non-empty.
func openArtifacts(opts *RootOptions, cacheDir string) (*artifacts, error) {
	cfg := opts.config()
	if cacheDir != "" {
		cfg.Cache.Dir = cacheDir
	}

	a := &artifacts{}
	cacheOpts := []cache.Option{cache.WithLogger(opts.logger())}

	if cfg.Store.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.store = st
		cacheOpts = append(cacheOpts, cache.WithLedger(st))
	}

	c, err := cache.New[*dap.Sequence](locks, grid.Codec{}, cache.Config{
		Dir:         cfg.Cache.Dir,
		MaxBytes:    cfg.Cache.MaxBytes,
		LockTimeout: cfg.Cache.LockTimeout,
		Extension:   cfg.Cache.Extension,
	}, cacheOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cache = c
	return a, nil
}

// Close releases the ledger.
func (a *artifacts) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

var errNoStore = errors.New("store.path is not configured")
