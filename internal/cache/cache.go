package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/roach88/dapseq/internal/canon"
	"github.com/roach88/dapseq/internal/keylock"
)

// Outcomes recorded in the ledger.
const (
	OutcomeCached    = "cached"
	OutcomeNotCached = "not_cached"
	OutcomeCorrupt   = "corrupt"
	OutcomeSkipped   = "skipped"
)

// DefaultLockTimeout bounds the wait for another caller computing the same key.
const DefaultLockTimeout = 10 * time.Minute

// DefaultExtension is used when Config.Extension is empty. Prune only ever
// touches names ending in the extension, so it is never empty.
const DefaultExtension = ".artifact"

// Codec serializes artifacts to and from their persisted form.
type Codec[T any] interface {
	Encode(w io.Writer, v T) error
	Decode(r io.Reader) (T, error)
}

// Ledger records cache activity. Implementations must be safe for concurrent
// use. Ledger failures are logged and do not fail a Get.
type Ledger interface {
	RecordEvent(ctx context.Context, key, outcome string, sizeBytes int64) error
	UpsertArtifact(ctx context.Context, key, path string, sizeBytes int64) error
	DeleteArtifact(ctx context.Context, key string) error
}

// ComputeFunc produces the artifact for a key on a miss. Its context carries
// the caller's values but is never cancelled.
type ComputeFunc[T any] func(ctx context.Context) (T, error)

// Config controls where and how artifacts persist.
type Config struct {
	// Dir holds artifact files. Empty means compute-only: nothing is read
	// or written, and Gets for one key are serialized but each computes.
	Dir string

	// MaxBytes skips persisting artifacts whose encoding is larger. Zero
	// means no limit.
	MaxBytes int64

	// LockTimeout bounds the wait for the per-key lock. Zero means
	// DefaultLockTimeout.
	LockTimeout time.Duration

	// Extension is appended to artifact file names, e.g. ".dods". It must
	// start with '.' and name at least one more character; empty means
	// DefaultExtension.
	Extension string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	logger *slog.Logger
	ledger Ledger
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLedger records every outcome in l.
func WithLedger(l Ledger) Option {
	return func(o *options) { o.ledger = l }
}

// Cache is a single-flight artifact cache.
//
// Thread-safety: safe for concurrent use. Gets for different keys proceed in
// parallel; Gets for the same key run one at a time.
type Cache[T any] struct {
	locks  *keylock.Registry
	codec  Codec[T]
	cfg    Config
	logger *slog.Logger
	ledger Ledger

	cached    atomic.Int64
	notCached atomic.Int64
}

// New creates a Cache. locks is typically shared process-wide so that every
// cache over the same keys serializes on the same mutexes.
func New[T any](locks *keylock.Registry, codec Codec[T], cfg Config, opts ...Option) (*Cache[T], error) {
	if locks == nil {
		return nil, errors.New("cache: nil lock registry")
	}
	if codec == nil {
		return nil, errors.New("cache: nil codec")
	}
	if cfg.MaxBytes < 0 {
		return nil, fmt.Errorf("cache: negative MaxBytes %d", cfg.MaxBytes)
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.Extension == "" {
		cfg.Extension = DefaultExtension
	}
	if len(cfg.Extension) < 2 || cfg.Extension[0] != '.' || strings.ContainsAny(cfg.Extension, `/\`) {
		return nil, fmt.Errorf("cache: invalid Extension %q", cfg.Extension)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[T]{
		locks:  locks,
		codec:  codec,
		cfg:    cfg,
		logger: o.logger,
		ledger: o.ledger,
	}, nil
}

// Dir returns the artifact directory, or "" in compute-only mode.
func (c *Cache[T]) Dir() string { return c.cfg.Dir }

// Path returns the artifact file for key, or "" in compute-only mode.
func (c *Cache[T]) Path(key string) string {
	if c.cfg.Dir == "" {
		return ""
	}
	return filepath.Join(c.cfg.Dir, canon.FileName(key)+c.cfg.Extension)
}

// Get returns the artifact for key, loading it from disk or computing it.
//
// Waiting for the key's lock is bounded by Config.LockTimeout and by ctx; a
// timeout returns a *keylock.TimeoutError naming the key. Once compute has
// started it runs to completion even if ctx is cancelled.
func (c *Cache[T]) Get(ctx context.Context, key string, compute ComputeFunc[T]) (T, error) {
	var zero T

	m := c.locks.Acquire(key)
	if err := m.LockTimeout(ctx, c.cfg.LockTimeout); err != nil {
		return zero, err
	}
	defer m.Unlock()

	path := c.Path(key)
	if path != "" {
		if v, ok := c.load(ctx, key, path); ok {
			n := c.cached.Add(1)
			c.logger.Debug("cache hit",
				"key", key,
				"cached", n,
				"not_cached", c.notCached.Load())
			return v, nil
		}
	}

	v, err := compute(context.WithoutCancel(ctx))
	if err != nil {
		return zero, fmt.Errorf("cache: compute %q: %w", key, err)
	}
	n := c.notCached.Add(1)

	var size int64
	if path != "" {
		size = c.persist(ctx, key, path, v)
	}
	c.record(ctx, key, OutcomeNotCached, size)
	c.logger.Debug("cache miss",
		"key", key,
		"cached", c.cached.Load(),
		"not_cached", n)
	return v, nil
}

// load touches and decodes an existing artifact. A file that cannot be
// decoded is deleted so the caller recomputes it.
func (c *Cache[T]) load(ctx context.Context, key, path string) (T, bool) {
	var zero T

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("cannot stat cached artifact", "key", key, "path", path, "error", err)
		}
		return zero, false
	}

	now := c.cfg.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		c.logger.Warn("cannot touch cached artifact", "key", key, "path", path, "error", err)
	}

	v, err := c.decodeFile(path)
	if err != nil {
		c.logger.Warn("discarding unreadable cached artifact; recomputing",
			"key", key,
			"path", path,
			"error", err)
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.logger.Warn("cannot delete cached artifact", "key", key, "path", path, "error", rmErr)
		}
		c.record(ctx, key, OutcomeCorrupt, info.Size())
		if c.ledger != nil {
			if err := c.ledger.DeleteArtifact(ctx, key); err != nil {
				c.logger.Warn("ledger delete failed", "key", key, "error", err)
			}
		}
		return zero, false
	}

	c.record(ctx, key, OutcomeCached, info.Size())
	return v, true
}

func (c *Cache[T]) decodeFile(path string) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return c.codec.Decode(f)
}

// persist writes v atomically and returns the encoded size. Failures are
// logged; the artifact is simply not cached.
func (c *Cache[T]) persist(ctx context.Context, key, path string, v T) int64 {
	var buf bytes.Buffer
	if err := c.codec.Encode(&buf, v); err != nil {
		c.logger.Warn("cannot encode artifact; not caching", "key", key, "error", err)
		return 0
	}
	size := int64(buf.Len())

	if c.cfg.MaxBytes > 0 && size > c.cfg.MaxBytes {
		c.logger.Debug("artifact too large to cache",
			"key", key,
			"size_bytes", size,
			"max_bytes", c.cfg.MaxBytes)
		c.record(ctx, key, OutcomeSkipped, size)
		return size
	}

	if err := writeAtomic(path, buf.Bytes()); err != nil {
		c.logger.Warn("cannot persist artifact; not caching", "key", key, "path", path, "error", err)
		return size
	}

	if c.ledger != nil {
		if err := c.ledger.UpsertArtifact(ctx, key, path, size); err != nil {
			c.logger.Warn("ledger upsert failed", "key", key, "error", err)
		}
	}
	return size
}

// writeAtomic writes data to a temp file in the target directory and renames
// it into place, so readers never observe a partial artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (c *Cache[T]) record(ctx context.Context, key, outcome string, size int64) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.RecordEvent(ctx, key, outcome, size); err != nil {
		c.logger.Warn("ledger record failed", "key", key, "outcome", outcome, "error", err)
	}
}

// Cached returns the number of Gets served from a persisted artifact.
func (c *Cache[T]) Cached() int64 { return c.cached.Load() }

// NotCached returns the number of Gets that ran compute.
func (c *Cache[T]) NotCached() int64 { return c.notCached.Load() }

// Stats returns a one-line summary of the hit counters.
func (c *Cache[T]) Stats() string {
	return fmt.Sprintf("cache cached=%d not_cached=%d", c.Cached(), c.NotCached())
}

// Prune deletes artifacts whose modification time is before now-olderThan
// and returns the paths it removed. Only files ending in Config.Extension are
// considered, plus temp files left by interrupted writes. Prune takes no key
// locks; a concurrent Get that loses its file recomputes.
func (c *Cache[T]) Prune(ctx context.Context, olderThan time.Duration) ([]string, error) {
	if c.cfg.Dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(c.cfg.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: prune: %w", err)
	}

	cutoff := c.cfg.Now().Add(-olderThan)
	var removed []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := e.Name()
		if e.IsDir() {
			continue
		}
		isTemp := strings.HasPrefix(name, ".") && strings.Contains(name, c.cfg.Extension+".tmp-")
		if !isTemp && !strings.HasSuffix(name, c.cfg.Extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(c.cfg.Dir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("cannot prune artifact", "path", path, "error", err)
			continue
		}
		removed = append(removed, path)
	}
	c.logger.Info("pruned cache", "dir", c.cfg.Dir, "removed", len(removed))
	return removed, nil
}
