// Package keylock provides a process-wide registry of per-key mutexes with
// bounded waits.
//
// The registry hands out one Mutex per key for its whole lifetime, so every
// caller asking for the same key contends on the same lock. Entries are never
// evicted; Len reports how many keys have been seen.
package keylock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// TimeoutError is returned when a lock could not be acquired in time.
type TimeoutError struct {
	Key  string
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("keylock: timed out after %s waiting for lock %q", e.Wait, e.Key)
}

// IsTimeout reports whether err is a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Registry maps keys to mutexes.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*Mutex)}
}

// Acquire returns the mutex for key, creating it on first use. It does not
// lock the mutex.
func (r *Registry) Acquire(key string) *Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.locks[key]
	if !ok {
		m = &Mutex{key: key, sem: semaphore.NewWeighted(1)}
		r.locks[key] = m
	}
	return m
}

// Len returns the number of keys ever acquired.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

// Mutex is a mutual exclusion lock for one key whose Lock can be bounded by
// a context or a timeout.
type Mutex struct {
	key string
	sem *semaphore.Weighted
}

// Key returns the key this mutex guards.
func (m *Mutex) Key() string { return m.key }

// Lock blocks until the mutex is held or ctx is done.
func (m *Mutex) Lock(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// LockTimeout waits at most d for the mutex. On expiry it returns a
// *TimeoutError naming the key; if ctx itself ends first, ctx's error is
// returned. A non-positive d waits without bound.
func (m *Mutex) LockTimeout(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return m.Lock(ctx)
	}
	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	if err := m.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TimeoutError{Key: m.key, Wait: d}
	}
	return nil
}

// TryLock takes the mutex if it is free.
func (m *Mutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

// Unlock releases the mutex. Unlocking an unlocked Mutex panics.
func (m *Mutex) Unlock() {
	m.sem.Release(1)
}
