package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/dapseq/internal/testutil"
)

// createTestStore opens a fresh store in a temp dir, closed on cleanup.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createClockedStore returns a store stamped by a deterministic clock.
func createClockedStore(t *testing.T) (*Store, *testutil.DeterministicClock) {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	return createTestStore(t, WithClock(clock.Now)), clock
}
