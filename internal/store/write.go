package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/dapseq/internal/cache"
)

func validOutcome(outcome string) bool {
	switch outcome {
	case cache.OutcomeCached, cache.OutcomeNotCached, cache.OutcomeCorrupt, cache.OutcomeSkipped:
		return true
	}
	return false
}

// RecordEvent appends a cache outcome. A cached outcome also refreshes the
// artifact's touched_at, mirroring the file touch on a hit.
func (s *Store) RecordEvent(ctx context.Context, key, outcome string, sizeBytes int64) error {
	if !validOutcome(outcome) {
		return fmt.Errorf("record event: unknown outcome %q", outcome)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("record event: generate id: %w", err)
	}
	at := s.timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cache_events (id, key, outcome, size_bytes, at)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), key, outcome, sizeBytes, at)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	if outcome == cache.OutcomeCached {
		_, err = tx.ExecContext(ctx, `
			UPDATE artifacts SET touched_at = ? WHERE key = ?
		`, at, key)
		if err != nil {
			return fmt.Errorf("record event: touch artifact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// UpsertArtifact records a freshly persisted artifact. Refilling an existing
// key replaces its row and assigns a new fill ID.
func (s *Store) UpsertArtifact(ctx context.Context, key, path string, sizeBytes int64) error {
	fillID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("upsert artifact: generate fill id: %w", err)
	}
	at := s.timestamp()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (key, path, size_bytes, fill_id, created_at, touched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			path = excluded.path,
			size_bytes = excluded.size_bytes,
			fill_id = excluded.fill_id,
			created_at = excluded.created_at,
			touched_at = excluded.touched_at
	`, key, path, sizeBytes, fillID.String(), at, at)
	if err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

// DeleteArtifact removes the artifact row for key. Deleting a missing key is
// not an error.
func (s *Store) DeleteArtifact(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// DeleteArtifactsByPath removes rows whose files were pruned and returns how
// many rows went away.
func (s *Store) DeleteArtifactsByPath(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete artifacts: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, p := range paths {
		res, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE path = ?`, p)
		if err != nil {
			return 0, fmt.Errorf("delete artifacts: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete artifacts: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete artifacts: %w", err)
	}
	return total, nil
}
