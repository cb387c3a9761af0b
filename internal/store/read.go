package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Artifact is a ledger row for one persisted cache file.
type Artifact struct {
	Key       string
	Path      string
	SizeBytes int64
	FillID    string
	CreatedAt time.Time
	TouchedAt time.Time
}

// Event is one cache outcome.
type Event struct {
	Seq       int64
	ID        string
	Key       string
	Outcome   string
	SizeBytes int64
	At        time.Time
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (Artifact, error) {
	var a Artifact
	var created, touched int64
	if err := row.Scan(&a.Key, &a.Path, &a.SizeBytes, &a.FillID, &created, &touched); err != nil {
		return Artifact{}, err
	}
	a.CreatedAt = fromMillis(created)
	a.TouchedAt = fromMillis(touched)
	return a, nil
}

// Artifact returns the row for key, or ErrNotFound.
func (s *Store) Artifact(ctx context.Context, key string) (Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, path, size_bytes, fill_id, created_at, touched_at
		FROM artifacts
		WHERE key = ?
	`, key)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, fmt.Errorf("artifact %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("read artifact: %w", err)
	}
	return a, nil
}

// Artifacts returns every artifact ordered by key.
//
// Returns an empty slice (not nil) when the ledger is empty.
func (s *Store) Artifacts(ctx context.Context) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, path, size_bytes, fill_id, created_at, touched_at
		FROM artifacts
		ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// Events returns the outcomes recorded for key in the order they happened.
// An empty key returns every event.
func (s *Store) Events(ctx context.Context, key string) ([]Event, error) {
	query := `
		SELECT seq, id, key, outcome, size_bytes, at
		FROM cache_events
	`
	var args []any
	if key != "" {
		query += ` WHERE key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var at int64
		if err := rows.Scan(&e.Seq, &e.ID, &e.Key, &e.Outcome, &e.SizeBytes, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.At = fromMillis(at)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// OutcomeCounts returns how many events were recorded per outcome. Outcomes
// never recorded are absent from the map.
func (s *Store) OutcomeCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*)
		FROM cache_events
		GROUP BY outcome
		ORDER BY outcome COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return counts, nil
}
