package store

import (
	"database/sql"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ReopenKeepsLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`INSERT INTO artifacts (key, path, size_bytes, fill_id, created_at, touched_at)
		VALUES ('topo-1', '/c/topo-1.dods', 12, 'f', 0, 0)`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open %d", i)

		var n int
		require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&n))
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"artifacts", "cache_events"}, ledgerTables(t, s.db))
		require.NoError(t, s.Close())
	}
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "ledger.db"))
	assert.ErrorContains(t, err, "store:")
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())

	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	for _, p := range pragmas {
		got, err := s.pragmaValue(p.name)
		require.NoError(t, err, p.name)
		assert.Equal(t, p.reads, got, p.name)
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t,
		[]string{"key", "path", "size_bytes", "fill_id", "created_at", "touched_at"},
		tableColumns(t, s.db, "artifacts"))
	assert.Equal(t,
		[]string{"seq", "id", "key", "outcome", "size_bytes", "at"},
		tableColumns(t, s.db, "cache_events"))
	assert.Contains(t, tableIndexes(t, s.db, "cache_events"), "idx_cache_events_key")
	assert.Contains(t, tableIndexes(t, s.db, "artifacts"), "idx_artifacts_path")
}

func TestSchema_Constraints(t *testing.T) {
	tests := []struct {
		name  string
		stmts []string
	}{
		{"unknown outcome", []string{
			`INSERT INTO cache_events (id, key, outcome, size_bytes, at) VALUES ('e1', 'k', 'exploded', 0, 0)`,
		}},
		{"negative artifact size", []string{
			`INSERT INTO artifacts (key, path, size_bytes, fill_id, created_at, touched_at) VALUES ('k', '/tmp/k', -1, 'f', 0, 0)`,
		}},
		{"duplicate event id", []string{
			`INSERT INTO cache_events (id, key, outcome, size_bytes, at) VALUES ('dup', 'k', 'cached', 0, 0)`,
			`INSERT INTO cache_events (id, key, outcome, size_bytes, at) VALUES ('dup', 'k', 'cached', 0, 0)`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			last := len(tt.stmts) - 1
			for _, stmt := range tt.stmts[:last] {
				_, err := s.db.Exec(stmt)
				require.NoError(t, err)
			}
			_, err := s.db.Exec(tt.stmts[last])
			assert.Error(t, err)
		})
	}
}

func TestMigrate_FromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, currentSchemaVersion, userVersion(t, s.db))
	assert.Contains(t, tableIndexes(t, s.db, "artifacts"), "idx_artifacts_path")
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, currentSchemaVersion, userVersion(t, s.db), "open %d", i)
		require.NoError(t, s.Close())
	}
}

func userVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var v int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&v))
	return v
}

func ledgerTables(t *testing.T, db *sql.DB) []string {
	t.Helper()
	names := queryNames(t, db,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	slices.Sort(names)
	return names
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryNames(t, db, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryNames(t, db, "SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
}

func queryNames(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()
	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
