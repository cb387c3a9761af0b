// Package store provides a SQLite-backed ledger of cached artifacts.
//
// The ledger records:
//   - Artifacts: one row per persisted cache file, keyed by cache key
//   - Cache events: an append-only log of cache outcomes
//     (cached, not_cached, corrupt, skipped)
//
// The artifact files themselves stay on disk; the ledger is bookkeeping for
// the dapseq cache commands and is never consulted on the Get path.
//
// # Ordering
//
// Every query has a total order: events by seq then id, artifacts by key.
// Listing the same ledger twice yields identical results.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Event IDs and artifact fill IDs are UUIDv7, so they also sort by creation
// time.
package store
