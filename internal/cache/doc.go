// Package cache implements a get-or-compute cache of derived artifacts keyed
// by canonical strings.
//
// Concurrent requests for one key are serialized through a keylock.Registry,
// so at most one caller computes a given artifact while the rest wait and then
// read the persisted result. Artifacts live as files under a directory; a
// cache hit refreshes the file's modification time so age-based pruning keeps
// artifacts that are still in use.
//
// Unreadable artifacts are deleted and recomputed. Failing to persist a
// freshly computed artifact is logged and never fails the request.
package cache
