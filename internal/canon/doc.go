// Package canon derives deterministic cache keys from request parameters.
//
// Parameters are expressed as a small sealed value set, serialized as RFC 8785
// canonical JSON and hashed with SHA-256 under a versioned domain. Two
// parameter sets produce the same key if and only if their canonical forms
// are byte-identical. Numbers are compared by value, not by Go kind: Int(140)
// and Float(140) are the same parameter.
package canon
