// Package harness runs wire conformance scenarios against the dap codec.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: observation_roundtrip
//	description: "Two rows survive encode and decode"
//	schema: ../schemas/observations.cue
//	sequence: obs
//	server: "3.2"
//	rows:
//	  - [1, 20.5]
//	  - [2, -3.25]
//	expect:
//	  rows: 2
//
// schema names a CUE file compiled by package compiler; sequence picks one
// declaration from it. Paths are relative to the scenario file.
//
// With rows, the harness builds a Sequence, encodes it and decodes the bytes
// into a fresh copy of the template. With wire (hex, whitespace ignored) the
// given bytes are decoded instead, which is how malformed and legacy streams
// are described.
//
// # Expectations
//
//   - rows: row count after decode
//   - error: "", "truncated", "framing", "cancelled" or "io"
//   - values: decoded row values; defaults to rows for clean round trips
//
// cancel_after stops the decode after that many cancellation checks.
//
// # Golden Files
//
// RunWithGolden snapshots the wire bytes, row count, byte count and decoded
// values to testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
