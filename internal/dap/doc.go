// Package dap implements the DAP2 (OPeNDAP) value model and the wire codec
// for Sequence data.
//
// A Sequence is a table: a template of column definitions plus the rows
// materialized from it. Rows are written to the wire as a flat stream of
// 4-byte markers and XDR encoded elements:
//
//	0x5A 00 00 00  <row 0 elements>
//	0x5A 00 00 00  <row 1 elements>
//	0xA5 00 00 00
//
// Nested sequences write their own markers inline in the same stream; the
// nesting level never changes the bytes emitted.
//
// Peers older than DAP 2.15 do not send the end-of-sequence marker or the
// per-row start markers. A Peer selects the framing once, from the version
// the server announced, and every Decode made through that Peer uses it.
//
// # Variants
//
// The set of variables is closed: scalars (Byte, Int16, UInt16, Int32,
// UInt32, Float32, Float64, String), the Structure constructor and Sequence.
// Every variant implements the same Decode/Encode contract and the Sequence
// codec drives them once per column per row.
//
// # Ownership
//
// Containers own their members. Parent links are back-references used for
// path lookup only.
package dap
