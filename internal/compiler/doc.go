// Package compiler turns CUE schema files into Sequence templates.
//
// A schema declares one or more sequences under the top-level "sequence"
// struct:
//
//	sequence: stations: {
//		columns: [
//			{name: "id", type: "int32"},
//			{name: "cast", type: "sequence", columns: [
//				{name: "depth", type: "float32"},
//			]},
//		]
//	}
//
// Column types are byte, int16, uint16, int32, uint32, float32, float64,
// string, structure and sequence; the last two take nested columns.
// Column order is preserved. Duplicate names compile; CheckSemantics on the
// result reports them.
package compiler
