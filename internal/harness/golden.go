package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// wordsPerLine is the number of 4-byte XDR words per hex dump line.
const wordsPerLine = 4

// Snapshot renders a result in the golden file format:
//
//	scenario: name
//	wire:
//	  5a000000 00000001 ...
//	rows: 2
//	bytes: 24
//	error: none
//	row 0: [1 20.5]
func Snapshot(name string, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	buf.WriteString("wire:\n")
	buf.WriteString(HexDump(result.Wire))
	fmt.Fprintf(&buf, "rows: %d\n", result.RowCount)
	fmt.Fprintf(&buf, "bytes: %d\n", result.Bytes)
	fmt.Fprintf(&buf, "error: %s\n", describeKindShort(result.ErrorKind))
	for i, row := range result.Values {
		fmt.Fprintf(&buf, "row %d: %v\n", i, row)
	}
	return buf.Bytes()
}

// HexDump formats b as indented lines of space separated 4-byte words. A
// trailing partial word is printed as is.
func HexDump(b []byte) string {
	var buf bytes.Buffer
	for line := 0; line*wordsPerLine*4 < len(b); line++ {
		buf.WriteString(" ")
		for w := 0; w < wordsPerLine; w++ {
			start := (line*wordsPerLine + w) * 4
			if start >= len(b) {
				break
			}
			end := min(start+4, len(b))
			fmt.Fprintf(&buf, " %x", b[start:end])
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

func describeKindShort(kind string) string {
	if kind == KindNone {
		return "none"
	}
	return kind
}

// RunWithGolden runs scenario, fails t on unmet expectations and compares the
// snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario.Name, result))
	return nil
}
