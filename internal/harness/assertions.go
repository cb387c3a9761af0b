package harness

import (
	"fmt"
	"reflect"
)

// EvaluateExpectations compares a result against expect and returns one
// message per mismatch. want holds the expected row values; nil skips the
// value comparison.
func EvaluateExpectations(result *Result, expect Expect, want [][]any) []string {
	var errs []string

	if result.ErrorKind != expect.Error {
		errs = append(errs, fmt.Sprintf("error: expected %s, got %s (%v)",
			describeKind(expect.Error), describeKind(result.ErrorKind), result.DecodeErr))
	}

	if result.RowCount != expect.Rows {
		errs = append(errs, fmt.Sprintf("rows: expected %d, got %d", expect.Rows, result.RowCount))
	}

	if want != nil {
		errs = append(errs, compareValues(want, result.Values)...)
	}

	return errs
}

func compareValues(want, got [][]any) []string {
	if len(want) != len(got) {
		return []string{fmt.Sprintf("values: expected %d rows, got %d", len(want), len(got))}
	}
	var errs []string
	for i := range want {
		if !reflect.DeepEqual(want[i], got[i]) {
			errs = append(errs, fmt.Sprintf("values: row %d: expected %v, got %v", i, want[i], got[i]))
		}
	}
	return errs
}

func describeKind(kind string) string {
	if kind == KindNone {
		return "no error"
	}
	return kind
}
