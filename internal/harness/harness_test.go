package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dapseq/internal/dap"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return s
}

func TestRun_RoundTripPasses(t *testing.T) {
	result, err := Run(loadTestScenario(t, "observation_roundtrip"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, len(result.Wire), result.Bytes)
	assert.Equal(t, KindNone, result.ErrorKind)
	assert.Equal(t, [][]any{{int32(1), 20.5}, {int32(2), -3.25}}, result.Values)
}

func TestRun_ReportsUnmetExpectations(t *testing.T) {
	scenario := loadTestScenario(t, "observation_roundtrip")
	scenario.Expect.Rows = 3
	scenario.Expect.Error = KindTruncated

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected truncated, got no error")
	assert.Contains(t, result.Errors[1], "rows: expected 3, got 2")
}

func TestRun_ValueMismatch(t *testing.T) {
	scenario := loadTestScenario(t, "legacy_partial_row")
	scenario.Expect.Values = [][]any{{1, 99.0}}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "values: row 0")
}

func TestRun_UnknownSequence(t *testing.T) {
	scenario := loadTestScenario(t, "observation_roundtrip")
	scenario.Sequence = "missing"

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `declares no sequence "missing"`)
}

func TestRun_BadRows(t *testing.T) {
	scenario := loadTestScenario(t, "observation_roundtrip")
	scenario.Rows = [][]any{{"not a number", 1.5}}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows:")
}

func TestRun_CancelledContext(t *testing.T) {
	scenario := loadTestScenario(t, "observation_roundtrip")
	scenario.Expect = Expect{Rows: 0, Error: KindCancelled, Values: [][]any{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New().Run(ctx, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.ErrorIs(t, result.DecodeErr, context.Canceled)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, KindNone},
		{&dap.FramingError{Sequence: "obs", Marker: 0x7f}, KindFraming},
		{fmt.Errorf("sequence %q: %w", "obs", dap.ErrTruncated), KindTruncated},
		{dap.ErrCancelled, KindCancelled},
		{io.ErrClosedPipe, KindIO},
		{errors.New("boom"), KindIO},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}

func TestEvaluateExpectations_SkipsValuesWhenNil(t *testing.T) {
	result := &Result{RowCount: 1, Values: [][]any{{int32(1)}}}
	assert.Empty(t, EvaluateExpectations(result, Expect{Rows: 1}, nil))
	assert.Len(t, EvaluateExpectations(result, Expect{Rows: 1}, [][]any{}), 1)
}
