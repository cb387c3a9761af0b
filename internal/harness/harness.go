package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/dapseq/internal/compiler"
	"github.com/roach88/dapseq/internal/dap"
	"github.com/roach88/dapseq/internal/testutil"
)

// Harness runs scenarios. The zero value is not usable; call New.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. By default logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and evaluates its expectations.
//
// The returned error covers setup problems (schema, rows). Decode errors
// are part of the Result and are compared against Expect.Error.
//
// Execution flow:
//  1. Compile the schema and pick the named sequence
//  2. Encode Rows, or take Wire as is
//  3. Decode into a fresh copy of the template
//  4. Compare row count, error kind and values
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	tmpl, err := loadTemplate(scenario.Schema, scenario.Sequence)
	if err != nil {
		return nil, err
	}

	var peer *dap.Peer
	if scenario.Server != "" {
		v, err := dap.ParseServerVersion(scenario.Server)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		peer = dap.NewPeer(v)
	}

	wire, err := scenarioWire(scenario, tmpl)
	if err != nil {
		return nil, err
	}

	cancelAfter := -1
	if scenario.CancelAfter != nil {
		cancelAfter = *scenario.CancelAfter
	}
	sink := testutil.NewScriptedSink(cancelAfter)

	got := tmpl.Clone().(*dap.Sequence)
	decodeErr := got.Decode(ctx, bytes.NewReader(wire), peer, sink)

	result := NewResult()
	result.Wire = wire
	result.RowCount = got.RowCount()
	result.Bytes = sink.Bytes()
	result.DecodeErr = decodeErr
	result.ErrorKind = ErrorKind(decodeErr)
	result.Values = rowValues(got)

	h.logger.Debug("scenario decoded",
		"scenario", scenario.Name,
		"rows", result.RowCount,
		"bytes", result.Bytes,
		"error_kind", result.ErrorKind)

	want, err := expectedValues(scenario, tmpl)
	if err != nil {
		return nil, err
	}
	for _, msg := range EvaluateExpectations(result, scenario.Expect, want) {
		result.AddError(msg)
	}
	return result, nil
}

// ErrorKind classifies a decode error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return KindNone
	case dap.IsFramingError(err):
		return KindFraming
	case errors.Is(err, dap.ErrTruncated):
		return KindTruncated
	case dap.IsCancelled(err):
		return KindCancelled
	default:
		return KindIO
	}
}

func loadTemplate(path, name string) (*dap.Sequence, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	seqs, errs := compiler.CompileSource(path, src)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to compile schema: %w", errors.Join(errs...))
	}
	for _, s := range seqs {
		if s.Name() == name {
			if err := s.CheckSemantics(true); err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	return nil, fmt.Errorf("schema %s declares no sequence %q", path, name)
}

func scenarioWire(scenario *Scenario, tmpl *dap.Sequence) ([]byte, error) {
	if scenario.Wire != "" {
		return decodeHex(scenario.Wire)
	}
	src, err := buildSequence(tmpl, scenario.Rows)
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	var buf bytes.Buffer
	if err := src.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// expectedValues returns the rows the decode should produce, typed through
// the template so they compare equal to decoded values. nil means values are
// not checked.
func expectedValues(scenario *Scenario, tmpl *dap.Sequence) ([][]any, error) {
	rows := scenario.Expect.Values
	if rows == nil && scenario.Wire == "" && scenario.Expect.Error == KindNone {
		rows = scenario.Rows
		if rows == nil {
			rows = [][]any{}
		}
	}
	if rows == nil {
		return nil, nil
	}
	s, err := buildSequence(tmpl, rows)
	if err != nil {
		return nil, fmt.Errorf("expect.values: %w", err)
	}
	return rowValues(s), nil
}

func buildSequence(tmpl *dap.Sequence, rows [][]any) (*dap.Sequence, error) {
	s := tmpl.Clone().(*dap.Sequence)
	raw := make([]any, len(rows))
	for i, r := range rows {
		raw[i] = r
	}
	if err := dap.Assign(s, raw); err != nil {
		return nil, err
	}
	return s, nil
}

func rowValues(s *dap.Sequence) [][]any {
	out := make([][]any, 0, s.RowCount())
	for i := range s.RowCount() {
		row, _ := s.Row(i)
		out = append(out, row.Values())
	}
	return out
}
