package dap

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrCancelled is returned when a decode is cancelled before an element
	// is read. Rows appended before the cancellation remain in the sequence.
	ErrCancelled = errors.New("dap: decode cancelled")

	// ErrOutOfRange is returned for a row index outside [0, RowCount()).
	ErrOutOfRange = errors.New("dap: row index out of range")

	// ErrRowMismatch is returned when a row does not line up with the
	// template (arity, column names or column types).
	ErrRowMismatch = errors.New("dap: row does not match template")

	// ErrTruncated is returned when, under current framing, the stream ends
	// before the end-of-sequence marker: at a marker or inside a row. It
	// wraps io.ErrUnexpectedEOF.
	ErrTruncated = fmt.Errorf("dap: stream ended before end-of-sequence marker: %w", io.ErrUnexpectedEOF)
)

// FramingError reports a marker byte that is neither start-of-instance nor
// end-of-sequence. The whole decode is aborted.
type FramingError struct {
	Sequence string
	Marker   byte
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("dap: sequence %q: start marker not found (marker=0x%02X)", e.Sequence, e.Marker)
}

// NoSuchVariableError reports a path segment that resolves to nothing.
type NoSuchVariableError struct {
	Container string
	Path      string
}

func (e *NoSuchVariableError) Error() string {
	return fmt.Sprintf("dap: %q has no variable %q", e.Container, e.Path)
}

// SemanticsError reports two siblings sharing a name.
type SemanticsError struct {
	Container string
	TypeName  string
	Name      string
}

func (e *SemanticsError) Error() string {
	return fmt.Sprintf("dap: %s %q: duplicate variable name %q", e.TypeName, e.Container, e.Name)
}

// IsFramingError reports whether err is (or wraps) a FramingError.
func IsFramingError(err error) bool {
	var fe *FramingError
	return errors.As(err, &fe)
}

// IsCancelled reports whether err is a decode cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsNotFound reports whether err is (or wraps) a NoSuchVariableError.
func IsNotFound(err error) bool {
	var ne *NoSuchVariableError
	return errors.As(err, &ne)
}

// isEOF matches both a clean end of stream and one that cut an element short.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
