package dap

import "context"

// ProgressSink receives byte counts during decode and may ask for the decode
// to stop. A nil ProgressSink is valid everywhere and does nothing.
type ProgressSink interface {
	IncrementByteCount(n int)
	UserCancelled() bool
}

func report(sink ProgressSink, n int) {
	if sink != nil {
		sink.IncrementByteCount(n)
	}
}

// checkCancelled runs before every element decode.
func checkCancelled(ctx context.Context, sink ProgressSink) error {
	if err := ctx.Err(); err != nil {
		return &cancelError{cause: err}
	}
	if sink != nil && sink.UserCancelled() {
		return ErrCancelled
	}
	return nil
}

// cancelError matches both ErrCancelled and the context error behind it.
type cancelError struct {
	cause error
}

func (e *cancelError) Error() string {
	return ErrCancelled.Error() + ": " + e.cause.Error()
}

func (e *cancelError) Unwrap() []error {
	return []error{ErrCancelled, e.cause}
}
