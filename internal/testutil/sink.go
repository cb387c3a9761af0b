package testutil

import "sync"

// ScriptedSink records decode progress and cancels on cue.
//
// It satisfies dap.ProgressSink. CancelAfter is the number of cancellation
// checks that pass before UserCancelled starts returning true; a negative
// value never cancels.
//
// Thread-safety: safe for concurrent use via internal mutex.
type ScriptedSink struct {
	mu          sync.Mutex
	bytes       int
	checks      int
	cancelAfter int
}

// NewScriptedSink creates a sink that cancels after cancelAfter checks.
func NewScriptedSink(cancelAfter int) *ScriptedSink {
	return &ScriptedSink{cancelAfter: cancelAfter}
}

// IncrementByteCount adds n to the running total.
func (s *ScriptedSink) IncrementByteCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytes += n
}

// UserCancelled counts the check and reports whether the script says stop.
func (s *ScriptedSink) UserCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	return s.cancelAfter >= 0 && s.checks > s.cancelAfter
}

// Bytes returns the total reported so far.
func (s *ScriptedSink) Bytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// Checks returns how many cancellation checks were made.
func (s *ScriptedSink) Checks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}
