package executor

import "fmt"

// SandboxViolation reports a script that failed the static screen. The
// script is never run, not even partially.
type SandboxViolation struct {
	Token  string
	Reason string
}

func (e *SandboxViolation) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("sandbox violation: %s (%q)", e.Reason, e.Token)
	}
	return fmt.Sprintf("sandbox violation: %s", e.Reason)
}

// TimeoutError reports a script operation that exceeded its wall-clock
// bound. Only the offending operation fails; prior mutations are kept.
type TimeoutError struct {
	Description string
	Limit       string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %q exceeded the %s execution limit", e.Description, e.Limit)
}

// OperationError wraps any failure of a single operation with its position
// and description so callers can report which step failed and why.
type OperationError struct {
	Index       int
	Description string
	Err         error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d (%s): %v", e.Index+1, e.Description, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
