package models

// ExecutionResult is the boundary type returned by command execution targets.
//
// WasExecuted=false means the user vetoed execution at the safety gate. That
// outcome is distinct from a non-zero exit code and must never be treated as
// a command failure for retry purposes. An interrupted command sets
// WasExecuted=true and CancelledByUser=true: the command did run, it just
// didn't finish.
type ExecutionResult struct {
	ExitCode        int
	Stdout          string
	Stderr          string
	WasExecuted     bool
	CancelledByUser bool
}

// Succeeded reports whether the command ran to completion with exit code 0.
func (r *ExecutionResult) Succeeded() bool {
	return r.WasExecuted && !r.CancelledByUser && r.ExitCode == 0
}

// Declined reports whether the user vetoed execution at the safety gate.
func (r *ExecutionResult) Declined() bool {
	return !r.WasExecuted && r.CancelledByUser
}

// Interrupted reports whether the user interrupted the command mid-flight.
func (r *ExecutionResult) Interrupted() bool {
	return r.WasExecuted && r.CancelledByUser
}

// ErrorText returns the most useful error message for classification:
// stderr when present, otherwise stdout (some commands report errors there).
func (r *ExecutionResult) ErrorText() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.Stdout
}
