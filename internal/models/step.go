package models

import (
	"fmt"
	"strings"
	"time"
)

// StepStatus represents the lifecycle state of a phase or step.
type StepStatus int

const (
	StatusPending StepStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusSkipped
	StatusRetrying
)

// String returns the string representation of StepStatus.
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// Icon returns the single-rune progress marker used in summaries.
func (s StepStatus) Icon() string {
	switch s {
	case StatusPending:
		return "⧗"
	case StatusRunning:
		return "▶"
	case StatusSuccess:
		return "✓"
	case StatusFailed:
		return "✗"
	case StatusSkipped:
		return "⊘"
	case StatusRetrying:
		return "↻"
	default:
		return "?"
	}
}

// Step records one concrete command execution attempt and its outcome.
// A retried command produces a new Step rather than mutating the old one.
// Steps are immutable after creation except for Signals, which the history
// log fills in lazily from the output.
type Step struct {
	Description  string
	Command      string
	Output       string
	ExitCode     int
	Succeeded    bool
	Status       StepStatus
	ErrorMessage string

	// RetryCount is the number of prior failed attempts for this logical
	// step slot, not a global attempt counter.
	RetryCount int

	Duration time.Duration

	// Signals holds values extracted from Output (numbers, paths, IPs,
	// status keywords), capped per category to bound summary size.
	Signals map[string][]string
}

// Summary renders a one-step digest with truncated output for prompt context.
func (st *Step) Summary(maxOutput int) string {
	icon := "✗"
	if st.Succeeded {
		icon = "✓"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", icon, st.Description)

	if st.Output != "" {
		preview := st.Output
		if len(preview) > maxOutput {
			preview = preview[:maxOutput] + "..."
		}
		fmt.Fprintf(&sb, "\n   Output: %s", preview)
	}
	if st.ErrorMessage != "" {
		fmt.Fprintf(&sb, "\n   Error: %s", st.ErrorMessage)
	}
	return sb.String()
}
