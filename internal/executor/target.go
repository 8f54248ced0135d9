// Package executor runs single commands against a target (the local host or
// a remote SSH session) under a pre-execution safety gate, streaming output
// incrementally and honoring mid-flight cancellation.
package executor

import (
	"context"

	"github.com/rcoury/aish/internal/models"
)

// Messages distinguishing the two user-driven non-error outcomes. A gate
// decline means the command never ran; an interrupt means it ran but did not
// finish.
const (
	DeclinedMessage    = "execution declined at safety gate"
	InterruptedMessage = "interrupted by user"
)

// Target executes one command in a working directory and reports the
// outcome. Implementations stream output as it becomes available and must
// never leak the child process or remote session on cancellation.
type Target interface {
	// Run executes command, streaming output incrementally. A cancelled ctx
	// interrupts the command: graceful termination first, forceful after a
	// short grace period. Run returns an error only for transport-level
	// failures; command failures are reported in the result.
	Run(ctx context.Context, command, workdir string) (*models.ExecutionResult, error)

	// Name identifies the target for logging ("local" or "ssh:host").
	Name() string

	// Close releases any held transport. Local targets are a no-op.
	Close() error
}

func declinedResult() *models.ExecutionResult {
	return &models.ExecutionResult{
		ExitCode:        -1,
		Stderr:          DeclinedMessage,
		WasExecuted:     false,
		CancelledByUser: true,
	}
}

func interruptedResult(stdout, stderr string) *models.ExecutionResult {
	if stderr != "" {
		stderr += "\n"
	}
	return &models.ExecutionResult{
		ExitCode:        -1,
		Stdout:          stdout,
		Stderr:          stderr + InterruptedMessage,
		WasExecuted:     true,
		CancelledByUser: true,
	}
}
