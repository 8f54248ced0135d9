package executor

import (
	"context"

	"github.com/rcoury/aish/internal/models"
)

// Executor binds a target to the safety gate. The orchestrator above is
// written against this type only and never talks to a target directly.
type Executor struct {
	target Target
	gate   *Gate
}

// New creates an Executor running commands on target behind gate.
func New(target Target, gate *Gate) *Executor {
	return &Executor{target: target, gate: gate}
}

// Target returns the underlying execution target.
func (e *Executor) Target() Target { return e.target }

// Execute runs one command in workdir after the safety check. A declined
// command yields WasExecuted=false and CancelledByUser=true without ever
// spawning; that outcome must short-circuit all retry logic above.
func (e *Executor) Execute(ctx context.Context, command, workdir string) (*models.ExecutionResult, error) {
	if e.gate != nil && !e.gate.Authorize(command) {
		return declinedResult(), nil
	}
	return e.target.Run(ctx, command, workdir)
}

// Close releases the target's transport.
func (e *Executor) Close() error {
	return e.target.Close()
}
