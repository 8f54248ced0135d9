// Package history keeps the phase-structured record of everything executed
// in one run. Its bounded textual summary is the only channel by which prior
// execution history reaches the planning oracle.
package history

import (
	"fmt"
	"strings"

	"github.com/rcoury/aish/internal/models"
)

const (
	// maxVariablesShown bounds how many context variables a summary lists.
	maxVariablesShown = 10
	// maxOutputPreview bounds per-step output in summaries.
	maxOutputPreview = 200
)

// ExecutionLog is the append-only execution record for one run: phases, their
// steps, running totals and a variable store. It is owned by the single
// orchestrator goroutine and is not synchronized.
type ExecutionLog struct {
	phases       []*models.Phase
	currentPhase *models.Phase

	variables     map[string]string
	variableOrder []string

	totalSteps      int
	successfulSteps int
	failedSteps     int
}

// NewExecutionLog creates an empty log.
func NewExecutionLog() *ExecutionLog {
	return &ExecutionLog{variables: make(map[string]string)}
}

// StartPhase registers the phase and marks it running.
func (l *ExecutionLog) StartPhase(phase *models.Phase) {
	l.currentPhase = phase
	phase.Status = models.StatusRunning
	for _, p := range l.phases {
		if p == phase {
			return
		}
	}
	l.phases = append(l.phases, phase)
}

// RecordStep appends the step to the current phase, updates running totals
// and extracts signals from the step's output.
func (l *ExecutionLog) RecordStep(step *models.Step) error {
	if l.currentPhase == nil {
		return fmt.Errorf("no phase started")
	}
	l.currentPhase.AddStep(step)
	l.totalSteps++
	if step.Succeeded {
		l.successfulSteps++
	} else {
		l.failedSteps++
	}
	step.Signals = ExtractSignals(step.Output)
	return nil
}

// CompletePhase finalizes the current phase's status.
func (l *ExecutionLog) CompletePhase(success bool) {
	if l.currentPhase == nil {
		return
	}
	if success {
		l.currentPhase.Status = models.StatusSuccess
	} else {
		l.currentPhase.Status = models.StatusFailed
	}
	l.currentPhase = nil
}

// SetVariable stores a named value surfaced to the oracle in summaries.
func (l *ExecutionLog) SetVariable(name, value string) {
	if _, exists := l.variables[name]; !exists {
		l.variableOrder = append(l.variableOrder, name)
	}
	l.variables[name] = value
}

// Variable returns a stored value and whether it exists.
func (l *ExecutionLog) Variable(name string) (string, bool) {
	v, ok := l.variables[name]
	return v, ok
}

// AllSteps returns every recorded step in execution order.
func (l *ExecutionLog) AllSteps() []*models.Step {
	var steps []*models.Step
	for _, p := range l.phases {
		steps = append(steps, p.Steps...)
	}
	return steps
}

// RecentSteps returns the last n steps in execution order.
func (l *ExecutionLog) RecentSteps(n int) []*models.Step {
	steps := l.AllSteps()
	if len(steps) > n {
		steps = steps[len(steps)-n:]
	}
	return steps
}

// LastError returns the command and message of the most recent failed step.
func (l *ExecutionLog) LastError() (command, message string, ok bool) {
	steps := l.AllSteps()
	for i := len(steps) - 1; i >= 0; i-- {
		if !steps[i].Succeeded && steps[i].ErrorMessage != "" {
			return steps[i].Command, steps[i].ErrorMessage, true
		}
	}
	return "", "", false
}

// Totals reports the running step counters.
func (l *ExecutionLog) Totals() (total, succeeded, failed int) {
	return l.totalSteps, l.successfulSteps, l.failedSteps
}

// Phases returns all registered phases in declaration order.
func (l *ExecutionLog) Phases() []*models.Phase {
	return l.phases
}

// Summary renders the bounded execution digest handed to the oracle: phases
// with status icons, the most recent maxRecentSteps steps with truncated
// output, up to ten context variables and the final counters. Deterministic
// for fixed input.
func (l *ExecutionLog) Summary(maxRecentSteps int) string {
	var parts []string

	if len(l.phases) > 0 {
		parts = append(parts, "## Task phases:")
		for _, p := range l.phases {
			parts = append(parts, "  "+p.Summary())
		}
	}

	recent := l.RecentSteps(maxRecentSteps)
	if len(recent) > 0 {
		parts = append(parts, "\n## Recent steps:")
		for i, step := range recent {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, step.Summary(maxOutputPreview)))
		}
	}

	if len(l.variableOrder) > 0 {
		parts = append(parts, "\n## Context variables:")
		shown := l.variableOrder
		if len(shown) > maxVariablesShown {
			shown = shown[:maxVariablesShown]
		}
		for _, name := range shown {
			value := l.variables[name]
			if len(value) > 100 {
				value = value[:100]
			}
			parts = append(parts, fmt.Sprintf("  - %s = %s", name, value))
		}
	}

	parts = append(parts, "\n## Execution totals:")
	parts = append(parts, fmt.Sprintf("  - total steps: %d", l.totalSteps))
	parts = append(parts, fmt.Sprintf("  - succeeded: %d", l.successfulSteps))
	parts = append(parts, fmt.Sprintf("  - failed: %d", l.failedSteps))

	if l.totalSteps == 0 && len(l.phases) == 0 {
		return "no execution history"
	}
	return strings.Join(parts, "\n")
}
