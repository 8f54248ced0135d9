package models

import "fmt"

// Phase is a dependency-ordered unit of a multi-step plan with its own goal
// and success criterion. Phases are created from oracle output and mutated
// only by the orchestrator: status transitions and step appends. A phase is
// runnable iff every phase it depends on has status StatusSuccess.
type Phase struct {
	ID              int
	Name            string
	Goal            string
	SuccessCriteria string
	Dependencies    []int
	Status          StepStatus
	Steps           []*Step
}

// AddStep appends an executed step to the phase.
func (p *Phase) AddStep(step *Step) {
	p.Steps = append(p.Steps, step)
}

// IsComplete reports whether the phase finished successfully.
func (p *Phase) IsComplete() bool {
	return p.Status == StatusSuccess
}

// HasFailed reports whether the phase failed.
func (p *Phase) HasFailed() bool {
	return p.Status == StatusFailed
}

// Summary renders a one-line phase digest with its status icon.
func (p *Phase) Summary() string {
	return fmt.Sprintf("%s Phase %d: %s (%d steps)", p.Status.Icon(), p.ID, p.Name, len(p.Steps))
}
