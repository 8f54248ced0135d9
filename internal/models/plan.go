package models

import (
	"errors"
	"fmt"
)

// Structural validation errors for oracle responses. A plan failing these
// checks is a hard failure of that planning call, never retried silently.
var (
	ErrNoSteps      = errors.New("plan contains no steps")
	ErrEmptyCommand = errors.New("plan step has no command")
)

// PlanStep is one oracle-proposed step: a human-readable description plus the
// shell command that implements it.
type PlanStep struct {
	Description string `json:"description"`
	Command     string `json:"command"`
}

// PlanResponse is the oracle's structured answer to a step-generation call.
type PlanResponse struct {
	Thought    string     `json:"thought"`
	Steps      []PlanStep `json:"steps"`
	IsComplete bool       `json:"is_complete,omitempty"`
}

// Validate rejects structurally invalid oracle responses: a plan that claims
// more work but has no steps, or any step lacking a command.
func (p *PlanResponse) Validate() error {
	if len(p.Steps) == 0 {
		if p.IsComplete {
			return nil
		}
		return ErrNoSteps
	}
	for i, step := range p.Steps {
		if step.Command == "" {
			return fmt.Errorf("step %d (%q): %w", i+1, step.Description, ErrEmptyCommand)
		}
	}
	return nil
}

// PhaseSpec describes one phase of a decomposed plan as returned by the
// oracle. Dependencies reference other phases by ID.
type PhaseSpec struct {
	ID              int    `json:"phase_id"`
	Name            string `json:"name"`
	Goal            string `json:"goal"`
	Dependencies    []int  `json:"dependencies"`
	SuccessCriteria string `json:"success_criteria,omitempty"`
}

// PhasePlan is the oracle's phase decomposition of a complex goal.
type PhasePlan struct {
	Analysis   string      `json:"task_analysis"`
	Complexity string      `json:"complexity,omitempty"`
	Phases     []PhaseSpec `json:"phases"`
}

// Validate rejects a decomposition with no phases or an unnamed phase.
func (p *PhasePlan) Validate() error {
	if len(p.Phases) == 0 {
		return errors.New("phase plan contains no phases")
	}
	for _, ph := range p.Phases {
		if ph.Goal == "" && ph.Name == "" {
			return fmt.Errorf("phase %d has neither name nor goal", ph.ID)
		}
	}
	return nil
}
