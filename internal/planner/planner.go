// Package planner holds the directed dependency graph of task phases and
// selects the next runnable phase. Phases execute strictly sequentially:
// later phases' oracle calls depend on completed-phase summaries.
package planner

import (
	"errors"
	"fmt"

	"github.com/rcoury/aish/internal/models"
)

// Graph construction errors, surfaced at phase-creation time instead of
// silently reporting "no next phase" later.
var (
	ErrNoPhases          = errors.New("plan has no phases")
	ErrDuplicatePhase    = errors.New("duplicate phase id")
	ErrUnknownDependency = errors.New("dependency on unknown phase")
	ErrCyclicDependency  = errors.New("cyclic phase dependency")
)

// Planner is the state machine over one run's phase set.
type Planner struct {
	phases []*models.Phase
	byID   map[int]*models.Phase
}

// New validates the phase specs (unique ids, known dependencies, no cycles)
// and builds the planner. Oracle-assigned phase order is preserved.
func New(specs []models.PhaseSpec) (*Planner, error) {
	if len(specs) == 0 {
		return nil, ErrNoPhases
	}

	p := &Planner{byID: make(map[int]*models.Phase, len(specs))}
	for _, spec := range specs {
		if _, exists := p.byID[spec.ID]; exists {
			return nil, fmt.Errorf("phase %d: %w", spec.ID, ErrDuplicatePhase)
		}
		phase := &models.Phase{
			ID:              spec.ID,
			Name:            spec.Name,
			Goal:            spec.Goal,
			SuccessCriteria: spec.SuccessCriteria,
			Dependencies:    spec.Dependencies,
			Status:          models.StatusPending,
		}
		p.phases = append(p.phases, phase)
		p.byID[spec.ID] = phase
	}

	for _, phase := range p.phases {
		for _, dep := range phase.Dependencies {
			if _, exists := p.byID[dep]; !exists {
				return nil, fmt.Errorf("phase %d depends on %d: %w", phase.ID, dep, ErrUnknownDependency)
			}
		}
	}

	if err := p.detectCycle(); err != nil {
		return nil, err
	}
	return p, nil
}

// detectCycle runs a colored DFS over the dependency edges.
func (p *Planner) detectCycle() error {
	const (
		white = 0 // not visited
		gray  = 1 // visiting
		black = 2 // visited
	)
	colors := make(map[int]int, len(p.phases))

	var dfs func(id int) error
	dfs = func(id int) error {
		colors[id] = gray
		for _, dep := range p.byID[id].Dependencies {
			switch colors[dep] {
			case gray:
				return fmt.Errorf("phase %d and %d: %w", id, dep, ErrCyclicDependency)
			case white:
				if err := dfs(dep); err != nil {
					return err
				}
			}
		}
		colors[id] = black
		return nil
	}

	for _, phase := range p.phases {
		if colors[phase.ID] == white {
			if err := dfs(phase.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Phases returns all phases in declared order.
func (p *Planner) Phases() []*models.Phase {
	return p.phases
}

// PhaseByID returns a phase by its id.
func (p *Planner) PhaseByID(id int) (*models.Phase, bool) {
	phase, ok := p.byID[id]
	return phase, ok
}

// runnable reports whether every dependency of the phase has succeeded.
func (p *Planner) runnable(phase *models.Phase) bool {
	for _, dep := range phase.Dependencies {
		if !p.byID[dep].IsComplete() {
			return false
		}
	}
	return true
}

// NextRunnable returns the first pending phase whose dependency set is
// entirely successful, preserving declared order. It returns nil when no
// such phase exists; callers must distinguish "all done" from "blocked" via
// IsComplete and Stalled.
func (p *Planner) NextRunnable() *models.Phase {
	for _, phase := range p.phases {
		if phase.Status == models.StatusPending && p.runnable(phase) {
			return phase
		}
	}
	return nil
}

// IsComplete is true iff every phase succeeded.
func (p *Planner) IsComplete() bool {
	for _, phase := range p.phases {
		if !phase.IsComplete() {
			return false
		}
	}
	return true
}

// Stalled returns pending phases whose dependency set can never be satisfied
// because some dependency failed or was skipped.
func (p *Planner) Stalled() []*models.Phase {
	var stalled []*models.Phase
	for _, phase := range p.phases {
		if phase.Status != models.StatusPending {
			continue
		}
		for _, dep := range phase.Dependencies {
			if s := p.byID[dep].Status; s == models.StatusFailed || s == models.StatusSkipped {
				stalled = append(stalled, phase)
				break
			}
		}
	}
	return stalled
}

// MarkSkipped transitions a pending phase to skipped. Skipped is reachable
// only from pending.
func (p *Planner) MarkSkipped(phase *models.Phase) {
	if phase.Status == models.StatusPending {
		phase.Status = models.StatusSkipped
	}
}

// HasFailed reports whether any phase failed.
func (p *Planner) HasFailed() bool {
	for _, phase := range p.phases {
		if phase.HasFailed() {
			return true
		}
	}
	return false
}

// Progress returns the fraction of phases that succeeded, in [0, 1].
func (p *Planner) Progress() float64 {
	if len(p.phases) == 0 {
		return 0
	}
	done := 0
	for _, phase := range p.phases {
		if phase.IsComplete() {
			done++
		}
	}
	return float64(done) / float64(len(p.phases))
}
