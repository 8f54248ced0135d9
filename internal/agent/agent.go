// Package agent drives a natural-language task to completion: it asks the
// oracle to decompose the task into phases, generates commands per phase,
// executes them through the safety gate, and feeds failures back through
// the recovery state machine.
package agent

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rcoury/aish/internal/executor"
	"github.com/rcoury/aish/internal/history"
	"github.com/rcoury/aish/internal/journal"
	"github.com/rcoury/aish/internal/logger"
	"github.com/rcoury/aish/internal/models"
	"github.com/rcoury/aish/internal/oracle"
	"github.com/rcoury/aish/internal/planner"
	"github.com/rcoury/aish/internal/recovery"
	"github.com/rcoury/aish/internal/shell"
)

// Terminal run outcomes that are not ordinary failures.
var (
	// ErrDeclined: the user vetoed a command at the safety gate.
	ErrDeclined = errors.New("run aborted: command declined at safety gate")
	// ErrInterrupted: the user interrupted a running command.
	ErrInterrupted = errors.New("run aborted: interrupted by user")
	// ErrTooManyFailures: the consecutive-failure ceiling was hit.
	ErrTooManyFailures = errors.New("run aborted: too many consecutive failures")
	// ErrUnrecoverable: a failure the recovery table marks as fatal.
	ErrUnrecoverable = errors.New("run aborted: unrecoverable failure")
)

// maxHistorySteps bounds the recent-step section of oracle prompts.
const maxHistorySteps = 5

// DefaultMaxPlanIterations caps oracle planning rounds within one phase.
const DefaultMaxPlanIterations = 10

// Options tune an agent run.
type Options struct {
	// MaxPlanIterations caps how many times the oracle is consulted per
	// phase before the phase is declared failed.
	MaxPlanIterations int

	// WorkDir is the starting working directory for commands. Empty
	// means the target's default.
	WorkDir string

	// ExtraContext is user-supplied reference material forwarded to
	// every oracle request.
	ExtraContext string

	// Environment is the target environment brief for prompts.
	Environment string
}

// Agent orchestrates one or more runs against a fixed target.
type Agent struct {
	oracle  oracle.Client
	exec    *executor.Executor
	retry   *recovery.Manager
	log     *logger.Console
	journal *journal.Journal // nil disables auditing

	opts    Options
	workdir string
	history *history.ExecutionLog
}

// New wires an agent. The journal may be nil.
func New(client oracle.Client, exec *executor.Executor, retry *recovery.Manager, log *logger.Console, jnl *journal.Journal, opts Options) *Agent {
	if opts.MaxPlanIterations <= 0 {
		opts.MaxPlanIterations = DefaultMaxPlanIterations
	}
	return &Agent{
		oracle:  client,
		exec:    exec,
		retry:   retry,
		log:     log,
		journal: jnl,
		opts:    opts,
	}
}

// History returns the execution log of the last run.
func (a *Agent) History() *history.ExecutionLog {
	return a.history
}

// Run executes the task to completion or a terminal failure.
func (a *Agent) Run(ctx context.Context, task string) error {
	a.retry.Reset()
	a.history = history.NewExecutionLog()
	a.workdir = a.opts.WorkDir

	runID := a.beginJournalRun(task)

	plan, err := a.decompose(ctx, task)
	if err != nil {
		a.finishJournalRun(runID, journal.RunStatusFailed)
		return err
	}

	p, err := planner.New(plan.Phases)
	if err != nil {
		a.finishJournalRun(runID, journal.RunStatusFailed)
		return fmt.Errorf("phase plan rejected: %w", err)
	}

	total := len(p.Phases())
	a.log.Infof("task split into %d phase(s): %s", total, plan.Analysis)

	err = a.runPhases(ctx, p, task, runID, total)
	switch {
	case err == nil:
		a.finishJournalRun(runID, journal.RunStatusSucceeded)
	case errors.Is(err, ErrDeclined) || errors.Is(err, ErrInterrupted):
		a.finishJournalRun(runID, journal.RunStatusAborted)
	default:
		a.finishJournalRun(runID, journal.RunStatusFailed)
	}
	return err
}

func (a *Agent) runPhases(ctx context.Context, p *planner.Planner, task, runID string, total int) error {
	index := 0
	for {
		phase := p.NextRunnable()
		if phase == nil {
			break
		}
		index++

		a.history.StartPhase(phase)
		a.log.PhaseStart(phase, index, total)
		started := time.Now()

		err := a.runPhase(ctx, phase, task, runID)
		succeeded := err == nil && !phase.HasFailed()
		a.history.CompletePhase(succeeded)
		a.log.PhaseComplete(phase, succeeded, time.Since(started))

		if err != nil {
			return err
		}
	}

	if stalled := p.Stalled(); len(stalled) > 0 {
		names := make([]string, 0, len(stalled))
		for _, phase := range stalled {
			names = append(names, phase.Name)
		}
		return fmt.Errorf("run incomplete: phases blocked by failed dependencies: %s", strings.Join(names, ", "))
	}
	if !p.IsComplete() {
		return fmt.Errorf("run incomplete: %d%% of phases succeeded", int(p.Progress()*100))
	}
	return nil
}

// decompose asks the oracle for a phase plan, falling back to a single
// catch-all phase when decomposition fails.
func (a *Agent) decompose(ctx context.Context, task string) (*models.PhasePlan, error) {
	plan, err := a.oracle.DecomposeTask(ctx, oracle.DecomposeRequest{
		Task:         task,
		Environment:  a.opts.Environment,
		ExtraContext: a.opts.ExtraContext,
	})
	if err == nil {
		return plan, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	a.log.Warnf("task decomposition failed (%v); running as a single phase", err)
	return &models.PhasePlan{
		Analysis:   task,
		Complexity: "simple",
		Phases: []models.PhaseSpec{{
			ID:              1,
			Name:            "execute",
			Goal:            task,
			SuccessCriteria: "the task is complete",
		}},
	}, nil
}

// runPhase loops oracle planning rounds until the phase completes, fails,
// or hits the iteration cap. guidance carries recovery briefs between
// rounds.
func (a *Agent) runPhase(ctx context.Context, phase *models.Phase, task, runID string) error {
	guidance := ""
	for iteration := 0; iteration < a.opts.MaxPlanIterations; iteration++ {
		plan, err := a.oracle.PlanSteps(ctx, oracle.StepsRequest{
			Task:         task,
			Phase:        phase,
			History:      a.history.Summary(maxHistorySteps),
			Environment:  a.opts.Environment,
			ExtraContext: a.opts.ExtraContext,
			Guidance:     guidance,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			phase.Status = models.StatusFailed
			return fmt.Errorf("planning phase %q: %w", phase.Name, err)
		}

		if plan.IsComplete && len(plan.Steps) == 0 {
			return nil
		}
		a.log.Debugf("oracle: %s", plan.Thought)

		guidance = ""
		for _, planned := range plan.Steps {
			outcome, err := a.executeStep(ctx, phase, runID, planned)
			if err != nil {
				return err
			}
			if outcome.regenerate != "" {
				// Discard the rest of this batch; later steps were
				// planned assuming this one succeeded.
				guidance = outcome.regenerate
				break
			}
			if outcome.phaseFailed {
				phase.Status = models.StatusFailed
				return nil
			}
		}

		if guidance == "" && plan.IsComplete {
			return nil
		}
	}

	phase.Status = models.StatusFailed
	a.log.Warnf("phase %q did not converge after %d planning rounds", phase.Name, a.opts.MaxPlanIterations)
	return nil
}

// stepOutcome signals how the phase loop should proceed after one step.
type stepOutcome struct {
	// regenerate, when non-empty, is the recovery brief for the next
	// oracle round.
	regenerate string
	// phaseFailed marks the phase as failed without aborting the run.
	phaseFailed bool
}

// executeStep runs one planned command, including its mechanical retries.
func (a *Agent) executeStep(ctx context.Context, phase *models.Phase, runID string, planned models.PlanStep) (stepOutcome, error) {
	command := planned.Command
	retries := 0

	for {
		parsed := shell.Parse(command)
		if parsed.Shape == shell.ShapeDirectoryChange {
			a.changeDir(phase, runID, planned.Description, parsed)
			return stepOutcome{}, nil
		}

		started := time.Now()
		result, err := a.exec.Execute(ctx, command, a.workdir)
		if err != nil {
			return stepOutcome{}, fmt.Errorf("executing %q: %w", command, err)
		}
		duration := time.Since(started)

		step := &models.Step{
			Description: planned.Description,
			Command:     command,
			Output:      result.Stdout,
			ExitCode:    result.ExitCode,
			Succeeded:   result.Succeeded(),
			RetryCount:  retries,
			Duration:    duration,
		}

		switch {
		case result.Declined():
			step.Status = models.StatusSkipped
			step.ErrorMessage = executor.DeclinedMessage
			a.recordStep(phase, runID, step)
			return stepOutcome{}, ErrDeclined

		case result.Interrupted():
			step.Status = models.StatusFailed
			step.ErrorMessage = executor.InterruptedMessage
			a.recordStep(phase, runID, step)
			return stepOutcome{}, ErrInterrupted

		case result.Succeeded():
			step.Status = models.StatusSuccess
			a.recordStep(phase, runID, step)
			a.retry.RecordOutcome(true)
			return stepOutcome{}, nil
		}

		// Failure path.
		step.Status = models.StatusFailed
		step.ErrorMessage = result.ErrorText()
		a.recordStep(phase, runID, step)
		a.retry.RecordOutcome(false)

		analysis := a.retry.Analyze(result.ErrorText(), command, result.ExitCode)
		ok, retryCommand := a.retry.ShouldRetry(command, analysis)

		switch {
		case ok && retryCommand != "":
			retries++
			a.log.RetryAttempt(command, a.retry.AttemptCount(command), a.retry.MaxRetries(), analysis.Explanation)
			command = retryCommand

		case ok:
			// The recovery table wants a revised plan from the oracle.
			return stepOutcome{regenerate: a.retry.RecoveryPrompt(analysis)}, nil

		case !analysis.Recoverable:
			return stepOutcome{}, fmt.Errorf("%w: %s", ErrUnrecoverable, analysis.Explanation)

		case a.retry.Exhausted():
			return stepOutcome{}, fmt.Errorf("%w (%d in a row)", ErrTooManyFailures, a.retry.ConsecutiveFailures())

		default:
			// Per-command retries exhausted; one more oracle round may
			// still find a different approach.
			return stepOutcome{regenerate: a.retry.RecoveryPrompt(analysis)}, nil
		}
	}
}

// changeDir intercepts a bare cd: it never reaches the target shell, it
// just moves the working directory every later command starts from.
func (a *Agent) changeDir(phase *models.Phase, runID, description string, parsed shell.Command) {
	target := parsed.TargetDir
	switch {
	case target == "" || target == "~":
		a.workdir = ""
	case path.IsAbs(target) || strings.HasPrefix(target, "~"):
		a.workdir = target
	case a.workdir != "":
		a.workdir = path.Join(a.workdir, target)
	default:
		a.workdir = target
	}

	step := &models.Step{
		Description: description,
		Command:     parsed.Raw,
		Succeeded:   true,
		Status:      models.StatusSuccess,
	}
	a.recordStep(phase, runID, step)
	a.retry.RecordOutcome(true)
	a.log.Debugf("working directory is now %q", a.workdir)
}

func (a *Agent) recordStep(phase *models.Phase, runID string, step *models.Step) {
	if err := a.history.RecordStep(step); err != nil {
		a.log.Warnf("history: %v", err)
	}
	a.log.StepResult(step)
	if a.journal != nil && runID != "" {
		if err := a.journal.RecordStep(runID, phase, step); err != nil {
			a.log.Warnf("journal: %v", err)
		}
	}
}

func (a *Agent) beginJournalRun(task string) string {
	if a.journal == nil {
		return ""
	}
	runID, err := a.journal.BeginRun(task, a.exec.Target().Name())
	if err != nil {
		a.log.Warnf("journal: %v", err)
		return ""
	}
	return runID
}

func (a *Agent) finishJournalRun(runID, status string) {
	if a.journal == nil || runID == "" {
		return
	}
	if err := a.journal.FinishRun(runID, status); err != nil {
		a.log.Warnf("journal: %v", err)
	}
}
