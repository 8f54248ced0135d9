package recovery

import (
	"fmt"
	"strings"
)

// Default retry ceilings. Both are independently configurable.
const (
	DefaultMaxRetries             = 3
	DefaultMaxConsecutiveFailures = 5
)

// Manager owns the retry state for one top-level run: per-command attempt
// counters and the consecutive-failure counter. It is constructed explicitly
// and passed into the orchestrator so independent runs never share state.
// The orchestrator is single-threaded, so Manager is not synchronized.
type Manager struct {
	classifier *Classifier

	maxRetries          int
	maxConsecutive      int
	attempts            map[string]int
	consecutiveFailures int
}

// NewManager creates a Manager with the given ceilings. Non-positive values
// fall back to the defaults.
func NewManager(maxRetries, maxConsecutive int) *Manager {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if maxConsecutive <= 0 {
		maxConsecutive = DefaultMaxConsecutiveFailures
	}
	return &Manager{
		classifier:     NewClassifier(),
		maxRetries:     maxRetries,
		maxConsecutive: maxConsecutive,
		attempts:       make(map[string]int),
	}
}

// SetElevationTool overrides the privilege-escalation prefix used by Analyze.
func (m *Manager) SetElevationTool(tool string) {
	if tool != "" {
		m.classifier.Elevation = tool
	}
}

// Analyze classifies a failed command's error output into a recovery
// decision. Stateless with respect to the retry counters.
func (m *Manager) Analyze(message, command string, exitCode int) ErrorAnalysis {
	return m.classifier.Analyze(message, command, exitCode)
}

// ShouldRetry decides whether the failed command may be retried and with what
// command. An empty retry command together with ok=true means the caller must
// request a new command from the planning oracle instead of retrying
// mechanically.
//
// Retries are refused outright when the consecutive-failure ceiling has been
// reached, when the analysis is unrecoverable, or when the command has hit
// its per-command attempt ceiling.
func (m *Manager) ShouldRetry(command string, analysis ErrorAnalysis) (bool, string) {
	if m.consecutiveFailures >= m.maxConsecutive {
		return false, ""
	}
	if !analysis.Recoverable {
		return false, ""
	}
	if m.attempts[command] >= m.maxRetries {
		return false, ""
	}

	switch analysis.Strategy {
	case StrategyRetryWithElevation, StrategyRetrySame:
		m.attempts[command]++
		return true, analysis.RetryCommand
	case StrategyAskOracle:
		return true, ""
	default: // StrategySkipAndContinue, StrategyAbort
		return false, ""
	}
}

// RecordOutcome updates the consecutive-failure counter: success resets it to
// zero, failure increments it.
func (m *Manager) RecordOutcome(success bool) {
	if success {
		m.consecutiveFailures = 0
	} else {
		m.consecutiveFailures++
	}
}

// AttemptCount returns how many retries the given command has consumed.
func (m *Manager) AttemptCount(command string) int {
	return m.attempts[command]
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (m *Manager) ConsecutiveFailures() int {
	return m.consecutiveFailures
}

// MaxRetries returns the per-command attempt ceiling.
func (m *Manager) MaxRetries() int {
	return m.maxRetries
}

// Exhausted reports whether the consecutive-failure ceiling has been reached.
// It is the sole abort trigger independent of per-command retry caps.
func (m *Manager) Exhausted() bool {
	return m.consecutiveFailures >= m.maxConsecutive
}

// Reset clears all counters. Called only at the start of a new top-level run;
// counters are never reset across phases within the same run.
func (m *Manager) Reset() {
	m.attempts = make(map[string]int)
	m.consecutiveFailures = 0
}

// RecoveryPrompt renders the fixed-structure brief handed to the planning
// oracle when a step needs a revised command. Deterministic for fixed input.
func (m *Manager) RecoveryPrompt(analysis ErrorAnalysis) string {
	var sb strings.Builder
	sb.WriteString("The previous step failed and needs fixing:\n\n")
	fmt.Fprintf(&sb, "Error kind: %s\n", analysis.Kind)
	fmt.Fprintf(&sb, "Failed command: %s\n", analysis.Command)
	fmt.Fprintf(&sb, "Error message: %s\n", analysis.Message)
	fmt.Fprintf(&sb, "Analysis: %s\n", analysis.Explanation)
	sb.WriteString(`
Analyze the cause and generate corrected steps. Consider:
1. whether a different command or tool is needed
2. whether arguments or paths need adjusting
3. whether a preparatory step must run first
4. whether the environment or a dependency must be checked

Generate new steps that resolve this problem.`)
	return sb.String()
}
