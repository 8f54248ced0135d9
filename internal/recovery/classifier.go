// Package recovery implements error classification and the retry/recovery
// state machine that decides whether, and how, a failed command is retried.
package recovery

import (
	"regexp"
	"strings"
)

// ErrorKind is the fixed taxonomy of command failure kinds.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindCommandNotFound
	KindPermissionDenied
	KindFileNotFound
	KindNetworkError
	KindSyntaxError
	KindResourceUnavailable
	KindLogicError
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindCommandNotFound:
		return "command_not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindFileNotFound:
		return "file_not_found"
	case KindNetworkError:
		return "network_error"
	case KindSyntaxError:
		return "syntax_error"
	case KindResourceUnavailable:
		return "resource_unavailable"
	case KindLogicError:
		return "logic_error"
	default:
		return "unknown"
	}
}

// RecoveryStrategy is the action the retry machinery takes for a classified
// failure.
type RecoveryStrategy int

const (
	// StrategyAskOracle requests a revised command from the planning oracle.
	StrategyAskOracle RecoveryStrategy = iota
	// StrategyRetryWithElevation reruns the command prefixed with the
	// elevation tool.
	StrategyRetryWithElevation
	// StrategyRetrySame reruns the original command unchanged.
	StrategyRetrySame
	// StrategySkipAndContinue abandons the step but keeps executing.
	StrategySkipAndContinue
	// StrategyAbort stops the run; the failure is not locally recoverable.
	StrategyAbort
)

// String returns the string representation of RecoveryStrategy.
func (s RecoveryStrategy) String() string {
	switch s {
	case StrategyAskOracle:
		return "ask_oracle_for_fix"
	case StrategyRetryWithElevation:
		return "retry_with_elevation"
	case StrategyRetrySame:
		return "retry_same"
	case StrategySkipAndContinue:
		return "skip_and_continue"
	case StrategyAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// ErrorAnalysis is the stateless recovery decision derived from a failed
// command's error message and exit code. It is recomputed on every failure.
type ErrorAnalysis struct {
	Kind         ErrorKind
	Message      string
	Command      string
	Strategy     RecoveryStrategy
	RetryCommand string
	Explanation  string
	Recoverable  bool
}

// kindPatterns binds one error kind to its message patterns. Table order is
// significant: the first matching kind wins, and permission patterns must be
// tried before the generic "not found" patterns.
type kindPatterns struct {
	kind     ErrorKind
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile("(?i)"+e))
	}
	return out
}

var classificationTable = []kindPatterns{
	{KindPermissionDenied, compileAll(
		`permission denied`,
		`access denied`,
		`operation not permitted`,
		`insufficient privileges`,
		`must be root`,
		`requires root`,
	)},
	{KindCommandNotFound, compileAll(
		`command not found`,
		`is not recognized`,
		`no such file or directory.*bin`,
		`not found`,
	)},
	{KindFileNotFound, compileAll(
		`no such file or directory`,
		`cannot find`,
		`does not exist`,
		`file not found`,
	)},
	{KindNetworkError, compileAll(
		`connection refused`,
		`network unreachable`,
		`could not resolve host`,
		`connection timed out`,
		`timeout`,
	)},
	{KindSyntaxError, compileAll(
		`syntax error`,
		`unexpected token`,
		`invalid syntax`,
		`parse error`,
	)},
	{KindResourceUnavailable, compileAll(
		`no space left`,
		`out of memory`,
		`resource temporarily unavailable`,
		`too many open files`,
	)},
	{KindLogicError, compileAll(
		`assertion failed`,
		`traceback \(most recent call last\)`,
		`segmentation fault`,
	)},
}

// Classify matches an error message against the fixed pattern table and
// returns the first matching kind. Unmatched input always yields KindUnknown;
// Classify never fails.
func Classify(message string) ErrorKind {
	for _, entry := range classificationTable {
		for _, pattern := range entry.patterns {
			if pattern.MatchString(message) {
				return entry.kind
			}
		}
	}
	return KindUnknown
}

// DefaultElevationTool prefixes a retried command after a permission failure.
const DefaultElevationTool = "sudo"

// Classifier layers the recovery decision table on top of Classify.
type Classifier struct {
	// Elevation is the privilege-escalation prefix, "sudo" by default.
	Elevation string
}

// NewClassifier returns a Classifier using the default elevation tool.
func NewClassifier() *Classifier {
	return &Classifier{Elevation: DefaultElevationTool}
}

func (c *Classifier) elevation() string {
	if c.Elevation == "" {
		return DefaultElevationTool
	}
	return c.Elevation
}

// Analyze classifies the error message and derives a recovery decision from
// (message, command, exitCode). The result is pure: identical inputs always
// yield the identical analysis.
func (c *Classifier) Analyze(message, command string, exitCode int) ErrorAnalysis {
	kind := Classify(message)

	analysis := ErrorAnalysis{
		Kind:        kind,
		Message:     message,
		Command:     command,
		Recoverable: true,
	}

	switch kind {
	case KindPermissionDenied:
		elev := c.elevation()
		if strings.HasPrefix(strings.TrimSpace(command), elev+" ") || strings.TrimSpace(command) == elev {
			analysis.Strategy = StrategyAskOracle
			analysis.Explanation = "still denied after elevation; needs a revised command"
		} else {
			analysis.Strategy = StrategyRetryWithElevation
			analysis.RetryCommand = elev + " " + command
			analysis.Explanation = "insufficient privileges; retrying with " + elev
		}
	case KindCommandNotFound:
		analysis.Strategy = StrategyAskOracle
		analysis.Explanation = "command does not exist; an alternative is needed"
	case KindFileNotFound:
		analysis.Strategy = StrategyAskOracle
		analysis.Explanation = "file or path missing; the path needs correcting or creating"
	case KindNetworkError:
		analysis.Strategy = StrategyRetrySame
		analysis.RetryCommand = command
		analysis.Explanation = "transient network failure; safe to retry as-is"
	case KindSyntaxError:
		analysis.Strategy = StrategyAskOracle
		analysis.Explanation = "command syntax is invalid and needs fixing"
	case KindResourceUnavailable:
		analysis.Strategy = StrategyAbort
		analysis.Recoverable = false
		analysis.Explanation = "system resources exhausted; local retries cannot fix this"
	default: // KindLogicError, KindUnknown
		analysis.Strategy = StrategyAskOracle
		analysis.Explanation = "unrecognized failure; needs analysis and a revised command"
	}

	return analysis
}
