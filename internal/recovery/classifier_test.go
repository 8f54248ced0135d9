package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKnownPatterns(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    ErrorKind
	}{
		{"command not found", "bash: foo: command not found", KindCommandNotFound},
		{"windows not recognized", "'foo' is not recognized as an internal or external command", KindCommandNotFound},
		{"missing binary", "sh: no such file or directory: /usr/local/bin/foo", KindCommandNotFound},
		{"permission denied", "cat: /etc/shadow: Permission denied", KindPermissionDenied},
		{"access denied", "Access denied for user root", KindPermissionDenied},
		{"not permitted", "rm: cannot remove 'x': Operation not permitted", KindPermissionDenied},
		{"must be root", "this operation must be root", KindPermissionDenied},
		{"file not found", "ls: cannot access '/tmp/gone': No such file or directory", KindFileNotFound},
		{"does not exist", "directory /opt/data does not exist", KindFileNotFound},
		{"connection refused", "curl: (7) Failed to connect: Connection refused", KindNetworkError},
		{"resolve host", "could not resolve host: example.invalid", KindNetworkError},
		{"timeout", "request timeout after 30s", KindNetworkError},
		{"syntax error", "sh: syntax error near unexpected token `('", KindSyntaxError},
		{"parse error", "awk: parse error at line 3", KindSyntaxError},
		{"disk full", "write failed: No space left on device", KindResourceUnavailable},
		{"oom", "fatal: Out of memory", KindResourceUnavailable},
		{"fd limit", "accept: too many open files", KindResourceUnavailable},
		{"assertion", "assertion failed: want 3, got 4", KindLogicError},
		{"segfault", "Segmentation fault (core dumped)", KindLogicError},
		{"unmatched", "everything is on fire in a novel way", KindUnknown},
		{"empty", "", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message))
		})
	}
}

// Permission patterns must win over the generic "not found" patterns when a
// message matches both.
func TestClassifyTableOrder(t *testing.T) {
	msg := "open /root/secret: permission denied (file not found fallback text)"
	assert.Equal(t, KindPermissionDenied, Classify(msg))
}

func TestAnalyzeStrategies(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name        string
		message     string
		command     string
		strategy    RecoveryStrategy
		retry       string
		recoverable bool
	}{
		{"permission gets elevation", "permission denied", "systemctl restart nginx", StrategyRetryWithElevation, "sudo systemctl restart nginx", true},
		{"already elevated asks oracle", "permission denied", "sudo systemctl restart nginx", StrategyAskOracle, "", true},
		{"command not found asks oracle", "zsh: command not found: kubcetl", "kubcetl get pods", StrategyAskOracle, "", true},
		{"file not found asks oracle", "no such file or directory", "cat /tmp/gone", StrategyAskOracle, "", true},
		{"network retries same", "connection refused", "curl http://localhost:8080", StrategyRetrySame, "curl http://localhost:8080", true},
		{"syntax asks oracle", "syntax error near token", "for i in; done", StrategyAskOracle, "", true},
		{"resource aborts", "no space left on device", "dd if=/dev/zero of=/tmp/big", StrategyAbort, "", false},
		{"unknown asks oracle", "inexplicable", "true", StrategyAskOracle, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := c.Analyze(tt.message, tt.command, 1)
			assert.Equal(t, tt.strategy, a.Strategy)
			assert.Equal(t, tt.retry, a.RetryCommand)
			assert.Equal(t, tt.recoverable, a.Recoverable)
			assert.Equal(t, tt.command, a.Command)
		})
	}
}

func TestAnalyzeCustomElevationTool(t *testing.T) {
	c := &Classifier{Elevation: "doas"}

	a := c.Analyze("permission denied", "reboot", 1)
	require.Equal(t, StrategyRetryWithElevation, a.Strategy)
	assert.Equal(t, "doas reboot", a.RetryCommand)

	a = c.Analyze("permission denied", "doas reboot", 1)
	assert.Equal(t, StrategyAskOracle, a.Strategy)
}

// The full permission round trip: a failing command is elevated once, and a
// second permission failure with the elevated form falls through to the
// oracle.
func TestPermissionRoundTrip(t *testing.T) {
	c := NewClassifier()

	first := c.Analyze("permission denied", "false", 1)
	require.Equal(t, KindPermissionDenied, first.Kind)
	require.Equal(t, StrategyRetryWithElevation, first.Strategy)
	require.Equal(t, "sudo false", first.RetryCommand)

	second := c.Analyze("permission denied", first.RetryCommand, 1)
	assert.Equal(t, StrategyAskOracle, second.Strategy)
	assert.Empty(t, second.RetryCommand)
}
