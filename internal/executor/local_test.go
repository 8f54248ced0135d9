package executor

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell semantics")
	}
}

func TestLocalRunCapturesStdout(t *testing.T) {
	skipOnWindows(t)
	target := NewLocalTarget(nil, nil)

	result, err := target.Run(context.Background(), "echo hello", "")
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.True(t, result.WasExecuted)
	assert.False(t, result.CancelledByUser)
}

func TestLocalRunStreamsToSinks(t *testing.T) {
	skipOnWindows(t)
	var out, errSink bytes.Buffer
	target := NewLocalTarget(&out, &errSink)

	result, err := target.Run(context.Background(), "echo live; echo oops >&2", "")
	require.NoError(t, err)
	assert.Equal(t, "live\n", out.String())
	assert.Equal(t, "oops\n", errSink.String())
	assert.Equal(t, result.Stdout, out.String())
	assert.Equal(t, result.Stderr, errSink.String())
}

func TestLocalRunNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	target := NewLocalTarget(nil, nil)

	result, err := target.Run(context.Background(), "exit 3", "")
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.True(t, result.WasExecuted)
	assert.False(t, result.Succeeded())
}

func TestLocalRunHonorsWorkdir(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	target := NewLocalTarget(nil, nil)

	result, err := target.Run(context.Background(), "pwd", dir)
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, dir)
}

func TestLocalRunMissingWorkdir(t *testing.T) {
	target := NewLocalTarget(nil, nil)

	result, err := target.Run(context.Background(), "echo never", "/definitely/not/a/dir")
	require.NoError(t, err)
	assert.Equal(t, -1, result.ExitCode)
	assert.Contains(t, result.Stderr, "working directory does not exist")
	assert.Empty(t, result.Stdout, "no process may be spawned")
}

func TestLocalRunInterrupted(t *testing.T) {
	skipOnWindows(t)
	target := NewLocalTarget(nil, nil)
	target.GracePeriod = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result, err := target.Run(ctx, "sleep 30", "")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "interrupt must not wait out the sleep")

	assert.Equal(t, -1, result.ExitCode)
	assert.True(t, result.WasExecuted, "the command did run, it just didn't finish")
	assert.True(t, result.CancelledByUser)
	assert.True(t, result.Interrupted())
	assert.False(t, result.Declined(), "interrupt is distinguishable from a gate decline")
	assert.Contains(t, result.Stderr, InterruptedMessage)
}

func TestExecutorDeclinedShortCircuits(t *testing.T) {
	gate := NewGate(nil, ConfirmerFunc(func(string) bool { return false }))
	exec := New(NewLocalTarget(nil, nil), gate)

	result, err := exec.Execute(context.Background(), "rm -rf /tmp/x", "")
	require.NoError(t, err)
	assert.False(t, result.WasExecuted)
	assert.True(t, result.CancelledByUser)
	assert.True(t, result.Declined())
	assert.False(t, result.Interrupted())
	assert.Equal(t, DeclinedMessage, result.Stderr)
}

func TestExecutorPreApprovedRuns(t *testing.T) {
	skipOnWindows(t)
	gate := NewGate(nil, ConfirmerFunc(func(string) bool {
		t.Fatal("pre-approved command must not ask")
		return false
	}))
	exec := New(NewLocalTarget(nil, nil), gate)

	result, err := exec.Execute(context.Background(), "echo ok", "")
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}
