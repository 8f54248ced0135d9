package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rcoury/aish/internal/models"
)

// DefaultGracePeriod is how long a cancelled local command gets to exit after
// the graceful termination signal before it is forcibly killed.
const DefaultGracePeriod = 2 * time.Second

// LocalTarget runs commands under the platform shell on the local host.
// Stdout and stderr are read concurrently so the caller sees partial output
// live and neither stream can starve the other.
type LocalTarget struct {
	// StdoutSink and StderrSink receive output incrementally as it arrives.
	// Nil sinks discard the live stream; output is always captured in the
	// result regardless.
	StdoutSink io.Writer
	StderrSink io.Writer

	// GracePeriod between graceful and forceful termination on cancel.
	GracePeriod time.Duration

	shell []string
}

// NewLocalTarget creates a LocalTarget streaming to the given sinks.
func NewLocalTarget(stdout, stderr io.Writer) *LocalTarget {
	return &LocalTarget{
		StdoutSink:  stdout,
		StderrSink:  stderr,
		GracePeriod: DefaultGracePeriod,
		shell:       platformShell(),
	}
}

func platformShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// Name implements Target.
func (t *LocalTarget) Name() string { return "local" }

// Close implements Target; local execution holds no transport.
func (t *LocalTarget) Close() error { return nil }

// Run implements Target. A workdir that does not exist is a precondition
// failure reported as exit -1 without spawning a process.
func (t *LocalTarget) Run(ctx context.Context, command, workdir string) (*models.ExecutionResult, error) {
	if workdir != "" {
		info, err := os.Stat(workdir)
		if err != nil || !info.IsDir() {
			return &models.ExecutionResult{
				ExitCode:    -1,
				Stderr:      fmt.Sprintf("working directory does not exist: %s", workdir),
				WasExecuted: true,
			}, nil
		}
	}

	shell := t.shell
	if len(shell) == 0 {
		shell = platformShell()
	}
	args := append(append([]string{}, shell[1:]...), command)
	cmd := exec.Command(shell[0], args...)
	cmd.Dir = workdir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return &models.ExecutionResult{
			ExitCode:    -1,
			Stderr:      fmt.Sprintf("failed to start command: %v", err),
			WasExecuted: true,
		}, nil
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go stream(&wg, stdoutPipe, &stdoutBuf, t.StdoutSink)
	go stream(&wg, stderrPipe, &stderrBuf, t.StderrSink)

	// Watch for cancellation while the command runs. Graceful first,
	// forceful after the grace period.
	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			terminate(cmd.Process, t.gracePeriod(), finished)
		case <-finished:
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()
	close(finished)

	if ctx.Err() != nil {
		return interruptedResult(stdoutBuf.String(), stderrBuf.String()), nil
	}

	result := &models.ExecutionResult{
		Stdout:      stdoutBuf.String(),
		Stderr:      stderrBuf.String(),
		WasExecuted: true,
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = waitErr.Error()
			}
		}
	}
	return result, nil
}

func (t *LocalTarget) gracePeriod() time.Duration {
	if t.GracePeriod <= 0 {
		return DefaultGracePeriod
	}
	return t.GracePeriod
}

// stream drains one pipe in small chunks, buffering everything and teeing to
// the live sink when one is attached.
func stream(wg *sync.WaitGroup, r io.Reader, buf *bytes.Buffer, sink io.Writer) {
	defer wg.Done()
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if sink != nil {
				sink.Write(chunk[:n]) //nolint:errcheck // live display is best-effort
			}
		}
		if err != nil {
			return
		}
	}
}

// terminate signals the process to exit, escalating to a kill when it is
// still alive after the grace period or when graceful signaling is
// unsupported on the platform.
func terminate(p *os.Process, grace time.Duration, finished <-chan struct{}) {
	if p == nil {
		return
	}
	if runtime.GOOS == "windows" {
		p.Kill() //nolint:errcheck
		return
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		p.Kill() //nolint:errcheck
		return
	}
	select {
	case <-finished:
	case <-time.After(grace):
		p.Kill() //nolint:errcheck
	}
}
