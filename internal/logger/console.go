// Package logger provides the console logger for agent runs.
//
// Output is line-oriented with [HH:MM:SS] timestamps, filtered by log
// level, and colorized when writing to a TTY. All methods are safe for
// concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/rcoury/aish/internal/models"
)

const (
	levelDebug int = iota
	levelInfo
	levelWarn
	levelError
)

// Console writes timestamped, level-filtered log lines.
type Console struct {
	writer      io.Writer
	logLevel    int
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsole creates a logger writing to w. A nil writer discards all
// output. Invalid or empty levels default to "info".
func NewConsole(w io.Writer, logLevel string) *Console {
	return &Console{
		writer:      w,
		logLevel:    parseLevel(logLevel),
		colorOutput: isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func parseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

func (c *Console) log(level int, label string, message string) {
	if c == nil || c.writer == nil || level < c.logLevel {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.colorOutput {
		label = levelColor(label).Sprint(label)
	}
	fmt.Fprintf(c.writer, "[%s] [%s] %s\n", timestamp(), label, message)
}

func levelColor(label string) *color.Color {
	switch label {
	case "DEBUG":
		return color.New(color.FgCyan)
	case "INFO":
		return color.New(color.FgBlue)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New()
	}
}

// Debugf logs a debug-level message.
func (c *Console) Debugf(format string, args ...any) {
	c.log(levelDebug, "DEBUG", fmt.Sprintf(format, args...))
}

// Infof logs an info-level message.
func (c *Console) Infof(format string, args ...any) {
	c.log(levelInfo, "INFO", fmt.Sprintf(format, args...))
}

// Warnf logs a warning-level message.
func (c *Console) Warnf(format string, args ...any) {
	c.log(levelWarn, "WARN", fmt.Sprintf(format, args...))
}

// Errorf logs an error-level message.
func (c *Console) Errorf(format string, args ...any) {
	c.log(levelError, "ERROR", fmt.Sprintf(format, args...))
}

// PhaseStart announces a phase at INFO level.
// Format: "[HH:MM:SS] ▶ Phase 2/4: configure (write nginx config)"
func (c *Console) PhaseStart(phase *models.Phase, index, total int) {
	if c == nil || c.writer == nil || levelInfo < c.logLevel {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	name := phase.Name
	if c.colorOutput {
		name = color.New(color.Bold).Sprint(name)
	}
	fmt.Fprintf(c.writer, "[%s] ▶ Phase %d/%d: %s", timestamp(), index, total, name)
	if phase.Goal != "" {
		fmt.Fprintf(c.writer, " (%s)", phase.Goal)
	}
	fmt.Fprintln(c.writer)
}

// PhaseComplete reports a phase outcome with its duration.
func (c *Console) PhaseComplete(phase *models.Phase, succeeded bool, duration time.Duration) {
	if c == nil || c.writer == nil || levelInfo < c.logLevel {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	verdict := "failed"
	if succeeded {
		verdict = "complete"
	}
	if c.colorOutput {
		if succeeded {
			verdict = color.New(color.FgGreen).Sprint(verdict)
		} else {
			verdict = color.New(color.FgRed).Sprint(verdict)
		}
	}
	fmt.Fprintf(c.writer, "[%s] Phase %s %s (%s)\n", timestamp(), phase.Name, verdict, formatDuration(duration))
}

// StepResult reports a single executed step with its status icon.
func (c *Console) StepResult(step *models.Step) {
	if c == nil || c.writer == nil || levelInfo < c.logLevel {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	icon := step.Status.Icon()
	if c.colorOutput {
		switch step.Status {
		case models.StatusSuccess:
			icon = color.New(color.FgGreen).Sprint(icon)
		case models.StatusFailed:
			icon = color.New(color.FgRed).Sprint(icon)
		case models.StatusRetrying:
			icon = color.New(color.FgYellow).Sprint(icon)
		}
	}
	fmt.Fprintf(c.writer, "[%s] %s %s", timestamp(), icon, step.Description)
	if step.Command != "" {
		fmt.Fprintf(c.writer, "  $ %s", step.Command)
	}
	fmt.Fprintln(c.writer)
}

// RetryAttempt reports a retry decision at WARN level.
func (c *Console) RetryAttempt(command string, attempt, maxRetries int, reason string) {
	c.log(levelWarn, "WARN", fmt.Sprintf("retry %d/%d for %q: %s", attempt, maxRetries, command, reason))
}

// formatDuration renders durations compactly: 850ms, 3.2s, 1m05s, 1h02m.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		h := d / time.Hour
		m := (d % time.Hour) / time.Minute
		return fmt.Sprintf("%dh%02dm", h, m)
	case d >= time.Minute:
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		return fmt.Sprintf("%dm%02ds", m, s)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}
