// Package journal keeps an append-only SQLite record of agent runs and
// every command they executed, for post-hoc auditing. The agent never
// reads the journal back during a run.
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rcoury/aish/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusAborted   = "aborted"
)

// Journal is one open journal database. A process-level flock guards
// initialization so concurrent agents can share a journal file.
type Journal struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	j := &Journal{path: path}
	if path != ":memory:" {
		j.lock = flock.New(path + ".lock")
		if err := j.lock.Lock(); err != nil {
			return nil, fmt.Errorf("acquire journal lock: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		j.unlock()
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			j.unlock()
			return nil, fmt.Errorf("configure journal database: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		j.unlock()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}

	j.db = db
	return j, nil
}

func (j *Journal) unlock() {
	if j.lock != nil {
		_ = j.lock.Unlock()
		j.lock = nil
	}
}

// Close releases the database and the file lock.
func (j *Journal) Close() error {
	defer j.unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// BeginRun records the start of a run and returns its id.
func (j *Journal) BeginRun(task, target string) (string, error) {
	id := uuid.New().String()
	_, err := j.db.Exec(
		"INSERT INTO runs (id, task, target, status) VALUES (?, ?, ?, ?)",
		id, task, target, RunStatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's terminal status.
func (j *Journal) FinishRun(runID, status string) error {
	_, err := j.db.Exec(
		"UPDATE runs SET status = ?, finished_at = ? WHERE id = ?",
		status, time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// RecordStep appends one executed step under a phase.
func (j *Journal) RecordStep(runID string, phase *models.Phase, step *models.Step) error {
	_, err := j.db.Exec(
		`INSERT INTO steps
		 (run_id, phase_id, phase_name, description, command, status, exit_code, output, error_text, retry_count, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, phase.ID, phase.Name, step.Description, step.Command,
		step.Status.String(), step.ExitCode, step.Output, step.ErrorMessage,
		step.RetryCount, step.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// RunSummary is one row from the runs table.
type RunSummary struct {
	ID       string
	Task     string
	Target   string
	Status   string
	Started  time.Time
	Finished sql.NullTime
	Steps    int
}

// RecentRuns lists the latest runs for the inspect command.
func (j *Journal) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := j.db.Query(
		`SELECT r.id, r.task, r.target, r.status, r.started_at, r.finished_at,
		        (SELECT COUNT(*) FROM steps s WHERE s.run_id = r.id)
		 FROM runs r ORDER BY r.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Task, &r.Target, &r.Status, &r.Started, &r.Finished, &r.Steps); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
