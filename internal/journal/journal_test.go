package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcoury/aish/internal/models"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRunLifecycle(t *testing.T) {
	j := openTemp(t)

	runID, err := j.BeginRun("install nginx", "local")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	phase := &models.Phase{ID: 1, Name: "install"}
	require.NoError(t, j.RecordStep(runID, phase, &models.Step{
		Description: "update package index",
		Command:     "sudo apt update",
		Status:      models.StatusSuccess,
		Succeeded:   true,
		Output:      "Reading package lists...",
		Duration:    1200 * time.Millisecond,
	}))
	require.NoError(t, j.RecordStep(runID, phase, &models.Step{
		Description:  "install package",
		Command:      "apt install nginx",
		Status:       models.StatusFailed,
		ExitCode:     100,
		ErrorMessage: "permission denied",
		RetryCount:   1,
	}))

	require.NoError(t, j.FinishRun(runID, RunStatusSucceeded))

	runs, err := j.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "install nginx", runs[0].Task)
	assert.Equal(t, RunStatusSucceeded, runs[0].Status)
	assert.Equal(t, 2, runs[0].Steps)
	assert.True(t, runs[0].Finished.Valid)
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	j := openTemp(t)

	for _, task := range []string{"first", "second", "third"} {
		id, err := j.BeginRun(task, "local")
		require.NoError(t, err)
		require.NoError(t, j.FinishRun(id, RunStatusFailed))
	}

	runs, err := j.RecentRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestReopenExistingJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j1, err := Open(path)
	require.NoError(t, err)
	runID, err := j1.BeginRun("survives reopen", "web-01")
	require.NoError(t, err)
	require.NoError(t, j1.FinishRun(runID, RunStatusAborted))
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	runs, err := j2.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "web-01", runs[0].Target)
	assert.Equal(t, RunStatusAborted, runs[0].Status)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, j.Close())
}
