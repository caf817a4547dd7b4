package scheduler

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHistoryDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE job_history (
			id TEXT PRIMARY KEY,
			job_name TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			duration_ms INTEGER,
			status TEXT NOT NULL DEFAULT 'running',
			error TEXT
		);
	`)
	require.NoError(t, err)

	return db
}

func TestRecordStartAndFinish(t *testing.T) {
	repo := NewJobHistoryRepository(setupHistoryDB(t), zerolog.Nop())

	started := time.Now()
	require.NoError(t, repo.RecordStart("run-1", "tiered_backup", started))

	runs, err := repo.RecentRuns("", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "tiered_backup", runs[0].JobName)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Empty(t, runs[0].FinishedAt)

	require.NoError(t, repo.RecordFinish("run-1", StatusCompleted, started.Add(2*time.Second), 2*time.Second, ""))

	runs, err = repo.RecentRuns("", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusCompleted, runs[0].Status)
	assert.Equal(t, int64(2000), runs[0].DurationMS)
	assert.NotEmpty(t, runs[0].FinishedAt)
	assert.Empty(t, runs[0].Error)
}

func TestRecordFinishWithError(t *testing.T) {
	repo := NewJobHistoryRepository(setupHistoryDB(t), zerolog.Nop())

	require.NoError(t, repo.RecordStart("run-1", "ingestion_refresh", time.Now()))
	require.NoError(t, repo.RecordFinish("run-1", StatusFailed, time.Now(), time.Second, "feed timeout"))

	runs, err := repo.RecentRuns("ingestion_refresh", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "feed timeout", runs[0].Error)
}

func TestRecentRunsFilterAndLimit(t *testing.T) {
	repo := NewJobHistoryRepository(setupHistoryDB(t), zerolog.Nop())

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordStart("a", "cache_cleanup", base))
	require.NoError(t, repo.RecordStart("b", "tiered_backup", base.Add(time.Minute)))
	require.NoError(t, repo.RecordStart("c", "cache_cleanup", base.Add(2*time.Minute)))

	all, err := repo.RecentRuns("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest run first")

	cleanups, err := repo.RecentRuns("cache_cleanup", 0)
	require.NoError(t, err)
	assert.Len(t, cleanups, 2)

	limited, err := repo.RecentRuns("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeleteOlderThan(t *testing.T) {
	repo := NewJobHistoryRepository(setupHistoryDB(t), zerolog.Nop())

	require.NoError(t, repo.RecordStart("old", "cache_cleanup", time.Now().AddDate(0, -2, 0)))
	require.NoError(t, repo.RecordStart("new", "cache_cleanup", time.Now()))

	deleted, err := repo.DeleteOlderThan(time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err := repo.RecentRuns("", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].ID)
}
