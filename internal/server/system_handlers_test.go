package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/argus/internal/database"
	"github.com/aristath/argus/internal/scheduler"
	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJobHistory(t *testing.T) *scheduler.JobHistoryRepository {
	t.Helper()

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

	return scheduler.NewJobHistoryRepository(db, zerolog.Nop())
}

func TestSystemHandlers_HandleJobsStatus(t *testing.T) {
	history := setupJobHistory(t)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, history.RecordStart("run-1", "ingestion_refresh", started))
	require.NoError(t, history.RecordFinish("run-1", scheduler.StatusCompleted, started.Add(time.Second), time.Second, ""))
	require.NoError(t, history.RecordStart("run-2", "tiered_backup", started.Add(time.Minute)))
	require.NoError(t, history.RecordFinish("run-2", scheduler.StatusFailed, started.Add(2*time.Minute), time.Minute, "disk full"))

	handlers := &SystemHandlers{log: zerolog.Nop(), history: history}

	t.Run("returns recent runs newest first", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil)
		rec := httptest.NewRecorder()

		handlers.HandleJobsStatus(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var response JobsStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, 2, response.TotalRuns)
		require.Len(t, response.Runs, 2)
		assert.Equal(t, "run-2", response.Runs[0].ID)
		assert.Equal(t, "disk full", response.Runs[0].Error)
		assert.Equal(t, "run-1", response.Runs[1].ID)
	})

	t.Run("filters by job name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/system/jobs?job=tiered_backup", nil)
		rec := httptest.NewRecorder()

		handlers.HandleJobsStatus(rec, req)

		var response JobsStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		require.Len(t, response.Runs, 1)
		assert.Equal(t, "tiered_backup", response.Runs[0].JobName)
	})

	t.Run("honors limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/system/jobs?limit=1", nil)
		rec := httptest.NewRecorder()

		handlers.HandleJobsStatus(rec, req)

		var response JobsStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, 1, response.TotalRuns)
		assert.Len(t, response.Runs, 1)
	})

	t.Run("nil history returns empty list", func(t *testing.T) {
		bare := &SystemHandlers{log: zerolog.Nop()}

		req := httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil)
		rec := httptest.NewRecorder()

		bare.HandleJobsStatus(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response JobsStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, 0, response.TotalRuns)
		assert.Empty(t, response.Runs)
	})
}

func TestSystemHandlers_HandleSystemInfo(t *testing.T) {
	handlers := NewSystemHandlers(zerolog.Nop(), t.TempDir(), t.TempDir(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/system/info", nil)
	rec := httptest.NewRecorder()

	handlers.HandleSystemInfo(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response SystemInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.GreaterOrEqual(t, response.UptimeSeconds, int64(0))
	assert.Greater(t, response.Goroutines, 0)
	assert.Greater(t, response.MemoryTotalMB, 0.0)
}

func TestSystemHandlers_HandleDiskUsage(t *testing.T) {
	dataDir := t.TempDir()
	backupDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "corpus.db"), make([]byte, 2*1024*1024), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(backupDir, "corpus.db.backup"), make([]byte, 1024*1024), 0644))

	handlers := NewSystemHandlers(zerolog.Nop(), dataDir, backupDir, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/system/disk", nil)
	rec := httptest.NewRecorder()

	handlers.HandleDiskUsage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response DiskUsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.InDelta(t, 2.0, response.DataDirMB, 0.1)
	assert.InDelta(t, 1.0, response.BackupsMB, 0.1)
	assert.InDelta(t, response.DataDirMB+response.BackupsMB, response.TotalMB, 0.001)
}

func TestSystemHandlers_HandleDatabaseStats(t *testing.T) {
	dir := t.TempDir()

	db, err := database.New(database.Config{
		Path:    filepath.Join(dir, "corpus.db"),
		Profile: database.ProfileStandard,
		Name:    "corpus",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE probe (id INTEGER PRIMARY KEY, body TEXT)`)
	require.NoError(t, err)

	handlers := NewSystemHandlers(
		zerolog.Nop(),
		dir,
		filepath.Join(dir, "backups"),
		map[string]*database.DB{"corpus": db},
		nil,
	)

	req := httptest.NewRequest(http.MethodGet, "/api/system/database/stats", nil)
	rec := httptest.NewRecorder()

	handlers.HandleDatabaseStats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Databases, 1)
	assert.Equal(t, "corpus", response.Databases[0].Name)
	assert.Empty(t, response.Databases[0].StatsError)
	assert.Greater(t, response.Databases[0].PageCount, int64(0))
	assert.NotEmpty(t, response.LastChecked)
}
