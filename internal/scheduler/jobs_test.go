package scheduler

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/argus/internal/cache"
	"github.com/aristath/argus/internal/clientdata"
	"github.com/aristath/argus/internal/database"
	"github.com/aristath/argus/internal/events"
	"github.com/aristath/argus/internal/reliability"
)

type stubSettings struct {
	values map[string]float64
}

func (s *stubSettings) GetFloat(key string, defaultValue float64) (float64, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func setupCacheDB(t *testing.T) *sql.DB {
	db := setupHistoryDB(t)

	_, err := db.Exec(`
		CREATE TABLE llm_summaries (cache_key TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
		CREATE TABLE llm_analyses (cache_key TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
	`)
	require.NoError(t, err)

	return db
}

func TestCacheCleanupJobPurgesExpiredState(t *testing.T) {
	db := setupCacheDB(t)

	// One expired client-data row, one fresh.
	_, err := db.Exec(
		"INSERT INTO llm_summaries (cache_key, data, expires_at) VALUES (?, ?, ?), (?, ?, ?)",
		"stale", "{}", time.Now().Add(-time.Hour).Unix(),
		"fresh", "{}", time.Now().Add(time.Hour).Unix(),
	)
	require.NoError(t, err)

	history := NewJobHistoryRepository(db, zerolog.Nop())
	require.NoError(t, history.RecordStart("ancient", "cache_cleanup", time.Now().AddDate(0, -2, 0)))

	caches := cache.NewCaches(time.Minute, time.Minute)
	job := NewCacheCleanupJob(
		clientdata.NewCleanupJob(clientdata.NewRepository(db), zerolog.Nop()),
		caches,
		history,
		zerolog.Nop(),
	)

	assert.Equal(t, "cache_cleanup", job.Name())
	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM llm_summaries").Scan(&count))
	assert.Equal(t, 1, count, "only the fresh row survives")

	runs, err := history.RecentRuns("", 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "old history rows are trimmed")
}

func TestBackupJobEmitsRanTiers(t *testing.T) {
	dataDir := t.TempDir()

	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "cache.db"),
		Profile: database.ProfileStandard,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	backups := reliability.NewBackupService(
		map[string]*database.DB{"cache": db},
		dataDir,
		filepath.Join(dataDir, "backups"),
		zerolog.Nop(),
	)

	manager := events.NewManager(events.NewBus(zerolog.Nop()), zerolog.Nop())
	var emitted []*events.Event
	manager.Bus().Subscribe(events.BackupCompleted, func(e *events.Event) {
		emitted = append(emitted, e)
	})

	job := NewBackupJob(backups, manager, zerolog.Nop())
	assert.Equal(t, "tiered_backup", job.Name())
	require.NoError(t, job.Run())

	require.Len(t, emitted, 1)
	tiers, ok := emitted[0].Data["tiers"].([]interface{})
	require.True(t, ok)
	assert.Len(t, tiers, 4, "all tiers run on a fresh backup directory")
}

func TestR2BackupJobSkipsWhenDisabled(t *testing.T) {
	// r2 client stays untouched when the setting is off, so nil is safe.
	job := NewR2BackupJob(nil, &stubSettings{}, zerolog.Nop())

	assert.Equal(t, "r2_backup", job.Name())
	require.NoError(t, job.Run())
}

func TestMaintenanceJobReportsSystemStatus(t *testing.T) {
	dataDir := t.TempDir()

	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "config.db"),
		Profile: database.ProfileStandard,
		Name:    "config",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	maintenance := reliability.NewMaintenanceService(
		map[string]*database.DB{"config": db},
		dataDir,
		filepath.Join(dataDir, "backups"),
		zerolog.Nop(),
	)

	manager := events.NewManager(events.NewBus(zerolog.Nop()), zerolog.Nop())
	var emitted []*events.Event
	manager.Bus().Subscribe(events.SystemStatusChanged, func(e *events.Event) {
		emitted = append(emitted, e)
	})

	job := NewMaintenanceJob(maintenance, manager, zerolog.Nop())
	assert.Equal(t, "database_maintenance", job.Name())

	require.NoError(t, job.Run())
	require.Len(t, emitted, 1)
	assert.Equal(t, "healthy", emitted[0].Data["status"])

	// A failing integrity check degrades the reported status.
	db.Close()
	require.Error(t, job.Run())
	require.Len(t, emitted, 2)
	assert.Equal(t, "degraded", emitted[1].Data["status"])
	assert.NotEmpty(t, emitted[1].Data["message"])
}
