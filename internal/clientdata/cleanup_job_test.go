package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	job := NewCleanupJob(NewRepository(db), zerolog.Nop())

	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	job := NewCleanupJob(NewRepository(db), zerolog.Nop())

	now := time.Now()
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	insertExpiredAndFresh(t, db, "llm_summaries", expiredAt, freshAt)
	insertExpiredAndFresh(t, db, "llm_analyses", expiredAt, freshAt)

	var countBefore int
	err := db.QueryRow("SELECT (SELECT COUNT(*) FROM llm_summaries) + (SELECT COUNT(*) FROM llm_analyses)").Scan(&countBefore)
	require.NoError(t, err)
	assert.Equal(t, 4, countBefore)

	err = job.Run()
	require.NoError(t, err)

	var countAfter int
	err = db.QueryRow("SELECT (SELECT COUNT(*) FROM llm_summaries) + (SELECT COUNT(*) FROM llm_analyses)").Scan(&countAfter)
	require.NoError(t, err)
	assert.Equal(t, 2, countAfter)
}

func TestCleanupJobRunEmptyTables(t *testing.T) {
	db := setupTestDB(t)
	job := NewCleanupJob(NewRepository(db), zerolog.Nop())

	err := job.Run()
	require.NoError(t, err)
}

func TestCleanupJobRunAllExpired(t *testing.T) {
	db := setupTestDB(t)
	job := NewCleanupJob(NewRepository(db), zerolog.Nop())

	expiredAt := time.Now().Add(-time.Hour).Unix()

	_, err := db.Exec("INSERT INTO llm_analyses (cache_key, data, expires_at) VALUES (?, ?, ?)", "a1", `{}`, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO llm_analyses (cache_key, data, expires_at) VALUES (?, ?, ?)", "a2", `{}`, expiredAt)
	require.NoError(t, err)

	err = job.Run()
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM llm_analyses").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func insertExpiredAndFresh(t *testing.T, db *sql.DB, table string, expiredAt, freshAt int64) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO "+table+" (cache_key, data, expires_at) VALUES (?, ?, ?)",
		"expired_"+table, `{"status":"expired"}`, expiredAt,
	)
	require.NoError(t, err)

	_, err = db.Exec(
		"INSERT INTO "+table+" (cache_key, data, expires_at) VALUES (?, ?, ?)",
		"fresh_"+table, `{"status":"fresh"}`, freshAt,
	)
	require.NoError(t, err)
}
