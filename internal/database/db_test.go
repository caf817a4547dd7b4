package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// setupTestDB creates a file-backed SQLite database in a temp directory
func setupTestDB(t *testing.T) *DB {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: ProfileStandard,
		Name:    "test",
	})
	require.NoError(t, err)

	_, err = db.Conn().Exec(`
		CREATE TABLE IF NOT EXISTS test_table (
			id INTEGER PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

// ============================================================================
// CONNECTION TESTS
// ============================================================================

func TestNew_CreatesDatabase(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	assert.Equal(t, "test", db.Name())
	assert.Equal(t, ProfileStandard, db.Profile())

	err := db.QuickCheck(context.Background())
	assert.NoError(t, err, "New database should be pingable")
}

func TestNew_InMemoryURI(t *testing.T) {
	db, err := New(Config{
		Path:    "file::memory:?cache=shared",
		Profile: ProfileCache,
		Name:    "memtest",
	})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE t (id INTEGER)")
	assert.NoError(t, err, "file: URI should be usable as-is")
}

func TestNew_DefaultsToStandardProfile(t *testing.T) {
	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
		Name: "test",
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
}

func TestBuildConnectionString_Profiles(t *testing.T) {
	standard := buildConnectionString("/tmp/x.db", ProfileStandard)
	assert.Contains(t, standard, "journal_mode(WAL)")
	assert.Contains(t, standard, "synchronous(NORMAL)")
	assert.Contains(t, standard, "foreign_keys(1)")

	cache := buildConnectionString("/tmp/x.db", ProfileCache)
	assert.Contains(t, cache, "synchronous(OFF)")
	assert.Contains(t, cache, "auto_vacuum(FULL)")
}

// ============================================================================
// MIGRATION TESTS
// ============================================================================

func TestMigrate_CorpusSchema(t *testing.T) {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "corpus.db"),
		Profile: ProfileStandard,
		Name:    "corpus",
	})
	require.NoError(t, err)
	defer db.Close()

	err = db.Migrate()
	require.NoError(t, err)

	// Both corpus tables should exist after migration
	for _, table := range []string{"global_items", "country_snapshots"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_ConfigSchema(t *testing.T) {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "config.db"),
		Profile: ProfileStandard,
		Name:    "config",
	})
	require.NoError(t, err)
	defer db.Close()

	err = db.Migrate()
	require.NoError(t, err)

	for _, table := range []string{"settings", "scoring_settings", "themes"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrate_ScansSchema(t *testing.T) {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "scans.db"),
		Profile: ProfileStandard,
		Name:    "scans",
	})
	require.NoError(t, err)
	defer db.Close()

	err = db.Migrate()
	require.NoError(t, err)

	for _, table := range []string{"assets", "gp_scans"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "corpus.db"),
		Profile: ProfileStandard,
		Name:    "corpus",
	})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	assert.NoError(t, db.Migrate(), "Second migration should be a no-op")
}

func TestMigrate_UnknownDatabaseSkipped(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	// "test" has no schema file, so Migrate should silently skip
	assert.NoError(t, db.Migrate())
}

// ============================================================================
// TRANSACTION TESTS
// ============================================================================

func TestWithTransaction_Success(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO test_table (value) VALUES (?)", "test-value")
		return err
	})
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM test_table WHERE value = ?", "test-value").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "Row should persist after commit")
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	testErr := errors.New("test error")

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO test_table (value) VALUES (?)", "test-value"); err != nil {
			return err
		}
		return testErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, testErr, "Error should be unwrappable")

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "Row should not exist after rollback")
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO test_table (value) VALUES (?)", "test-value"); err != nil {
			return err
		}
		panic("boom")
	})

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "panic"), "Error should mention panic")

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "Row should not exist after panic rollback")
}

func TestWithTransaction_NilDB(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	assert.Error(t, err)
}

// ============================================================================
// MAINTENANCE TESTS
// ============================================================================

func TestHealthCheck(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := db.HealthCheck(context.Background())
	assert.NoError(t, err, "Fresh database should pass integrity check")
}

func TestWALCheckpoint(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.Exec("INSERT INTO test_table (value) VALUES ('a')")
	require.NoError(t, err)

	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.WALCheckpoint("PASSIVE"))
}

func TestVacuum(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	assert.NoError(t, db.Vacuum())
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.Exec("INSERT INTO test_table (value) VALUES ('a')")
	require.NoError(t, err)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0), "Database should have pages")
	assert.Greater(t, stats.PageSize, int64(0), "Page size should be positive")
}
