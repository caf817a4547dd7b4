package reliability

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRunDailyWithHealthyDatabases(t *testing.T) {
	dataDir := t.TempDir()
	backupDir := filepath.Join(dataDir, "backups")
	databases := newTestDatabases(t, dataDir)

	// Provide yesterday's daily backups so verification has something to check.
	backup := NewBackupService(databases, dataDir, backupDir, zerolog.Nop())
	yesterdayDir := filepath.Join(backupDir, "daily", time.Now().AddDate(0, 0, -1).Format("2006-01-02"))
	require.NoError(t, os.MkdirAll(yesterdayDir, 0755))
	for _, name := range backup.DatabaseNames() {
		require.NoError(t, backup.BackupDatabase(name, filepath.Join(yesterdayDir, name+".db")))
	}

	maint := NewMaintenanceService(databases, dataDir, backupDir, zerolog.Nop())
	require.NoError(t, maint.RunDaily(context.Background()))
}

func TestRunDailyWithoutBackups(t *testing.T) {
	dataDir := t.TempDir()
	databases := newTestDatabases(t, dataDir)

	// Missing backups are logged, not fatal; the maintenance pass continues.
	maint := NewMaintenanceService(databases, dataDir, filepath.Join(dataDir, "backups"), zerolog.Nop())
	require.NoError(t, maint.RunDaily(context.Background()))
}
