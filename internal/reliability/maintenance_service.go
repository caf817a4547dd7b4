package reliability

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/argus/internal/database"
	"github.com/rs/zerolog"
)

// MaintenanceService performs the daily database upkeep pass: integrity
// checks, WAL checkpoints, disk space checks, and verification of the
// previous day's backups.
type MaintenanceService struct {
	databases map[string]*database.DB
	dataDir   string
	backupDir string
	log       zerolog.Logger
}

// NewMaintenanceService creates a new maintenance service.
func NewMaintenanceService(
	databases map[string]*database.DB,
	dataDir string,
	backupDir string,
	log zerolog.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		databases: databases,
		dataDir:   dataDir,
		backupDir: backupDir,
		log:       log.With().Str("service", "maintenance").Logger(),
	}
}

// RunDaily executes the daily maintenance pass.
func (s *MaintenanceService) RunDaily(ctx context.Context) error {
	s.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	// Step 1: Integrity check for all databases
	for name, db := range s.databases {
		s.log.Debug().Str("database", name).Msg("Running integrity check")

		if err := db.HealthCheck(ctx); err != nil {
			s.log.Error().
				Str("database", name).
				Err(err).
				Msg("CRITICAL: Database integrity check failed")
			return fmt.Errorf("CRITICAL: integrity check failed for %s: %w", name, err)
		}
	}

	// Step 2: WAL checkpoint for all databases (prevent bloat)
	for name, db := range s.databases {
		s.log.Debug().Str("database", name).Msg("Running WAL checkpoint")

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			s.log.Warn().
				Str("database", name).
				Err(err).
				Msg("WAL checkpoint failed")
			// Don't return error - this is not critical
		}
	}

	// Step 3: Check disk space
	if err := s.checkDiskSpace(); err != nil {
		return err // HALT if critical
	}

	// Step 4: Verify yesterday's backups
	if err := s.verifyBackups(); err != nil {
		s.log.Error().Err(err).Msg("Backup verification failed")
		// Log but don't halt - we have today's backup
	}

	// Step 5: Log database growth
	s.logDatabaseGrowth()

	duration := time.Since(startTime)
	s.log.Info().
		Dur("duration_ms", duration).
		Msg("Daily maintenance completed successfully")

	return nil
}

// checkDiskSpace verifies sufficient disk space is available.
func (s *MaintenanceService) checkDiskSpace() error {
	stat := syscall.Statfs_t{}
	if err := syscall.Statfs(s.dataDir, &stat); err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)
	availableGB := float64(availableBytes) / 1e9

	s.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	// CRITICAL: Less than 500MB
	if availableGB < 0.5 {
		s.log.Error().
			Float64("available_gb", availableGB).
			Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("CRITICAL: only %.2f GB free", availableGB)
	}

	// ERROR: Less than 5GB
	if availableGB < 5.0 {
		s.log.Error().
			Float64("available_gb", availableGB).
			Msg("Low disk space - consider cleanup")
	}

	// WARNING: Less than 10GB
	if availableGB < 10.0 {
		s.log.Warn().
			Float64("available_gb", availableGB).
			Msg("Disk space running low")
	}

	return nil
}

// verifyBackups checks the integrity of yesterday's daily backups.
func (s *MaintenanceService) verifyBackups() error {
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	dailyBackupDir := filepath.Join(s.backupDir, "daily", yesterday)

	if _, err := os.Stat(dailyBackupDir); os.IsNotExist(err) {
		return fmt.Errorf("yesterday's backup directory not found: %s", dailyBackupDir)
	}

	for dbName := range s.databases {
		backupPath := filepath.Join(dailyBackupDir, dbName+".db")

		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			s.log.Error().
				Str("database", dbName).
				Str("path", backupPath).
				Msg("Backup file missing")
			continue
		}

		backupDB, err := sql.Open("sqlite", backupPath)
		if err != nil {
			s.log.Error().
				Str("database", dbName).
				Err(err).
				Msg("Failed to open backup")
			continue
		}

		var result string
		err = backupDB.QueryRow("PRAGMA integrity_check").Scan(&result)
		backupDB.Close()

		if err != nil || result != "ok" {
			s.log.Error().
				Str("database", dbName).
				Str("result", result).
				Msg("Backup integrity check failed")
		} else {
			s.log.Debug().
				Str("database", dbName).
				Msg("Backup verified")
		}
	}

	return nil
}

// logDatabaseGrowth logs per-database size metrics.
func (s *MaintenanceService) logDatabaseGrowth() {
	for name, db := range s.databases {
		stats, err := db.GetStats()
		if err != nil {
			s.log.Error().
				Str("database", name).
				Err(err).
				Msg("Failed to get stats")
			continue
		}

		s.log.Info().
			Str("database", name).
			Float64("size_mb", float64(stats.SizeBytes)/1024/1024).
			Float64("wal_size_mb", float64(stats.WALSizeBytes)/1024/1024).
			Msg("Database metrics")
	}
}
