// Package reliability provides tiered database backups, cloud replication,
// and staged restore for the Argus databases.
package reliability

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aristath/argus/internal/database"
	"github.com/rs/zerolog"
)

// BackupService manages tiered backups (hourly/daily/weekly/monthly) of all
// Argus databases. Snapshots are taken with VACUUM INTO, verified with an
// integrity check, and rotated per tier.
type BackupService struct {
	databases map[string]*database.DB
	dataDir   string
	backupDir string
	log       zerolog.Logger
}

// NewBackupService creates a new backup service.
func NewBackupService(
	databases map[string]*database.DB,
	dataDir string,
	backupDir string,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		databases: databases,
		dataDir:   dataDir,
		backupDir: backupDir,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// DatabaseNames returns the names of all managed databases, sorted.
func (s *BackupService) DatabaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunDueTiers runs every tier that is due at the given time and returns the
// tiers that ran. The hourly tier always runs; daily, weekly, and monthly run
// when their snapshot directory for the current period does not exist yet.
// All due tiers are attempted even if an earlier one fails.
func (s *BackupService) RunDueTiers(now time.Time) ([]string, error) {
	var ran []string
	var firstErr error

	record := func(tier string, err error) {
		if err != nil {
			s.log.Error().Err(err).Str("tier", tier).Msg("Backup tier failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s backup: %w", tier, err)
			}
			return
		}
		ran = append(ran, tier)
	}

	record("hourly", s.HourlyBackup(now))

	if s.tierDue(filepath.Join(s.backupDir, "daily", now.Format("2006-01-02"))) {
		record("daily", s.DailyBackup(now))
	}

	year, week := now.ISOWeek()
	if s.tierDue(filepath.Join(s.backupDir, "weekly", fmt.Sprintf("%04d-W%02d", year, week))) {
		record("weekly", s.WeeklyBackup(now))
	}

	if s.tierDue(filepath.Join(s.backupDir, "monthly", now.Format("2006-01"))) {
		record("monthly", s.MonthlyBackup(now))
	}

	return ran, firstErr
}

// tierDue reports whether the snapshot directory for a period is still missing.
func (s *BackupService) tierDue(periodDir string) bool {
	_, err := os.Stat(periodDir)
	return os.IsNotExist(err)
}

// HourlyBackup snapshots every database into the hourly tier.
// Keeps the last 24 hours, rotates older snapshots.
func (s *BackupService) HourlyBackup(now time.Time) error {
	s.log.Info().Msg("Starting hourly backup")
	startTime := time.Now()

	hourlyDir := filepath.Join(s.backupDir, "hourly")
	if err := os.MkdirAll(hourlyDir, 0755); err != nil {
		return fmt.Errorf("failed to create hourly backup directory: %w", err)
	}

	stamp := now.Format("2006-01-02_15")
	for _, dbName := range s.DatabaseNames() {
		backupPath := filepath.Join(hourlyDir, fmt.Sprintf("%s_%s.db", dbName, stamp))

		// VACUUM INTO refuses to overwrite; a snapshot already taken this
		// hour is kept as-is.
		if _, err := os.Stat(backupPath); err == nil {
			s.log.Debug().Str("database", dbName).Msg("Hourly snapshot already exists, skipping")
			continue
		}

		if err := s.BackupDatabase(dbName, backupPath); err != nil {
			s.log.Error().
				Str("database", dbName).
				Err(err).
				Msg("Failed to backup database")
			continue
		}

		if err := s.verifyBackup(backupPath); err != nil {
			s.log.Error().
				Str("database", dbName).
				Err(err).
				Msg("Backup verification failed")
			os.Remove(backupPath)
		}
	}

	if err := s.rotateHourlyBackups(hourlyDir, now); err != nil {
		s.log.Error().Err(err).Msg("Failed to rotate hourly backups")
		// Don't fail - backup succeeded
	}

	duration := time.Since(startTime)
	s.log.Info().
		Dur("duration_ms", duration).
		Str("backup_dir", hourlyDir).
		Msg("Hourly backup completed successfully")

	return nil
}

// DailyBackup snapshots every database into a dated daily directory.
// Keeps the last 7 days, rotates older snapshots.
func (s *BackupService) DailyBackup(now time.Time) error {
	s.log.Info().Msg("Starting daily backup")
	startTime := time.Now()

	date := now.Format("2006-01-02")
	dailyDir := filepath.Join(s.backupDir, "daily", date)
	if err := os.MkdirAll(dailyDir, 0755); err != nil {
		return fmt.Errorf("failed to create daily backup directory: %w", err)
	}

	s.backupAllInto(dailyDir)

	if err := s.rotateDailyBackups(now); err != nil {
		s.log.Error().Err(err).Msg("Failed to rotate daily backups")
	}

	duration := time.Since(startTime)
	s.log.Info().
		Dur("duration_ms", duration).
		Str("backup_dir", dailyDir).
		Msg("Daily backup completed successfully")

	return nil
}

// WeeklyBackup snapshots every database into an ISO-week directory.
// Keeps the last 4 weeks, rotates older snapshots.
func (s *BackupService) WeeklyBackup(now time.Time) error {
	s.log.Info().Msg("Starting weekly backup")
	startTime := time.Now()

	year, week := now.ISOWeek()
	weekDir := filepath.Join(s.backupDir, "weekly", fmt.Sprintf("%04d-W%02d", year, week))
	if err := os.MkdirAll(weekDir, 0755); err != nil {
		return fmt.Errorf("failed to create weekly backup directory: %w", err)
	}

	s.backupAllInto(weekDir)

	if err := s.rotateWeeklyBackups(now); err != nil {
		s.log.Error().Err(err).Msg("Failed to rotate weekly backups")
	}

	duration := time.Since(startTime)
	s.log.Info().
		Dur("duration_ms", duration).
		Str("backup_dir", weekDir).
		Msg("Weekly backup completed successfully")

	return nil
}

// MonthlyBackup snapshots every database into a month directory.
// Keeps the last 12 months, rotates older snapshots.
func (s *BackupService) MonthlyBackup(now time.Time) error {
	s.log.Info().Msg("Starting monthly backup")
	startTime := time.Now()

	month := now.Format("2006-01")
	monthDir := filepath.Join(s.backupDir, "monthly", month)
	if err := os.MkdirAll(monthDir, 0755); err != nil {
		return fmt.Errorf("failed to create monthly backup directory: %w", err)
	}

	s.backupAllInto(monthDir)

	if err := s.rotateMonthlyBackups(now); err != nil {
		s.log.Error().Err(err).Msg("Failed to rotate monthly backups")
	}

	duration := time.Since(startTime)
	s.log.Info().
		Dur("duration_ms", duration).
		Str("backup_dir", monthDir).
		Msg("Monthly backup completed successfully")

	return nil
}

// backupAllInto snapshots every database into dir as <name>.db, verifying
// each snapshot and discarding the ones that fail the integrity check.
// Failures are logged per database so one bad snapshot never blocks the rest.
func (s *BackupService) backupAllInto(dir string) {
	for _, dbName := range s.DatabaseNames() {
		backupPath := filepath.Join(dir, dbName+".db")

		if err := s.BackupDatabase(dbName, backupPath); err != nil {
			s.log.Error().
				Str("database", dbName).
				Err(err).
				Msg("Failed to backup database")
			continue
		}

		if err := s.verifyBackup(backupPath); err != nil {
			s.log.Error().
				Str("database", dbName).
				Err(err).
				Msg("Backup verification failed")
			os.Remove(backupPath)
		}
	}
}

// BackupDatabase snapshots a single database using SQLite's VACUUM INTO.
// The snapshot is a fresh, compacted copy with no WAL sidecar.
func (s *BackupService) BackupDatabase(dbName, backupPath string) error {
	db, ok := s.databases[dbName]
	if !ok {
		return fmt.Errorf("database %s not found", dbName)
	}

	s.log.Debug().
		Str("database", dbName).
		Str("backup_path", backupPath).
		Msg("Backing up database")

	_, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", backupPath))
	if err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return fmt.Errorf("failed to stat backup: %w", err)
	}

	sizeMB := float64(info.Size()) / 1024 / 1024
	s.log.Debug().
		Str("database", dbName).
		Float64("size_mb", sizeMB).
		Msg("Backup created")

	return nil
}

// verifyBackup opens the snapshot and runs an integrity check.
func (s *BackupService) verifyBackup(backupPath string) error {
	backupDB, err := sql.Open("sqlite", backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer backupDB.Close()

	var result string
	err = backupDB.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// rotateHourlyBackups deletes hourly snapshots older than 24 hours.
func (s *BackupService) rotateHourlyBackups(hourlyDir string, now time.Time) error {
	cutoff := now.Add(-24 * time.Hour)

	entries, err := os.ReadDir(hourlyDir)
	if err != nil {
		return fmt.Errorf("failed to read hourly backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			path := filepath.Join(hourlyDir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.log.Warn().
					Str("path", path).
					Err(err).
					Msg("Failed to delete old hourly backup")
			} else {
				s.log.Debug().
					Str("path", path).
					Msg("Deleted old hourly backup")
			}
		}
	}

	return nil
}

// rotateDailyBackups deletes daily snapshot directories older than 7 days.
func (s *BackupService) rotateDailyBackups(now time.Time) error {
	dailyDir := filepath.Join(s.backupDir, "daily")
	cutoff := now.AddDate(0, 0, -7)

	entries, err := os.ReadDir(dailyDir)
	if err != nil {
		return fmt.Errorf("failed to read daily backup directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirDate, err := time.Parse("2006-01-02", entry.Name())
		if err != nil {
			s.log.Warn().
				Str("dir", entry.Name()).
				Msg("Failed to parse date from directory name")
			continue
		}

		if dirDate.Before(cutoff) {
			path := filepath.Join(dailyDir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				s.log.Warn().
					Str("path", path).
					Err(err).
					Msg("Failed to delete old daily backup")
			} else {
				s.log.Debug().
					Str("path", path).
					Msg("Deleted old daily backup")
			}
		}
	}

	return nil
}

// rotateWeeklyBackups deletes weekly snapshot directories older than 4 weeks.
// ISO-week names don't parse as dates, so rotation goes by directory mtime.
func (s *BackupService) rotateWeeklyBackups(now time.Time) error {
	weeklyDir := filepath.Join(s.backupDir, "weekly")
	cutoff := now.AddDate(0, 0, -4*7) // 4 weeks

	entries, err := os.ReadDir(weeklyDir)
	if err != nil {
		return fmt.Errorf("failed to read weekly backup directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			path := filepath.Join(weeklyDir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				s.log.Warn().
					Str("path", path).
					Err(err).
					Msg("Failed to delete old weekly backup")
			} else {
				s.log.Debug().
					Str("path", path).
					Msg("Deleted old weekly backup")
			}
		}
	}

	return nil
}

// rotateMonthlyBackups deletes monthly snapshot directories older than 12 months.
func (s *BackupService) rotateMonthlyBackups(now time.Time) error {
	monthlyDir := filepath.Join(s.backupDir, "monthly")
	cutoff := now.AddDate(0, -12, 0) // 12 months

	entries, err := os.ReadDir(monthlyDir)
	if err != nil {
		return fmt.Errorf("failed to read monthly backup directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirDate, err := time.Parse("2006-01", entry.Name())
		if err != nil {
			s.log.Warn().
				Str("dir", entry.Name()).
				Msg("Failed to parse date from directory name")
			continue
		}

		if dirDate.Before(cutoff) {
			path := filepath.Join(monthlyDir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				s.log.Warn().
					Str("path", path).
					Err(err).
					Msg("Failed to delete old monthly backup")
			} else {
				s.log.Debug().
					Str("path", path).
					Msg("Deleted old monthly backup")
			}
		}
	}

	return nil
}
