// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/argus/internal/clientdata"
	"github.com/aristath/argus/internal/config"
	"github.com/aristath/argus/internal/scheduler"
	"github.com/rs/zerolog"
)

// Cron schedules (six-field, with seconds). Backups run ten minutes past
// the hour so they never overlap the cache cleanup at the top of the hour;
// maintenance runs at 02:00 when no other job is scheduled. R2 replication
// follows half an hour after maintenance, at the cadence the
// r2_backup_schedule setting selects.
const (
	scheduleCacheCleanup    = "0 0 * * * *"
	scheduleBackup          = "0 10 * * * *"
	scheduleMaintenance     = "0 0 2 * * *"
	scheduleR2BackupDaily   = "0 30 2 * * *"
	scheduleR2BackupWeekly  = "0 30 2 * * 0"
	scheduleR2BackupMonthly = "0 30 2 1 * *"
)

// RegisterJobs creates the scheduler and registers all background jobs.
// The scheduler is stored on the container but not started; the caller
// owns its lifecycle.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(container.JobHistoryRepo, container.EventManager, log)

	// Job 1: Ingestion refresh (poll feeds, rebuild corpus)
	ingestionJob := scheduler.NewIngestionRefreshJob(
		container.IngestionService,
		cfg.IngestionMaxAgeDays,
		log,
	)
	ingestionSchedule := fmt.Sprintf("@every %s", cfg.IngestionInterval)
	if err := container.Scheduler.AddJob(ingestionSchedule, ingestionJob); err != nil {
		return err
	}

	// Job 2: Cache cleanup (expired LLM rows, in-process caches, old job history)
	cleanupJob := scheduler.NewCacheCleanupJob(
		clientdata.NewCleanupJob(container.ClientDataRepo, log),
		container.Caches,
		container.JobHistoryRepo,
		log,
	)
	if err := container.Scheduler.AddJob(scheduleCacheCleanup, cleanupJob); err != nil {
		return err
	}

	// Job 3: Tiered backup (the service decides which tiers are due)
	backupJob := scheduler.NewBackupJob(container.BackupService, container.EventManager, log)
	if err := container.Scheduler.AddJob(scheduleBackup, backupJob); err != nil {
		return err
	}

	// Job 4: Daily maintenance (integrity, WAL checkpoint, disk space)
	maintenanceJob := scheduler.NewMaintenanceJob(container.MaintenanceService, container.EventManager, log)
	if err := container.Scheduler.AddJob(scheduleMaintenance, maintenanceJob); err != nil {
		return err
	}

	// Job 5: R2 cloud backup (optional - only if configured)
	if container.R2BackupService != nil {
		r2Job := scheduler.NewR2BackupJob(container.R2BackupService, container.SettingsRepo, log)
		r2Schedule := r2BackupSchedule(container, log)
		if err := container.Scheduler.AddJob(r2Schedule, r2Job); err != nil {
			return err
		}
		log.Info().Str("schedule", r2Schedule).Msg("R2 backup job registered")
	} else {
		log.Debug().Msg("R2 backup service not available - R2 job not registered")
	}

	log.Info().Str("ingestion_interval", cfg.IngestionInterval.String()).Msg("Jobs registered with scheduler")

	return nil
}

// r2BackupSchedule maps the r2_backup_schedule setting to a cron schedule.
// Unknown values fall back to daily.
func r2BackupSchedule(container *Container, log zerolog.Logger) string {
	if container.SettingsRepo == nil {
		return scheduleR2BackupDaily
	}
	val, err := container.SettingsRepo.Get("r2_backup_schedule")
	if err != nil || val == nil {
		return scheduleR2BackupDaily
	}
	switch *val {
	case "daily", "":
		return scheduleR2BackupDaily
	case "weekly":
		return scheduleR2BackupWeekly
	case "monthly":
		return scheduleR2BackupMonthly
	default:
		log.Warn().Str("r2_backup_schedule", *val).Msg("Unknown R2 backup schedule, using daily")
		return scheduleR2BackupDaily
	}
}
