package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/argus/internal/cache"
	"github.com/aristath/argus/internal/clientdata"
	"github.com/aristath/argus/internal/events"
	"github.com/aristath/argus/internal/modules/ingestion"
	"github.com/aristath/argus/internal/reliability"
)

// jobTimeout bounds a single run of the long jobs (ingestion, backups,
// maintenance).
const jobTimeout = 10 * time.Minute

// historyRetention is how long job runs are kept before the cleanup job
// trims them.
const historyRetention = 30 * 24 * time.Hour

// SettingsReader exposes the runtime toggles jobs consult at run time.
type SettingsReader interface {
	GetFloat(key string, defaultValue float64) (float64, error)
}

// IngestionRefreshJob re-polls the news feeds and rebuilds the corpus.
type IngestionRefreshJob struct {
	service    *ingestion.Service
	maxAgeDays int
	log        zerolog.Logger
}

// NewIngestionRefreshJob creates the scheduled ingestion refresh job.
func NewIngestionRefreshJob(service *ingestion.Service, maxAgeDays int, log zerolog.Logger) *IngestionRefreshJob {
	return &IngestionRefreshJob{
		service:    service,
		maxAgeDays: maxAgeDays,
		log:        log.With().Str("job", "ingestion_refresh").Logger(),
	}
}

// Name returns the job name.
func (j *IngestionRefreshJob) Name() string {
	return "ingestion_refresh"
}

// Run executes one ingestion refresh.
func (j *IngestionRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	summary, err := j.service.Refresh(ctx, j.maxAgeDays)
	if err != nil {
		return err
	}

	j.log.Info().
		Int("feeds_polled", summary.FeedsPolled).
		Int("feeds_failed", summary.FeedsFailed).
		Int("items", summary.ItemsIngested).
		Int("snapshots", summary.SnapshotsBuilt).
		Msg("Scheduled ingestion refresh completed")

	return nil
}

// CacheCleanupJob removes expired client-data rows, flushes expired
// in-process cache entries, and trims old job history.
type CacheCleanupJob struct {
	clientData *clientdata.CleanupJob
	caches     *cache.Caches
	history    *JobHistoryRepository
	log        zerolog.Logger
}

// NewCacheCleanupJob creates the scheduled cache cleanup job. history may be
// nil; job history is then left untrimmed.
func NewCacheCleanupJob(
	clientDataJob *clientdata.CleanupJob,
	caches *cache.Caches,
	history *JobHistoryRepository,
	log zerolog.Logger,
) *CacheCleanupJob {
	return &CacheCleanupJob{
		clientData: clientDataJob,
		caches:     caches,
		history:    history,
		log:        log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Name returns the job name.
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Run executes one cleanup pass.
func (j *CacheCleanupJob) Run() error {
	if err := j.clientData.Run(); err != nil {
		return err
	}

	if flushed := j.caches.FlushExpired(); flushed > 0 {
		j.log.Debug().Int("entries", flushed).Msg("Flushed expired cache entries")
	}

	if j.history != nil {
		deleted, err := j.history.DeleteOlderThan(time.Now().Add(-historyRetention))
		if err != nil {
			j.log.Warn().Err(err).Msg("Failed to trim job history")
		} else if deleted > 0 {
			j.log.Debug().Int64("rows", deleted).Msg("Trimmed old job history")
		}
	}

	return nil
}

// BackupJob runs every backup tier that is due.
type BackupJob struct {
	backups *reliability.BackupService
	events  *events.Manager
	log     zerolog.Logger
}

// NewBackupJob creates the scheduled tiered backup job.
func NewBackupJob(backups *reliability.BackupService, eventManager *events.Manager, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		events:  eventManager,
		log:     log.With().Str("job", "tiered_backup").Logger(),
	}
}

// Name returns the job name.
func (j *BackupJob) Name() string {
	return "tiered_backup"
}

// Run executes the due backup tiers.
func (j *BackupJob) Run() error {
	startTime := time.Now()

	tiers, err := j.backups.RunDueTiers(time.Now())
	if err != nil {
		return err
	}

	if j.events != nil {
		j.events.EmitTyped(events.BackupCompleted, "scheduler", &events.BackupCompletedData{
			Tiers:      tiers,
			Databases:  len(j.backups.DatabaseNames()),
			DurationMS: time.Since(startTime).Milliseconds(),
		})
	}

	return nil
}

// R2BackupJob replicates a fresh snapshot archive to Cloudflare R2 and
// rotates old archives. The job is only registered when R2 is configured;
// the r2_backup_enabled setting can still turn runs off without a restart.
type R2BackupJob struct {
	r2       *reliability.R2BackupService
	settings SettingsReader
	log      zerolog.Logger
}

// NewR2BackupJob creates the scheduled R2 replication job.
func NewR2BackupJob(r2 *reliability.R2BackupService, settings SettingsReader, log zerolog.Logger) *R2BackupJob {
	return &R2BackupJob{
		r2:       r2,
		settings: settings,
		log:      log.With().Str("job", "r2_backup").Logger(),
	}
}

// Name returns the job name.
func (j *R2BackupJob) Name() string {
	return "r2_backup"
}

// Run uploads a fresh backup archive and rotates old ones.
func (j *R2BackupJob) Run() error {
	enabled, _ := j.settings.GetFloat("r2_backup_enabled", 0)
	if enabled == 0 {
		j.log.Debug().Msg("R2 backup disabled in settings, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := j.r2.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	retention, _ := j.settings.GetFloat("r2_backup_retention_days", 90)
	if err := j.r2.RotateOldBackups(ctx, int(retention)); err != nil {
		j.log.Warn().Err(err).Msg("Failed to rotate R2 backups")
	}

	return nil
}

// MaintenanceJob runs the daily database upkeep pass and reports the
// resulting system status.
type MaintenanceJob struct {
	maintenance *reliability.MaintenanceService
	events      *events.Manager
	log         zerolog.Logger
}

// NewMaintenanceJob creates the scheduled maintenance job. eventManager may
// be nil; status events are then skipped.
func NewMaintenanceJob(maintenance *reliability.MaintenanceService, eventManager *events.Manager, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		maintenance: maintenance,
		events:      eventManager,
		log:         log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name.
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance pass. The pass errors only on critical
// findings (integrity failure, disk nearly full); the status event
// reports degraded in exactly those cases.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	err := j.maintenance.RunDaily(ctx)

	if j.events != nil {
		status := &events.SystemStatusChangedData{Status: "healthy", Message: "daily maintenance passed"}
		if err != nil {
			status = &events.SystemStatusChangedData{Status: "degraded", Message: err.Error()}
		}
		j.events.EmitTyped(events.SystemStatusChanged, "scheduler", status)
	}

	return err
}
