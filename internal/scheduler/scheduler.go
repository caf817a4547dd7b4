// Package scheduler runs the background jobs (ingestion refresh, cache
// cleanup, tiered backups, database maintenance) on cron schedules and
// records every run in the job history.
package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/argus/internal/events"
)

// Job is the interface all scheduled jobs implement.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages cron-based job scheduling.
type Scheduler struct {
	cron    *cron.Cron
	history *JobHistoryRepository
	events  *events.Manager
	log     zerolog.Logger
}

// New creates a new scheduler. The history repository and event manager may
// be nil; runs then execute without recording or event emission.
func New(history *JobHistoryRepository, eventManager *events.Manager, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		history: history,
		events:  eventManager,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule. Schedules use the six-field
// form with a leading seconds column, or descriptors like "@hourly".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
	}

	s.log.Info().
		Str("job", job.Name()).
		Str("schedule", schedule).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) {
	go s.runJob(job)
}

// runJob executes a single run, records it in the job history, and emits a
// completion or failure event.
func (s *Scheduler) runJob(job Job) {
	runID := uuid.New().String()
	startedAt := time.Now()

	s.log.Debug().Str("job", job.Name()).Msg("Job running")

	if s.history != nil {
		if err := s.history.RecordStart(runID, job.Name(), startedAt); err != nil {
			s.log.Warn().Err(err).Str("job", job.Name()).Msg("Failed to record job start")
		}
	}

	err := job.Run()
	duration := time.Since(startedAt)

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Dur("duration_ms", duration).
			Msg("Job failed")

		s.recordFinish(runID, job.Name(), StatusFailed, duration, err.Error())

		if s.events != nil {
			s.events.EmitTyped(events.JobFailed, "scheduler", &events.JobFailedData{
				Job:   job.Name(),
				Error: err.Error(),
			})
		}
		return
	}

	s.log.Debug().
		Str("job", job.Name()).
		Dur("duration_ms", duration).
		Msg("Job completed")

	s.recordFinish(runID, job.Name(), StatusCompleted, duration, "")

	if s.events != nil {
		s.events.EmitTyped(events.JobCompleted, "scheduler", &events.JobCompletedData{
			Job:        job.Name(),
			DurationMS: duration.Milliseconds(),
		})
	}
}

func (s *Scheduler) recordFinish(runID, jobName, status string, duration time.Duration, errMsg string) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordFinish(runID, status, time.Now(), duration, errMsg); err != nil {
		s.log.Warn().Err(err).Str("job", jobName).Msg("Failed to record job result")
	}
}
