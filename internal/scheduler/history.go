package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Job run statuses as stored in the job_history table.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// JobRun is one recorded job execution.
type JobRun struct {
	ID         string `json:"id"`
	JobName    string `json:"job_name"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// JobHistoryRepository persists job runs in the cache database.
type JobHistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewJobHistoryRepository creates a new job history repository.
func NewJobHistoryRepository(db *sql.DB, log zerolog.Logger) *JobHistoryRepository {
	return &JobHistoryRepository{
		db:  db,
		log: log.With().Str("repository", "job_history").Logger(),
	}
}

// RecordStart inserts a run in the running state.
func (r *JobHistoryRepository) RecordStart(runID, jobName string, startedAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO job_history (id, job_name, started_at, status)
		VALUES (?, ?, ?, ?)
	`, runID, jobName, startedAt.UTC().Format(time.RFC3339), StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to record job start: %w", err)
	}
	return nil
}

// RecordFinish marks a run as completed or failed.
func (r *JobHistoryRepository) RecordFinish(runID, status string, finishedAt time.Time, duration time.Duration, errMsg string) error {
	var errVal interface{}
	if errMsg != "" {
		errVal = errMsg
	}

	_, err := r.db.Exec(`
		UPDATE job_history
		SET finished_at = ?, duration_ms = ?, status = ?, error = ?
		WHERE id = ?
	`, finishedAt.UTC().Format(time.RFC3339), duration.Milliseconds(), status, errVal, runID)
	if err != nil {
		return fmt.Errorf("failed to record job finish: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first. jobName filters to
// one job when non-empty; limit <= 0 selects a default of 50.
func (r *JobHistoryRepository) RecentRuns(jobName string, limit int) ([]JobRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, job_name, started_at, finished_at, duration_ms, status, error
		FROM job_history
	`
	args := []interface{}{}
	if jobName != "" {
		query += ` WHERE job_name = ?`
		args = append(args, jobName)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job history: %w", err)
	}
	defer rows.Close()

	var runs []JobRun
	for rows.Next() {
		var run JobRun
		var finishedAt, errMsg sql.NullString
		var durationMS sql.NullInt64

		if err := rows.Scan(&run.ID, &run.JobName, &run.StartedAt, &finishedAt, &durationMS, &run.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}

		run.FinishedAt = finishedAt.String
		run.DurationMS = durationMS.Int64
		run.Error = errMsg.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// DeleteOlderThan removes runs that started before the cutoff and returns
// the number of rows deleted.
func (r *JobHistoryRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM job_history WHERE started_at < ?
	`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old job history: %w", err)
	}
	return result.RowsAffected()
}
