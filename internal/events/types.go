// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	// Scan lifecycle events
	ScanStarted   EventType = "SCAN_STARTED"
	ScanProgress  EventType = "SCAN_PROGRESS"
	ScanCompleted EventType = "SCAN_COMPLETED"
	ScanFailed    EventType = "SCAN_FAILED"

	// Corpus and ingestion events
	IngestionStarted   EventType = "INGESTION_STARTED"
	IngestionCompleted EventType = "INGESTION_COMPLETED"
	CorpusUpdated      EventType = "CORPUS_UPDATED"

	// Configuration events
	SettingsChanged        EventType = "SETTINGS_CHANGED"
	ScoringSettingsChanged EventType = "SCORING_SETTINGS_CHANGED"
	ThemesChanged          EventType = "THEMES_CHANGED"

	// Operational events
	JobCompleted        EventType = "JOB_COMPLETED"
	JobFailed           EventType = "JOB_FAILED"
	BackupCompleted     EventType = "BACKUP_COMPLETED"
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
)
