package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ScanStartedData contains data for ScanStarted events
type ScanStartedData struct {
	ScanID        string `json:"scan_id"`
	HoldingName   string `json:"holding_name"`
	Country       string `json:"country,omitempty"`
	Region        string `json:"region,omitempty"`
	RiskTolerance string `json:"risk_tolerance"`
}

// EventType returns the event type for ScanStartedData
func (d *ScanStartedData) EventType() EventType {
	return ScanStarted
}

// ScanProgressData contains data for ScanProgress events
type ScanProgressData struct {
	ScanID   string  `json:"scan_id"`
	Step     string  `json:"step"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
}

// EventType returns the event type for ScanProgressData
func (d *ScanProgressData) EventType() EventType {
	return ScanProgress
}

// ScanCompletedData contains data for ScanCompleted events
type ScanCompletedData struct {
	ScanID      string  `json:"scan_id"`
	HoldingName string  `json:"holding_name"`
	Direction   string  `json:"direction"`
	Magnitude   float64 `json:"magnitude"`
	Confidence  float64 `json:"confidence"`
	SignalCount int     `json:"signal_count"`
	DurationMS  int64   `json:"duration_ms"`
}

// EventType returns the event type for ScanCompletedData
func (d *ScanCompletedData) EventType() EventType {
	return ScanCompleted
}

// ScanFailedData contains data for ScanFailed events
type ScanFailedData struct {
	ScanID      string `json:"scan_id"`
	HoldingName string `json:"holding_name,omitempty"`
	Error       string `json:"error"`
}

// EventType returns the event type for ScanFailedData
func (d *ScanFailedData) EventType() EventType {
	return ScanFailed
}

// IngestionCompletedData contains data for IngestionCompleted events
type IngestionCompletedData struct {
	FeedsPolled    int   `json:"feeds_polled"`
	FeedsFailed    int   `json:"feeds_failed"`
	ItemsIngested  int   `json:"items_ingested"`
	SnapshotsBuilt int   `json:"snapshots_built"`
	DurationMS     int64 `json:"duration_ms"`
}

// EventType returns the event type for IngestionCompletedData
func (d *IngestionCompletedData) EventType() EventType {
	return IngestionCompleted
}

// CorpusUpdatedData contains data for CorpusUpdated events
type CorpusUpdatedData struct {
	Items     int `json:"items"`
	Snapshots int `json:"snapshots"`
}

// EventType returns the event type for CorpusUpdatedData
func (d *CorpusUpdatedData) EventType() EventType {
	return CorpusUpdated
}

// SettingsChangedData contains data for SettingsChanged events
type SettingsChangedData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// EventType returns the event type for SettingsChangedData
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// ScoringSettingsChangedData contains data for ScoringSettingsChanged events
type ScoringSettingsChangedData struct {
	Action string `json:"action"`
	Name   string `json:"name"`
}

// EventType returns the event type for ScoringSettingsChangedData
func (d *ScoringSettingsChangedData) EventType() EventType {
	return ScoringSettingsChanged
}

// ThemesChangedData contains data for ThemesChanged events
type ThemesChangedData struct {
	Action string `json:"action"`
	Name   string `json:"name,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// EventType returns the event type for ThemesChangedData
func (d *ThemesChangedData) EventType() EventType {
	return ThemesChanged
}

// JobCompletedData contains data for JobCompleted events
type JobCompletedData struct {
	Job        string `json:"job"`
	DurationMS int64  `json:"duration_ms"`
}

// EventType returns the event type for JobCompletedData
func (d *JobCompletedData) EventType() EventType {
	return JobCompleted
}

// JobFailedData contains data for JobFailed events
type JobFailedData struct {
	Job   string `json:"job"`
	Error string `json:"error"`
}

// EventType returns the event type for JobFailedData
func (d *JobFailedData) EventType() EventType {
	return JobFailed
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Tiers      []string `json:"tiers"`
	Databases  int      `json:"databases"`
	DurationMS int64    `json:"duration_ms"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// SystemStatusChangedData contains data for SystemStatusChanged events
type SystemStatusChangedData struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// EventType returns the event type for SystemStatusChangedData
func (d *SystemStatusChangedData) EventType() EventType {
	return SystemStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
