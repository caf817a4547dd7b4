// Package corpus persists and queries the local intelligence corpus:
// global news items harvested by the ingestion job and per-country
// situation snapshots derived from them.
package corpus

// Activity levels a snapshot can carry. The snapshot builder writes
// Calm, Active and Escalating; imported intelligence feeds use the
// Critical through Low scale.
const (
	ActivityCritical   = "Critical"
	ActivityHigh       = "High"
	ActivityMedium     = "Medium"
	ActivityLow        = "Low"
	ActivityCalm       = "Calm"
	ActivityActive     = "Active"
	ActivityEscalating = "Escalating"
)

// SourceRef identifies where a global item was published.
type SourceRef struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// GlobalItem is one harvested news item. The url is unique across the
// corpus; re-ingesting an item replaces the previous row.
type GlobalItem struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      SourceRef `json:"source"`
	URL         string    `json:"url"`
	PublishedAt string    `json:"published_at"`
	Topic       string    `json:"topic"`
	Countries   []string  `json:"countries"`
	CountryIDs  []string  `json:"country_ids,omitempty"`
	CreatedAt   string    `json:"created_at,omitempty"`
}

// EventCluster is one clustered event inside a country snapshot.
type EventCluster struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Why        string   `json:"why,omitempty"`
	Confidence string   `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
	Topic      string   `json:"topic,omitempty"`
}

// CountryStats summarizes the signals behind a snapshot.
type CountryStats struct {
	Signals    int     `json:"signals"`
	Disputes   int     `json:"disputes"`
	Confidence float64 `json:"confidence"`
}

// Snapshot is the aggregated situation picture for one country.
type Snapshot struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ActivityLevel string         `json:"activity_level"`
	UpdatedAt     string         `json:"updated_at"`
	Events        []EventCluster `json:"events"`
	Stats         CountryStats   `json:"stats"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UpdatedAtDB   string         `json:"updated_at_db,omitempty"`
}
