package clientdata

import "time"

// TTL constants for the cached response types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLSummary covers generated theme impact summaries. Keys include a
	// hash of the underlying signals, so a changed signal set produces a
	// fresh entry rather than a stale hit.
	TTLSummary = 24 * time.Hour

	// TTLAnalysis covers per-signal semantic analyses. Matches the
	// in-process semantic cache window.
	TTLAnalysis = time.Hour
)

// Table names for the cached response types.
const (
	TableSummaries = "llm_summaries"
	TableAnalyses  = "llm_analyses"
)
