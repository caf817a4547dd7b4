package cache

import "time"

// Caches bundles the pipeline's in-process caches so they can be
// invalidated together when the underlying corpus changes.
type Caches struct {
	// Retriever caches full retrieval results keyed by a composite
	// asset/settings digest.
	Retriever *TTLCache
	// Semantic caches per-signal LLM analysis keyed by a signal digest.
	Semantic *TTLCache
	// Validation caches batch validation results.
	Validation *TTLCache
}

// NewCaches builds the standard cache set with the given TTLs.
func NewCaches(retrieverTTL, semanticTTL time.Duration) *Caches {
	return &Caches{
		Retriever:  New(retrieverTTL),
		Semantic:   New(semanticTTL),
		Validation: New(semanticTTL),
	}
}

// InvalidateAll clears every cache. Called after an ingestion run so
// fresh corpus data is visible to subsequent scans.
func (c *Caches) InvalidateAll() {
	c.Retriever.Clear()
	c.Semantic.Clear()
	c.Validation.Clear()
}

// FlushExpired removes expired entries from every cache and returns the
// total number removed. Called by the maintenance job.
func (c *Caches) FlushExpired() int {
	return c.Retriever.Flush() + c.Semantic.Flush() + c.Validation.Flush()
}
