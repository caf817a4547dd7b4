package settings

import (
	"sync"

	"github.com/rs/zerolog"
)

// Provider memoizes the active scoring settings record. The pipeline reads
// settings once per invocation; the memo is dropped on Invalidate, which the
// settings handlers call after every write. Safe for concurrent use:
// single-writer invalidation, multi-reader access.
type Provider struct {
	repo *ScoringRepository
	log  zerolog.Logger

	mu     sync.RWMutex
	cached *ScoringSettings
}

// NewProvider creates a settings provider over the scoring repository.
func NewProvider(repo *ScoringRepository, log zerolog.Logger) *Provider {
	return &Provider{
		repo: repo,
		log:  log.With().Str("component", "settings_provider").Logger(),
	}
}

// Active returns the current scoring settings. Resolution order: the
// memoized record, then the persisted active record, then built-in
// defaults. Store failures degrade to defaults with a warning; callers
// never see an error.
func (p *Provider) Active() ScoringSettings {
	p.mu.RLock()
	if p.cached != nil {
		s := *p.cached
		p.mu.RUnlock()
		return s
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another goroutine may have filled the memo while we waited
	if p.cached != nil {
		return *p.cached
	}

	active, err := p.repo.GetActive()
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to load active scoring settings, using defaults")
		defaults := DefaultScoringSettings()
		return defaults
	}
	if active == nil {
		p.log.Warn().Msg("No active scoring settings record, using defaults")
		defaults := DefaultScoringSettings()
		p.cached = &defaults
		return defaults
	}

	p.cached = active
	return *active
}

// Invalidate drops the memoized record so the next Active() call re-reads
// the store. Called after scoring settings writes and theme catalog changes.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}
