/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the HTTP server for access to services.
 */
package di

import (
	"github.com/aristath/argus/internal/cache"
	"github.com/aristath/argus/internal/clientdata"
	"github.com/aristath/argus/internal/clients/anthropic"
	"github.com/aristath/argus/internal/clients/serper"
	"github.com/aristath/argus/internal/clients/tavily"
	"github.com/aristath/argus/internal/database"
	"github.com/aristath/argus/internal/events"
	"github.com/aristath/argus/internal/modules/characterization"
	"github.com/aristath/argus/internal/modules/corpus"
	"github.com/aristath/argus/internal/modules/georisk"
	"github.com/aristath/argus/internal/modules/impact"
	"github.com/aristath/argus/internal/modules/ingestion"
	"github.com/aristath/argus/internal/modules/retrieval"
	"github.com/aristath/argus/internal/modules/scans"
	"github.com/aristath/argus/internal/modules/semantic"
	"github.com/aristath/argus/internal/modules/settings"
	"github.com/aristath/argus/internal/modules/themes"
	"github.com/aristath/argus/internal/modules/websearch"
	"github.com/aristath/argus/internal/reliability"
	"github.com/aristath/argus/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * This is the single source of truth for all service instances.
 * The container is created by Wire() and passed to the server for access to services.
 *
 * Architecture:
 * - Databases: 4-database architecture (corpus, config, scans, cache)
 * - Clients: External API clients (LLM, web search, enrichment)
 * - Repositories: Data access layer (corpus items, themes, scans, settings)
 * - Services: The analysis pipeline (characterization through probability synthesis)
 * - Reliability: Backups, maintenance and restore
 * - Scheduler: Cron-driven background jobs with run history
 *
 * All dependencies are injected via constructor injection following clean architecture principles.
 */
type Container struct {
	// Databases (4-database architecture)
	// Each database uses SQLite with WAL mode and profile-specific PRAGMAs
	CorpusDB *database.DB // Intelligence corpus (global items, situation snapshots)
	ConfigDB *database.DB // Application configuration (settings, themes, scoring profiles)
	ScansDB  *database.DB // Archived scan results
	CacheDB  *database.DB // Ephemeral operational data (job history, LLM response cache)

	// Events - pub/sub bus for scan progress and system notifications
	EventBus     *events.Bus
	EventManager *events.Manager

	// In-process TTL caches for retrieval and LLM results
	Caches *cache.Caches

	// Repositories - Data access layer
	CorpusRepo     *corpus.Repository              // Corpus items and snapshots
	ThemesRepo     *themes.Repository              // Geopolitical theme catalog
	ScansRepo      *scans.Repository               // Scan archive
	SettingsRepo   *settings.Repository            // Application settings (key-value)
	ScoringRepo    *settings.ScoringRepository     // Named scoring profiles
	ClientDataRepo *clientdata.Repository          // Cached LLM summaries and analyses
	JobHistoryRepo *scheduler.JobHistoryRepository // Scheduled job run history

	// SettingsService layers typed reads and validated writes over SettingsRepo
	SettingsService *settings.Service

	// ScoringProvider resolves the active scoring settings for the pipeline
	ScoringProvider *settings.Provider

	// Clients - External API integrations
	AnthropicClient *anthropic.Client // LLM completions (self-disables without key)
	SerperClient    *serper.Client    // General web search
	TavilyClient    *tavily.Client    // Research web search

	// Pipeline services - the five analysis stages plus their collaborators
	Characterizer     *characterization.Characterizer // Stage 1: asset profiling
	ThemeMapper       *themes.Mapper                  // Stage 2: theme relevance
	CorpusQuerier     *corpus.Querier                 // Corpus keyword retrieval
	WebSearch         *websearch.Service              // Web search fan-out
	SemanticAnalyzer  *semantic.Analyzer              // Per-signal LLM filtering
	SemanticValidator *semantic.Validator             // Batch signal validation
	Retriever         *retrieval.Retriever            // Stage 3: intelligence retrieval
	ImpactSummarizer  *impact.Summarizer              // Theme summary generation
	ImpactAssessor    *impact.Assessor                // Stage 4: impact assessment
	Engine            *georisk.Engine                 // Pipeline orchestrator (stages 1-5)
	RecentScans       *georisk.RecentStore            // In-memory ring of recent results
	IngestionService  *ingestion.Service              // Feed polling and corpus rebuild

	// Reliability services
	BackupService      *reliability.BackupService      // Local tiered database backups
	MaintenanceService *reliability.MaintenanceService // Daily integrity and disk checks
	R2Client           *reliability.R2Client           // Cloudflare R2 client (optional)
	R2BackupService    *reliability.R2BackupService    // R2 cloud backup service (optional)
	RestoreService     *reliability.RestoreService     // Staged restore from R2 archives

	// Scheduler - cron-driven background jobs
	Scheduler *scheduler.Scheduler
}

// CloseDatabases closes every open database connection. Used during
// shutdown and by Wire when a later initialization step fails.
func (c *Container) CloseDatabases() {
	for _, db := range []*database.DB{c.CorpusDB, c.ConfigDB, c.ScansDB, c.CacheDB} {
		if db != nil {
			db.Close()
		}
	}
}
