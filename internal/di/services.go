// Package di provides dependency injection for service implementations.
package di

import (
	"fmt"

	"github.com/aristath/argus/internal/cache"
	"github.com/aristath/argus/internal/clients/anthropic"
	"github.com/aristath/argus/internal/clients/serper"
	"github.com/aristath/argus/internal/clients/tavily"
	"github.com/aristath/argus/internal/config"
	"github.com/aristath/argus/internal/database"
	"github.com/aristath/argus/internal/events"
	"github.com/aristath/argus/internal/modules/characterization"
	"github.com/aristath/argus/internal/modules/corpus"
	"github.com/aristath/argus/internal/modules/georisk"
	"github.com/aristath/argus/internal/modules/impact"
	"github.com/aristath/argus/internal/modules/ingestion"
	"github.com/aristath/argus/internal/modules/retrieval"
	"github.com/aristath/argus/internal/modules/semantic"
	"github.com/aristath/argus/internal/modules/settings"
	"github.com/aristath/argus/internal/modules/themes"
	"github.com/aristath/argus/internal/modules/websearch"
	"github.com/aristath/argus/internal/reliability"
	"github.com/aristath/argus/pkg/embedded"
	"github.com/rs/zerolog"
)

// recentScansCapacity bounds the in-memory ring of detailed scan results
// served by GET /api/geo-risk/scans.
const recentScansCapacity = 100

// InitializeServices creates all services and stores them in the container.
// Clients without API keys are still constructed; they report Enabled() ==
// false and the dependent pipeline stages degrade to their fallbacks.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// ==========================================
	// Events and caches
	// ==========================================
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)
	container.Caches = cache.NewCaches(cfg.RetrieverCacheTTL, cfg.SemanticCacheTTL)

	// ==========================================
	// External API clients
	// ==========================================
	container.AnthropicClient = anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, log)
	container.SerperClient = serper.NewClient(cfg.SerperAPIKey, log)
	container.TavilyClient = tavily.NewClient(cfg.TavilyAPIKey, log)

	// ==========================================
	// Settings access
	// ==========================================
	container.SettingsService = settings.NewService(container.SettingsRepo, log)
	container.ScoringProvider = settings.NewProvider(container.ScoringRepo, log)

	// ==========================================
	// Analysis pipeline (stages 1-5)
	// ==========================================
	container.Characterizer = characterization.New(log)
	container.ThemeMapper = themes.NewMapper(container.ThemesRepo, log)
	container.CorpusQuerier = corpus.NewQuerier(container.CorpusRepo, log)

	container.WebSearch = websearch.NewService(
		cfg,
		container.AnthropicClient,
		container.TavilyClient,
		container.SerperClient,
		log,
	)

	container.SemanticAnalyzer = semantic.NewAnalyzer(
		container.AnthropicClient,
		container.Caches.Semantic,
		container.ClientDataRepo,
		log,
	)
	container.SemanticValidator = semantic.NewValidator(
		container.AnthropicClient,
		container.Caches.Validation,
		log,
	)

	container.Retriever = retrieval.NewRetriever(
		container.CorpusQuerier,
		container.WebSearch,
		container.SemanticAnalyzer,
		container.SemanticValidator,
		container.ThemesRepo,
		container.ScoringProvider,
		cfg,
		container.Caches.Retriever,
		log,
	)

	container.ImpactSummarizer = impact.NewSummarizer(
		container.AnthropicClient,
		container.ClientDataRepo,
		log,
	)
	container.ImpactAssessor = impact.NewAssessor(container.ImpactSummarizer, log)

	container.RecentScans = georisk.NewRecentStore(recentScansCapacity)
	container.Engine = georisk.NewEngine(
		container.Characterizer,
		container.ThemeMapper,
		container.Retriever,
		container.ImpactAssessor,
		container.ScoringProvider,
		container.RecentScans,
		container.EventManager,
		log,
	)

	// ==========================================
	// Ingestion service
	// ==========================================
	countries, err := embedded.Countries()
	if err != nil {
		return fmt.Errorf("failed to load embedded country table: %w", err)
	}
	container.IngestionService = ingestion.NewService(
		ingestion.DefaultFeeds,
		countries,
		container.CorpusRepo,
		container.Caches,
		container.EventManager,
		log,
	)

	// ==========================================
	// Reliability services
	// ==========================================
	databases := map[string]*database.DB{
		"corpus": container.CorpusDB,
		"config": container.ConfigDB,
		"scans":  container.ScansDB,
		"cache":  container.CacheDB,
	}
	container.BackupService = reliability.NewBackupService(databases, cfg.DataDir, cfg.BackupDir, log)
	container.MaintenanceService = reliability.NewMaintenanceService(databases, cfg.DataDir, cfg.BackupDir, log)

	// R2 cloud backup (optional - only if credentials are configured).
	// Settings DB values take precedence over environment variables.
	r2AccountID := cfg.R2AccountID
	r2AccessKeyID := cfg.R2AccessKeyID
	r2SecretAccessKey := cfg.R2SecretAccessKey
	r2BucketName := cfg.R2Bucket

	if container.SettingsRepo != nil {
		overrides := map[string]*string{
			"r2_account_id":        &r2AccountID,
			"r2_access_key_id":     &r2AccessKeyID,
			"r2_secret_access_key": &r2SecretAccessKey,
			"r2_bucket_name":       &r2BucketName,
		}
		for key, dst := range overrides {
			if val, err := container.SettingsRepo.Get(key); err == nil && val != nil && *val != "" {
				*dst = *val
			}
		}
	}

	if r2AccountID != "" && r2AccessKeyID != "" && r2SecretAccessKey != "" && r2BucketName != "" {
		r2Client, err := reliability.NewR2Client(r2AccountID, r2AccessKeyID, r2SecretAccessKey, r2BucketName, log)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize R2 client - R2 backup disabled")
		} else {
			container.R2Client = r2Client
			container.R2BackupService = reliability.NewR2BackupService(
				r2Client,
				container.BackupService,
				cfg.DataDir,
				log,
			)
			container.RestoreService = reliability.NewRestoreService(r2Client, cfg.DataDir, log)
			log.Info().Msg("R2 cloud backup services initialized")
		}
	} else {
		log.Debug().Msg("R2 credentials not configured - R2 backup disabled")
	}

	log.Info().Msg("All services initialized")

	return nil
}
