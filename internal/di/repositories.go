// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/aristath/argus/internal/clientdata"
	"github.com/aristath/argus/internal/modules/corpus"
	"github.com/aristath/argus/internal/modules/scans"
	"github.com/aristath/argus/internal/modules/settings"
	"github.com/aristath/argus/internal/modules/themes"
	"github.com/aristath/argus/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories, stores them in the
// container and seeds the theme catalog and default scoring profile.
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Corpus repository (needs corpusDB)
	container.CorpusRepo = corpus.NewRepository(
		container.CorpusDB.Conn(),
		log,
	)

	// Theme catalog repository (needs configDB)
	container.ThemesRepo = themes.NewRepository(
		container.ConfigDB.Conn(),
		log,
	)

	// Scan archive repository (needs scansDB)
	container.ScansRepo = scans.NewRepository(
		container.ScansDB.Conn(),
		log,
	)

	// Settings repository (needs configDB)
	container.SettingsRepo = settings.NewRepository(
		container.ConfigDB.Conn(),
		log,
	)

	// Scoring profile repository (needs configDB)
	container.ScoringRepo = settings.NewScoringRepository(
		container.ConfigDB.Conn(),
		log,
	)

	// Client data repository for cached LLM responses (needs cacheDB)
	container.ClientDataRepo = clientdata.NewRepository(
		container.CacheDB.Conn(),
	)

	// Job history repository (needs cacheDB)
	container.JobHistoryRepo = scheduler.NewJobHistoryRepository(
		container.CacheDB.Conn(),
		log,
	)

	// Seed the built-in theme catalog. Existing rows are never overwritten
	// so user edits survive restarts.
	created, skipped, err := container.ThemesRepo.SeedDefaults()
	if err != nil {
		return fmt.Errorf("failed to seed theme catalog: %w", err)
	}
	if created > 0 {
		log.Info().Int("created", created).Int("skipped", skipped).Msg("Theme catalog seeded")
	}

	// Seed the default scoring profile and mark it active on first run.
	if err := container.ScoringRepo.SeedDefaults(); err != nil {
		return fmt.Errorf("failed to seed scoring settings: %w", err)
	}

	log.Info().Msg("All repositories initialized")

	return nil
}
