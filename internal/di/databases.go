// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/argus/internal/config"
	"github.com/aristath/argus/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases initializes all 4 databases and applies schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. corpus.db - Intelligence corpus (global items, situation snapshots)
	corpusDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/corpus.db",
		Profile: database.ProfileStandard,
		Name:    "corpus",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize corpus database: %w", err)
	}
	container.CorpusDB = corpusDB

	// 2. config.db - Application configuration (settings, themes, scoring profiles)
	configDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/config.db",
		Profile: database.ProfileStandard,
		Name:    "config",
	})
	if err != nil {
		corpusDB.Close()
		return nil, fmt.Errorf("failed to initialize config database: %w", err)
	}
	container.ConfigDB = configDB

	// 3. scans.db - Archived scan results
	scansDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/scans.db",
		Profile: database.ProfileStandard,
		Name:    "scans",
	})
	if err != nil {
		corpusDB.Close()
		configDB.Close()
		return nil, fmt.Errorf("failed to initialize scans database: %w", err)
	}
	container.ScansDB = scansDB

	// 4. cache.db - Ephemeral operational data (job history, LLM response cache)
	cacheDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/cache.db",
		Profile: database.ProfileCache, // Maximum speed for ephemeral data
		Name:    "cache",
	})
	if err != nil {
		corpusDB.Close()
		configDB.Close()
		scansDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	// Apply schemas to all databases (single source of truth)
	for _, db := range []*database.DB{corpusDB, configDB, scansDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			container.CloseDatabases()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Msg("All databases initialized and schemas applied")

	return container, nil
}
