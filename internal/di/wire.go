// Package di provides dependency injection wiring for the application.
package di

import (
	"fmt"

	"github.com/aristath/argus/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all application dependencies in order: databases,
// repositories, settings overlay, services, scheduler jobs. A failure at
// any step closes every database opened so far and returns the wrapped error.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	// Step 1: Initialize databases
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}

	// Step 2: Initialize repositories
	if err := InitializeRepositories(container, log); err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("repository initialization failed: %w", err)
	}

	// Step 3: Overlay config with values from the settings database. API keys
	// stored via the settings API take precedence over environment variables
	// and must be applied before the clients are constructed.
	if err := cfg.UpdateFromSettings(container.SettingsRepo); err != nil {
		log.Warn().Err(err).Msg("Failed to update config from settings DB, using environment variables")
	}

	// Step 4: Initialize services
	if err := InitializeServices(container, cfg, log); err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("service initialization failed: %w", err)
	}

	// Step 5: Register scheduler jobs
	if err := RegisterJobs(container, cfg, log); err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("job registration failed: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}
