// Package main is the entry point for the Argus geopolitical risk analysis engine.
// The application maintains a corpus of open-source geopolitical intelligence and
// serves on-demand risk scans that trace a financial asset's exposure through
// country characterization, theme mapping, evidence retrieval and probability
// synthesis.
//
// The application follows clean architecture principles:
// - Domain layer is pure (no infrastructure dependencies)
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/argus/internal/config"
	"github.com/aristath/argus/internal/di"
	"github.com/aristath/argus/internal/reliability"
	"github.com/aristath/argus/internal/server"
	"github.com/aristath/argus/pkg/logger"
)

// main orchestrates the system startup sequence:
// 1. Loads configuration from environment variables (.env file)
// 2. Initializes the structured logger
// 3. Checks for and executes pending database restores (if any)
// 4. Wires all dependencies via DI container (databases, repositories, services, jobs)
// 5. Starts the HTTP server for API endpoints
// 6. Starts the job scheduler (ingestion refresh, cache cleanup, backups, maintenance)
// 7. Waits for shutdown signal and performs graceful shutdown
//
// The application uses a 4-database architecture:
// - corpus.db: Intelligence corpus (global items, country situation snapshots)
// - config.db: Application configuration (settings, scoring profiles, theme catalog)
// - scans.db: Archived scan results (assets, compressed scan payloads)
// - cache.db: Ephemeral operational data (LLM response cache, job history)
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Format: "console",
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Logger uses structured logging (zerolog) with configurable level and
	// console or JSON output
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Info().Msg("Starting Argus")

	// Check for pending restore BEFORE initializing databases.
	// Restores are staged by the restore service and executed on the next
	// startup, before any database connection is opened.
	restoreSvc := reliability.NewRestoreService(nil, cfg.DataDir, log)
	hasPendingRestore, err := restoreSvc.CheckPendingRestore()
	if err != nil {
		log.Error().Err(err).Msg("Failed to check for pending restore")
	}

	if hasPendingRestore {
		log.Warn().Msg("Pending restore detected, executing staged restore...")
		if err := restoreSvc.ExecuteStagedRestore(); err != nil {
			log.Fatal().Err(err).Msg("Failed to execute staged restore")
		}
		log.Info().Msg("Restore completed successfully, proceeding with normal startup")
	}

	// Wire all dependencies using DI container.
	// Databases are initialized first, then repositories, the settings
	// overlay, services and scheduled jobs, all via constructor injection.
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// All 4 databases must be closed on exit so WAL checkpoints are written.
	defer container.CloseDatabases()

	// Initialize HTTP server.
	// The HTTP server provides REST API endpoints for:
	// - Risk scans (on-demand, streaming, archived results)
	// - Corpus inspection (global items, country snapshots)
	// - Theme catalog and scoring settings management
	// - System operations (health checks, stats, job history)
	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	// Start server in goroutine so the scheduler can start concurrently
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Start the job scheduler. Jobs were registered during wiring:
	// corpus ingestion refresh, cache cleanup, tiered backups, database
	// maintenance and (when configured) R2 cloud backup.
	container.Scheduler.Start()
	log.Info().Msg("Job scheduler started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop the scheduler first; in-progress jobs run to completion
	container.Scheduler.Stop()
	log.Info().Msg("Job scheduler stopped")

	// Graceful shutdown.
	// The HTTP server is given up to 10 seconds to finish processing
	// in-flight requests before being forced to shut down.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
