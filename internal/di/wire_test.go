package di

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/argus/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	return &config.Config{
		DataDir:             tmpDir,
		BackupDir:           filepath.Join(tmpDir, "backups"),
		Port:                8090,
		WebSearchAPI:        "research",
		WebSearchMaxResults: 5,
		MaxWebSearchThemes:  3,
		AnthropicBaseURL:    "https://api.anthropic.com",
		UseLLMForQueries:    true,
		RetrieverCacheTTL:   10 * time.Minute,
		SemanticCacheTTL:    time.Hour,
		IngestionInterval:   30 * time.Minute,
		IngestionMaxAgeDays: 1,
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	require.NotNil(t, container)
	t.Cleanup(container.CloseDatabases)

	// Databases open and migrated
	assert.NotNil(t, container.CorpusDB)
	assert.NotNil(t, container.ConfigDB)
	assert.NotNil(t, container.ScansDB)
	assert.NotNil(t, container.CacheDB)

	// Pipeline fully wired
	assert.NotNil(t, container.Characterizer)
	assert.NotNil(t, container.ThemeMapper)
	assert.NotNil(t, container.Retriever)
	assert.NotNil(t, container.ImpactAssessor)
	assert.NotNil(t, container.Engine)
	assert.NotNil(t, container.RecentScans)
	assert.NotNil(t, container.IngestionService)
	assert.NotNil(t, container.SettingsService)

	// Clients are constructed even without API keys
	require.NotNil(t, container.AnthropicClient)
	assert.False(t, container.AnthropicClient.Enabled())
	require.NotNil(t, container.TavilyClient)
	assert.False(t, container.TavilyClient.Enabled())

	// Reliability and scheduler
	assert.NotNil(t, container.BackupService)
	assert.NotNil(t, container.MaintenanceService)
	assert.NotNil(t, container.Scheduler)

	// R2 stays disabled without credentials
	assert.Nil(t, container.R2Client)
	assert.Nil(t, container.R2BackupService)
	assert.Nil(t, container.RestoreService)
}

func TestWireSeedsDefaults(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	t.Cleanup(container.CloseDatabases)

	themes := container.ThemesRepo.ActiveThemes()
	assert.NotEmpty(t, themes, "theme catalog should be seeded on first run")

	active := container.ScoringProvider.Active()
	assert.Greater(t, active.MaxSignalsDefault, 0)
	assert.Greater(t, active.DaysLookbackDefault, 0)
}

func TestWireEnablesR2FromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.R2AccountID = "acct"
	cfg.R2AccessKeyID = "key"
	cfg.R2SecretAccessKey = "secret"
	cfg.R2Bucket = "argus-backups"
	log := zerolog.Nop()

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	t.Cleanup(container.CloseDatabases)

	assert.NotNil(t, container.R2Client)
	assert.NotNil(t, container.R2BackupService)
	assert.NotNil(t, container.RestoreService)
}

func TestWireFailsOnUnusableDataDir(t *testing.T) {
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := testConfig(t)
	cfg.DataDir = filepath.Join(blocker, "data")

	container, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, container)
	assert.Contains(t, err.Error(), "database initialization failed")
}
