// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/argus/internal/modules/settings"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases (always absolute)
	BackupDir string // Directory for tiered database backups
	Port      int
	LogLevel  string
	LogFormat string // console or json
	DevMode   bool

	// Web search providers
	WebSearchAPI        string // "research" (Tavily-shaped) or "general" (Serper-shaped)
	TavilyAPIKey        string
	SerperAPIKey        string
	WebSearchMaxResults int
	MaxWebSearchThemes  int

	// LLM service
	AnthropicAPIKey  string
	AnthropicBaseURL string
	UseLLMForQueries bool

	// Pipeline caches
	RetrieverCacheTTL time.Duration
	SemanticCacheTTL  time.Duration

	// Ingestion job
	IngestionInterval   time.Duration
	IngestionMaxAgeDays int

	// R2 (S3-compatible) off-site backup; all four must be set to enable
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("ARGUS_DB_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	backupDir := getEnv("ARGUS_BACKUP_DIR", "./backups")
	absBackupDir, err := filepath.Abs(backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup directory path: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		BackupDir: absBackupDir,
		Port:      getEnvAsInt("ARGUS_PORT", 8090),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		DevMode:   getEnvAsBool("DEV_MODE", false),

		WebSearchAPI:        getEnv("WEB_SEARCH_API", "research"),
		TavilyAPIKey:        getEnv("TAVILY_API_KEY", ""),
		SerperAPIKey:        getEnv("SERPER_API_KEY", ""),
		WebSearchMaxResults: getEnvAsInt("WEB_SEARCH_MAX_RESULTS", 5),
		MaxWebSearchThemes:  getEnvAsInt("MAX_WEB_SEARCH_THEMES", 3),

		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		UseLLMForQueries: getEnvAsBool("USE_LLM_FOR_QUERIES", true),

		RetrieverCacheTTL: time.Duration(getEnvAsInt("RETRIEVER_CACHE_TTL_MINUTES", 10)) * time.Minute,
		SemanticCacheTTL:  time.Duration(getEnvAsInt("SEMANTIC_CACHE_TTL_MINUTES", 60)) * time.Minute,

		IngestionInterval:   time.Duration(getEnvAsInt("INGESTION_INTERVAL_MINUTES", 30)) * time.Minute,
		IngestionMaxAgeDays: getEnvAsInt("INGESTION_MAX_AGE_DAYS", 1),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:          getEnv("R2_BUCKET", ""),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UpdateFromSettings updates configuration from the settings database.
// This should be called after the config database is initialized.
// Non-empty settings DB values take precedence over environment variables.
func (c *Config) UpdateFromSettings(settingsRepo *settings.Repository) error {
	overrides := map[string]*string{
		"tavily_api_key":    &c.TavilyAPIKey,
		"serper_api_key":    &c.SerperAPIKey,
		"anthropic_api_key": &c.AnthropicAPIKey,
		"web_search_api":    &c.WebSearchAPI,
	}
	for key, dst := range overrides {
		val, err := settingsRepo.Get(key)
		if err != nil {
			return fmt.Errorf("failed to get %s from settings: %w", key, err)
		}
		// Keep the env var value when the settings DB has nothing
		if val != nil && *val != "" {
			*dst = *val
		}
	}

	useLLM, err := settingsRepo.GetBool("use_llm_for_queries", c.UseLLMForQueries)
	if err != nil {
		return fmt.Errorf("failed to get use_llm_for_queries from settings: %w", err)
	}
	c.UseLLMForQueries = useLLM

	maxResults, err := settingsRepo.GetInt("web_search_max_results", c.WebSearchMaxResults)
	if err != nil {
		return fmt.Errorf("failed to get web_search_max_results from settings: %w", err)
	}
	c.WebSearchMaxResults = maxResults

	maxThemes, err := settingsRepo.GetInt("max_web_search_themes", c.MaxWebSearchThemes)
	if err != nil {
		return fmt.Errorf("failed to get max_web_search_themes from settings: %w", err)
	}
	c.MaxWebSearchThemes = maxThemes

	intervalMinutes, err := settingsRepo.GetInt("ingestion_interval_minutes", int(c.IngestionInterval/time.Minute))
	if err != nil {
		return fmt.Errorf("failed to get ingestion_interval_minutes from settings: %w", err)
	}
	if intervalMinutes > 0 {
		c.IngestionInterval = time.Duration(intervalMinutes) * time.Minute
	}

	maxAgeDays, err := settingsRepo.GetInt("ingestion_max_age_days", c.IngestionMaxAgeDays)
	if err != nil {
		return fmt.Errorf("failed to get ingestion_max_age_days from settings: %w", err)
	}
	if maxAgeDays > 0 {
		c.IngestionMaxAgeDays = maxAgeDays
	}

	return nil
}

// R2Enabled reports whether all R2 credentials are configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2Bucket != ""
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.WebSearchAPI != "research" && c.WebSearchAPI != "general" {
		return fmt.Errorf("WEB_SEARCH_API must be \"research\" or \"general\", got %q", c.WebSearchAPI)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
