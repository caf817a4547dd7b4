package settings

// SettingDefaults holds all default values for configurable settings.
// Values stored in config.db take precedence over environment variables.
var SettingDefaults = map[string]interface{}{
	// Web search provider selection
	"web_search_api":         "research", // "research" or "general"
	"web_search_max_results": 5.0,        // Max results per theme search
	"max_web_search_themes":  3.0,        // Max themes to fan out to web search

	// LLM behavior. The semantic filtering and batch validation toggles
	// live on the scoring settings records, not here.
	"use_llm_for_queries": 1.0, // 1.0 = refine search queries with the LLM

	// API credentials
	"tavily_api_key":    "", // Research search API key
	"serper_api_key":    "", // General search API key
	"anthropic_api_key": "", // LLM API key

	// Ingestion job
	"ingestion_interval_minutes": 30.0, // RSS refresh cadence
	"ingestion_max_age_days":     1.0,  // Drop feed entries older than this

	// Cloudflare R2 backup settings
	"r2_account_id":            "",
	"r2_access_key_id":         "",
	"r2_secret_access_key":     "",
	"r2_bucket_name":           "",
	"r2_backup_enabled":        0.0,     // 1.0 = enabled
	"r2_backup_schedule":       "daily", // "daily", "weekly", or "monthly"
	"r2_backup_retention_days": 90.0,    // 0 = keep forever
}

// StringSettings defines which settings should be treated as strings rather than floats
var StringSettings = map[string]bool{
	"web_search_api":       true,
	"tavily_api_key":       true,
	"serper_api_key":       true,
	"anthropic_api_key":    true,
	"r2_account_id":        true,
	"r2_access_key_id":     true,
	"r2_secret_access_key": true,
	"r2_bucket_name":       true,
	"r2_backup_schedule":   true,
}

// SettingDescriptions holds human-readable descriptions for settings
// surfaced through the settings API. Writes copy the description into the
// settings table alongside the value.
var SettingDescriptions = map[string]string{
	"web_search_api":             "Web search back-end: \"research\" (domain-restricted research API) or \"general\" (general search API)",
	"web_search_max_results":     "Maximum results requested per theme search (default 5)",
	"max_web_search_themes":      "Maximum number of top themes to fan out to web search (default 3)",
	"use_llm_for_queries":        "Refine web search queries with the LLM before searching (1.0 = yes, 0.0 = deterministic query builder only)",
	"tavily_api_key":             "API key for the research web search back-end",
	"serper_api_key":             "API key for the general web search back-end",
	"anthropic_api_key":          "API key for the LLM service",
	"ingestion_interval_minutes": "Minutes between RSS corpus refresh runs (default 30, takes effect on restart)",
	"ingestion_max_age_days":     "Maximum age in days for ingested feed entries (default 1, takes effect on restart)",
	"r2_account_id":              "Cloudflare R2 account ID for off-site backups",
	"r2_access_key_id":           "Cloudflare R2 access key ID",
	"r2_secret_access_key":       "Cloudflare R2 secret access key",
	"r2_bucket_name":             "Cloudflare R2 bucket for backup archives",
	"r2_backup_enabled":          "Replicate backups to R2 (1.0 = yes)",
	"r2_backup_schedule":         "R2 replication cadence: \"daily\", \"weekly\" or \"monthly\" (takes effect on restart)",
	"r2_backup_retention_days":   "Days to keep R2 backup archives before rotation (0 = keep forever)",
}

// SettingUpdate represents a setting value update request
type SettingUpdate struct {
	Value interface{} `json:"value"`
}
