package settings

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ScoringRepository handles scoring_settings records in config.db.
// The two score lookup tables are stored as JSON columns.
type ScoringRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewScoringRepository creates a new scoring settings repository.
func NewScoringRepository(db *sql.DB, log zerolog.Logger) *ScoringRepository {
	return &ScoringRepository{
		db:  db,
		log: log.With().Str("repository", "scoring_settings").Logger(),
	}
}

const scoringColumns = `
	id, name, description,
	weight_base_relevance, weight_theme_match, weight_recency,
	weight_source_quality, weight_activity_level,
	recency_decay_constant,
	score_country_exact_match, score_country_partial_match,
	score_region_match, score_sector_match,
	activity_level_scores, source_quality_scores,
	semantic_threshold, relevance_threshold_low, relevance_threshold_high,
	theme_relevance_threshold_web,
	days_lookback_default, max_signals_default, max_events_per_snapshot,
	use_semantic_filtering, use_batch_validation,
	is_active, created_at, updated_at`

// scanScoring reads one scoring_settings row into a normalized record.
func scanScoring(row interface{ Scan(...interface{}) error }) (*ScoringSettings, error) {
	var s ScoringSettings
	var description sql.NullString
	var activityJSON, sourceJSON string

	err := row.Scan(
		&s.ID, &s.Name, &description,
		&s.WeightBaseRelevance, &s.WeightThemeMatch, &s.WeightRecency,
		&s.WeightSourceQuality, &s.WeightActivityLevel,
		&s.RecencyDecayConstant,
		&s.ScoreCountryExactMatch, &s.ScoreCountryPartialMatch,
		&s.ScoreRegionMatch, &s.ScoreSectorMatch,
		&activityJSON, &sourceJSON,
		&s.SemanticThreshold, &s.RelevanceThresholdLow, &s.RelevanceThresholdHigh,
		&s.ThemeRelevanceThresholdWeb,
		&s.DaysLookbackDefault, &s.MaxSignalsDefault, &s.MaxEventsPerSnapshot,
		&s.UseSemanticFiltering, &s.UseBatchValidation,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Description = description.String

	if err := json.Unmarshal([]byte(activityJSON), &s.ActivityLevelScores); err != nil {
		s.ActivityLevelScores = nil
	}
	if err := json.Unmarshal([]byte(sourceJSON), &s.SourceQualityScores); err != nil {
		s.SourceQualityScores = nil
	}

	s.Normalize()
	return &s, nil
}

// List returns all scoring settings records, optionally only active ones.
func (r *ScoringRepository) List(activeOnly bool) ([]ScoringSettings, error) {
	query := "SELECT " + scoringColumns + " FROM scoring_settings"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring settings: %w", err)
	}
	defer rows.Close()

	var result []ScoringSettings
	for rows.Next() {
		s, err := scanScoring(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan scoring settings row")
			continue
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scoring settings: %w", err)
	}

	return result, nil
}

// Get returns a record by name, or nil when it doesn't exist.
func (r *ScoringRepository) Get(name string) (*ScoringSettings, error) {
	row := r.db.QueryRow(
		"SELECT "+scoringColumns+" FROM scoring_settings WHERE name = ?", name)

	s, err := scanScoring(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scoring settings %s: %w", name, err)
	}

	return s, nil
}

// GetActive returns the active record, preferring the one named "default"
// when several are active. Returns nil when none is active.
func (r *ScoringRepository) GetActive() (*ScoringSettings, error) {
	row := r.db.QueryRow("SELECT " + scoringColumns + ` FROM scoring_settings
		WHERE is_active = 1
		ORDER BY CASE WHEN name = 'default' THEN 0 ELSE 1 END, name
		LIMIT 1`)

	s, err := scanScoring(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active scoring settings: %w", err)
	}

	return s, nil
}

// Create inserts a new scoring settings record.
func (r *ScoringRepository) Create(s *ScoringSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.Normalize()

	activityJSON, err := json.Marshal(s.ActivityLevelScores)
	if err != nil {
		return fmt.Errorf("failed to marshal activity level scores: %w", err)
	}
	sourceJSON, err := json.Marshal(s.SourceQualityScores)
	if err != nil {
		return fmt.Errorf("failed to marshal source quality scores: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.Exec(`
		INSERT INTO scoring_settings (
			name, description,
			weight_base_relevance, weight_theme_match, weight_recency,
			weight_source_quality, weight_activity_level,
			recency_decay_constant,
			score_country_exact_match, score_country_partial_match,
			score_region_match, score_sector_match,
			activity_level_scores, source_quality_scores,
			semantic_threshold, relevance_threshold_low, relevance_threshold_high,
			theme_relevance_threshold_web,
			days_lookback_default, max_signals_default, max_events_per_snapshot,
			use_semantic_filtering, use_batch_validation,
			is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.Name, s.Description,
		s.WeightBaseRelevance, s.WeightThemeMatch, s.WeightRecency,
		s.WeightSourceQuality, s.WeightActivityLevel,
		s.RecencyDecayConstant,
		s.ScoreCountryExactMatch, s.ScoreCountryPartialMatch,
		s.ScoreRegionMatch, s.ScoreSectorMatch,
		string(activityJSON), string(sourceJSON),
		s.SemanticThreshold, s.RelevanceThresholdLow, s.RelevanceThresholdHigh,
		s.ThemeRelevanceThresholdWeb,
		s.DaysLookbackDefault, s.MaxSignalsDefault, s.MaxEventsPerSnapshot,
		s.UseSemanticFiltering, s.UseBatchValidation,
		s.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create scoring settings %s: %w", s.Name, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		s.ID = id
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	return nil
}

// Update replaces an existing record identified by name.
// Returns sql.ErrNoRows when the record doesn't exist.
func (r *ScoringRepository) Update(name string, s *ScoringSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.Normalize()

	activityJSON, err := json.Marshal(s.ActivityLevelScores)
	if err != nil {
		return fmt.Errorf("failed to marshal activity level scores: %w", err)
	}
	sourceJSON, err := json.Marshal(s.SourceQualityScores)
	if err != nil {
		return fmt.Errorf("failed to marshal source quality scores: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.Exec(`
		UPDATE scoring_settings SET
			description = ?,
			weight_base_relevance = ?, weight_theme_match = ?, weight_recency = ?,
			weight_source_quality = ?, weight_activity_level = ?,
			recency_decay_constant = ?,
			score_country_exact_match = ?, score_country_partial_match = ?,
			score_region_match = ?, score_sector_match = ?,
			activity_level_scores = ?, source_quality_scores = ?,
			semantic_threshold = ?, relevance_threshold_low = ?, relevance_threshold_high = ?,
			theme_relevance_threshold_web = ?,
			days_lookback_default = ?, max_signals_default = ?, max_events_per_snapshot = ?,
			use_semantic_filtering = ?, use_batch_validation = ?,
			is_active = ?, updated_at = ?
		WHERE name = ?
	`,
		s.Description,
		s.WeightBaseRelevance, s.WeightThemeMatch, s.WeightRecency,
		s.WeightSourceQuality, s.WeightActivityLevel,
		s.RecencyDecayConstant,
		s.ScoreCountryExactMatch, s.ScoreCountryPartialMatch,
		s.ScoreRegionMatch, s.ScoreSectorMatch,
		string(activityJSON), string(sourceJSON),
		s.SemanticThreshold, s.RelevanceThresholdLow, s.RelevanceThresholdHigh,
		s.ThemeRelevanceThresholdWeb,
		s.DaysLookbackDefault, s.MaxSignalsDefault, s.MaxEventsPerSnapshot,
		s.UseSemanticFiltering, s.UseBatchValidation,
		s.IsActive, now, name,
	)
	if err != nil {
		return fmt.Errorf("failed to update scoring settings %s: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for %s: %w", name, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	s.Name = name
	s.UpdatedAt = now

	return nil
}

// SeedDefaults inserts the built-in "default" record when it doesn't exist.
// Called at process start so getActiveSettings always has a persisted record.
func (r *ScoringRepository) SeedDefaults() error {
	existing, err := r.Get("default")
	if err != nil {
		return fmt.Errorf("failed to check for default scoring settings: %w", err)
	}
	if existing != nil {
		return nil
	}

	defaults := DefaultScoringSettings()
	if err := r.Create(&defaults); err != nil {
		return fmt.Errorf("failed to seed default scoring settings: %w", err)
	}

	r.log.Info().Msg("Seeded default scoring settings")
	return nil
}
