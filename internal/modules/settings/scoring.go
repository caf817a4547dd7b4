package settings

import (
	"fmt"
	"math"

	"github.com/aristath/argus/internal/domain"
)

// ScoringSettings is a named, tunable record controlling how intelligence
// signals are scored and filtered. Exactly one record is active at a time;
// the pipeline reads it at invocation through the Provider.
type ScoringSettings struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Composite score weights. Must sum to 1.0.
	WeightBaseRelevance float64 `json:"weight_base_relevance"`
	WeightThemeMatch    float64 `json:"weight_theme_match"`
	WeightRecency       float64 `json:"weight_recency"`
	WeightSourceQuality float64 `json:"weight_source_quality"`
	WeightActivityLevel float64 `json:"weight_activity_level"`

	// Exponential decay constant for recency, in days.
	RecencyDecayConstant float64 `json:"recency_decay_constant"`

	// Base relevance scores
	ScoreCountryExactMatch   float64 `json:"score_country_exact_match"`
	ScoreCountryPartialMatch float64 `json:"score_country_partial_match"`
	ScoreRegionMatch         float64 `json:"score_region_match"`
	ScoreSectorMatch         float64 `json:"score_sector_match"`

	// Lookup tables. Both carry a "default" entry used as fallback.
	ActivityLevelScores map[string]float64 `json:"activity_level_scores"`
	SourceQualityScores map[string]float64 `json:"source_quality_scores"`

	// Thresholds
	SemanticThreshold          float64 `json:"semantic_threshold"`
	RelevanceThresholdLow      float64 `json:"relevance_threshold_low"`
	RelevanceThresholdHigh     float64 `json:"relevance_threshold_high"`
	ThemeRelevanceThresholdWeb float64 `json:"theme_relevance_threshold_web"`

	// Pipeline parameters
	DaysLookbackDefault  int `json:"days_lookback_default"`
	MaxSignalsDefault    int `json:"max_signals_default"`
	MaxEventsPerSnapshot int `json:"max_events_per_snapshot"`

	UseSemanticFiltering bool `json:"use_semantic_filtering"`
	UseBatchValidation   bool `json:"use_batch_validation"`

	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// DefaultActivityLevelScores returns the built-in activity level score table.
func DefaultActivityLevelScores() map[string]float64 {
	return map[string]float64{
		"Critical": 1.0,
		"High":     0.8,
		"Medium":   0.5,
		"Low":      0.2,
		"default":  0.3,
	}
}

// DefaultSourceQualityScores returns the built-in source quality score table.
func DefaultSourceQualityScores() map[string]float64 {
	return map[string]float64{
		"Reuters":                 1.0,
		"BBC":                     1.0,
		"Financial Times":         0.95,
		"The Guardian":            0.9,
		"The New York Times":      0.95,
		"The Wall Street Journal": 0.95,
		"Bloomberg":               0.9,
		"Associated Press":        0.95,
		"Al Jazeera":              0.85,
		"CNN":                     0.85,
		"The Economist":           0.9,
		"Foreign Policy":          0.85,
		"Foreign Affairs":         0.85,
		"The Diplomat":            0.8,
		"default":                 0.7,
	}
}

// DefaultScoringSettings returns the built-in "default" record. Used to
// seed the store at startup and as the last-resort fallback when no
// persisted record is active.
func DefaultScoringSettings() ScoringSettings {
	return ScoringSettings{
		Name:        "default",
		Description: "Built-in default scoring settings",

		WeightBaseRelevance: 0.3,
		WeightThemeMatch:    0.25,
		WeightRecency:       0.2,
		WeightSourceQuality: 0.15,
		WeightActivityLevel: 0.1,

		RecencyDecayConstant: 30.0,

		ScoreCountryExactMatch:   0.5,
		ScoreCountryPartialMatch: 0.3,
		ScoreRegionMatch:         0.2,
		ScoreSectorMatch:         0.2,

		ActivityLevelScores: DefaultActivityLevelScores(),
		SourceQualityScores: DefaultSourceQualityScores(),

		SemanticThreshold:          0.6,
		RelevanceThresholdLow:      0.05,
		RelevanceThresholdHigh:     0.1,
		ThemeRelevanceThresholdWeb: 0.3,

		DaysLookbackDefault:  90,
		MaxSignalsDefault:    20,
		MaxEventsPerSnapshot: 3,

		UseSemanticFiltering: true,
		UseBatchValidation:   true,

		IsActive: true,
	}
}

// Validate checks invariants that would corrupt scoring if violated.
func (s *ScoringSettings) Validate() error {
	if s.Name == "" {
		return &domain.InputError{Field: "name", Reason: "must not be empty"}
	}

	sum := s.WeightBaseRelevance + s.WeightThemeMatch + s.WeightRecency +
		s.WeightSourceQuality + s.WeightActivityLevel
	if math.Abs(sum-1.0) > 0.001 {
		return &domain.InputError{Field: "weights", Reason: fmt.Sprintf("must sum to 1.0, got %.3f", sum)}
	}

	if s.RecencyDecayConstant <= 0 {
		return &domain.InputError{Field: "recency_decay_constant", Reason: fmt.Sprintf("must be positive, got %.3f", s.RecencyDecayConstant)}
	}

	return nil
}

// Normalize fills empty lookup tables and non-positive pipeline parameters
// with built-in defaults. Records written before a field existed load as
// zero values; consumers always see a complete record.
func (s *ScoringSettings) Normalize() {
	if len(s.ActivityLevelScores) == 0 {
		s.ActivityLevelScores = DefaultActivityLevelScores()
	}
	if len(s.SourceQualityScores) == 0 {
		s.SourceQualityScores = DefaultSourceQualityScores()
	}
	if s.RecencyDecayConstant <= 0 {
		s.RecencyDecayConstant = 30.0
	}
	if s.DaysLookbackDefault <= 0 {
		s.DaysLookbackDefault = 90
	}
	if s.MaxSignalsDefault <= 0 {
		s.MaxSignalsDefault = 20
	}
	if s.MaxEventsPerSnapshot <= 0 {
		s.MaxEventsPerSnapshot = 3
	}
}

// ScoringSettingsUpdate is a partial update payload. Nil fields keep their
// current values. The name is fixed at creation and cannot be changed.
type ScoringSettingsUpdate struct {
	Description *string `json:"description"`

	WeightBaseRelevance *float64 `json:"weight_base_relevance"`
	WeightThemeMatch    *float64 `json:"weight_theme_match"`
	WeightRecency       *float64 `json:"weight_recency"`
	WeightSourceQuality *float64 `json:"weight_source_quality"`
	WeightActivityLevel *float64 `json:"weight_activity_level"`

	RecencyDecayConstant *float64 `json:"recency_decay_constant"`

	ScoreCountryExactMatch   *float64 `json:"score_country_exact_match"`
	ScoreCountryPartialMatch *float64 `json:"score_country_partial_match"`
	ScoreRegionMatch         *float64 `json:"score_region_match"`
	ScoreSectorMatch         *float64 `json:"score_sector_match"`

	ActivityLevelScores *map[string]float64 `json:"activity_level_scores"`
	SourceQualityScores *map[string]float64 `json:"source_quality_scores"`

	SemanticThreshold          *float64 `json:"semantic_threshold"`
	RelevanceThresholdLow      *float64 `json:"relevance_threshold_low"`
	RelevanceThresholdHigh     *float64 `json:"relevance_threshold_high"`
	ThemeRelevanceThresholdWeb *float64 `json:"theme_relevance_threshold_web"`

	DaysLookbackDefault  *int `json:"days_lookback_default"`
	MaxSignalsDefault    *int `json:"max_signals_default"`
	MaxEventsPerSnapshot *int `json:"max_events_per_snapshot"`

	UseSemanticFiltering *bool `json:"use_semantic_filtering"`
	UseBatchValidation   *bool `json:"use_batch_validation"`
	IsActive             *bool `json:"is_active"`
}

// ApplyTo merges the non-nil fields of the update into an existing record.
func (u *ScoringSettingsUpdate) ApplyTo(s *ScoringSettings) {
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.WeightBaseRelevance != nil {
		s.WeightBaseRelevance = *u.WeightBaseRelevance
	}
	if u.WeightThemeMatch != nil {
		s.WeightThemeMatch = *u.WeightThemeMatch
	}
	if u.WeightRecency != nil {
		s.WeightRecency = *u.WeightRecency
	}
	if u.WeightSourceQuality != nil {
		s.WeightSourceQuality = *u.WeightSourceQuality
	}
	if u.WeightActivityLevel != nil {
		s.WeightActivityLevel = *u.WeightActivityLevel
	}
	if u.RecencyDecayConstant != nil {
		s.RecencyDecayConstant = *u.RecencyDecayConstant
	}
	if u.ScoreCountryExactMatch != nil {
		s.ScoreCountryExactMatch = *u.ScoreCountryExactMatch
	}
	if u.ScoreCountryPartialMatch != nil {
		s.ScoreCountryPartialMatch = *u.ScoreCountryPartialMatch
	}
	if u.ScoreRegionMatch != nil {
		s.ScoreRegionMatch = *u.ScoreRegionMatch
	}
	if u.ScoreSectorMatch != nil {
		s.ScoreSectorMatch = *u.ScoreSectorMatch
	}
	if u.ActivityLevelScores != nil {
		s.ActivityLevelScores = *u.ActivityLevelScores
	}
	if u.SourceQualityScores != nil {
		s.SourceQualityScores = *u.SourceQualityScores
	}
	if u.SemanticThreshold != nil {
		s.SemanticThreshold = *u.SemanticThreshold
	}
	if u.RelevanceThresholdLow != nil {
		s.RelevanceThresholdLow = *u.RelevanceThresholdLow
	}
	if u.RelevanceThresholdHigh != nil {
		s.RelevanceThresholdHigh = *u.RelevanceThresholdHigh
	}
	if u.ThemeRelevanceThresholdWeb != nil {
		s.ThemeRelevanceThresholdWeb = *u.ThemeRelevanceThresholdWeb
	}
	if u.DaysLookbackDefault != nil {
		s.DaysLookbackDefault = *u.DaysLookbackDefault
	}
	if u.MaxSignalsDefault != nil {
		s.MaxSignalsDefault = *u.MaxSignalsDefault
	}
	if u.MaxEventsPerSnapshot != nil {
		s.MaxEventsPerSnapshot = *u.MaxEventsPerSnapshot
	}
	if u.UseSemanticFiltering != nil {
		s.UseSemanticFiltering = *u.UseSemanticFiltering
	}
	if u.UseBatchValidation != nil {
		s.UseBatchValidation = *u.UseBatchValidation
	}
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
}

