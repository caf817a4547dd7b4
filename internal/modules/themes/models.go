// Package themes manages the geopolitical theme catalog and maps asset
// profiles to relevant themes (stage 2 of the risk pipeline).
package themes

import (
	"github.com/aristath/argus/internal/domain"
)

// Theme is a persisted catalog row. The embedded definition carries the
// matching dimensions and weights; the row adds identity and timestamps.
type Theme struct {
	domain.ThemeDefinition

	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Validate checks identity fields and weight ranges.
func (t *Theme) Validate() error {
	if t.Name == "" {
		return &domain.InputError{Field: "name", Reason: "must not be empty"}
	}
	if t.DisplayName == "" {
		return &domain.InputError{Field: "display_name", Reason: "must not be empty"}
	}

	ranges := []struct {
		field string
		value float64
	}{
		{"country_match_weight", t.Weights.Country},
		{"region_match_weight", t.Weights.Region},
		{"sector_match_weight", t.Weights.Sector},
		{"exposure_bonus_weight", t.Weights.ExposureBonus},
		{"emerging_market_bonus", t.Weights.EmergingBonus},
		{"min_relevance_threshold", t.MinRelevanceThreshold},
	}
	for _, r := range ranges {
		if r.value < 0 || r.value > 1 {
			return &domain.InputError{Field: r.field, Reason: "must be between 0 and 1"}
		}
	}

	return nil
}

// Normalize applies the documented default weights to themes created
// without any. A theme that sets at least one weight keeps its values,
// including explicit zeros.
func (t *Theme) Normalize() {
	if t.Weights == (domain.ThemeWeights{}) {
		t.Weights = DefaultWeights()
		if t.MinRelevanceThreshold == 0 {
			t.MinRelevanceThreshold = defaultMinRelevanceThreshold
		}
	}
}

// ThemeUpdate is a partial update payload. Nil fields keep their current
// values.
type ThemeUpdate struct {
	DisplayName           *string              `json:"display_name"`
	Description           *string              `json:"description"`
	Keywords              *[]string            `json:"keywords"`
	RelevantCountries     *[]string            `json:"relevant_countries"`
	RelevantRegions       *[]string            `json:"relevant_regions"`
	RelevantSectors       *[]string            `json:"relevant_sectors"`
	Weights               *domain.ThemeWeights `json:"weights"`
	MinRelevanceThreshold *float64             `json:"min_relevance_threshold"`
	Active                *bool                `json:"is_active"`
}

// ApplyTo merges the non-nil fields of the update into an existing theme.
func (u *ThemeUpdate) ApplyTo(t *Theme) {
	if u.DisplayName != nil {
		t.DisplayName = *u.DisplayName
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Keywords != nil {
		t.Keywords = *u.Keywords
	}
	if u.RelevantCountries != nil {
		t.RelevantCountries = *u.RelevantCountries
	}
	if u.RelevantRegions != nil {
		t.RelevantRegions = *u.RelevantRegions
	}
	if u.RelevantSectors != nil {
		t.RelevantSectors = *u.RelevantSectors
	}
	if u.Weights != nil {
		t.Weights = *u.Weights
	}
	if u.MinRelevanceThreshold != nil {
		t.MinRelevanceThreshold = *u.MinRelevanceThreshold
	}
	if u.Active != nil {
		t.Active = *u.Active
	}
}
