// Package domain contains the shared value records that flow through the
// analysis pipeline. All types here are immutable by convention: stages
// produce new values rather than mutating their inputs.
package domain

import "strings"

// RiskTolerance is the caller-supplied appetite profile applied in stage 5.
type RiskTolerance string

const (
	RiskToleranceLow    RiskTolerance = "Low"
	RiskToleranceMedium RiskTolerance = "Medium"
	RiskToleranceHigh   RiskTolerance = "High"
)

// ParseRiskTolerance normalizes user input ("low", "LOW", "Low") to a
// RiskTolerance. Unknown values map to Medium.
func ParseRiskTolerance(s string) RiskTolerance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskToleranceLow
	case "high":
		return RiskToleranceHigh
	default:
		return RiskToleranceMedium
	}
}

// Direction is the qualitative direction of an impact.
type Direction string

const (
	DirectionNegative Direction = "negative"
	DirectionNeutral  Direction = "neutral"
	DirectionPositive Direction = "positive"
)

// SignalSource identifies where a raw signal came from.
type SignalSource string

const (
	SourceCorpus SignalSource = "corpus"
	SourceWeb    SignalSource = "web"
)

// Holding is a single asset position described to the pipeline.
// It is supplied per invocation and never mutated.
type Holding struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Ticker            string  `json:"ticker,omitempty"`
	ISIN              string  `json:"isin,omitempty"`
	Country           string  `json:"country,omitempty"`
	Region            string  `json:"region"`
	SubRegion         string  `json:"sub_region,omitempty"`
	Sector            string  `json:"sector"`
	AssetClass        string  `json:"class"`
	AssetType         string  `json:"asset_type"`
	Value             float64 `json:"value"`
	AllocationPct     float64 `json:"allocation_pct"`
	PnLToDate         float64 `json:"pnl_to_date,omitempty"`
	PnLPct            float64 `json:"pnl_pct,omitempty"`
	Currency          string  `json:"currency,omitempty"`
	EntryDate         string  `json:"entry_date,omitempty"`
	LastValuationDate string  `json:"last_valuation_date,omitempty"`
}

// Validate checks the invariants the pipeline requires of its input.
// Violations are InputErrors and are the only failures the pipeline
// surfaces to callers.
func (h Holding) Validate() error {
	if strings.TrimSpace(h.Region) == "" {
		return &InputError{Field: "region", Reason: "region must not be empty"}
	}
	if h.AllocationPct < 0 || h.AllocationPct > 100 {
		return &InputError{Field: "allocation_pct", Reason: "allocation_pct must be between 0 and 100"}
	}
	return nil
}

// AssetProfile is the structured characterization of a holding. Built once
// in stage 1 and passed downstream read-only.
type AssetProfile struct {
	HoldingID     string  `json:"holding_id"`
	Name          string  `json:"name"`
	Ticker        string  `json:"ticker,omitempty"`
	ISIN          string  `json:"isin,omitempty"`
	Country       string  `json:"country,omitempty"`
	Region        string  `json:"region"`
	SubRegion     string  `json:"sub_region,omitempty"`
	Sector        string  `json:"sector"`
	AssetClass    string  `json:"asset_class"`
	AssetType     string  `json:"asset_type"`
	Value         float64 `json:"value"`
	AllocationPct float64 `json:"allocation_pct"`
	Currency      string  `json:"currency,omitempty"`

	EmergingMarket  bool `json:"is_emerging_market"`
	DevelopedMarket bool `json:"is_developed_market"`
	GlobalFund      bool `json:"is_global_fund"`
	SectorSpecific  bool `json:"is_sector_specific"`
	CountrySpecific bool `json:"is_country_specific"`

	GovernmentExposed     bool `json:"has_government_exposure"`
	EnergyExposed         bool `json:"has_energy_exposure"`
	FinancialExposed      bool `json:"has_financial_exposure"`
	TechnologyExposed     bool `json:"has_technology_exposure"`
	InfrastructureExposed bool `json:"has_infrastructure_exposure"`

	Summary string `json:"summary"`
}

// Exposures returns the names of the exposure flags that are set, in a
// stable order. Used by API responses and the scan archive.
func (p AssetProfile) Exposures() []string {
	var out []string
	if p.GovernmentExposed {
		out = append(out, "government")
	}
	if p.EnergyExposed {
		out = append(out, "energy")
	}
	if p.FinancialExposed {
		out = append(out, "financial")
	}
	if p.TechnologyExposed {
		out = append(out, "technology")
	}
	if p.InfrastructureExposed {
		out = append(out, "infrastructure")
	}
	return out
}

// ThemeWeights are the per-theme scoring weights used by the theme mapper.
// All values are in [0,1].
type ThemeWeights struct {
	Country       float64 `json:"country"`
	Region        float64 `json:"region"`
	Sector        float64 `json:"sector"`
	ExposureBonus float64 `json:"exposure_bonus"`
	EmergingBonus float64 `json:"emerging_bonus"`
}

// ThemeDefinition describes one configurable class of geopolitical risk.
type ThemeDefinition struct {
	Name                  string       `json:"name"`
	DisplayName           string       `json:"display_name"`
	Description           string       `json:"description,omitempty"`
	Keywords              []string     `json:"keywords"`
	RelevantCountries     []string     `json:"relevant_countries"`
	RelevantRegions       []string     `json:"relevant_regions"`
	RelevantSectors       []string     `json:"relevant_sectors"`
	Weights               ThemeWeights `json:"weights"`
	MinRelevanceThreshold float64      `json:"min_relevance_threshold"`
	Active                bool         `json:"is_active"`
}

// ThemeRelevance is the stage-2 verdict for one theme against one profile.
// Only themes whose score cleared their own threshold are emitted.
type ThemeRelevance struct {
	Theme           string   `json:"theme"`
	DisplayName     string   `json:"display_name"`
	RelevanceScore  float64  `json:"relevance_score"`
	Reasoning       string   `json:"reasoning"`
	KeywordsMatched []string `json:"keywords_matched,omitempty"`
}

// RawSignal is a piece of evidence about world events before scoring.
type RawSignal struct {
	Source        SignalSource `json:"source"`
	SourceName    string       `json:"source_name,omitempty"`
	Title         string       `json:"title"`
	Summary       string       `json:"summary"`
	Topic         string       `json:"topic,omitempty"`
	URL           string       `json:"url,omitempty"`
	Country       string       `json:"country,omitempty"`
	PublishedAt   string       `json:"published_at,omitempty"`
	ActivityLevel string       `json:"activity_level,omitempty"`
}

// IntelligenceSignal is a RawSignal after stage-3 scoring, semantic
// filtering, and batch validation. All score fields are in [0,1].
type IntelligenceSignal struct {
	RawSignal

	BaseRelevance      float64 `json:"base_relevance"`
	ThemeMatchScore    float64 `json:"theme_match_score"`
	RecencyScore       float64 `json:"recency_score"`
	SourceQuality      float64 `json:"source_quality"`
	ActivityLevelScore float64 `json:"activity_level_score"`
	ThemeMatch         string  `json:"theme_match,omitempty"`
	RelevanceScore     float64 `json:"relevance_score"`

	SemanticRelevance  float64 `json:"semantic_relevance,omitempty"`
	SemanticConfidence float64 `json:"semantic_confidence,omitempty"`
	SemanticReasoning  string  `json:"semantic_reasoning,omitempty"`

	ValidationConfidence float64 `json:"validation_confidence,omitempty"`
	IsCorroborated       bool    `json:"is_corroborated,omitempty"`
	IsContradicted       bool    `json:"is_contradicted,omitempty"`
	CorroborationCount   int     `json:"corroboration_count,omitempty"`
	EvidenceQuality      string  `json:"evidence_quality,omitempty"`
	ValidationReasoning  string  `json:"validation_reasoning,omitempty"`
	ConfidenceMultiplier float64 `json:"confidence_multiplier,omitempty"`
}

// WebSearchRecord is the per-theme search metadata recorded during the
// stage-3 web fan-out, regardless of outcome.
type WebSearchRecord struct {
	Theme        string `json:"theme"`
	Query        string `json:"query"`
	ResultsCount int    `json:"results_count"`
	SignalsCount int    `json:"signals_count"`
	Error        string `json:"error,omitempty"`
}

// ValidationSummary carries the batch-validation verdict over the whole
// signal set.
type ValidationSummary struct {
	OverallCoherence   float64 `json:"overall_coherence"`
	ContradictionCount int     `json:"contradiction_count"`
	CorroborationCount int     `json:"corroboration_count"`
	AnalysisSummary    string  `json:"analysis_summary,omitempty"`
}

// ThemeImpact is the stage-4 assessment for one theme.
type ThemeImpact struct {
	Theme       string    `json:"theme"`
	Direction   Direction `json:"direction"`
	Magnitude   float64   `json:"magnitude"`
	Confidence  float64   `json:"confidence"`
	Reasoning   string    `json:"reasoning"`
	SignalCount int       `json:"signal_count"`
	Summary     string    `json:"summary,omitempty"`
}

// AggregateImpact is the stage-4 output across all themes.
type AggregateImpact struct {
	OverallDirection  Direction     `json:"overall_direction"`
	OverallMagnitude  float64       `json:"overall_magnitude"`
	OverallConfidence float64       `json:"confidence"`
	ThemeImpacts      []ThemeImpact `json:"theme_impacts"`
	TotalSignals      int           `json:"total_signals"`
}

// ActionProbabilities is the final three-way distribution. After
// normalization the components sum to 1.0 within 1e-6.
type ActionProbabilities struct {
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Positive float64 `json:"positive"`
}

// Sum returns the total mass of the distribution.
func (p ActionProbabilities) Sum() float64 {
	return p.Negative + p.Neutral + p.Positive
}
