// Package georisk orchestrates the five-stage analysis pipeline:
// characterization, theme identification, intelligence retrieval, impact
// assessment and probability synthesis. It also keeps the most recent
// results in memory for the scans API.
package georisk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/events"
	"github.com/aristath/argus/internal/modules/characterization"
	"github.com/aristath/argus/internal/modules/probability"
	"github.com/aristath/argus/internal/modules/retrieval"
	"github.com/aristath/argus/internal/modules/settings"
)

// maxTopThemes caps the top-theme name list in results.
const maxTopThemes = 5

// Characterizer builds an asset profile from a holding (stage 1).
type Characterizer interface {
	Characterize(h domain.Holding) (domain.AssetProfile, error)
}

// ThemeMapper identifies relevant themes for a profile (stage 2).
type ThemeMapper interface {
	Identify(profile domain.AssetProfile) []domain.ThemeRelevance
	TopThemeNames(profile domain.AssetProfile, n int) []string
}

// IntelligenceRetriever gathers and scores signals (stage 3).
type IntelligenceRetriever interface {
	Retrieve(ctx context.Context, profile domain.AssetProfile, themes []domain.ThemeRelevance, lookbackDays int) retrieval.Result
}

// ImpactAssessor derives theme and overall impact (stage 4).
type ImpactAssessor interface {
	Assess(ctx context.Context, profile domain.AssetProfile, themes []domain.ThemeRelevance, signals []domain.IntelligenceSignal) domain.AggregateImpact
}

// SettingsProvider supplies the active scoring settings.
type SettingsProvider interface {
	Active() settings.ScoringSettings
}

// DetailedResult is the full pipeline output with every intermediate
// artifact, as served by the scans API and the final stream event.
type DetailedResult struct {
	ScanID    string `json:"scan_id"`
	CreatedAt string `json:"created_at"`

	Profile                 domain.AssetProfile `json:"profile"`
	CharacterizationSummary string              `json:"characterization_summary"`
	Exposures               []string            `json:"exposures"`

	Themes    []domain.ThemeRelevance `json:"themes"`
	TopThemes []string                `json:"top_themes"`

	Signals     []domain.IntelligenceSignal `json:"signals"`
	SignalCount int                         `json:"signal_count"`
	WebSearches []domain.WebSearchRecord    `json:"web_searches"`
	Validation  *domain.ValidationSummary   `json:"validation,omitempty"`

	Impact             domain.AggregateImpact     `json:"impact"`
	Probabilities      domain.ActionProbabilities `json:"probabilities"`
	ProbabilitySummary string                     `json:"probability_summary"`

	RiskTolerance domain.RiskTolerance `json:"risk_tolerance"`
	LookbackDays  int                  `json:"days_lookback"`
}

// Engine runs the pipeline. Stages 2-5 cannot fail; stage 1 returns an
// InputError for invalid holdings and that is the only error RunPipeline
// surfaces.
type Engine struct {
	characterizer Characterizer
	mapper        ThemeMapper
	retriever     IntelligenceRetriever
	assessor      ImpactAssessor
	settings      SettingsProvider
	recent        *RecentStore
	eventManager  *events.Manager
	log           zerolog.Logger
}

// NewEngine wires the pipeline stages. recent and eventManager may be nil.
func NewEngine(
	characterizer Characterizer,
	mapper ThemeMapper,
	retriever IntelligenceRetriever,
	assessor ImpactAssessor,
	settingsProvider SettingsProvider,
	recent *RecentStore,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		characterizer: characterizer,
		mapper:        mapper,
		retriever:     retriever,
		assessor:      assessor,
		settings:      settingsProvider,
		recent:        recent,
		eventManager:  eventManager,
		log:           log.With().Str("service", "georisk_engine").Logger(),
	}
}

// RunPipeline executes stages 1-5 and returns the detailed result. A
// non-positive lookbackDays falls back to the settings default.
func (e *Engine) RunPipeline(ctx context.Context, holding domain.Holding, tolerance domain.RiskTolerance, lookbackDays int) (*DetailedResult, error) {
	started := time.Now()
	if lookbackDays <= 0 {
		lookbackDays = e.settings.Active().DaysLookbackDefault
	}

	scanID := newScanID()
	e.emitScanStarted(scanID, holding, tolerance)

	profile, err := e.characterizer.Characterize(holding)
	if err != nil {
		e.emitScanFailed(scanID, holding.Name, err)
		return nil, err
	}

	themes := e.mapper.Identify(profile)
	topThemes := e.mapper.TopThemeNames(profile, maxTopThemes)

	intel := e.retriever.Retrieve(ctx, profile, themes, lookbackDays)

	impact := e.assessor.Assess(ctx, profile, themes, intel.Signals)
	probs := probability.Calculate(impact, tolerance)

	result := e.buildResult(scanID, profile, themes, topThemes, intel, impact, probs, tolerance, lookbackDays)

	if e.recent != nil {
		e.recent.Add(result)
	}
	e.emitScanCompleted(result, time.Since(started))

	e.log.Info().
		Str("scan_id", scanID).
		Str("holding", holding.Name).
		Str("direction", string(impact.OverallDirection)).
		Int("signals", len(intel.Signals)).
		Dur("duration", time.Since(started)).
		Msg("Pipeline completed")

	return result, nil
}

func (e *Engine) buildResult(
	scanID string,
	profile domain.AssetProfile,
	themes []domain.ThemeRelevance,
	topThemes []string,
	intel retrieval.Result,
	impact domain.AggregateImpact,
	probs domain.ActionProbabilities,
	tolerance domain.RiskTolerance,
	lookbackDays int,
) *DetailedResult {
	return &DetailedResult{
		ScanID:                  scanID,
		CreatedAt:               time.Now().UTC().Format(time.RFC3339),
		Profile:                 profile,
		CharacterizationSummary: characterization.Summary(profile),
		Exposures:               profile.Exposures(),
		Themes:                  themes,
		TopThemes:               topThemes,
		Signals:                 intel.Signals,
		SignalCount:             len(intel.Signals),
		WebSearches:             intel.WebSearches,
		Validation:              intel.Validation,
		Impact:                  impact,
		Probabilities:           probs,
		ProbabilitySummary:      probability.Summary(probs),
		RiskTolerance:           tolerance,
		LookbackDays:            lookbackDays,
	}
}

func (e *Engine) emitScanStarted(scanID string, holding domain.Holding, tolerance domain.RiskTolerance) {
	if e.eventManager == nil {
		return
	}
	e.eventManager.EmitTyped(events.ScanStarted, "georisk", &events.ScanStartedData{
		ScanID:        scanID,
		HoldingName:   holding.Name,
		Country:       holding.Country,
		Region:        holding.Region,
		RiskTolerance: string(tolerance),
	})
}

func (e *Engine) emitScanCompleted(result *DetailedResult, elapsed time.Duration) {
	if e.eventManager == nil {
		return
	}
	e.eventManager.EmitTyped(events.ScanCompleted, "georisk", &events.ScanCompletedData{
		ScanID:      result.ScanID,
		HoldingName: result.Profile.Name,
		Direction:   string(result.Impact.OverallDirection),
		Magnitude:   result.Impact.OverallMagnitude,
		Confidence:  result.Impact.OverallConfidence,
		SignalCount: result.SignalCount,
		DurationMS:  elapsed.Milliseconds(),
	})
}

func (e *Engine) emitScanFailed(scanID, holdingName string, err error) {
	if e.eventManager == nil {
		return
	}
	e.eventManager.EmitTyped(events.ScanFailed, "georisk", &events.ScanFailedData{
		ScanID:      scanID,
		HoldingName: holdingName,
		Error:       err.Error(),
	})
}

func newScanID() string {
	return fmt.Sprintf("scan_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
}
