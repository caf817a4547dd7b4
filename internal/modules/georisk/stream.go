package georisk

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/events"
	"github.com/aristath/argus/internal/modules/characterization"
	"github.com/aristath/argus/internal/modules/probability"
)

// Step ids emitted on the streaming variant, in order. The error id
// replaces whichever step failed and ends the stream.
const (
	StepCharacterization = "characterization"
	StepThemes           = "theme_identification"
	StepIntelligence     = "intelligence_retrieval"
	StepImpact           = "impact_assessment"
	StepFinal            = "final"
	StepError            = "error"
)

const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// StepUpdate is one progress event on the streaming pipeline.
type StepUpdate struct {
	StepID     string      `json:"step_id"`
	StepName   string      `json:"step_name"`
	Status     string      `json:"status"`
	DurationMS int64       `json:"duration_ms"`
	Data       interface{} `json:"data"`
	Error      string      `json:"error,omitempty"`
}

type characterizationData struct {
	Profile   domain.AssetProfile `json:"profile"`
	Exposures []string            `json:"exposures"`
	Summary   string              `json:"characterization_summary"`
}

type themesData struct {
	Themes    []domain.ThemeRelevance `json:"themes"`
	TopThemes []string                `json:"top_themes"`
}

type intelligenceData struct {
	Signals     []domain.IntelligenceSignal `json:"signals"`
	SignalCount int                         `json:"signal_count"`
	WebSearches []domain.WebSearchRecord    `json:"web_searches"`
	Validation  *domain.ValidationSummary   `json:"validation,omitempty"`
}

type impactData struct {
	Impact             domain.AggregateImpact     `json:"impact"`
	Probabilities      domain.ActionProbabilities `json:"probabilities"`
	ProbabilitySummary string                     `json:"probability_summary"`
	RiskTolerance      domain.RiskTolerance       `json:"risk_tolerance"`
	LookbackDays       int                        `json:"days_lookback"`
}

// RunPipelineStream executes the pipeline and calls emit after each stage:
// four stage events followed by a final event carrying the full result. A
// stage failure or panic produces a single error event and ends the
// stream; a cancelled context ends the stream without further events.
func (e *Engine) RunPipelineStream(ctx context.Context, holding domain.Holding, tolerance domain.RiskTolerance, lookbackDays int, emit func(StepUpdate)) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("holding", holding.Name).Msg("Pipeline panicked")
			emit(errorUpdate(fmt.Sprintf("%v", r)))
		}
	}()

	if lookbackDays <= 0 {
		lookbackDays = e.settings.Active().DaysLookbackDefault
	}

	scanID := newScanID()
	e.emitScanStarted(scanID, holding, tolerance)

	stepStart := time.Now()
	profile, err := e.characterizer.Characterize(holding)
	if err != nil {
		e.emitScanFailed(scanID, holding.Name, err)
		emit(errorUpdate(err.Error()))
		return
	}
	emit(StepUpdate{
		StepID:     StepCharacterization,
		StepName:   "Asset Characterization",
		Status:     StatusCompleted,
		DurationMS: time.Since(stepStart).Milliseconds(),
		Data: characterizationData{
			Profile:   profile,
			Exposures: profile.Exposures(),
			Summary:   characterization.Summary(profile),
		},
	})
	e.emitScanProgress(scanID, StepCharacterization, 0.2)

	if ctx.Err() != nil {
		return
	}

	stepStart = time.Now()
	themes := e.mapper.Identify(profile)
	topThemes := e.mapper.TopThemeNames(profile, maxTopThemes)
	emit(StepUpdate{
		StepID:     StepThemes,
		StepName:   "Theme Identification",
		Status:     StatusCompleted,
		DurationMS: time.Since(stepStart).Milliseconds(),
		Data:       themesData{Themes: themes, TopThemes: topThemes},
	})
	e.emitScanProgress(scanID, StepThemes, 0.4)

	if ctx.Err() != nil {
		return
	}

	stepStart = time.Now()
	intel := e.retriever.Retrieve(ctx, profile, themes, lookbackDays)
	emit(StepUpdate{
		StepID:     StepIntelligence,
		StepName:   "Intelligence Retrieval",
		Status:     StatusCompleted,
		DurationMS: time.Since(stepStart).Milliseconds(),
		Data: intelligenceData{
			Signals:     intel.Signals,
			SignalCount: len(intel.Signals),
			WebSearches: intel.WebSearches,
			Validation:  intel.Validation,
		},
	})
	e.emitScanProgress(scanID, StepIntelligence, 0.6)

	if ctx.Err() != nil {
		return
	}

	stepStart = time.Now()
	impact := e.assessor.Assess(ctx, profile, themes, intel.Signals)
	probs := probability.Calculate(impact, tolerance)
	emit(StepUpdate{
		StepID:     StepImpact,
		StepName:   "Impact Assessment",
		Status:     StatusCompleted,
		DurationMS: time.Since(stepStart).Milliseconds(),
		Data: impactData{
			Impact:             impact,
			Probabilities:      probs,
			ProbabilitySummary: probability.Summary(probs),
			RiskTolerance:      tolerance,
			LookbackDays:       lookbackDays,
		},
	})
	e.emitScanProgress(scanID, StepImpact, 0.8)

	if ctx.Err() != nil {
		return
	}

	result := e.buildResult(scanID, profile, themes, topThemes, intel, impact, probs, tolerance, lookbackDays)
	if e.recent != nil {
		e.recent.Add(result)
	}
	e.emitScanCompleted(result, time.Since(started))

	emit(StepUpdate{
		StepID:     StepFinal,
		StepName:   "Analysis Complete",
		Status:     StatusCompleted,
		DurationMS: time.Since(started).Milliseconds(),
		Data:       result,
	})
}

func (e *Engine) emitScanProgress(scanID, step string, progress float64) {
	if e.eventManager == nil {
		return
	}
	e.eventManager.EmitTyped(events.ScanProgress, "georisk", &events.ScanProgressData{
		ScanID:   scanID,
		Step:     step,
		Message:  step + " completed",
		Progress: progress,
	})
}

func errorUpdate(message string) StepUpdate {
	return StepUpdate{
		StepID:   StepError,
		StepName: "Pipeline Error",
		Status:   StatusError,
		Error:    message,
	}
}
