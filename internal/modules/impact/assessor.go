// Package impact turns scored intelligence signals into per-theme and
// overall impact assessments (stage 4 of the pipeline). Classification is
// keyword polarity over signal text; an LLM only writes the client-facing
// explanation, never the verdict.
package impact

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/argus/internal/domain"
)

var positiveKeywords = []string{
	"growth", "improve", "stability", "recovery", "positive", "strength",
	"agreement", "cooperation", "progress", "expansion", "boost", "gain",
}

var negativeKeywords = []string{
	"crisis", "conflict", "sanction", "instability", "decline", "risk",
	"tension", "dispute", "threat", "volatility", "uncertainty", "loss",
	"embargo", "restriction", "protest", "unrest", "war", "attack",
}

// ThemeSummarizer writes the client-facing explanation for one theme
// verdict. Implemented by Summarizer; an interface so tests can stub it.
type ThemeSummarizer interface {
	ThemeSummary(ctx context.Context, profile domain.AssetProfile, theme domain.ThemeRelevance, signals []domain.IntelligenceSignal, direction domain.Direction, magnitude, confidence float64) string
}

// Assessor derives impact direction, magnitude and confidence per theme
// and aggregates them into an overall assessment.
type Assessor struct {
	summarizer ThemeSummarizer
	log        zerolog.Logger
}

// NewAssessor creates an impact assessor. summarizer may be nil, in which
// case theme impacts carry no generated summary.
func NewAssessor(summarizer ThemeSummarizer, log zerolog.Logger) *Assessor {
	return &Assessor{
		summarizer: summarizer,
		log:        log.With().Str("service", "impact_assessor").Logger(),
	}
}

// Assess groups signals by matched theme and produces one ThemeImpact per
// input theme. Signals without a theme match contribute to the total count
// but not to any theme verdict. Themes with no signals get a neutral
// low-confidence impact so the caller always sees the full theme list.
func (a *Assessor) Assess(ctx context.Context, profile domain.AssetProfile, themes []domain.ThemeRelevance, signals []domain.IntelligenceSignal) domain.AggregateImpact {
	grouped := groupByTheme(signals)

	impacts := make([]domain.ThemeImpact, 0, len(themes))
	for _, theme := range themes {
		group := grouped[theme.Theme]
		if len(group) == 0 {
			impacts = append(impacts, domain.ThemeImpact{
				Theme:      theme.Theme,
				Direction:  domain.DirectionNeutral,
				Magnitude:  0.0,
				Confidence: 0.1,
				Reasoning:  "No recent signals found for this theme",
			})
			continue
		}
		impacts = append(impacts, a.assessTheme(ctx, profile, theme, group))
	}

	result := aggregate(impacts, len(signals))

	a.log.Info().
		Str("holding_id", profile.HoldingID).
		Int("themes", len(themes)).
		Int("signals", len(signals)).
		Str("direction", string(result.OverallDirection)).
		Float64("magnitude", result.OverallMagnitude).
		Msg("Impact assessment completed")

	return result
}

func (a *Assessor) assessTheme(ctx context.Context, profile domain.AssetProfile, theme domain.ThemeRelevance, signals []domain.IntelligenceSignal) domain.ThemeImpact {
	positive, negative := countPolarity(signals)
	total := len(signals)

	direction, magnitude := classify(positive, negative, total, theme.RelevanceScore)
	direction, magnitude = adjustForTheme(theme.Theme, direction, magnitude, positive, negative)

	confidence := math.Min(1.0, float64(total)/10.0*0.5+theme.RelevanceScore*0.5)

	var parts []string
	switch direction {
	case domain.DirectionNegative:
		parts = append(parts, fmt.Sprintf("%d negative signals", negative))
	case domain.DirectionPositive:
		parts = append(parts, fmt.Sprintf("%d positive signals", positive))
	default:
		parts = append(parts, "Mixed or neutral signals")
	}
	parts = append(parts, fmt.Sprintf("Theme relevance: %.2f", theme.RelevanceScore))
	if profile.Country != "" {
		parts = append(parts, "Country: "+profile.Country)
	}

	impact := domain.ThemeImpact{
		Theme:       theme.Theme,
		Direction:   direction,
		Magnitude:   magnitude,
		Confidence:  confidence,
		Reasoning:   strings.Join(parts, "; "),
		SignalCount: total,
	}

	if a.summarizer != nil {
		impact.Summary = a.summarizer.ThemeSummary(ctx, profile, theme, signals, direction, magnitude, confidence)
	}

	return impact
}

func groupByTheme(signals []domain.IntelligenceSignal) map[string][]domain.IntelligenceSignal {
	grouped := make(map[string][]domain.IntelligenceSignal)
	for _, signal := range signals {
		if signal.ThemeMatch == "" {
			continue
		}
		grouped[signal.ThemeMatch] = append(grouped[signal.ThemeMatch], signal)
	}
	return grouped
}

// countPolarity buckets each signal by the polarity keywords its text
// contains. A signal matching both lists, or neither, counts as neutral.
func countPolarity(signals []domain.IntelligenceSignal) (positive, negative int) {
	for _, signal := range signals {
		text := strings.ToLower(signal.Title + " " + signal.Summary)
		hasPositive := containsAny(text, positiveKeywords)
		hasNegative := containsAny(text, negativeKeywords)

		switch {
		case hasNegative && !hasPositive:
			negative++
		case hasPositive && !hasNegative:
			positive++
		}
	}
	return positive, negative
}

// classify applies the dominance rule: a polarity sets the direction only
// when it both outnumbers the other and exceeds 40% of the group.
func classify(positive, negative, total int, relevance float64) (domain.Direction, float64) {
	switch {
	case negative > positive && float64(negative) > float64(total)*0.4:
		return domain.DirectionNegative, math.Min(1.0, float64(negative)/float64(total)*relevance)
	case positive > negative && float64(positive) > float64(total)*0.4:
		return domain.DirectionPositive, math.Min(1.0, float64(positive)/float64(total)*relevance)
	default:
		return domain.DirectionNeutral, 0.3 * relevance
	}
}

// adjustForTheme applies the inherently-negative theme rules. Sanctions,
// instability, trade disruption and energy security flips to negative on any
// negative signal; currency volatility only when negatives outnumber
// positives.
func adjustForTheme(theme string, direction domain.Direction, magnitude float64, positive, negative int) (domain.Direction, float64) {
	switch theme {
	case "sanctions":
		if negative > 0 {
			return domain.DirectionNegative, math.Min(1.0, magnitude+0.2)
		}
	case "political_instability":
		if negative > 0 {
			return domain.DirectionNegative, math.Min(1.0, magnitude+0.15)
		}
	case "trade_disruption":
		if negative > 0 {
			return domain.DirectionNegative, math.Min(1.0, magnitude+0.15)
		}
	case "currency_volatility":
		if negative > positive {
			return domain.DirectionNegative, math.Min(1.0, magnitude+0.1)
		}
	case "energy_security":
		if negative > 0 {
			return domain.DirectionNegative, math.Min(1.0, magnitude+0.1)
		}
	}
	return direction, magnitude
}

// aggregate weights each theme by magnitude×confidence and applies the same
// 40% dominance rule to the weighted sums. A neutral overall keeps the flat
// 0.3 magnitude rather than a weighted share.
func aggregate(impacts []domain.ThemeImpact, totalSignals int) domain.AggregateImpact {
	var weightedNegative, weightedPositive, totalWeight float64
	confidences := make([]float64, 0, len(impacts))
	for _, impact := range impacts {
		weight := impact.Magnitude * impact.Confidence
		totalWeight += weight
		confidences = append(confidences, impact.Confidence)

		switch impact.Direction {
		case domain.DirectionNegative:
			weightedNegative += weight
		case domain.DirectionPositive:
			weightedPositive += weight
		}
	}

	direction := domain.DirectionNeutral
	magnitude := 0.3
	switch {
	case weightedNegative > weightedPositive && weightedNegative > totalWeight*0.4:
		direction = domain.DirectionNegative
		magnitude = dominantShare(weightedNegative, totalWeight)
	case weightedPositive > weightedNegative && weightedPositive > totalWeight*0.4:
		direction = domain.DirectionPositive
		magnitude = dominantShare(weightedPositive, totalWeight)
	}

	avgConfidence := 0.0
	if len(confidences) > 0 {
		avgConfidence = stat.Mean(confidences, nil)
	}
	signalConfidence := math.Min(1.0, float64(totalSignals)/20.0)

	return domain.AggregateImpact{
		OverallDirection:  direction,
		OverallMagnitude:  magnitude,
		OverallConfidence: avgConfidence*0.7 + signalConfidence*0.3,
		ThemeImpacts:      impacts,
		TotalSignals:      totalSignals,
	}
}

func dominantShare(weighted, totalWeight float64) float64 {
	if totalWeight <= 0 {
		return 0.0
	}
	return math.Min(1.0, weighted/totalWeight)
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
