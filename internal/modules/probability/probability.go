// Package probability converts an aggregate impact assessment into the
// stage-5 action distribution: the likelihood that the geopolitical
// picture argues against, for, or neither way on holding the asset.
package probability

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/argus/internal/domain"
)

// neutralDefault is the distribution for an asset with no directional
// evidence at all.
var neutralDefault = domain.ActionProbabilities{Negative: 0.2, Neutral: 0.6, Positive: 0.2}

// Calculate derives the action distribution from the overall impact,
// shifts it per theme by magnitude x confidence x 0.3, applies the risk
// tolerance multipliers when the overall direction is negative, and
// normalizes to sum 1.
func Calculate(impact domain.AggregateImpact, tolerance domain.RiskTolerance) domain.ActionProbabilities {
	var probs domain.ActionProbabilities

	magnitude := impact.OverallMagnitude
	switch impact.OverallDirection {
	case domain.DirectionNegative:
		probs.Negative = 0.4 + magnitude*0.4
		probs.Neutral = 0.4 - magnitude*0.2
		probs.Positive = 0.2 - magnitude*0.2
	case domain.DirectionPositive:
		probs.Negative = 0.2 - magnitude*0.1
		probs.Neutral = 0.4 - magnitude*0.2
		probs.Positive = 0.4 + magnitude*0.3
	default:
		probs = neutralDefault
	}

	// Each directional theme pulls weight into its bucket and takes half
	// that weight from each of the other two. Neutral themes do not move
	// the distribution.
	for _, theme := range impact.ThemeImpacts {
		weight := theme.Magnitude * theme.Confidence * 0.3
		switch theme.Direction {
		case domain.DirectionNegative:
			probs.Negative += weight
			probs.Neutral -= weight * 0.5
			probs.Positive -= weight * 0.5
		case domain.DirectionPositive:
			probs.Positive += weight
			probs.Neutral -= weight * 0.5
			probs.Negative -= weight * 0.5
		}
	}

	// Tolerance only modulates reactions to a negative overall picture.
	if impact.OverallDirection == domain.DirectionNegative {
		switch tolerance {
		case domain.RiskToleranceLow:
			probs.Negative *= 1.3
			probs.Neutral *= 0.9
			probs.Positive *= 0.7
		case domain.RiskToleranceHigh:
			probs.Negative *= 0.8
			probs.Neutral *= 1.1
		}
	}

	return normalize(probs)
}

// normalize clamps negatives to zero and scales the triple to sum to 1.
// An all-zero triple maps to the neutral default.
func normalize(probs domain.ActionProbabilities) domain.ActionProbabilities {
	v := []float64{probs.Negative, probs.Neutral, probs.Positive}
	for i, p := range v {
		v[i] = math.Max(0, p)
	}

	total := floats.Sum(v)
	if total <= 0 {
		return neutralDefault
	}
	floats.Scale(1/total, v)

	return domain.ActionProbabilities{Negative: v[0], Neutral: v[1], Positive: v[2]}
}

// Summary renders the distribution as a one-line reading for reports.
func Summary(probs domain.ActionProbabilities) string {
	negative := int(probs.Negative * 100)
	neutral := int(probs.Neutral * 100)
	positive := int(probs.Positive * 100)

	switch {
	case probs.Negative > 0.5:
		return fmt.Sprintf("Strong negative outlook (%d%% probability)", negative)
	case probs.Positive > 0.5:
		return fmt.Sprintf("Strong positive outlook (%d%% probability)", positive)
	case probs.Neutral > 0.5:
		return fmt.Sprintf("Neutral outlook (%d%% probability)", neutral)
	default:
		return fmt.Sprintf("Mixed: Negative %d%% | Neutral %d%% | Positive %d%%", negative, neutral, positive)
	}
}
