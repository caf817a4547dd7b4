package retrieval

import (
	"context"

	"github.com/aristath/argus/internal/domain"
)

// maxValidationSignals caps how many signals enter the validation batch.
const maxValidationSignals = 50

// validateBatch cross-references the top signals and adjusts their
// relevance by the per-signal confidence multiplier. On failure every
// signal keeps multiplier 1.0 and only the neutral summary is recorded.
func (r *Retriever) validateBatch(ctx context.Context, signals []domain.IntelligenceSignal, profile domain.AssetProfile) *domain.ValidationSummary {
	subset := signals
	if len(subset) > maxValidationSignals {
		subset = subset[:maxValidationSignals]
	}

	result, err := r.validator.ValidateBatch(ctx, subset, profile.Country, profile.Sector)
	summary := result.Summary()
	if err != nil {
		return &summary
	}

	for _, validation := range result.Validations {
		idx := validation.SignalIndex
		if idx < 0 || idx >= len(subset) {
			continue
		}

		sig := &subset[idx]
		sig.ValidationConfidence = validation.ValidationConfidence
		sig.IsCorroborated = validation.IsCorroborated
		sig.IsContradicted = validation.IsContradicted
		sig.CorroborationCount = len(validation.CorroboratingIndices)
		sig.EvidenceQuality = validation.EvidenceQuality
		sig.ValidationReasoning = validation.ValidationReasoning

		multiplier := validation.Multiplier()
		sig.ConfidenceMultiplier = multiplier

		adjusted := sig.RelevanceScore * multiplier
		if adjusted > 1.0 {
			adjusted = 1.0
		}
		sig.RelevanceScore = adjusted
	}

	r.log.Debug().
		Float64("coherence", result.OverallCoherence).
		Int("contradictions", result.ContradictionCount).
		Int("corroborations", result.CorroborationCount).
		Msg("Batch validation applied")

	return &summary
}
