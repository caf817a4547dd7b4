package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/argus/internal/cache"
	"github.com/aristath/argus/internal/clients/anthropic"
	"github.com/aristath/argus/internal/domain"
)

func testValidator(llm LLMClient) *Validator {
	return NewValidator(llm, cache.New(time.Hour), zerolog.Nop())
}

func batchSignal(title, summary, sourceName string) domain.IntelligenceSignal {
	return domain.IntelligenceSignal{
		RawSignal: domain.RawSignal{
			Source:     domain.SourceCorpus,
			SourceName: sourceName,
			Title:      title,
			Summary:    summary,
		},
	}
}

func TestValidateBatch(t *testing.T) {
	llm := &stubLLM{
		enabled: true,
		text: "```json\n" + `{
			"validations": [
				{
					"signal_index": 0,
					"validation_confidence": 0.9,
					"is_corroborated": true,
					"is_contradicted": false,
					"corroborating_indices": [1],
					"contradicting_indices": [],
					"evidence_quality": "high",
					"validation_reasoning": "Confirmed by signal 1."
				},
				{
					"signal_index": 1,
					"validation_confidence": 0.8,
					"is_corroborated": true,
					"is_contradicted": false,
					"corroborating_indices": [0],
					"contradicting_indices": [],
					"evidence_quality": "medium",
					"validation_reasoning": "Consistent with signal 0."
				}
			],
			"overall_coherence": 0.85,
			"contradiction_count": 0,
			"corroboration_count": 1,
			"analysis_summary": "Signals tell a coherent story."
		}` + "\n```",
	}
	validator := testValidator(llm)

	signals := []domain.IntelligenceSignal{
		batchSignal("Sanctions expanded", "New measures target exports", "Reuters"),
		batchSignal("Export bans grow", "Additional restrictions announced", "BBC"),
	}

	result, err := validator.ValidateBatch(context.Background(), signals, "Russia", "Energy")
	require.NoError(t, err)

	require.Len(t, result.Validations, 2)
	assert.True(t, result.Validations[0].IsCorroborated)
	assert.Equal(t, []int{1}, result.Validations[0].CorroboratingIndices)
	assert.Equal(t, "high", result.Validations[0].EvidenceQuality)
	assert.InDelta(t, 0.85, result.OverallCoherence, 1e-9)
	assert.Equal(t, 1, result.CorroborationCount)

	assert.Equal(t, anthropic.ModelOpus, llm.lastReq.Model)
	assert.Equal(t, validationMaxTokens, llm.lastReq.MaxTokens)

	prompt := llm.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "Country: Russia")
	assert.Contains(t, prompt, "Sector: Energy")
	assert.Contains(t, prompt, "[0] Source: Reuters")
	assert.Contains(t, prompt, "[1] Source: BBC")
	assert.Contains(t, prompt, "INTELLIGENCE SIGNALS (2 signals)")
	assert.Contains(t, prompt, "Provide validation for ALL 2 signals")
}

func TestValidateBatchDefaultsMissingFields(t *testing.T) {
	llm := &stubLLM{
		enabled: true,
		text:    `{"validations": [{"signal_index": 0, "is_corroborated": false, "is_contradicted": false, "validation_reasoning": "Sparse reply."}]}`,
	}
	validator := testValidator(llm)

	result, err := validator.ValidateBatch(context.Background(), []domain.IntelligenceSignal{batchSignal("T", "S", "")}, "", "")
	require.NoError(t, err)

	require.Len(t, result.Validations, 1)
	assert.InDelta(t, 0.5, result.Validations[0].ValidationConfidence, 1e-9)
	assert.Equal(t, "medium", result.Validations[0].EvidenceQuality)
	assert.InDelta(t, 0.7, result.OverallCoherence, 1e-9)
}

func TestValidateBatchErrorReturnsNeutral(t *testing.T) {
	llm := &stubLLM{enabled: true, err: errors.New("overloaded")}
	validator := testValidator(llm)

	signals := []domain.IntelligenceSignal{
		batchSignal("A", "a", "Reuters"),
		batchSignal("B", "b", "BBC"),
		batchSignal("C", "c", "FT"),
	}

	result, err := validator.ValidateBatch(context.Background(), signals, "Turkey", "")
	require.Error(t, err)

	require.Len(t, result.Validations, 3)
	for i, v := range result.Validations {
		assert.Equal(t, i, v.SignalIndex)
		assert.InDelta(t, 0.7, v.ValidationConfidence, 1e-9)
		assert.False(t, v.IsCorroborated)
		assert.False(t, v.IsContradicted)
		assert.Equal(t, "medium", v.EvidenceQuality)
		assert.Contains(t, v.ValidationReasoning, "Validation error: overloaded")
	}
	assert.InDelta(t, 0.7, result.OverallCoherence, 1e-9)
	assert.Contains(t, result.AnalysisSummary, "Validation failed: overloaded")

	// Failures are not cached.
	_, err = validator.ValidateBatch(context.Background(), signals, "Turkey", "")
	require.Error(t, err)
	assert.Equal(t, 2, llm.calls)
}

func TestValidateBatchCachesSuccess(t *testing.T) {
	llm := &stubLLM{enabled: true, text: `{"validations": [], "overall_coherence": 0.9, "analysis_summary": "OK"}`}
	validator := testValidator(llm)

	signals := []domain.IntelligenceSignal{batchSignal("T", "S", "Reuters")}

	first, err := validator.ValidateBatch(context.Background(), signals, "Greece", "")
	require.NoError(t, err)
	second, err := validator.ValidateBatch(context.Background(), signals, "Greece", "")
	require.NoError(t, err)

	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, first, second)

	// A different asset context is a different batch.
	_, err = validator.ValidateBatch(context.Background(), signals, "Italy", "")
	require.NoError(t, err)
	assert.Equal(t, 2, llm.calls)
}

func TestValidateBatchTruncatesToFifty(t *testing.T) {
	llm := &stubLLM{enabled: true, err: errors.New("boom")}
	validator := testValidator(llm)

	signals := make([]domain.IntelligenceSignal, 60)
	for i := range signals {
		signals[i] = batchSignal(fmt.Sprintf("Title %d", i), "Summary", "Reuters")
	}

	result, err := validator.ValidateBatch(context.Background(), signals, "", "")
	require.Error(t, err)
	assert.Len(t, result.Validations, maxBatchSignals)

	prompt := llm.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "[49] Source:")
	assert.NotContains(t, prompt, "[50] Source:")
	assert.Contains(t, prompt, "INTELLIGENCE SIGNALS (50 signals)")
}

func TestValidationPromptDigest(t *testing.T) {
	longSummary := strings.Repeat("x", 250)
	signals := []domain.IntelligenceSignal{
		batchSignal("Named source", longSummary, "Reuters"),
		batchSignal("Source type fallback", "short", ""),
		{RawSignal: domain.RawSignal{Title: "No source at all", Summary: "short"}},
	}

	prompt := validationPrompt(signals, "", "")

	assert.Contains(t, prompt, "[0] Source: Reuters")
	assert.Contains(t, prompt, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", 201))
	assert.Contains(t, prompt, "[1] Source: corpus")
	assert.Contains(t, prompt, "[2] Source: unknown")
	assert.Contains(t, prompt, "General global intelligence")
}

func TestValidationMultiplier(t *testing.T) {
	tests := []struct {
		name string
		v    Validation
		want float64
	}{
		{
			name: "baseline",
			v:    Validation{ValidationConfidence: 1.0, EvidenceQuality: "medium"},
			want: 1.0,
		},
		{
			name: "corroborated high evidence",
			v:    Validation{ValidationConfidence: 0.9, IsCorroborated: true, EvidenceQuality: "high"},
			want: 1.3 * 1.2 * 0.9,
		},
		{
			name: "contradicted low evidence",
			v:    Validation{ValidationConfidence: 0.8, IsContradicted: true, EvidenceQuality: "low"},
			want: 0.5 * 0.7 * 0.8,
		},
		{
			name: "corroborated and contradicted",
			v:    Validation{ValidationConfidence: 1.0, IsCorroborated: true, IsContradicted: true, EvidenceQuality: "medium"},
			want: 1.3 * 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.v.Multiplier(), 1e-9)
		})
	}
}

func TestBatchResultSummary(t *testing.T) {
	result := BatchResult{
		OverallCoherence:   0.8,
		ContradictionCount: 1,
		CorroborationCount: 2,
		AnalysisSummary:    "Mostly coherent.",
	}
	summary := result.Summary()
	assert.InDelta(t, 0.8, summary.OverallCoherence, 1e-9)
	assert.Equal(t, 1, summary.ContradictionCount)
	assert.Equal(t, 2, summary.CorroborationCount)
	assert.Equal(t, "Mostly coherent.", summary.AnalysisSummary)
}

func TestBatchCacheKeyOrderSensitive(t *testing.T) {
	a := batchSignal("First", "one", "")
	b := batchSignal("Second", "two", "")

	k1 := batchCacheKey([]domain.IntelligenceSignal{a, b}, "", "")
	k2 := batchCacheKey([]domain.IntelligenceSignal{b, a}, "", "")
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, k1, batchCacheKey([]domain.IntelligenceSignal{a, b}, "", ""))
}

func TestValidatorEnabled(t *testing.T) {
	assert.False(t, testValidator(nil).Enabled())
	assert.False(t, testValidator(&stubLLM{enabled: false}).Enabled())
	assert.True(t, testValidator(&stubLLM{enabled: true}).Enabled())
}
