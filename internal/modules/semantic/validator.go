package semantic

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/argus/internal/cache"
	"github.com/aristath/argus/internal/clients/anthropic"
	"github.com/aristath/argus/internal/domain"
)

// validationTimeout bounds one batch validation call. Batches are a single
// large completion, so the deadline is generous.
const validationTimeout = 40 * time.Second

const validationMaxTokens = 4000

// maxBatchSignals caps how many signals go into one validation prompt.
const maxBatchSignals = 50

// Validation is the cross-reference verdict for one signal in the batch.
type Validation struct {
	SignalIndex          int     `json:"signal_index"`
	ValidationConfidence float64 `json:"validation_confidence"`
	IsCorroborated       bool    `json:"is_corroborated"`
	IsContradicted       bool    `json:"is_contradicted"`
	CorroboratingIndices []int   `json:"corroborating_indices"`
	ContradictingIndices []int   `json:"contradicting_indices"`
	EvidenceQuality      string  `json:"evidence_quality"`
	ValidationReasoning  string  `json:"validation_reasoning"`
}

// Multiplier computes the confidence multiplier applied to the signal's
// relevance score: ×1.3 corroborated, ×0.5 contradicted, ×1.2 high
// evidence, ×0.7 low evidence, and finally × validation confidence.
func (v Validation) Multiplier() float64 {
	m := 1.0
	if v.IsCorroborated {
		m *= 1.3
	}
	if v.IsContradicted {
		m *= 0.5
	}
	switch v.EvidenceQuality {
	case "high":
		m *= 1.2
	case "low":
		m *= 0.7
	}
	return m * v.ValidationConfidence
}

// BatchResult is the whole-batch validation verdict.
type BatchResult struct {
	Validations        []Validation `json:"validations"`
	OverallCoherence   float64      `json:"overall_coherence"`
	ContradictionCount int          `json:"contradiction_count"`
	CorroborationCount int          `json:"corroboration_count"`
	AnalysisSummary    string       `json:"analysis_summary"`
}

// Summary converts the batch verdict into the retrieval metadata record.
func (r BatchResult) Summary() domain.ValidationSummary {
	return domain.ValidationSummary{
		OverallCoherence:   r.OverallCoherence,
		ContradictionCount: r.ContradictionCount,
		CorroborationCount: r.CorroborationCount,
		AnalysisSummary:    r.AnalysisSummary,
	}
}

// Validator cross-references a signal batch for corroborations and
// contradictions in a single LLM call.
type Validator struct {
	llm      LLMClient
	memCache *cache.TTLCache
	log      zerolog.Logger
}

// NewValidator creates a batch validator.
func NewValidator(llm LLMClient, memCache *cache.TTLCache, log zerolog.Logger) *Validator {
	return &Validator{
		llm:      llm,
		memCache: memCache,
		log:      log.With().Str("service", "batch_validator").Logger(),
	}
}

// Enabled reports whether the validator can reach an LLM.
func (v *Validator) Enabled() bool {
	return v.llm != nil && v.llm.Enabled()
}

// ValidateBatch validates up to maxBatchSignals signals against each other.
// On failure it returns the neutral result (confidence 0.7, evidence medium,
// coherence 0.7) together with the error; the caller must leave signal
// scores untouched in that case.
func (v *Validator) ValidateBatch(ctx context.Context, signals []domain.IntelligenceSignal, country, sector string) (BatchResult, error) {
	subset := signals
	if len(subset) > maxBatchSignals {
		subset = subset[:maxBatchSignals]
	}

	key := batchCacheKey(subset, country, sector)
	if cached, ok := v.memCache.Get(key); ok {
		return cached.(BatchResult), nil
	}

	result, err := v.validate(ctx, subset, country, sector)
	if err != nil {
		v.log.Warn().Err(err).Int("signals", len(subset)).Msg("Batch validation failed, returning neutral result")
		return neutralBatchResult(len(subset), err), err
	}

	v.memCache.Set(key, result)
	return result, nil
}

func (v *Validator) validate(ctx context.Context, signals []domain.IntelligenceSignal, country, sector string) (BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, validationTimeout)
	defer cancel()

	prompt := validationPrompt(signals, country, sector)
	raw, err := v.llm.Complete(ctx, anthropic.UserMessage(anthropic.ModelOpus, validationMaxTokens, analysisTemperature, prompt))
	if err != nil {
		return BatchResult{}, err
	}

	var wire batchWire
	if err := json.Unmarshal([]byte(extractJSON(raw)), &wire); err != nil {
		return BatchResult{}, fmt.Errorf("failed to parse validation response: %w", err)
	}

	return wire.toResult(), nil
}

// batchWire mirrors the LLM response. The pointer fields carry documented
// defaults when the model omits them.
type batchWire struct {
	Validations []struct {
		SignalIndex          int      `json:"signal_index"`
		ValidationConfidence *float64 `json:"validation_confidence"`
		IsCorroborated       bool     `json:"is_corroborated"`
		IsContradicted       bool     `json:"is_contradicted"`
		CorroboratingIndices []int    `json:"corroborating_indices"`
		ContradictingIndices []int    `json:"contradicting_indices"`
		EvidenceQuality      string   `json:"evidence_quality"`
		ValidationReasoning  string   `json:"validation_reasoning"`
	} `json:"validations"`
	OverallCoherence   *float64 `json:"overall_coherence"`
	ContradictionCount int      `json:"contradiction_count"`
	CorroborationCount int      `json:"corroboration_count"`
	AnalysisSummary    string   `json:"analysis_summary"`
}

func (w batchWire) toResult() BatchResult {
	result := BatchResult{
		OverallCoherence:   0.7,
		ContradictionCount: w.ContradictionCount,
		CorroborationCount: w.CorroborationCount,
		AnalysisSummary:    w.AnalysisSummary,
	}
	if w.OverallCoherence != nil {
		result.OverallCoherence = clamp01(*w.OverallCoherence)
	}

	for _, entry := range w.Validations {
		validation := Validation{
			SignalIndex:          entry.SignalIndex,
			ValidationConfidence: 0.5,
			IsCorroborated:       entry.IsCorroborated,
			IsContradicted:       entry.IsContradicted,
			CorroboratingIndices: entry.CorroboratingIndices,
			ContradictingIndices: entry.ContradictingIndices,
			EvidenceQuality:      entry.EvidenceQuality,
			ValidationReasoning:  entry.ValidationReasoning,
		}
		if validation.EvidenceQuality == "" {
			validation.EvidenceQuality = "medium"
		}
		if entry.ValidationConfidence != nil {
			validation.ValidationConfidence = clamp01(*entry.ValidationConfidence)
		}
		result.Validations = append(result.Validations, validation)
	}

	return result
}

func neutralBatchResult(count int, cause error) BatchResult {
	validations := make([]Validation, count)
	for i := range validations {
		validations[i] = Validation{
			SignalIndex:          i,
			ValidationConfidence: 0.7,
			EvidenceQuality:      "medium",
			ValidationReasoning:  "Validation error: " + cause.Error(),
		}
	}
	return BatchResult{
		Validations:      validations,
		OverallCoherence: 0.7,
		AnalysisSummary:  "Validation failed: " + cause.Error(),
	}
}

func validationPrompt(signals []domain.IntelligenceSignal, country, sector string) string {
	digests := make([]string, 0, len(signals))
	for idx, sig := range signals {
		source := sig.SourceName
		if source == "" {
			source = string(sig.Source)
		}
		if source == "" {
			source = "unknown"
		}
		digests = append(digests, fmt.Sprintf("[%d] Source: %s\n    Title: %s\n    Summary: %s...",
			idx, source, sig.Title, truncateRunes(sig.Summary, 200)))
	}
	signalsText := strings.Join(digests, "\n\n")

	var contextParts []string
	if country != "" {
		contextParts = append(contextParts, "Country: "+country)
	}
	if sector != "" {
		contextParts = append(contextParts, "Sector: "+sector)
	}
	assetContext := "General global intelligence"
	if len(contextParts) > 0 {
		assetContext = strings.Join(contextParts, "\n")
	}

	return fmt.Sprintf(`You are an expert intelligence analyst validating geopolitical risk signals.

ASSET CONTEXT:
%s

INTELLIGENCE SIGNALS (%d signals):
%s

TASK:
Analyze these intelligence signals for:
1. **Contradictions**: Which signals contradict each other? (e.g., one says "sanctions lifted", another says "sanctions tightened")
2. **Corroborations**: Which signals support/confirm each other? (e.g., multiple sources reporting same event)
3. **Evidence Quality**: Rate each signal's evidence quality (high/medium/low) based on specificity and credibility
4. **Confidence Assessment**: How confident are you in each signal's accuracy?

GUIDELINES:
- Corroboration: Multiple independent sources reporting similar information = HIGH confidence boost
- Contradiction: Conflicting information = LOW confidence, flag for review
- Evidence quality:
  - HIGH: Specific details (dates, names, numbers), credible sources, verifiable claims
  - MEDIUM: General information, single source, vague details
  - LOW: Speculative, unverified, or highly general claims
- Overall coherence: How well do signals tell a coherent story?

RESPOND IN JSON FORMAT ONLY:
{
    "validations": [
        {
            "signal_index": 0,
            "validation_confidence": 0.0-1.0,
            "is_corroborated": true/false,
            "is_contradicted": true/false,
            "corroborating_indices": [1, 3],
            "contradicting_indices": [],
            "evidence_quality": "high/medium/low",
            "validation_reasoning": "Explanation here"
        },
        ...
    ],
    "overall_coherence": 0.0-1.0,
    "contradiction_count": 0,
    "corroboration_count": 0,
    "analysis_summary": "Overall assessment of signal quality and coherence"
}

IMPORTANT:
- Provide validation for ALL %d signals
- Be strict: only mark as corroborated if truly confirmed by another source
- Flag contradictions clearly to prevent conflicting intelligence`,
		assetContext, len(signals), signalsText, len(signals))
}

// batchCacheKey digests the batch contents and asset context. Order
// matters: the same signals in a different order are a different prompt.
func batchCacheKey(signals []domain.IntelligenceSignal, country, sector string) string {
	texts := make([]string, 0, len(signals))
	for _, sig := range signals {
		texts = append(texts, sig.Title+"|"+sig.Summary)
	}
	content := strings.Join(texts, "|") + "|" + country + "|" + sector
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
