// Package semantic provides the stage-3 LLM adapters: per-signal relevance
// analysis and whole-batch cross-validation. Both are cache-first and
// degrade to documented neutral values on failure, so LLM trouble never
// aborts a retrieval.
package semantic

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/argus/internal/cache"
	"github.com/aristath/argus/internal/clientdata"
	"github.com/aristath/argus/internal/clients/anthropic"
)

// analysisTimeout bounds one per-signal analysis call.
const analysisTimeout = 20 * time.Second

const analysisMaxTokens = 300

// analysisTemperature is kept low for consistent scoring across runs.
const analysisTemperature = 0.1

// LLMClient is the messages API surface the adapters need. Implemented by
// anthropic.Client; an interface so tests can stub it.
type LLMClient interface {
	Enabled() bool
	Complete(ctx context.Context, req anthropic.Request) (string, error)
}

// Analysis is the semantic verdict for one signal. The JSON tags double as
// the LLM response contract and the persistent cache encoding.
type Analysis struct {
	RelevanceScore  float64  `json:"relevance_score"`
	ConfidenceScore float64  `json:"confidence_score"`
	MatchedThemes   []string `json:"matched_themes"`
	Reasoning       string   `json:"reasoning"`
	Relevant        bool     `json:"is_relevant"`
}

// Analyzer scores individual signals for semantic relevance to an asset.
type Analyzer struct {
	llm      LLMClient
	memCache *cache.TTLCache
	store    *clientdata.Repository
	log      zerolog.Logger
}

// NewAnalyzer creates a semantic analyzer. store may be nil to disable the
// persistent cache layer; memCache is required.
func NewAnalyzer(llm LLMClient, memCache *cache.TTLCache, store *clientdata.Repository, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		llm:      llm,
		memCache: memCache,
		store:    store,
		log:      log.With().Str("service", "semantic_analyzer").Logger(),
	}
}

// Enabled reports whether the analyzer can actually reach an LLM. The
// retriever skips the semantic stage entirely when this is false, which
// keeps "filtering enabled but no API key" from erasing every signal.
func (a *Analyzer) Enabled() bool {
	return a.llm != nil && a.llm.Enabled()
}

// AnalyzeSignal rates one signal's relevance to the asset context. On
// success the result is cached in memory and, when a store is configured,
// persistently. On failure it returns the neutral analysis (relevance 0.5,
// confidence 0, not relevant) together with the error; the caller decides
// whether to keep the signal.
func (a *Analyzer) AnalyzeSignal(ctx context.Context, title, summary, country, sector string, themes []string, threshold float64) (Analysis, error) {
	key := analysisCacheKey(title, summary, country, sector, themes)

	if cached, ok := a.memCache.Get(key); ok {
		result := cached.(Analysis)
		result.Relevant = result.RelevanceScore >= threshold
		return result, nil
	}

	if a.store != nil {
		if raw, err := a.store.GetIfFresh(clientdata.TableAnalyses, key); err == nil && raw != nil {
			var result Analysis
			if err := json.Unmarshal(raw, &result); err == nil {
				result.Relevant = result.RelevanceScore >= threshold
				a.memCache.Set(key, result)
				return result, nil
			}
		}
	}

	result, err := a.analyze(ctx, title, summary, country, sector, themes)
	if err != nil {
		a.log.Warn().Err(err).Str("title", title).Msg("Semantic analysis failed, returning neutral result")
		return Analysis{
			RelevanceScore: 0.5,
			Reasoning:      "API error: " + err.Error(),
		}, err
	}

	result.Relevant = result.RelevanceScore >= threshold

	a.memCache.Set(key, result)
	if a.store != nil {
		if err := a.store.Store(clientdata.TableAnalyses, key, result, clientdata.TTLAnalysis); err != nil {
			a.log.Warn().Err(err).Msg("Failed to persist semantic analysis")
		}
	}

	return result, nil
}

func (a *Analyzer) analyze(ctx context.Context, title, summary, country, sector string, themes []string) (Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	prompt := analysisPrompt(title, summary, country, sector, themes)
	raw, err := a.llm.Complete(ctx, anthropic.UserMessage(anthropic.ModelHaiku, analysisMaxTokens, analysisTemperature, prompt))
	if err != nil {
		return Analysis{}, err
	}

	var result Analysis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return Analysis{}, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	result.RelevanceScore = clamp01(result.RelevanceScore)
	result.ConfidenceScore = clamp01(result.ConfidenceScore)
	return result, nil
}

func analysisPrompt(title, summary, country, sector string, themes []string) string {
	var contextParts []string
	if country != "" {
		contextParts = append(contextParts, "Country: "+country)
	}
	if sector != "" {
		contextParts = append(contextParts, "Sector: "+sector)
	}
	if len(themes) > 0 {
		contextParts = append(contextParts, "Relevant themes: "+strings.Join(themes, ", "))
	}

	assetContext := "General global intelligence"
	if len(contextParts) > 0 {
		assetContext = strings.Join(contextParts, "\n")
	}

	return fmt.Sprintf(`You are an expert geopolitical risk analyst. Analyze if this intelligence signal is truly relevant to the given asset.

ASSET CONTEXT:
%s

INTELLIGENCE SIGNAL:
Title: %s
Summary: %s

TASK:
1. Determine if this signal is TRULY relevant to the asset's risk profile
2. Rate relevance from 0.0 (completely irrelevant) to 1.0 (highly relevant)
3. Rate your confidence from 0.0 (very uncertain) to 1.0 (very confident)
4. Identify which themes (if any) this signal matches semantically
5. Explain your reasoning concisely (1-2 sentences)

RELEVANCE GUIDELINES:
- 0.8-1.0: Direct, specific impact on the asset (e.g., sanctions on Russia for Russian assets)
- 0.6-0.8: Likely indirect impact (e.g., regional conflict affecting neighboring country)
- 0.4-0.6: Tangential relevance (e.g., global trend affecting sector broadly)
- 0.2-0.4: Weak connection (e.g., mentioned country but unrelated topic)
- 0.0-0.2: Irrelevant or generic news

RESPOND IN JSON FORMAT ONLY:
{
    "relevance_score": 0.0-1.0,
    "confidence_score": 0.0-1.0,
    "matched_themes": ["theme1", "theme2"],
    "reasoning": "Your explanation here"
}`, assetContext, title, summary)
}

// analysisCacheKey digests the inputs that determine an analysis. Theme
// order does not matter, so themes are sorted before hashing.
func analysisCacheKey(title, summary, country, sector string, themes []string) string {
	sorted := make([]string, len(themes))
	copy(sorted, themes)
	sort.Strings(sorted)

	content := strings.Join([]string{title, summary, country, sector, strings.Join(sorted, "|")}, "|")
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
