// Package retrieval gathers intelligence signals for an asset profile. It
// scores the local corpus, optionally filters signals through the semantic
// adapter, fans out to theme web searches, merges and validates the union,
// and returns the top signals sorted by relevance.
package retrieval

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/argus/internal/cache"
	"github.com/aristath/argus/internal/config"
	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/modules/corpus"
	"github.com/aristath/argus/internal/modules/semantic"
	"github.com/aristath/argus/internal/modules/settings"
	"github.com/aristath/argus/internal/modules/websearch"
)

// minSignalsForValidation is the smallest batch worth cross-referencing.
const minSignalsForValidation = 3

// CorpusQuerier reads the local intelligence corpus.
type CorpusQuerier interface {
	QueryGlobalItems(ctx context.Context, profile domain.AssetProfile, lookbackDays int) []corpus.GlobalItem
	QuerySnapshots(ctx context.Context, profile domain.AssetProfile, lookbackDays int) []corpus.Snapshot
}

// SemanticAnalyzer scores one signal's relevance to the asset.
type SemanticAnalyzer interface {
	Enabled() bool
	AnalyzeSignal(ctx context.Context, title, summary, country, sector string, themes []string, threshold float64) (semantic.Analysis, error)
}

// BatchValidator cross-references a signal batch.
type BatchValidator interface {
	Enabled() bool
	ValidateBatch(ctx context.Context, signals []domain.IntelligenceSignal, country, sector string) (semantic.BatchResult, error)
}

// ThemeSearcher runs one themed web search.
type ThemeSearcher interface {
	BuildQuery(ctx context.Context, profile domain.AssetProfile, theme domain.ThemeRelevance, keywords []string, lookbackDays int) string
	Search(ctx context.Context, query string, lookbackDays int) ([]websearch.Result, error)
}

// Catalog supplies theme definitions for keyword matching.
type Catalog interface {
	ActiveThemes() []domain.ThemeDefinition
}

// SettingsProvider supplies the active scoring settings.
type SettingsProvider interface {
	Active() settings.ScoringSettings
}

// Result is the retrieval output: scored signals plus the metadata
// describing how they were gathered.
type Result struct {
	Signals     []domain.IntelligenceSignal `json:"signals"`
	WebSearches []domain.WebSearchRecord    `json:"web_searches"`
	Validation  *domain.ValidationSummary   `json:"validation,omitempty"`
}

// Retriever orchestrates the retrieval stages. Results are cached for the
// configured TTL; the ingestion job invalidates the cache on refresh.
type Retriever struct {
	corpus    CorpusQuerier
	searcher  ThemeSearcher
	analyzer  SemanticAnalyzer
	validator BatchValidator
	catalog   Catalog
	settings  SettingsProvider
	cfg       *config.Config
	memCache  *cache.TTLCache
	log       zerolog.Logger
}

// NewRetriever creates an intelligence retriever. The analyzer and
// validator may be nil when no LLM is configured; the corresponding
// stages are skipped.
func NewRetriever(
	corpusQuerier CorpusQuerier,
	searcher ThemeSearcher,
	analyzer SemanticAnalyzer,
	validator BatchValidator,
	catalog Catalog,
	provider SettingsProvider,
	cfg *config.Config,
	memCache *cache.TTLCache,
	log zerolog.Logger,
) *Retriever {
	return &Retriever{
		corpus:    corpusQuerier,
		searcher:  searcher,
		analyzer:  analyzer,
		validator: validator,
		catalog:   catalog,
		settings:  provider,
		cfg:       cfg,
		memCache:  memCache,
		log:       log.With().Str("service", "intelligence_retriever").Logger(),
	}
}

// Retrieve gathers the signals relevant to the profile and themes.
// lookbackDays <= 0 falls back to the settings default. The result is
// served from cache when an identical query ran within the TTL.
func (r *Retriever) Retrieve(ctx context.Context, profile domain.AssetProfile, themes []domain.ThemeRelevance, lookbackDays int) Result {
	st := r.settings.Active()
	if lookbackDays <= 0 {
		lookbackDays = st.DaysLookbackDefault
	}
	maxSignals := st.MaxSignalsDefault

	key := r.cacheKey(profile, themes, lookbackDays, &st)
	if cached, ok := r.memCache.Get(key); ok {
		result := cached.(Result)
		if len(result.Signals) > maxSignals {
			result.Signals = result.Signals[:maxSignals]
		}
		r.log.Debug().Str("holding", profile.Name).Int("signals", len(result.Signals)).Msg("Intelligence served from cache")
		return result
	}

	result := r.retrieve(ctx, profile, themes, lookbackDays, maxSignals, &st)
	r.memCache.Set(key, result)
	return result
}

func (r *Retriever) retrieve(ctx context.Context, profile domain.AssetProfile, themes []domain.ThemeRelevance, lookbackDays, maxSignals int, st *settings.ScoringSettings) Result {
	keywords := r.themeKeywords(themes)

	signals := r.scoreGlobalItems(ctx, profile, themes, keywords, lookbackDays, st, nil)
	signals = r.scoreSnapshots(ctx, profile, themes, keywords, lookbackDays, st, signals)

	if st.UseSemanticFiltering && r.analyzer != nil && r.analyzer.Enabled() {
		signals = r.semanticFilter(ctx, signals, profile, themeNames(themes), st.SemanticThreshold)
	}

	webSignals, records := r.webFanOut(ctx, profile, themes, keywords, lookbackDays, st)
	signals = append(signals, webSignals...)

	signals = dedupeByURL(signals)
	sortByRelevance(signals)

	result := Result{Signals: signals, WebSearches: records}

	if st.UseBatchValidation && r.validator != nil && r.validator.Enabled() && len(signals) >= minSignalsForValidation {
		result.Validation = r.validateBatch(ctx, signals, profile)
		sortByRelevance(signals)
	}

	if len(result.Signals) > maxSignals {
		result.Signals = result.Signals[:maxSignals]
	}

	r.log.Info().
		Str("holding", profile.Name).
		Int("signals", len(result.Signals)).
		Int("web_searches", len(result.WebSearches)).
		Msg("Intelligence retrieval completed")

	return result
}

// themeKeywords resolves each input theme to its catalog keyword list.
func (r *Retriever) themeKeywords(themes []domain.ThemeRelevance) map[string][]string {
	defs := r.catalog.ActiveThemes()
	byName := make(map[string][]string, len(defs))
	for _, def := range defs {
		byName[def.Name] = def.Keywords
	}

	keywords := make(map[string][]string, len(themes))
	for _, theme := range themes {
		if kw, ok := byName[theme.Theme]; ok {
			keywords[theme.Theme] = kw
		}
	}
	return keywords
}

func themeNames(themes []domain.ThemeRelevance) []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Theme
	}
	return names
}

// dedupeByURL drops duplicate URLs keeping the higher scored variant.
// Signals without a URL are never merged.
func dedupeByURL(signals []domain.IntelligenceSignal) []domain.IntelligenceSignal {
	deduplicated := make([]domain.IntelligenceSignal, 0, len(signals))
	seen := make(map[string]int)

	for _, sig := range signals {
		if sig.URL == "" {
			deduplicated = append(deduplicated, sig)
			continue
		}
		if idx, ok := seen[sig.URL]; ok {
			if sig.RelevanceScore > deduplicated[idx].RelevanceScore {
				deduplicated[idx] = sig
			}
			continue
		}
		seen[sig.URL] = len(deduplicated)
		deduplicated = append(deduplicated, sig)
	}

	return deduplicated
}

// sortByRelevance orders signals by descending relevance with the URL as
// a deterministic tiebreaker.
func sortByRelevance(signals []domain.IntelligenceSignal) {
	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].RelevanceScore != signals[j].RelevanceScore {
			return signals[i].RelevanceScore > signals[j].RelevanceScore
		}
		return signals[i].URL < signals[j].URL
	})
}

// cacheKey digests everything that changes the retrieval outcome. Theme
// names are sorted so identical theme sets hash identically regardless
// of mapper ordering.
func (r *Retriever) cacheKey(profile domain.AssetProfile, themes []domain.ThemeRelevance, lookbackDays int, st *settings.ScoringSettings) string {
	names := themeNames(themes)
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	parts := []string{
		profile.Country,
		profile.Region,
		profile.Sector,
		profile.AssetType,
		strings.Join(sorted, ","),
		strconv.Itoa(lookbackDays),
		strconv.FormatBool(st.UseSemanticFiltering),
		strconv.FormatFloat(st.SemanticThreshold, 'f', -1, 64),
		strconv.FormatBool(st.UseBatchValidation),
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
