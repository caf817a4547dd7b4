package retrieval

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/modules/scoring"
	"github.com/aristath/argus/internal/modules/settings"
	"github.com/aristath/argus/internal/modules/websearch"
)

// webConcurrency bounds the in-flight theme searches.
const webConcurrency = 3

// webBaseRelevance is the conservative base score for web results, which
// arrive unvalidated.
const webBaseRelevance = 0.5

// trustedSourceBoost is added to the source quality of results hosted on
// the trusted-domain allowlist.
const trustedSourceBoost = 0.1

// webFanOut searches the web for the top themes concurrently. A per-theme
// metadata record is produced for every attempted search, including
// failures; a failed search never aborts retrieval.
func (r *Retriever) webFanOut(
	ctx context.Context,
	profile domain.AssetProfile,
	themes []domain.ThemeRelevance,
	keywords map[string][]string,
	lookbackDays int,
	st *settings.ScoringSettings,
) ([]domain.IntelligenceSignal, []domain.WebSearchRecord) {
	selected := topWebThemes(themes, r.cfg.MaxWebSearchThemes, st.ThemeRelevanceThresholdWeb)
	if len(selected) == 0 {
		return nil, nil
	}

	records := make([]domain.WebSearchRecord, len(selected))
	perTheme := make([][]domain.IntelligenceSignal, len(selected))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(webConcurrency)

	for i, theme := range selected {
		i, theme := i, theme
		g.Go(func() error {
			query := r.searcher.BuildQuery(ctx, profile, theme, keywords[theme.Theme], lookbackDays)
			record := domain.WebSearchRecord{Theme: theme.Theme, Query: query}

			results, err := r.searcher.Search(ctx, query, lookbackDays)
			if err != nil {
				r.log.Warn().Err(err).Str("theme", theme.Theme).Msg("Theme web search failed")
				record.Error = err.Error()
				records[i] = record
				return nil
			}

			signals := convertWebResults(results, profile, theme, lookbackDays, st)
			record.ResultsCount = len(results)
			record.SignalsCount = len(signals)
			records[i] = record
			perTheme[i] = signals
			return nil
		})
	}
	_ = g.Wait()

	var signals []domain.IntelligenceSignal
	for _, themeSignals := range perTheme {
		signals = append(signals, themeSignals...)
	}

	return signals, records
}

// topWebThemes picks at most max themes above the relevance threshold,
// highest first.
func topWebThemes(themes []domain.ThemeRelevance, max int, threshold float64) []domain.ThemeRelevance {
	sorted := make([]domain.ThemeRelevance, len(themes))
	copy(sorted, themes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})

	if len(sorted) > max {
		sorted = sorted[:max]
	}

	selected := sorted[:0]
	for _, theme := range sorted {
		if theme.RelevanceScore >= threshold {
			selected = append(selected, theme)
		}
	}
	return selected
}

// convertWebResults scores search results as intelligence signals. Web
// results without a publication date are treated as current.
func convertWebResults(
	results []websearch.Result,
	profile domain.AssetProfile,
	theme domain.ThemeRelevance,
	lookbackDays int,
	st *settings.ScoringSettings,
) []domain.IntelligenceSignal {
	signals := make([]domain.IntelligenceSignal, 0, len(results))

	for _, result := range results {
		publishedAt := result.PublishedDate
		if publishedAt == "" {
			publishedAt = time.Now().UTC().Format(time.RFC3339)
		}

		sourceName := result.Source
		if sourceName == "" {
			sourceName = "Unknown"
		}

		recency := scoring.Recency(st, publishedAt, lookbackDays)
		quality := scoring.SourceQuality(st, sourceName)
		if websearch.IsTrustedSource(result.URL) {
			quality += trustedSourceBoost
			if quality > 1.0 {
				quality = 1.0
			}
		}

		final := scoring.Final(st, webBaseRelevance, theme.RelevanceScore, recency, quality, 0)

		signals = append(signals, domain.IntelligenceSignal{
			RawSignal: domain.RawSignal{
				Source:      domain.SourceWeb,
				SourceName:  result.Source,
				Title:       result.Title,
				Summary:     result.Snippet,
				Topic:       domain.InferTopic(result.Title + " " + result.Snippet),
				URL:         result.URL,
				Country:     profile.Country,
				PublishedAt: publishedAt,
			},
			BaseRelevance:        webBaseRelevance,
			ThemeMatchScore:      theme.RelevanceScore,
			RecencyScore:         recency,
			SourceQuality:        quality,
			ThemeMatch:           theme.Theme,
			RelevanceScore:       final,
			ValidationConfidence: 1.0,
			ConfidenceMultiplier: 1.0,
		})
	}

	return signals
}
