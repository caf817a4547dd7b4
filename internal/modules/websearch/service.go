// Package websearch retrieves real-time intelligence for a geopolitical
// theme from a web search back-end. It builds the query (LLM-refined with a
// deterministic fallback), dispatches to the configured provider, and
// post-filters the hits so only substantive results from credible sources
// reach the retriever.
package websearch

import (
	"context"
	"time"

	"github.com/aristath/argus/internal/clients/anthropic"
	"github.com/aristath/argus/internal/clients/serper"
	"github.com/aristath/argus/internal/clients/tavily"
	"github.com/aristath/argus/internal/config"
	"github.com/rs/zerolog"
)

// searchTimeout bounds a single provider call. Theme searches run
// concurrently in the retriever, so a slow provider delays at most one
// theme's results.
const searchTimeout = 10 * time.Second

// Result is a cleaned web search hit, provider differences normalized away.
type Result struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet"`
	PublishedDate string `json:"published_date,omitempty"`
	Source        string `json:"source,omitempty"`
}

// QueryRefiner turns the refinement prompt into a query string.
// Implemented by anthropic.Client; an interface so tests can stub it.
type QueryRefiner interface {
	Enabled() bool
	Complete(ctx context.Context, req anthropic.Request) (string, error)
}

// ResearchSearcher is the research-oriented back-end, restricted to a
// domain allowlist. Implemented by tavily.Client.
type ResearchSearcher interface {
	Enabled() bool
	Search(ctx context.Context, query string, includeDomains []string, maxResults int) ([]tavily.Result, error)
}

// GeneralSearcher is the general web back-end with a time-range filter.
// Implemented by serper.Client.
type GeneralSearcher interface {
	Enabled() bool
	Search(ctx context.Context, query string, num int, timeRange string) ([]serper.Result, error)
}

// Service performs theme web searches against the configured provider.
type Service struct {
	cfg      *config.Config
	refiner  QueryRefiner
	research ResearchSearcher
	general  GeneralSearcher
	log      zerolog.Logger
}

// NewService creates a new web search service. Either searcher may be a
// client without an API key; searches against it fail with the client's
// not-configured error, which the retriever records as search metadata.
func NewService(cfg *config.Config, refiner QueryRefiner, research ResearchSearcher, general GeneralSearcher, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		refiner:  refiner,
		research: research,
		general:  general,
		log:      log.With().Str("service", "websearch").Logger(),
	}
}

// Search runs the query against the configured provider and returns the
// filtered, deduplicated results. Errors are returned rather than swallowed
// so the retriever can record them in the per-theme search metadata.
func (s *Service) Search(ctx context.Context, query string, lookbackDays int) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var (
		results []Result
		err     error
	)
	if s.cfg.WebSearchAPI == "general" {
		results, err = s.searchGeneral(ctx, query, lookbackDays)
	} else {
		results, err = s.searchResearch(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	cleaned := clean(results)
	s.log.Debug().
		Str("query", query).
		Int("raw", len(results)).
		Int("kept", len(cleaned)).
		Msg("Web search completed")

	return cleaned, nil
}

func (s *Service) searchResearch(ctx context.Context, query string) ([]Result, error) {
	hits, err := s.research.Search(ctx, query, TrustedDomains(), s.cfg.WebSearchMaxResults)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Title:         hit.Title,
			URL:           hit.URL,
			Snippet:       hit.Content,
			PublishedDate: hit.PublishedDate,
		})
	}
	return results, nil
}

func (s *Service) searchGeneral(ctx context.Context, query string, lookbackDays int) ([]Result, error) {
	hits, err := s.general.Search(ctx, query, s.cfg.WebSearchMaxResults, generalTimeRange(lookbackDays))
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Title:   hit.Title,
			URL:     hit.Link,
			Snippet: hit.Snippet,
		})
	}
	return results, nil
}

// generalTimeRange maps the lookback window onto the general provider's
// time filter. Lookbacks beyond a month get no restriction.
func generalTimeRange(lookbackDays int) string {
	switch {
	case lookbackDays <= 7:
		return "week"
	case lookbackDays <= 30:
		return "month"
	default:
		return ""
	}
}
