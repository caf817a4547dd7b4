// Package ingestion polls the global news feeds, filters entries down to
// country-tagged geopolitical signals and rebuilds the corpus from the
// result: one global item per kept entry plus one situation snapshot per
// country in the reference table.
package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/argus/internal/cache"
	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/events"
	"github.com/aristath/argus/internal/modules/corpus"
	"github.com/aristath/argus/pkg/embedded"
)

const (
	// entriesPerFeed caps how deep into each feed a run looks.
	entriesPerFeed = 30
	// defaultMaxAgeDays is the age cutoff for entries with a parseable
	// publication date. Entries without one are kept.
	defaultMaxAgeDays = 1
	// maxAgeDaysLimit bounds the widest window a caller may request.
	maxAgeDaysLimit = 7

	feedConcurrency = 3
	feedTimeout     = 15 * time.Second
)

// CorpusWriter replaces the corpus contents after a successful run.
type CorpusWriter interface {
	ReplaceAll(ctx context.Context, items []corpus.GlobalItem, snapshots []corpus.Snapshot) error
}

// Summary describes one completed ingestion run.
type Summary struct {
	FeedsPolled    int   `json:"feeds_polled"`
	FeedsFailed    int   `json:"feeds_failed"`
	ItemsIngested  int   `json:"items_ingested"`
	SnapshotsBuilt int   `json:"snapshots_built"`
	DurationMS     int64 `json:"duration_ms"`
}

// Service runs the ingestion pipeline: poll feeds, filter entries, build
// snapshots, replace the corpus and invalidate the in-process caches.
type Service struct {
	feeds     []Feed
	countries []embedded.Country
	matcher   *CountryMatcher
	corpus    CorpusWriter
	caches    *cache.Caches
	events    *events.Manager
	client    *http.Client
	log       zerolog.Logger
}

// NewService creates the ingestion service. caches and eventManager may
// be nil; invalidation and event emission are then skipped.
func NewService(
	feeds []Feed,
	countries []embedded.Country,
	corpusWriter CorpusWriter,
	caches *cache.Caches,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		feeds:     feeds,
		countries: countries,
		matcher:   NewCountryMatcher(countries),
		corpus:    corpusWriter,
		caches:    caches,
		events:    eventManager,
		client:    &http.Client{Timeout: feedTimeout},
		log:       log.With().Str("service", "ingestion").Logger(),
	}
}

// Refresh polls every feed, rebuilds the snapshot set and replaces the
// corpus contents in one transaction. A failing feed is logged and
// counted, never fatal; the run errors only when the corpus write does.
// maxAgeDays <= 0 selects the default window.
func (s *Service) Refresh(ctx context.Context, maxAgeDays int) (*Summary, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = defaultMaxAgeDays
	}
	started := time.Now()

	if s.events != nil {
		s.events.Emit(events.IngestionStarted, "ingestion", map[string]interface{}{
			"feeds":        len(s.feeds),
			"max_age_days": maxAgeDays,
		})
	}

	// Feeds are fetched concurrently but collected by position so item
	// order, and with it snapshot clustering, stays deterministic.
	perFeed := make([][]corpus.GlobalItem, len(s.feeds))
	feedErrs := make([]error, len(s.feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedConcurrency)
	for i, feed := range s.feeds {
		i, feed := i, feed
		g.Go(func() error {
			items, err := s.fetchFeed(gctx, feed, maxAgeDays)
			if err != nil {
				feedErrs[i] = err
				return nil
			}
			perFeed[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var items []corpus.GlobalItem
	failed := 0
	for i, feed := range s.feeds {
		if feedErrs[i] != nil {
			failed++
			s.log.Warn().Err(feedErrs[i]).Str("feed", feed.Name).Msg("Feed poll failed")
			continue
		}
		items = append(items, perFeed[i]...)
	}

	snapshots := buildSnapshots(s.countries, items)

	if err := s.corpus.ReplaceAll(ctx, items, snapshots); err != nil {
		if s.events != nil {
			s.events.EmitError("ingestion", err, map[string]interface{}{
				"step": "replace_corpus",
			})
		}
		return nil, fmt.Errorf("failed to replace corpus contents: %w", err)
	}

	if s.caches != nil {
		s.caches.InvalidateAll()
	}

	summary := &Summary{
		FeedsPolled:    len(s.feeds),
		FeedsFailed:    failed,
		ItemsIngested:  len(items),
		SnapshotsBuilt: len(snapshots),
		DurationMS:     time.Since(started).Milliseconds(),
	}
	s.emitCompleted(summary)

	s.log.Info().
		Int("items", summary.ItemsIngested).
		Int("snapshots", summary.SnapshotsBuilt).
		Int("feeds_failed", summary.FeedsFailed).
		Dur("duration", time.Since(started)).
		Msg("Ingestion run completed")

	return summary, nil
}

// fetchFeed polls one feed and returns the entries that survive the
// blocklist, age, country and topic filters.
func (s *Service) fetchFeed(ctx context.Context, feed Feed, maxAgeDays int) ([]corpus.GlobalItem, error) {
	parser := gofeed.NewParser()
	parser.Client = s.client

	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", feed.Name, err)
	}

	entries := parsed.Items
	if len(entries) > entriesPerFeed {
		entries = entries[:entriesPerFeed]
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)

	var items []corpus.GlobalItem
	for _, entry := range entries {
		if entry == nil || entry.Title == "" {
			continue
		}
		text := entry.Title + " " + entry.Description
		if isBlocked(text) {
			continue
		}

		// Normalize parseable publication dates to RFC3339 UTC so the
		// scoring layer and the snapshot builder can order them.
		published := entry.Published
		if entry.PublishedParsed != nil {
			stamp := entry.PublishedParsed.UTC()
			if stamp.Before(cutoff) {
				continue
			}
			published = stamp.Format(time.RFC3339)
		}

		matched := s.matcher.Match(text)
		if len(matched) == 0 {
			continue
		}

		topic := domain.InferTopic(text)
		if topic == domain.TopicGeneral {
			continue
		}

		names := make([]string, len(matched))
		ids := make([]string, len(matched))
		for i, match := range matched {
			names[i] = match.Name
			ids[i] = match.ID
		}

		items = append(items, corpus.GlobalItem{
			Title:       entry.Title,
			Summary:     entry.Description,
			Source:      corpus.SourceRef{Name: feed.Name, URL: entry.Link},
			URL:         entry.Link,
			PublishedAt: published,
			Topic:       topic,
			Countries:   names,
			CountryIDs:  ids,
		})
	}
	return items, nil
}

func (s *Service) emitCompleted(summary *Summary) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped(events.IngestionCompleted, "ingestion", &events.IngestionCompletedData{
		FeedsPolled:    summary.FeedsPolled,
		FeedsFailed:    summary.FeedsFailed,
		ItemsIngested:  summary.ItemsIngested,
		SnapshotsBuilt: summary.SnapshotsBuilt,
		DurationMS:     summary.DurationMS,
	})
	s.events.EmitTyped(events.CorpusUpdated, "ingestion", &events.CorpusUpdatedData{
		Items:     summary.ItemsIngested,
		Snapshots: summary.SnapshotsBuilt,
	})
}
