package ingestion

import (
	"math"
	"sort"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/modules/corpus"
	"github.com/aristath/argus/pkg/embedded"
)

const (
	maxEventsPerSnapshot = 5
	maxSourcesPerEvent   = 3

	confidenceHigh   = "High"
	confidenceMedium = "Medium"

	// disputeTopic marks the clusters counted as active disputes.
	disputeTopic = "security"
)

// feedArticle is one global item expanded per matched country, the unit
// the snapshot builder clusters.
type feedArticle struct {
	title     string
	summary   string
	url       string
	source    string
	published string
	topic     string
}

// buildSnapshots aggregates items into one situation snapshot per table
// country. Countries without items get a Calm snapshot so every country
// stays addressable by the corpus API.
func buildSnapshots(countries []embedded.Country, items []corpus.GlobalItem) []corpus.Snapshot {
	grouped := make(map[string][]feedArticle)
	for _, item := range items {
		for _, countryID := range item.CountryIDs {
			grouped[countryID] = append(grouped[countryID], feedArticle{
				title:     item.Title,
				summary:   item.Summary,
				url:       item.URL,
				source:    item.Source.Name,
				published: item.PublishedAt,
				topic:     item.Topic,
			})
		}
	}

	snapshots := make([]corpus.Snapshot, 0, len(countries))
	for _, country := range countries {
		snapshots = append(snapshots, buildCountrySnapshot(country, grouped[country.ID]))
	}
	return snapshots
}

// buildCountrySnapshot clusters one country's articles by topic. Each
// cluster becomes an event headed by its newest article; cluster order
// follows first appearance in the article list.
func buildCountrySnapshot(country embedded.Country, articles []feedArticle) corpus.Snapshot {
	clusters := make(map[string][]feedArticle)
	var topicOrder []string
	for _, article := range articles {
		topic := article.topic
		if topic == "" {
			topic = domain.InferTopic(article.title + " " + article.summary)
		}
		if _, ok := clusters[topic]; !ok {
			topicOrder = append(topicOrder, topic)
		}
		clusters[topic] = append(clusters[topic], article)
	}

	events := make([]corpus.EventCluster, 0, len(topicOrder))
	for _, topic := range topicOrder {
		group := clusters[topic]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].published > group[j].published
		})
		head := group[0]

		limit := maxSourcesPerEvent
		if len(group) < limit {
			limit = len(group)
		}
		var sources []string
		for _, article := range group[:limit] {
			if article.url == "" {
				continue
			}
			sources = append(sources, article.source)
		}

		confidence := confidenceMedium
		if len(sources) > 1 {
			confidence = confidenceHigh
		}

		events = append(events, corpus.EventCluster{
			Title:      head.title,
			Summary:    head.summary,
			Confidence: confidence,
			Sources:    sources,
			UpdatedAt:  head.published,
			Topic:      topic,
		})
	}
	if len(events) > maxEventsPerSnapshot {
		events = events[:maxEventsPerSnapshot]
	}

	activity := corpus.ActivityCalm
	switch {
	case len(events) >= 4:
		activity = corpus.ActivityEscalating
	case len(events) >= 1:
		activity = corpus.ActivityActive
	}

	latest := ""
	for _, article := range articles {
		if article.published > latest {
			latest = article.published
		}
	}

	disputes := 0
	total := 0.0
	for _, event := range events {
		if event.Topic == disputeTopic {
			disputes++
		}
		if event.Confidence == confidenceHigh {
			total += 0.8
		} else {
			total += 0.6
		}
	}
	count := len(events)
	if count == 0 {
		count = 1
	}

	return corpus.Snapshot{
		ID:            country.ID,
		Name:          country.Name,
		ActivityLevel: activity,
		UpdatedAt:     latest,
		Events:        events,
		Stats: corpus.CountryStats{
			Signals:    len(events),
			Disputes:   disputes,
			Confidence: math.Round(total/float64(count)*100) / 100,
		},
	}
}
