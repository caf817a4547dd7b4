package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/modules/corpus"
	"github.com/aristath/argus/internal/modules/scoring"
	"github.com/aristath/argus/internal/modules/settings"
)

// snapshotSourceQuality is the fixed source quality for snapshot events.
// Snapshots aggregate multiple feeds, so no single source table entry fits.
const snapshotSourceQuality = 0.8

// snapshotCountryBoost scales the country match scores for snapshots,
// which are country-keyed and therefore a stronger match than a mention.
const snapshotCountryBoost = 1.4

// minThemeRelevanceForMatch excludes marginal themes from keyword matching.
const minThemeRelevanceForMatch = 0.2

// regionKeywords maps profile regions to tokens recognized in corpus
// country names.
var regionKeywords = map[string][]string{
	"Emerging Markets": {"emerging", "developing"},
	"Europe":           {"europe", "european"},
	"Asia":             {"asia", "asian"},
	"Americas":         {"america", "american"},
	"Middle East":      {"middle east", "mideast"},
}

// scoreGlobalItems converts corpus items into scored signals, appending to
// kept. Retention uses the low threshold until five signals are kept, then
// the high threshold.
func (r *Retriever) scoreGlobalItems(
	ctx context.Context,
	profile domain.AssetProfile,
	themes []domain.ThemeRelevance,
	keywords map[string][]string,
	lookbackDays int,
	st *settings.ScoringSettings,
	kept []domain.IntelligenceSignal,
) []domain.IntelligenceSignal {
	items := r.corpus.QueryGlobalItems(ctx, profile, lookbackDays)

	for _, item := range items {
		signal := scoreGlobalItem(item, profile, themes, keywords, lookbackDays, st)
		if signal.RelevanceScore >= retentionThreshold(st, len(kept)) {
			kept = append(kept, signal)
		}
	}

	r.log.Debug().Int("items", len(items)).Int("kept", len(kept)).Msg("Scored corpus items")
	return kept
}

// scoreSnapshots converts country snapshot events into scored signals,
// appending to kept under the same retention rule.
func (r *Retriever) scoreSnapshots(
	ctx context.Context,
	profile domain.AssetProfile,
	themes []domain.ThemeRelevance,
	keywords map[string][]string,
	lookbackDays int,
	st *settings.ScoringSettings,
	kept []domain.IntelligenceSignal,
) []domain.IntelligenceSignal {
	snapshots := r.corpus.QuerySnapshots(ctx, profile, lookbackDays)

	for _, snapshot := range snapshots {
		for _, signal := range scoreSnapshot(snapshot, profile, themes, keywords, lookbackDays, st) {
			if signal.RelevanceScore >= retentionThreshold(st, len(kept)) {
				kept = append(kept, signal)
			}
		}
	}

	r.log.Debug().Int("snapshots", len(snapshots)).Int("kept", len(kept)).Msg("Scored country snapshots")
	return kept
}

// retentionThreshold keeps the bar low until a minimum signal set exists,
// then raises it to cut noise.
func retentionThreshold(st *settings.ScoringSettings, keptCount int) float64 {
	if keptCount < 5 {
		return st.RelevanceThresholdLow
	}
	return st.RelevanceThresholdHigh
}

func scoreGlobalItem(
	item corpus.GlobalItem,
	profile domain.AssetProfile,
	themes []domain.ThemeRelevance,
	keywords map[string][]string,
	lookbackDays int,
	st *settings.ScoringSettings,
) domain.IntelligenceSignal {
	baseRelevance := itemBaseRelevance(item, profile, st)
	themeScore, matchedTheme := matchThemes(item.Title+" "+item.Summary+" "+item.Topic, themes, keywords)
	recency := scoring.Recency(st, item.PublishedAt, lookbackDays)
	quality := scoring.SourceQuality(st, item.Source.Name)
	final := scoring.Final(st, baseRelevance, themeScore, recency, quality, 0)

	return domain.IntelligenceSignal{
		RawSignal: domain.RawSignal{
			Source:      domain.SourceCorpus,
			SourceName:  item.Source.Name,
			Title:       item.Title,
			Summary:     item.Summary,
			Topic:       item.Topic,
			URL:         item.URL,
			Country:     itemCountry(item, profile),
			PublishedAt: item.PublishedAt,
		},
		BaseRelevance:        baseRelevance,
		ThemeMatchScore:      themeScore,
		RecencyScore:         recency,
		SourceQuality:        quality,
		ThemeMatch:           matchedTheme,
		RelevanceScore:       final,
		ValidationConfidence: 1.0,
		ConfidenceMultiplier: 1.0,
	}
}

func scoreSnapshot(
	snapshot corpus.Snapshot,
	profile domain.AssetProfile,
	themes []domain.ThemeRelevance,
	keywords map[string][]string,
	lookbackDays int,
	st *settings.ScoringSettings,
) []domain.IntelligenceSignal {
	events := topEvents(snapshot, themes, keywords, st.MaxEventsPerSnapshot)
	if len(events) == 0 {
		return nil
	}

	baseRelevance := snapshotBaseRelevance(snapshot, profile, st)
	recency := scoring.Recency(st, snapshot.UpdatedAt, lookbackDays)
	activity := scoring.Activity(st, snapshot.ActivityLevel)

	signals := make([]domain.IntelligenceSignal, 0, len(events))
	for _, event := range events {
		themeScore, matchedTheme := matchThemes(eventText(event), themes, keywords)
		final := scoring.Final(st, baseRelevance, themeScore, recency, snapshotSourceQuality, activity)

		signals = append(signals, domain.IntelligenceSignal{
			RawSignal: domain.RawSignal{
				Source:        domain.SourceCorpus,
				Title:         event.Title,
				Summary:       event.Summary,
				Topic:         event.Topic,
				Country:       snapshot.Name,
				PublishedAt:   snapshot.UpdatedAt,
				ActivityLevel: snapshot.ActivityLevel,
			},
			BaseRelevance:        baseRelevance,
			ThemeMatchScore:      themeScore,
			RecencyScore:         recency,
			SourceQuality:        snapshotSourceQuality,
			ActivityLevelScore:   activity,
			ThemeMatch:           matchedTheme,
			RelevanceScore:       final,
			ValidationConfidence: 1.0,
			ConfidenceMultiplier: 1.0,
		})
	}

	return signals
}

// itemBaseRelevance scores how directly a corpus item concerns the asset:
// country mention (exact or partial), region token, sector token.
func itemBaseRelevance(item corpus.GlobalItem, profile domain.AssetProfile, st *settings.ScoringSettings) float64 {
	score := 0.0

	if profile.Country != "" {
		if containsExact(item.Countries, profile.Country) {
			score += st.ScoreCountryExactMatch
		} else if containsPartial(item.Countries, profile.Country) {
			score += st.ScoreCountryPartialMatch
		}
	}

	if profile.Region != "" {
		regionLower := strings.ToLower(profile.Region)
		tokens := regionKeywords[profile.Region]
		for _, country := range item.Countries {
			countryLower := strings.ToLower(country)
			if strings.Contains(countryLower, regionLower) || containsAny(countryLower, tokens) {
				score += st.ScoreRegionMatch
				break
			}
		}
	}

	if profile.Sector != "" {
		text := strings.ToLower(item.Topic + " " + item.Title)
		sectorLower := strings.ToLower(profile.Sector)
		if strings.Contains(text, sectorLower) || strings.Contains(sectorLower, text) {
			score += st.ScoreSectorMatch
		}
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}

// snapshotBaseRelevance scores a snapshot against the profile. Country
// matches carry the snapshot boost since the snapshot is country-keyed.
func snapshotBaseRelevance(snapshot corpus.Snapshot, profile domain.AssetProfile, st *settings.ScoringSettings) float64 {
	score := 0.0

	nameLower := strings.ToLower(snapshot.Name)
	if profile.Country != "" {
		countryLower := strings.ToLower(profile.Country)
		if nameLower == countryLower {
			score += st.ScoreCountryExactMatch * snapshotCountryBoost
		} else if strings.Contains(nameLower, countryLower) {
			score += st.ScoreCountryPartialMatch * snapshotCountryBoost
		}
	}

	if profile.Region != "" && containsAny(nameLower, regionKeywords[profile.Region]) {
		score += st.ScoreRegionMatch
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}

// matchThemes finds the best matching theme for the text. The score is the
// matched keyword fraction weighted by the theme's own relevance.
func matchThemes(text string, themes []domain.ThemeRelevance, keywords map[string][]string) (float64, string) {
	textLower := strings.ToLower(text)
	bestScore := 0.0
	bestTheme := ""

	for _, theme := range themes {
		if theme.RelevanceScore < minThemeRelevanceForMatch {
			continue
		}

		kw := keywords[theme.Theme]
		if len(kw) == 0 {
			continue
		}

		matches := 0
		for _, word := range kw {
			if strings.Contains(textLower, strings.ToLower(word)) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}

		score := float64(matches) / float64(len(kw)) * theme.RelevanceScore
		if score > 1.0 {
			score = 1.0
		}
		if score > bestScore {
			bestScore = score
			bestTheme = theme.Theme
		}
	}

	return bestScore, bestTheme
}

// topEvents returns the snapshot events most relevant to the themes,
// at most maxEvents of them. When nothing matches, the newest event
// still represents the country situation.
func topEvents(snapshot corpus.Snapshot, themes []domain.ThemeRelevance, keywords map[string][]string, maxEvents int) []corpus.EventCluster {
	if len(snapshot.Events) == 0 {
		return nil
	}

	type scored struct {
		score float64
		event corpus.EventCluster
	}
	ranked := make([]scored, 0, len(snapshot.Events))
	for _, event := range snapshot.Events {
		score, _ := matchThemes(eventText(event), themes, keywords)
		ranked = append(ranked, scored{score: score, event: event})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > maxEvents {
		ranked = ranked[:maxEvents]
	}

	events := make([]corpus.EventCluster, 0, len(ranked))
	for _, s := range ranked {
		events = append(events, s.event)
	}

	if len(events) == 0 {
		events = []corpus.EventCluster{snapshot.Events[0]}
	}

	return events
}

func eventText(event corpus.EventCluster) string {
	return event.Title + " " + event.Summary + " " + event.Why + " " + event.Topic
}

// itemCountry picks the country attributed to the signal: the profile
// country when mentioned, else the item's first country.
func itemCountry(item corpus.GlobalItem, profile domain.AssetProfile) string {
	if profile.Country != "" && containsExact(item.Countries, profile.Country) {
		return profile.Country
	}
	if len(item.Countries) > 0 {
		return item.Countries[0]
	}
	return ""
}

func containsExact(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsPartial(values []string, target string) bool {
	targetLower := strings.ToLower(target)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), targetLower) {
			return true
		}
	}
	return false
}

func containsAny(text string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}
