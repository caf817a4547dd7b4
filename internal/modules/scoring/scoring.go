// Package scoring provides the pure scoring primitives used to rank
// intelligence signals: recency decay, source quality lookup, activity
// level lookup, and the weighted final combination. All parameters come
// from the active ScoringSettings record.
package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/argus/internal/modules/settings"
)

// dateLayouts lists the accepted publication date formats, tried in order.
// Feed and search back-ends disagree on date encoding, so the list stays
// explicit rather than relying on a single canonical layout.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05.999999Z",
}

// ParseDate parses a publication date against each accepted layout in
// order. Returns false when no layout matches.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// Recency scores a publication date with exponential decay:
// exp(-daysAgo / decayConstant), so today scores 1.0 and a signal one
// decay constant old scores ~0.368. Unparsable dates and dates outside
// the lookback window score 0.
func Recency(st *settings.ScoringSettings, publishedAt string, lookbackDays int) float64 {
	pub, ok := ParseDate(publishedAt)
	if !ok {
		return 0
	}

	daysAgo := int(time.Since(pub).Hours() / 24)
	if daysAgo > lookbackDays {
		return 0
	}

	decay := st.RecencyDecayConstant
	if decay <= 0 {
		decay = 30.0
	}

	return clamp01(math.Exp(-float64(daysAgo) / decay))
}

// SourceQuality looks up a source name in the settings quality table.
// Tries an exact match, then case-insensitive, then substring containment
// in either direction, then the table's "default" entry.
func SourceQuality(st *settings.ScoringSettings, name string) float64 {
	table := st.SourceQualityScores
	if len(table) == 0 {
		table = settings.DefaultSourceQualityScores()
	}

	if score, ok := table[name]; ok {
		return score
	}

	lower := strings.ToLower(strings.TrimSpace(name))
	if lower != "" {
		keys := sortedKeys(table)
		for _, known := range keys {
			if strings.ToLower(known) == lower {
				return table[known]
			}
		}
		for _, known := range keys {
			if known == "default" {
				continue
			}
			knownLower := strings.ToLower(known)
			if strings.Contains(lower, knownLower) || strings.Contains(knownLower, lower) {
				return table[known]
			}
		}
	}

	if score, ok := table["default"]; ok {
		return score
	}
	return 0.7
}

// Activity looks up a country activity level score with "default" fallback.
func Activity(st *settings.ScoringSettings, level string) float64 {
	table := st.ActivityLevelScores
	if len(table) == 0 {
		table = settings.DefaultActivityLevelScores()
	}

	if score, ok := table[level]; ok {
		return score
	}
	if score, ok := table["default"]; ok {
		return score
	}
	return 0.3
}

// Final combines the component scores into the weighted final relevance
// score. Signals without an activity component (anything that is not a
// country snapshot) have the activity weight redistributed proportionally
// across the other four weights, so snapshot and non-snapshot signals
// stay on the same scale.
func Final(st *settings.ScoringSettings, baseRelevance, themeMatch, recency, sourceQuality, activity float64) float64 {
	wBase := st.WeightBaseRelevance
	wTheme := st.WeightThemeMatch
	wRecency := st.WeightRecency
	wQuality := st.WeightSourceQuality
	wActivity := st.WeightActivityLevel

	if activity == 0 {
		otherSum := wBase + wTheme + wRecency + wQuality
		if otherSum > 0 {
			scale := 1.0 / otherSum
			wBase *= scale
			wTheme *= scale
			wRecency *= scale
			wQuality *= scale
		}
	}

	score := baseRelevance*wBase +
		themeMatch*wTheme +
		recency*wRecency +
		sourceQuality*wQuality +
		activity*wActivity

	return clamp01(score)
}

func sortedKeys(table map[string]float64) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
