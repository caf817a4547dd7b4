package themes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/argus/internal/domain"
	"github.com/rs/zerolog"
)

// Catalog supplies active theme definitions to the mapper.
type Catalog interface {
	ActiveThemes() []domain.ThemeDefinition
}

// Mapper scores the theme catalog against an asset profile. It never
// fails: an unreachable catalog resolves to the built-in defaults inside
// ActiveThemes, and a profile that matches nothing yields an empty list.
type Mapper struct {
	catalog Catalog
	log     zerolog.Logger
}

// NewMapper creates a new theme mapper.
func NewMapper(catalog Catalog, log zerolog.Logger) *Mapper {
	return &Mapper{
		catalog: catalog,
		log:     log.With().Str("service", "theme_mapper").Logger(),
	}
}

// Identify returns the themes relevant to the profile, sorted by score
// descending. A theme is emitted only when its score clears its own
// minimum relevance threshold.
func (m *Mapper) Identify(profile domain.AssetProfile) []domain.ThemeRelevance {
	var relevant []domain.ThemeRelevance

	for _, def := range m.catalog.ActiveThemes() {
		score, parts := scoreTheme(profile, def)
		if score < def.MinRelevanceThreshold {
			continue
		}

		relevant = append(relevant, domain.ThemeRelevance{
			Theme:           def.Name,
			DisplayName:     displayName(def),
			RelevanceScore:  score,
			Reasoning:       readableReasoning(parts, profile, def),
			KeywordsMatched: nil,
		})
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].RelevanceScore > relevant[j].RelevanceScore
	})

	m.log.Debug().
		Str("holding", profile.Name).
		Int("themes", len(relevant)).
		Msg("Identified relevant themes")

	return relevant
}

// TopThemeNames returns the names of the n highest scoring themes.
func (m *Mapper) TopThemeNames(profile domain.AssetProfile, n int) []string {
	themes := m.Identify(profile)
	if len(themes) > n {
		themes = themes[:n]
	}
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Theme
	}
	return names
}

// scoreTheme computes the relevance score for one theme and collects the
// matched dimensions used to build the reasoning text.
func scoreTheme(p domain.AssetProfile, def domain.ThemeDefinition) (float64, []string) {
	score := 0.0
	var parts []string

	if p.Country != "" && containsString(def.RelevantCountries, p.Country) {
		score += def.Weights.Country
		parts = append(parts, fmt.Sprintf("Country %s is directly relevant", p.Country))
	}

	if containsString(def.RelevantRegions, p.Region) {
		score += def.Weights.Region
		parts = append(parts, fmt.Sprintf("Region %s is relevant", p.Region))
	}

	if containsString(def.RelevantSectors, p.Sector) {
		score += def.Weights.Sector
		parts = append(parts, fmt.Sprintf("Sector %s is exposed", p.Sector))
	}

	// Exposure bonuses. Financial and technology exposure carry the
	// scaled-down bonus.
	switch def.Name {
	case "energy_security":
		if p.EnergyExposed {
			score += def.Weights.ExposureBonus
			parts = append(parts, "Energy sector exposure")
		}
	case "political_instability":
		if p.GovernmentExposed {
			score += def.Weights.ExposureBonus
			parts = append(parts, "Government exposure")
		}
	case "currency_volatility":
		if p.FinancialExposed {
			score += def.Weights.ExposureBonus * 0.667
			parts = append(parts, "Financial sector exposure")
		}
	case "supply_chain_risk":
		if p.TechnologyExposed {
			score += def.Weights.ExposureBonus * 0.667
			parts = append(parts, "Technology sector exposure")
		}
	}

	if p.EmergingMarket {
		switch def.Name {
		case "currency_volatility", "political_instability", "trade_disruption":
			score += def.Weights.EmergingBonus
			parts = append(parts, "Emerging market context")
		}
	}

	if score > 1.0 {
		score = 1.0
	}

	return score, parts
}

// readableReasoning composes the matched dimensions into a short
// human-readable explanation.
func readableReasoning(parts []string, p domain.AssetProfile, def domain.ThemeDefinition) string {
	if len(parts) == 0 {
		return "General relevance to this asset"
	}

	display := displayName(def)

	var sentences []string
	if p.Country != "" {
		sentences = append(sentences, fmt.Sprintf("This asset is exposed to %s", p.Country))
	} else if p.Region != "" {
		sentences = append(sentences, fmt.Sprintf("This asset is located in %s", p.Region))
	}

	if p.Sector != "" && p.Sector != "Diversified" && p.Sector != "Cash" {
		sentences = append(sentences, fmt.Sprintf("operating in the %s sector", p.Sector))
	}

	joined := strings.Join(parts, " ")
	switch {
	case strings.Contains(joined, "Country"):
		sentences = append(sentences, fmt.Sprintf("which makes it particularly vulnerable to %s", display))
	case strings.Contains(joined, "Sector"):
		sentences = append(sentences, fmt.Sprintf("which is directly impacted by %s", display))
	case strings.Contains(joined, "Emerging market"):
		sentences = append(sentences, fmt.Sprintf("with emerging market exposure increasing %s risk", display))
	default:
		sentences = append(sentences, fmt.Sprintf("relevant to %s considerations", display))
	}

	switch len(sentences) {
	case 1:
		return sentences[0] + "."
	case 2:
		return strings.Join(sentences, " ") + "."
	default:
		return sentences[0] + ". " + strings.Join(sentences[1:], " ") + "."
	}
}

// displayName falls back to a title-cased rendering of the theme name
// when the definition carries no display name.
func displayName(def domain.ThemeDefinition) string {
	if def.DisplayName != "" {
		return def.DisplayName
	}

	words := strings.Split(def.Name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
