package themes

import "github.com/aristath/argus/internal/domain"

const defaultMinRelevanceThreshold = 0.1

// DefaultWeights returns the documented default scoring weights.
func DefaultWeights() domain.ThemeWeights {
	return domain.ThemeWeights{
		Country:       0.4,
		Region:        0.2,
		Sector:        0.3,
		ExposureBonus: 0.3,
		EmergingBonus: 0.1,
	}
}

// DefaultThemes returns the built-in theme catalog, used when the
// persisted catalog is empty or unreachable and as the seed set.
func DefaultThemes() []domain.ThemeDefinition {
	return []domain.ThemeDefinition{
		{
			Name:                  "sanctions",
			DisplayName:           "Sanctions",
			Keywords:              []string{"sanction", "embargo", "trade ban", "restriction"},
			RelevantCountries:     []string{"Russia", "Iran", "North Korea", "Turkey", "China"},
			RelevantSectors:       []string{"Financials", "Energy", "Technology", "Defense"},
			Weights:               DefaultWeights(),
			MinRelevanceThreshold: defaultMinRelevanceThreshold,
			Active:                true,
		},
		{
			Name:                  "trade_disruption",
			DisplayName:           "Trade Disruption",
			Keywords:              []string{"trade war", "tariff", "export ban", "import restriction", "supply chain"},
			RelevantCountries:     []string{"China", "United States", "Turkey", "Russia"},
			RelevantSectors:       []string{"Technology", "Manufacturing", "Energy", "Agriculture"},
			Weights:               DefaultWeights(),
			MinRelevanceThreshold: defaultMinRelevanceThreshold,
			Active:                true,
		},
		{
			Name:                  "political_instability",
			DisplayName:           "Political Instability",
			Keywords:              []string{"coup", "election", "protest", "unrest", "regime change"},
			RelevantCountries:     []string{"Turkey", "Thailand", "Egypt", "Venezuela", "Pakistan"},
			RelevantSectors:       []string{"Financials", "Infrastructure", "Government"},
			Weights:               DefaultWeights(),
			MinRelevanceThreshold: defaultMinRelevanceThreshold,
			Active:                true,
		},
		{
			Name:                  "currency_volatility",
			DisplayName:           "Currency Volatility",
			Keywords:              []string{"currency", "inflation", "devaluation", "exchange rate", "monetary policy"},
			RelevantCountries:     []string{"Turkey", "Argentina", "Brazil", "South Africa", "India"},
			RelevantSectors:       []string{"Financials", "Government"},
			Weights:               DefaultWeights(),
			MinRelevanceThreshold: defaultMinRelevanceThreshold,
			Active:                true,
		},
		{
			Name:                  "energy_security",
			DisplayName:           "Energy Security",
			Keywords:              []string{"energy", "oil", "gas", "pipeline", "supply", "sanction"},
			RelevantCountries:     []string{"Russia", "Saudi Arabia", "Iran", "Turkey", "Qatar"},
			RelevantSectors:       []string{"Energy", "Utilities", "Infrastructure"},
			Weights:               DefaultWeights(),
			MinRelevanceThreshold: defaultMinRelevanceThreshold,
			Active:                true,
		},
		{
			Name:                  "regional_conflict",
			DisplayName:           "Regional Conflict",
			Keywords:              []string{"conflict", "war", "military", "border", "dispute", "tension"},
			RelevantRegions:       []string{"Middle East", "Eastern Europe", "Asia Pacific", "Emerging Markets"},
			RelevantSectors:       []string{"Defense", "Energy", "Infrastructure"},
			Weights:               DefaultWeights(),
			MinRelevanceThreshold: defaultMinRelevanceThreshold,
			Active:                true,
		},
		{
			Name:                  "regulatory_changes",
			DisplayName:           "Regulatory Changes",
			Keywords:              []string{"regulation", "policy", "law", "compliance", "government"},
			RelevantCountries:     []string{"China", "United States", "European Union"},
			RelevantSectors:       []string{"Financials", "Technology", "Energy", "Healthcare"},
			Weights:               DefaultWeights(),
			MinRelevanceThreshold: defaultMinRelevanceThreshold,
			Active:                true,
		},
		{
			Name:                  "supply_chain_risk",
			DisplayName:           "Supply Chain Risk",
			Keywords:              []string{"supply chain", "manufacturing", "logistics", "trade"},
			RelevantCountries:     []string{"China", "Vietnam", "Thailand", "Mexico"},
			RelevantSectors:       []string{"Technology", "Manufacturing", "Consumer"},
			Weights:               DefaultWeights(),
			MinRelevanceThreshold: defaultMinRelevanceThreshold,
			Active:                true,
		},
	}
}
