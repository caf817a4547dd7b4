// Package characterization extracts the structured risk profile of a
// holding. It is the first pipeline stage: pure classification against
// fixed lookup tables, no I/O.
package characterization

import (
	"fmt"
	"strings"

	"github.com/aristath/argus/internal/domain"
	"github.com/rs/zerolog"
)

// emergingMarkets and developedMarkets partition the countries the profiler
// recognizes. Countries in neither set are classified by the global-fund and
// country-specific rules alone.
var emergingMarkets = map[string]bool{
	"Turkey": true, "China": true, "India": true, "Brazil": true,
	"Russia": true, "South Africa": true, "Mexico": true, "Indonesia": true,
	"Thailand": true, "Philippines": true, "Vietnam": true, "Argentina": true,
	"Chile": true, "Colombia": true, "Egypt": true, "Nigeria": true,
	"Pakistan": true, "Poland": true, "Czech Republic": true, "Hungary": true,
	"Romania": true, "Bulgaria": true,
}

var developedMarkets = map[string]bool{
	"United States": true, "United Kingdom": true, "Germany": true,
	"France": true, "Japan": true, "Canada": true, "Australia": true,
	"Switzerland": true, "Netherlands": true, "Sweden": true, "Norway": true,
	"Denmark": true, "Finland": true, "Belgium": true, "Austria": true,
	"Italy": true, "Spain": true, "Singapore": true, "Hong Kong": true,
	"South Korea": true, "New Zealand": true,
}

// Sector buckets for exposure flags. Utilities intentionally appears in both
// the energy and infrastructure buckets.
var (
	energySectors         = map[string]bool{"Energy": true, "Oil": true, "Gas": true, "Utilities": true}
	financialSectors      = map[string]bool{"Financials": true, "Banking": true, "Insurance": true}
	techSectors           = map[string]bool{"Technology": true, "Software": true, "Hardware": true, "Semiconductors": true}
	infrastructureSectors = map[string]bool{"Infrastructure": true, "Utilities": true, "Transportation": true, "Real Estate": true}
	governmentSectors     = map[string]bool{"Government": true, "Sovereign": true}
)

// genericSectors are labels that do not pin the holding to a sector.
var genericSectors = map[string]bool{"Diversified": true, "Cash": true, "General": true}

// Characterizer builds AssetProfiles from holdings.
type Characterizer struct {
	log zerolog.Logger
}

// New creates a new characterizer.
func New(log zerolog.Logger) *Characterizer {
	return &Characterizer{
		log: log.With().Str("service", "characterization").Logger(),
	}
}

// Characterize validates the holding and derives its profile. The only
// error it can return is a domain.InputError from Holding.Validate.
func (c *Characterizer) Characterize(h domain.Holding) (domain.AssetProfile, error) {
	if err := h.Validate(); err != nil {
		return domain.AssetProfile{}, err
	}

	country := h.Country
	isGlobal := country == "" || country == "Global" || h.Region == "Global"

	// Government exposure: a government/sovereign sector, a fixed-income
	// treasury instrument, or an explicitly named government vehicle.
	isGovernment := governmentSectors[h.Sector] ||
		(h.AssetClass == "Fixed Income" && strings.Contains(h.Name, "Treasury")) ||
		strings.Contains(h.Name, "Government")

	assetType := h.AssetType
	if assetType == "" {
		assetType = h.AssetClass
	}

	profile := domain.AssetProfile{
		HoldingID:     h.ID,
		Name:          h.Name,
		Ticker:        h.Ticker,
		ISIN:          h.ISIN,
		Country:       h.Country,
		Region:        h.Region,
		SubRegion:     h.SubRegion,
		Sector:        h.Sector,
		AssetClass:    h.AssetClass,
		AssetType:     assetType,
		Value:         h.Value,
		AllocationPct: h.AllocationPct,
		Currency:      h.Currency,

		EmergingMarket:  emergingMarkets[country],
		DevelopedMarket: developedMarkets[country],
		GlobalFund:      isGlobal,
		SectorSpecific:  !genericSectors[h.Sector],
		CountrySpecific: country != "" && country != "Global",

		GovernmentExposed:     isGovernment,
		EnergyExposed:         energySectors[h.Sector],
		FinancialExposed:      financialSectors[h.Sector],
		TechnologyExposed:     techSectors[h.Sector],
		InfrastructureExposed: infrastructureSectors[h.Sector],
	}
	profile.Summary = Summary(profile)

	c.log.Debug().
		Str("holding_id", h.ID).
		Str("country", country).
		Bool("emerging", profile.EmergingMarket).
		Bool("global", profile.GlobalFund).
		Msg("Holding characterized")

	return profile, nil
}

// Summary renders the profile as a single human-readable line. It is used
// in LLM prompts, logs, and API responses.
func Summary(p domain.AssetProfile) string {
	var parts []string

	if p.Country != "" {
		parts = append(parts, fmt.Sprintf("Country: %s", p.Country))
	}
	parts = append(parts, fmt.Sprintf("Region: %s", p.Region))
	if p.SubRegion != "" {
		parts = append(parts, fmt.Sprintf("Sub-region: %s", p.SubRegion))
	}

	parts = append(parts,
		fmt.Sprintf("Type: %s", p.AssetType),
		fmt.Sprintf("Class: %s", p.AssetClass),
		fmt.Sprintf("Sector: %s", p.Sector),
	)

	switch {
	case p.EmergingMarket:
		parts = append(parts, "Market: Emerging")
	case p.DevelopedMarket:
		parts = append(parts, "Market: Developed")
	case p.GlobalFund:
		parts = append(parts, "Market: Global")
	}

	var exposures []string
	if p.GovernmentExposed {
		exposures = append(exposures, "Government")
	}
	if p.EnergyExposed {
		exposures = append(exposures, "Energy")
	}
	if p.FinancialExposed {
		exposures = append(exposures, "Financial")
	}
	if p.TechnologyExposed {
		exposures = append(exposures, "Technology")
	}
	if p.InfrastructureExposed {
		exposures = append(exposures, "Infrastructure")
	}
	if len(exposures) > 0 {
		parts = append(parts, fmt.Sprintf("Exposures: %s", strings.Join(exposures, ", ")))
	}

	return strings.Join(parts, " | ")
}
