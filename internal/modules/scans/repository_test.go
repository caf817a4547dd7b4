package scans

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/modules/georisk"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE assets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			ticker TEXT,
			isin TEXT,
			country TEXT,
			region TEXT NOT NULL,
			sub_region TEXT,
			asset_type TEXT NOT NULL,
			asset_class TEXT NOT NULL,
			sector TEXT NOT NULL,
			is_emerging_market INTEGER NOT NULL DEFAULT 0,
			is_developed_market INTEGER NOT NULL DEFAULT 0,
			is_global_fund INTEGER NOT NULL DEFAULT 0,
			exposures TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE gp_scans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			asset_id INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
			risk_tolerance TEXT NOT NULL,
			days_lookback INTEGER NOT NULL DEFAULT 90,
			scan_date TEXT NOT NULL,
			pipeline_result BLOB NOT NULL,
			negative_probability REAL NOT NULL,
			neutral_probability REAL NOT NULL,
			positive_probability REAL NOT NULL,
			overall_direction TEXT NOT NULL,
			overall_magnitude REAL NOT NULL,
			confidence REAL NOT NULL,
			signal_count INTEGER NOT NULL DEFAULT 0,
			top_themes TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func testRepo(t *testing.T) *Repository {
	return NewRepository(setupTestDB(t), zerolog.Nop())
}

func sampleResult(name, ticker string) *georisk.DetailedResult {
	return &georisk.DetailedResult{
		ScanID:    "scan_1756100000_ab12cd34",
		CreatedAt: "2026-08-25T10:00:00Z",
		Profile: domain.AssetProfile{
			HoldingID:       "h-1",
			Name:            name,
			Ticker:          ticker,
			Country:         "Turkey",
			Region:          "Emerging Markets",
			Sector:          "Industrials",
			AssetType:       "Equity",
			AssetClass:      "Equities",
			EmergingMarket:  true,
			CountrySpecific: true,
			EnergyExposed:   true,
		},
		CharacterizationSummary: "Equity exposure in Turkey (Emerging Markets)",
		Exposures:               []string{"energy"},
		Themes: []domain.ThemeRelevance{
			{Theme: "sanctions", DisplayName: "Sanctions", RelevanceScore: 0.9},
		},
		TopThemes: []string{"sanctions", "energy_security"},
		Signals: []domain.IntelligenceSignal{
			{
				RawSignal: domain.RawSignal{
					Source:     domain.SourceCorpus,
					SourceName: "Reuters",
					Title:      "New sanctions announced",
					Country:    "Turkey",
				},
				ThemeMatch:     "sanctions",
				RelevanceScore: 0.8,
			},
		},
		SignalCount: 1,
		Impact: domain.AggregateImpact{
			OverallDirection:  domain.DirectionNegative,
			OverallMagnitude:  0.6,
			OverallConfidence: 0.55,
			ThemeImpacts: []domain.ThemeImpact{
				{Theme: "sanctions", Direction: domain.DirectionNegative, Magnitude: 0.7, Confidence: 0.6, SignalCount: 1},
			},
			TotalSignals: 1,
		},
		Probabilities:      domain.ActionProbabilities{Negative: 0.6, Neutral: 0.3, Positive: 0.1},
		ProbabilitySummary: "Strong negative outlook (60% probability)",
		RiskTolerance:      domain.RiskToleranceMedium,
		LookbackDays:       90,
	}
}

func TestSaveScanCreatesAsset(t *testing.T) {
	repo := testRepo(t)

	record, err := repo.SaveScan(sampleResult("Turkish Airlines", "THYAO"), "Medium", 90, 0)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, int64(1), record.ID)
	assert.Equal(t, int64(1), record.AssetID)
	assert.Equal(t, "Medium", record.RiskTolerance)
	assert.Equal(t, 90, record.DaysLookback)
	assert.InDelta(t, 0.6, record.NegativeProbability, 1e-9)
	assert.InDelta(t, 0.3, record.NeutralProbability, 1e-9)
	assert.InDelta(t, 0.1, record.PositiveProbability, 1e-9)
	assert.Equal(t, "negative", record.OverallDirection)
	assert.InDelta(t, 0.6, record.OverallMagnitude, 1e-9)
	assert.InDelta(t, 0.55, record.Confidence, 1e-9)
	assert.Equal(t, 1, record.SignalCount)
	assert.Equal(t, []string{"sanctions", "energy_security"}, record.TopThemes)
	assert.NotEmpty(t, record.ScanDate)

	asset, err := repo.GetAsset(record.AssetID)
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, "Turkish Airlines", asset.Name)
	assert.Equal(t, "THYAO", asset.Ticker)
	assert.Equal(t, "Turkey", asset.Country)
	assert.Equal(t, "Emerging Markets", asset.Region)
	assert.Equal(t, "Industrials", asset.Sector)
	assert.True(t, asset.EmergingMarket)
	assert.False(t, asset.GlobalFund)
	assert.Equal(t, []string{"energy"}, asset.Exposures)
}

func TestSaveScanReusesAssetByTicker(t *testing.T) {
	repo := testRepo(t)

	first, err := repo.SaveScan(sampleResult("Turkish Airlines", "THYAO"), "Medium", 90, 0)
	require.NoError(t, err)

	// Same ticker under a different display name still maps to one asset.
	second, err := repo.SaveScan(sampleResult("Turk Hava Yollari", "THYAO"), "Low", 30, 0)
	require.NoError(t, err)

	assert.Equal(t, first.AssetID, second.AssetID)

	assets, err := repo.ListAssets(0)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestSaveScanResolvesByISIN(t *testing.T) {
	repo := testRepo(t)

	withISIN := sampleResult("Turkish Airlines", "")
	withISIN.Profile.ISIN = "TRATHYAO91M5"
	_, err := repo.SaveScan(withISIN, "Medium", 90, 0)
	require.NoError(t, err)

	again := sampleResult("Renamed Fund", "")
	again.Profile.ISIN = "TRATHYAO91M5"
	_, err = repo.SaveScan(again, "Medium", 90, 0)
	require.NoError(t, err)

	assets, err := repo.ListAssets(0)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestSaveScanResolvesByName(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.SaveScan(sampleResult("Turkish Airlines", ""), "Medium", 90, 0)
	require.NoError(t, err)
	_, err = repo.SaveScan(sampleResult("Turkish Airlines", ""), "Medium", 90, 0)
	require.NoError(t, err)

	assets, err := repo.ListAssets(0)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestSaveScanWithExplicitAssetID(t *testing.T) {
	repo := testRepo(t)

	first, err := repo.SaveScan(sampleResult("Turkish Airlines", "THYAO"), "Medium", 90, 0)
	require.NoError(t, err)

	// Reuse the existing asset even though the profile names another one.
	second, err := repo.SaveScan(sampleResult("Different Asset", "OTHER"), "Medium", 90, first.AssetID)
	require.NoError(t, err)
	assert.Equal(t, first.AssetID, second.AssetID)

	assets, err := repo.ListAssets(0)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestSaveScanUnknownAssetID(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.SaveScan(sampleResult("Turkish Airlines", "THYAO"), "Medium", 90, 999)
	require.ErrorIs(t, err, ErrAssetNotFound)
}

func TestSaveScanTruncatesTopThemes(t *testing.T) {
	repo := testRepo(t)

	result := sampleResult("Turkish Airlines", "THYAO")
	result.TopThemes = []string{"a", "b", "c", "d", "e", "f", "g"}

	record, err := repo.SaveScan(result, "Medium", 90, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, record.TopThemes)
}

func TestGetScanFullRoundTrip(t *testing.T) {
	repo := testRepo(t)

	result := sampleResult("Turkish Airlines", "THYAO")
	record, err := repo.SaveScan(result, "Medium", 90, 0)
	require.NoError(t, err)

	full, err := repo.GetScanFull(record.ID)
	require.NoError(t, err)
	require.NotNil(t, full)

	assert.Equal(t, result.ScanID, full.ScanID)
	assert.Equal(t, result.Profile, full.Profile)
	assert.Equal(t, result.Themes, full.Themes)
	assert.Equal(t, result.Signals, full.Signals)
	assert.Equal(t, result.Impact, full.Impact)
	assert.Equal(t, result.Probabilities, full.Probabilities)
	assert.Equal(t, result.ProbabilitySummary, full.ProbabilitySummary)
	assert.Equal(t, result.RiskTolerance, full.RiskTolerance)
}

func TestGetScanMissing(t *testing.T) {
	repo := testRepo(t)

	record, err := repo.GetScan(42)
	require.NoError(t, err)
	assert.Nil(t, record)

	full, err := repo.GetScanFull(42)
	require.NoError(t, err)
	assert.Nil(t, full)
}

func TestListScansFilterAndOrder(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.SaveScan(sampleResult("Turkish Airlines", "THYAO"), "Medium", 90, 0)
	require.NoError(t, err)
	_, err = repo.SaveScan(sampleResult("Turkish Airlines", "THYAO"), "Low", 30, 0)
	require.NoError(t, err)
	_, err = repo.SaveScan(sampleResult("Polish Utilities", "PGE"), "Medium", 90, 0)
	require.NoError(t, err)

	all, err := repo.ListScans(0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].ID, "newest scan first")

	filtered, err := repo.ListScans(all[0].AssetID, 0)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Medium", filtered[0].RiskTolerance)

	limited, err := repo.ListScans(0, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListAssetsOrderedByName(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.SaveScan(sampleResult("Zeta Fund", "ZETA"), "Medium", 90, 0)
	require.NoError(t, err)
	_, err = repo.SaveScan(sampleResult("Alpha Fund", "ALPHA"), "Medium", 90, 0)
	require.NoError(t, err)

	assets, err := repo.ListAssets(0)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "Alpha Fund", assets[0].Name)
	assert.Equal(t, "Zeta Fund", assets[1].Name)
}

func TestGetAssetMissing(t *testing.T) {
	repo := testRepo(t)

	asset, err := repo.GetAsset(7)
	require.NoError(t, err)
	assert.Nil(t, asset)
}
