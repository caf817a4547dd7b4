package scans

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/modules/georisk"
)

// ErrAssetNotFound is returned when a save names an asset id that does
// not exist.
var ErrAssetNotFound = errors.New("asset not found")

const maxTopThemesStored = 5

// Repository handles assets and gp_scans rows in scans.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new scans repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "scans").Logger(),
	}
}

const assetColumns = `
	id, name, ticker, isin, country, region, sub_region,
	asset_type, asset_class, sector,
	is_emerging_market, is_developed_market, is_global_fund,
	exposures, created_at, updated_at`

const scanColumns = `
	id, asset_id, risk_tolerance, days_lookback, scan_date,
	negative_probability, neutral_probability, positive_probability,
	overall_direction, overall_magnitude, confidence,
	signal_count, top_themes, created_at, updated_at`

func scanAsset(row interface{ Scan(...interface{}) error }) (*Asset, error) {
	var a Asset
	var ticker, isin, country, subRegion sql.NullString
	var exposuresJSON string

	err := row.Scan(
		&a.ID, &a.Name, &ticker, &isin, &country, &a.Region, &subRegion,
		&a.AssetType, &a.AssetClass, &a.Sector,
		&a.EmergingMarket, &a.DevelopedMarket, &a.GlobalFund,
		&exposuresJSON, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Ticker = ticker.String
	a.ISIN = isin.String
	a.Country = country.String
	a.SubRegion = subRegion.String
	if err := json.Unmarshal([]byte(exposuresJSON), &a.Exposures); err != nil {
		a.Exposures = nil
	}
	if a.Exposures == nil {
		a.Exposures = []string{}
	}

	return &a, nil
}

func scanRecord(row interface{ Scan(...interface{}) error }) (*ScanRecord, error) {
	var s ScanRecord
	var themesJSON string

	err := row.Scan(
		&s.ID, &s.AssetID, &s.RiskTolerance, &s.DaysLookback, &s.ScanDate,
		&s.NegativeProbability, &s.NeutralProbability, &s.PositiveProbability,
		&s.OverallDirection, &s.OverallMagnitude, &s.Confidence,
		&s.SignalCount, &themesJSON, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(themesJSON), &s.TopThemes); err != nil {
		s.TopThemes = nil
	}
	if s.TopThemes == nil {
		s.TopThemes = []string{}
	}

	return &s, nil
}

// SaveScan persists a pipeline result. When assetID is zero the asset row
// is resolved from the result's profile by ticker, then isin, then name,
// and created when none matches.
func (r *Repository) SaveScan(result *georisk.DetailedResult, tolerance string, daysLookback int, assetID int64) (*ScanRecord, error) {
	asset, err := r.resolveAsset(result.Profile, assetID)
	if err != nil {
		return nil, err
	}

	blob, err := msgpack.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pipeline result: %w", err)
	}

	topThemes := result.TopThemes
	if len(topThemes) > maxTopThemesStored {
		topThemes = topThemes[:maxTopThemesStored]
	}
	themesJSON, err := json.Marshal(topThemes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode top themes: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	res, err := r.db.Exec(`
		INSERT INTO gp_scans (
			asset_id, risk_tolerance, days_lookback, scan_date,
			pipeline_result,
			negative_probability, neutral_probability, positive_probability,
			overall_direction, overall_magnitude, confidence,
			signal_count, top_themes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID, tolerance, daysLookback, now,
		blob,
		result.Probabilities.Negative, result.Probabilities.Neutral, result.Probabilities.Positive,
		string(result.Impact.OverallDirection), result.Impact.OverallMagnitude, result.Impact.OverallConfidence,
		result.SignalCount, string(themesJSON), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert scan: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read scan id: %w", err)
	}

	r.log.Info().
		Int64("scan_id", id).
		Int64("asset_id", asset.ID).
		Str("direction", string(result.Impact.OverallDirection)).
		Msg("Scan saved")

	return r.GetScan(id)
}

// resolveAsset fetches the asset by id when given, otherwise finds or
// creates one from the profile.
func (r *Repository) resolveAsset(profile domain.AssetProfile, assetID int64) (*Asset, error) {
	if assetID > 0 {
		asset, err := r.GetAsset(assetID)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			return nil, ErrAssetNotFound
		}
		return asset, nil
	}

	if profile.Ticker != "" {
		if asset, err := r.findAssetBy("ticker", profile.Ticker); err != nil || asset != nil {
			return asset, err
		}
	}
	if profile.ISIN != "" {
		if asset, err := r.findAssetBy("isin", profile.ISIN); err != nil || asset != nil {
			return asset, err
		}
	}
	name := profile.Name
	if name == "" {
		name = fmt.Sprintf("%s Asset - %s", profile.Sector, profile.Country)
	}
	if asset, err := r.findAssetBy("name", name); err != nil || asset != nil {
		return asset, err
	}

	return r.createAsset(profile, name)
}

func (r *Repository) findAssetBy(column, value string) (*Asset, error) {
	asset, err := scanAsset(r.db.QueryRow(
		`SELECT `+assetColumns+` FROM assets WHERE `+column+` = ? LIMIT 1`, value,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up asset by %s: %w", column, err)
	}
	return asset, nil
}

func (r *Repository) createAsset(profile domain.AssetProfile, name string) (*Asset, error) {
	exposures := profile.Exposures()
	exposuresJSON, err := json.Marshal(exposures)
	if err != nil {
		return nil, fmt.Errorf("failed to encode exposures: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	res, err := r.db.Exec(`
		INSERT INTO assets (
			name, ticker, isin, country, region, sub_region,
			asset_type, asset_class, sector,
			is_emerging_market, is_developed_market, is_global_fund,
			exposures, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, nullable(profile.Ticker), nullable(profile.ISIN),
		nullable(profile.Country), profile.Region, nullable(profile.SubRegion),
		profile.AssetType, profile.AssetClass, profile.Sector,
		profile.EmergingMarket, profile.DevelopedMarket, profile.GlobalFund,
		string(exposuresJSON), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert asset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read asset id: %w", err)
	}

	r.log.Info().Int64("asset_id", id).Str("name", name).Msg("Asset created")

	return r.GetAsset(id)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ListScans returns scans newest first, optionally filtered by asset. A
// non-positive limit defaults to 50.
func (r *Repository) ListScans(assetID int64, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + scanColumns + ` FROM gp_scans`
	args := []interface{}{}
	if assetID > 0 {
		query += ` WHERE asset_id = ?`
		args = append(args, assetID)
	}
	query += ` ORDER BY scan_date DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	scans := []ScanRecord{}
	for rows.Next() {
		s, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, *s)
	}
	return scans, rows.Err()
}

// GetScan returns one scan's column view, or nil when it does not exist.
func (r *Repository) GetScan(id int64) (*ScanRecord, error) {
	s, err := scanRecord(r.db.QueryRow(
		`SELECT `+scanColumns+` FROM gp_scans WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return s, nil
}

// GetScanFull decodes and returns the stored pipeline result, or nil when
// the scan does not exist.
func (r *Repository) GetScanFull(id int64) (*georisk.DetailedResult, error) {
	var blob []byte
	err := r.db.QueryRow(
		`SELECT pipeline_result FROM gp_scans WHERE id = ?`, id,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan result: %w", err)
	}

	var result georisk.DetailedResult
	if err := msgpack.Unmarshal(blob, &result); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline result: %w", err)
	}
	return &result, nil
}

// ListAssets returns assets ordered by name. A non-positive limit
// defaults to 100.
func (r *Repository) ListAssets(limit int) ([]Asset, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(
		`SELECT `+assetColumns+` FROM assets ORDER BY name LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	assets := []Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// GetAsset returns one asset, or nil when it does not exist.
func (r *Repository) GetAsset(id int64) (*Asset, error) {
	a, err := scanAsset(r.db.QueryRow(
		`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}
