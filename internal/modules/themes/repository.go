package themes

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/argus/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles theme catalog rows in config.db. The four list
// columns are stored as JSON arrays.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new theme repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "themes").Logger(),
	}
}

const themeColumns = `
	id, name, display_name, description,
	keywords, relevant_countries, relevant_regions, relevant_sectors,
	country_match_weight, region_match_weight, sector_match_weight,
	exposure_bonus_weight, emerging_market_bonus,
	min_relevance_threshold,
	is_active, created_at, updated_at`

// scanTheme reads one themes row.
func scanTheme(row interface{ Scan(...interface{}) error }) (*Theme, error) {
	var t Theme
	var description sql.NullString
	var keywordsJSON, countriesJSON, regionsJSON, sectorsJSON string

	err := row.Scan(
		&t.ID, &t.Name, &t.DisplayName, &description,
		&keywordsJSON, &countriesJSON, &regionsJSON, &sectorsJSON,
		&t.Weights.Country, &t.Weights.Region, &t.Weights.Sector,
		&t.Weights.ExposureBonus, &t.Weights.EmergingBonus,
		&t.MinRelevanceThreshold,
		&t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String

	if err := json.Unmarshal([]byte(keywordsJSON), &t.Keywords); err != nil {
		t.Keywords = nil
	}
	if err := json.Unmarshal([]byte(countriesJSON), &t.RelevantCountries); err != nil {
		t.RelevantCountries = nil
	}
	if err := json.Unmarshal([]byte(regionsJSON), &t.RelevantRegions); err != nil {
		t.RelevantRegions = nil
	}
	if err := json.Unmarshal([]byte(sectorsJSON), &t.RelevantSectors); err != nil {
		t.RelevantSectors = nil
	}

	return &t, nil
}

// marshalList renders a string slice as a JSON array, never null.
func marshalList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

// List returns all catalog rows ordered by name, optionally only active ones.
func (r *Repository) List(activeOnly bool) ([]Theme, error) {
	query := "SELECT " + themeColumns + " FROM themes"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}
	defer rows.Close()

	var result []Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan theme row")
			continue
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating themes: %w", err)
	}

	return result, nil
}

// Get returns a theme by name, or nil when it doesn't exist.
func (r *Repository) Get(name string) (*Theme, error) {
	row := r.db.QueryRow("SELECT "+themeColumns+" FROM themes WHERE name = ?", name)

	t, err := scanTheme(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get theme %s: %w", name, err)
	}

	return t, nil
}

// Create inserts a new theme.
func (r *Repository) Create(t *Theme) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.Exec(`
		INSERT INTO themes (
			name, display_name, description,
			keywords, relevant_countries, relevant_regions, relevant_sectors,
			country_match_weight, region_match_weight, sector_match_weight,
			exposure_bonus_weight, emerging_market_bonus,
			min_relevance_threshold,
			is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.Name, t.DisplayName, t.Description,
		marshalList(t.Keywords), marshalList(t.RelevantCountries),
		marshalList(t.RelevantRegions), marshalList(t.RelevantSectors),
		t.Weights.Country, t.Weights.Region, t.Weights.Sector,
		t.Weights.ExposureBonus, t.Weights.EmergingBonus,
		t.MinRelevanceThreshold,
		t.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create theme %s: %w", t.Name, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		t.ID = id
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	return nil
}

// Update replaces an existing theme identified by name.
// Returns sql.ErrNoRows when the theme doesn't exist.
func (r *Repository) Update(name string, t *Theme) error {
	if err := t.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.Exec(`
		UPDATE themes SET
			display_name = ?, description = ?,
			keywords = ?, relevant_countries = ?, relevant_regions = ?, relevant_sectors = ?,
			country_match_weight = ?, region_match_weight = ?, sector_match_weight = ?,
			exposure_bonus_weight = ?, emerging_market_bonus = ?,
			min_relevance_threshold = ?,
			is_active = ?, updated_at = ?
		WHERE name = ?
	`,
		t.DisplayName, t.Description,
		marshalList(t.Keywords), marshalList(t.RelevantCountries),
		marshalList(t.RelevantRegions), marshalList(t.RelevantSectors),
		t.Weights.Country, t.Weights.Region, t.Weights.Sector,
		t.Weights.ExposureBonus, t.Weights.EmergingBonus,
		t.MinRelevanceThreshold,
		t.Active, now, name,
	)
	if err != nil {
		return fmt.Errorf("failed to update theme %s: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for %s: %w", name, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	t.Name = name
	t.UpdatedAt = now

	return nil
}

// Delete deactivates a theme. The row is kept so existing scans that
// reference it stay resolvable. Returns sql.ErrNoRows when missing.
func (r *Repository) Delete(name string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.Exec(
		"UPDATE themes SET is_active = 0, updated_at = ? WHERE name = ?", now, name)
	if err != nil {
		return fmt.Errorf("failed to delete theme %s: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for %s: %w", name, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// SeedDefaults inserts every built-in theme that is not already present.
// Existing rows are never overwritten. Returns created and skipped counts.
func (r *Repository) SeedDefaults() (created, skipped int, err error) {
	for _, def := range DefaultThemes() {
		existing, err := r.Get(def.Name)
		if err != nil {
			return created, skipped, err
		}
		if existing != nil {
			skipped++
			continue
		}

		t := Theme{ThemeDefinition: def}
		if err := r.Create(&t); err != nil {
			return created, skipped, err
		}
		created++
	}

	if created > 0 {
		r.log.Info().Int("created", created).Int("skipped", skipped).Msg("Seeded default themes")
	}

	return created, skipped, nil
}

// ActiveThemes returns the persisted active catalog, falling back to the
// built-in defaults when the table is empty or unreachable. Stage 2 relies
// on this never failing.
func (r *Repository) ActiveThemes() []domain.ThemeDefinition {
	rows, err := r.List(true)
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to load theme catalog, using built-in defaults")
		return DefaultThemes()
	}
	if len(rows) == 0 {
		return DefaultThemes()
	}

	defs := make([]domain.ThemeDefinition, 0, len(rows))
	for _, t := range rows {
		defs = append(defs, t.ThemeDefinition)
	}
	return defs
}
