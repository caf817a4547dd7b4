package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles global_items and country_snapshots rows in corpus.db.
// List methods take a context so pipeline reads can carry a deadline.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new corpus repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "corpus").Logger(),
	}
}

const itemColumns = `
	id, title, summary, source, url, published_at, topic,
	countries, country_ids, created_at`

const snapshotColumns = `
	id, name, activity_level, updated_at, events, stats,
	created_at, updated_at_db`

func scanItem(row interface{ Scan(...interface{}) error }) (*GlobalItem, error) {
	var it GlobalItem
	var sourceJSON, countriesJSON, countryIDsJSON string

	err := row.Scan(
		&it.ID, &it.Title, &it.Summary, &sourceJSON, &it.URL,
		&it.PublishedAt, &it.Topic, &countriesJSON, &countryIDsJSON,
		&it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(sourceJSON), &it.Source); err != nil {
		it.Source = SourceRef{Name: sourceJSON}
	}
	if err := json.Unmarshal([]byte(countriesJSON), &it.Countries); err != nil {
		it.Countries = nil
	}
	if err := json.Unmarshal([]byte(countryIDsJSON), &it.CountryIDs); err != nil {
		it.CountryIDs = nil
	}

	return &it, nil
}

func scanSnapshot(row interface{ Scan(...interface{}) error }) (*Snapshot, error) {
	var s Snapshot
	var eventsJSON, statsJSON string

	err := row.Scan(
		&s.ID, &s.Name, &s.ActivityLevel, &s.UpdatedAt,
		&eventsJSON, &statsJSON, &s.CreatedAt, &s.UpdatedAtDB,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(eventsJSON), &s.Events); err != nil {
		s.Events = nil
	}
	if err := json.Unmarshal([]byte(statsJSON), &s.Stats); err != nil {
		s.Stats = CountryStats{}
	}

	return &s, nil
}

// ItemFilter narrows a global item listing. Zero values mean "no filter".
type ItemFilter struct {
	Countries []string // match items whose countries array contains any of these
	Topics    []string
	Limit     int // defaults to 200
}

// SnapshotFilter narrows a snapshot listing. Zero values mean "no filter".
type SnapshotFilter struct {
	Country        string // case-insensitive substring match on name
	ActivityLevels []string
	UpdatedAfter   string // RFC3339 lower bound on updated_at_db
	Limit          int    // defaults to 50
}

// UpsertItem inserts a global item, replacing any previous row that
// carries the same url.
func (r *Repository) UpsertItem(ctx context.Context, item *GlobalItem) error {
	if item.CreatedAt == "" {
		item.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	sourceJSON, _ := json.Marshal(item.Source)

	result, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO global_items
			(title, summary, source, url, published_at, topic, countries, country_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.Title, item.Summary, string(sourceJSON), item.URL,
		item.PublishedAt, item.Topic,
		marshalList(item.Countries), marshalList(item.CountryIDs),
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert global item: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		item.ID = id
	}

	return nil
}

// ListItems returns global items matching the filter, newest ingested
// first.
func (r *Repository) ListItems(ctx context.Context, f ItemFilter) ([]GlobalItem, error) {
	query := "SELECT " + itemColumns + " FROM global_items"
	var conds []string
	var args []interface{}

	if len(f.Countries) > 0 {
		overlap := make([]string, 0, len(f.Countries))
		for _, country := range f.Countries {
			overlap = append(overlap,
				"EXISTS (SELECT 1 FROM json_each(global_items.countries) WHERE json_each.value = ?)")
			args = append(args, country)
		}
		conds = append(conds, "("+strings.Join(overlap, " OR ")+")")
	}

	if len(f.Topics) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Topics)), ",")
		conds = append(conds, "topic IN ("+placeholders+")")
		for _, topic := range f.Topics {
			args = append(args, topic)
		}
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list global items: %w", err)
	}
	defer rows.Close()

	var items []GlobalItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan global item row")
			continue
		}
		items = append(items, *it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating global items: %w", err)
	}

	return items, nil
}

// UpsertSnapshot inserts or replaces the snapshot for one country.
func (r *Repository) UpsertSnapshot(ctx context.Context, snap *Snapshot) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if snap.CreatedAt == "" {
		snap.CreatedAt = now
	}
	if snap.UpdatedAtDB == "" {
		snap.UpdatedAtDB = now
	}

	eventsJSON, _ := json.Marshal(snap.Events)
	statsJSON, _ := json.Marshal(snap.Stats)

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO country_snapshots
			(id, name, activity_level, updated_at, events, stats, created_at, updated_at_db)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snap.ID, snap.Name, snap.ActivityLevel, snap.UpdatedAt,
		string(eventsJSON), string(statsJSON), snap.CreatedAt, snap.UpdatedAtDB,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", snap.ID, err)
	}

	return nil
}

// ListSnapshots returns country snapshots matching the filter, ordered by
// activity priority (Critical > High > Medium > Low > rest) then recency.
func (r *Repository) ListSnapshots(ctx context.Context, f SnapshotFilter) ([]Snapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM country_snapshots"
	var conds []string
	var args []interface{}

	if f.Country != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+f.Country+"%")
	}

	if len(f.ActivityLevels) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.ActivityLevels)), ",")
		conds = append(conds, "activity_level IN ("+placeholders+")")
		for _, level := range f.ActivityLevels {
			args = append(args, level)
		}
	}

	if f.UpdatedAfter != "" {
		conds = append(conds, "updated_at_db >= ?")
		args = append(args, f.UpdatedAfter)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += `
		ORDER BY CASE activity_level
			WHEN 'Critical' THEN 1
			WHEN 'High' THEN 2
			WHEN 'Medium' THEN 3
			WHEN 'Low' THEN 4
			ELSE 5
		END ASC, updated_at_db DESC
		LIMIT ?`

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan snapshot row")
			continue
		}
		snapshots = append(snapshots, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// GetSnapshot returns the snapshot whose id or name matches (case
// insensitive), or nil when there is none.
func (r *Repository) GetSnapshot(ctx context.Context, idOrName string) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+snapshotColumns+" FROM country_snapshots WHERE id = ? COLLATE NOCASE OR name = ? COLLATE NOCASE",
		idOrName, idOrName)

	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", idOrName, err)
	}

	return s, nil
}

// ReplaceAll atomically replaces the corpus contents with a fresh
// ingestion run, so readers never observe a half-built corpus.
func (r *Repository) ReplaceAll(ctx context.Context, items []GlobalItem, snapshots []Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM global_items"); err != nil {
		return fmt.Errorf("failed to clear global items: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM country_snapshots"); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	for i := range items {
		item := &items[i]
		if item.CreatedAt == "" {
			item.CreatedAt = now
		}
		sourceJSON, _ := json.Marshal(item.Source)

		_, err := tx.Exec(`
			INSERT OR REPLACE INTO global_items
				(title, summary, source, url, published_at, topic, countries, country_ids, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			item.Title, item.Summary, string(sourceJSON), item.URL,
			item.PublishedAt, item.Topic,
			marshalList(item.Countries), marshalList(item.CountryIDs),
			item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert global item %s: %w", item.URL, err)
		}
	}

	for i := range snapshots {
		snap := &snapshots[i]
		if snap.CreatedAt == "" {
			snap.CreatedAt = now
		}
		if snap.UpdatedAtDB == "" {
			snap.UpdatedAtDB = now
		}
		eventsJSON, _ := json.Marshal(snap.Events)
		statsJSON, _ := json.Marshal(snap.Stats)

		_, err := tx.Exec(`
			INSERT INTO country_snapshots
				(id, name, activity_level, updated_at, events, stats, created_at, updated_at_db)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			snap.ID, snap.Name, snap.ActivityLevel, snap.UpdatedAt,
			string(eventsJSON), string(statsJSON), snap.CreatedAt, snap.UpdatedAtDB,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot %s: %w", snap.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit corpus replace: %w", err)
	}

	r.log.Info().Int("items", len(items)).Int("snapshots", len(snapshots)).Msg("Corpus replaced")

	return nil
}

// CountItems returns the number of stored global items.
func (r *Repository) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM global_items").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count global items: %w", err)
	}
	return n, nil
}

// CountSnapshots returns the number of stored country snapshots.
func (r *Repository) CountSnapshots(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM country_snapshots").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

// marshalList renders a string slice as a JSON array, never null.
func marshalList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}
