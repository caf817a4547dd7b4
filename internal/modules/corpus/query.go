package corpus

import (
	"context"
	"time"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/modules/scoring"
	"github.com/aristath/argus/internal/utils"
	"github.com/rs/zerolog"
)

const (
	queryTimeout       = 10 * time.Second
	itemQueryLimit     = 200
	snapshotQueryLimit = 50
)

// Querier runs the pipeline's corpus reads. Connection-level failures are
// retried with backoff; anything still failing degrades to an empty result
// with a warning, so a broken corpus store never blocks a scan.
type Querier struct {
	repo *Repository
	log  zerolog.Logger
}

// NewQuerier creates a new corpus query service.
func NewQuerier(repo *Repository, log zerolog.Logger) *Querier {
	return &Querier{
		repo: repo,
		log:  log.With().Str("service", "corpus_query").Logger(),
	}
}

// QueryGlobalItems returns recent global items relevant to the profile.
// Items mentioning the profile country are preferred; when none match,
// the latest items regardless of country are used so region-level
// holdings still see the corpus. Results are post-filtered to the
// lookback window.
func (q *Querier) QueryGlobalItems(ctx context.Context, profile domain.AssetProfile, lookbackDays int) []GlobalItem {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var countries []string
	if profile.Country != "" {
		countries = []string{profile.Country}
	}

	items, err := q.listItems(ctx, ItemFilter{Countries: countries, Limit: itemQueryLimit})
	if err != nil {
		q.log.Warn().Err(err).Msg("Global item query failed, continuing without corpus items")
		return nil
	}

	if len(items) == 0 && len(countries) > 0 {
		items, err = q.listItems(ctx, ItemFilter{Limit: itemQueryLimit})
		if err != nil {
			q.log.Warn().Err(err).Msg("Global item query failed, continuing without corpus items")
			return nil
		}
	}

	return filterItemsByLookback(items, lookbackDays)
}

// QuerySnapshots returns elevated-activity country snapshots relevant to
// the profile. The country filter is dropped when it matches nothing, so
// near-miss country names still surface regional situations.
func (q *Querier) QuerySnapshots(ctx context.Context, profile domain.AssetProfile, lookbackDays int) []Snapshot {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := SnapshotFilter{
		Country:        profile.Country,
		ActivityLevels: []string{ActivityCritical, ActivityHigh, ActivityMedium},
		Limit:          snapshotQueryLimit,
	}
	if lookbackDays > 0 {
		filter.UpdatedAfter = time.Now().UTC().AddDate(0, 0, -lookbackDays).Format(time.RFC3339)
	}

	snapshots, err := q.listSnapshots(ctx, filter)
	if err != nil {
		q.log.Warn().Err(err).Msg("Snapshot query failed, continuing without snapshots")
		return nil
	}

	if len(snapshots) == 0 && filter.Country != "" {
		filter.Country = ""
		snapshots, err = q.listSnapshots(ctx, filter)
		if err != nil {
			q.log.Warn().Err(err).Msg("Snapshot query failed, continuing without snapshots")
			return nil
		}
	}

	return snapshots
}

func (q *Querier) listItems(ctx context.Context, f ItemFilter) ([]GlobalItem, error) {
	var items []GlobalItem
	err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		var err error
		items, err = q.repo.ListItems(ctx, f)
		return err
	})
	return items, err
}

func (q *Querier) listSnapshots(ctx context.Context, f SnapshotFilter) ([]Snapshot, error) {
	var snapshots []Snapshot
	err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		var err error
		snapshots, err = q.repo.ListSnapshots(ctx, f)
		return err
	})
	return snapshots, err
}

// filterItemsByLookback drops items published before the lookback cutoff,
// along with items whose publication date cannot be parsed.
func filterItemsByLookback(items []GlobalItem, lookbackDays int) []GlobalItem {
	if lookbackDays <= 0 {
		return items
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	var kept []GlobalItem
	for _, item := range items {
		pub, ok := scoring.ParseDate(item.PublishedAt)
		if ok && !pub.Before(cutoff) {
			kept = append(kept, item)
		}
	}
	return kept
}
