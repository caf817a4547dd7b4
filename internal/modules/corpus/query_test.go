package corpus

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/argus/internal/domain"
)

func turkeyProfile() domain.AssetProfile {
	return domain.AssetProfile{
		Name:    "Garanti Bank ADR",
		Country: "Turkey",
		Region:  "Emerging Markets",
		Sector:  "Financials",
	}
}

func TestQueryGlobalItemsPrefersCountryMatches(t *testing.T) {
	repo, _ := testRepo(t)
	querier := NewQuerier(repo, zerolog.Nop())
	ctx := context.Background()

	turkey := testItem("https://example.com/tr", "Turkey")
	germany := testItem("https://example.com/de", "Germany")
	require.NoError(t, repo.UpsertItem(ctx, &turkey))
	require.NoError(t, repo.UpsertItem(ctx, &germany))

	items := querier.QueryGlobalItems(ctx, turkeyProfile(), 90)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/tr", items[0].URL)
}

func TestQueryGlobalItemsFallsBackWithoutCountryMatches(t *testing.T) {
	repo, _ := testRepo(t)
	querier := NewQuerier(repo, zerolog.Nop())
	ctx := context.Background()

	germany := testItem("https://example.com/de", "Germany")
	france := testItem("https://example.com/fr", "France")
	require.NoError(t, repo.UpsertItem(ctx, &germany))
	require.NoError(t, repo.UpsertItem(ctx, &france))

	items := querier.QueryGlobalItems(ctx, turkeyProfile(), 90)
	assert.Len(t, items, 2)
}

func TestQueryGlobalItemsLookbackWindow(t *testing.T) {
	repo, _ := testRepo(t)
	querier := NewQuerier(repo, zerolog.Nop())
	ctx := context.Background()

	recent := testItem("https://example.com/recent", "Turkey")
	ancient := testItem("https://example.com/ancient", "Turkey")
	ancient.PublishedAt = time.Now().UTC().AddDate(0, 0, -200).Format("2006-01-02")
	undated := testItem("https://example.com/undated", "Turkey")
	undated.PublishedAt = "sometime last week"
	require.NoError(t, repo.UpsertItem(ctx, &recent))
	require.NoError(t, repo.UpsertItem(ctx, &ancient))
	require.NoError(t, repo.UpsertItem(ctx, &undated))

	items := querier.QueryGlobalItems(ctx, turkeyProfile(), 90)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/recent", items[0].URL)
}

func TestQuerySnapshotsRequiresElevatedActivity(t *testing.T) {
	repo, _ := testRepo(t)
	querier := NewQuerier(repo, zerolog.Nop())
	ctx := context.Background()

	calm := testSnapshot("tr", "Turkey", ActivityCalm)
	high := testSnapshot("ru", "Russia", ActivityHigh)
	require.NoError(t, repo.UpsertSnapshot(ctx, &calm))
	require.NoError(t, repo.UpsertSnapshot(ctx, &high))

	// Turkey only has a Calm snapshot, so the country filter finds
	// nothing and is dropped; the elevated Russia snapshot comes back.
	snapshots := querier.QuerySnapshots(ctx, turkeyProfile(), 90)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "Russia", snapshots[0].Name)
}

func TestQuerySnapshotsCountryMatch(t *testing.T) {
	repo, _ := testRepo(t)
	querier := NewQuerier(repo, zerolog.Nop())
	ctx := context.Background()

	turkey := testSnapshot("tr", "Turkey", ActivityCritical)
	russia := testSnapshot("ru", "Russia", ActivityHigh)
	require.NoError(t, repo.UpsertSnapshot(ctx, &turkey))
	require.NoError(t, repo.UpsertSnapshot(ctx, &russia))

	snapshots := querier.QuerySnapshots(ctx, turkeyProfile(), 90)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "Turkey", snapshots[0].Name)
}

func TestQueriesDegradeToEmptyOnStoreFailure(t *testing.T) {
	repo, db := testRepo(t)
	querier := NewQuerier(repo, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, db.Close())

	assert.Nil(t, querier.QueryGlobalItems(ctx, turkeyProfile(), 90))
	assert.Nil(t, querier.QuerySnapshots(ctx, turkeyProfile(), 90))
}
