package settings

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingGetMissingReturnsNil(t *testing.T) {
	db := setupConfigDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	got, err := repo.Get("absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSettingSetAndGet(t *testing.T) {
	db := setupConfigDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.Set("web_search_api", "research", nil))

	got, err := repo.Get("web_search_api")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "research", *got)

	// Upsert overwrites in place.
	desc := "Web search back-end"
	require.NoError(t, repo.Set("web_search_api", "general", &desc))

	got, err = repo.Get("web_search_api")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "general", *got)
}

func TestSettingGetAll(t *testing.T) {
	db := setupConfigDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.SetFloat("max_web_search_themes", 3))
	require.NoError(t, repo.Set("web_search_api", "research", nil))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "research", all["web_search_api"])
}

func TestSettingTypedGetters(t *testing.T) {
	db := setupConfigDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	f, err := repo.GetFloat("missing", 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 1e-9)

	require.NoError(t, repo.SetFloat("threshold", 0.75))
	f, err = repo.GetFloat("threshold", 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, f, 1e-9)

	// Garbage values fall back to the default instead of erroring.
	require.NoError(t, repo.Set("threshold", "not-a-number", nil))
	f, err = repo.GetFloat("threshold", 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 1e-9)

	// Integers stored as "12.0" still parse.
	require.NoError(t, repo.SetFloat("interval", 12))
	i, err := repo.GetInt("interval", 30)
	require.NoError(t, err)
	assert.Equal(t, 12, i)

	require.NoError(t, repo.SetBool("enabled", true))
	b, err := repo.GetBool("enabled", false)
	require.NoError(t, err)
	assert.True(t, b)

	require.NoError(t, repo.Set("enabled", "off", nil))
	b, err = repo.GetBool("enabled", true)
	require.NoError(t, err)
	assert.False(t, b)

	b, err = repo.GetBool("missing", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestSettingDelete(t *testing.T) {
	db := setupConfigDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.Set("stale", "1", nil))
	require.NoError(t, repo.Delete("stale"))

	got, err := repo.Get("stale")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting a missing key is not an error.
	require.NoError(t, repo.Delete("stale"))
}
