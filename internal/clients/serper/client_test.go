package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

		var req searchRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "Russia energy exports sanctions", req.Query)
		assert.Equal(t, 5, req.Num)
		assert.Equal(t, "qdr:month", req.TBS)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"organic": [
				{"title": "EU tightens oil price cap enforcement", "link": "https://www.bloomberg.com/news/eu-oil", "snippet": "European regulators moved to close loopholes...", "date": "2 days ago"},
				{"title": "Gazprom reports export volumes down", "link": "https://www.reuters.com/business/energy/gazprom", "snippet": "Pipeline flows to Europe fell..."}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.baseURL = server.URL

	results, err := client.Search(context.Background(), "Russia energy exports sanctions", 5, "month")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "EU tightens oil price cap enforcement", results[0].Title)
	assert.Equal(t, "https://www.bloomberg.com/news/eu-oil", results[0].Link)
	assert.Equal(t, "2 days ago", results[0].Date)
}

func TestSearchOmitsTimeRangeWhenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, hasTBS := raw["tbs"]
		assert.False(t, hasTBS, "tbs should be omitted without a time range")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.baseURL = server.URL

	results, err := client.Search(context.Background(), "anything", 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchNotConfigured(t *testing.T) {
	client := NewClient("", zerolog.Nop())

	_, err := client.Search(context.Background(), "anything", 5, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "Unauthorized"}`))
	}))
	defer server.Close()

	client := NewClient("bad-key", zerolog.Nop())
	client.baseURL = server.URL

	_, err := client.Search(context.Background(), "anything", 5, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
