package scans

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/argus/internal/modules/georisk"
)

func setupTestRouter(t *testing.T) (*chi.Mux, *Repository) {
	repo := testRepo(t)
	handler := NewHandler(repo, zerolog.Nop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, repo
}

func savePayload(name, ticker string) map[string]interface{} {
	return map[string]interface{}{
		"risk_tolerance":  "medium",
		"days_lookback":   90,
		"pipeline_result": sampleResult(name, ticker),
	}
}

func postJSON(t *testing.T, router *chi.Mux, path string, payload interface{}) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *chi.Mux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleSaveAndGet(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := postJSON(t, router, "/gp-scans", savePayload("Turkish Airlines", "THYAO"))
	require.Equal(t, http.StatusCreated, w.Code)

	var record ScanRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&record))
	assert.Equal(t, "Medium", record.RiskTolerance)
	assert.Equal(t, "negative", record.OverallDirection)
	assert.Equal(t, 1, record.SignalCount)

	w = getPath(router, fmt.Sprintf("/gp-scans/%d", record.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var fetched ScanRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&fetched))
	assert.Equal(t, record.ID, fetched.ID)
	assert.Equal(t, []string{"sanctions", "energy_security"}, fetched.TopThemes)
}

func TestHandleSaveRequiresResult(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := postJSON(t, router, "/gp-scans", map[string]interface{}{"risk_tolerance": "medium"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "pipeline_result is required")
}

func TestHandleSaveUnknownAsset(t *testing.T) {
	router, _ := setupTestRouter(t)

	payload := savePayload("Turkish Airlines", "THYAO")
	payload["asset_id"] = 999

	w := postJSON(t, router, "/gp-scans", payload)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Asset with ID 999 not found")
}

func TestHandleGetFull(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := postJSON(t, router, "/gp-scans", savePayload("Turkish Airlines", "THYAO"))
	require.Equal(t, http.StatusCreated, w.Code)
	var record ScanRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&record))

	w = getPath(router, fmt.Sprintf("/gp-scans/%d/full", record.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var full georisk.DetailedResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&full))
	assert.Equal(t, "scan_1756100000_ab12cd34", full.ScanID)
	assert.Equal(t, "Turkish Airlines", full.Profile.Name)
	assert.Len(t, full.Signals, 1)
}

func TestHandleGetNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := getPath(router, "/gp-scans/42")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "GP scan 42 not found")

	w = getPath(router, "/gp-scans/42/full")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetInvalidID(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := getPath(router, "/gp-scans/not-a-number")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListFiltersByAsset(t *testing.T) {
	router, repo := setupTestRouter(t)

	_, err := repo.SaveScan(sampleResult("Turkish Airlines", "THYAO"), "Medium", 90, 0)
	require.NoError(t, err)
	_, err = repo.SaveScan(sampleResult("Polish Utilities", "PGE"), "Medium", 90, 0)
	require.NoError(t, err)

	w := getPath(router, "/gp-scans?asset_id=1")
	require.Equal(t, http.StatusOK, w.Code)

	var records []ScanRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].AssetID)

	w = getPath(router, "/gp-scans?asset_id=oops")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAssets(t *testing.T) {
	router, repo := setupTestRouter(t)

	_, err := repo.SaveScan(sampleResult("Turkish Airlines", "THYAO"), "Medium", 90, 0)
	require.NoError(t, err)

	w := getPath(router, "/gp-scans/assets")
	require.Equal(t, http.StatusOK, w.Code)

	var assets []Asset
	require.NoError(t, json.NewDecoder(w.Body).Decode(&assets))
	require.Len(t, assets, 1)
	assert.Equal(t, "Turkish Airlines", assets[0].Name)

	w = getPath(router, fmt.Sprintf("/gp-scans/assets/%d", assets[0].ID))
	require.Equal(t, http.StatusOK, w.Code)

	var asset Asset
	require.NoError(t, json.NewDecoder(w.Body).Decode(&asset))
	assert.Equal(t, "THYAO", asset.Ticker)

	w = getPath(router, "/gp-scans/assets/99")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Asset 99 not found")
}
