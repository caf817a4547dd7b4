package scans

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/modules/georisk"
)

// Handler provides HTTP handlers for the persisted scan archive
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new scans handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "scans").Logger(),
	}
}

// RegisterRoutes registers all scan archive routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/gp-scans", func(r chi.Router) {
		r.Post("/", h.HandleSave)
		r.Get("/", h.HandleList)
		r.Get("/assets", h.HandleListAssets)
		r.Get("/assets/{assetID}", h.HandleGetAsset)
		r.Get("/{scanID}", h.HandleGet)
		r.Get("/{scanID}/full", h.HandleGetFull)
	})
}

// saveRequest is the body for POST /api/gp-scans.
type saveRequest struct {
	AssetID        int64                   `json:"asset_id,omitempty"`
	RiskTolerance  string                  `json:"risk_tolerance"`
	DaysLookback   int                     `json:"days_lookback"`
	PipelineResult *georisk.DetailedResult `json:"pipeline_result"`
}

// HandleSave handles POST /api/gp-scans - persist a pipeline result
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PipelineResult == nil {
		http.Error(w, "pipeline_result is required", http.StatusBadRequest)
		return
	}

	tolerance := string(domain.ParseRiskTolerance(req.RiskTolerance))
	if req.DaysLookback <= 0 {
		req.DaysLookback = 90
	}

	record, err := h.repo.SaveScan(req.PipelineResult, tolerance, req.DaysLookback, req.AssetID)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			http.Error(w, fmt.Sprintf("Asset with ID %d not found", req.AssetID), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to save scan")
		http.Error(w, "Failed to save scan", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

// HandleList handles GET /api/gp-scans - list scans, optionally by asset
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	assetID, ok := queryInt64(w, r, "asset_id")
	if !ok {
		return
	}
	limit, ok := queryInt64(w, r, "limit")
	if !ok {
		return
	}

	records, err := h.repo.ListScans(assetID, int(limit))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list scans")
		http.Error(w, "Failed to retrieve scans", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// HandleGet handles GET /api/gp-scans/{scanID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "scanID")
	if !ok {
		return
	}

	record, err := h.repo.GetScan(id)
	if err != nil {
		h.log.Error().Err(err).Int64("scan_id", id).Msg("Failed to get scan")
		http.Error(w, "Failed to retrieve scan", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, fmt.Sprintf("GP scan %d not found", id), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// HandleGetFull handles GET /api/gp-scans/{scanID}/full - the stored
// pipeline result
func (h *Handler) HandleGetFull(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "scanID")
	if !ok {
		return
	}

	result, err := h.repo.GetScanFull(id)
	if err != nil {
		h.log.Error().Err(err).Int64("scan_id", id).Msg("Failed to get scan result")
		http.Error(w, "Failed to retrieve scan result", http.StatusInternalServerError)
		return
	}
	if result == nil {
		http.Error(w, fmt.Sprintf("GP scan %d not found", id), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleListAssets handles GET /api/gp-scans/assets
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt64(w, r, "limit")
	if !ok {
		return
	}

	assets, err := h.repo.ListAssets(int(limit))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		http.Error(w, "Failed to retrieve assets", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assets)
}

// HandleGetAsset handles GET /api/gp-scans/assets/{assetID}
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "assetID")
	if !ok {
		return
	}

	asset, err := h.repo.GetAsset(id)
	if err != nil {
		h.log.Error().Err(err).Int64("asset_id", id).Msg("Failed to get asset")
		http.Error(w, "Failed to retrieve asset", http.StatusInternalServerError)
		return
	}
	if asset == nil {
		http.Error(w, fmt.Sprintf("Asset %d not found", id), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(asset)
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return value, true
}
