package corpus

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for corpus read endpoints
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new corpus handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "corpus").Logger(),
	}
}

// RegisterRoutes registers all corpus routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/corpus", func(r chi.Router) {
		r.Get("/items", h.HandleListItems)
		r.Get("/snapshots", h.HandleListSnapshots)
		r.Get("/snapshots/{name}", h.HandleGetSnapshot)
	})
}

// HandleListItems handles GET /api/corpus/items
func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	var filter ItemFilter
	if country := r.URL.Query().Get("country"); country != "" {
		filter.Countries = []string{country}
	}
	if topic := r.URL.Query().Get("topic"); topic != "" {
		filter.Topics = []string{topic}
	}
	filter.Limit = parseLimit(r, 200)

	items, err := h.repo.ListItems(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list global items")
		http.Error(w, "Failed to retrieve corpus items", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []GlobalItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// HandleListSnapshots handles GET /api/corpus/snapshots
func (h *Handler) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	var filter SnapshotFilter
	filter.Country = r.URL.Query().Get("country")
	if level := r.URL.Query().Get("activity_level"); level != "" {
		filter.ActivityLevels = []string{level}
	}
	filter.Limit = parseLimit(r, 50)

	snapshots, err := h.repo.ListSnapshots(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list snapshots")
		http.Error(w, "Failed to retrieve snapshots", http.StatusInternalServerError)
		return
	}
	if snapshots == nil {
		snapshots = []Snapshot{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshots)
}

// HandleGetSnapshot handles GET /api/corpus/snapshots/{name}
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	snapshot, err := h.repo.GetSnapshot(r.Context(), name)
	if err != nil {
		h.log.Error().Err(err).Str("snapshot", name).Msg("Failed to get snapshot")
		http.Error(w, "Failed to retrieve snapshot", http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		http.Error(w, fmt.Sprintf("Snapshot '%s' not found", name), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
