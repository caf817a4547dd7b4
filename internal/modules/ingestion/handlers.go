package ingestion

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler exposes the manual ingestion trigger.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new ingestion handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ingestion").Logger(),
	}
}

// RegisterRoutes registers all ingestion routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ingestion", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
	})
}

// HandleRun handles POST /api/ingestion/run. The optional days query
// parameter widens the entry max-age window, up to a week.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	days := defaultMaxAgeDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxAgeDaysLimit {
			http.Error(w, "Invalid days parameter", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	summary, err := h.service.Refresh(r.Context(), days)
	if err != nil {
		h.log.Error().Err(err).Msg("Ingestion run failed")
		http.Error(w, "Ingestion run failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
