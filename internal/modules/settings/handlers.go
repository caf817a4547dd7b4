package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/events"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for scoring settings endpoints
type Handler struct {
	repo         *ScoringRepository
	provider     *Provider
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewHandler creates a new scoring settings handler
func NewHandler(repo *ScoringRepository, provider *Provider, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		repo:         repo,
		provider:     provider,
		eventManager: eventManager,
		log:          log.With().Str("handler", "scoring_settings").Logger(),
	}
}

// RegisterRoutes registers all scoring settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/scoring-settings", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/active/default", h.HandleGetActive)
		r.Get("/{name}", h.HandleGet)
		r.Put("/{name}", h.HandleUpdate)
	})
}

// HandleList handles GET /api/scoring-settings - list records, optionally active only
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	records, err := h.repo.List(activeOnly)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list scoring settings")
		http.Error(w, "Failed to retrieve scoring settings", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []ScoringSettings{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// HandleGet handles GET /api/scoring-settings/{name}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	record, err := h.repo.Get(name)
	if err != nil {
		h.log.Error().Err(err).Str("settings", name).Msg("Failed to get scoring settings")
		http.Error(w, "Failed to retrieve scoring settings", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, fmt.Sprintf("Scoring settings '%s' not found", name), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// HandleGetActive handles GET /api/scoring-settings/active/default - the
// record the pipeline currently scores with
func (h *Handler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	record, err := h.repo.GetActive()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get active scoring settings")
		http.Error(w, "Failed to retrieve scoring settings", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "No active scoring settings found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// HandleCreate handles POST /api/scoring-settings
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	// Fields absent from the payload fall back to the built-in defaults.
	// The lookup tables start nil so a provided table replaces rather than
	// merges; Normalize refills them when the payload omits both.
	record := DefaultScoringSettings()
	record.Name = ""
	record.Description = ""
	record.ActivityLevelScores = nil
	record.SourceQualityScores = nil
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.Get(record.Name)
	if err != nil {
		h.log.Error().Err(err).Str("settings", record.Name).Msg("Failed to check for existing scoring settings")
		http.Error(w, "Failed to create scoring settings", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, fmt.Sprintf("Scoring settings '%s' already exists", record.Name), http.StatusBadRequest)
		return
	}

	if err := h.repo.Create(&record); err != nil {
		if domain.IsInputError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("settings", record.Name).Msg("Failed to create scoring settings")
		http.Error(w, "Failed to create scoring settings", http.StatusInternalServerError)
		return
	}

	h.invalidate()
	h.emitChanged("created", record.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

// HandleUpdate handles PUT /api/scoring-settings/{name} - partial update
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var update ScoringSettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.repo.Get(name)
	if err != nil {
		h.log.Error().Err(err).Str("settings", name).Msg("Failed to load scoring settings for update")
		http.Error(w, "Failed to update scoring settings", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, fmt.Sprintf("Scoring settings '%s' not found", name), http.StatusNotFound)
		return
	}

	update.ApplyTo(record)

	if err := h.repo.Update(name, record); err != nil {
		if domain.IsInputError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, fmt.Sprintf("Scoring settings '%s' not found", name), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("settings", name).Msg("Failed to update scoring settings")
		http.Error(w, "Failed to update scoring settings", http.StatusInternalServerError)
		return
	}

	h.invalidate()
	h.emitChanged("updated", name)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// invalidate drops the provider memo so the next pipeline run reads the
// written record.
func (h *Handler) invalidate() {
	if h.provider != nil {
		h.provider.Invalidate()
	}
}

func (h *Handler) emitChanged(action, name string) {
	if h.eventManager == nil {
		return
	}
	h.eventManager.EmitTyped(events.ScoringSettingsChanged, "settings", &events.ScoringSettingsChangedData{
		Action: action,
		Name:   name,
	})
}
