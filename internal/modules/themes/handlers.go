package themes

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

// Handler provides HTTP handlers for theme catalog endpoints
type Handler struct {
	repo         *Repository
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewHandler creates a new themes handler
func NewHandler(repo *Repository, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("handler", "themes").Logger(),
	}
}

// RegisterRoutes registers all theme catalog routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/themes", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Post("/seed", h.HandleSeed)
		r.Get("/{name}", h.HandleGet)
		r.Put("/{name}", h.HandleUpdate)
		r.Delete("/{name}", h.HandleDelete)
	})
}

// HandleList handles GET /api/themes - list themes, optionally active only
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	themes, err := h.repo.List(activeOnly)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list themes")
		http.Error(w, "Failed to retrieve themes", http.StatusInternalServerError)
		return
	}
	if themes == nil {
		themes = []Theme{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(themes)
}

// HandleGet handles GET /api/themes/{name}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	theme, err := h.repo.Get(name)
	if err != nil {
		h.log.Error().Err(err).Str("theme", name).Msg("Failed to get theme")
		http.Error(w, "Failed to retrieve theme", http.StatusInternalServerError)
		return
	}
	if theme == nil {
		http.Error(w, fmt.Sprintf("Theme '%s' not found", name), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(theme)
}

// HandleCreate handles POST /api/themes
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	// New themes are active unless the payload says otherwise.
	theme := Theme{ThemeDefinition: domain.ThemeDefinition{Active: true}}
	if err := json.NewDecoder(r.Body).Decode(&theme); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.Get(theme.Name)
	if err != nil {
		h.log.Error().Err(err).Str("theme", theme.Name).Msg("Failed to check for existing theme")
		http.Error(w, "Failed to create theme", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, fmt.Sprintf("Theme '%s' already exists", theme.Name), http.StatusConflict)
		return
	}

	if err := h.repo.Create(&theme); err != nil {
		if domain.IsInputError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("theme", theme.Name).Msg("Failed to create theme")
		http.Error(w, "Failed to create theme", http.StatusInternalServerError)
		return
	}

	if h.eventManager != nil {
		h.eventManager.EmitTyped(events.ThemesChanged, "themes", &events.ThemesChangedData{
			Action: "created",
			Name:   theme.Name,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(theme)
}

// HandleUpdate handles PUT /api/themes/{name} - partial update
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var update ThemeUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	theme, err := h.repo.Get(name)
	if err != nil {
		h.log.Error().Err(err).Str("theme", name).Msg("Failed to load theme for update")
		http.Error(w, "Failed to update theme", http.StatusInternalServerError)
		return
	}
	if theme == nil {
		http.Error(w, fmt.Sprintf("Theme '%s' not found", name), http.StatusNotFound)
		return
	}

	update.ApplyTo(theme)

	if err := h.repo.Update(name, theme); err != nil {
		if domain.IsInputError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, fmt.Sprintf("Theme '%s' not found", name), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("theme", name).Msg("Failed to update theme")
		http.Error(w, "Failed to update theme", http.StatusInternalServerError)
		return
	}

	if h.eventManager != nil {
		h.eventManager.EmitTyped(events.ThemesChanged, "themes", &events.ThemesChangedData{
			Action: "updated",
			Name:   name,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(theme)
}

// HandleDelete handles DELETE /api/themes/{name} - soft delete
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.repo.Delete(name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, fmt.Sprintf("Theme '%s' not found", name), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("theme", name).Msg("Failed to delete theme")
		http.Error(w, "Failed to delete theme", http.StatusInternalServerError)
		return
	}

	if h.eventManager != nil {
		h.eventManager.EmitTyped(events.ThemesChanged, "themes", &events.ThemesChangedData{
			Action: "deleted",
			Name:   name,
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSeed handles POST /api/themes/seed - insert missing default themes
func (h *Handler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	created, skipped, err := h.repo.SeedDefaults()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to seed themes")
		http.Error(w, "Failed to seed themes", http.StatusInternalServerError)
		return
	}

	if h.eventManager != nil && created > 0 {
		h.eventManager.EmitTyped(events.ThemesChanged, "themes", &events.ThemesChangedData{
			Action: "seeded",
			Count:  created,
		})
	}

	response := map[string]interface{}{
		"status":  "success",
		"created": created,
		"skipped": skipped,
		"message": fmt.Sprintf("Seeded %d themes, skipped %d existing themes", created, skipped),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}
