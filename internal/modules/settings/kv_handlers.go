package settings

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/argus/internal/domain"
	"github.com/aristath/argus/internal/events"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// KVHandler provides HTTP handlers for the key-value settings endpoints
type KVHandler struct {
	service      *Service
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewKVHandler creates a new key-value settings handler
func NewKVHandler(service *Service, eventManager *events.Manager, log zerolog.Logger) *KVHandler {
	return &KVHandler{
		service:      service,
		eventManager: eventManager,
		log:          log.With().Str("handler", "settings").Logger(),
	}
}

// RegisterRoutes registers all key-value settings routes
func (h *KVHandler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.HandleGetAll)
		r.Put("/{key}", h.HandleUpdate)
		r.Delete("/{key}", h.HandleReset)
	})
}

// HandleGetAll handles GET /api/settings - every known setting with
// stored overrides applied
func (h *KVHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get settings")
		http.Error(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(all)
}

// HandleUpdate handles PUT /api/settings/{key}
func (h *KVHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var update SettingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Set(key, update.Value); err != nil {
		if domain.IsInputError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("key", key).Msg("Failed to update setting")
		http.Error(w, "Failed to update setting", http.StatusInternalServerError)
		return
	}

	h.emitChanged(key, update.Value)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{key: update.Value})
}

// HandleReset handles DELETE /api/settings/{key} - drop the stored
// override so the key falls back to its default
func (h *KVHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	defaultValue, err := h.service.Reset(key)
	if err != nil {
		if domain.IsInputError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("key", key).Msg("Failed to reset setting")
		http.Error(w, "Failed to reset setting", http.StatusInternalServerError)
		return
	}

	h.emitChanged(key, defaultValue)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{key: defaultValue})
}

func (h *KVHandler) emitChanged(key string, value interface{}) {
	if h.eventManager == nil {
		return
	}
	h.eventManager.EmitTyped(events.SettingsChanged, "settings", &events.SettingsChangedData{
		Key:   key,
		Value: value,
	})
}
