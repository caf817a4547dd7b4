package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/argus/internal/events"
	"github.com/aristath/argus/internal/utils"
	"github.com/rs/zerolog"
)

// streamableEventTypes are the events forwarded over the unified stream
// when the client does not narrow the set with ?types=.
var streamableEventTypes = []events.EventType{
	events.ScanStarted,
	events.ScanProgress,
	events.ScanCompleted,
	events.ScanFailed,
	events.IngestionStarted,
	events.IngestionCompleted,
	events.CorpusUpdated,
	events.SettingsChanged,
	events.ScoringSettingsChanged,
	events.ThemesChanged,
	events.JobCompleted,
	events.JobFailed,
	events.BackupCompleted,
	events.SystemStatusChanged,
	events.ErrorOccurred,
}

// EventsStreamHandler handles unified Server-Sent Events (SSE) streaming for all system events.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new unified events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	subscribed := h.subscribedTypes(r.URL.Query().Get("types"))

	h.log.Info().
		Int("types", len(subscribed)).
		Msg("Client connected to unified event stream")

	// Buffered so a slow client never blocks the emitter; overflow drops.
	eventChan := make(chan *events.Event, 100)
	eventHandler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	// Per-connection subscriptions, removed again on disconnect.
	subscriptions := make(map[events.EventType]int, len(subscribed))
	for _, eventType := range subscribed {
		subscriptions[eventType] = h.eventBus.Subscribe(eventType, eventHandler)
	}
	defer func() {
		for eventType, id := range subscriptions {
			h.eventBus.Unsubscribe(eventType, id)
		}
	}()

	done := r.Context().Done()

	// Send initial connection message
	fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to unified event stream",
	}))
	flusher.Flush()

	// Heartbeat ticker to keep connection alive
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			eventJSON := h.encodeEvent(map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			})

			fmt.Fprintf(w, "data: %s\n\n", eventJSON)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}))
			flusher.Flush()
		}
	}
}

// subscribedTypes resolves the ?types= filter to the event types this
// connection receives. Unknown names are ignored; an empty or all-unknown
// filter selects every streamable type.
func (h *EventsStreamHandler) subscribedTypes(typesFilter string) []events.EventType {
	if typesFilter == "" {
		return streamableEventTypes
	}

	known := make(map[events.EventType]bool, len(streamableEventTypes))
	for _, t := range streamableEventTypes {
		known[t] = true
	}

	var selected []events.EventType
	for _, raw := range utils.ParseCSV(typesFilter) {
		t := events.EventType(raw)
		if known[t] {
			selected = append(selected, t)
		} else {
			h.log.Debug().Str("event_type", string(t)).Msg("Ignoring unknown event type in filter")
		}
	}
	if len(selected) == 0 {
		return streamableEventTypes
	}
	return selected
}

// encodeEvent encodes an event map to JSON string.
func (h *EventsStreamHandler) encodeEvent(event map[string]interface{}) string {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}
