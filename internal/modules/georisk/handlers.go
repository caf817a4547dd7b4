package georisk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/argus/internal/domain"
)

const wsMessageTimeout = 10 * time.Second

// Handler provides HTTP handlers for the analysis pipeline endpoints
type Handler struct {
	engine *Engine
	recent *RecentStore
	log    zerolog.Logger
}

// NewHandler creates a new georisk handler
func NewHandler(engine *Engine, recent *RecentStore, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		recent: recent,
		log:    log.With().Str("handler", "georisk").Logger(),
	}
}

// RegisterRoutes registers all analysis pipeline routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/geo-risk", func(r chi.Router) {
		r.Post("/scan-detailed", h.HandleScanDetailed)
		r.Post("/scan-detailed-stream", h.HandleScanDetailedStream)
		r.Get("/scan-detailed-ws", h.HandleScanDetailedWS)
		r.Get("/scans", h.HandleListScans)
		r.Get("/scans/{scanID}", h.HandleGetScan)
	})
}

// scanRequest is the body for the scan endpoints.
type scanRequest struct {
	Holding       domain.Holding `json:"holding"`
	RiskTolerance string         `json:"risk_tolerance"`
	DaysLookback  int            `json:"days_lookback"`
}

// HandleScanDetailed handles POST /api/geo-risk/scan-detailed - run the
// full pipeline and return the detailed result
func (h *Handler) HandleScanDetailed(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tolerance := domain.ParseRiskTolerance(req.RiskTolerance)

	result, err := h.engine.RunPipeline(r.Context(), req.Holding, tolerance, req.DaysLookback)
	if err != nil {
		if domain.IsInputError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("holding", req.Holding.Name).Msg("Pipeline failed")
		http.Error(w, "Analysis failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleScanDetailedStream handles POST /api/geo-risk/scan-detailed-stream -
// run the pipeline and stream step events as SSE
func (h *Handler) HandleScanDetailedStream(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable nginx buffering
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	tolerance := domain.ParseRiskTolerance(req.RiskTolerance)

	h.engine.RunPipelineStream(r.Context(), req.Holding, tolerance, req.DaysLookback, func(update StepUpdate) {
		payload, err := json.Marshal(update)
		if err != nil {
			h.log.Error().Err(err).Str("step", update.StepID).Msg("Failed to marshal step update")
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	})
}

// HandleScanDetailedWS handles GET /api/geo-risk/scan-detailed-ws - accept a
// WebSocket connection, read one scan request and stream step events back
// as JSON text messages.
func (h *Handler) HandleScanDetailedWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()

	readCtx, cancel := context.WithTimeout(ctx, wsMessageTimeout)
	defer cancel()
	msgType, data, err := conn.Read(readCtx)
	if err != nil {
		h.log.Debug().Err(err).Msg("WebSocket read failed")
		return
	}
	if msgType != websocket.MessageText {
		conn.Close(websocket.StatusUnsupportedData, "expected a JSON text message")
		return
	}

	var req scanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "invalid request payload")
		return
	}

	tolerance := domain.ParseRiskTolerance(req.RiskTolerance)

	h.engine.RunPipelineStream(ctx, req.Holding, tolerance, req.DaysLookback, func(update StepUpdate) {
		payload, err := json.Marshal(update)
		if err != nil {
			h.log.Error().Err(err).Str("step", update.StepID).Msg("Failed to marshal step update")
			return
		}
		writeCtx, cancel := context.WithTimeout(ctx, wsMessageTimeout)
		defer cancel()
		if err := conn.Write(writeCtx, websocket.MessageText, payload); err != nil {
			h.log.Debug().Err(err).Str("step", update.StepID).Msg("WebSocket write failed")
		}
	})

	conn.Close(websocket.StatusNormalClosure, "")
}

// HandleListScans handles GET /api/geo-risk/scans - list recent scans,
// newest first
func (h *Handler) HandleListScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	scans := h.recent.List(limit)
	if scans == nil {
		scans = []*DetailedResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(scans)
}

// HandleGetScan handles GET /api/geo-risk/scans/{scanID}
func (h *Handler) HandleGetScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	result, ok := h.recent.Get(scanID)
	if !ok {
		http.Error(w, "Scan not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
