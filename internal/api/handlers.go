package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yegors/scribe/internal/config"
	"github.com/yegors/scribe/internal/storage/sqlite"
	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/internal/websocket"
	"github.com/yegors/scribe/pkg/logger"
)

// Transcriber runs one transcription request to completion
type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) *transcription.Result
}

// Handler contains the API handlers
type Handler struct {
	transcriber          Transcriber
	transcriptionStorage *sqlite.TranscriptionStorage // nil when history is disabled
	wsServer             *websocket.Server            // nil when no hub is running
	config               *config.Config
	logger               *logger.Logger
	startedAt            time.Time
}

// NewHandler creates a new API handler
func NewHandler(transcriber Transcriber, transcriptionStorage *sqlite.TranscriptionStorage, wsServer *websocket.Server, config *config.Config, logger *logger.Logger) *Handler {
	return &Handler{
		transcriber:          transcriber,
		transcriptionStorage: transcriptionStorage,
		wsServer:             wsServer,
		config:               config,
		logger:               logger.Named("api-handler"),
		startedAt:            time.Now(),
	}
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":          "ok",
		"provider":        h.config.Transcription.Provider,
		"uptime_seconds":  int(time.Since(h.startedAt).Seconds()),
		"storage_enabled": h.transcriptionStorage != nil,
	}
	if h.wsServer != nil {
		response["ws_clients"] = h.wsServer.ClientCount()
	}

	WriteJSON(w, http.StatusOK, response)
}

// HandleWebSocket handles WebSocket connections
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsServer == nil {
		http.Error(w, "WebSocket updates are disabled", http.StatusServiceUnavailable)
		return
	}
	h.wsServer.HandleConnection(w, r)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
