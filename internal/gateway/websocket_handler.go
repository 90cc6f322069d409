package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket connection upgrades
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// RegisterWebSocketRoutes registers WebSocket endpoints
func (h *WebSocketHandler) RegisterWebSocketRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.handleGameWebSocket)
	mux.HandleFunc("/ws/stats", h.handleWebSocketStats)
}

// handleGameWebSocket upgrades the connection. Clients identify
// themselves through commands after connecting, so no query
// parameters are required.
func (h *WebSocketHandler) handleGameWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := h.connectionManager.UpgradeConnection(w, r); err != nil {
		// Upgrade already wrote the HTTP error response
		log.Error().Err(err).Msg("WebSocket upgrade failed")
	}
}

// handleWebSocketStats returns connection statistics
func (h *WebSocketHandler) handleWebSocketStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}
