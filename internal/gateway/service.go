package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service bundles the WebSocket transport and the read-only state API.
type Service struct {
	connectionManager *ConnectionManager
	websocketHandler  *WebSocketHandler
	stateHandler      *StateHandler
}

// NewService creates the gateway service. The connection manager starts
// unbound; wire the game core with ConnectionManager().SetApp before
// serving.
func NewService(cfg ConnectionConfig, games GameLister, leaderboard LeaderboardProvider, recent RecentGamesProvider) *Service {
	cm := NewConnectionManager(cfg)
	return &Service{
		connectionManager: cm,
		websocketHandler:  NewWebSocketHandler(cm),
		stateHandler:      NewStateHandler(games, leaderboard, recent),
	}
}

// ConnectionManager exposes the transport so the game core can use it
// as its notifier.
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.connectionManager
}

// Start begins delivering outbound events. Blocks until ctx is done.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("gateway service starting")
	s.connectionManager.Start(ctx)
}

// RegisterRoutes registers all gateway HTTP endpoints
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.websocketHandler.RegisterWebSocketRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
}

// GetStats returns current connection statistics
func (s *Service) GetStats() map[string]interface{} {
	return s.connectionManager.GetConnectionStats()
}
