package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dropfour/arena/internal/models"
)

// GameLister defines what the state handler needs from the session registry.
type GameLister interface {
	ListActive() []*models.Game
	Len() int
}

// LeaderboardProvider defines what the state handler needs from the players service.
type LeaderboardProvider interface {
	TopPlayers(ctx context.Context, limit int) ([]*models.Player, error)
}

// RecentGamesProvider defines what the state handler needs from the history service.
type RecentGamesProvider interface {
	RecentGames(ctx context.Context, limit int) ([]*models.GameRecord, error)
}

// StateHandler serves read-only HTTP views of live and finished games
type StateHandler struct {
	games       GameLister
	leaderboard LeaderboardProvider
	recent      RecentGamesProvider
}

// NewStateHandler creates a new state API handler
func NewStateHandler(games GameLister, leaderboard LeaderboardProvider, recent RecentGamesProvider) *StateHandler {
	return &StateHandler{
		games:       games,
		leaderboard: leaderboard,
		recent:      recent,
	}
}

// ActiveGameSummary is the REST view of a live session
type ActiveGameSummary struct {
	GameID      string    `json:"game_id"`
	Status      string    `json:"status"`
	Player1     string    `json:"player1"`
	Player2     string    `json:"player2,omitempty"`
	VsBot       bool      `json:"vs_bot"`
	CurrentTurn string    `json:"current_turn"`
	MoveCount   int       `json:"move_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActiveGamesResponse lists live sessions, newest first
type ActiveGamesResponse struct {
	Count int                 `json:"count"`
	Games []ActiveGameSummary `json:"games"`
}

// LeaderboardResponse lists players ranked by wins
type LeaderboardResponse struct {
	Players []*models.Player `json:"players"`
}

// RecentGamesResponse lists finished games, most recent first
type RecentGamesResponse struct {
	Games []*models.GameRecord `json:"games"`
}

// RegisterStateRoutes registers the read-only API endpoints
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/games/active", h.handleActiveGames)
	mux.HandleFunc("/api/games/recent", h.handleRecentGames)
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
}

// handleActiveGames returns every waiting or in-progress session
func (h *StateHandler) handleActiveGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	games := h.games.ListActive()
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.After(games[j].CreatedAt)
	})

	response := ActiveGamesResponse{
		Count: len(games),
		Games: make([]ActiveGameSummary, 0, len(games)),
	}
	for _, g := range games {
		summary := ActiveGameSummary{
			GameID:      g.ID.String(),
			Status:      string(g.Status),
			Player1:     g.Player1.Username,
			VsBot:       g.Player1.IsBot,
			CurrentTurn: g.CurrentTurn.String(),
			MoveCount:   g.MoveCount,
			CreatedAt:   g.CreatedAt,
		}
		if g.Player2 != nil {
			summary.Player2 = g.Player2.Username
			summary.VsBot = summary.VsBot || g.Player2.IsBot
		}
		response.Games = append(response.Games, summary)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("failed to encode active games response")
	}
}

// handleLeaderboard returns players ranked by wins
func (h *StateHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	players, err := h.leaderboard.TopPlayers(r.Context(), parseLimit(r))
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch leaderboard")
		http.Error(w, "Failed to fetch leaderboard", http.StatusInternalServerError)
		return
	}
	if players == nil {
		players = []*models.Player{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(LeaderboardResponse{Players: players}); err != nil {
		log.Error().Err(err).Msg("failed to encode leaderboard response")
	}
}

// handleRecentGames returns the most recently finished games
func (h *StateHandler) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	games, err := h.recent.RecentGames(r.Context(), parseLimit(r))
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch recent games")
		http.Error(w, "Failed to fetch recent games", http.StatusInternalServerError)
		return
	}
	if games == nil {
		games = []*models.GameRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(RecentGamesResponse{Games: games}); err != nil {
		log.Error().Err(err).Msg("failed to encode recent games response")
	}
}

// parseLimit reads the optional limit query parameter. Zero means the
// provider's default; providers clamp out-of-range values themselves.
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
