package events

import (
	"github.com/dropfour/arena/internal/engine"
	"github.com/dropfour/arena/internal/models"
)

// Payload types shared between the orchestrator and gateway packages.

// PlayerInfo describes one seat of a game in outbound payloads.
type PlayerInfo struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Disc     engine.Disc `json:"disc"`
	IsBot    bool        `json:"is_bot"`
}

// PlayerInfoFrom builds a PlayerInfo from a participant.
func PlayerInfoFrom(p *models.Participant) PlayerInfo {
	if p == nil {
		return PlayerInfo{}
	}
	return PlayerInfo{
		ID:       p.ID.String(),
		Username: p.Username,
		Disc:     p.Disc,
		IsBot:    p.IsBot,
	}
}

// WaitingForOpponentPayload tells a queued caller to hold on.
type WaitingForOpponentPayload struct {
	TimeoutMs int64 `json:"timeout_ms"`
}

// GameFoundPayload announces a pairing. Personalized per connection: You is
// always the receiving side.
type GameFoundPayload struct {
	GameID      string       `json:"game_id"`
	You         PlayerInfo   `json:"you"`
	Opponent    PlayerInfo   `json:"opponent"`
	CurrentTurn engine.Disc  `json:"current_turn"`
	Board       engine.Board `json:"board"`
}

// MoveMadePayload broadcasts an accepted placement and the resulting board.
type MoveMadePayload struct {
	GameID     string       `json:"game_id"`
	PlayerID   string       `json:"player_id"`
	Column     int          `json:"column"`
	Row        int          `json:"row"`
	Disc       engine.Disc  `json:"disc"`
	Board      engine.Board `json:"board"`
	NextTurn   engine.Disc  `json:"next_turn"`
	MoveNumber int          `json:"move_number"`
}

// GameOverPayload broadcasts a terminal outcome.
type GameOverPayload struct {
	GameID     string         `json:"game_id"`
	Outcome    models.Outcome `json:"outcome"`
	WinnerID   *string        `json:"winner_id,omitempty"`
	WinnerName *string        `json:"winner_name,omitempty"`
	Board      engine.Board   `json:"board"`
	DurationMs int64          `json:"duration_ms"`
}

// GameRejoinedPayload replies to a successful reconnect with current state.
type GameRejoinedPayload struct {
	GameID      string            `json:"game_id"`
	You         PlayerInfo        `json:"you"`
	Opponent    PlayerInfo        `json:"opponent"`
	CurrentTurn engine.Disc       `json:"current_turn"`
	Board       engine.Board      `json:"board"`
	Status      models.GameStatus `json:"status"`
}

// OpponentDisconnectedPayload warns the remaining side that its peer
// dropped and how long the grace period runs.
type OpponentDisconnectedPayload struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	GraceMs  int64  `json:"grace_ms"`
}

// ErrorPayload carries a single recoverable failure to its caller.
type ErrorPayload struct {
	Message string `json:"message"`
}

// FindMatchRequest is the find_match command body.
type FindMatchRequest struct {
	Username string `json:"username"`
}

// MakeMoveRequest is the make_move command body.
type MakeMoveRequest struct {
	GameID string `json:"game_id"`
	Column int    `json:"column"`
}

// RejoinGameRequest is the rejoin_game command body.
type RejoinGameRequest struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}
