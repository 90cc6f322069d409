package events

import (
	"time"

	"github.com/dropfour/arena/internal/models"
)

// Analytics fact types. Facts are fire-and-forget records published for the
// analytics collaborator; they never affect core state.

const (
	FactGameStarted        = "game_started"
	FactGameEnded          = "game_ended"
	FactMoveMade           = "move_made"
	FactPlayerDisconnected = "player_disconnected"
	FactPlayerReconnected  = "player_reconnected"
)

// GameStartedFact records a completed pairing.
type GameStartedFact struct {
	GameID    string       `json:"game_id"`
	Players   []PlayerInfo `json:"players"`
	VsBot     bool         `json:"vs_bot"`
	StartedAt time.Time    `json:"started_at"`
}

// GameEndedFact records a terminal outcome.
type GameEndedFact struct {
	GameID     string         `json:"game_id"`
	Outcome    models.Outcome `json:"outcome"`
	WinnerID   *string        `json:"winner_id,omitempty"`
	Moves      int            `json:"moves"`
	DurationMs int64          `json:"duration_ms"`
	EndedAt    time.Time      `json:"ended_at"`
}

// MoveFact records one accepted placement.
type MoveFact struct {
	GameID     string    `json:"game_id"`
	PlayerID   string    `json:"player_id"`
	Column     int       `json:"column"`
	Row        int       `json:"row"`
	MoveNumber int       `json:"move_number"`
	At         time.Time `json:"at"`
}

// PlayerDisconnectedFact records the start of a grace period.
type PlayerDisconnectedFact struct {
	GameID   string    `json:"game_id"`
	PlayerID string    `json:"player_id"`
	At       time.Time `json:"at"`
}

// PlayerReconnectedFact records a successful rejoin.
type PlayerReconnectedFact struct {
	GameID   string    `json:"game_id"`
	PlayerID string    `json:"player_id"`
	At       time.Time `json:"at"`
}
