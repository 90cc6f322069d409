package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dropfour/arena/internal/engine"
)

// GameStatus defines the lifecycle status of a game session. Transitions
// only move forward: WAITING -> IN_PROGRESS -> {COMPLETED, FORFEITED}.
type GameStatus string

const (
	GameStatusWaiting    GameStatus = "WAITING"
	GameStatusInProgress GameStatus = "IN_PROGRESS"
	GameStatusCompleted  GameStatus = "COMPLETED"
	GameStatusForfeited  GameStatus = "FORFEITED"
)

// Terminal reports whether the status is final.
func (s GameStatus) Terminal() bool {
	return s == GameStatusCompleted || s == GameStatusForfeited
}

// Outcome describes how a finished game ended.
type Outcome string

const (
	OutcomeWin     Outcome = "WIN"
	OutcomeDraw    Outcome = "DRAW"
	OutcomeForfeit Outcome = "FORFEIT"
)

// Participant is one side of a game session. ID is the durable player
// identity; ConnID is the transient connection handle, replaced on
// reconnect and empty for bots.
type Participant struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	Disc     engine.Disc `json:"disc"`
	IsBot    bool        `json:"is_bot"`
	ConnID   string      `json:"-"`
}

// Game is a single two-party session. Player2 is nil only while the session
// is WAITING.
type Game struct {
	ID             uuid.UUID    `json:"id"`
	Status         GameStatus   `json:"status"`
	Board          engine.Board `json:"board"`
	Player1        *Participant `json:"player1"`
	Player2        *Participant `json:"player2,omitempty"`
	CurrentTurn    engine.Disc  `json:"current_turn"`
	WinnerID       *uuid.UUID   `json:"winner_id,omitempty"`
	MoveCount      int          `json:"move_count"`
	CreatedAt      time.Time    `json:"created_at"`
	LastMoveAt     time.Time    `json:"last_move_at"`
	DisconnectedID *uuid.UUID   `json:"-"`
}

// ParticipantByID returns the seat holding id, or nil.
func (g *Game) ParticipantByID(id uuid.UUID) *Participant {
	if g.Player1 != nil && g.Player1.ID == id {
		return g.Player1
	}
	if g.Player2 != nil && g.Player2.ID == id {
		return g.Player2
	}
	return nil
}

// ParticipantByDisc returns the seat playing d, or nil.
func (g *Game) ParticipantByDisc(d engine.Disc) *Participant {
	if g.Player1 != nil && g.Player1.Disc == d {
		return g.Player1
	}
	if g.Player2 != nil && g.Player2.Disc == d {
		return g.Player2
	}
	return nil
}

// ParticipantByConn returns the seat bound to the connection handle, or nil.
// Bots never match: their handle is empty.
func (g *Game) ParticipantByConn(connID string) *Participant {
	if connID == "" {
		return nil
	}
	if g.Player1 != nil && g.Player1.ConnID == connID {
		return g.Player1
	}
	if g.Player2 != nil && g.Player2.ConnID == connID {
		return g.Player2
	}
	return nil
}

// Opponent returns the other seat relative to id, or nil.
func (g *Game) Opponent(id uuid.UUID) *Participant {
	if g.Player1 != nil && g.Player1.ID == id {
		return g.Player2
	}
	if g.Player2 != nil && g.Player2.ID == id {
		return g.Player1
	}
	return nil
}

// Clone returns a deep copy. The board is an array and copies by value;
// participants are re-allocated so callers can never reach registry state.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	if g.Player1 != nil {
		p1 := *g.Player1
		c.Player1 = &p1
	}
	if g.Player2 != nil {
		p2 := *g.Player2
		c.Player2 = &p2
	}
	if g.WinnerID != nil {
		w := *g.WinnerID
		c.WinnerID = &w
	}
	if g.DisconnectedID != nil {
		d := *g.DisconnectedID
		c.DisconnectedID = &d
	}
	return &c
}

// GameRecord is the denormalized summary persisted for a finished session.
// Participant names are carried inline: bot identities have no player row.
type GameRecord struct {
	ID          uuid.UUID  `json:"id"`
	Player1ID   uuid.UUID  `json:"player1_id"`
	Player1Name string     `json:"player1_name"`
	Player2ID   uuid.UUID  `json:"player2_id"`
	Player2Name string     `json:"player2_name"`
	VsBot       bool       `json:"vs_bot"`
	Outcome     Outcome    `json:"outcome"`
	WinnerID    *uuid.UUID `json:"winner_id,omitempty"`
	Moves       int        `json:"moves"`
	DurationMs  int64      `json:"duration_ms"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     time.Time  `json:"ended_at"`
}
