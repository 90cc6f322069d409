package session

import (
	"github.com/dropfour/arena/internal/models"
)

// MoveOutcome classifies the result of an accepted move.
type MoveOutcome string

const (
	MoveOutcomeOngoing MoveOutcome = "ONGOING"
	MoveOutcomeWin     MoveOutcome = "WIN"
	MoveOutcomeDraw    MoveOutcome = "DRAW"
)

// MoveResult carries the placement position, the outcome classification and
// a snapshot of the session after the move.
type MoveResult struct {
	Game    *models.Game
	Row     int
	Column  int
	Outcome MoveOutcome
}

// EndsGame reports whether the move reached a terminal status.
func (r MoveResult) EndsGame() bool {
	return r.Outcome != MoveOutcomeOngoing
}
