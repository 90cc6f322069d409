package session

import "errors"

var (
	// ErrGameNotFound is returned when no session exists under the id.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameNotWaiting is returned by Join when the session already started
	// or finished.
	ErrGameNotWaiting = errors.New("game is not waiting for players")
	// ErrGameFull is returned by Join when the second seat is taken.
	ErrGameFull = errors.New("game already has two players")
	// ErrGameNotActive is returned by operations that require an in-progress
	// session.
	ErrGameNotActive = errors.New("game is not in progress")
	// ErrPlayerNotFound is returned when the player id holds no seat in the
	// session.
	ErrPlayerNotFound = errors.New("player is not part of this game")
	// ErrNotYourTurn is returned when a move arrives out of turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrInvalidColumn is returned when a move names a column that is out of
	// range or full.
	ErrInvalidColumn = errors.New("column is out of range or full")
	// ErrStaleDisconnect marks a forfeiture firing that lost its race with a
	// reconnect or a finished game. Callers treat it as a no-op.
	ErrStaleDisconnect = errors.New("disconnect marker no longer current")
)
