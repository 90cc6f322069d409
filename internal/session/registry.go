package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dropfour/arena/internal/engine"
	"github.com/dropfour/arena/internal/models"
)

// Clock is the interface the registry uses for timestamps. In production,
// clockwork.NewRealClock(); in tests, a FakeClock.
type Clock interface {
	Now() time.Time
}

// gameState pairs the authoritative game with runtime bookkeeping that
// never leaves the registry: the pending forfeiture timer and the
// disconnect generation that invalidates stale firings.
type gameState struct {
	game          *models.Game
	forfeitTimer  clockwork.Timer
	disconnectGen uint64
}

// Registry owns the authoritative in-memory state of every live session.
// Every operation is a single short critical section under one mutex, and
// every returned Game is a deep copy: callers never hold a reference into
// registry state.
type Registry struct {
	mu    sync.RWMutex
	games map[uuid.UUID]*gameState
	clock Clock
}

// NewRegistry creates an empty session registry.
func NewRegistry(clock Clock) *Registry {
	return &Registry{
		games: make(map[uuid.UUID]*gameState),
		clock: clock,
	}
}

// Create registers a new waiting session owned by p. The creator takes the
// first seat and the first turn.
func (r *Registry) Create(p *models.Participant) *models.Game {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat := *p
	seat.Disc = engine.DiscOne
	now := r.clock.Now()

	game := &models.Game{
		ID:          uuid.New(),
		Status:      models.GameStatusWaiting,
		Player1:     &seat,
		CurrentTurn: seat.Disc,
		CreatedAt:   now,
		LastMoveAt:  now,
	}
	r.games[game.ID] = &gameState{game: game}

	log.Debug().
		Str("game_id", game.ID.String()).
		Str("player_id", seat.ID.String()).
		Msg("session created")

	return game.Clone()
}

// Join seats p as the second participant and starts the game.
func (r *Registry) Join(gameID uuid.UUID, p *models.Participant) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	if st.game.Status != models.GameStatusWaiting {
		return nil, ErrGameNotWaiting
	}
	if st.game.Player2 != nil {
		return nil, ErrGameFull
	}

	seat := *p
	seat.Disc = engine.DiscTwo
	st.game.Player2 = &seat
	st.game.Status = models.GameStatusInProgress

	return st.game.Clone(), nil
}

// Move validates and applies one placement for playerID. On success the
// session either stays in progress with the turn flipped, or reaches a
// terminal status (win or draw). Nothing mutates on failure.
func (r *Registry) Move(gameID, playerID uuid.UUID, column int) (MoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.games[gameID]
	if !ok {
		return MoveResult{}, ErrGameNotFound
	}
	game := st.game
	if game.Status != models.GameStatusInProgress {
		return MoveResult{}, ErrGameNotActive
	}
	mover := game.ParticipantByID(playerID)
	if mover == nil {
		return MoveResult{}, ErrPlayerNotFound
	}
	if mover.Disc != game.CurrentTurn {
		return MoveResult{}, ErrNotYourTurn
	}
	row, ok := game.Board.DropRow(column)
	if !ok {
		return MoveResult{}, ErrInvalidColumn
	}

	game.Board[row][column] = mover.Disc
	game.MoveCount++
	game.LastMoveAt = r.clock.Now()

	res := MoveResult{Row: row, Column: column, Outcome: MoveOutcomeOngoing}
	switch {
	case game.Board.IsWinningPlacement(row, column):
		game.Status = models.GameStatusCompleted
		winner := mover.ID
		game.WinnerID = &winner
		res.Outcome = MoveOutcomeWin
		r.clearDisconnectLocked(st)
	case game.Board.IsFull():
		game.Status = models.GameStatusCompleted
		res.Outcome = MoveOutcomeDraw
		r.clearDisconnectLocked(st)
	default:
		game.CurrentTurn = game.CurrentTurn.Opponent()
	}

	res.Game = game.Clone()
	return res, nil
}

// Forfeit ends an in-progress session in favor of playerID's opponent. A
// no-op on any other status: the current snapshot comes back unchanged.
func (r *Registry) Forfeit(gameID, playerID uuid.UUID) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	if st.game.ParticipantByID(playerID) == nil {
		return nil, ErrPlayerNotFound
	}
	if st.game.Status != models.GameStatusInProgress {
		return st.game.Clone(), nil
	}

	r.forfeitLocked(st, playerID)
	return st.game.Clone(), nil
}

// MarkDisconnected records playerID as disconnected on an in-progress
// session and returns the new disconnect generation. The caller arms the
// forfeiture timer against that generation.
func (r *Registry) MarkDisconnected(gameID, playerID uuid.UUID) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.games[gameID]
	if !ok {
		return 0, ErrGameNotFound
	}
	if st.game.Status != models.GameStatusInProgress {
		return 0, ErrGameNotActive
	}
	if st.game.ParticipantByID(playerID) == nil {
		return 0, ErrPlayerNotFound
	}

	if st.forfeitTimer != nil {
		st.forfeitTimer.Stop()
		st.forfeitTimer = nil
	}
	id := playerID
	st.game.DisconnectedID = &id
	st.disconnectGen++
	return st.disconnectGen, nil
}

// SetForfeitTimer stores the armed forfeiture timer for gen. A timer that
// arrives for a superseded generation is stopped instead: the reconnect or
// re-disconnect that bumped the generation already owns the session.
func (r *Registry) SetForfeitTimer(gameID uuid.UUID, gen uint64, t clockwork.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.games[gameID]
	if !ok || st.disconnectGen != gen || st.game.DisconnectedID == nil {
		t.Stop()
		return
	}
	if st.forfeitTimer != nil {
		st.forfeitTimer.Stop()
	}
	st.forfeitTimer = t
}

// ClearDisconnected removes the disconnect marker for playerID and cancels
// its forfeiture timer. Idempotent: clearing an absent or foreign marker
// changes nothing.
func (r *Registry) ClearDisconnected(gameID, playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.games[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if st.game.DisconnectedID != nil && *st.game.DisconnectedID == playerID {
		r.clearDisconnectLocked(st)
	}
	return nil
}

// ForfeitExpired is the grace-timer path: it forfeits only when the session
// is still in progress and the marker still names playerID at generation
// gen. Anything else returns ErrStaleDisconnect, which callers treat as a
// benign race.
func (r *Registry) ForfeitExpired(gameID, playerID uuid.UUID, gen uint64) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	if st.game.Status != models.GameStatusInProgress ||
		st.game.DisconnectedID == nil ||
		*st.game.DisconnectedID != playerID ||
		st.disconnectGen != gen {
		return nil, ErrStaleDisconnect
	}

	r.forfeitLocked(st, playerID)
	return st.game.Clone(), nil
}

// Reattach rebinds playerID's connection handle after a reconnect, clearing
// any disconnect marker and cancelling its timer. Board, turn and
// identities stay untouched. Terminal sessions reject the rejoin.
func (r *Registry) Reattach(gameID, playerID uuid.UUID, connID string) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	if st.game.Status.Terminal() {
		return nil, ErrGameNotActive
	}
	seat := st.game.ParticipantByID(playerID)
	if seat == nil {
		return nil, ErrPlayerNotFound
	}

	seat.ConnID = connID
	if st.game.DisconnectedID != nil && *st.game.DisconnectedID == playerID {
		r.clearDisconnectLocked(st)
	}
	return st.game.Clone(), nil
}

// Get returns a snapshot of the session.
func (r *Registry) Get(gameID uuid.UUID) (*models.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return st.game.Clone(), nil
}

// ListActive returns snapshots of every waiting or in-progress session.
func (r *Registry) ListActive() []*models.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Game
	for _, st := range r.games {
		if !st.game.Status.Terminal() {
			out = append(out, st.game.Clone())
		}
	}
	return out
}

// FindByConn returns the waiting or in-progress session holding the
// connection handle, or nil.
func (r *Registry) FindByConn(connID string) *models.Game {
	if connID == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, st := range r.games {
		if st.game.Status.Terminal() {
			continue
		}
		if st.game.ParticipantByConn(connID) != nil {
			return st.game.Clone()
		}
	}
	return nil
}

// Delete removes the session entirely, stopping any pending forfeiture
// timer. Idempotent.
func (r *Registry) Delete(gameID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.games[gameID]
	if !ok {
		return
	}
	if st.forfeitTimer != nil {
		st.forfeitTimer.Stop()
	}
	delete(r.games, gameID)

	log.Debug().Str("game_id", gameID.String()).Msg("session deleted")
}

// Len returns the number of live sessions, terminal-but-uncollected ones
// included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// forfeitLocked transitions st to FORFEITED with the opponent as winner.
// Caller holds the write lock.
func (r *Registry) forfeitLocked(st *gameState, loserID uuid.UUID) {
	st.game.Status = models.GameStatusForfeited
	if opp := st.game.Opponent(loserID); opp != nil {
		winner := opp.ID
		st.game.WinnerID = &winner
	}
	r.clearDisconnectLocked(st)
}

// clearDisconnectLocked drops the marker, invalidates the generation and
// stops the timer. Caller holds the write lock.
func (r *Registry) clearDisconnectLocked(st *gameState) {
	st.game.DisconnectedID = nil
	st.disconnectGen++
	if st.forfeitTimer != nil {
		st.forfeitTimer.Stop()
		st.forfeitTimer = nil
	}
}
