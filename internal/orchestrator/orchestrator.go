package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dropfour/arena/internal/engine"
	"github.com/dropfour/arena/internal/events"
	"github.com/dropfour/arena/internal/matchmaking"
	"github.com/dropfour/arena/internal/models"
	"github.com/dropfour/arena/internal/players"
	"github.com/dropfour/arena/internal/session"
)

var (
	ErrAlreadyQueued   = errors.New("connection already in matchmaking queue")
	ErrAlreadyInGame   = errors.New("connection already bound to a session")
	ErrMalformedGameID = errors.New("malformed game id")
)

// Notifier defines what the orchestrator needs from the transport layer.
type Notifier interface {
	JoinGame(connID string, gameID uuid.UUID)
	SendToConn(connID string, event *events.GameEvent)
	BroadcastToGame(gameID uuid.UUID, event *events.GameEvent)
}

// PlayerStore defines what the orchestrator needs from player persistence.
type PlayerStore interface {
	FindOrCreatePlayer(ctx context.Context, username string) (*models.Player, error)
	RecordWin(ctx context.Context, id uuid.UUID) error
	RecordLoss(ctx context.Context, id uuid.UUID) error
	RecordDraw(ctx context.Context, id uuid.UUID) error
}

// GameRecorder defines what the orchestrator needs from game history
// persistence.
type GameRecorder interface {
	RecordCompletedGame(ctx context.Context, rec models.GameRecord) error
}

// Facts defines the outbound analytics surface. Implementations own
// delivery and failure handling; gameplay never blocks on them.
type Facts interface {
	PublishGameStarted(ctx context.Context, fact events.GameStartedFact) error
	PublishGameEnded(ctx context.Context, fact events.GameEndedFact) error
	PublishMoveMade(ctx context.Context, fact events.MoveFact) error
	PublishPlayerDisconnected(ctx context.Context, fact events.PlayerDisconnectedFact) error
	PublishPlayerReconnected(ctx context.Context, fact events.PlayerReconnectedFact) error
}

// Clock abstracts time for deterministic tests.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) clockwork.Timer
}

// Config tunes the orchestrator's pacing timers.
type Config struct {
	// BotMoveDelay paces automated moves so humans can follow them.
	BotMoveDelay time.Duration

	// GracePeriod is how long a disconnected player may reconnect
	// before forfeiting.
	GracePeriod time.Duration

	// CleanupDelay keeps finished sessions visible long enough for
	// late notifications to land before deletion.
	CleanupDelay time.Duration
}

// DefaultConfig returns the production pacing settings.
func DefaultConfig() Config {
	return Config{
		BotMoveDelay: 500 * time.Millisecond,
		GracePeriod:  30 * time.Second,
		CleanupDelay: 5 * time.Second,
	}
}

// persistTimeout bounds fire-and-forget persistence work.
const persistTimeout = 5 * time.Second

// Orchestrator drives the session lifecycle: matchmaking, turn flow,
// automated opponents, disconnect grace periods, and end-of-game
// bookkeeping. All session mutation goes through the registry's atomic
// operations; collaborator failures are logged and never alter an
// already-decided outcome.
type Orchestrator struct {
	registry *session.Registry
	queue    *matchmaking.Queue
	notifier Notifier
	players  PlayerStore
	recorder GameRecorder
	facts    Facts
	clock    Clock
	cfg      Config
}

// New creates an Orchestrator.
func New(
	registry *session.Registry,
	queue *matchmaking.Queue,
	notifier Notifier,
	playerStore PlayerStore,
	recorder GameRecorder,
	facts Facts,
	clock Clock,
	cfg Config,
) *Orchestrator {
	if cfg.BotMoveDelay <= 0 {
		cfg.BotMoveDelay = DefaultConfig().BotMoveDelay
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultConfig().GracePeriod
	}
	if cfg.CleanupDelay <= 0 {
		cfg.CleanupDelay = DefaultConfig().CleanupDelay
	}
	return &Orchestrator{
		registry: registry,
		queue:    queue,
		notifier: notifier,
		players:  playerStore,
		recorder: recorder,
		facts:    facts,
		clock:    clock,
		cfg:      cfg,
	}
}

// Run consumes bot-substituted pairings from the queue and announces
// them. Blocks until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	log.Info().Msg("orchestrator started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("orchestrator stopped")
			return
		case game := <-o.queue.BotMatches():
			o.announcePairing(ctx, game)
			if cur := game.ParticipantByDisc(game.CurrentTurn); cur != nil && cur.IsBot {
				o.scheduleBotMove(game.ID)
			}
		}
	}
}

// FindMatch resolves the caller's identity and enters matchmaking.
func (o *Orchestrator) FindMatch(ctx context.Context, connID string, req events.FindMatchRequest) error {
	if o.queue.IsQueued(connID) {
		o.sendError(connID, uuid.Nil, ErrAlreadyQueued)
		return ErrAlreadyQueued
	}
	if g := o.registry.FindByConn(connID); g != nil {
		o.sendError(connID, g.ID, ErrAlreadyInGame)
		return ErrAlreadyInGame
	}

	player, err := o.players.FindOrCreatePlayer(ctx, req.Username)
	if err != nil {
		o.sendError(connID, uuid.Nil, err)
		return fmt.Errorf("find match: %w", err)
	}

	p := &models.Participant{
		ID:       player.ID,
		Username: player.Username,
		ConnID:   connID,
	}
	game, matched := o.queue.Enqueue(p)
	if !matched {
		evt, err := events.NewGameEvent(uuid.Nil, events.EventTypeWaitingForOpponent, events.WaitingForOpponentPayload{
			TimeoutMs: o.queue.Timeout().Milliseconds(),
		})
		if err != nil {
			return fmt.Errorf("build waiting notification: %w", err)
		}
		o.notifier.SendToConn(connID, evt)
		return nil
	}

	o.announcePairing(ctx, game)
	return nil
}

// MakeMove applies a move for the participant bound to connID.
func (o *Orchestrator) MakeMove(ctx context.Context, connID string, req events.MakeMoveRequest) error {
	gameID, err := uuid.Parse(req.GameID)
	if err != nil {
		err = fmt.Errorf("%w: %q", ErrMalformedGameID, req.GameID)
		o.sendError(connID, uuid.Nil, err)
		return err
	}

	game, err := o.registry.Get(gameID)
	if err != nil {
		o.sendError(connID, gameID, err)
		return fmt.Errorf("make move: %w", err)
	}
	caller := game.ParticipantByConn(connID)
	if caller == nil {
		o.sendError(connID, gameID, session.ErrPlayerNotFound)
		return fmt.Errorf("make move: %w", session.ErrPlayerNotFound)
	}

	res, err := o.registry.Move(gameID, caller.ID, req.Column)
	if err != nil {
		o.sendError(connID, gameID, err)
		return fmt.Errorf("make move: %w", err)
	}

	o.afterMove(ctx, res)
	return nil
}

// RejoinGame rebinds a returning player's connection to their session.
func (o *Orchestrator) RejoinGame(ctx context.Context, connID string, req events.RejoinGameRequest) error {
	gameID, err := uuid.Parse(req.GameID)
	if err != nil {
		err = fmt.Errorf("%w: %q", ErrMalformedGameID, req.GameID)
		o.sendError(connID, uuid.Nil, err)
		return err
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		err = fmt.Errorf("invalid player id %q: %w", req.PlayerID, session.ErrPlayerNotFound)
		o.sendError(connID, gameID, err)
		return err
	}

	game, err := o.registry.Reattach(gameID, playerID, connID)
	if err != nil {
		o.sendError(connID, gameID, err)
		return fmt.Errorf("rejoin game: %w", err)
	}

	o.notifier.JoinGame(connID, gameID)

	you := game.ParticipantByID(playerID)
	payload := events.GameRejoinedPayload{
		GameID:      game.ID.String(),
		You:         events.PlayerInfoFrom(you),
		Opponent:    events.PlayerInfoFrom(game.Opponent(playerID)),
		CurrentTurn: game.CurrentTurn,
		Board:       game.Board,
		Status:      game.Status,
	}
	evt, err := events.NewGameEvent(gameID, events.EventTypeGameRejoined, payload)
	if err != nil {
		return fmt.Errorf("build rejoin notification: %w", err)
	}
	o.notifier.SendToConn(connID, evt)

	log.Info().
		Str("game_id", gameID.String()).
		Str("player_id", playerID.String()).
		Msg("player reconnected")

	fact := events.PlayerReconnectedFact{
		GameID:   gameID.String(),
		PlayerID: playerID.String(),
		At:       o.clock.Now(),
	}
	if err := o.facts.PublishPlayerReconnected(ctx, fact); err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to publish reconnected fact")
	}
	return nil
}

// HandleDisconnect reacts to a connection loss: it abandons any
// matchmaking wait and starts the forfeiture grace period for an
// in-progress session.
func (o *Orchestrator) HandleDisconnect(ctx context.Context, connID string) error {
	if gameID, wasQueued := o.queue.Dequeue(connID); wasQueued {
		// The seeker never got an opponent; the waiting session is
		// abandoned before pairing and holds no history worth keeping.
		o.registry.Delete(gameID)
		log.Info().
			Str("conn_id", connID).
			Str("game_id", gameID.String()).
			Msg("seeker left matchmaking")
		return nil
	}

	game := o.registry.FindByConn(connID)
	if game == nil {
		return nil
	}

	if game.Status == models.GameStatusWaiting {
		// Orphaned waiting session without a queue entry; the
		// substitution race already owns it or it leaked.
		o.registry.Delete(game.ID)
		return nil
	}

	leaver := game.ParticipantByConn(connID)
	if leaver == nil || leaver.IsBot {
		return nil
	}

	gen, err := o.registry.MarkDisconnected(game.ID, leaver.ID)
	if err != nil {
		log.Debug().Err(err).Str("game_id", game.ID.String()).Msg("disconnect after session settled")
		return nil
	}

	gameID := game.ID
	leaverID := leaver.ID
	t := o.clock.AfterFunc(o.cfg.GracePeriod, func() {
		o.forfeitAfterGrace(gameID, leaverID, gen)
	})
	o.registry.SetForfeitTimer(gameID, gen, t)

	log.Info().
		Str("game_id", gameID.String()).
		Str("player_id", leaverID.String()).
		Dur("grace_period", o.cfg.GracePeriod).
		Msg("player disconnected, grace timer armed")

	if opp := game.Opponent(leaverID); opp != nil && !opp.IsBot && opp.ConnID != "" {
		payload := events.OpponentDisconnectedPayload{
			GameID:   gameID.String(),
			PlayerID: leaverID.String(),
			Username: leaver.Username,
			GraceMs:  o.cfg.GracePeriod.Milliseconds(),
		}
		evt, err := events.NewGameEvent(gameID, events.EventTypeOpponentDisconnected, payload)
		if err == nil {
			o.notifier.SendToConn(opp.ConnID, evt)
		}
	}

	fact := events.PlayerDisconnectedFact{
		GameID:   gameID.String(),
		PlayerID: leaverID.String(),
		At:       o.clock.Now(),
	}
	if err := o.facts.PublishPlayerDisconnected(ctx, fact); err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to publish disconnected fact")
	}
	return nil
}

// announcePairing joins both human connections to the session room and
// sends each a personalized pairing notification.
func (o *Orchestrator) announcePairing(ctx context.Context, game *models.Game) {
	for _, p := range []*models.Participant{game.Player1, game.Player2} {
		if p == nil || p.IsBot || p.ConnID == "" {
			continue
		}
		o.notifier.JoinGame(p.ConnID, game.ID)

		payload := events.GameFoundPayload{
			GameID:      game.ID.String(),
			You:         events.PlayerInfoFrom(p),
			Opponent:    events.PlayerInfoFrom(game.Opponent(p.ID)),
			CurrentTurn: game.CurrentTurn,
			Board:       game.Board,
		}
		evt, err := events.NewGameEvent(game.ID, events.EventTypeGameFound, payload)
		if err != nil {
			log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to build pairing notification")
			continue
		}
		o.notifier.SendToConn(p.ConnID, evt)
	}

	vsBot := (game.Player1 != nil && game.Player1.IsBot) || (game.Player2 != nil && game.Player2.IsBot)
	fact := events.GameStartedFact{
		GameID:    game.ID.String(),
		Players:   []events.PlayerInfo{events.PlayerInfoFrom(game.Player1), events.PlayerInfoFrom(game.Player2)},
		VsBot:     vsBot,
		StartedAt: game.CreatedAt,
	}
	if err := o.facts.PublishGameStarted(ctx, fact); err != nil {
		log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to publish game started fact")
	}
}

// afterMove broadcasts an applied move and runs the post-move branch:
// end of game, or scheduling the automated reply.
func (o *Orchestrator) afterMove(ctx context.Context, res session.MoveResult) {
	game := res.Game
	placed := game.Board[res.Row][res.Column]
	mover := game.ParticipantByDisc(placed)
	if mover == nil {
		log.Error().Str("game_id", game.ID.String()).Msg("move without a mover")
		return
	}

	payload := events.MoveMadePayload{
		GameID:     game.ID.String(),
		PlayerID:   mover.ID.String(),
		Column:     res.Column,
		Row:        res.Row,
		Disc:       placed,
		Board:      game.Board,
		NextTurn:   game.CurrentTurn,
		MoveNumber: game.MoveCount,
	}
	evt, err := events.NewGameEvent(game.ID, events.EventTypeMoveMade, payload)
	if err != nil {
		log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to build move notification")
	} else {
		o.notifier.BroadcastToGame(game.ID, evt)
	}

	fact := events.MoveFact{
		GameID:     game.ID.String(),
		PlayerID:   mover.ID.String(),
		Column:     res.Column,
		Row:        res.Row,
		MoveNumber: game.MoveCount,
		At:         game.LastMoveAt,
	}
	if err := o.facts.PublishMoveMade(ctx, fact); err != nil {
		log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to publish move fact")
	}

	if res.EndsGame() {
		outcome := models.OutcomeWin
		if res.Outcome == session.MoveOutcomeDraw {
			outcome = models.OutcomeDraw
		}
		o.finishGame(ctx, game, outcome)
		return
	}

	if next := game.ParticipantByDisc(game.CurrentTurn); next != nil && next.IsBot {
		o.scheduleBotMove(game.ID)
	}
}

func (o *Orchestrator) scheduleBotMove(gameID uuid.UUID) {
	o.clock.AfterFunc(o.cfg.BotMoveDelay, func() {
		o.playBotMove(gameID)
	})
}

// playBotMove selects and applies the automated side's move. Every
// failure here is a benign race with cleanup or a human action.
func (o *Orchestrator) playBotMove(gameID uuid.UUID) {
	game, err := o.registry.Get(gameID)
	if err != nil {
		return
	}
	if game.Status != models.GameStatusInProgress {
		return
	}
	bot := game.ParticipantByDisc(game.CurrentTurn)
	if bot == nil || !bot.IsBot {
		return
	}

	col := engine.SelectColumn(game.Board, bot.Disc)
	if col < 0 {
		return
	}

	res, err := o.registry.Move(gameID, bot.ID, col)
	if err != nil {
		log.Debug().Err(err).Str("game_id", gameID.String()).Msg("scheduled bot move lost its turn")
		return
	}
	o.afterMove(context.Background(), res)
}

// forfeitAfterGrace fires when a disconnect grace period elapses. A
// stale generation means the player reconnected or the game ended.
func (o *Orchestrator) forfeitAfterGrace(gameID, playerID uuid.UUID, gen uint64) {
	game, err := o.registry.ForfeitExpired(gameID, playerID, gen)
	if err != nil {
		log.Debug().Err(err).Str("game_id", gameID.String()).Msg("grace timer fired on settled session")
		return
	}

	log.Info().
		Str("game_id", gameID.String()).
		Str("player_id", playerID.String()).
		Msg("grace period expired, game forfeited")

	o.finishGame(context.Background(), game, models.OutcomeForfeit)
}

// finishGame runs the end-of-game procedure: persistence, the final
// broadcast, the ended fact, and delayed cleanup.
func (o *Orchestrator) finishGame(ctx context.Context, game *models.Game, outcome models.Outcome) {
	endedAt := o.clock.Now()
	durationMs := endedAt.Sub(game.CreatedAt).Milliseconds()

	go o.persistOutcome(game, outcome, durationMs, endedAt)

	var winnerID, winnerName *string
	if game.WinnerID != nil {
		id := game.WinnerID.String()
		winnerID = &id
		if w := game.ParticipantByID(*game.WinnerID); w != nil {
			name := w.Username
			winnerName = &name
		}
	}

	payload := events.GameOverPayload{
		GameID:     game.ID.String(),
		Outcome:    outcome,
		WinnerID:   winnerID,
		WinnerName: winnerName,
		Board:      game.Board,
		DurationMs: durationMs,
	}
	evt, err := events.NewGameEvent(game.ID, events.EventTypeGameOver, payload)
	if err != nil {
		log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to build game over notification")
	} else {
		o.notifier.BroadcastToGame(game.ID, evt)
	}

	fact := events.GameEndedFact{
		GameID:     game.ID.String(),
		Outcome:    outcome,
		WinnerID:   winnerID,
		Moves:      game.MoveCount,
		DurationMs: durationMs,
		EndedAt:    endedAt,
	}
	if err := o.facts.PublishGameEnded(ctx, fact); err != nil {
		log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to publish game ended fact")
	}

	gameID := game.ID
	o.clock.AfterFunc(o.cfg.CleanupDelay, func() {
		o.registry.Delete(gameID)
	})

	log.Info().
		Str("game_id", gameID.String()).
		Str("outcome", string(outcome)).
		Int("moves", game.MoveCount).
		Int64("duration_ms", durationMs).
		Msg("game finished")
}

// persistOutcome updates player statistics and stores the durable
// record. Runs detached from the triggering handler; failures are
// logged and never surface to gameplay.
func (o *Orchestrator) persistOutcome(game *models.Game, outcome models.Outcome, durationMs int64, endedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	switch outcome {
	case models.OutcomeDraw:
		for _, p := range []*models.Participant{game.Player1, game.Player2} {
			if p == nil || p.IsBot {
				continue
			}
			if err := o.players.RecordDraw(ctx, p.ID); err != nil {
				log.Error().Err(err).Str("player_id", p.ID.String()).Msg("failed to record draw")
			}
		}
	default:
		if game.WinnerID != nil {
			if w := game.ParticipantByID(*game.WinnerID); w != nil && !w.IsBot {
				if err := o.players.RecordWin(ctx, w.ID); err != nil {
					log.Error().Err(err).Str("player_id", w.ID.String()).Msg("failed to record win")
				}
			}
			if l := game.Opponent(*game.WinnerID); l != nil && !l.IsBot {
				if err := o.players.RecordLoss(ctx, l.ID); err != nil {
					log.Error().Err(err).Str("player_id", l.ID.String()).Msg("failed to record loss")
				}
			}
		}
	}

	rec := models.GameRecord{
		ID:          game.ID,
		Player1ID:   game.Player1.ID,
		Player1Name: game.Player1.Username,
		VsBot:       game.Player1.IsBot,
		Outcome:     outcome,
		WinnerID:    game.WinnerID,
		Moves:       game.MoveCount,
		DurationMs:  durationMs,
		StartedAt:   game.CreatedAt,
		EndedAt:     endedAt,
	}
	if game.Player2 != nil {
		rec.Player2ID = game.Player2.ID
		rec.Player2Name = game.Player2.Username
		rec.VsBot = rec.VsBot || game.Player2.IsBot
	}
	if err := o.recorder.RecordCompletedGame(ctx, rec); err != nil {
		log.Error().Err(err).Str("game_id", game.ID.String()).Msg("failed to record completed game")
	}
}

// sendError relays a failure to the originating connection only.
func (o *Orchestrator) sendError(connID string, gameID uuid.UUID, err error) {
	evt, buildErr := events.NewGameEvent(gameID, events.EventTypeError, events.ErrorPayload{
		Message: messageFor(err),
	})
	if buildErr != nil {
		log.Error().Err(buildErr).Msg("failed to build error notification")
		return
	}
	o.notifier.SendToConn(connID, evt)
}

// messageFor maps internal failures to the client-facing message.
func messageFor(err error) string {
	switch {
	case errors.Is(err, ErrMalformedGameID), errors.Is(err, session.ErrGameNotFound):
		return "game not found"
	case errors.Is(err, session.ErrGameNotWaiting), errors.Is(err, session.ErrGameFull):
		return "game cannot be joined"
	case errors.Is(err, session.ErrGameNotActive):
		return "game is not in progress"
	case errors.Is(err, session.ErrPlayerNotFound):
		return "player is not part of this game"
	case errors.Is(err, session.ErrNotYourTurn):
		return "not your turn"
	case errors.Is(err, session.ErrInvalidColumn):
		return "column is out of range or full"
	case errors.Is(err, players.ErrUsernameRequired):
		return "username is required"
	case errors.Is(err, players.ErrUsernameTooLong):
		return "username is too long"
	case errors.Is(err, ErrAlreadyQueued):
		return "already searching for a match"
	case errors.Is(err, ErrAlreadyInGame):
		return "already in an active game"
	default:
		return "something went wrong"
	}
}
