package matchmaking

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dropfour/arena/internal/models"
	"github.com/dropfour/arena/internal/session"
)

// Clock abstracts timer creation so tests can drive substitution
// deadlines deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) clockwork.Timer
}

const (
	// DefaultTimeout is how long a seeker waits before a bot is
	// substituted as the opponent.
	DefaultTimeout = 10 * time.Second

	botMatchBuffer = 64
)

var defaultBotNames = []string{"Ada", "Bishop", "Clank", "Echo", "Gizmo", "Piper"}

// Config tunes queue behavior. Zero values fall back to defaults.
type Config struct {
	// Timeout is the wait before bot substitution.
	Timeout time.Duration

	// BotNames is the display-name roster for substituted bots.
	BotNames []string
}

// DefaultConfig returns the production queue settings.
func DefaultConfig() Config {
	return Config{
		Timeout:  DefaultTimeout,
		BotNames: defaultBotNames,
	}
}

// entry is one participant waiting for an opponent. The generation
// guards against a substitution timer firing after the entry was
// matched or dequeued.
type entry struct {
	participant *models.Participant
	gameID      uuid.UUID
	timer       clockwork.Timer
	gen         uint64
}

// Queue pairs match seekers. The first seeker opens a waiting session
// in the registry; the next distinct seeker joins it. A seeker left
// waiting past the timeout is paired with a synthetic bot, and the
// resulting session is emitted on BotMatches for announcement.
type Queue struct {
	mu      sync.Mutex
	entries map[string]*entry
	genSeq  uint64

	registry *session.Registry
	clock    Clock
	timeout  time.Duration
	botNames []string
	rng      *rand.Rand

	botMatches chan *models.Game
}

// NewQueue creates a queue backed by the given registry.
func NewQueue(registry *session.Registry, clock Clock, cfg Config) *Queue {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.BotNames) == 0 {
		cfg.BotNames = defaultBotNames
	}
	return &Queue{
		entries:    make(map[string]*entry),
		registry:   registry,
		clock:      clock,
		timeout:    cfg.Timeout,
		botNames:   cfg.BotNames,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		botMatches: make(chan *models.Game, botMatchBuffer),
	}
}

// Timeout reports the configured substitution deadline.
func (q *Queue) Timeout() time.Duration {
	return q.timeout
}

// BotMatches emits sessions completed by bot substitution.
func (q *Queue) BotMatches() <-chan *models.Game {
	return q.botMatches
}

// Enqueue registers p as a match seeker. If another participant is
// already waiting, p joins that participant's session and the paired
// game is returned with matched=true. Otherwise a waiting session is
// created, a substitution timer armed, and matched=false returned.
func (q *Queue) Enqueue(p *models.Participant) (*models.Game, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.entries[p.ConnID]; dup {
		log.Warn().Str("conn_id", p.ConnID).Msg("connection already queued")
		return nil, false
	}

	for connID, e := range q.entries {
		if e.participant.ID == p.ID {
			continue
		}
		e.timer.Stop()
		delete(q.entries, connID)
		game, err := q.registry.Join(e.gameID, p)
		if err != nil {
			// The waiting session vanished under the entry. Drop the
			// dead entry and keep scanning.
			log.Error().Err(err).
				Str("game_id", e.gameID.String()).
				Msg("stale queue entry, session gone")
			continue
		}
		log.Info().
			Str("game_id", game.ID.String()).
			Str("player1", e.participant.Username).
			Str("player2", p.Username).
			Msg("players matched")
		return game, true
	}

	game := q.registry.Create(p)
	q.genSeq++
	e := &entry{
		participant: p,
		gameID:      game.ID,
		gen:         q.genSeq,
	}
	gen := e.gen
	connID := p.ConnID
	e.timer = q.clock.AfterFunc(q.timeout, func() {
		q.substituteBot(connID, gen)
	})
	q.entries[connID] = e
	log.Info().
		Str("game_id", game.ID.String()).
		Str("username", p.Username).
		Dur("timeout", q.timeout).
		Msg("waiting for opponent")
	return nil, false
}

// substituteBot pairs a timed-out waiting entry with a bot. A stale
// generation means the entry was matched or dequeued first.
func (q *Queue) substituteBot(connID string, gen uint64) {
	q.mu.Lock()
	e, ok := q.entries[connID]
	if !ok || e.gen != gen {
		q.mu.Unlock()
		return
	}
	delete(q.entries, connID)

	bot := &models.Participant{
		ID:       uuid.New(),
		Username: q.botNames[q.rng.Intn(len(q.botNames))],
		IsBot:    true,
	}
	game, err := q.registry.Join(e.gameID, bot)
	q.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).
			Str("game_id", e.gameID.String()).
			Msg("bot substitution lost race with session cleanup")
		return
	}

	log.Info().
		Str("game_id", game.ID.String()).
		Str("username", e.participant.Username).
		Str("bot", bot.Username).
		Msg("bot substituted after matchmaking timeout")

	select {
	case q.botMatches <- game:
	default:
		log.Warn().
			Str("game_id", game.ID.String()).
			Msg("bot match channel full, dropping announcement")
	}
}

// Dequeue removes the waiting entry bound to connID, cancelling its
// substitution timer. It reports the session created at enqueue time
// so the caller can clean it up.
func (q *Queue) Dequeue(connID string) (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[connID]
	if !ok {
		return uuid.Nil, false
	}
	e.timer.Stop()
	delete(q.entries, connID)
	return e.gameID, true
}

// IsQueued reports whether connID has a waiting entry.
func (q *Queue) IsQueued(connID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[connID]
	return ok
}

// Waiting reports how many participants are queued.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Stop cancels all substitution timers. Used at shutdown.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for connID, e := range q.entries {
		e.timer.Stop()
		delete(q.entries, connID)
	}
}
