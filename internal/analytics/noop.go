package analytics

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dropfour/arena/internal/events"
)

// NoopPublisher drops every fact. Used when analytics is disabled or
// the broker is unreachable at startup, so gameplay runs unaffected.
type NoopPublisher struct{}

// NewNoopPublisher returns a publisher that discards all facts.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (NoopPublisher) PublishGameStarted(_ context.Context, fact events.GameStartedFact) error {
	return drop(events.FactGameStarted, fact.GameID)
}

func (NoopPublisher) PublishGameEnded(_ context.Context, fact events.GameEndedFact) error {
	return drop(events.FactGameEnded, fact.GameID)
}

func (NoopPublisher) PublishMoveMade(_ context.Context, fact events.MoveFact) error {
	return drop(events.FactMoveMade, fact.GameID)
}

func (NoopPublisher) PublishPlayerDisconnected(_ context.Context, fact events.PlayerDisconnectedFact) error {
	return drop(events.FactPlayerDisconnected, fact.GameID)
}

func (NoopPublisher) PublishPlayerReconnected(_ context.Context, fact events.PlayerReconnectedFact) error {
	return drop(events.FactPlayerReconnected, fact.GameID)
}

func (NoopPublisher) Close() error { return nil }

func drop(factType, gameID string) error {
	log.Debug().
		Str("fact_type", factType).
		Str("game_id", gameID).
		Msg("analytics disabled, fact dropped")
	return nil
}
