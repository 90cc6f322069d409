package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/dropfour/arena/internal/events"
)

// JetStreamConfig holds broker and stream settings for fact publishing.
type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep facts
	MaxMsgs         int64         // Max number of facts to keep
	Replicas        int           // Number of replicas for the stream
	DuplicateWindow time.Duration // Window for duplicate detection
}

// DefaultJetStreamConfig returns production defaults.
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "GAME_FACTS",
		SubjectPrefix:   "game.facts",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour, // 7 days
		MaxMsgs:         -1,                 // No limit
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// JetStreamPublisher delivers analytics facts to a JetStream stream.
// Publishes are asynchronous: gameplay never waits on a broker ack, and
// rejected publishes surface through the async error handler.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

// NewJetStreamPublisher connects to NATS and ensures the fact stream exists.
func NewJetStreamPublisher(cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc,
		jetstream.WithPublishAsyncMaxPending(512),
		jetstream.WithPublishAsyncErrHandler(func(_ jetstream.JetStream, msg *nats.Msg, err error) {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("fact publish failed")
		}),
	)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}

	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Game analytics fact stream",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		MaxMsgs:     p.config.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    p.config.Replicas,
		Duplicates:  p.config.DuplicateWindow,
	}

	stream, err := p.js.Stream(ctx, p.config.StreamName)
	if err != nil {
		// Create new stream
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().
			Str("stream", p.config.StreamName).
			Msg("created JetStream stream")
	} else {
		// Update existing if needed
		info, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("get stream info: %w", err)
		}
		if !isStreamConfigEqual(info.Config, sc) {
			if _, err = p.js.UpdateStream(ctx, sc); err != nil {
				return fmt.Errorf("update stream: %w", err)
			}
			log.Info().
				Str("stream", p.config.StreamName).
				Msg("updated JetStream stream")
		}
	}
	return nil
}

// PublishGameStarted records a completed pairing.
func (p *JetStreamPublisher) PublishGameStarted(_ context.Context, fact events.GameStartedFact) error {
	return p.publish(events.FactGameStarted, fact.GameID, fact)
}

// PublishGameEnded records a terminal outcome.
func (p *JetStreamPublisher) PublishGameEnded(_ context.Context, fact events.GameEndedFact) error {
	return p.publish(events.FactGameEnded, fact.GameID, fact)
}

// PublishMoveMade records one accepted placement.
func (p *JetStreamPublisher) PublishMoveMade(_ context.Context, fact events.MoveFact) error {
	return p.publish(events.FactMoveMade, fact.GameID, fact)
}

// PublishPlayerDisconnected records the start of a grace period.
func (p *JetStreamPublisher) PublishPlayerDisconnected(_ context.Context, fact events.PlayerDisconnectedFact) error {
	return p.publish(events.FactPlayerDisconnected, fact.GameID, fact)
}

// PublishPlayerReconnected records a successful rejoin.
func (p *JetStreamPublisher) PublishPlayerReconnected(_ context.Context, fact events.PlayerReconnectedFact) error {
	return p.publish(events.FactPlayerReconnected, fact.GameID, fact)
}

func (p *JetStreamPublisher) publish(factType string, gameID string, fact interface{}) error {
	factID := uuid.New().String()
	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, factType)

	env := map[string]interface{}{
		"fact_id":   factID,
		"fact_type": factType,
		"game_id":   gameID,
		"timestamp": time.Now().UTC(),
		"payload":   fact,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s fact: %w", factType, err)
	}

	_, err = p.js.PublishMsgAsync(&nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Fact-Type": []string{factType},
			"Game-ID":   []string{gameID},
			"Fact-ID":   []string{factID},
		},
	},
		jetstream.WithMsgID(factID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish %s fact: %w", factType, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("game_id", gameID).
		Msg("fact queued for publish")

	return nil
}

// Close waits briefly for pending publishes, then closes the connection.
func (p *JetStreamPublisher) Close() error {
	if p.js != nil {
		select {
		case <-p.js.PublishAsyncComplete():
		case <-time.After(5 * time.Second):
			log.Warn().Msg("timed out waiting for pending fact publishes")
		}
	}
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}
