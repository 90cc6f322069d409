package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dropfour/arena/internal/analytics"
	"github.com/dropfour/arena/internal/config"
	"github.com/dropfour/arena/internal/gateway"
	"github.com/dropfour/arena/internal/history"
	"github.com/dropfour/arena/internal/matchmaking"
	"github.com/dropfour/arena/internal/orchestrator"
	"github.com/dropfour/arena/internal/players"
	"github.com/dropfour/arena/internal/session"
)

// factsPublisher is what setup needs from an analytics backend: the
// orchestrator's collaborator surface plus a shutdown hook.
type factsPublisher interface {
	orchestrator.Facts
	Close() error
}

type Services struct {
	Registry     *session.Registry
	Queue        *matchmaking.Queue
	Orchestrator *orchestrator.Orchestrator
	Gateway      *gateway.Service
	Players      *players.App
	History      *history.App

	facts factsPublisher
}

func setupServices(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, fileCfg *config.FileConfig) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → game core → gateway

	playersRepo := players.NewRepository(pool)
	if err := playersRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure players schema: %w", err)
	}
	playersApp := players.NewApp(playersRepo)

	historyRepo := history.NewRepository(pool)
	if err := historyRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure games schema: %w", err)
	}
	historyApp := history.NewApp(historyRepo)

	facts := setupFacts(cfg)

	clock := clockwork.NewRealClock()
	registry := session.NewRegistry(clock)
	queue := matchmaking.NewQueue(registry, clock, matchmaking.Config{
		Timeout:  cfg.MatchmakingTimeout,
		BotNames: fileCfg.Bots.Names,
	})

	// The gateway notifies the orchestrator of inbound commands and the
	// orchestrator pushes events back through the gateway, so the two
	// are bound in separate steps.
	gatewayService := gateway.NewService(gateway.DefaultConnectionConfig(), registry, playersApp, historyApp)
	cm := gatewayService.ConnectionManager()

	orch := orchestrator.New(
		registry,
		queue,
		cm,
		playersApp,
		historyApp,
		facts,
		clock,
		orchestrator.Config{
			BotMoveDelay: cfg.BotMoveDelay,
			GracePeriod:  cfg.DisconnectGracePeriod,
			CleanupDelay: cfg.CleanupDelay,
		},
	)
	cm.SetApp(orch)

	return &Services{
		Registry:     registry,
		Queue:        queue,
		Orchestrator: orch,
		Gateway:      gatewayService,
		Players:      playersApp,
		History:      historyApp,
		facts:        facts,
	}, nil
}

// setupFacts picks the analytics backend. An unreachable broker is not
// fatal: gameplay runs without facts.
func setupFacts(cfg config.Config) factsPublisher {
	if !cfg.AnalyticsEnabled {
		log.Info().Msg("analytics disabled by configuration")
		return analytics.NewNoopPublisher()
	}

	jsCfg := analytics.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	publisher, err := analytics.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Error().Err(err).Str("url", cfg.NATSURL).Msg("analytics broker unreachable, facts disabled")
		return analytics.NewNoopPublisher()
	}
	return publisher
}

// Close stops matchmaking timers and flushes the facts publisher.
func (s *Services) Close() {
	s.Queue.Stop()
	if err := s.facts.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close facts publisher")
	}
}
