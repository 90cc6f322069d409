package players

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dropfour/arena/internal/models"
)

// MaxUsernameLen bounds display names so records and notifications
// stay reasonably sized.
const MaxUsernameLen = 32

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// PlayersRepository defines what the app layer needs from the repository.
type PlayersRepository interface {
	FindOrCreatePlayer(ctx context.Context, username string) (*models.Player, error)
	IncrementWins(ctx context.Context, id uuid.UUID) error
	IncrementLosses(ctx context.Context, id uuid.UUID) error
	IncrementDraws(ctx context.Context, id uuid.UUID) error
	GetTopPlayers(ctx context.Context, limit int) ([]*models.Player, error)
}

// App handles player business logic.
type App struct {
	repo PlayersRepository
}

// NewApp creates a new players App.
func NewApp(repo PlayersRepository) *App {
	return &App{
		repo: repo,
	}
}

// FindOrCreatePlayer resolves a username to a durable player identity,
// creating it on first sight.
func (a *App) FindOrCreatePlayer(ctx context.Context, username string) (*models.Player, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	player, err := a.repo.FindOrCreatePlayer(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player %q: %w", username, err)
	}
	return player, nil
}

// RecordWin increments the player's win counter.
func (a *App) RecordWin(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.IncrementWins(ctx, id); err != nil {
		return fmt.Errorf("failed to record win: %w", err)
	}
	return nil
}

// RecordLoss increments the player's loss counter.
func (a *App) RecordLoss(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.IncrementLosses(ctx, id); err != nil {
		return fmt.Errorf("failed to record loss: %w", err)
	}
	return nil
}

// RecordDraw increments the player's draw counter.
func (a *App) RecordDraw(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.IncrementDraws(ctx, id); err != nil {
		return fmt.Errorf("failed to record draw: %w", err)
	}
	return nil
}

// TopPlayers returns the leaderboard, clamping limit to a sane range.
func (a *App) TopPlayers(ctx context.Context, limit int) ([]*models.Player, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	top, err := a.repo.GetTopPlayers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return top, nil
}

func validateUsername(username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
