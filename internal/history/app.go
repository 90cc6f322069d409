package history

import (
	"context"
	"fmt"

	"github.com/dropfour/arena/internal/models"
)

const (
	defaultRecentSize = 20
	maxRecentSize     = 100
)

// HistoryRepository defines what the app layer needs from the repository.
type HistoryRepository interface {
	RecordCompletedGame(ctx context.Context, rec models.GameRecord) error
	ListRecent(ctx context.Context, limit int) ([]*models.GameRecord, error)
}

// App handles game history business logic.
type App struct {
	repo HistoryRepository
}

// NewApp creates a new history App.
func NewApp(repo HistoryRepository) *App {
	return &App{
		repo: repo,
	}
}

// RecordCompletedGame persists one finished session.
func (a *App) RecordCompletedGame(ctx context.Context, rec models.GameRecord) error {
	if err := a.repo.RecordCompletedGame(ctx, rec); err != nil {
		return fmt.Errorf("failed to record completed game: %w", err)
	}
	return nil
}

// RecentGames returns recently finished games, clamping limit to a
// sane range.
func (a *App) RecentGames(ctx context.Context, limit int) ([]*models.GameRecord, error) {
	if limit <= 0 {
		limit = defaultRecentSize
	}
	if limit > maxRecentSize {
		limit = maxRecentSize
	}

	recent, err := a.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent games: %w", err)
	}
	return recent, nil
}
