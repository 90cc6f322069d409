package players

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropfour/arena/internal/models"
)

// Repository implements player data access against Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new players repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// EnsureSchema creates the players table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS players (
            id         UUID PRIMARY KEY,
            username   TEXT NOT NULL UNIQUE,
            wins       INTEGER NOT NULL DEFAULT 0,
            losses     INTEGER NOT NULL DEFAULT 0,
            draws      INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return fmt.Errorf("ensure players table: %w", err)
	}
	return nil
}

// FindOrCreatePlayer returns the player with the given username,
// inserting a fresh row when none exists. The no-op conflict update
// lets RETURNING yield the existing row.
func (r *Repository) FindOrCreatePlayer(ctx context.Context, username string) (*models.Player, error) {
	var p models.Player
	err := r.pool.QueryRow(ctx, `
        INSERT INTO players (id, username)
        VALUES ($1, $2)
        ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
        RETURNING id, username, wins, losses, draws, created_at
    `, uuid.New(), username).Scan(&p.ID, &p.Username, &p.Wins, &p.Losses, &p.Draws, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create player: %w", err)
	}
	return &p, nil
}

// IncrementWins adds one win to the player's record.
func (r *Repository) IncrementWins(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, "wins", id)
}

// IncrementLosses adds one loss to the player's record.
func (r *Repository) IncrementLosses(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, "losses", id)
}

// IncrementDraws adds one draw to the player's record.
func (r *Repository) IncrementDraws(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, "draws", id)
}

func (r *Repository) increment(ctx context.Context, column string, id uuid.UUID) error {
	// column is one of the three fixed counter names, never user input.
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE players SET %s = %s + 1 WHERE id = $1
    `, column, column), id)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("increment %s for %s: %w", column, id, ErrPlayerNotFound)
	}
	return nil
}

// GetTopPlayers lists players ordered by wins.
func (r *Repository) GetTopPlayers(ctx context.Context, limit int) ([]*models.Player, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, username, wins, losses, draws, created_at
        FROM players
        ORDER BY wins DESC, draws DESC, username ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top players: %w", err)
	}
	defer rows.Close()

	var out []*models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Username, &p.Wins, &p.Losses, &p.Draws, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read players: %w", err)
	}
	return out, nil
}
