package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropfour/arena/internal/models"
)

// Repository stores completed game records in Postgres. Rows are
// denormalized (names inline, no player FKs) so bot participants,
// which have no players row, need no special casing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new history repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// EnsureSchema creates the games table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS games (
            id           UUID PRIMARY KEY,
            player1_id   UUID NOT NULL,
            player1_name TEXT NOT NULL,
            player2_id   UUID NOT NULL,
            player2_name TEXT NOT NULL,
            vs_bot       BOOLEAN NOT NULL,
            outcome      TEXT NOT NULL,
            winner_id    UUID,
            moves        INTEGER NOT NULL,
            duration_ms  BIGINT NOT NULL,
            started_at   TIMESTAMPTZ NOT NULL,
            ended_at     TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return fmt.Errorf("ensure games table: %w", err)
	}
	return nil
}

// RecordCompletedGame persists one finished session. Re-recording the
// same game id is a no-op.
func (r *Repository) RecordCompletedGame(ctx context.Context, rec models.GameRecord) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO games (
            id, player1_id, player1_name, player2_id, player2_name,
            vs_bot, outcome, winner_id, moves, duration_ms, started_at, ended_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (id) DO NOTHING
    `,
		rec.ID, rec.Player1ID, rec.Player1Name, rec.Player2ID, rec.Player2Name,
		rec.VsBot, rec.Outcome, rec.WinnerID, rec.Moves, rec.DurationMs, rec.StartedAt, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record game %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns the most recently finished games.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*models.GameRecord, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, player1_id, player1_name, player2_id, player2_name,
               vs_bot, outcome, winner_id, moves, duration_ms, started_at, ended_at
        FROM games
        ORDER BY ended_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent games: %w", err)
	}
	defer rows.Close()

	var out []*models.GameRecord
	for rows.Next() {
		var rec models.GameRecord
		if err := rows.Scan(
			&rec.ID, &rec.Player1ID, &rec.Player1Name, &rec.Player2ID, &rec.Player2Name,
			&rec.VsBot, &rec.Outcome, &rec.WinnerID, &rec.Moves, &rec.DurationMs, &rec.StartedAt, &rec.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan game record: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read game records: %w", err)
	}
	return out, nil
}
