// Package database archives finished games in Postgres. Live sessions are
// never stored; only the final standings are.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the shared pool. Nil when DATABASE_URL is not set.
var DB *pgxpool.Pool

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	game_id     UUID PRIMARY KEY,
	finished_at TIMESTAMPTZ NOT NULL,
	turns       INTEGER NOT NULL,
	standings   JSONB NOT NULL
)`

// Standing is one player's final placement.
type Standing struct {
	PlayerID uuid.UUID `json:"playerId"`
	Name     string    `json:"name"`
	Rank     int       `json:"rank"`
	Points   int       `json:"points"` // card points left in hand
}

// GameResult is a finished game.
type GameResult struct {
	GameID     uuid.UUID  `json:"gameId"`
	FinishedAt time.Time  `json:"finishedAt"`
	Turns      int        `json:"turns"`
	Standings  []Standing `json:"standings"`
}

// ConnectDB opens the pool and makes sure the schema exists.
func ConnectDB(ctx context.Context, url string) error {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("opening pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("creating schema: %w", err)
	}
	DB = pool
	return nil
}

// Close releases the pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

// StoreGameResult upserts a finished game.
func StoreGameResult(ctx context.Context, res GameResult) error {
	if DB == nil {
		return nil
	}
	standings, err := json.Marshal(res.Standings)
	if err != nil {
		return fmt.Errorf("encoding standings: %w", err)
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO game_results (game_id, finished_at, turns, standings)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_id) DO UPDATE
		SET finished_at = EXCLUDED.finished_at, turns = EXCLUDED.turns, standings = EXCLUDED.standings`,
		res.GameID, res.FinishedAt, res.Turns, string(standings))
	if err != nil {
		return fmt.Errorf("storing result %s: %w", res.GameID, err)
	}
	return nil
}

// RecentResults returns up to limit results, newest first.
func RecentResults(ctx context.Context, limit int) ([]GameResult, error) {
	if DB == nil {
		return nil, nil
	}
	rows, err := DB.Query(ctx, `
		SELECT game_id, finished_at, turns, standings
		FROM game_results
		ORDER BY finished_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	return pgx.CollectRows(rows, scanResult)
}

func scanResult(row pgx.CollectableRow) (GameResult, error) {
	var (
		res GameResult
		raw []byte
	)
	if err := row.Scan(&res.GameID, &res.FinishedAt, &res.Turns, &raw); err != nil {
		return res, err
	}
	if err := json.Unmarshal(raw, &res.Standings); err != nil {
		return res, fmt.Errorf("decoding standings of %s: %w", res.GameID, err)
	}
	return res, nil
}
