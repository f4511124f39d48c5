// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect creates a pgx pool for connStr and pings it.
func Connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'in_progress',
	start_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time    TIMESTAMPTZ,
	team_a_score INT,
	team_b_score INT,
	final_game_state JSONB
);

CREATE TABLE IF NOT EXISTS game_results (
	game_id    TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	deal_index INT NOT NULL,
	final_bid  INT NOT NULL,
	bidding_team TEXT NOT NULL,
	team_a_points INT NOT NULL,
	team_b_points INT NOT NULL,
	achieved   BOOLEAN NOT NULL,
	delta      INT NOT NULL,
	team_a_score INT NOT NULL,
	team_b_score INT NOT NULL,
	score_reset BOOLEAN NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (game_id, deal_index)
);

CREATE TABLE IF NOT EXISTS game_actions (
	game_id      TEXT NOT NULL,
	action_index INT NOT NULL,
	actor_id     TEXT NOT NULL,
	action_type  TEXT NOT NULL,
	action_payload JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the tables used by the server and the historian when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
