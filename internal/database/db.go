// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on every start; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS games (
	id             UUID PRIMARY KEY,
	lobby_id       UUID NOT NULL,
	mode           TEXT NOT NULL,
	rows           INT  NOT NULL,
	cols           INT  NOT NULL,
	mines          INT  NOT NULL,
	mines_revealed INT  NOT NULL DEFAULT 0,
	winner         TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS game_results (
	game_id   UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	player_id UUID NOT NULL,
	name      TEXT NOT NULL,
	score     INT  NOT NULL,
	did_win   BOOLEAN NOT NULL,
	PRIMARY KEY (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS game_actions (
	game_id        UUID   NOT NULL,
	action_index   BIGINT NOT NULL,
	actor_user_id  UUID,
	action_type    TEXT   NOT NULL,
	action_payload JSONB  NOT NULL DEFAULT '{}'::jsonb,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, action_index)
);
`

// ConnectDB opens a pgx pool on url, pings it and applies the schema.
func ConnectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
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

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return pool, nil
}
