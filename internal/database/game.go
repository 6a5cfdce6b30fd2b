// internal/database/game.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/minesweep/internal/models"
)

// Archive stores the outcome of finished games in Postgres.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive wraps an open pool.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

type playerResult struct {
	PlayerID uuid.UUID
	Name     string
	Score    int
	DidWin   bool
}

// playerResults flattens the final standings of g.
func playerResults(g *models.Game) []playerResult {
	out := make([]playerResult, 0, len(g.Players))
	for _, p := range g.Players {
		out = append(out, playerResult{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
			DidWin:   g.Winner == p.ID.String(),
		})
	}
	return out
}

// RecordGameResult persists a finished game and one result row per player in a single
// transaction. Recording the same game twice overwrites the first record.
func (a *Archive) RecordGameResult(ctx context.Context, g *models.Game) error {
	if g.Status != models.GameFinished || g.FinishedAt == nil {
		return errors.New("only finished games can be archived")
	}

	err := pgx.BeginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, lobby_id, mode, rows, cols, mines, mines_revealed, winner, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE
			SET mines_revealed = $7, winner = $8, finished_at = $10
		`
		if _, err := tx.Exec(ctx, upsertGame,
			g.ID, g.LobbyID, string(g.Mode), g.Board.Rows, g.Board.Cols, g.Board.Mines,
			g.MinesRevealed, g.Winner, g.StartedAt, *g.FinishedAt,
		); err != nil {
			return err
		}

		q := `
			INSERT INTO game_results (game_id, player_id, name, score, did_win)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (game_id, player_id)
			DO UPDATE SET score = $4, did_win = $5
		`
		for _, r := range playerResults(g) {
			if _, err := tx.Exec(ctx, q, g.ID, r.PlayerID, r.Name, r.Score, r.DidWin); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}
