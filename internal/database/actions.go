// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/minesweep/internal/cache"
)

// WriteActions inserts a batch of action records in one transaction. Records already
// stored are skipped, so a redelivered batch is harmless.
func (a *Archive) WriteActions(ctx context.Context, records []cache.GameActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO game_actions (game_id, action_index, actor_user_id, action_type, action_payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (game_id, action_index) DO NOTHING
		`
		for _, rec := range records {
			payload, err := actionPayload(rec)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, q,
				rec.GameID, rec.ActionIndex, actorID(rec.ActorUserID), rec.ActionType, payload,
				time.UnixMilli(rec.Timestamp).UTC(),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert game actions: %w", err)
	}
	return nil
}

func actionPayload(rec cache.GameActionRecord) ([]byte, error) {
	if rec.ActionPayload == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload of game %s action %d: %w", rec.GameID, rec.ActionIndex, err)
	}
	return b, nil
}

// actorID maps system actions (no actor) to NULL.
func actorID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
