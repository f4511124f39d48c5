// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/twentyeight/internal/cache"
)

// InsertActions writes a batch of action records in one transaction, creating the game row on first sight.
func InsertActions(ctx context.Context, pool *pgxpool.Pool, batch []cache.ActionRecord) error {
	if len(batch) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batch {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertActionTx: %w", err)
			}
		}
		return nil
	})
}

func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (game_id, action_index, actor_id, action_type, action_payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.Exec(ctx, actionInsertQ, rec.GameID, rec.ActionIndex, rec.ActorID, rec.ActionType, jsonPayload)
	return err
}

// MarkInactiveAbandoned flags games with no action newer than the cutoff (in seconds) as abandoned.
func MarkInactiveAbandoned(ctx context.Context, pool *pgxpool.Pool, inactiveSeconds int) (int64, error) {
	q := `
		UPDATE games g
		SET status = 'abandoned', end_time = NOW()
		WHERE g.status = 'in_progress'
		AND NOT EXISTS (
			SELECT 1 FROM game_actions a
			WHERE a.game_id = g.id AND a.created_at > NOW() - make_interval(secs => $1)
		)
		AND g.start_time < NOW() - make_interval(secs => $1)
	`
	tag, err := pool.Exec(ctx, q, float64(inactiveSeconds))
	if err != nil {
		return 0, fmt.Errorf("mark inactive games: %w", err)
	}
	return tag.RowsAffected(), nil
}
