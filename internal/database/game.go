// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/twentyeight/internal/models"
)

// ResultStore persists deal outcomes.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// RecordCompletion stores the outcome of one deal and the final state of the session in a single transaction.
// dealIndex is the zero-based number of the deal within the session (the restart count).
func (s *ResultStore) RecordCompletion(ctx context.Context, gs *models.GameState, dealIndex int, res models.Completion) error {
	finalState, err := json.Marshal(finalSnapshot(gs))
	if err != nil {
		return fmt.Errorf("failed to marshal final snapshot: %w", err)
	}

	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		// upsert the game row, set status=completed
		upsertGame := `
			INSERT INTO games (id, status, end_time, team_a_score, team_b_score, final_game_state)
			VALUES ($1, 'completed', NOW(), $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET status = 'completed', end_time = NOW(), team_a_score = $2, team_b_score = $3, final_game_state = $4
		`
		if _, e := tx.Exec(ctx, upsertGame, gs.ID, res.TeamAScore, res.TeamBScore, finalState); e != nil {
			return e
		}

		q := `
			INSERT INTO game_results (
				game_id, deal_index, final_bid, bidding_team, team_a_points, team_b_points,
				achieved, delta, team_a_score, team_b_score, score_reset
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (game_id, deal_index) DO NOTHING
		`
		_, e := tx.Exec(ctx, q, gs.ID, dealIndex, res.FinalBid, res.BiddingTeam, res.TeamAPoints, res.TeamBPoints,
			res.Achieved, res.Delta, res.TeamAScore, res.TeamBScore, res.ScoreResetOccurred)
		return e
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// MarkAbandoned flags a session that was torn down before completion.
func (s *ResultStore) MarkAbandoned(ctx context.Context, gameID string) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, status, end_time)
			VALUES ($1, 'abandoned', NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'abandoned', end_time = NOW()
			WHERE games.status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, gameID)
		return e
	})
}

// finalSnapshot keeps what is useful for reviewing a finished deal. Tokens are left out.
func finalSnapshot(gs *models.GameState) map[string]interface{} {
	seats := make([]map[string]interface{}, len(gs.Players))
	for i, p := range gs.Players {
		seats[i] = map[string]interface{}{
			"id":    p.ID,
			"bot":   p.IsBotAgent,
			"team":  models.TeamOf(i),
			"seat":  i,
			"trump": gs.PlayerTrumpSuit[p.ID],
		}
	}
	return map[string]interface{}{
		"players":       seats,
		"teamACards":    gs.TeamACards,
		"teamBCards":    gs.TeamBCards,
		"finalBid":      gs.FinalBid,
		"biddingTeam":   gs.BiddingTeam,
		"biddingPlayer": gs.BiddingPlayer,
		"trumpSuit":     gs.EffectiveTrump(),
		"startingSeat":  gs.StartingSeat,
	}
}
