package game

import (
	"context"
	"testing"

	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/models"
	"github.com/jason-s-yu/twentyeight/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// soloWithBots starts a session with one human in seat 0 and five bots.
func soloWithBots(t *testing.T, env *testEnv) (string, seated) {
	t.Helper()
	ctx := context.Background()
	res, err := env.core.Login(ctx, "c0", "solo", "")
	require.NoError(t, err)
	require.NoError(t, env.core.AddBots(ctx, res.SessionID, res.Token, 5, true))
	return res.SessionID, seated{id: "solo", channel: "c0", token: res.Token}
}

func TestBotsPlayLegalCards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, human := soloWithBots(t, env)
	assert.False(t, env.hasTimers(), "the human opens")

	gs := env.state(t, id)
	require.NoError(t, env.core.DropCard(ctx, id, human.token, string(gs.Hands[human.id][0])))

	for seat := 1; seat < models.MaxSeats; seat++ {
		before := env.state(t, id)
		require.Equal(t, seat, before.CurrentTurn)
		legal := rules.LegalMoves(before.Hands[before.Players[seat].ID], before.Round)

		env.advance(t)

		after := env.state(t, id)
		require.Len(t, after.Round, seat+1)
		assert.Contains(t, legal, after.Round[seat].Card, "seat %d must follow suit", seat)
	}

	// The next timer resolves the full round.
	env.advance(t)
	gs = env.state(t, id)
	assert.Empty(t, gs.Round)
	assert.Equal(t, 6, gs.CardsWon())
	assertDeckConserved(t, gs)
}

func TestFullDealWithBots(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, human := soloWithBots(t, env)

	for i := 0; i < 200; i++ {
		gs := env.state(t, id)
		if gs.IsGameCompleted {
			break
		}
		if !gs.RoundComplete() && gs.CurrentTurn == 0 {
			legal := rules.LegalMoves(gs.Hands[human.id], gs.Round)
			require.NotEmpty(t, legal)
			require.NoError(t, env.core.DropCard(ctx, id, human.token, string(legal[0])))
			continue
		}
		env.advance(t)
	}

	gs := env.state(t, id)
	require.True(t, gs.IsGameCompleted)
	assert.Equal(t, 8, gs.RoundsPlayed)
	assert.Equal(t, 48, gs.CardsWon())
	require.NotNil(t, gs.LastResult)
	assert.Equal(t, 56, gs.LastResult.TeamAPoints+gs.LastResult.TeamBPoints)
	assert.Equal(t, 2*models.InitialScore, gs.TeamAScore+gs.TeamBScore)
	assert.False(t, env.hasTimers(), "nothing is scheduled after completion")
	for _, h := range gs.Hands {
		assert.Empty(t, h)
	}
}

func TestRestartCancelsPendingBotMove(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, human := soloWithBots(t, env)

	gs := env.state(t, id)
	require.NoError(t, env.core.DropCard(ctx, id, human.token, string(gs.Hands[human.id][0])))
	require.True(t, env.hasTimers(), "seat 1 is waiting to play")

	require.NoError(t, env.core.Restart(ctx, id, human.token))
	gs = env.state(t, id)
	require.Equal(t, 1, gs.CurrentTurn)

	env.advance(t)

	gs = env.state(t, id)
	require.Len(t, gs.Round, 1, "only the new deal's move is played")
	assert.Equal(t, 1, gs.Round[0].Seat)
	for i, p := range gs.Players {
		want := cards.HandSize
		if i == 1 {
			want--
		}
		assert.Len(t, gs.Hands[p.ID], want)
	}
	assertDeckConserved(t, gs)
}

func TestFailedRestartKeepsPendingBotMove(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, human := soloWithBots(t, env)
	// The next deal would open with the human, so the restart itself arms no bot move.
	env.mutate(t, id, func(gs *models.GameState) { gs.StartingSeat = models.MaxSeats - 1 })

	gs := env.state(t, id)
	require.NoError(t, env.core.DropCard(ctx, id, human.token, string(gs.Hands[human.id][0])))
	require.True(t, env.hasTimers(), "seat 1 is waiting to play")

	env.flaky.failSaves.Store(true)
	err := env.core.Restart(ctx, id, human.token)
	env.flaky.failSaves.Store(false)
	assert.Equal(t, gameerr.Internal, gameerr.KindOf(err))

	gs = env.state(t, id)
	require.Len(t, gs.Round, 1, "the stored deal is untouched")
	require.Equal(t, 1, gs.CurrentTurn)
	require.True(t, env.hasTimers(), "seat 1 keeps its move")

	env.advance(t)
	gs = env.state(t, id)
	require.Len(t, gs.Round, 2)
	assert.Equal(t, 1, gs.Round[1].Seat)
	assertDeckConserved(t, gs)
}
