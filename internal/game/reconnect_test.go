package game

import (
	"context"
	"testing"

	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisconnectPausesGame(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, players := env.startSixHumans(t)

	require.NoError(t, env.core.ChannelLost(ctx, "c1"))

	gs := env.state(t, id)
	assert.True(t, gs.GamePaused)
	assert.True(t, gs.Players[1].IsDisconnected)
	assert.Empty(t, gs.Players[1].ChannelID)
	require.Contains(t, gs.DisconnectedPlayers, "p1")
	assert.Equal(t, cards.HandSize, gs.DisconnectedPlayers["p1"].HandSize)
	assert.Len(t, env.mb.sessionOfType(id, EventGamePaused), 1)
	assert.False(t, env.mb.inGroup(id, "c1"))

	err := env.core.DropCard(ctx, id, players[0].token, string(gs.Hands["p0"][0]))
	assert.ErrorIs(t, err, gameerr.ErrGamePaused)
	assert.True(t, env.hasTimers(), "the removal timer is armed")

	// An unknown channel is ignored.
	assert.NoError(t, env.core.ChannelLost(ctx, "nobody"))
}

func TestReconnectNeedsApproval(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, players := env.startSixHumans(t)
	require.NoError(t, env.core.ChannelLost(ctx, "c1"))

	_, err := env.core.Reconnect(ctx, "c1b", "p1", "wrong-token", "")
	assert.Equal(t, gameerr.Validation, gameerr.KindOf(err))
	_, err = env.core.Reconnect(ctx, "c1b", "p1", "", "other-session")
	assert.Equal(t, gameerr.Validation, gameerr.KindOf(err))
	_, err = env.core.Reconnect(ctx, "c1b", "p2", "", "")
	assert.Equal(t, gameerr.StateConflict, gameerr.KindOf(err), "connected players cannot reconnect")

	res, err := env.core.Reconnect(ctx, "c1b", "p1", players[1].token, id)
	require.NoError(t, err)
	assert.Equal(t, ReconnectStatusPending, res.Status)
	assert.Equal(t, 1, res.Required)

	assert.Len(t, env.mb.channelOfType("c1b", EventReconnectPending), 1)
	for _, p := range players {
		if p.id == "p1" {
			continue
		}
		assert.Len(t, env.mb.channelOfType(p.channel, EventReconnectRequested), 1, p.id)
	}
	gs := env.state(t, id)
	assert.True(t, gs.GamePaused, "still paused while the request is pending")
	assert.True(t, gs.Players[1].IsDisconnected)

	_, err = env.core.ApproveReconnect(ctx, id, players[1].token, "p1")
	assert.Equal(t, gameerr.Validation, gameerr.KindOf(err), "no self approval")

	ar, err := env.core.ApproveReconnect(ctx, id, players[4].token, "p1")
	require.NoError(t, err)
	assert.True(t, ar.Completed)
	assert.Equal(t, 1, ar.Approvals)

	gs = env.state(t, id)
	assert.False(t, gs.GamePaused)
	assert.False(t, gs.Players[1].IsDisconnected)
	assert.Equal(t, "c1b", gs.Players[1].ChannelID)
	assert.Empty(t, gs.DisconnectedPlayers)
	assert.Empty(t, gs.PendingReconnections)
	assert.True(t, env.mb.inGroup(id, "c1b"))
	assert.Len(t, env.mb.sessionOfType(id, EventGameResumed), 1)
	assert.False(t, env.hasTimers(), "the removal timer is cancelled")

	states := env.mb.channelOfType("c1b", EventGameState)
	require.Len(t, states, 1)
	view := states[0].Data.(*PlayerView)
	assert.Equal(t, players[1].token, view.Token)
	assert.Len(t, view.Hand, cards.HandSize)
	assert.Equal(t, 1, view.Seat)

	// The game continues where it stopped.
	require.NoError(t, env.core.DropCard(ctx, id, players[0].token, string(gs.Hands["p0"][0])))
}

func TestReconnectWithoutPeersIsImmediate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, human := soloWithBots(t, env)

	require.NoError(t, env.core.ChannelLost(ctx, human.channel))
	require.True(t, env.state(t, id).GamePaused)

	res, err := env.core.Reconnect(ctx, "c0b", human.id, "", "")
	require.NoError(t, err)
	assert.Equal(t, ReconnectStatusReconnected, res.Status)
	require.NotNil(t, res.State)
	assert.Equal(t, human.token, res.State.Token)

	gs := env.state(t, id)
	assert.False(t, gs.GamePaused)
	assert.Equal(t, "c0b", gs.Players[0].ChannelID)
}

func TestDenyReconnect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, players := env.startSixHumans(t)
	require.NoError(t, env.core.ChannelLost(ctx, "c3"))

	_, err := env.core.Reconnect(ctx, "c3b", "p3", "", "")
	require.NoError(t, err)

	require.NoError(t, env.core.DenyReconnect(ctx, id, players[0].token, "p3"))
	assert.Len(t, env.mb.channelOfType("c3b", EventReconnectDenied), 1)

	gs := env.state(t, id)
	assert.Empty(t, gs.PendingReconnections)
	assert.True(t, gs.Players[3].IsDisconnected)
	assert.True(t, gs.GamePaused)

	_, err = env.core.ApproveReconnect(ctx, id, players[0].token, "p3")
	assert.Equal(t, gameerr.NotFound, gameerr.KindOf(err))

	// A fresh request is allowed after a denial.
	res, err := env.core.Reconnect(ctx, "c3c", "p3", "", "")
	require.NoError(t, err)
	assert.Equal(t, ReconnectStatusPending, res.Status)
}

func TestPendingRequesterChannelLost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, _ := env.startSixHumans(t)
	require.NoError(t, env.core.ChannelLost(ctx, "c2"))
	_, err := env.core.Reconnect(ctx, "c2b", "p2", "", "")
	require.NoError(t, err)

	require.NoError(t, env.core.ChannelLost(ctx, "c2b"))
	gs := env.state(t, id)
	assert.Empty(t, gs.PendingReconnections)
	assert.True(t, gs.Players[2].IsDisconnected)
}

func TestDisconnectTimeoutRemovesSeat(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, players := env.startSixHumans(t)

	gs := env.state(t, id)
	require.NoError(t, env.core.DropCard(ctx, id, players[0].token, string(gs.Hands["p0"][0])))
	require.NoError(t, env.core.ChannelLost(ctx, "c1"))

	env.advance(t)

	gs = env.state(t, id)
	assert.True(t, gs.Players[1].Removed)
	assert.False(t, gs.GamePaused)
	assert.Equal(t, 5, env.core.ActivePlayers())
	assert.Len(t, env.mb.sessionOfType(id, EventPlayerRemoved), 1)

	_, err := env.core.Reconnect(ctx, "c1b", "p1", "", "")
	assert.ErrorIs(t, err, gameerr.ErrPlayerNotFound, "removed seats cannot come back")

	// Seat 1 was on turn and is now played by the server.
	require.True(t, env.hasTimers())
	env.advance(t)
	gs = env.state(t, id)
	require.Len(t, gs.Round, 2)
	assert.Equal(t, 1, gs.Round[1].Seat)
	assert.Equal(t, 2, gs.CurrentTurn)
}

func TestRemovedSeatTokenIsRevoked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, players := env.startSixHumans(t)

	gs := env.state(t, id)
	require.NoError(t, env.core.DropCard(ctx, id, players[0].token, string(gs.Hands["p0"][0])))
	require.NoError(t, env.core.ChannelLost(ctx, "c1"))
	env.advance(t)

	gs = env.state(t, id)
	require.True(t, gs.Players[1].Removed)
	require.Equal(t, 1, gs.CurrentTurn)
	legal := rules.LegalMoves(gs.Hands["p1"], gs.Round)

	err := env.core.DropCard(ctx, id, players[1].token, string(legal[0]))
	assert.ErrorIs(t, err, gameerr.ErrPlayerNotFound)
	assert.ErrorIs(t, env.core.Forfeit(ctx, id, players[1].token), gameerr.ErrPlayerNotFound)
	_, err = env.core.UpdateGameScore(ctx, id, players[1].token)
	assert.ErrorIs(t, err, gameerr.ErrPlayerNotFound)

	gs = env.state(t, id)
	require.NotNil(t, gs, "the session survives")
	assert.Len(t, gs.Round, 1)
	assert.Empty(t, env.mb.sessionOfType(id, EventGameAborted))
}

func TestDisconnectedSeatCannotAct(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, players := env.startSixHumans(t)
	require.NoError(t, env.core.ChannelLost(ctx, "c2"))

	assert.ErrorIs(t, env.core.Forfeit(ctx, id, players[2].token), gameerr.ErrSeatDisconnected)
	_, err := env.core.UpdateGameScore(ctx, id, players[2].token)
	assert.ErrorIs(t, err, gameerr.ErrSeatDisconnected)
	assert.ErrorIs(t, env.core.SelectTrumpSuit(ctx, id, players[2].token, "H"), gameerr.ErrSeatDisconnected)

	// A pending request is not enough.
	_, err = env.core.Reconnect(ctx, "c2b", "p2", "", "")
	require.NoError(t, err)
	assert.ErrorIs(t, env.core.Forfeit(ctx, id, players[2].token), gameerr.ErrSeatDisconnected)
	require.NotNil(t, env.state(t, id))

	_, err = env.core.ApproveReconnect(ctx, id, players[0].token, "p2")
	require.NoError(t, err)
	require.NoError(t, env.core.SelectTrumpSuit(ctx, id, players[2].token, "H"))
	assert.Equal(t, "H", env.state(t, id).TrumpSuit)
}

func TestTooFewSeatsAborts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, _ := env.startSixHumans(t)

	for _, ch := range []string{"c1", "c2", "c3", "c4"} {
		require.NoError(t, env.core.ChannelLost(ctx, ch))
	}
	env.advance(t)

	assert.Nil(t, env.state(t, id))
	assert.Len(t, env.mb.sessionOfType(id, EventGameAborted), 1)
	assert.Zero(t, env.core.ActivePlayers())
	assert.False(t, env.hasTimers())
}

func TestLastHumanRemovedAborts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id, human := soloWithBots(t, env)

	require.NoError(t, env.core.ChannelLost(ctx, human.channel))
	env.advance(t)

	assert.Nil(t, env.state(t, id))
	assert.Len(t, env.mb.sessionOfType(id, EventGameAborted), 1)
	env.core.Wait()
	env.results.mu.Lock()
	assert.Equal(t, []string{id}, env.results.abandoned)
	env.results.mu.Unlock()
}

func TestLobbyChannelLost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	res, err := env.core.Login(ctx, "c0", "host", "")
	require.NoError(t, err)
	id := res.SessionID
	_, err = env.core.Login(ctx, "c1", "guest", id)
	require.NoError(t, err)

	require.NoError(t, env.core.ChannelLost(ctx, "c0"))
	gs := env.state(t, id)
	require.Len(t, gs.Players, 1)
	assert.Equal(t, "guest", gs.Players[0].ID)
	assert.True(t, gs.Players[0].IsCreator, "the creator role moves to the next human")
	assert.Equal(t, 1, env.core.ActivePlayers())

	// The display id is free again.
	_, err = env.core.Login(ctx, "c2", "host", id)
	require.NoError(t, err)

	require.NoError(t, env.core.ChannelLost(ctx, "c1"))
	require.NoError(t, env.core.ChannelLost(ctx, "c2"))
	assert.Nil(t, env.state(t, id), "empty lobbies are deleted")
	assert.Zero(t, env.core.ActivePlayers())
}
