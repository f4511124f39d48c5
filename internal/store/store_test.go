package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGame(id string) *models.GameState {
	gs := models.NewGameState(id, time.Unix(1700000000, 0).UTC())
	gs.Players = append(gs.Players, &models.Player{ID: "alice", Token: "tok-a", SessionID: id})
	gs.Hands["alice"] = []cards.Card{"0HA", "1S10"}
	gs.Round = []models.Play{{Card: "0C9", Seat: 0, PlayerID: "alice"}}
	gs.PendingReconnections["bob"] = &models.PendingReconnection{PlayerID: "bob", Required: 1}
	return gs
}

// exerciseStore runs the same contract against any Store implementation.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	id := uuid.NewString()

	got, err := s.FetchGame(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got, "missing game should be nil without error")

	before, err := s.Count(ctx)
	require.NoError(t, err)

	gs := sampleGame(id)
	require.NoError(t, s.SaveGame(ctx, gs))
	require.NoError(t, s.SaveGame(ctx, gs))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, n, "saving twice stores one session")

	got, err = s.FetchGame(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, gs.Hands, got.Hands)
	assert.Equal(t, gs.Round, got.Round)
	assert.Equal(t, "tok-a", got.Players[0].Token)
	assert.Equal(t, 1, got.PendingReconnections["bob"].Required)

	// Mutating the fetched copy must not change what is stored.
	got.Hands["alice"] = nil
	again, err := s.FetchGame(ctx, id)
	require.NoError(t, err)
	assert.Len(t, again.Hands["alice"], 2)

	ids, err := s.GetAllGameIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)

	require.NoError(t, s.DeleteGame(ctx, id))
	got, err = s.FetchGame(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	ids, err = s.GetAllGameIDs(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, id)

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, n)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreSaveCopies(t *testing.T) {
	s := NewMemoryStore()
	gs := sampleGame("g1")
	require.NoError(t, s.SaveGame(context.Background(), gs))
	gs.Players[0].Token = "changed"

	got, err := s.FetchGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "tok-a", got.Players[0].Token)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	defer rdb.Close()

	exerciseStore(t, NewRedisStore(rdb, "twentyeight:test:"+uuid.NewString()+":"))
}
