package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/coder/websocket"
	"github.com/jason-s-yu/twentyeight/internal/game"
	"github.com/jason-s-yu/twentyeight/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *GameServer) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	hub := NewHub(logger)
	cfg := game.DefaultConfig()
	cfg.Clock = quartz.NewMock(t)
	cfg.Seed = 7
	core := game.NewGameCore(cfg, game.Deps{
		Store:       store.NewMemoryStore(),
		Broadcaster: hub,
		Logger:      logger,
	})
	gs := NewGameServer(core, hub, logger, nil)
	srv := httptest.NewServer(gs.Router(nil))
	t.Cleanup(srv.Close)
	return srv, gs
}

func dial(t *testing.T, srv *httptest.Server, subprotocols ...string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: subprotocols})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

type message struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	OK    bool            `json:"ok"`
	Code  string          `json:"code"`
	Error string          `json:"error"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func send(t *testing.T, c *websocket.Conn, frame string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(frame)))
}

// awaitAck reads until the acknowledgement with id arrives and returns it with the events seen before it.
func awaitAck(t *testing.T, c *websocket.Conn, id string) (message, []message) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var events []message
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var m message
		require.NoError(t, json.Unmarshal(data, &m))
		if m.Type == "ack" && m.ID == id {
			return m, events
		}
		events = append(events, m)
	}
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv, Subprotocol)

	send(t, c, `{"op":"ping","id":"1"}`)
	ack, _ := awaitAck(t, c, "1")
	assert.True(t, ack.OK)
	assert.Equal(t, "OK", ack.Code)
	assert.JSONEq(t, `{"pong":true}`, string(ack.Data))
}

func TestUnknownOpIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv, Subprotocol)

	send(t, c, `{"op":"fly","id":"9"}`)
	ack, _ := awaitAck(t, c, "9")
	assert.False(t, ack.OK)
	assert.Equal(t, "VALIDATION_ERROR", ack.Code)
	assert.NotEmpty(t, ack.Error)
}

func TestLoginAndStartWithBots(t *testing.T) {
	srv, gs := newTestServer(t)
	c := dial(t, srv, Subprotocol)

	send(t, c, `{"op":"login","id":"a","payload":{"playerId":"ann"}}`)
	ack, events := awaitAck(t, c, "a")
	require.True(t, ack.OK, ack.Error)
	var login game.LoginResult
	require.NoError(t, json.Unmarshal(ack.Data, &login))
	assert.True(t, login.IsCreator)
	assert.NotEmpty(t, login.Token)
	assert.NotEmpty(t, events, "the lobby hears about the new player")

	send(t, c, `{"op":"add-bots","id":"b","payload":{"gameId":"`+login.SessionID+`","token":"`+login.Token+`","count":5,"startNow":true}}`)
	ack, events = awaitAck(t, c, "b")
	require.True(t, ack.OK, ack.Error)

	var dealt bool
	for _, ev := range events {
		if ev.Event == string(game.EventCardsDealt) {
			dealt = true
			var p game.CardsDealtPayload
			require.NoError(t, json.Unmarshal(ev.Data, &p))
			assert.Len(t, p.Hand, 8)
		}
	}
	assert.True(t, dealt)

	send(t, c, `{"op":"drop-card","id":"c","payload":{"gameId":"`+login.SessionID+`","token":"`+login.Token+`","card":"nope"}}`)
	ack, _ = awaitAck(t, c, "c")
	assert.False(t, ack.OK)
	assert.Equal(t, "VALIDATION_ERROR", ack.Code)

	res, err := http.Get(srv.URL + "/games")
	require.NoError(t, err)
	defer res.Body.Close()
	var listing gamesResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&listing))
	assert.Equal(t, 1, listing.Count)
	assert.Equal(t, []string{login.SessionID}, listing.IDs)
	assert.Equal(t, 1, gs.Core.ActivePlayers())
}

func TestClosingSocketReleasesPlayer(t *testing.T) {
	srv, gs := newTestServer(t)
	c := dial(t, srv, Subprotocol)

	send(t, c, `{"op":"login","id":"a","payload":{"playerId":"bo"}}`)
	ack, _ := awaitAck(t, c, "a")
	require.True(t, ack.OK, ack.Error)
	require.Equal(t, 1, gs.Core.ActivePlayers())

	require.NoError(t, c.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool {
		return gs.Core.ActivePlayers() == 0 && gs.Hub.Len() == 0
	}, 5*time.Second, 20*time.Millisecond)

	n, err := gs.Core.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "the empty lobby is removed")
}

func TestMissingSubprotocolIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestHeartbeat(t *testing.T) {
	srv, _ := newTestServer(t)
	res, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
