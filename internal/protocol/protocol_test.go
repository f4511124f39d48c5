package protocol

import (
	"encoding/json"
	"testing"

	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Request
	}{
		{"ping", `{"op":"ping","id":"1"}`, Ping{}},
		{"login create", `{"op":"login","payload":{"playerId":"ann"}}`, Login{PlayerID: "ann"}},
		{"login join", `{"op":"login","payload":{"playerId":"ann","gameId":"g1"}}`, Login{PlayerID: "ann", GameID: "g1"}},
		{"add bots", `{"op":"add-bots","payload":{"gameId":"g1","token":"t","count":3,"startNow":true}}`,
			AddBots{Seat: Seat{GameID: "g1", Token: "t"}, Count: 3, StartNow: true}},
		{"reconnect", `{"op":"reconnect","payload":{"playerId":"ann","token":"t"}}`, Reconnect{PlayerID: "ann", Token: "t"}},
		{"approve", `{"op":"approve-reconnect","payload":{"gameId":"g1","token":"t","playerId":"bob"}}`,
			ReconnectAnswer{Seat: Seat{GameID: "g1", Token: "t"}, PlayerID: "bob", Approve: true}},
		{"deny", `{"op":"deny-reconnect","payload":{"gameId":"g1","token":"t","playerId":"bob"}}`,
			ReconnectAnswer{Seat: Seat{GameID: "g1", Token: "t"}, PlayerID: "bob"}},
		{"select starter", `{"op":"select-player-to-start-round","payload":{"gameId":"g1","token":"t","seat":4}}`,
			SelectStarter{Seat: Seat{GameID: "g1", Token: "t"}, StartSeat: 4}},
		{"drop card", `{"op":"drop-card","payload":{"gameId":"g1","token":"t","card":"0HA"}}`,
			DropCard{Seat: Seat{GameID: "g1", Token: "t"}, Card: "0HA"}},
		{"increment bet", `{"op":"increment-bet","payload":{"gameId":"g1","token":"t","bet":30}}`,
			IncrementBet{Seat: Seat{GameID: "g1", Token: "t"}, Bet: 30}},
		{"update score", `{"op":"update-game-score","payload":{"gameId":"g1","token":"t"}}`,
			UpdateGameScore{Seat: Seat{GameID: "g1", Token: "t"}}},
		{"claim A", `{"op":"round-won-by-team-A","payload":{"gameId":"g1","token":"t"}}`,
			ClaimRound{Seat: Seat{GameID: "g1", Token: "t"}, Team: "A"}},
		{"claim B", `{"op":"round-won-by-team-B","payload":{"gameId":"g1","token":"t"}}`,
			ClaimRound{Seat: Seat{GameID: "g1", Token: "t"}, Team: "B"}},
		{"restart", `{"op":"restart-game","payload":{"gameId":"g1","token":"t"}}`, RestartGame{Seat: Seat{GameID: "g1", Token: "t"}}},
		{"forfeit", `{"op":"forfeit-game","payload":{"gameId":"g1","token":"t"}}`, ForfeitGame{Seat: Seat{GameID: "g1", Token: "t"}}},
		{"trump", `{"op":"select-trump-suit","payload":{"gameId":"g1","token":"t","suit":"NT"}}`,
			SelectTrumpSuit{Seat: Seat{GameID: "g1", Token: "t"}, Suit: "NT"}},
		{"bidding", `{"op":"bidding-action","payload":{"gameId":"g1","token":"t","action":"bid","value":32}}`,
			BiddingAction{Seat: Seat{GameID: "g1", Token: "t"}, Action: "bid", Value: 32}},
		{"null payload", `{"op":"restart-game","payload":null}`, RestartGame{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, req, err := Decode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestDecodeOpMatchesTag(t *testing.T) {
	for _, op := range []Op{OpApproveReconnect, OpDenyReconnect, OpRoundWonByTeamA, OpRoundWonByTeamB, OpDropCard} {
		f, req, err := Decode([]byte(`{"op":"` + string(op) + `","id":"x","payload":{}}`))
		require.NoError(t, err)
		assert.Equal(t, op, req.Op())
		assert.Equal(t, "x", f.ID)
	}
}

func TestDecodeErrors(t *testing.T) {
	f, _, err := Decode([]byte(`{"op":"fly","id":"7"}`))
	assert.Equal(t, gameerr.Validation, gameerr.KindOf(err))
	assert.Equal(t, "7", f.ID, "the id survives so the failure can be acknowledged")

	_, _, err = Decode([]byte(`not json`))
	assert.Equal(t, gameerr.Validation, gameerr.KindOf(err))

	_, _, err = Decode([]byte(`{"id":"1"}`))
	assert.Equal(t, gameerr.Validation, gameerr.KindOf(err))

	_, _, err = Decode([]byte(`{"op":"drop-card","payload":{"card":7}}`))
	assert.Equal(t, gameerr.Validation, gameerr.KindOf(err))
}

func TestAckEnvelopes(t *testing.T) {
	f := Frame{Op: OpDropCard, ID: "42"}

	ok := Success(f, map[string]int{"n": 1})
	raw, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ack","id":"42","op":"drop-card","ok":true,"code":"OK","data":{"n":1}}`, string(raw))

	fail := Failure(f, gameerr.ErrSuitViolation)
	assert.False(t, fail.OK)
	assert.Equal(t, string(gameerr.RuleViolation), fail.Code)
	assert.Equal(t, gameerr.ErrSuitViolation.Reason, fail.Error)

	internal := Failure(f, assert.AnError)
	assert.Equal(t, string(gameerr.Internal), internal.Code)
	assert.NotContains(t, internal.Error, assert.AnError.Error())
}

func TestNotify(t *testing.T) {
	raw, err := json.Marshal(Notify("turn-changed", map[string]int{"seat": 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"event","event":"turn-changed","data":{"seat":2}}`, string(raw))
}
