// internal/handlers/dispatch.go
package handlers

import (
	"context"

	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/protocol"
	"github.com/sirupsen/logrus"
)

// pong is the result of a ping.
type pong struct {
	Pong bool `json:"pong"`
}

// dispatch routes one decoded request to the engine and builds its acknowledgement.
func (s *GameServer) dispatch(ctx context.Context, conn *Connection, f protocol.Frame, req protocol.Request) protocol.Ack {
	log := s.Logger.WithFields(logrus.Fields{"channel": conn.ID, "op": f.Op})
	log.Debug("handling request")

	data, err := s.route(ctx, conn, req)
	if err != nil {
		if gameerr.KindOf(err) == gameerr.Internal {
			log.WithError(err).Error("request failed")
		} else {
			log.WithField("reason", gameerr.Reason(err)).Debug("request rejected")
		}
		return protocol.Failure(f, err)
	}
	return protocol.Success(f, data)
}

func (s *GameServer) route(ctx context.Context, conn *Connection, req protocol.Request) (interface{}, error) {
	core := s.Core
	switch r := req.(type) {
	case protocol.Ping:
		return pong{Pong: true}, nil
	case protocol.Login:
		return core.Login(ctx, conn.ID, r.PlayerID, r.GameID)
	case protocol.AddBots:
		return nil, core.AddBots(ctx, r.GameID, r.Token, r.Count, r.StartNow)
	case protocol.Reconnect:
		return core.Reconnect(ctx, conn.ID, r.PlayerID, r.Token, r.GameID)
	case protocol.ReconnectAnswer:
		if r.Approve {
			return core.ApproveReconnect(ctx, r.GameID, r.Token, r.PlayerID)
		}
		return nil, core.DenyReconnect(ctx, r.GameID, r.Token, r.PlayerID)
	case protocol.SelectStarter:
		return nil, core.SelectStarter(ctx, r.GameID, r.Token, r.StartSeat)
	case protocol.DropCard:
		return nil, core.DropCard(ctx, r.GameID, r.Token, r.Card)
	case protocol.IncrementBet:
		return nil, core.IncrementBet(ctx, r.GameID, r.Token, r.Bet)
	case protocol.UpdateGameScore:
		return core.UpdateGameScore(ctx, r.GameID, r.Token)
	case protocol.ClaimRound:
		return nil, core.ClaimRound(ctx, r.GameID, r.Token, r.Team)
	case protocol.RestartGame:
		return nil, core.Restart(ctx, r.GameID, r.Token)
	case protocol.ForfeitGame:
		return nil, core.Forfeit(ctx, r.GameID, r.Token)
	case protocol.SelectTrumpSuit:
		return nil, core.SelectTrumpSuit(ctx, r.GameID, r.Token, r.Suit)
	case protocol.BiddingAction:
		return nil, core.BiddingAction(ctx, r.GameID, r.Token, r.Action, r.Value)
	}
	return nil, gameerr.Newf(gameerr.Validation, "unsupported op %q", req.Op())
}
