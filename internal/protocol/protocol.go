// Package protocol defines the websocket wire format: inbound operation frames, their decoded
// payloads, and the acknowledgement and notification envelopes sent back to clients.
package protocol

import (
	"encoding/json"
	"strings"

	"github.com/jason-s-yu/twentyeight/internal/gameerr"
)

// Op tags an inbound frame.
type Op string

const (
	OpPing             Op = "ping"
	OpLogin            Op = "login"
	OpAddBots          Op = "add-bots"
	OpReconnect        Op = "reconnect"
	OpApproveReconnect Op = "approve-reconnect"
	OpDenyReconnect    Op = "deny-reconnect"
	OpSelectStarter    Op = "select-player-to-start-round"
	OpDropCard         Op = "drop-card"
	OpIncrementBet     Op = "increment-bet"
	OpUpdateGameScore  Op = "update-game-score"
	OpRoundWonByTeamA  Op = "round-won-by-team-A"
	OpRoundWonByTeamB  Op = "round-won-by-team-B"
	OpRestartGame      Op = "restart-game"
	OpForfeitGame      Op = "forfeit-game"
	OpSelectTrumpSuit  Op = "select-trump-suit"
	OpBiddingAction    Op = "bidding-action"
)

// Frame is one inbound message. ID is chosen by the client and echoed in the acknowledgement.
type Frame struct {
	Op      Op              `json:"op"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request is a decoded payload.
type Request interface {
	Op() Op
}

// Seat identifies the caller inside a session.
type Seat struct {
	GameID string `json:"gameId"`
	Token  string `json:"token"`
}

type Ping struct{}

type Login struct {
	PlayerID string `json:"playerId"`
	GameID   string `json:"gameId,omitempty"`
}

type AddBots struct {
	Seat
	Count    int  `json:"count"`
	StartNow bool `json:"startNow"`
}

type Reconnect struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token,omitempty"`
	GameID   string `json:"gameId,omitempty"`
}

// ReconnectAnswer approves or denies the pending reconnection of PlayerID.
type ReconnectAnswer struct {
	Seat
	PlayerID string `json:"playerId"`
	Approve  bool   `json:"-"`
}

type SelectStarter struct {
	Seat
	StartSeat int `json:"seat"`
}

type DropCard struct {
	Seat
	Card string `json:"card"`
}

type IncrementBet struct {
	Seat
	Bet int `json:"bet"`
}

type UpdateGameScore struct {
	Seat
}

// ClaimRound asks to resolve a full round for Team, which comes from the operation tag.
type ClaimRound struct {
	Seat
	Team string `json:"-"`
}

type RestartGame struct {
	Seat
}

type ForfeitGame struct {
	Seat
}

type SelectTrumpSuit struct {
	Seat
	Suit string `json:"suit"`
}

type BiddingAction struct {
	Seat
	Action string `json:"action"`
	Value  int    `json:"value,omitempty"`
}

func (Ping) Op() Op            { return OpPing }
func (Login) Op() Op           { return OpLogin }
func (AddBots) Op() Op         { return OpAddBots }
func (Reconnect) Op() Op       { return OpReconnect }
func (SelectStarter) Op() Op   { return OpSelectStarter }
func (DropCard) Op() Op        { return OpDropCard }
func (IncrementBet) Op() Op    { return OpIncrementBet }
func (UpdateGameScore) Op() Op { return OpUpdateGameScore }
func (RestartGame) Op() Op     { return OpRestartGame }
func (ForfeitGame) Op() Op     { return OpForfeitGame }
func (SelectTrumpSuit) Op() Op { return OpSelectTrumpSuit }
func (BiddingAction) Op() Op   { return OpBiddingAction }

func (r ReconnectAnswer) Op() Op {
	if r.Approve {
		return OpApproveReconnect
	}
	return OpDenyReconnect
}

func (r ClaimRound) Op() Op {
	if r.Team == "B" {
		return OpRoundWonByTeamB
	}
	return OpRoundWonByTeamA
}

// Decode parses an inbound frame and its payload. The frame is returned even when the payload
// is rejected so the caller can acknowledge by ID.
func Decode(data []byte) (Frame, Request, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return f, nil, gameerr.New(gameerr.Validation, "invalid JSON format")
	}
	f.Op = Op(strings.TrimSpace(string(f.Op)))

	var req Request
	switch f.Op {
	case OpPing:
		return f, Ping{}, nil
	case OpLogin:
		req = &Login{}
	case OpAddBots:
		req = &AddBots{}
	case OpReconnect:
		req = &Reconnect{}
	case OpApproveReconnect:
		req = &ReconnectAnswer{Approve: true}
	case OpDenyReconnect:
		req = &ReconnectAnswer{}
	case OpSelectStarter:
		req = &SelectStarter{}
	case OpDropCard:
		req = &DropCard{}
	case OpIncrementBet:
		req = &IncrementBet{}
	case OpUpdateGameScore:
		req = &UpdateGameScore{}
	case OpRoundWonByTeamA:
		req = &ClaimRound{Team: "A"}
	case OpRoundWonByTeamB:
		req = &ClaimRound{Team: "B"}
	case OpRestartGame:
		req = &RestartGame{}
	case OpForfeitGame:
		req = &ForfeitGame{}
	case OpSelectTrumpSuit:
		req = &SelectTrumpSuit{}
	case OpBiddingAction:
		req = &BiddingAction{}
	case "":
		return f, nil, gameerr.New(gameerr.Validation, "missing op")
	default:
		return f, nil, gameerr.Newf(gameerr.Validation, "unknown op %q", f.Op)
	}

	if len(f.Payload) > 0 && string(f.Payload) != "null" {
		if err := json.Unmarshal(f.Payload, req); err != nil {
			return f, nil, gameerr.Newf(gameerr.Validation, "invalid payload for %s", f.Op)
		}
	}
	return f, deref(req), nil
}

// deref hands out payloads by value so handlers never share them.
func deref(req Request) Request {
	switch r := req.(type) {
	case *Login:
		return *r
	case *AddBots:
		return *r
	case *Reconnect:
		return *r
	case *ReconnectAnswer:
		return *r
	case *SelectStarter:
		return *r
	case *DropCard:
		return *r
	case *IncrementBet:
		return *r
	case *UpdateGameScore:
		return *r
	case *ClaimRound:
		return *r
	case *RestartGame:
		return *r
	case *ForfeitGame:
		return *r
	case *SelectTrumpSuit:
		return *r
	case *BiddingAction:
		return *r
	}
	return req
}
