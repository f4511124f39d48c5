// internal/models/game_state.go
package models

import (
	"time"

	"github.com/jason-s-yu/twentyeight/internal/cards"
)

// Teams, derived from seat-index parity.
const (
	TeamA = "A"
	TeamB = "B"
)

// MaxSeats is the number of seats in a started session.
const MaxSeats = 6

// InitialScore is the score each team starts with and is reset to when a delta would go negative.
const InitialScore = 10

// Play is one card dropped into the current strike.
type Play struct {
	Card     cards.Card `json:"card"`
	Seat     int        `json:"seat"`
	PlayerID string     `json:"playerId"`
}

// DisconnectedPlayer is the snapshot taken when a seat loses its channel.
type DisconnectedPlayer struct {
	PlayerID       string    `json:"playerId"`
	Seat           int       `json:"seat"`
	ChannelID      string    `json:"channelId"`
	HandSize       int       `json:"handSize"`
	DisconnectedAt time.Time `json:"disconnectedAt"`
}

// PendingReconnection is a rejoin request waiting for peer approval.
type PendingReconnection struct {
	PlayerID    string    `json:"playerId"`
	ChannelID   string    `json:"channelId"`
	Approvals   []string  `json:"approvals"`
	Required    int       `json:"required"`
	RequestedAt time.Time `json:"requestedAt"`
}

// HasApproval reports whether approverID already approved the request.
func (p *PendingReconnection) HasApproval(approverID string) bool {
	for _, a := range p.Approvals {
		if a == approverID {
			return true
		}
	}
	return false
}

// Completion is the scoring outcome of one fully played deal.
type Completion struct {
	TeamAPoints        int    `json:"teamAPoints"`
	TeamBPoints        int    `json:"teamBPoints"`
	FinalBid           int    `json:"finalBid"`
	BiddingTeam        string `json:"biddingTeam"`
	Achieved           bool   `json:"achieved"`
	Delta              int    `json:"delta"`
	TeamAScore         int    `json:"teamAScore"`
	TeamBScore         int    `json:"teamBScore"`
	ScoreResetOccurred bool   `json:"scoreResetOccurred"`
}

// GameState is the authoritative state of one session as kept in the store.
type GameState struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	// Players is seat order once the game has started and join order before that.
	Players []*Player `json:"players"`

	// Hands maps player ID to the cards still held.
	Hands map[string][]cards.Card `json:"hands"`

	// Round is the current strike in play order. It holds the card, the seat and the player
	// of every drop and is cleared when the round is resolved.
	Round        []Play `json:"round"`
	CurrentTurn  int    `json:"currentTurn"`
	StartingSeat int    `json:"startingSeat"`
	RoundsPlayed int    `json:"roundsPlayed"`

	TeamACards []cards.Card `json:"teamACards"`
	TeamBCards []cards.Card `json:"teamBCards"`

	CurrentBet           int               `json:"currentBet"`
	PlayerWithCurrentBet string            `json:"playerWithCurrentBet,omitempty"`
	Passes               []string          `json:"passes,omitempty"`
	FinalBid             int               `json:"finalBid"`
	BiddingTeam          string            `json:"biddingTeam,omitempty"`
	BiddingPlayer        string            `json:"biddingPlayer,omitempty"`
	TrumpSuit            string            `json:"trumpSuit,omitempty"`
	PlayerTrumpSuit      map[string]string `json:"playerTrumpSuit"`
	BidLocked            bool              `json:"bidLocked"`

	TeamAScore int `json:"teamAScore"`
	TeamBScore int `json:"teamBScore"`

	// BotQuota is the number of bots requested for the lobby, -1 when none was requested.
	BotQuota int `json:"botQuota"`

	IsGameStarted           bool `json:"isGameStarted"`
	IsGameCompleted         bool `json:"isGameCompleted"`
	GamePaused              bool `json:"gamePaused"`
	RestartProtectionActive bool `json:"restartProtectionActive"`
	RestartCount            int  `json:"restartCount"`

	LastResult *Completion `json:"lastResult,omitempty"`

	DisconnectedPlayers  map[string]DisconnectedPlayer   `json:"disconnectedPlayers"`
	PendingReconnections map[string]*PendingReconnection `json:"pendingReconnections"`
}

// NewGameState returns a lobby-stage session with both scores at InitialScore.
func NewGameState(id string, now time.Time) *GameState {
	return &GameState{
		ID:                      id,
		CreatedAt:               now,
		Players:                 []*Player{},
		Hands:                   make(map[string][]cards.Card),
		PlayerTrumpSuit:         make(map[string]string),
		TeamAScore:              InitialScore,
		TeamBScore:              InitialScore,
		BotQuota:                -1,
		RestartProtectionActive: true,
		DisconnectedPlayers:     make(map[string]DisconnectedPlayer),
		PendingReconnections:    make(map[string]*PendingReconnection),
	}
}

// TeamOf returns the team of a seat index.
func TeamOf(seat int) string {
	if seat%2 == 0 {
		return TeamA
	}
	return TeamB
}

// SeatByToken returns the seat holding token, or -1.
func (s *GameState) SeatByToken(token string) int {
	if token == "" {
		return -1
	}
	for i, p := range s.Players {
		if p.Token == token {
			return i
		}
	}
	return -1
}

// SeatByID returns the seat of the player with the given public ID, or -1.
func (s *GameState) SeatByID(playerID string) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// HumanCount counts seats that joined as humans.
func (s *GameState) HumanCount() int {
	n := 0
	for _, p := range s.Players {
		if !p.IsBotAgent {
			n++
		}
	}
	return n
}

// BotCount counts seats that joined as bots.
func (s *GameState) BotCount() int {
	return len(s.Players) - s.HumanCount()
}

// ConnectedSeats counts seats that are not waiting for a reconnection.
func (s *GameState) ConnectedSeats() int {
	n := 0
	for _, p := range s.Players {
		if !p.IsDisconnected {
			n++
		}
	}
	return n
}

// ConnectedHumans returns the human seats currently holding a live channel, excluding exceptID.
func (s *GameState) ConnectedHumans(exceptID string) []*Player {
	var out []*Player
	for _, p := range s.Players {
		if p.ID != exceptID && p.IsConnectedHuman() {
			out = append(out, p)
		}
	}
	return out
}

// CardsWon is the number of cards in both teams' piles.
func (s *GameState) CardsWon() int {
	return len(s.TeamACards) + len(s.TeamBCards)
}

// RoundComplete reports whether every seat has played in the current round.
func (s *GameState) RoundComplete() bool {
	return len(s.Players) > 0 && len(s.Round) >= len(s.Players)
}

// AnyCardPlayed reports whether a card has been played or a trick won in this deal.
func (s *GameState) AnyCardPlayed() bool {
	return s.BidLocked || len(s.Round) > 0 || s.CardsWon() > 0
}

// EffectiveTrump is the trump in force, NoTrump when none was chosen.
func (s *GameState) EffectiveTrump() string {
	if s.TrumpSuit == "" {
		return cards.NoTrump
	}
	return s.TrumpSuit
}

// Clone returns a deep copy of s.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	c := *s

	c.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		c.Players[i] = &cp
	}

	c.Hands = make(map[string][]cards.Card, len(s.Hands))
	for id, hand := range s.Hands {
		c.Hands[id] = append([]cards.Card(nil), hand...)
	}

	c.Round = append([]Play(nil), s.Round...)
	c.TeamACards = append([]cards.Card(nil), s.TeamACards...)
	c.TeamBCards = append([]cards.Card(nil), s.TeamBCards...)
	c.Passes = append([]string(nil), s.Passes...)

	c.PlayerTrumpSuit = make(map[string]string, len(s.PlayerTrumpSuit))
	for k, v := range s.PlayerTrumpSuit {
		c.PlayerTrumpSuit[k] = v
	}

	if s.LastResult != nil {
		r := *s.LastResult
		c.LastResult = &r
	}

	c.DisconnectedPlayers = make(map[string]DisconnectedPlayer, len(s.DisconnectedPlayers))
	for k, v := range s.DisconnectedPlayers {
		c.DisconnectedPlayers[k] = v
	}

	c.PendingReconnections = make(map[string]*PendingReconnection, len(s.PendingReconnections))
	for k, v := range s.PendingReconnections {
		pr := *v
		pr.Approvals = append([]string(nil), v.Approvals...)
		c.PendingReconnections[k] = &pr
	}
	return &c
}
