// internal/game/sync_state.go
package game

import (
	"sort"

	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/models"
)

// PublicPlayer is what every participant may know about a seat. Hands and tokens are never included.
type PublicPlayer struct {
	ID             string `json:"id"`
	Seat           int    `json:"seat"`
	Team           string `json:"team"`
	IsBotAgent     bool   `json:"isBotAgent"`
	IsDisconnected bool   `json:"isDisconnected"`
	Removed        bool   `json:"removed,omitempty"`
	IsCreator      bool   `json:"isCreator,omitempty"`
	HandSize       int    `json:"handSize"`
}

// PlayerView is the reconstructed state of a session as seen from one seat.
type PlayerView struct {
	SessionID string         `json:"sessionId"`
	PlayerID  string         `json:"playerId"`
	Seat      int            `json:"seat"`
	Team      string         `json:"team"`
	Token     string         `json:"token,omitempty"`
	Players   []PublicPlayer `json:"players"`
	Hand      []cards.Card   `json:"hand"`

	Round        []models.Play `json:"round"`
	CurrentTurn  int           `json:"currentTurn"`
	StartingSeat int           `json:"startingSeat"`
	TeamACards   []cards.Card  `json:"teamACards"`
	TeamBCards   []cards.Card  `json:"teamBCards"`

	CurrentBet           int    `json:"currentBet"`
	PlayerWithCurrentBet string `json:"playerWithCurrentBet,omitempty"`
	FinalBid             int    `json:"finalBid"`
	BiddingTeam          string `json:"biddingTeam,omitempty"`
	BiddingPlayer        string `json:"biddingPlayer,omitempty"`
	TrumpSuit            string `json:"trumpSuit,omitempty"`
	BidLocked            bool   `json:"bidLocked"`

	TeamAScore int `json:"teamAScore"`
	TeamBScore int `json:"teamBScore"`

	IsGameStarted           bool `json:"isGameStarted"`
	IsGameCompleted         bool `json:"isGameCompleted"`
	GamePaused              bool `json:"gamePaused"`
	RestartProtectionActive bool `json:"restartProtectionActive"`

	PendingReconnections []string           `json:"pendingReconnections,omitempty"`
	LastResult           *models.Completion `json:"lastResult,omitempty"`
}

func publicPlayers(gs *models.GameState) []PublicPlayer {
	out := make([]PublicPlayer, len(gs.Players))
	for i, p := range gs.Players {
		out[i] = PublicPlayer{
			ID:             p.ID,
			Seat:           i,
			Team:           models.TeamOf(i),
			IsBotAgent:     p.IsBotAgent,
			IsDisconnected: p.IsDisconnected,
			Removed:        p.Removed,
			IsCreator:      p.IsCreator,
			HandSize:       len(gs.Hands[p.ID]),
		}
	}
	return out
}

func playerListPayload(gs *models.GameState) PlayerListPayload {
	return PlayerListPayload{
		Players:  publicPlayers(gs),
		Started:  gs.IsGameStarted,
		BotQuota: gs.BotQuota,
	}
}

// buildView copies everything seat may see. The token is left empty; callers add it when the
// view is sent to the seat's owner after a reconnection.
func buildView(gs *models.GameState, seat int) *PlayerView {
	p := gs.Players[seat]
	v := &PlayerView{
		SessionID: gs.ID,
		PlayerID:  p.ID,
		Seat:      seat,
		Team:      models.TeamOf(seat),
		Players:   publicPlayers(gs),
		Hand:      append([]cards.Card{}, gs.Hands[p.ID]...),

		Round:        append([]models.Play{}, gs.Round...),
		CurrentTurn:  gs.CurrentTurn,
		StartingSeat: gs.StartingSeat,
		TeamACards:   append([]cards.Card{}, gs.TeamACards...),
		TeamBCards:   append([]cards.Card{}, gs.TeamBCards...),

		CurrentBet:           gs.CurrentBet,
		PlayerWithCurrentBet: gs.PlayerWithCurrentBet,
		FinalBid:             gs.FinalBid,
		BiddingTeam:          gs.BiddingTeam,
		BiddingPlayer:        gs.BiddingPlayer,
		TrumpSuit:            gs.TrumpSuit,
		BidLocked:            gs.BidLocked,

		TeamAScore: gs.TeamAScore,
		TeamBScore: gs.TeamBScore,

		IsGameStarted:           gs.IsGameStarted,
		IsGameCompleted:         gs.IsGameCompleted,
		GamePaused:              gs.GamePaused,
		RestartProtectionActive: gs.RestartProtectionActive,
		LastResult:              gs.LastResult,
	}
	for id := range gs.PendingReconnections {
		v.PendingReconnections = append(v.PendingReconnections, id)
	}
	sort.Strings(v.PendingReconnections)
	return v
}
