// internal/game/events.go
package game

import (
	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/models"
)

// EventType names an outbound notification.
type EventType string

const (
	EventTurnChanged        EventType = "turn-changed"
	EventCardsDealt         EventType = "cards-dealt"
	EventStrikeUpdated      EventType = "strike-updated"
	EventRoundWonByTeamA    EventType = "round-won-by-team-A"
	EventRoundWonByTeamB    EventType = "round-won-by-team-B"
	EventTrumpSelected      EventType = "trump-selected"
	EventBetUpdated         EventType = "bet-updated"
	EventGameScoreUpdated   EventType = "game-score-updated"
	EventGameCompleted      EventType = "game-completed"
	EventPlayerList         EventType = "player-list"
	EventPlayerConnected    EventType = "player-connected"
	EventPlayerDisconnected EventType = "player-disconnected"
	EventPlayerReconnected  EventType = "player-reconnected"
	EventGamePaused         EventType = "game-paused"
	EventGameResumed        EventType = "game-resumed"
	EventGameAborted        EventType = "game-aborted"
	EventRestartProtection  EventType = "restart-protection-status"

	EventReconnectRequested EventType = "reconnect-requested" // to connected peers
	EventReconnectPending   EventType = "reconnect-pending"   // to the requester
	EventReconnectDenied    EventType = "reconnect-denied"    // to the requester
	EventPlayerRemoved      EventType = "player-removed"
	EventGameState          EventType = "game-state" // private snapshot after a completed reconnection
)

// Event is one outbound notification.
type Event struct {
	Type EventType   `json:"event"`
	Data interface{} `json:"data,omitempty"`
}

// --- Payloads ---

type TurnChangedPayload struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
}

type CardsDealtPayload struct {
	Seat         int          `json:"seat"`
	Hand         []cards.Card `json:"hand"`
	StartingSeat int          `json:"startingSeat"`
}

type StrikeUpdatedPayload struct {
	Seat     int           `json:"seat"`
	PlayerID string        `json:"playerId"`
	Card     cards.Card    `json:"card"`
	Round    []models.Play `json:"round"`
	NextSeat int           `json:"nextSeat"`
	Complete bool          `json:"complete"`
}

type RoundWonPayload struct {
	Team       string       `json:"team"`
	Seat       int          `json:"seat"`
	PlayerID   string       `json:"playerId"`
	Card       cards.Card   `json:"card"`
	Cards      []cards.Card `json:"cards"`
	TeamACount int          `json:"teamACount"`
	TeamBCount int          `json:"teamBCount"`
}

type TrumpSelectedPayload struct {
	PlayerID  string `json:"playerId,omitempty"`
	TrumpSuit string `json:"trumpSuit"`
	Locked    bool   `json:"locked"`
}

type BetUpdatedPayload struct {
	CurrentBet           int      `json:"currentBet"`
	PlayerWithCurrentBet string   `json:"playerWithCurrentBet,omitempty"`
	FinalBid             int      `json:"finalBid"`
	BiddingTeam          string   `json:"biddingTeam,omitempty"`
	BiddingPlayer        string   `json:"biddingPlayer,omitempty"`
	PassedBy             string   `json:"passedBy,omitempty"`
	Passes               []string `json:"passes,omitempty"`
	Locked               bool     `json:"locked"`
}

type ScorePayload struct {
	TeamAScore int `json:"teamAScore"`
	TeamBScore int `json:"teamBScore"`
}

type PlayerListPayload struct {
	Players  []PublicPlayer `json:"players"`
	Started  bool           `json:"started"`
	BotQuota int            `json:"botQuota"`
}

type PlayerPayload struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
}

type AbortedPayload struct {
	Reason string `json:"reason"`
}

type RestartProtectionPayload struct {
	Active bool `json:"active"`
}

type ReconnectPayload struct {
	PlayerID  string `json:"playerId"`
	SessionID string `json:"sessionId"`
	Approvals int    `json:"approvals,omitempty"`
	Required  int    `json:"required,omitempty"`
}

type PausePayload struct {
	Disconnected []string `json:"disconnected"`
}
