package models

import "time"

// Player is one seat of a session. ID is the public display identity; Token is the secret
// per-seat capability that authorizes every mutating action and is never shown to other players.
type Player struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	ChannelID string `json:"channelId,omitempty"`
	SessionID string `json:"sessionId"`

	IsBotAgent     bool `json:"isBotAgent"`
	IsDisconnected bool `json:"isDisconnected"`
	IsCreator      bool `json:"isCreator"`

	// Removed marks a seat whose owner never came back. The seat keeps its cards and is
	// played by the bot policy for the rest of the session.
	Removed bool `json:"removed,omitempty"`

	JoinedAt       time.Time `json:"joinedAt"`
	LastSeen       time.Time `json:"lastSeen"`
	DisconnectedAt time.Time `json:"disconnectedAt,omitempty"`
}

// IsAutomated reports whether the seat is played by the server.
func (p *Player) IsAutomated() bool {
	return p.IsBotAgent || p.Removed
}

// IsConnectedHuman reports whether p is a human seat currently holding a live channel.
func (p *Player) IsConnectedHuman() bool {
	return !p.IsBotAgent && !p.Removed && !p.IsDisconnected
}
