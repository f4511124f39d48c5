// internal/game/config.go
package game

import (
	"time"

	"github.com/coder/quartz"
)

// Config holds the engine tunables.
type Config struct {
	// BotDelay is how long a server-played seat waits before dropping its card.
	BotDelay time.Duration
	// RoundDelay is how long a full round stays on the table before it is resolved automatically.
	RoundDelay time.Duration
	// DisconnectTimeout is how long a seat may stay disconnected before it is permanently removed.
	DisconnectTimeout time.Duration
	// MaxActivePlayers caps the number of humans across all sessions.
	MaxActivePlayers int
	// RequiredApprovals is the number of peer approvals a reconnection needs.
	RequiredApprovals int
	// MaxDisplayIDLength bounds the public player id.
	MaxDisplayIDLength int
	// Seed seeds the shuffler; 0 seeds from the clock.
	Seed int64
	// Clock drives every timer.
	Clock quartz.Clock
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BotDelay:           time.Second,
		RoundDelay:         2 * time.Second,
		DisconnectTimeout:  5 * time.Minute,
		MaxActivePlayers:   100,
		RequiredApprovals:  1,
		MaxDisplayIDLength: 10,
		Clock:              quartz.NewReal(),
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BotDelay <= 0 {
		c.BotDelay = d.BotDelay
	}
	if c.RoundDelay <= 0 {
		c.RoundDelay = d.RoundDelay
	}
	if c.DisconnectTimeout <= 0 {
		c.DisconnectTimeout = d.DisconnectTimeout
	}
	if c.MaxActivePlayers <= 0 {
		c.MaxActivePlayers = d.MaxActivePlayers
	}
	if c.RequiredApprovals <= 0 {
		c.RequiredApprovals = d.RequiredApprovals
	}
	if c.MaxDisplayIDLength <= 0 {
		c.MaxDisplayIDLength = d.MaxDisplayIDLength
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	return c
}
