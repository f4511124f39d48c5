// internal/game/bots.go
package game

import (
	"context"

	"github.com/jason-s-yu/twentyeight/internal/bot"
	"github.com/jason-s-yu/twentyeight/internal/models"
)

// botCanAct reports whether the seat on turn is server-played and allowed to move now.
func botCanAct(gs *models.GameState) bool {
	if !gs.IsGameStarted || gs.IsGameCompleted || gs.GamePaused || gs.RoundComplete() {
		return false
	}
	if gs.CurrentTurn < 0 || gs.CurrentTurn >= len(gs.Players) {
		return false
	}
	return gs.Players[gs.CurrentTurn].IsAutomated()
}

// scheduleBot replaces any pending bot move and arms a new one when the seat on turn is automated.
func (c *GameCore) scheduleBot(ch *change) {
	entry := ch.entry
	entry.cancelBotTimer()
	if !botCanAct(ch.gs) {
		return
	}
	seq := entry.botSeq
	sessionID := ch.gs.ID
	entry.botTimer = c.clock.AfterFunc(c.cfg.BotDelay, func() {
		c.onBotTimer(sessionID, seq)
	}, "game", "bot")
}

func (c *GameCore) onBotTimer(sessionID string, seq uint64) {
	entry, ok := c.registry.get(sessionID)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed || entry.botSeq != seq {
		return
	}
	entry.botTimer = nil

	ctx := context.Background()
	logger := c.sessionLog(sessionID)
	gs, err := c.store.FetchGame(ctx, sessionID)
	if err != nil {
		logger.WithError(err).Error("bot turn: failed to load game")
		return
	}
	if gs == nil || !botCanAct(gs) {
		return
	}

	seat := gs.CurrentTurn
	p := gs.Players[seat]
	card := bot.Choose(bot.View{
		Seat:  seat,
		Hand:  gs.Hands[p.ID],
		Round: gs.Round,
		Trump: gs.EffectiveTrump(),
	})
	if card == "" {
		logger.WithField("player", p.ID).Warn("bot turn: empty hand")
		return
	}

	ch := c.newChange(entry, gs)
	c.playCard(ch, seat, card)
	if err := ch.commit(ctx); err != nil {
		logger.WithError(err).Error("bot turn: failed to save game")
	}
}

// armRoundTimer schedules automatic resolution of a full round.
func (c *GameCore) armRoundTimer(ch *change) {
	entry := ch.entry
	entry.cancelRoundTimer()
	seq := entry.roundSeq
	sessionID := ch.gs.ID
	entry.roundTimer = c.clock.AfterFunc(c.cfg.RoundDelay, func() {
		c.onRoundTimer(sessionID, seq)
	}, "game", "round")
}

func (c *GameCore) onRoundTimer(sessionID string, seq uint64) {
	entry, ok := c.registry.get(sessionID)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed || entry.roundSeq != seq {
		return
	}
	entry.roundTimer = nil

	ctx := context.Background()
	logger := c.sessionLog(sessionID)
	gs, err := c.store.FetchGame(ctx, sessionID)
	if err != nil {
		logger.WithError(err).Error("round timer: failed to load game")
		return
	}
	// A manual claim, a restart or a pause may have happened since the timer was armed.
	if gs == nil || !gs.RoundComplete() || gs.IsGameCompleted || gs.GamePaused {
		return
	}

	ch := c.newChange(entry, gs)
	c.resolveRound(ch)
	if err := ch.commit(ctx); err != nil {
		logger.WithError(err).Error("round timer: failed to save game")
	}
}

// resumePlay restarts whatever the pause held back.
func (c *GameCore) resumePlay(ch *change) {
	gs := ch.gs
	if !gs.IsGameStarted || gs.IsGameCompleted {
		return
	}
	if gs.RoundComplete() {
		c.armRoundTimer(ch)
		return
	}
	c.scheduleBot(ch)
}
