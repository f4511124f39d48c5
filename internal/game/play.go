// internal/game/play.go
package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/models"
	"github.com/jason-s-yu/twentyeight/internal/rules"
	"github.com/sirupsen/logrus"
)

// requirePlaying rejects in-game actions outside an active, unpaused deal.
func requirePlaying(gs *models.GameState) error {
	switch {
	case !gs.IsGameStarted:
		return gameerr.ErrGameNotStarted
	case gs.IsGameCompleted:
		return gameerr.ErrGameCompleted
	case gs.GamePaused:
		return gameerr.ErrGamePaused
	}
	return nil
}

// DropCard plays card from the seat holding token.
func (c *GameCore) DropCard(ctx context.Context, sessionID, token, card string) error {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	seat, err := actingSeat(gs, token)
	if err != nil {
		return err
	}
	if err := requirePlaying(gs); err != nil {
		return err
	}
	cd, err := cards.Parse(card)
	if err != nil {
		return gameerr.Newf(gameerr.Validation, "invalid card %q", card)
	}
	if gs.RoundComplete() {
		return gameerr.ErrRoundAlreadyComplete
	}
	if seat != gs.CurrentTurn {
		return gameerr.ErrNotYourTurn
	}
	hand := gs.Hands[gs.Players[seat].ID]
	if !cards.Contains(hand, cd) {
		return gameerr.ErrCardNotHeld
	}
	if err := rules.CheckFollowSuit(hand, gs.Round, cd); err != nil {
		return err
	}

	ch := c.newChange(entry, gs)
	c.playCard(ch, seat, cd)
	return ch.commit(ctx)
}

// playCard moves a validated card from seat's hand into the round. Humans and bots share it.
func (c *GameCore) playCard(ch *change, seat int, cd cards.Card) {
	gs := ch.gs
	p := gs.Players[seat]

	hand, _ := cards.Remove(gs.Hands[p.ID], cd)
	gs.Hands[p.ID] = hand
	if !gs.BidLocked {
		c.lockBid(ch, seat)
	}
	gs.Round = append(gs.Round, models.Play{Card: cd, Seat: seat, PlayerID: p.ID})
	gs.CurrentTurn = (seat + 1) % len(gs.Players)
	p.LastSeen = c.clock.Now()
	complete := gs.RoundComplete()

	ch.broadcast(EventStrikeUpdated, StrikeUpdatedPayload{
		Seat:     seat,
		PlayerID: p.ID,
		Card:     cd,
		Round:    append([]models.Play(nil), gs.Round...),
		NextSeat: gs.CurrentTurn,
		Complete: complete,
	})
	ch.record(p.ID, "drop-card", map[string]interface{}{"card": string(cd), "seat": seat})

	if gs.RestartProtectionActive {
		gs.RestartProtectionActive = false
		ch.broadcast(EventRestartProtection, RestartProtectionPayload{Active: false})
	}

	if complete {
		ch.entry.cancelBotTimer()
		c.armRoundTimer(ch)
		return
	}
	c.announceTurn(ch)
}

// lockBid fixes the bid, the bidding side and the trump when the first card of a deal is played.
func (c *GameCore) lockBid(ch *change, seat int) {
	gs := ch.gs
	if gs.FinalBid == 0 {
		gs.FinalBid = rules.DefaultBid
	}
	bidderSeat := gs.SeatByID(gs.PlayerWithCurrentBet)
	if bidderSeat < 0 {
		bidderSeat = seat
	}
	gs.BiddingPlayer = gs.Players[bidderSeat].ID
	gs.BiddingTeam = models.TeamOf(bidderSeat)
	if gs.TrumpSuit == "" {
		gs.TrumpSuit = cards.NoTrump
	}
	gs.BidLocked = true

	ch.broadcast(EventBetUpdated, betPayload(gs))
	ch.broadcast(EventTrumpSelected, TrumpSelectedPayload{TrumpSuit: gs.TrumpSuit, Locked: true})
	ch.record(gs.BiddingPlayer, "bid-locked", map[string]interface{}{
		"finalBid":    gs.FinalBid,
		"biddingTeam": gs.BiddingTeam,
		"trumpSuit":   gs.TrumpSuit,
	})
}

func betPayload(gs *models.GameState) BetUpdatedPayload {
	return BetUpdatedPayload{
		CurrentBet:           gs.CurrentBet,
		PlayerWithCurrentBet: gs.PlayerWithCurrentBet,
		FinalBid:             gs.FinalBid,
		BiddingTeam:          gs.BiddingTeam,
		BiddingPlayer:        gs.BiddingPlayer,
		Passes:               append([]string(nil), gs.Passes...),
		Locked:               gs.BidLocked,
	}
}

// SelectStarter moves the opening turn to seat before the first card of a deal.
func (c *GameCore) SelectStarter(ctx context.Context, sessionID, token string, seat int) error {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	actor, err := actingSeat(gs, token)
	if err != nil {
		return err
	}
	if err := requirePlaying(gs); err != nil {
		return err
	}
	if gs.AnyCardPlayed() {
		return gameerr.New(gameerr.StateConflict, "the opening player can only be chosen before the first card")
	}
	if seat < 0 || seat >= len(gs.Players) {
		return gameerr.Newf(gameerr.Validation, "seat must be between 0 and %d", len(gs.Players)-1)
	}

	gs.CurrentTurn = seat
	gs.StartingSeat = seat
	ch := c.newChange(entry, gs)
	ch.record(gs.Players[actor].ID, "select-player-to-start-round", map[string]interface{}{"seat": seat})
	c.announceTurn(ch)
	return ch.commit(ctx)
}

// IncrementBet raises the current bet.
func (c *GameCore) IncrementBet(ctx context.Context, sessionID, token string, bet int) error {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	seat, err := actingSeat(gs, token)
	if err != nil {
		return err
	}
	ch := c.newChange(entry, gs)
	if err := c.placeBet(ch, seat, bet); err != nil {
		return err
	}
	return ch.commit(ctx)
}

func biddingOpen(gs *models.GameState) error {
	if err := requirePlaying(gs); err != nil {
		return err
	}
	if gs.AnyCardPlayed() {
		return gameerr.ErrBiddingClosed
	}
	return nil
}

func (c *GameCore) placeBet(ch *change, seat, bet int) error {
	gs := ch.gs
	if err := biddingOpen(gs); err != nil {
		return err
	}
	if bet <= 0 || bet > rules.MaxBid {
		return gameerr.Newf(gameerr.Validation, "bet must be between 1 and %d", rules.MaxBid)
	}
	if bet <= gs.CurrentBet {
		return gameerr.Newf(gameerr.Validation, "bet must be higher than the current bet of %d", gs.CurrentBet)
	}

	p := gs.Players[seat]
	gs.CurrentBet = bet
	gs.PlayerWithCurrentBet = p.ID
	if bet >= rules.DefaultBid {
		gs.FinalBid = bet
		gs.BiddingTeam = models.TeamOf(seat)
		gs.BiddingPlayer = p.ID
	}
	gs.Passes = removeString(gs.Passes, p.ID)

	ch.broadcast(EventBetUpdated, betPayload(gs))
	ch.record(p.ID, "increment-bet", map[string]interface{}{"bet": bet})
	return nil
}

// Bidding actions.
const (
	BidActionBid  = "bid"
	BidActionPass = "pass"
)

// BiddingAction places a bid or records a pass.
func (c *GameCore) BiddingAction(ctx context.Context, sessionID, token, action string, value int) error {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	seat, err := actingSeat(gs, token)
	if err != nil {
		return err
	}
	ch := c.newChange(entry, gs)

	switch strings.ToLower(action) {
	case BidActionBid:
		if err := c.placeBet(ch, seat, value); err != nil {
			return err
		}
	case BidActionPass:
		if err := biddingOpen(gs); err != nil {
			return err
		}
		id := gs.Players[seat].ID
		if !containsString(gs.Passes, id) {
			gs.Passes = append(gs.Passes, id)
		}
		payload := betPayload(gs)
		payload.PassedBy = id
		ch.broadcast(EventBetUpdated, payload)
		ch.record(id, "pass", nil)
	default:
		return gameerr.Newf(gameerr.Validation, "unknown bidding action %q", action)
	}
	return ch.commit(ctx)
}

// SelectTrumpSuit records the seat's trump choice. The last choice before the first card wins.
func (c *GameCore) SelectTrumpSuit(ctx context.Context, sessionID, token, suit string) error {
	suit = strings.ToUpper(strings.TrimSpace(suit))
	if !cards.ValidTrump(suit) {
		return gameerr.Newf(gameerr.Validation, "invalid trump suit %q", suit)
	}
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	seat, err := actingSeat(gs, token)
	if err != nil {
		return err
	}
	if err := requirePlaying(gs); err != nil {
		return err
	}
	if gs.AnyCardPlayed() {
		return gameerr.ErrTrumpLocked
	}

	p := gs.Players[seat]
	gs.PlayerTrumpSuit[p.ID] = suit
	gs.TrumpSuit = suit

	ch := c.newChange(entry, gs)
	ch.broadcast(EventTrumpSelected, TrumpSelectedPayload{PlayerID: p.ID, TrumpSuit: suit})
	ch.record(p.ID, "select-trump-suit", map[string]interface{}{"suit": suit})
	return ch.commit(ctx)
}

// ClaimRound resolves a full round on request. team must be the team that actually won it.
func (c *GameCore) ClaimRound(ctx context.Context, sessionID, token, team string) error {
	if team != models.TeamA && team != models.TeamB {
		return gameerr.Newf(gameerr.Validation, "unknown team %q", team)
	}
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	_, err = actingSeat(gs, token)
	if err != nil {
		return err
	}
	if err := requirePlaying(gs); err != nil {
		return err
	}
	if !gs.RoundComplete() {
		return gameerr.ErrRoundIncomplete
	}
	w := rules.Winner(gs.Round, gs.EffectiveTrump())
	if winner := models.TeamOf(gs.Round[w].Seat); winner != team {
		return gameerr.Newf(gameerr.StateConflict, "round was won by team %s", winner)
	}

	ch := c.newChange(entry, gs)
	c.resolveRound(ch)
	return ch.commit(ctx)
}

// resolveRound gives the current round to its winner. The manual claim and the round timer
// both end here, and whichever runs first cancels the other.
func (c *GameCore) resolveRound(ch *change) {
	gs := ch.gs
	ch.entry.cancelRoundTimer()

	w := rules.Winner(gs.Round, gs.EffectiveTrump())
	win := gs.Round[w]
	team := models.TeamOf(win.Seat)

	won := make([]cards.Card, len(gs.Round))
	for i, pl := range gs.Round {
		won[i] = pl.Card
	}
	ev := EventRoundWonByTeamA
	if team == models.TeamA {
		gs.TeamACards = append(gs.TeamACards, won...)
	} else {
		gs.TeamBCards = append(gs.TeamBCards, won...)
		ev = EventRoundWonByTeamB
	}
	gs.CurrentTurn = win.Seat
	gs.Round = nil
	gs.RoundsPlayed++

	ch.broadcast(ev, RoundWonPayload{
		Team:       team,
		Seat:       win.Seat,
		PlayerID:   win.PlayerID,
		Card:       win.Card,
		Cards:      won,
		TeamACount: len(gs.TeamACards),
		TeamBCount: len(gs.TeamBCards),
	})
	ch.record(win.PlayerID, "round-won", map[string]interface{}{"team": team, "card": string(win.Card)})

	if c.checkCompletion(ch) {
		return
	}
	c.announceTurn(ch)
}

// checkCompletion scores the deal once every card is in a pile. It reports whether the deal is complete.
func (c *GameCore) checkCompletion(ch *change) bool {
	gs := ch.gs
	if gs.IsGameCompleted {
		return true
	}
	if gs.CardsWon() < len(gs.Players)*cards.HandSize {
		return false
	}

	res := rules.Score(gs.TeamACards, gs.TeamBCards, gs.FinalBid, gs.BiddingTeam, gs.TeamAScore, gs.TeamBScore)
	gs.TeamAScore = res.TeamAScore
	gs.TeamBScore = res.TeamBScore
	gs.IsGameCompleted = true
	gs.LastResult = &res
	ch.entry.cancelBotTimer()
	ch.entry.cancelRoundTimer()

	ch.broadcast(EventGameScoreUpdated, ScorePayload{TeamAScore: gs.TeamAScore, TeamBScore: gs.TeamBScore})
	ch.broadcast(EventGameCompleted, res)
	ch.record("", "game-completed", map[string]interface{}{
		"achieved":   res.Achieved,
		"delta":      res.Delta,
		"teamAScore": res.TeamAScore,
		"teamBScore": res.TeamBScore,
		"reset":      res.ScoreResetOccurred,
	})
	c.sessionLog(gs.ID).WithFields(logrus.Fields{
		"finalBid": res.FinalBid,
		"achieved": res.Achieved,
		"teamA":    res.TeamAScore,
		"teamB":    res.TeamBScore,
	}).Info("deal completed")
	c.recordResult(gs.Clone(), gs.RestartCount, res)
	return true
}

// UpdateGameScore runs the completion check on request. Repeating it after completion is a no-op.
func (c *GameCore) UpdateGameScore(ctx context.Context, sessionID, token string) (*models.Completion, error) {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	if _, err := actingSeat(gs, token); err != nil {
		return nil, err
	}
	if !gs.IsGameStarted {
		return nil, gameerr.ErrGameNotStarted
	}
	if gs.IsGameCompleted {
		return gs.LastResult, nil
	}

	ch := c.newChange(entry, gs)
	if !c.checkCompletion(ch) {
		return nil, gameerr.New(gameerr.StateConflict, "the deal is not finished yet")
	}
	if err := ch.commit(ctx); err != nil {
		return nil, err
	}
	return gs.LastResult, nil
}

// Restart deals again with the starting seat rotated by one. Scores are kept.
func (c *GameCore) Restart(ctx context.Context, sessionID, token string) error {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	seat, err := actingSeat(gs, token)
	if err != nil {
		return err
	}
	if !gs.IsGameStarted {
		return gameerr.ErrGameNotStarted
	}
	if gs.RestartProtectionActive {
		return gameerr.ErrRestartProtected
	}
	if gs.GamePaused {
		return gameerr.ErrGamePaused
	}

	gs.StartingSeat = (gs.StartingSeat + 1) % len(gs.Players)
	gs.RestartCount++

	ch := c.newChange(entry, gs)
	if err := c.dealHands(ch); err != nil {
		return err
	}
	ch.record(gs.Players[seat].ID, "restart-game", map[string]interface{}{"startingSeat": gs.StartingSeat})
	c.announceDeal(ch)
	if err := ch.commit(ctx); err != nil {
		return err
	}
	// The new deal has no full round on the table.
	entry.cancelRoundTimer()
	c.sessionLog(sessionID).WithField("startingSeat", gs.StartingSeat).Info("game restarted")
	return nil
}

// Forfeit aborts the session on behalf of a seated player.
func (c *GameCore) Forfeit(ctx context.Context, sessionID, token string) error {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	seat, err := actingSeat(gs, token)
	if err != nil {
		return err
	}
	ch := c.newChange(entry, gs)
	c.abort(ch, fmt.Sprintf("%s forfeited the game", gs.Players[seat].ID))
	return ch.commit(ctx)
}

// abort tears the session down: timers stop, humans leave the pool and the session is deleted on commit.
func (c *GameCore) abort(ch *change, reason string) {
	gs := ch.gs
	ch.entry.cancelAll()
	ch.entry.removed = true
	ch.deleted = true

	ch.broadcast(EventGameAborted, AbortedPayload{Reason: reason})
	for _, pr := range gs.PendingReconnections {
		ch.sendChannel(pr.ChannelID, EventGameAborted, AbortedPayload{Reason: reason})
	}
	for _, p := range gs.Players {
		if p.IsBotAgent {
			continue
		}
		c.pool.releaseSession(p.ID, gs.ID)
		ch.leave(p.ChannelID)
	}
	ch.record("", "game-aborted", map[string]interface{}{"reason": reason})
	if gs.IsGameStarted && !gs.IsGameCompleted {
		c.markAbandoned(gs.ID)
	}
	c.sessionLog(gs.ID).WithField("reason", reason).Info("game aborted")
}

func (c *GameCore) recordResult(gs *models.GameState, dealIndex int, res models.Completion) {
	if c.results == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.results.RecordCompletion(ctx, gs, dealIndex, res); err != nil {
			c.sessionLog(gs.ID).WithError(err).Error("failed to record game result")
		}
	}()
}

func (c *GameCore) markAbandoned(sessionID string) {
	if c.results == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.results.MarkAbandoned(ctx, sessionID); err != nil {
			c.sessionLog(sessionID).WithError(err).Error("failed to mark game abandoned")
		}
	}()
}
