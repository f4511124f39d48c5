// internal/game/lobby.go
package game

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/models"
)

// LoginResult is returned to a player that created or joined a session.
type LoginResult struct {
	SessionID string         `json:"sessionId"`
	PlayerID  string         `json:"playerId"`
	Token     string         `json:"token"`
	IsCreator bool           `json:"isCreator"`
	Started   bool           `json:"started"`
	Players   []PublicPlayer `json:"players"`
}

// Login admits displayID on channelID. With an empty sessionID a new session is created and the
// caller becomes its creator; otherwise the caller joins that session's lobby.
func (c *GameCore) Login(ctx context.Context, channelID, displayID, sessionID string) (*LoginResult, error) {
	displayID = strings.TrimSpace(displayID)
	if displayID == "" {
		return nil, gameerr.New(gameerr.Validation, "player id is required")
	}
	if utf8.RuneCountInString(displayID) > c.cfg.MaxDisplayIDLength {
		return nil, gameerr.Newf(gameerr.Validation, "player id must be at most %d characters", c.cfg.MaxDisplayIDLength)
	}
	if channelID == "" {
		return nil, gameerr.New(gameerr.Validation, "connection id is required")
	}
	if err := c.pool.reserve(displayID, channelID); err != nil {
		return nil, err
	}

	var (
		res *LoginResult
		err error
	)
	if sessionID == "" {
		res, err = c.createSession(ctx, channelID, displayID)
	} else {
		res, err = c.joinSession(ctx, channelID, displayID, sessionID)
	}
	if err != nil {
		c.pool.release(displayID)
		return nil, err
	}
	c.pool.assign(displayID, res.SessionID)
	return res, nil
}

func (c *GameCore) createSession(ctx context.Context, channelID, displayID string) (*LoginResult, error) {
	id := newSessionID()
	entry := c.registry.getOrCreate(id)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	gs := models.NewGameState(id, c.clock.Now())
	ch := c.newChange(entry, gs)
	p, err := c.seatHuman(ch, channelID, displayID, true)
	if err != nil {
		c.registry.remove(id)
		return nil, err
	}
	ch.broadcast(EventPlayerList, playerListPayload(gs))
	if err := ch.commit(ctx); err != nil {
		c.registry.remove(id)
		return nil, err
	}
	c.sessionLog(id).WithField("player", displayID).Info("session created")
	return loginResult(gs, p), nil
}

func (c *GameCore) joinSession(ctx context.Context, channelID, displayID, sessionID string) (*LoginResult, error) {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	if gs.IsGameStarted {
		return nil, gameerr.ErrGameStarted
	}
	if len(gs.Players) >= models.MaxSeats {
		return nil, gameerr.ErrSessionFull
	}

	ch := c.newChange(entry, gs)
	p, err := c.seatHuman(ch, channelID, displayID, false)
	if err != nil {
		return nil, err
	}
	if err := c.fillBotQuota(ch); err != nil {
		return nil, err
	}
	if err := c.maybeStart(ch); err != nil {
		return nil, err
	}
	if !gs.IsGameStarted {
		ch.broadcast(EventPlayerList, playerListPayload(gs))
	}
	if err := ch.commit(ctx); err != nil {
		return nil, err
	}
	c.sessionLog(sessionID).WithField("player", displayID).Info("player joined")
	return loginResult(gs, p), nil
}

func loginResult(gs *models.GameState, p *models.Player) *LoginResult {
	return &LoginResult{
		SessionID: gs.ID,
		PlayerID:  p.ID,
		Token:     p.Token,
		IsCreator: p.IsCreator,
		Started:   gs.IsGameStarted,
		Players:   publicPlayers(gs),
	}
}

func (c *GameCore) seatHuman(ch *change, channelID, displayID string, creator bool) (*models.Player, error) {
	gs := ch.gs
	token, err := c.newToken(displayID, gs.ID)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()
	p := &models.Player{
		ID:        displayID,
		Token:     token,
		ChannelID: channelID,
		SessionID: gs.ID,
		IsCreator: creator,
		JoinedAt:  now,
		LastSeen:  now,
	}
	gs.Players = append(gs.Players, p)
	ch.join(channelID)
	ch.broadcast(EventPlayerConnected, PlayerPayload{PlayerID: p.ID, Seat: len(gs.Players) - 1})
	ch.record(p.ID, "login", map[string]interface{}{"creator": creator})
	return p, nil
}

func (c *GameCore) seatBot(ch *change) error {
	gs := ch.gs
	id := ""
	for id == "" || gs.SeatByID(id) >= 0 {
		id = "bot-" + uuid.NewString()[:6]
	}
	token, err := c.newToken(id, gs.ID)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	gs.Players = append(gs.Players, &models.Player{
		ID:         id,
		Token:      token,
		SessionID:  gs.ID,
		IsBotAgent: true,
		JoinedAt:   now,
		LastSeen:   now,
	})
	ch.record(id, "bot-added", nil)
	return nil
}

// AddBots handles a bot request from a seated player. count is the number of bots to add.
// With startNow the bots are seated immediately; otherwise they are reserved and seated once
// enough humans have joined to fill the table. A count of 0 means the lobby waits for humans only.
func (c *GameCore) AddBots(ctx context.Context, sessionID, token string, count int, startNow bool) error {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	seat, err := actingSeat(gs, token)
	if err != nil {
		return err
	}
	if gs.IsGameStarted {
		return gameerr.ErrGameStarted
	}
	if count < 0 || count > models.MaxSeats-1 {
		return gameerr.Newf(gameerr.Validation, "bot count must be between 0 and %d", models.MaxSeats-1)
	}
	if len(gs.Players)+count > models.MaxSeats {
		return gameerr.Newf(gameerr.Capacity, "adding %d bots would exceed %d players", count, models.MaxSeats)
	}

	ch := c.newChange(entry, gs)
	if count == 0 {
		gs.BotQuota = 0
	} else {
		gs.BotQuota = gs.BotCount() + count
	}
	ch.record(gs.Players[seat].ID, "add-bots", map[string]interface{}{"count": count, "startNow": startNow})

	if startNow {
		for i := 0; i < count; i++ {
			if err := c.seatBot(ch); err != nil {
				return err
			}
		}
	} else if err := c.fillBotQuota(ch); err != nil {
		return err
	}
	if err := c.maybeStart(ch); err != nil {
		return err
	}
	if !gs.IsGameStarted {
		ch.broadcast(EventPlayerList, playerListPayload(gs))
	}
	return ch.commit(ctx)
}

// fillBotQuota seats the reserved bots once the humans plus the quota fill the table.
func (c *GameCore) fillBotQuota(ch *change) error {
	gs := ch.gs
	if gs.BotQuota <= 0 || gs.IsGameStarted {
		return nil
	}
	if gs.HumanCount()+gs.BotQuota < models.MaxSeats {
		return nil
	}
	for gs.BotCount() < gs.BotQuota && len(gs.Players) < models.MaxSeats {
		if err := c.seatBot(ch); err != nil {
			return err
		}
	}
	return nil
}

// maybeStart starts the session exactly once, when the sixth seat is filled.
func (c *GameCore) maybeStart(ch *change) error {
	gs := ch.gs
	if gs.IsGameStarted || len(gs.Players) < models.MaxSeats {
		return nil
	}
	gs.Players = AssignSeats(gs.Players)
	gs.IsGameStarted = true
	gs.StartingSeat = 0
	if err := c.dealHands(ch); err != nil {
		return err
	}

	ids := make([]string, len(gs.Players))
	for i, p := range gs.Players {
		ids[i] = p.ID
	}
	ch.record("", "game-started", map[string]interface{}{"seats": ids})
	ch.broadcast(EventPlayerList, playerListPayload(gs))
	c.announceDeal(ch)
	c.sessionLog(gs.ID).Info("game started")
	return nil
}

// dealHands resets everything that belongs to one deal and gives each seat a fresh hand.
// Scores and the starting seat are kept.
func (c *GameCore) dealHands(ch *change) error {
	gs := ch.gs
	hands, err := c.deal()
	if err != nil {
		return gameerr.Wrap(err, "failed to deal")
	}
	gs.Hands = make(map[string][]cards.Card, len(gs.Players))
	for i, p := range gs.Players {
		gs.Hands[p.ID] = hands[i]
	}
	gs.Round = nil
	gs.TeamACards = nil
	gs.TeamBCards = nil
	gs.RoundsPlayed = 0
	gs.CurrentBet = 0
	gs.PlayerWithCurrentBet = ""
	gs.Passes = nil
	gs.FinalBid = 0
	gs.BiddingTeam = ""
	gs.BiddingPlayer = ""
	gs.TrumpSuit = ""
	gs.PlayerTrumpSuit = make(map[string]string)
	gs.BidLocked = false
	gs.IsGameCompleted = false
	gs.LastResult = nil
	gs.RestartProtectionActive = true
	gs.CurrentTurn = gs.StartingSeat
	return nil
}

// announceDeal sends every seat its hand and tells the table whose turn it is.
func (c *GameCore) announceDeal(ch *change) {
	gs := ch.gs
	for i, p := range gs.Players {
		ch.send(p, EventCardsDealt, CardsDealtPayload{
			Seat:         i,
			Hand:         append([]cards.Card(nil), gs.Hands[p.ID]...),
			StartingSeat: gs.StartingSeat,
		})
	}
	ch.broadcast(EventRestartProtection, RestartProtectionPayload{Active: gs.RestartProtectionActive})
	ch.broadcast(EventGameScoreUpdated, ScorePayload{TeamAScore: gs.TeamAScore, TeamBScore: gs.TeamBScore})
	c.announceTurn(ch)
}

func (c *GameCore) announceTurn(ch *change) {
	gs := ch.gs
	ch.broadcast(EventTurnChanged, TurnChangedPayload{Seat: gs.CurrentTurn, PlayerID: gs.Players[gs.CurrentTurn].ID})
	c.scheduleBot(ch)
}
