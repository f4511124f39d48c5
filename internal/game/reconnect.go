// internal/game/reconnect.go
package game

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/models"
)

// Reconnection outcomes.
const (
	ReconnectStatusReconnected = "reconnected"
	ReconnectStatusPending     = "pending"
)

// ReconnectResult is returned to a player asking to rejoin.
type ReconnectResult struct {
	Status    string      `json:"status"`
	SessionID string      `json:"sessionId"`
	PlayerID  string      `json:"playerId"`
	Approvals int         `json:"approvals"`
	Required  int         `json:"required"`
	State     *PlayerView `json:"state,omitempty"`
}

// ApproveResult reports the progress of a pending reconnection.
type ApproveResult struct {
	PlayerID  string `json:"playerId"`
	Approvals int    `json:"approvals"`
	Required  int    `json:"required"`
	Completed bool   `json:"completed"`
}

// minSeatsToContinue is the number of remaining seats below which a session is aborted.
const minSeatsToContinue = 3

// ChannelLost handles a closed connection. In a lobby the player simply leaves; in a started
// session the seat is marked disconnected, the session pauses and a removal timer is armed.
func (c *GameCore) ChannelLost(ctx context.Context, channelID string) error {
	pe, ok := c.pool.lookupChannel(channelID)
	if !ok {
		return nil
	}
	if pe.sessionID == "" {
		c.pool.unbindChannel(channelID)
		return nil
	}

	entry, gs, err := c.acquire(ctx, pe.sessionID)
	if err != nil {
		if gameerr.KindOf(err) == gameerr.NotFound {
			c.pool.releaseSession(pe.displayID, pe.sessionID)
			return nil
		}
		return err
	}
	defer entry.mu.Unlock()

	seat := gs.SeatByID(pe.displayID)
	if seat < 0 {
		c.pool.releaseSession(pe.displayID, pe.sessionID)
		return nil
	}
	p := gs.Players[seat]
	ch := c.newChange(entry, gs)

	switch {
	case p.IsDisconnected:
		// The lost channel belonged to a reconnection request still waiting for approval.
		c.pool.unbindChannel(channelID)
		if pr, ok := gs.PendingReconnections[p.ID]; ok && pr.ChannelID == channelID {
			delete(gs.PendingReconnections, p.ID)
			ch.record(p.ID, "reconnect-abandoned", nil)
		}
	case p.ChannelID != channelID:
		c.pool.unbindChannel(channelID)
		return nil
	case !gs.IsGameStarted:
		c.leaveLobby(ch, seat)
	default:
		c.markDisconnected(ch, seat)
	}
	return ch.commit(ctx)
}

// leaveLobby removes a player from a session that has not started. An empty lobby is deleted.
func (c *GameCore) leaveLobby(ch *change, seat int) {
	gs := ch.gs
	p := gs.Players[seat]
	gs.Players = append(gs.Players[:seat:seat], gs.Players[seat+1:]...)
	delete(gs.Hands, p.ID)
	c.pool.releaseSession(p.ID, gs.ID)
	ch.leave(p.ChannelID)
	ch.record(p.ID, "leave-lobby", nil)

	if gs.HumanCount() == 0 {
		ch.entry.cancelAll()
		ch.entry.removed = true
		ch.deleted = true
		c.sessionLog(gs.ID).Info("empty lobby removed")
		return
	}
	if p.IsCreator {
		for _, other := range gs.Players {
			if !other.IsBotAgent {
				other.IsCreator = true
				break
			}
		}
	}
	ch.broadcast(EventPlayerDisconnected, PlayerPayload{PlayerID: p.ID, Seat: seat})
	ch.broadcast(EventPlayerList, playerListPayload(gs))
}

func (c *GameCore) markDisconnected(ch *change, seat int) {
	gs := ch.gs
	p := gs.Players[seat]
	now := c.clock.Now()

	old := p.ChannelID
	p.IsDisconnected = true
	p.DisconnectedAt = now
	p.ChannelID = ""
	gs.DisconnectedPlayers[p.ID] = models.DisconnectedPlayer{
		PlayerID:       p.ID,
		Seat:           seat,
		ChannelID:      old,
		HandSize:       len(gs.Hands[p.ID]),
		DisconnectedAt: now,
	}
	c.pool.unbindChannel(old)
	ch.leave(old)
	c.armDisconnectTimer(ch, p.ID)

	ch.broadcast(EventPlayerDisconnected, PlayerPayload{PlayerID: p.ID, Seat: seat})
	ch.record(p.ID, "disconnect", nil)
	if !gs.GamePaused {
		gs.GamePaused = true
		ch.entry.cancelBotTimer()
		ch.broadcast(EventGamePaused, PausePayload{Disconnected: disconnectedIDs(gs)})
	}
	c.sessionLog(gs.ID).WithField("player", p.ID).Info("player disconnected")
}

func disconnectedIDs(gs *models.GameState) []string {
	ids := make([]string, 0, len(gs.DisconnectedPlayers))
	for id := range gs.DisconnectedPlayers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *GameCore) armDisconnectTimer(ch *change, playerID string) {
	entry := ch.entry
	entry.cancelDisconnectTimer(playerID)
	seq := entry.disconnectSeq[playerID]
	sessionID := ch.gs.ID
	entry.disconnectTimers[playerID] = c.clock.AfterFunc(c.cfg.DisconnectTimeout, func() {
		c.onDisconnectTimeout(sessionID, playerID, seq)
	}, "game", "disconnect")
}

// Reconnect asks to put displayID back in its seat on channelID. tokenHint and sessionHint are
// optional; when given they must match the seat. If another human is connected the request waits
// for approval, otherwise it completes immediately.
func (c *GameCore) Reconnect(ctx context.Context, channelID, displayID, tokenHint, sessionHint string) (*ReconnectResult, error) {
	displayID = strings.TrimSpace(displayID)
	if displayID == "" {
		return nil, gameerr.New(gameerr.Validation, "player id is required")
	}
	if channelID == "" {
		return nil, gameerr.New(gameerr.Validation, "connection id is required")
	}
	pe, ok := c.pool.lookupDisplay(displayID)
	if !ok || pe.sessionID == "" {
		return nil, gameerr.ErrPlayerNotFound
	}
	if sessionHint != "" && sessionHint != pe.sessionID {
		return nil, gameerr.New(gameerr.Validation, "player is not part of that game")
	}
	if tokenHint != "" && c.issuer != nil {
		claims, err := c.issuer.Verify(tokenHint)
		if err != nil || claims.PlayerID != displayID || claims.SessionID != pe.sessionID {
			return nil, gameerr.New(gameerr.Validation, "invalid reconnection token")
		}
	}

	entry, gs, err := c.acquire(ctx, pe.sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	seat := gs.SeatByID(displayID)
	if seat < 0 {
		return nil, gameerr.ErrPlayerNotFound
	}
	p := gs.Players[seat]
	if !p.IsDisconnected {
		return nil, gameerr.New(gameerr.StateConflict, "player is already connected")
	}
	if tokenHint != "" && tokenHint != p.Token {
		return nil, gameerr.New(gameerr.Validation, "invalid reconnection token")
	}
	if err := c.pool.bind(displayID, channelID); err != nil {
		return nil, err
	}

	ch := c.newChange(entry, gs)
	peers := gs.ConnectedHumans(p.ID)
	if len(peers) == 0 {
		view := c.completeReconnect(ch, seat, channelID)
		if err := ch.commit(ctx); err != nil {
			return nil, err
		}
		return &ReconnectResult{
			Status:    ReconnectStatusReconnected,
			SessionID: gs.ID,
			PlayerID:  p.ID,
			State:     view,
		}, nil
	}

	required := c.cfg.RequiredApprovals
	if required > len(peers) {
		required = len(peers)
	}
	if old, ok := gs.PendingReconnections[p.ID]; ok && old.ChannelID != channelID {
		c.pool.unbindChannel(old.ChannelID)
	}
	pr := &models.PendingReconnection{
		PlayerID:    p.ID,
		ChannelID:   channelID,
		Required:    required,
		RequestedAt: c.clock.Now(),
	}
	gs.PendingReconnections[p.ID] = pr

	payload := ReconnectPayload{PlayerID: p.ID, SessionID: gs.ID, Required: required}
	for _, peer := range peers {
		ch.send(peer, EventReconnectRequested, payload)
	}
	ch.sendChannel(channelID, EventReconnectPending, payload)
	ch.record(p.ID, "reconnect-requested", nil)
	if err := ch.commit(ctx); err != nil {
		return nil, err
	}
	return &ReconnectResult{
		Status:    ReconnectStatusPending,
		SessionID: gs.ID,
		PlayerID:  p.ID,
		Required:  required,
	}, nil
}

// approver resolves the seat answering a reconnection request.
func approver(gs *models.GameState, token, playerID string) (*models.Player, *models.PendingReconnection, error) {
	seat := gs.SeatByToken(token)
	if seat < 0 {
		return nil, nil, gameerr.ErrPlayerNotFound
	}
	a := gs.Players[seat]
	if a.ID == playerID {
		return nil, nil, gameerr.New(gameerr.Validation, "players cannot answer their own reconnection")
	}
	if !a.IsConnectedHuman() {
		return nil, nil, gameerr.New(gameerr.StateConflict, "only connected players can answer a reconnection")
	}
	pr, ok := gs.PendingReconnections[playerID]
	if !ok {
		return nil, nil, gameerr.New(gameerr.NotFound, "no pending reconnection for that player")
	}
	return a, pr, nil
}

// ApproveReconnect records a peer approval and completes the reconnection once enough are collected.
func (c *GameCore) ApproveReconnect(ctx context.Context, sessionID, token, playerID string) (*ApproveResult, error) {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	a, pr, err := approver(gs, token, playerID)
	if err != nil {
		return nil, err
	}
	if !pr.HasApproval(a.ID) {
		pr.Approvals = append(pr.Approvals, a.ID)
	}

	ch := c.newChange(entry, gs)
	ch.record(a.ID, "approve-reconnect", map[string]interface{}{"player": playerID})
	res := &ApproveResult{PlayerID: playerID, Approvals: len(pr.Approvals), Required: pr.Required}
	if len(pr.Approvals) >= pr.Required {
		c.completeReconnect(ch, gs.SeatByID(playerID), pr.ChannelID)
		res.Completed = true
	} else {
		ch.sendChannel(pr.ChannelID, EventReconnectPending, ReconnectPayload{
			PlayerID:  playerID,
			SessionID: gs.ID,
			Approvals: len(pr.Approvals),
			Required:  pr.Required,
		})
	}
	if err := ch.commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// DenyReconnect discards a pending reconnection and tells the requester.
func (c *GameCore) DenyReconnect(ctx context.Context, sessionID, token, playerID string) error {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()

	a, pr, err := approver(gs, token, playerID)
	if err != nil {
		return err
	}
	delete(gs.PendingReconnections, playerID)
	c.pool.unbindChannel(pr.ChannelID)

	ch := c.newChange(entry, gs)
	ch.sendChannel(pr.ChannelID, EventReconnectDenied, ReconnectPayload{PlayerID: playerID, SessionID: gs.ID})
	ch.record(a.ID, "deny-reconnect", map[string]interface{}{"player": playerID})
	return ch.commit(ctx)
}

// completeReconnect puts the player back on channelID and returns its view, token included.
func (c *GameCore) completeReconnect(ch *change, seat int, channelID string) *PlayerView {
	gs := ch.gs
	p := gs.Players[seat]

	p.ChannelID = channelID
	p.IsDisconnected = false
	p.DisconnectedAt = time.Time{}
	p.LastSeen = c.clock.Now()
	delete(gs.DisconnectedPlayers, p.ID)
	delete(gs.PendingReconnections, p.ID)
	ch.entry.cancelDisconnectTimer(p.ID)
	if err := c.pool.bind(p.ID, channelID); err != nil {
		c.sessionLog(gs.ID).WithError(err).WithField("player", p.ID).Warn("failed to rebind channel")
	}
	ch.join(channelID)

	ch.broadcast(EventPlayerReconnected, PlayerPayload{PlayerID: p.ID, Seat: seat})
	ch.record(p.ID, "reconnected", nil)
	c.resumeIfClear(ch)

	view := buildView(gs, seat)
	view.Token = p.Token
	ch.sendChannel(channelID, EventGameState, view)
	c.sessionLog(gs.ID).WithField("player", p.ID).Info("player reconnected")
	return view
}

// resumeIfClear lifts the pause once no seat is waiting for a reconnection.
func (c *GameCore) resumeIfClear(ch *change) {
	gs := ch.gs
	if !gs.GamePaused || len(gs.DisconnectedPlayers) > 0 {
		return
	}
	gs.GamePaused = false
	ch.broadcast(EventGameResumed, PausePayload{Disconnected: []string{}})
	c.resumePlay(ch)
}

// onDisconnectTimeout permanently removes a seat whose owner never came back. The seat keeps its
// cards and is played by the bot policy; too few remaining seats abort the session.
func (c *GameCore) onDisconnectTimeout(sessionID, playerID string, seq uint64) {
	entry, ok := c.registry.get(sessionID)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed || entry.disconnectSeq[playerID] != seq {
		return
	}
	delete(entry.disconnectTimers, playerID)

	ctx := context.Background()
	logger := c.sessionLog(sessionID).WithField("player", playerID)
	gs, err := c.store.FetchGame(ctx, sessionID)
	if err != nil {
		logger.WithError(err).Error("disconnect timer: failed to load game")
		return
	}
	if gs == nil {
		return
	}
	seat := gs.SeatByID(playerID)
	if seat < 0 || !gs.Players[seat].IsDisconnected {
		return
	}
	p := gs.Players[seat]
	ch := c.newChange(entry, gs)

	delete(gs.DisconnectedPlayers, p.ID)
	if pr, ok := gs.PendingReconnections[p.ID]; ok {
		ch.sendChannel(pr.ChannelID, EventReconnectDenied, ReconnectPayload{PlayerID: p.ID, SessionID: gs.ID})
		delete(gs.PendingReconnections, p.ID)
	}
	p.IsDisconnected = false
	p.Removed = true
	c.pool.releaseSession(p.ID, gs.ID)
	ch.record(p.ID, "player-removed", nil)

	remaining, humans := 0, 0
	for _, other := range gs.Players {
		if other.Removed {
			continue
		}
		remaining++
		if !other.IsBotAgent {
			humans++
		}
	}
	if remaining < minSeatsToContinue || humans == 0 {
		c.abort(ch, "too few players remain")
	} else {
		ch.broadcast(EventPlayerRemoved, PlayerPayload{PlayerID: p.ID, Seat: seat})
		c.resumeIfClear(ch)
		logger.Info("player permanently removed")
	}
	if err := ch.commit(ctx); err != nil {
		logger.WithError(err).Error("disconnect timer: failed to save game")
	}
}
