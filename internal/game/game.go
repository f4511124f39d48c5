// internal/game/game.go
package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/twentyeight/internal/auth"
	"github.com/jason-s-yu/twentyeight/internal/cache"
	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/models"
	"github.com/jason-s-yu/twentyeight/internal/store"
	"github.com/sirupsen/logrus"
)

// Broadcaster delivers notifications. Broadcast targets every channel joined to a session;
// Send targets a single channel. Delivery is best effort.
type Broadcaster interface {
	Broadcast(sessionID string, ev Event)
	Send(channelID string, ev Event) error
	Join(channelID, sessionID string)
	Leave(channelID, sessionID string)
}

// ActionPublisher receives a record of every accepted action.
type ActionPublisher interface {
	Publish(ctx context.Context, record cache.ActionRecord) error
}

// ResultRecorder persists finished and abandoned sessions.
type ResultRecorder interface {
	RecordCompletion(ctx context.Context, gs *models.GameState, dealIndex int, res models.Completion) error
	MarkAbandoned(ctx context.Context, gameID string) error
}

// Deps are the collaborators of a GameCore. Store, Broadcaster and Logger are required.
type Deps struct {
	Store       store.Store
	Broadcaster Broadcaster
	Logger      *logrus.Logger
	Issuer      *auth.Issuer
	Actions     ActionPublisher
	Results     ResultRecorder
}

// GameCore runs every session of the process. Each operation re-reads the session from the
// store, mutates it under the session's lock, saves it and then delivers notifications.
type GameCore struct {
	cfg      Config
	clock    quartz.Clock
	store    store.Store
	bc       Broadcaster
	log      *logrus.Logger
	issuer   *auth.Issuer
	actions  ActionPublisher
	results  ResultRecorder
	registry *SessionRegistry
	pool     *playerPool

	rngMu sync.Mutex
	rng   *rand.Rand

	// Action records leave in commit order through a single drainer.
	pubMu      sync.Mutex
	pubQueue   []cache.ActionRecord
	publishing bool

	wg sync.WaitGroup
}

// NewGameCore builds a GameCore.
func NewGameCore(cfg Config, deps Deps) *GameCore {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &GameCore{
		cfg:      cfg,
		clock:    cfg.Clock,
		store:    deps.Store,
		bc:       deps.Broadcaster,
		log:      logger,
		issuer:   deps.Issuer,
		actions:  deps.Actions,
		results:  deps.Results,
		registry: NewSessionRegistry(),
		pool:     newPlayerPool(cfg.MaxActivePlayers),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Wait blocks until background publishing and result recording have finished.
func (c *GameCore) Wait() {
	c.wg.Wait()
}

// ActivePlayers is the number of humans in the pool.
func (c *GameCore) ActivePlayers() int {
	return c.pool.size()
}

// SessionIDs lists the stored sessions.
func (c *GameCore) SessionIDs(ctx context.Context) ([]string, error) {
	ids, err := c.store.GetAllGameIDs(ctx)
	if err != nil {
		return nil, gameerr.Wrap(err, "failed to list games")
	}
	return ids, nil
}

// Count is the number of stored sessions.
func (c *GameCore) Count(ctx context.Context) (int, error) {
	n, err := c.store.Count(ctx)
	if err != nil {
		return 0, gameerr.Wrap(err, "failed to count games")
	}
	return n, nil
}

// Snapshot returns the view of a session for one player.
func (c *GameCore) Snapshot(ctx context.Context, sessionID, token string) (*PlayerView, error) {
	entry, gs, err := c.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()
	seat := gs.SeatByToken(token)
	if seat < 0 {
		return nil, gameerr.ErrPlayerNotFound
	}
	return buildView(gs, seat), nil
}

func (c *GameCore) deal() ([][]cards.Card, error) {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return cards.Deal(c.rng, models.MaxSeats)
}

func (c *GameCore) newToken(playerID, sessionID string) (string, error) {
	if c.issuer == nil {
		return uuid.NewString(), nil
	}
	tok, err := c.issuer.Issue(playerID, sessionID)
	if err != nil {
		return "", gameerr.Wrap(err, "failed to issue seat token")
	}
	return tok, nil
}

func newSessionID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// acquire locks the session entry and loads the stored state. On success the caller owns
// entry.mu and must unlock it.
func (c *GameCore) acquire(ctx context.Context, sessionID string) (*sessionEntry, *models.GameState, error) {
	if sessionID == "" {
		return nil, nil, gameerr.New(gameerr.Validation, "game id is required")
	}
	entry, ok := c.registry.get(sessionID)
	if !ok {
		// The session may have been created by an earlier process sharing the store.
		gs, err := c.store.FetchGame(ctx, sessionID)
		if err != nil {
			return nil, nil, gameerr.Wrap(err, "failed to load game")
		}
		if gs == nil {
			return nil, nil, gameerr.ErrSessionNotFound
		}
		entry = c.registry.getOrCreate(sessionID)
	}

	entry.mu.Lock()
	if entry.removed {
		entry.mu.Unlock()
		return nil, nil, gameerr.ErrSessionNotFound
	}
	gs, err := c.store.FetchGame(ctx, sessionID)
	if err != nil {
		entry.mu.Unlock()
		return nil, nil, gameerr.Wrap(err, "failed to load game")
	}
	if gs == nil {
		entry.mu.Unlock()
		return nil, nil, gameerr.ErrSessionNotFound
	}
	return entry, gs, nil
}

// delivery is one queued notification. An empty channel means the whole session.
type delivery struct {
	channelID string
	ev        Event
}

// change collects the side effects of one operation so they are released only after the
// state is saved.
type change struct {
	c       *GameCore
	entry   *sessionEntry
	gs      *models.GameState
	joins   []string
	out     []delivery
	leaves  []string
	actions []cache.ActionRecord
	deleted bool
}

func (c *GameCore) newChange(entry *sessionEntry, gs *models.GameState) *change {
	return &change{c: c, entry: entry, gs: gs}
}

func (ch *change) broadcast(t EventType, data interface{}) {
	ch.out = append(ch.out, delivery{ev: Event{Type: t, Data: data}})
}

// send queues a private notification; seats without a channel are skipped.
func (ch *change) send(p *models.Player, t EventType, data interface{}) {
	if p == nil || p.ChannelID == "" || p.IsBotAgent {
		return
	}
	ch.sendChannel(p.ChannelID, t, data)
}

func (ch *change) sendChannel(channelID string, t EventType, data interface{}) {
	ch.out = append(ch.out, delivery{channelID: channelID, ev: Event{Type: t, Data: data}})
}

func (ch *change) join(channelID string) {
	ch.joins = append(ch.joins, channelID)
}

func (ch *change) leave(channelID string) {
	if channelID != "" {
		ch.leaves = append(ch.leaves, channelID)
	}
}

// record queues an action log entry.
func (ch *change) record(actorID, actionType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := cache.ActionRecord{
		GameID:        ch.gs.ID,
		ActionIndex:   ch.entry.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     ch.c.clock.Now().UnixMilli(),
	}
	ch.entry.actionIndex++
	ch.actions = append(ch.actions, rec)
}

// commit saves the state, or deletes it for an aborted session, and releases the queued side effects.
func (ch *change) commit(ctx context.Context) error {
	if ch.deleted {
		ch.c.registry.remove(ch.gs.ID)
		if err := ch.c.store.DeleteGame(ctx, ch.gs.ID); err != nil {
			ch.flush()
			return gameerr.Wrap(err, "failed to delete game")
		}
	} else if err := ch.c.store.SaveGame(ctx, ch.gs); err != nil {
		ch.c.rearm(ctx, ch.entry, ch.gs.ID)
		return gameerr.Wrap(err, "failed to save game")
	}
	ch.flush()
	return nil
}

// rearm restores the play timers of the stored state after a failed save replaced them.
// The caller holds entry.mu.
func (c *GameCore) rearm(ctx context.Context, entry *sessionEntry, sessionID string) {
	gs, err := c.store.FetchGame(ctx, sessionID)
	if err != nil {
		c.sessionLog(sessionID).WithError(err).Error("failed to reload game after a failed save")
		return
	}
	if gs == nil {
		return
	}
	c.resumePlay(c.newChange(entry, gs))
}

// enqueueActions appends records to the outgoing queue and starts the drainer if it is idle.
func (c *GameCore) enqueueActions(records []cache.ActionRecord) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	c.pubQueue = append(c.pubQueue, records...)
	if c.publishing {
		return
	}
	c.publishing = true
	c.wg.Add(1)
	go c.drainActions()
}

func (c *GameCore) drainActions() {
	defer c.wg.Done()
	for {
		c.pubMu.Lock()
		batch := c.pubQueue
		c.pubQueue = nil
		if len(batch) == 0 {
			c.publishing = false
			c.pubMu.Unlock()
			return
		}
		c.pubMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		for _, rec := range batch {
			if err := c.actions.Publish(ctx, rec); err != nil {
				c.log.WithFields(logrus.Fields{
					"session": rec.GameID,
					"index":   rec.ActionIndex,
				}).WithError(err).Warn("failed to publish game action")
			}
		}
		cancel()
	}
}

func (ch *change) flush() {
	c := ch.c
	sessionID := ch.gs.ID
	for _, channelID := range ch.joins {
		c.bc.Join(channelID, sessionID)
	}
	for _, d := range ch.out {
		if d.channelID == "" {
			c.bc.Broadcast(sessionID, d.ev)
			continue
		}
		if err := c.bc.Send(d.channelID, d.ev); err != nil {
			c.log.WithFields(logrus.Fields{
				"session": sessionID,
				"channel": d.channelID,
				"event":   d.ev.Type,
			}).WithError(err).Warn("failed to deliver event")
		}
	}
	for _, channelID := range ch.leaves {
		c.bc.Leave(channelID, sessionID)
	}
	ch.joins, ch.out, ch.leaves = nil, nil, nil

	if c.actions != nil && len(ch.actions) > 0 {
		c.enqueueActions(ch.actions)
	}
	ch.actions = nil
}

func (c *GameCore) sessionLog(sessionID string) *logrus.Entry {
	return c.log.WithField("session", sessionID)
}
