// internal/handlers/hub.go
package handlers

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/twentyeight/internal/game"
	"github.com/jason-s-yu/twentyeight/internal/protocol"
	"github.com/sirupsen/logrus"
)

// outboundBuffer is how many messages may wait for a slow client before new ones are dropped.
const outboundBuffer = 64

// Connection is one websocket client. Messages are queued on OutChan and written by the
// connection's write pump.
type Connection struct {
	ID      string
	OutChan chan interface{}

	done      chan struct{}
	closeOnce sync.Once
}

// Write queues msg without blocking. It reports false when the connection is closed or its
// buffer is full.
func (c *Connection) Write(msg interface{}) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.OutChan <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Done is closed when the connection is unregistered.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Hub tracks live connections and the session groups they belong to. It implements
// game.Broadcaster.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	groups map[string]map[string]struct{}
	logger *logrus.Logger
}

var _ game.Broadcaster = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Connection),
		groups: make(map[string]map[string]struct{}),
		logger: logger,
	}
}

// Register creates a connection with a fresh channel id.
func (h *Hub) Register() *Connection {
	conn := &Connection{
		ID:      uuid.NewString(),
		OutChan: make(chan interface{}, outboundBuffer),
		done:    make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[conn.ID] = conn
	h.mu.Unlock()
	return conn
}

// Unregister forgets the connection and removes it from every group.
func (h *Hub) Unregister(channelID string) {
	h.mu.Lock()
	conn, ok := h.conns[channelID]
	delete(h.conns, channelID)
	for sessionID, members := range h.groups {
		delete(members, channelID)
		if len(members) == 0 {
			delete(h.groups, sessionID)
		}
	}
	h.mu.Unlock()
	if ok {
		conn.close()
	}
}

// CloseAll unregisters every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*Connection)
	h.groups = make(map[string]map[string]struct{})
	h.mu.Unlock()
	for _, conn := range conns {
		conn.close()
	}
}

// Len is the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Members lists the channels joined to a session.
func (h *Hub) Members(sessionID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.groups[sessionID]))
	for id := range h.groups[sessionID] {
		out = append(out, id)
	}
	return out
}

func (h *Hub) Join(channelID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[channelID]; !ok {
		return
	}
	members, ok := h.groups[sessionID]
	if !ok {
		members = make(map[string]struct{})
		h.groups[sessionID] = members
	}
	members[channelID] = struct{}{}
}

func (h *Hub) Leave(channelID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[sessionID]
	if !ok {
		return
	}
	delete(members, channelID)
	if len(members) == 0 {
		delete(h.groups, sessionID)
	}
}

// Broadcast queues ev for every channel of the session. Slow or closed channels are skipped.
func (h *Hub) Broadcast(sessionID string, ev game.Event) {
	msg := protocol.Notify(string(ev.Type), ev.Data)
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.groups[sessionID]))
	for id := range h.groups[sessionID] {
		if conn, ok := h.conns[id]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if !conn.Write(msg) {
			h.logger.WithFields(logrus.Fields{
				"session": sessionID,
				"channel": conn.ID,
				"event":   ev.Type,
			}).Warn("dropped broadcast for slow or closed channel")
		}
	}
}

// Send queues ev for a single channel.
func (h *Hub) Send(channelID string, ev game.Event) error {
	h.mu.RLock()
	conn, ok := h.conns[channelID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("channel %s is not connected", channelID)
	}
	if !conn.Write(protocol.Notify(string(ev.Type), ev.Data)) {
		return fmt.Errorf("channel %s is not accepting messages", channelID)
	}
	return nil
}
