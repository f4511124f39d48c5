// internal/game/game_store.go
package game

import (
	"sync"

	"github.com/coder/quartz"
)

// sessionEntry is the in-process companion of one stored session. Its mutex serializes every
// operation and timer callback for the session; the timers live here because they cannot be persisted.
type sessionEntry struct {
	mu      sync.Mutex
	id      string
	removed bool

	// Each timer has a sequence number. Cancelling bumps it, so a callback that already
	// started firing sees a stale sequence and does nothing.
	roundTimer *quartz.Timer
	roundSeq   uint64
	botTimer   *quartz.Timer
	botSeq     uint64

	disconnectTimers map[string]*quartz.Timer
	disconnectSeq    map[string]uint64

	actionIndex int
}

func newSessionEntry(id string) *sessionEntry {
	return &sessionEntry{
		id:               id,
		disconnectTimers: make(map[string]*quartz.Timer),
		disconnectSeq:    make(map[string]uint64),
	}
}

func (e *sessionEntry) cancelRoundTimer() {
	if e.roundTimer != nil {
		e.roundTimer.Stop()
		e.roundTimer = nil
	}
	e.roundSeq++
}

func (e *sessionEntry) cancelBotTimer() {
	if e.botTimer != nil {
		e.botTimer.Stop()
		e.botTimer = nil
	}
	e.botSeq++
}

func (e *sessionEntry) cancelDisconnectTimer(playerID string) {
	if t, ok := e.disconnectTimers[playerID]; ok {
		t.Stop()
		delete(e.disconnectTimers, playerID)
	}
	e.disconnectSeq[playerID]++
}

// cancelAll stops every timer of the session.
func (e *sessionEntry) cancelAll() {
	e.cancelRoundTimer()
	e.cancelBotTimer()
	for id := range e.disconnectTimers {
		e.cancelDisconnectTimer(id)
	}
}

// SessionRegistry owns one entry per active session.
type SessionRegistry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		entries: make(map[string]*sessionEntry),
	}
}

func (r *SessionRegistry) get(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *SessionRegistry) getOrCreate(id string) *sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = newSessionEntry(id)
		r.entries[id] = e
	}
	return e
}

func (r *SessionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len is the number of sessions with a live entry.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
