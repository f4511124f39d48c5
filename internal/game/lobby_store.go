// internal/game/lobby_store.go
package game

import (
	"sync"

	"github.com/jason-s-yu/twentyeight/internal/gameerr"
)

// poolEntry is one human in the active pool.
type poolEntry struct {
	displayID string
	sessionID string
	channelID string
}

// playerPool tracks every active human across all sessions. Display ids and channels are unique
// within the pool and the number of humans is capped.
type playerPool struct {
	mu        sync.Mutex
	ceiling   int
	byDisplay map[string]*poolEntry
	byChannel map[string]string
}

func newPlayerPool(ceiling int) *playerPool {
	return &playerPool{
		ceiling:   ceiling,
		byDisplay: make(map[string]*poolEntry),
		byChannel: make(map[string]string),
	}
}

// reserve claims displayID and channelID for a joining human.
func (p *playerPool) reserve(displayID, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byDisplay[displayID]; ok {
		return gameerr.Newf(gameerr.Validation, "player id %q is already in use", displayID)
	}
	if _, ok := p.byChannel[channelID]; ok {
		return gameerr.New(gameerr.Validation, "this connection has already joined a game")
	}
	if len(p.byDisplay) >= p.ceiling {
		return gameerr.ErrPoolFull
	}
	p.byDisplay[displayID] = &poolEntry{displayID: displayID, channelID: channelID}
	p.byChannel[channelID] = displayID
	return nil
}

func (p *playerPool) assign(displayID, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.byDisplay[displayID]; ok {
		e.sessionID = sessionID
	}
}

func (p *playerPool) lookupDisplay(displayID string) (poolEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byDisplay[displayID]
	if !ok {
		return poolEntry{}, false
	}
	return *e, true
}

func (p *playerPool) lookupChannel(channelID string) (poolEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.byChannel[channelID]
	if !ok {
		return poolEntry{}, false
	}
	return *p.byDisplay[d], true
}

// bind moves displayID onto channelID, dropping any previous channel.
func (p *playerPool) bind(displayID, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byDisplay[displayID]
	if !ok {
		return gameerr.ErrPlayerNotFound
	}
	if owner, taken := p.byChannel[channelID]; taken && owner != displayID {
		return gameerr.New(gameerr.Validation, "this connection belongs to another player")
	}
	if e.channelID != "" && e.channelID != channelID {
		delete(p.byChannel, e.channelID)
	}
	e.channelID = channelID
	p.byChannel[channelID] = displayID
	return nil
}

// unbindChannel forgets a channel but keeps the display id reserved.
func (p *playerPool) unbindChannel(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.byChannel[channelID]
	if !ok {
		return
	}
	delete(p.byChannel, channelID)
	if e, ok := p.byDisplay[d]; ok && e.channelID == channelID {
		e.channelID = ""
	}
}

// release removes displayID from the pool.
func (p *playerPool) release(displayID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.byDisplay[displayID]; ok {
		p.removeLocked(e)
	}
}

func (p *playerPool) removeLocked(e *poolEntry) {
	if e.channelID != "" && p.byChannel[e.channelID] == e.displayID {
		delete(p.byChannel, e.channelID)
	}
	delete(p.byDisplay, e.displayID)
}

func (p *playerPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byDisplay)
}

// releaseSession removes displayID only while it still belongs to sessionID.
func (p *playerPool) releaseSession(displayID, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.byDisplay[displayID]; ok && e.sessionID == sessionID {
		p.removeLocked(e)
	}
}
