// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jason-s-yu/twentyeight/internal/models"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]*models.GameState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[string]*models.GameState),
	}
}

func (s *MemoryStore) FetchGame(_ context.Context, id string) (*models.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, nil
	}
	return g.Clone(), nil
}

func (s *MemoryStore) SaveGame(_ context.Context, gs *models.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[gs.ID] = gs.Clone()
	return nil
}

func (s *MemoryStore) DeleteGame(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
	return nil
}

// GetAllGameIDs returns the stored session ids in sorted order.
func (s *MemoryStore) GetAllGameIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games), nil
}
