// Package store persists session state. The engine re-reads a session from the store before every
// mutation, so implementations hand out copies and never share pointers with callers.
package store

import (
	"context"

	"github.com/jason-s-yu/twentyeight/internal/models"
)

// Store is the session state repository.
type Store interface {
	// FetchGame returns a copy of the session, or nil with no error when it does not exist.
	FetchGame(ctx context.Context, id string) (*models.GameState, error)
	// SaveGame replaces the stored state of gs.ID.
	SaveGame(ctx context.Context, gs *models.GameState) error
	DeleteGame(ctx context.Context, id string) error
	GetAllGameIDs(ctx context.Context) ([]string, error)
	// Count is the number of stored sessions.
	Count(ctx context.Context) (int, error)
}
