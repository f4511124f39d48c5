// internal/game/utils.go
package game

import (
	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/models"
)

// actingSeat resolves the seat token may act for. A removed seat has lost its token for good;
// a disconnected seat gets it back only through a completed reconnection.
func actingSeat(gs *models.GameState, token string) (int, error) {
	seat := gs.SeatByToken(token)
	if seat < 0 {
		return -1, gameerr.ErrPlayerNotFound
	}
	p := gs.Players[seat]
	if p.Removed {
		return -1, gameerr.ErrPlayerNotFound
	}
	if p.IsDisconnected {
		return -1, gameerr.ErrSeatDisconnected
	}
	return seat, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// removeString returns list without s, reusing the backing array.
func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
