// internal/handlers/games.go
package handlers

import (
	"encoding/json"
	"net/http"
)

// gamesResponse lists the stored sessions.
type gamesResponse struct {
	Count         int      `json:"count"`
	IDs           []string `json:"ids"`
	ActivePlayers int      `json:"activePlayers"`
	Connections   int      `json:"connections"`
}

// ListGamesHandler reports the sessions currently kept in the store.
func (s *GameServer) ListGamesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := s.Core.SessionIDs(r.Context())
		if err != nil {
			s.Logger.WithError(err).Error("failed to list games")
			http.Error(w, "failed to list games", http.StatusInternalServerError)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(gamesResponse{
			Count:         len(ids),
			IDs:           ids,
			ActivePlayers: s.Core.ActivePlayers(),
			Connections:   s.Hub.Len(),
		})
	}
}
