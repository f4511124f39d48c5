// Package bot implements the card choice of server-controlled seats.
package bot

import (
	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/models"
	"github.com/jason-s-yu/twentyeight/internal/rules"
)

// View is what a bot sees when it is its turn.
type View struct {
	Seat  int
	Hand  []cards.Card
	Round []models.Play
	Trump string
}

// Choose picks the card a bot plays. Among legal moves it plays the weakest card when its
// partner (same seat parity) is currently winning the round and the strongest card otherwise.
// It returns "" for an empty hand.
func Choose(v View) cards.Card {
	moves := rules.LegalMoves(v.Hand, v.Round)
	if len(moves) == 0 {
		return ""
	}

	partnerWinning := false
	if w := rules.Winner(v.Round, v.Trump); w >= 0 {
		partnerWinning = models.TeamOf(v.Round[w].Seat) == models.TeamOf(v.Seat)
	}

	pick := moves[0]
	for _, c := range moves[1:] {
		if partnerWinning {
			if c.Weight() < pick.Weight() {
				pick = c
			}
		} else if c.Weight() > pick.Weight() {
			pick = c
		}
	}
	return pick
}
