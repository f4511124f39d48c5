// Package rules holds the pure trick-taking rules: following suit, resolving a strike and scoring a deal.
package rules

import (
	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/models"
)

// MaxBid is the highest bet that can be placed, equal to the total points of the deck.
const MaxBid = 56

// DefaultBid is the final bid used when nobody bet before the first card was played.
const DefaultBid = 28

// LeadSuit returns the suit of the first card of the round, or "" for an empty round.
func LeadSuit(round []models.Play) string {
	if len(round) == 0 {
		return ""
	}
	return round[0].Card.Suit()
}

// CheckFollowSuit rejects c when the hand holds the lead suit and c is of another suit.
func CheckFollowSuit(hand []cards.Card, round []models.Play, c cards.Card) error {
	lead := LeadSuit(round)
	if lead == "" || c.Suit() == lead {
		return nil
	}
	if cards.HasSuit(hand, lead) {
		return gameerr.ErrSuitViolation
	}
	return nil
}

// LegalMoves returns the cards of hand that may be played into round.
func LegalMoves(hand []cards.Card, round []models.Play) []cards.Card {
	lead := LeadSuit(round)
	if lead == "" || !cards.HasSuit(hand, lead) {
		return append([]cards.Card(nil), hand...)
	}
	var out []cards.Card
	for _, c := range hand {
		if c.Suit() == lead {
			out = append(out, c)
		}
	}
	return out
}

// Winner returns the index into round of the winning play. With a trump suit in force and
// at least one trump played, the highest trump wins; otherwise the highest card of the lead
// suit wins. Equal weights go to the card played first.
func Winner(round []models.Play, trump string) int {
	if len(round) == 0 {
		return -1
	}
	suit := LeadSuit(round)
	if trump != "" && trump != cards.NoTrump {
		for _, p := range round {
			if p.Card.Suit() == trump {
				suit = trump
				break
			}
		}
	}

	best := -1
	for i, p := range round {
		if p.Card.Suit() != suit {
			continue
		}
		if best < 0 || p.Card.Weight() > round[best].Card.Weight() {
			best = i
		}
	}
	return best
}

// ScoreTier returns how many game points a bid is worth when achieved and when failed.
func ScoreTier(bid int) (win, lose int) {
	switch {
	case bid == MaxBid:
		return 4, 5
	case bid >= 48:
		return 3, 4
	case bid >= 40:
		return 2, 3
	default:
		return 1, 2
	}
}

// Score computes the outcome of a finished deal and applies it to the current scores.
// The bidding team gains the win tier from the opponents when the points in its pile reach
// the final bid and pays the lose tier otherwise. When either score would go negative both
// scores are reset to models.InitialScore.
func Score(teamACards, teamBCards []cards.Card, finalBid int, biddingTeam string, scoreA, scoreB int) models.Completion {
	res := models.Completion{
		TeamAPoints: cards.TotalPoints(teamACards),
		TeamBPoints: cards.TotalPoints(teamBCards),
		FinalBid:    finalBid,
		BiddingTeam: biddingTeam,
	}
	if biddingTeam == "" {
		res.BiddingTeam = models.TeamA
	}

	biddingPoints := res.TeamAPoints
	if res.BiddingTeam == models.TeamB {
		biddingPoints = res.TeamBPoints
	}
	win, lose := ScoreTier(finalBid)
	res.Achieved = biddingPoints >= finalBid

	// Delta is expressed from the bidding team's point of view.
	if res.Achieved {
		res.Delta = win
	} else {
		res.Delta = -lose
	}

	if res.BiddingTeam == models.TeamA {
		scoreA += res.Delta
		scoreB -= res.Delta
	} else {
		scoreB += res.Delta
		scoreA -= res.Delta
	}

	if scoreA < 0 || scoreB < 0 {
		scoreA, scoreB = models.InitialScore, models.InitialScore
		res.ScoreResetOccurred = true
	}
	res.TeamAScore = scoreA
	res.TeamBScore = scoreB
	return res
}
