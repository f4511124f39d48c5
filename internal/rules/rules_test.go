package rules

import (
	"testing"

	"github.com/jason-s-yu/twentyeight/internal/cards"
	"github.com/jason-s-yu/twentyeight/internal/gameerr"
	"github.com/jason-s-yu/twentyeight/internal/models"
	"github.com/stretchr/testify/assert"
)

func plays(cs ...cards.Card) []models.Play {
	out := make([]models.Play, len(cs))
	for i, c := range cs {
		out[i] = models.Play{Card: c, Seat: i, PlayerID: string(rune('a' + i))}
	}
	return out
}

func TestCheckFollowSuit(t *testing.T) {
	round := plays("0HA")
	hand := []cards.Card{"0H9", "0SK"}

	assert.ErrorIs(t, CheckFollowSuit(hand, round, "0SK"), gameerr.ErrSuitViolation)
	assert.NoError(t, CheckFollowSuit(hand, round, "0H9"))
	assert.NoError(t, CheckFollowSuit([]cards.Card{"0SK", "0C9"}, round, "0C9"), "void in lead suit may discard")
	assert.NoError(t, CheckFollowSuit(hand, nil, "0SK"), "leader may play anything")
	assert.Equal(t, gameerr.RuleViolation, gameerr.KindOf(CheckFollowSuit(hand, round, "0SK")))
}

func TestLegalMoves(t *testing.T) {
	hand := []cards.Card{"0SA", "0H9", "1H10", "0DK"}
	assert.Equal(t, []cards.Card{"0H9", "1H10"}, LegalMoves(hand, plays("0HA")))
	assert.Equal(t, hand, LegalMoves(hand, plays("0CA")))
	assert.Equal(t, hand, LegalMoves(hand, nil))
}

func TestWinner(t *testing.T) {
	tests := []struct {
		name  string
		round []models.Play
		trump string
		want  int
	}{
		{"highest lead suit without trump", plays("0H10", "0HA", "0SA", "0HK"), cards.NoTrump, 1},
		{"off-suit ace does not win", plays("0H9", "0SA", "0CA"), cards.NoTrump, 0},
		{"single trump beats lead", plays("0HA", "0S9", "0HK"), cards.Spades, 1},
		{"highest trump wins", plays("0HA", "0S9", "0SK", "0S10"), cards.Spades, 2},
		{"trump not played falls back to lead", plays("0H9", "0HJ", "0CA"), cards.Spades, 1},
		{"first played wins ties", plays("0HA", "1HA", "0H9"), cards.NoTrump, 0},
		{"empty trump string means no trump", plays("0HQ", "0SA"), "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Winner(tt.round, tt.trump))
		})
	}
	assert.Equal(t, -1, Winner(nil, cards.NoTrump))
}

func TestScoreTier(t *testing.T) {
	tests := []struct {
		bid, win, lose int
	}{
		{28, 1, 2}, {39, 1, 2}, {40, 2, 3}, {47, 2, 3}, {48, 3, 4}, {55, 3, 4}, {56, 4, 5}, {10, 1, 2},
	}
	for _, tt := range tests {
		w, l := ScoreTier(tt.bid)
		assert.Equal(t, tt.win, w, "win tier for %d", tt.bid)
		assert.Equal(t, tt.lose, l, "lose tier for %d", tt.bid)
	}
}

// pile builds a slice of cards worth exactly pts points using jacks (3) and nines (2) and aces (1).
func pile(pts int) []cards.Card {
	var out []cards.Card
	pool := cards.NewDeck()
	for _, c := range pool {
		if pts == 0 {
			break
		}
		if c.Points() > 0 && c.Points() <= pts {
			out = append(out, c)
			pts -= c.Points()
		}
	}
	return out
}

func TestScoreBidAchieved(t *testing.T) {
	a := pile(45)
	b := pile(11)
	assert.Equal(t, 45, cards.TotalPoints(a))

	res := Score(a, b, 45, models.TeamA, 10, 10)
	assert.True(t, res.Achieved)
	assert.Equal(t, 2, res.Delta)
	assert.Equal(t, 12, res.TeamAScore)
	assert.Equal(t, 8, res.TeamBScore)
	assert.False(t, res.ScoreResetOccurred)
}

func TestScoreBidFailed(t *testing.T) {
	res := Score(pile(20), pile(36), 30, models.TeamB, 10, 10)
	assert.True(t, res.Achieved, "team B holds 36 >= 30")
	assert.Equal(t, 11, res.TeamBScore)

	res = Score(pile(40), pile(16), 30, models.TeamB, 10, 10)
	assert.False(t, res.Achieved)
	assert.Equal(t, -2, res.Delta)
	assert.Equal(t, 12, res.TeamAScore)
	assert.Equal(t, 8, res.TeamBScore)
}

func TestScoreResetsWhenNegative(t *testing.T) {
	res := Score(pile(10), pile(46), 28, models.TeamA, 1, 19)
	assert.False(t, res.Achieved)
	assert.True(t, res.ScoreResetOccurred)
	assert.Equal(t, models.InitialScore, res.TeamAScore)
	assert.Equal(t, models.InitialScore, res.TeamBScore)
}
