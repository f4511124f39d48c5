// internal/game/rules.go
package game

import "github.com/jason-s-yu/twentyeight/internal/models"

// seatPatterns maps the number of humans to the seat layout, 'H' for a human and 'B' for a bot.
// Teams follow seat parity, so with three humans they all land on Team A.
var seatPatterns = map[int]string{
	1: "HBBBBB",
	2: "HHBBBB",
	3: "HBHBHB",
	4: "HHHHBB",
	5: "HHHHHB",
	6: "HHHHHH",
}

// AssignSeats orders players for a started game. Humans and bots keep their join order within
// their own group. Player counts other than six, or splits without a pattern, keep join order.
// This is the only place where seats, and therefore teams, are decided.
func AssignSeats(players []*models.Player) []*models.Player {
	var humans, bots []*models.Player
	for _, p := range players {
		if p.IsBotAgent {
			bots = append(bots, p)
		} else {
			humans = append(humans, p)
		}
	}

	pattern, ok := seatPatterns[len(humans)]
	if !ok || len(players) != models.MaxSeats {
		return append([]*models.Player(nil), players...)
	}

	out := make([]*models.Player, 0, len(players))
	h, b := 0, 0
	for _, slot := range pattern {
		if slot == 'H' {
			out = append(out, humans[h])
			h++
		} else {
			out = append(out, bots[b])
			b++
		}
	}
	return out
}
