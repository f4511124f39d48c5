// internal/cards/card.go
package cards

import (
	"fmt"
	"strings"
)

// Suit letters used in the card encoding.
const (
	Spades   = "S"
	Hearts   = "H"
	Clubs    = "C"
	Diamonds = "D"
)

// NoTrump is the trump selector meaning "no suit beats the leading suit".
const NoTrump = "NT"

// Suits lists the suits in hand-sorting order.
var Suits = []string{Spades, Hearts, Clubs, Diamonds}

// Ranks lists the ranks from weakest to strongest.
var Ranks = []string{"9", "10", "J", "Q", "K", "A"}

// DeckCopies is how many physical decks are combined into one game deck.
const DeckCopies = 2

// rankWeight orders ranks for trick comparison (Ace highest).
var rankWeight = map[string]int{
	"9":  1,
	"10": 2,
	"J":  3,
	"Q":  4,
	"K":  5,
	"A":  6,
}

// rankPoints is the bid-point value of each rank. Each suit of each deck is worth 7,
// so a full deal is worth 56 points.
var rankPoints = map[string]int{
	"J":  3,
	"9":  2,
	"A":  1,
	"10": 1,
	"K":  0,
	"Q":  0,
}

var suitOrder = map[string]int{Spades: 0, Hearts: 1, Clubs: 2, Diamonds: 3}

// Card is the wire encoding of a single card: deck index digit, suit letter, rank token.
// For example "0HA" is the ace of hearts from the first deck and "1S10" the ten of spades
// from the second deck.
type Card string

// Parse validates s and returns it as a Card.
func Parse(s string) (Card, error) {
	c := Card(strings.TrimSpace(s))
	if !c.Valid() {
		return "", fmt.Errorf("invalid card %q", s)
	}
	return c, nil
}

// New builds the encoding for a deck index, suit and rank.
func New(deck int, suit, rank string) Card {
	return Card(fmt.Sprintf("%d%s%s", deck, suit, rank))
}

// Valid reports whether c is a well-formed card of the game deck.
func (c Card) Valid() bool {
	if len(c) < 3 {
		return false
	}
	d := c[0]
	if d < '0' || int(d-'0') >= DeckCopies {
		return false
	}
	if _, ok := suitOrder[string(c[1])]; !ok {
		return false
	}
	_, ok := rankWeight[string(c[2:])]
	return ok
}

// Deck returns the deck index of the card.
func (c Card) Deck() int {
	if len(c) == 0 {
		return -1
	}
	return int(c[0] - '0')
}

// Suit returns the suit letter.
func (c Card) Suit() string {
	if len(c) < 2 {
		return ""
	}
	return string(c[1])
}

// Rank returns the rank token.
func (c Card) Rank() string {
	if len(c) < 3 {
		return ""
	}
	return string(c[2:])
}

// Weight is the trick-comparison weight of the card's rank (0 for invalid cards).
func (c Card) Weight() int {
	return rankWeight[c.Rank()]
}

// Points is the bid-point value of the card.
func (c Card) Points() int {
	return rankPoints[c.Rank()]
}

func (c Card) String() string {
	return string(c)
}

// ValidSuit reports whether s is one of the four suit letters.
func ValidSuit(s string) bool {
	_, ok := suitOrder[s]
	return ok
}

// ValidTrump reports whether s is a suit letter or NoTrump.
func ValidTrump(s string) bool {
	return s == NoTrump || ValidSuit(s)
}

// TotalPoints sums the point values of cs.
func TotalPoints(cs []Card) int {
	total := 0
	for _, c := range cs {
		total += c.Points()
	}
	return total
}
