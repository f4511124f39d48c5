// internal/cards/deck.go
package cards

import (
	"fmt"
	"math/rand"
	"sort"
)

// HandSize is the number of cards dealt to each seat.
const HandSize = 8

// DeckSize is the total number of cards in a game deck (copies x 4 suits x 6 ranks).
const DeckSize = DeckCopies * 4 * 6

// NewDeck returns every card of the game deck in a fixed order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for d := 0; d < DeckCopies; d++ {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				deck = append(deck, New(d, suit, rank))
			}
		}
	}
	return deck
}

// Shuffle permutes deck in place using r.
func Shuffle(r *rand.Rand, deck []Card) {
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// SortHand orders a hand by suit, then strongest rank first, then deck index.
func SortHand(hand []Card) {
	sort.SliceStable(hand, func(i, j int) bool {
		a, b := hand[i], hand[j]
		if a.Suit() != b.Suit() {
			return suitOrder[a.Suit()] < suitOrder[b.Suit()]
		}
		if a.Weight() != b.Weight() {
			return a.Weight() > b.Weight()
		}
		return a.Deck() < b.Deck()
	})
}

// Deal shuffles a fresh deck and splits it into seats sorted hands of HandSize cards.
func Deal(r *rand.Rand, seats int) ([][]Card, error) {
	if seats*HandSize > DeckSize {
		return nil, fmt.Errorf("cannot deal %d hands of %d from a %d card deck", seats, HandSize, DeckSize)
	}
	deck := NewDeck()
	Shuffle(r, deck)

	hands := make([][]Card, seats)
	for i := 0; i < seats; i++ {
		hand := make([]Card, HandSize)
		copy(hand, deck[i*HandSize:(i+1)*HandSize])
		SortHand(hand)
		hands[i] = hand
	}
	return hands, nil
}

// Remove returns hand without the first occurrence of c and whether c was present.
// The input slice is not modified.
func Remove(hand []Card, c Card) ([]Card, bool) {
	for i, h := range hand {
		if h == c {
			out := make([]Card, 0, len(hand)-1)
			out = append(out, hand[:i]...)
			return append(out, hand[i+1:]...), true
		}
	}
	return hand, false
}

// Contains reports whether hand holds c.
func Contains(hand []Card, c Card) bool {
	for _, h := range hand {
		if h == c {
			return true
		}
	}
	return false
}

// HasSuit reports whether any card in hand is of the given suit.
func HasSuit(hand []Card, suit string) bool {
	for _, h := range hand {
		if h.Suit() == suit {
			return true
		}
	}
	return false
}
