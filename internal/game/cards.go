package game

import (
	"fmt"
	"math/rand"
)

type Color string

const (
	Red    Color = "R"
	Green  Color = "G"
	Blue   Color = "B"
	Yellow Color = "Y"
)

var Colors = []Color{Red, Green, Blue, Yellow}

func (c Color) Valid() bool {
	switch c {
	case Red, Green, Blue, Yellow:
		return true
	}
	return false
}

type Card struct {
	Color Color `json:"color"`
	Value int   `json:"value"`
}

func (c Card) Valid() bool {
	return c.Color.Valid() && c.Value >= 0 && c.Value <= 9
}

// Matches reports whether c may legally land on top of the discard.
func (c Card) Matches(top Card) bool {
	return c.Color == top.Color || c.Value == top.Value
}

func (c Card) String() string {
	return fmt.Sprintf("%s%d", c.Color, c.Value)
}

// DeckSize is the fixed deck total: one 0 and two of each 1-9 per color.
const DeckSize = 76

func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, color := range Colors {
		deck = append(deck, Card{color, 0})
		for v := 1; v <= 9; v++ {
			deck = append(deck, Card{color, v})
			deck = append(deck, Card{color, v})
		}
	}
	return deck
}

func Shuffle(cards []Card) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
