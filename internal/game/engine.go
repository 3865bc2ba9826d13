package game

import (
	"errors"
	"time"
)

type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// Rule violations. The error text doubles as the wire error code.
var (
	ErrNotPlaying    = errors.New("not_playing")
	ErrNotYourTurn   = errors.New("not_your_turn")
	ErrCardNotInHand = errors.New("card_not_in_hand")
	ErrIllegalMove   = errors.New("illegal_move")
	ErrNoCardsToDraw = errors.New("no_cards_to_draw")
)

const HandSize = 7

// Game is the per-room turn state machine. It is not safe for concurrent use;
// the caller serializes access.
type Game struct {
	Phase      Phase
	Order      []string          // player keys, fixed at start, shrinks on departure
	Hands      map[string][]Card // player key -> ordered hand
	DrawPile   []Card            // top of pile is the last element
	DiscardTop *Card
	Turn       int
	LastTurnAt time.Time
}

// New shuffles a fresh deck, deals HandSize cards round-robin in the given
// order and flips the next card as the initial discard.
func New(players []string, now time.Time) *Game {
	deck := NewDeck()
	Shuffle(deck)

	g := &Game{
		Phase:      PhasePlaying,
		Order:      append([]string(nil), players...),
		Hands:      make(map[string][]Card, len(players)),
		DrawPile:   deck,
		LastTurnAt: now,
	}

	for i := 0; i < HandSize; i++ {
		for _, p := range g.Order {
			g.Hands[p] = append(g.Hands[p], g.pop())
		}
	}

	top := g.pop()
	g.DiscardTop = &top

	return g
}

func (g *Game) pop() Card {
	card := g.DrawPile[len(g.DrawPile)-1]
	g.DrawPile = g.DrawPile[:len(g.DrawPile)-1]
	return card
}

func (g *Game) CurrentPlayer() string {
	if len(g.Order) == 0 {
		return ""
	}
	return g.Order[g.Turn]
}

func (g *Game) Hand(player string) []Card {
	return g.Hands[player]
}

// Play removes the submitted card from the player's hand and makes it the new
// discard top. A play that empties the hand ends the game; otherwise the turn
// advances.
func (g *Game) Play(player string, card Card, now time.Time) (won bool, err error) {
	if err := g.requireTurn(player); err != nil {
		return false, err
	}

	idx := -1
	for i, c := range g.Hands[player] {
		if c == card {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, ErrCardNotInHand
	}

	if g.DiscardTop == nil || !card.Matches(*g.DiscardTop) {
		return false, ErrIllegalMove
	}

	hand := g.Hands[player]
	g.Hands[player] = append(hand[:idx], hand[idx+1:]...)
	top := card
	g.DiscardTop = &top

	if len(g.Hands[player]) == 0 {
		g.Phase = PhaseEnded
		return true, nil
	}

	g.advance(now)
	return false, nil
}

// Draw pops one card from the pile into the player's hand. The turn does not
// advance; there is no reshuffle from the discard when the pile runs out.
func (g *Game) Draw(player string, now time.Time) (Card, error) {
	if err := g.requireTurn(player); err != nil {
		return Card{}, err
	}
	if len(g.DrawPile) == 0 {
		return Card{}, ErrNoCardsToDraw
	}

	card := g.pop()
	g.Hands[player] = append(g.Hands[player], card)
	g.LastTurnAt = now
	return card, nil
}

// Pass advances the turn unconditionally, playable card in hand or not.
func (g *Game) Pass(player string, now time.Time) error {
	if err := g.requireTurn(player); err != nil {
		return err
	}
	g.advance(now)
	return nil
}

// ForcePass is the timeout watchdog's advance. It takes the same path as a
// manual pass so nothing downstream can tell the two apart.
func (g *Game) ForcePass(now time.Time) {
	g.advance(now)
}

// TimedOut reports whether the current turn has been idle past timeout.
func (g *Game) TimedOut(now time.Time, timeout time.Duration) bool {
	return g.Phase == PhasePlaying && now.Sub(g.LastTurnAt) > timeout
}

// RemovePlayer drops a departing player from the turn order and hands. If a
// running game is left with one player or fewer it ends, naming the sole
// survivor (if any) as winner.
func (g *Game) RemovePlayer(player string) (winner string, ended bool) {
	idx := -1
	for i, p := range g.Order {
		if p == player {
			idx = i
			break
		}
	}
	if idx != -1 {
		g.Order = append(g.Order[:idx], g.Order[idx+1:]...)
	}
	delete(g.Hands, player)

	if g.Turn >= len(g.Order) {
		g.Turn = 0
	}

	if g.Phase == PhasePlaying && len(g.Order) <= 1 {
		g.Phase = PhaseEnded
		if len(g.Order) == 1 {
			return g.Order[0], true
		}
		return "", true
	}
	return "", false
}

func (g *Game) advance(now time.Time) {
	g.Turn = (g.Turn + 1) % len(g.Order)
	g.LastTurnAt = now
}

func (g *Game) requireTurn(player string) error {
	if g.Phase != PhasePlaying {
		return ErrNotPlaying
	}
	if g.CurrentPlayer() != player {
		return ErrNotYourTurn
	}
	return nil
}
