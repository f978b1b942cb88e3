package game

import (
	"fmt"

	"github.com/paulhankin/poker"
)

// HandStrength orders 7-card hands; larger is stronger.
type HandStrength int64

type Evaluator interface {
	Rank(hand [7]Card) (HandStrength, error)
}

// Describer is implemented by evaluators that can name a hand ("two pair").
type Describer interface {
	Describe(hand [7]Card) (string, error)
}

// Winners returns the positions of the maximal strengths.
func Winners(strengths []HandStrength) []int {
	if len(strengths) == 0 {
		return nil
	}
	best := strengths[0]
	for _, s := range strengths[1:] {
		if s > best {
			best = s
		}
	}
	var out []int
	for i, s := range strengths {
		if s == best {
			out = append(out, i)
		}
	}
	return out
}

type PokerEvaluator struct{}

func (PokerEvaluator) Rank(hand [7]Card) (HandStrength, error) {
	cards, err := toPokerCards(hand)
	if err != nil {
		return 0, err
	}
	return HandStrength(poker.Eval7(&cards)), nil
}

func (PokerEvaluator) Describe(hand [7]Card) (string, error) {
	cards, err := toPokerCards(hand)
	if err != nil {
		return "", err
	}
	return poker.Describe(cards[:])
}

func toPokerCards(hand [7]Card) ([7]poker.Card, error) {
	var out [7]poker.Card
	for i, c := range hand {
		pc, err := poker.MakeCard(pokerSuit(c.Suit), poker.Rank(c.Rank))
		if err != nil {
			return out, fmt.Errorf("card %s: %w", c, err)
		}
		out[i] = pc
	}
	return out, nil
}

func pokerSuit(s Suit) poker.Suit {
	switch s {
	case Clubs:
		return poker.Club
	case Diamonds:
		return poker.Diamond
	case Hearts:
		return poker.Heart
	default:
		return poker.Spade
	}
}
