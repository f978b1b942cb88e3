package game

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/idsulik/go-collections/v3/queue"
)

type Suit int

type Rank int

const (
	Spades Suit = iota
	Hearts
	Clubs
	Diamonds
)

const (
	Ace   Rank = 1
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

const deckSize = 52

var (
	rankSymbols = map[Rank]string{
		Ace: "A", Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7",
		Eight: "8", Nine: "9", Ten: "T", Jack: "J", Queen: "Q", King: "K",
	}
	suitSymbols = map[Suit]string{Spades: "s", Hearts: "h", Clubs: "c", Diamonds: "d"}
)

var ErrInvalidCard = errors.New("invalid_card")

type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string {
	return rankSymbols[c.Rank] + suitSymbols[c.Suit]
}

// ParseCard reads the two-character form produced by Card.String, e.g. "Ah" or "Tc".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	var c Card
	found := false
	for r, sym := range rankSymbols {
		if strings.EqualFold(sym, s[:1]) {
			c.Rank, found = r, true
		}
	}
	if !found {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	found = false
	for st, sym := range suitSymbols {
		if sym == strings.ToLower(s[1:]) {
			c.Suit, found = st, true
		}
	}
	if !found {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	return c, nil
}

func MustParseCards(s ...string) []Card {
	out := make([]Card, 0, len(s))
	for _, v := range s {
		c, err := ParseCard(v)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

func CardStrings(cards []Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.String())
	}
	return out
}

// OrderedCards returns the canonical 52-card set, suit by suit.
func OrderedCards() []Card {
	cards := make([]Card, 0, deckSize)
	for s := Spades; s <= Diamonds; s++ {
		for r := Ace; r <= King; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return cards
}

// Deck is consumed from the front.
type Deck struct {
	q *queue.Queue[Card]
}

func NewDeckFromCards(cards []Card) *Deck {
	q := queue.New[Card](deckSize)
	for _, c := range cards {
		q.Enqueue(c)
	}
	return &Deck{q: q}
}

// NewShuffledDeck applies a Durstenfeld shuffle to the ordered set, drawing
// every swap index uniformly from [0, i] out of rnd. Pass crypto/rand.Reader
// in production.
func NewShuffledDeck(rnd io.Reader) (*Deck, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	cards := OrderedCards()
	for i := len(cards) - 1; i > 0; i-- {
		j, err := rand.Int(rnd, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("shuffle: %w", err)
		}
		k := int(j.Int64())
		cards[i], cards[k] = cards[k], cards[i]
	}
	return NewDeckFromCards(cards), nil
}

// Deal pops the top card. A table never needs more than 23 cards, so an
// empty deck is a broken invariant.
func (d *Deck) Deal() Card {
	c, ok := d.q.Dequeue()
	if !ok {
		panic("deck exhausted")
	}
	return c
}

func (d *Deck) Len() int {
	if d == nil {
		return 0
	}
	return d.q.Len()
}

func (d *Deck) Cards() []Card {
	if d == nil {
		return nil
	}
	out := make([]Card, 0, d.q.Len())
	d.q.ForEach(func(c Card) {
		out = append(out, c)
	})
	return out
}
