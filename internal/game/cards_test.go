package game

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestShuffledDeckHoldsEveryCardOnce(t *testing.T) {
	d, err := NewShuffledDeck(rand.Reader)
	require.NoError(t, err)
	require.Equal(t, 52, d.Len())

	seen := map[Card]bool{}
	for _, c := range d.Cards() {
		require.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestShuffleIsDeterministicForSameEntropy(t *testing.T) {
	entropy := bytes.Repeat([]byte{0x5a, 0x13, 0xc7, 0x02}, 4096)
	a, err := NewShuffledDeck(bytes.NewReader(entropy))
	require.NoError(t, err)
	b, err := NewShuffledDeck(bytes.NewReader(entropy))
	require.NoError(t, err)
	assert.Equal(t, a.Cards(), b.Cards())
	assert.NotEqual(t, OrderedCards(), a.Cards())
}

func TestShuffleSurfacesEntropyFailure(t *testing.T) {
	_, err := NewShuffledDeck(failingReader{})
	require.Error(t, err)
}

func TestDealPopsFromFront(t *testing.T) {
	d := NewDeckFromCards(MustParseCards("Ah", "Kd", "2c"))
	assert.Equal(t, "Ah", d.Deal().String())
	assert.Equal(t, "Kd", d.Deal().String())
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, []Card{{Rank: Two, Suit: Clubs}}, d.Cards())
}

func TestDealPanicsOnEmptyDeck(t *testing.T) {
	d := NewDeckFromCards(nil)
	assert.Panics(t, func() { d.Deal() })
}

func TestParseCardRoundTrip(t *testing.T) {
	for _, c := range OrderedCards() {
		got, err := ParseCard(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCard("1x")
	assert.ErrorIs(t, err, ErrInvalidCard)
}

func TestPokerEvaluatorOrdersHands(t *testing.T) {
	board := MustParseCards("2h", "7h", "9h", "Kc", "3d")
	flush := [7]Card{}
	copy(flush[:], append(append([]Card{}, board...), MustParseCards("Ah", "4h")...))
	pair := [7]Card{}
	copy(pair[:], append(append([]Card{}, board...), MustParseCards("Kd", "Qs")...))

	ev := PokerEvaluator{}
	fs, err := ev.Rank(flush)
	require.NoError(t, err)
	ps, err := ev.Rank(pair)
	require.NoError(t, err)
	assert.Greater(t, fs, ps)
	assert.Equal(t, []int{0}, Winners([]HandStrength{fs, ps}))
}

func TestWinnersReturnsAllTied(t *testing.T) {
	assert.Equal(t, []int{1, 3}, Winners([]HandStrength{4, 9, 2, 9}))
	assert.Nil(t, Winners(nil))
}
