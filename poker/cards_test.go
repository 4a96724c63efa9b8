package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCardRankAndSuit(t *testing.T) {
	c := NewCard(12, Spades) // Ace of spades
	assert.Equal(t, 12, c.Rank())
	assert.Equal(t, Spades, c.Suit())
	assert.Equal(t, "As", c.String())

	c2 := NewCard(0, Hearts) // Two of hearts
	assert.Equal(t, 0, c2.Rank())
	assert.Equal(t, Hearts, c2.Suit())
	assert.Equal(t, "2h", c2.String())
}

func TestHandCountAndMasks(t *testing.T) {
	h := NewHand(NewCard(0, Clubs), NewCard(1, Clubs), NewCard(12, Spades))
	require.Equal(t, 3, h.CountCards())

	clubMask := h.GetSuitMask(Clubs)
	assert.Equal(t, uint16(0b11), clubMask)

	rankMask := h.GetRankMask()
	assert.True(t, rankMask&(1<<0) != 0)
	assert.True(t, rankMask&(1<<1) != 0)
	assert.True(t, rankMask&(1<<12) != 0)
}

func TestHandContainsAndCards(t *testing.T) {
	a := NewCard(5, Diamonds)
	b := NewCard(6, Diamonds)
	h := NewHand(a, b)

	assert.True(t, h.Contains(Hand(a)))
	assert.True(t, h.Contains(Hand(a)|Hand(b)))
	assert.False(t, h.Contains(Hand(NewCard(7, Diamonds))))

	cards := h.Cards()
	assert.Len(t, cards, 2)
}
