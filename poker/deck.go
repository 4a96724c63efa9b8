package poker

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// ErrDeckExhausted is returned when a draw asks for more cards than remain.
var ErrDeckExhausted = errors.New("poker: deck exhausted")

// Deck is an ordered, variant-sized sequence of cards. Shuffling draws from
// crypto/rand so outcomes are not predictable from prior hands (§4.1,
// Design Notes "Cryptographic shuffle" — grounded on internal/gameid's use
// of crypto/rand for id generation).
type Deck struct {
	cards []Card
	next  int
}

// NewDeck builds and shuffles a fresh deck for the given variant.
func NewDeck(variant Variant) (*Deck, error) {
	spec, err := SpecFor(variant)
	if err != nil {
		return nil, err
	}
	cards := make([]Card, 0, len(spec.RankSet)*4)
	for _, r := range spec.RankSet {
		for s := Suit(0); s < 4; s++ {
			cards = append(cards, NewCard(r, s))
		}
	}
	d := &Deck{cards: cards}
	if err := d.Shuffle(); err != nil {
		return nil, err
	}
	return d, nil
}

// Shuffle performs a Fisher-Yates shuffle using a cryptographically strong
// random source and resets the draw position to the top of the deck.
func (d *Deck) Shuffle() error {
	for i := len(d.cards) - 1; i > 0; i-- {
		j, err := cryptoIntn(i + 1)
		if err != nil {
			return err
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	d.next = 0
	return nil
}

func cryptoIntn(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int { return len(d.cards) - d.next }

// Draw removes and returns the top n cards. Fails with ErrDeckExhausted
// when n exceeds the remaining cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 || n > d.Remaining() {
		return nil, ErrDeckExhausted
	}
	out := make([]Card, n)
	copy(out, d.cards[d.next:d.next+n])
	d.next += n
	return out, nil
}
