package deck

import (
	"fmt"
	"math/rand"
	"time"
)

// Deck represents an ordered deck of playing cards. Dealt and burned
// cards leave the deck; Remaining reports what is left.
type Deck struct {
	cards  []Card
	burned int
	rng    *rand.Rand
}

// New creates a full 52-card deck using the given RNG. A nil RNG gets
// a time-seeded one.
func New(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	d.fill()
	return d
}

func (d *Deck) fill() {
	d.cards = d.cards[:0]
	d.burned = 0
	for suit := Hearts; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
}

// Shuffle permutes the remaining cards uniformly
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Reset restores the deck to a full 52 cards and shuffles it
func (d *Deck) Reset() {
	d.fill()
	d.Shuffle()
}

// Deal removes and returns the top n cards
func (d *Deck) Deal(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, fmt.Errorf("cannot deal %d cards, %d remaining", n, len(d.cards))
	}

	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards, nil
}

// DealOne removes and returns the top card
func (d *Deck) DealOne() (Card, error) {
	cards, err := d.Deal(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Burn discards the top card without revealing it
func (d *Deck) Burn() error {
	if len(d.cards) == 0 {
		return fmt.Errorf("cannot burn from an empty deck")
	}
	d.cards = d.cards[1:]
	d.burned++
	return nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Burned returns the number of cards burned since the last reset
func (d *Deck) Burned() int {
	return d.burned
}

// Cards returns a copy of the remaining card order, top first
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Restore replaces the remaining card order. Used when rebuilding a
// deck from serialized state.
func (d *Deck) Restore(cards []Card, burned int) {
	d.cards = make([]Card, len(cards))
	copy(d.cards, cards)
	d.burned = burned
}
