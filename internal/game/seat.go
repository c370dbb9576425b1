package game

import (
	"fmt"

	"github.com/cardroomlabs/holdemd/internal/deck"
)

// Seat represents one player position in a hand: a chip stack, the
// chips wagered this street and this hand, hole cards and status
// flags. Seats are mutated only by the owning table's hand.
type Seat struct {
	ID         string
	Name       string
	SeatNumber int
	Stack      int
	RoundBet   int // chips wagered this street
	HandBet    int // cumulative chips wagered this hand
	HoleCards  []deck.Card
	Folded     bool
	AllIn      bool
	InHand     bool
	SittingOut bool // joined mid-hand away from the big blind position
}

// NewSeat creates a seat with the given buy-in stack
func NewSeat(id, name string, seatNumber, stack int) *Seat {
	return &Seat{
		ID:         id,
		Name:       name,
		SeatNumber: seatNumber,
		Stack:      stack,
	}
}

// DealHoleCards assigns the seat's two hole cards. The seat must not
// already hold cards.
func (s *Seat) DealHoleCards(c1, c2 deck.Card) error {
	if len(s.HoleCards) != 0 {
		return fmt.Errorf("%w: seat %d already has hole cards", ErrInvariant, s.SeatNumber)
	}
	s.HoleCards = []deck.Card{c1, c2}
	return nil
}

// Bet wagers up to amount chips and returns the chips actually
// wagered (capped at the stack). Reaching zero flips the seat all-in.
func (s *Seat) Bet(amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative bet %d", ErrInvalidInput, amount)
	}

	paid := min(amount, s.Stack)
	s.Stack -= paid
	s.RoundBet += paid
	s.HandBet += paid
	if s.Stack == 0 {
		s.AllIn = true
	}
	return paid, nil
}

// PostAnte pays an ante straight into the pot. Antes count toward the
// hand total but not toward the current street's bet to match.
func (s *Seat) PostAnte(amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative ante %d", ErrInvalidInput, amount)
	}

	paid := min(amount, s.Stack)
	s.Stack -= paid
	s.HandBet += paid
	if s.Stack == 0 {
		s.AllIn = true
	}
	return paid, nil
}

// Fold marks the seat folded and out of the hand
func (s *Seat) Fold() {
	s.Folded = true
	s.InHand = false
}

// AddChips credits winnings to the stack
func (s *Seat) AddChips(amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative credit %d", ErrInvalidInput, amount)
	}
	s.Stack += amount
	if s.Stack > 0 {
		s.AllIn = false
	}
	return nil
}

// CanAct reports whether the seat can still take actions this street
func (s *Seat) CanAct() bool {
	return s.InHand && !s.Folded && !s.AllIn
}

// ResetForStreet clears the current street's bet only; the hand
// cumulative bet persists.
func (s *Seat) ResetForStreet() {
	s.RoundBet = 0
}

// ResetForHand clears all per-hand state. A seat with no chips left
// is inactive for the new hand.
func (s *Seat) ResetForHand() {
	s.RoundBet = 0
	s.HandBet = 0
	s.HoleCards = nil
	s.Folded = false
	s.AllIn = false
	s.InHand = s.Stack > 0 && !s.SittingOut
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
