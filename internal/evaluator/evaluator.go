// Package evaluator ranks poker hands. Evaluate finds the best
// five-card hand from five or more cards by enumerating every
// five-card subset (at most C(7,5)=21 for hold'em) and keeping the
// strongest.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/cardroomlabs/holdemd/internal/deck"
)

// Category is the rank category of a five-card hand
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns the display label for a category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandValue is the evaluated strength of a hand: a category plus
// tiebreakers in descending priority. Two HandValues compare equal
// exactly when the pot would be split.
type HandValue struct {
	Category    Category
	Tiebreakers []int
}

// Label returns the human-readable name of the hand, reporting an
// ace-high straight flush as a royal flush. The ordering is identical
// to a straight flush.
func (v HandValue) Label() string {
	if v.Category == StraightFlush && len(v.Tiebreakers) > 0 && v.Tiebreakers[0] == int(deck.Ace) {
		return "Royal Flush"
	}
	return v.Category.String()
}

// Compare returns 1 if a beats b, -1 if b beats a, 0 on an exact tie
func Compare(a, b HandValue) int {
	if a.Category != b.Category {
		if a.Category > b.Category {
			return 1
		}
		return -1
	}

	for i := 0; i < len(a.Tiebreakers) && i < len(b.Tiebreakers); i++ {
		if a.Tiebreakers[i] != b.Tiebreakers[i] {
			if a.Tiebreakers[i] > b.Tiebreakers[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// Evaluate returns the strongest five-card hand value found in cards.
// It requires at least five cards.
func Evaluate(cards []deck.Card) (HandValue, error) {
	if len(cards) < 5 {
		return HandValue{}, fmt.Errorf("need at least 5 cards, got %d", len(cards))
	}

	var best HandValue
	first := true

	combo := make([]deck.Card, 5)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == 5 {
			v := evaluateFive(combo)
			if first || Compare(v, best) > 0 {
				best = v
				first = false
			}
			return
		}
		for i := start; i <= len(cards)-(5-depth); i++ {
			combo[depth] = cards[i]
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)

	return best, nil
}

// evaluateFive computes the category and tiebreakers of exactly five cards
func evaluateFive(cards []deck.Card) HandValue {
	values := make([]int, 5)
	for i, c := range cards {
		values[i] = c.Value()
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	flush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	straight, straightTop := straightTopCard(values)

	// Count rank multiplicities
	counts := make(map[int]int)
	for _, v := range values {
		counts[v]++
	}

	// Group values by count, each group sorted descending
	byCount := make(map[int][]int)
	for v, n := range counts {
		byCount[n] = append(byCount[n], v)
	}
	for _, group := range byCount {
		sort.Sort(sort.Reverse(sort.IntSlice(group)))
	}

	switch {
	case straight && flush:
		return HandValue{StraightFlush, []int{straightTop}}

	case len(byCount[4]) == 1:
		return HandValue{FourOfAKind, []int{byCount[4][0], byCount[1][0]}}

	case len(byCount[3]) == 1 && len(byCount[2]) == 1:
		return HandValue{FullHouse, []int{byCount[3][0], byCount[2][0]}}

	case flush:
		return HandValue{Flush, values}

	case straight:
		return HandValue{Straight, []int{straightTop}}

	case len(byCount[3]) == 1:
		return HandValue{ThreeOfAKind, append([]int{byCount[3][0]}, byCount[1]...)}

	case len(byCount[2]) == 2:
		return HandValue{TwoPair, []int{byCount[2][0], byCount[2][1], byCount[1][0]}}

	case len(byCount[2]) == 1:
		return HandValue{OnePair, append([]int{byCount[2][0]}, byCount[1]...)}

	default:
		return HandValue{HighCard, values}
	}
}

// straightTopCard reports whether the five descending values form a
// straight and, if so, its top card. The wheel (A-2-3-4-5) counts as a
// five-high straight.
func straightTopCard(desc []int) (bool, int) {
	run := true
	for i := 1; i < 5; i++ {
		if desc[i] != desc[i-1]-1 {
			run = false
			break
		}
	}
	if run {
		return true, desc[0]
	}

	// Wheel: A,5,4,3,2 sorted descending
	if desc[0] == int(deck.Ace) && desc[1] == 5 && desc[2] == 4 && desc[3] == 3 && desc[4] == 2 {
		return true, 5
	}
	return false, 0
}
