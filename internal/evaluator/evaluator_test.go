package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/holdemd/internal/deck"
)

func mustCards(t *testing.T, s string) []deck.Card {
	t.Helper()
	cards, err := deck.ParseCards(s)
	require.NoError(t, err)
	return cards
}

func evaluate(t *testing.T, s string) HandValue {
	t.Helper()
	v, err := Evaluate(mustCards(t, s))
	require.NoError(t, err)
	return v
}

func TestEvaluateCategories(t *testing.T) {
	tests := []struct {
		name        string
		cards       string
		category    Category
		tiebreakers []int
	}{
		{"straight flush", "9s8s7s6s5s", StraightFlush, []int{9}},
		{"royal flush", "AsKsQsJsTs", StraightFlush, []int{14}},
		{"four of a kind", "7s7h7d7cKs", FourOfAKind, []int{7, 13}},
		{"full house", "QsQhQd9c9s", FullHouse, []int{12, 9}},
		{"flush", "Ad9d7d5d2d", Flush, []int{14, 9, 7, 5, 2}},
		{"straight", "Ts9h8d7c6s", Straight, []int{10}},
		{"wheel straight", "Ah5d4c3s2h", Straight, []int{5}},
		{"three of a kind", "8s8h8dKcQs", ThreeOfAKind, []int{8, 13, 12}},
		{"two pair", "JsJh4d4cAs", TwoPair, []int{11, 4, 14}},
		{"one pair", "TsTh8d6c3s", OnePair, []int{10, 8, 6, 3}},
		{"high card", "AsJh9d6c3s", HighCard, []int{14, 11, 9, 6, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluate(t, tt.cards)
			assert.Equal(t, tt.category, v.Category)
			assert.Equal(t, tt.tiebreakers, v.Tiebreakers)
		})
	}
}

func TestEvaluateBestOfSeven(t *testing.T) {
	// Hole cards As Ks with a board that makes an ace-high flush
	v := evaluate(t, "AsKs"+"Qs7s2s"+"9h"+"3d")
	assert.Equal(t, Flush, v.Category)
	assert.Equal(t, []int{14, 13, 12, 7, 2}, v.Tiebreakers)

	// Board pairs beat a weaker pocket pair
	v = evaluate(t, "2h2d"+"KsKhQd"+"Jc"+"9s")
	assert.Equal(t, TwoPair, v.Category)
	assert.Equal(t, []int{13, 2, 12}, v.Tiebreakers)
}

func TestEvaluateNeedsFiveCards(t *testing.T) {
	_, err := Evaluate(mustCards(t, "AsKs"))
	assert.Error(t, err)
}

func TestCompareOrdering(t *testing.T) {
	ordered := []string{
		"AsJh9d6c3s", // high card
		"TsTh8d6c3s", // one pair
		"JsJh4d4cAs", // two pair
		"8s8h8dKcQs", // trips
		"Ah5d4c3s2h", // wheel
		"Ts9h8d7c6s", // straight
		"Ad9d7d5d2d", // flush
		"QsQhQd9c9s", // full house
		"7s7h7d7cKs", // quads
		"9s8s7s6s5s", // straight flush
		"AsKsQsJsTs", // royal flush
	}

	for i := 1; i < len(ordered); i++ {
		weaker := evaluate(t, ordered[i-1])
		stronger := evaluate(t, ordered[i])
		assert.Equal(t, 1, Compare(stronger, weaker), "%s should beat %s", ordered[i], ordered[i-1])
		assert.Equal(t, -1, Compare(weaker, stronger))
	}
}

func TestCompareKickers(t *testing.T) {
	a := evaluate(t, "TsTh8d6c3s")
	b := evaluate(t, "TdTc8h6s2d")
	assert.Equal(t, 1, Compare(a, b), "three kicker beats two kicker")

	// Exact tie splits the pot
	c := evaluate(t, "TdTc8h6s3d")
	assert.Equal(t, 0, Compare(a, c))
}

func TestRoyalFlushLabel(t *testing.T) {
	v := evaluate(t, "AsKsQsJsTs")
	assert.Equal(t, "Royal Flush", v.Label())

	v = evaluate(t, "9s8s7s6s5s")
	assert.Equal(t, "Straight Flush", v.Label())
}
