package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var handStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestHand(t *testing.T, stack int, players int) *Hand {
	t.Helper()
	cfg := Config{
		SmallBlind:    10,
		BigBlind:      20,
		InitialStack:  stack,
		ActionTimeout: 30 * time.Second,
	}
	h := NewHand(cfg, rand.New(rand.NewSource(7)))
	names := []string{"alice", "bob", "carol", "dave"}
	for i := 0; i < players; i++ {
		_, err := h.AddSeat(names[i], names[i], i, stack)
		require.NoError(t, err)
	}
	return h
}

func requirePotMatchesContributions(t *testing.T, h *Hand) {
	t.Helper()
	total := 0
	for _, s := range h.Seats {
		total += s.HandBet
	}
	require.Equal(t, total, h.Pot, "pot must equal the sum of contributions")
}

func TestHeadsUpBlindsAndOpeningAction(t *testing.T) {
	h := newTestHand(t, 1000, 2)
	require.NoError(t, h.StartHand(handStart))

	// Heads-up the dealer posts the small blind and acts first preflop
	assert.Equal(t, 0, h.DealerIdx)
	assert.Equal(t, 0, h.SmallBlindIdx)
	assert.Equal(t, 1, h.BigBlindIdx)
	assert.Equal(t, 0, h.CurrentSeat)
	assert.Equal(t, Preflop, h.Stage)
	assert.Equal(t, 30, h.Pot)
	assert.Equal(t, 20, h.CurrentBet)
	assert.Equal(t, 990, h.Seats[0].Stack)
	assert.Equal(t, 980, h.Seats[1].Stack)
	assert.Len(t, h.Seats[0].HoleCards, 2)
	assert.Len(t, h.Seats[1].HoleCards, 2)
	requirePotMatchesContributions(t, h)

	require.NoError(t, h.SubmitAction(0, Call, 0, handStart))
	assert.Equal(t, 40, h.Pot)
	assert.Equal(t, Preflop, h.Stage, "big blind keeps the option after a limp")
	assert.Equal(t, 1, h.CurrentSeat)

	require.NoError(t, h.SubmitAction(1, Check, 0, handStart))
	assert.Equal(t, Flop, h.Stage)
	assert.Len(t, h.Community, 3)
	assert.Equal(t, 0, h.CurrentBet)
	assert.Equal(t, 0, h.CurrentSeat, "small blind acts first postflop")
	requirePotMatchesContributions(t, h)
}

func TestBigBlindOptionRaise(t *testing.T) {
	h := newTestHand(t, 1000, 2)
	require.NoError(t, h.StartHand(handStart))
	require.NoError(t, h.SubmitAction(0, Call, 0, handStart))

	require.NoError(t, h.SubmitAction(1, Raise, 40, handStart))
	assert.Equal(t, Preflop, h.Stage)
	assert.Equal(t, 60, h.CurrentBet)
	assert.Equal(t, 0, h.CurrentSeat)
	assert.Equal(t, 1, h.LastAggressor)
}

func TestMinimumBetAndRaise(t *testing.T) {
	h := newTestHand(t, 1000, 2)
	require.NoError(t, h.StartHand(handStart))
	require.NoError(t, h.SubmitAction(0, Call, 0, handStart))
	require.NoError(t, h.SubmitAction(1, Check, 0, handStart))
	require.Equal(t, Flop, h.Stage)

	err := h.SubmitAction(0, BetAction, 10, handStart)
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.ErrorContains(t, err, "minimum bet is $20")

	require.NoError(t, h.SubmitAction(0, BetAction, 20, handStart))
	assert.Equal(t, 20, h.CurrentBet)

	// A raise amount is the increment over the current bet
	require.NoError(t, h.SubmitAction(1, Raise, 100, handStart))
	assert.Equal(t, 120, h.CurrentBet)
	assert.Equal(t, 120, h.Seats[1].RoundBet)

	err = h.SubmitAction(0, Raise, 50, handStart)
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.ErrorContains(t, err, "minimum raise is $100")

	require.NoError(t, h.SubmitAction(0, Raise, 100, handStart))
	assert.Equal(t, 220, h.CurrentBet)
	assert.Equal(t, 220, h.Seats[0].RoundBet)
	requirePotMatchesContributions(t, h)
}

func TestAllInFoldWin(t *testing.T) {
	h := newTestHand(t, 100, 2)
	require.NoError(t, h.StartHand(handStart))

	require.NoError(t, h.SubmitAction(0, AllInAction, 0, handStart))
	assert.Equal(t, 100, h.CurrentBet)
	assert.True(t, h.Seats[0].AllIn)

	require.NoError(t, h.SubmitAction(1, Fold, 0, handStart))
	assert.Equal(t, Complete, h.Stage)
	assert.Equal(t, 120, h.Seats[0].Stack)
	assert.Equal(t, 80, h.Seats[1].Stack)
	require.Len(t, h.Results, 1)
	assert.Equal(t, 0, h.Results[0].SeatIndex)
	assert.Equal(t, 120, h.Results[0].Amount)
	assert.Empty(t, h.Results[0].HandLabel, "fold wins reveal no hand")
}

func TestAllInCallRunsOutBoard(t *testing.T) {
	h := newTestHand(t, 100, 2)
	require.NoError(t, h.StartHand(handStart))

	require.NoError(t, h.SubmitAction(0, AllInAction, 0, handStart))
	require.NoError(t, h.SubmitAction(1, Call, 0, handStart))

	assert.Equal(t, Complete, h.Stage)
	assert.Len(t, h.Community, 5)
	assert.NotEmpty(t, h.Results)

	total := 0
	for _, s := range h.Seats {
		total += s.Stack
	}
	assert.Equal(t, 200, total, "chips are conserved through a runout")
}

func TestDealerRotation(t *testing.T) {
	h := newTestHand(t, 1000, 2)

	require.NoError(t, h.StartHand(handStart))
	assert.Equal(t, 0, h.DealerIdx)
	require.NoError(t, h.SubmitAction(h.CurrentSeat, Fold, 0, handStart))
	require.Equal(t, Complete, h.Stage)

	require.NoError(t, h.StartHand(handStart))
	assert.Equal(t, 1, h.DealerIdx)
	assert.Equal(t, 1, h.SmallBlindIdx)
	assert.Equal(t, 0, h.BigBlindIdx)
	require.NoError(t, h.SubmitAction(h.CurrentSeat, Fold, 0, handStart))

	require.NoError(t, h.StartHand(handStart))
	assert.Equal(t, 0, h.DealerIdx)
}

func TestThreeHandedPositions(t *testing.T) {
	h := newTestHand(t, 1000, 3)
	require.NoError(t, h.StartHand(handStart))

	assert.Equal(t, 0, h.DealerIdx)
	assert.Equal(t, 1, h.SmallBlindIdx)
	assert.Equal(t, 2, h.BigBlindIdx)
	assert.Equal(t, 0, h.CurrentSeat, "seat after the big blind opens preflop")

	require.NoError(t, h.SubmitAction(0, Call, 0, handStart))
	require.NoError(t, h.SubmitAction(1, Call, 0, handStart))
	assert.Equal(t, Preflop, h.Stage)
	assert.Equal(t, 2, h.CurrentSeat)

	require.NoError(t, h.SubmitAction(2, Check, 0, handStart))
	assert.Equal(t, Flop, h.Stage)
	assert.Equal(t, 60, h.Pot)
	assert.Equal(t, 1, h.CurrentSeat, "small blind acts first postflop")
	requirePotMatchesContributions(t, h)
}

func TestUnderRaiseAllInDoesNotReopen(t *testing.T) {
	h := newTestHand(t, 1000, 3)
	// Give the small blind a short stack so its shove is an under-raise
	h.Seats[1].Stack = 25
	require.NoError(t, h.StartHand(handStart))

	require.NoError(t, h.SubmitAction(0, Call, 0, handStart))
	require.NoError(t, h.SubmitAction(1, AllInAction, 0, handStart))
	require.Equal(t, 25, h.CurrentBet)
	assert.Equal(t, 2, h.CurrentSeat)

	require.NoError(t, h.SubmitAction(2, Call, 0, handStart))
	require.Equal(t, 0, h.CurrentSeat)
	require.NoError(t, h.SubmitAction(0, Call, 0, handStart))

	// The short all-in did not reopen the action, so the round closed
	// once the callers matched
	assert.Equal(t, Flop, h.Stage)
	requirePotMatchesContributions(t, h)
}

func TestActionTimeout(t *testing.T) {
	h := newTestHand(t, 1000, 2)
	require.NoError(t, h.StartHand(handStart))

	late := handStart.Add(31 * time.Second)
	err := h.SubmitAction(0, Call, 0, late)
	require.ErrorIs(t, err, ErrTimeout)

	// Facing a bet the timeout resolves to a fold
	kind, err := h.ResolveTimeout(late)
	require.NoError(t, err)
	assert.Equal(t, Fold, kind)
	assert.Equal(t, Complete, h.Stage)
	require.Len(t, h.Results, 1)
	assert.Equal(t, 1, h.Results[0].SeatIndex)
}

func TestActionTimeoutAutoCheck(t *testing.T) {
	h := newTestHand(t, 1000, 2)
	require.NoError(t, h.StartHand(handStart))
	require.NoError(t, h.SubmitAction(0, Call, 0, handStart))

	// The big blind has matched the bet, so the timeout checks
	kind, err := h.ResolveTimeout(handStart.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Check, kind)
	assert.Equal(t, Flop, h.Stage)
}

func TestOutOfTurnAction(t *testing.T) {
	h := newTestHand(t, 1000, 2)
	require.NoError(t, h.StartHand(handStart))

	err := h.SubmitAction(1, Fold, 0, handStart)
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.ErrorContains(t, err, "not your turn")
	assert.Equal(t, Preflop, h.Stage)
	assert.False(t, h.Seats[1].Folded)
}

func TestCheckFacingBet(t *testing.T) {
	h := newTestHand(t, 1000, 2)
	require.NoError(t, h.StartHand(handStart))

	err := h.SubmitAction(0, Check, 0, handStart)
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.ErrorContains(t, err, "to call")
}

func TestStartHandRequiresTwoPlayers(t *testing.T) {
	cfg := Config{SmallBlind: 10, BigBlind: 20, ActionTimeout: 30 * time.Second}
	h := NewHand(cfg, rand.New(rand.NewSource(1)))
	_, err := h.AddSeat("alice", "alice", 0, 1000)
	require.NoError(t, err)

	err = h.StartHand(handStart)
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, Waiting, h.Stage)
}

func TestAddSeatValidation(t *testing.T) {
	h := newTestHand(t, 1000, 2)

	_, err := h.AddSeat("alice", "alice", 5, 1000)
	assert.ErrorIs(t, err, ErrInvalidInput, "duplicate player id")

	_, err = h.AddSeat("carol", "carol", 1, 1000)
	assert.ErrorIs(t, err, ErrInvalidInput, "occupied seat")

	_, err = h.AddSeat("carol", "carol", 2, 0)
	assert.ErrorIs(t, err, ErrInvalidInput, "empty buy-in")
}

func TestJoinMidHandWaitsForBigBlind(t *testing.T) {
	h := newTestHand(t, 1000, 2)
	require.NoError(t, h.StartHand(handStart))

	// Joining mid-hand away from the next big blind position means
	// sitting out until the button comes around
	seat, err := h.AddSeat("carol", "carol", 2, 1000)
	require.NoError(t, err)
	assert.False(t, seat.InHand)
	assert.True(t, seat.SittingOut)

	require.NoError(t, h.SubmitAction(h.CurrentSeat, Fold, 0, handStart))
	require.NoError(t, h.StartHand(handStart))
	assert.False(t, seat.InHand, "rotation has not reached the new seat yet")

	require.NoError(t, h.SubmitAction(h.CurrentSeat, Fold, 0, handStart))
	require.NoError(t, h.StartHand(handStart))
	assert.True(t, seat.InHand)
	assert.False(t, seat.SittingOut)
	assert.Equal(t, 2, h.BigBlindIdx, "new seat enters as the big blind")
	assert.Equal(t, 0, h.DealerIdx)
}

func TestJoinMidHandAsNextBigBlind(t *testing.T) {
	h := newTestHand(t, 1000, 3)
	require.NoError(t, h.StartHand(handStart))

	// With the button on seat 0, the next hand's big blind is seat 3
	seat, err := h.AddSeat("dave", "dave", 3, 1000)
	require.NoError(t, err)
	assert.False(t, seat.InHand)
	assert.False(t, seat.SittingOut)

	for h.Stage != Complete {
		require.NoError(t, h.SubmitAction(h.CurrentSeat, Fold, 0, handStart))
	}
	require.NoError(t, h.StartHand(handStart))
	assert.True(t, seat.InHand)
	assert.Equal(t, 3, h.BigBlindIdx)
}

func TestValidActions(t *testing.T) {
	h := newTestHand(t, 1000, 2)
	require.NoError(t, h.StartHand(handStart))

	actions := h.ValidActions(0)
	kinds := make(map[ActionKind]int)
	for _, a := range actions {
		kinds[a.Kind] = a.MinAmount
	}
	assert.Contains(t, kinds, Fold)
	assert.Equal(t, 10, kinds[Call])
	assert.Equal(t, 20, kinds[Raise])
	assert.Equal(t, 990, kinds[AllInAction])
	assert.NotContains(t, kinds, Check)
	assert.NotContains(t, kinds, BetAction)

	assert.Nil(t, h.ValidActions(1), "only the seat to act has options")
}

func TestRemoveSeat(t *testing.T) {
	h := newTestHand(t, 1000, 3)
	require.NoError(t, h.StartHand(handStart))

	require.NoError(t, h.SubmitAction(0, Fold, 0, handStart))
	seat, err := h.RemoveSeat("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", seat.ID)
	assert.Len(t, h.Seats, 2)

	// Tracked indexes shift down past the removed position
	assert.Equal(t, 0, h.SmallBlindIdx)
	assert.Equal(t, 1, h.BigBlindIdx)

	_, err = h.RemoveSeat("alice")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
