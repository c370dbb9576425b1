package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/cardroomlabs/holdemd/internal/deck"
	"github.com/cardroomlabs/holdemd/internal/evaluator"
)

// Config holds the per-table hand parameters
type Config struct {
	SmallBlind    int
	BigBlind      int
	InitialStack  int
	Ante          int
	ActionTimeout time.Duration
}

// Winner records a pot award at hand completion
type Winner struct {
	SeatIndex int
	Amount    int
	HandLabel string
}

// Hand is the authoritative state machine for a single table. It owns
// the pot, community cards, blinds, the action pointer and
// minimum-raise tracking. All mutation goes through StartHand,
// SubmitAction and ResolveTimeout; illegal inputs return an error and
// leave the state unchanged.
type Hand struct {
	Config    Config
	HandID    string
	Seats     []*Seat
	Community []deck.Card
	Pot       int
	Stage     Stage

	CurrentSeat   int
	CurrentBet    int
	DealerIdx     int
	SmallBlindIdx int
	BigBlindIdx   int
	LastAggressor int
	LastRaiseSize int
	Acted         map[int]bool
	Deadline      time.Time
	Results       []Winner

	deck    *deck.Deck
	rng     *rand.Rand
	bbActed bool
}

// NewHand creates an empty hand in the waiting stage. A nil RNG gets
// a time-seeded one.
func NewHand(cfg Config, rng *rand.Rand) *Hand {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Hand{
		Config:        cfg,
		Stage:         Waiting,
		CurrentSeat:   -1,
		DealerIdx:     -1,
		SmallBlindIdx: -1,
		BigBlindIdx:   -1,
		LastAggressor: -1,
		Acted:         make(map[int]bool),
		deck:          deck.New(rng),
		rng:           rng,
	}
}

// Seat lookup helpers

// SeatByID returns the seat for a player id, or nil
func (h *Hand) SeatByID(id string) (*Seat, int) {
	for i, s := range h.Seats {
		if s.ID == id {
			return s, i
		}
	}
	return nil, -1
}

// SeatAtNumber returns the seat occupying a seat number, or nil
func (h *Hand) SeatAtNumber(n int) *Seat {
	for _, s := range h.Seats {
		if s.SeatNumber == n {
			return s
		}
	}
	return nil
}

// AddSeat admits a player at the given seat number. Between hands any
// free seat is admissible. While a hand is in progress the seat is
// admitted for the next hand; unless the rotation makes it the next
// big blind it is additionally flagged sitting out until the button
// reaches it.
func (h *Hand) AddSeat(id, name string, seatNumber, stack int) (*Seat, error) {
	if s, _ := h.SeatByID(id); s != nil {
		return nil, fmt.Errorf("%w: player %s already seated", ErrInvalidInput, id)
	}
	if h.SeatAtNumber(seatNumber) != nil {
		return nil, fmt.Errorf("%w: seat %d occupied", ErrInvalidInput, seatNumber)
	}
	if stack <= 0 {
		return nil, fmt.Errorf("%w: buy-in must be positive", ErrInvalidInput)
	}

	seat := NewSeat(id, name, seatNumber, stack)

	// Keep the slice ordered by seat number so position arithmetic
	// walks the table clockwise.
	pos := len(h.Seats)
	for i, s := range h.Seats {
		if seatNumber < s.SeatNumber {
			pos = i
			break
		}
	}
	h.Seats = append(h.Seats, nil)
	copy(h.Seats[pos+1:], h.Seats[pos:])
	h.Seats[pos] = seat

	// Inserting before the dealer shifts every tracked index by one
	h.shiftIndexesFor(pos)

	if h.Stage.isBetting() || h.Stage == Showdown {
		seat.InHand = false
		if !h.joinsAsNextBigBlind(pos) {
			seat.SittingOut = true
		}
	}

	return seat, nil
}

// RemoveSeat drops a player's seat entirely. The caller is expected
// to have folded the seat first if a hand is running.
func (h *Hand) RemoveSeat(id string) (*Seat, error) {
	seat, pos := h.SeatByID(id)
	if seat == nil {
		return nil, fmt.Errorf("%w: player %s not seated", ErrInvalidInput, id)
	}

	h.Seats = append(h.Seats[:pos], h.Seats[pos+1:]...)
	h.unshiftIndexesFor(pos)
	return seat, nil
}

func (h *Hand) shiftIndexesFor(insertedAt int) {
	shift := func(idx *int) {
		if *idx >= insertedAt {
			*idx++
		}
	}
	shift(&h.DealerIdx)
	shift(&h.SmallBlindIdx)
	shift(&h.BigBlindIdx)
	if h.CurrentSeat >= 0 {
		shift(&h.CurrentSeat)
	}
	if h.LastAggressor >= 0 {
		shift(&h.LastAggressor)
	}
	acted := make(map[int]bool, len(h.Acted))
	for i, v := range h.Acted {
		if i >= insertedAt {
			acted[i+1] = v
		} else {
			acted[i] = v
		}
	}
	h.Acted = acted
	for i := range h.Results {
		if h.Results[i].SeatIndex >= insertedAt {
			h.Results[i].SeatIndex++
		}
	}
}

func (h *Hand) unshiftIndexesFor(removedAt int) {
	unshift := func(idx *int) {
		switch {
		case *idx == removedAt:
			*idx = -1
		case *idx > removedAt:
			*idx--
		}
	}
	unshift(&h.DealerIdx)
	unshift(&h.SmallBlindIdx)
	unshift(&h.BigBlindIdx)
	unshift(&h.CurrentSeat)
	unshift(&h.LastAggressor)
	acted := make(map[int]bool, len(h.Acted))
	for i, v := range h.Acted {
		switch {
		case i == removedAt:
		case i > removedAt:
			acted[i-1] = v
		default:
			acted[i] = v
		}
	}
	h.Acted = acted
	for i := range h.Results {
		switch {
		case h.Results[i].SeatIndex == removedAt:
			h.Results[i].SeatIndex = -1
		case h.Results[i].SeatIndex > removedAt:
			h.Results[i].SeatIndex--
		}
	}
}

// joinsAsNextBigBlind reports whether a seat joining at slice position
// pos would be the big blind of the next hand, given the dealer
// rotation and current stacks. The button never lands on a seat that
// has not played yet, so the dealer walk covers established seats only.
func (h *Hand) joinsAsNextBigBlind(pos int) bool {
	var established, participants []int
	for i, s := range h.Seats {
		if i != pos && s.Stack > 0 && !s.SittingOut {
			established = append(established, i)
			participants = append(participants, i)
		} else if i == pos {
			participants = append(participants, i)
		}
	}
	if len(established) < 2 {
		return false
	}
	_, _, bb := h.computePositions(established, participants)
	return bb == pos
}

// computePositions rotates the dealer button to the next eligible
// seat and derives the blind positions over all participants,
// applying the heads-up rule.
func (h *Hand) computePositions(dealerEligible, participants []int) (dealer, sb, bb int) {
	next := func(list []int, after int) int {
		for _, i := range list {
			if i > after {
				return i
			}
		}
		return list[0]
	}

	if len(dealerEligible) == 0 {
		dealerEligible = participants
	}
	dealer = next(dealerEligible, h.DealerIdx)
	if len(participants) == 2 {
		// Heads-up: dealer posts the small blind
		sb = dealer
		bb = next(participants, dealer)
		return
	}
	sb = next(participants, dealer)
	bb = next(participants, sb)
	return
}

// StartHand resets state and runs the start-of-hand sequence: antes,
// dealer rotation, blinds, hole cards and the opening action pointer.
// It requires at least two seats able to play.
func (h *Hand) StartHand(now time.Time) error {
	if h.Stage.isBetting() || h.Stage == Showdown {
		return fmt.Errorf("%w: hand already in progress", ErrInvariant)
	}

	// Seats waiting for the big blind rejoin when the rotation
	// reaches them
	admitted := h.admitBigBlindJoiners()

	h.deck.Reset()
	h.Community = nil
	h.Pot = 0
	h.CurrentBet = 0
	h.LastAggressor = -1
	h.LastRaiseSize = 0
	h.Acted = make(map[int]bool)
	h.Results = nil
	h.bbActed = false
	h.HandID = uuid.NewString()

	for _, s := range h.Seats {
		s.ResetForHand()
	}

	participants := h.participantIndexes()
	if len(participants) < 2 {
		h.Stage = Waiting
		h.CurrentSeat = -1
		return fmt.Errorf("%w: need at least 2 players with chips", ErrInvalidAction)
	}

	// Antes precede the blinds
	if h.Config.Ante > 0 {
		for _, i := range participants {
			paid, err := h.Seats[i].PostAnte(h.Config.Ante)
			if err != nil {
				return err
			}
			h.Pot += paid
		}
	}

	dealerEligible := participants
	if len(admitted) > 0 {
		dealerEligible = nil
		for _, i := range participants {
			if !admitted[i] {
				dealerEligible = append(dealerEligible, i)
			}
		}
	}
	dealer, sb, bb := h.computePositions(dealerEligible, participants)
	h.DealerIdx = dealer
	h.SmallBlindIdx = sb
	h.BigBlindIdx = bb

	for _, post := range []struct {
		idx    int
		amount int
	}{{sb, h.Config.SmallBlind}, {bb, h.Config.BigBlind}} {
		paid, err := h.Seats[post.idx].Bet(post.amount)
		if err != nil {
			return err
		}
		h.Pot += paid
	}

	// Blind posters count as having acted, though the big blind
	// retains the option to raise when the action limps around.
	h.Acted[sb] = true
	h.Acted[bb] = true

	if err := h.dealHoleCards(participants, sb); err != nil {
		return err
	}

	h.CurrentBet = h.Config.BigBlind
	h.LastRaiseSize = h.Config.BigBlind
	h.Stage = Preflop

	if len(participants) == 2 {
		h.CurrentSeat = sb
	} else {
		h.CurrentSeat = h.nextAble(bb + 1)
	}
	if h.CurrentSeat == -1 || !h.Seats[h.CurrentSeat].CanAct() {
		// Blinds put everyone all-in; run the board out
		h.advanceStreet(now)
		return nil
	}

	h.Deadline = now.Add(h.Config.ActionTimeout)
	return nil
}

func (h *Hand) admitBigBlindJoiners() map[int]bool {
	admitted := make(map[int]bool)
	for pos, s := range h.Seats {
		if s.SittingOut && s.Stack > 0 && h.joinsAsNextBigBlind(pos) {
			s.SittingOut = false
			admitted[pos] = true
		}
	}
	return admitted
}

func (h *Hand) participantIndexes() []int {
	var out []int
	for i, s := range h.Seats {
		if s.InHand {
			out = append(out, i)
		}
	}
	return out
}

// dealHoleCards deals two cards to each participant, one at a time
// round-robin starting at the small blind
func (h *Hand) dealHoleCards(participants []int, sb int) error {
	order := rotateFrom(participants, sb)
	first := make(map[int]deck.Card, len(order))

	for _, i := range order {
		c, err := h.deck.DealOne()
		if err != nil {
			return err
		}
		first[i] = c
	}
	for _, i := range order {
		c, err := h.deck.DealOne()
		if err != nil {
			return err
		}
		if err := h.Seats[i].DealHoleCards(first[i], c); err != nil {
			return err
		}
	}
	return nil
}

// rotateFrom reorders indexes so the one at start comes first
func rotateFrom(indexes []int, start int) []int {
	out := make([]int, 0, len(indexes))
	pivot := 0
	for i, v := range indexes {
		if v == start {
			pivot = i
			break
		}
	}
	out = append(out, indexes[pivot:]...)
	out = append(out, indexes[:pivot]...)
	return out
}

// nextAble returns the index of the first seat at or after from (wrapping)
// that can still act, or -1
func (h *Hand) nextAble(from int) int {
	n := len(h.Seats)
	if n == 0 {
		return -1
	}
	for i := 0; i < n; i++ {
		pos := ((from + i) % n + n) % n
		if h.Seats[pos].CanAct() {
			return pos
		}
	}
	return -1
}

// inHandCount counts seats still contesting the pot (including all-in)
func (h *Hand) inHandCount() int {
	count := 0
	for _, s := range h.Seats {
		if s.InHand {
			count++
		}
	}
	return count
}

// SubmitAction admits an action for the seat at seatIdx. The seat
// must be the current seat, able to act, and inside the action
// deadline. On success the action pointer advances and the street or
// hand may complete.
func (h *Hand) SubmitAction(seatIdx int, kind ActionKind, amount int, now time.Time) error {
	return h.apply(seatIdx, kind, amount, now, true)
}

// ResolveTimeout resolves an expired action deadline through the same
// admission path: auto-check when legal, otherwise auto-fold. It
// returns the action taken.
func (h *Hand) ResolveTimeout(now time.Time) (ActionKind, error) {
	if !h.Stage.isBetting() || h.CurrentSeat < 0 {
		return 0, fmt.Errorf("%w: no action pending", ErrInvalidAction)
	}

	seat := h.Seats[h.CurrentSeat]
	kind := Fold
	if seat.RoundBet >= h.CurrentBet {
		kind = Check
	}
	if err := h.apply(h.CurrentSeat, kind, 0, now, false); err != nil {
		return 0, err
	}
	return kind, nil
}

func (h *Hand) apply(seatIdx int, kind ActionKind, amount int, now time.Time, enforceDeadline bool) error {
	if !h.Stage.isBetting() {
		return fmt.Errorf("%w: no betting round in progress", ErrInvalidAction)
	}
	if seatIdx < 0 || seatIdx >= len(h.Seats) {
		return fmt.Errorf("%w: unknown seat", ErrInvalidAction)
	}
	if seatIdx != h.CurrentSeat {
		return fmt.Errorf("%w: not your turn", ErrInvalidAction)
	}
	if amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidInput)
	}

	seat := h.Seats[seatIdx]
	if !seat.CanAct() {
		return fmt.Errorf("%w: seat cannot act", ErrInvalidAction)
	}
	if enforceDeadline && !h.Deadline.IsZero() && now.After(h.Deadline) {
		return ErrTimeout
	}

	switch kind {
	case Fold:
		seat.Fold()
		h.Acted[seatIdx] = true
		if h.LastAggressor == seatIdx {
			h.LastAggressor = -1
		}

	case Check:
		if seat.RoundBet < h.CurrentBet {
			return fmt.Errorf("%w: cannot check, $%d to call", ErrInvalidAction, h.CurrentBet-seat.RoundBet)
		}
		h.Acted[seatIdx] = true

	case Call:
		toCall := h.CurrentBet - seat.RoundBet
		if toCall <= 0 {
			return fmt.Errorf("%w: nothing to call", ErrInvalidAction)
		}
		paid, err := seat.Bet(toCall)
		if err != nil {
			return err
		}
		h.Pot += paid
		h.Acted[seatIdx] = true

	case BetAction:
		if h.CurrentBet != 0 {
			return fmt.Errorf("%w: there is a bet to match, raise instead", ErrInvalidAction)
		}
		if amount < h.Config.BigBlind && amount < seat.Stack {
			return fmt.Errorf("%w: minimum bet is $%d", ErrInvalidAction, h.Config.BigBlind)
		}
		paid, err := seat.Bet(amount)
		if err != nil {
			return err
		}
		h.Pot += paid
		h.CurrentBet = seat.RoundBet
		h.LastRaiseSize = seat.RoundBet
		h.reopenAction(seatIdx)

	case Raise:
		if h.CurrentBet == 0 {
			return fmt.Errorf("%w: nothing to raise, bet instead", ErrInvalidAction)
		}
		minRaise := h.minRaiseIncrement()
		toCall := h.CurrentBet - seat.RoundBet
		pay := toCall + amount
		if amount < minRaise && pay < seat.Stack {
			return fmt.Errorf("%w: minimum raise is $%d", ErrInvalidAction, minRaise)
		}
		paid, err := seat.Bet(pay)
		if err != nil {
			return err
		}
		h.Pot += paid
		h.applyRaiseBookkeeping(seatIdx)

	case AllInAction:
		paid, err := seat.Bet(seat.Stack)
		if err != nil {
			return err
		}
		h.Pot += paid
		h.applyRaiseBookkeeping(seatIdx)

	default:
		return fmt.Errorf("%w: unknown action", ErrInvalidAction)
	}

	if h.Stage == Preflop && seatIdx == h.BigBlindIdx {
		h.bbActed = true
	}

	// One seat left takes the pot immediately
	if h.inHandCount() == 1 {
		h.finishFoldWin()
		return nil
	}

	if h.roundComplete() {
		h.advanceStreet(now)
		return nil
	}

	next := h.nextAble(seatIdx + 1)
	if next == -1 {
		h.advanceStreet(now)
		return nil
	}
	h.CurrentSeat = next
	h.Deadline = now.Add(h.Config.ActionTimeout)
	return nil
}

// FoldOut folds a seat outside the normal action flow, for a player
// who left the table or ran out their reconnection grace. Unlike
// SubmitAction it does not require the seat to be the one to act.
func (h *Hand) FoldOut(seatIdx int, now time.Time) error {
	if seatIdx < 0 || seatIdx >= len(h.Seats) {
		return fmt.Errorf("%w: unknown seat", ErrInvalidInput)
	}
	seat := h.Seats[seatIdx]
	if !h.Stage.isBetting() || !seat.InHand {
		seat.InHand = false
		return nil
	}

	wasCurrent := h.CurrentSeat == seatIdx
	seat.Fold()
	h.Acted[seatIdx] = true
	if h.LastAggressor == seatIdx {
		h.LastAggressor = -1
	}

	if h.inHandCount() == 1 {
		h.finishFoldWin()
		return nil
	}

	if wasCurrent {
		if h.roundComplete() {
			h.advanceStreet(now)
			return nil
		}
		next := h.nextAble(seatIdx + 1)
		if next == -1 {
			h.advanceStreet(now)
			return nil
		}
		h.CurrentSeat = next
		h.Deadline = now.Add(h.Config.ActionTimeout)
	} else if h.roundComplete() {
		h.advanceStreet(now)
	}
	return nil
}

func (h *Hand) minRaiseIncrement() int {
	if h.LastRaiseSize > h.Config.BigBlind {
		return h.LastRaiseSize
	}
	return h.Config.BigBlind
}

// applyRaiseBookkeeping updates match and aggressor state after chips
// went in above a possible call. An all-in short of the minimum raise
// increment moves the bet to match but does not reopen the action for
// seats that already matched.
func (h *Hand) applyRaiseBookkeeping(seatIdx int) {
	seat := h.Seats[seatIdx]
	if seat.RoundBet <= h.CurrentBet {
		// Call-equivalent all-in
		h.Acted[seatIdx] = true
		return
	}

	increment := seat.RoundBet - h.CurrentBet
	if increment >= h.minRaiseIncrement() {
		h.LastRaiseSize = increment
		h.CurrentBet = seat.RoundBet
		h.reopenAction(seatIdx)
		return
	}

	// Under-raise all-in: others must match the extra chips but the
	// action is not reopened
	h.CurrentBet = seat.RoundBet
	h.Acted[seatIdx] = true
}

// reopenAction resets the acted set to just the aggressor
func (h *Hand) reopenAction(seatIdx int) {
	h.LastAggressor = seatIdx
	h.Acted = map[int]bool{seatIdx: true}
}

// roundComplete reports whether the current betting round is over:
// every seat that can still act has acted and matched the current
// bet, and preflop the big blind has had its option.
func (h *Hand) roundComplete() bool {
	able := 0
	for i, s := range h.Seats {
		if !s.CanAct() {
			continue
		}
		able++
		if s.RoundBet != h.CurrentBet {
			return false
		}
		if !h.Acted[i] {
			return false
		}
	}
	if able == 0 {
		return true
	}

	if h.Stage == Preflop && h.LastAggressor == -1 && !h.bbActed {
		if h.BigBlindIdx >= 0 && h.Seats[h.BigBlindIdx].CanAct() {
			return false
		}
	}
	return true
}

// advanceStreet closes the current round and either deals the next
// street, runs the board out when no further betting is possible, or
// goes to showdown after the river.
func (h *Hand) advanceStreet(now time.Time) {
	for _, s := range h.Seats {
		s.ResetForStreet()
	}
	h.CurrentBet = 0
	h.LastAggressor = -1
	h.LastRaiseSize = 0
	h.Acted = make(map[int]bool)

	able := 0
	for _, s := range h.Seats {
		if s.CanAct() {
			able++
		}
	}
	if able <= 1 {
		h.runOutBoard()
		h.showdown()
		return
	}

	switch h.Stage {
	case Preflop:
		h.dealCommunity(3)
		h.Stage = Flop
	case Flop:
		h.dealCommunity(1)
		h.Stage = Turn
	case Turn:
		h.dealCommunity(1)
		h.Stage = River
	case River:
		h.showdown()
		return
	}

	h.CurrentSeat = h.nextAble(h.SmallBlindIdx)
	if h.CurrentSeat == -1 {
		h.runOutBoard()
		h.showdown()
		return
	}
	h.Deadline = now.Add(h.Config.ActionTimeout)
}

// dealCommunity burns one card then deals n to the board
func (h *Hand) dealCommunity(n int) {
	if err := h.deck.Burn(); err != nil {
		return
	}
	cards, err := h.deck.Deal(n)
	if err != nil {
		return
	}
	h.Community = append(h.Community, cards...)
}

// runOutBoard deals any remaining streets with a burn before each
func (h *Hand) runOutBoard() {
	for h.Stage.isBetting() && h.Stage != River {
		switch h.Stage {
		case Preflop:
			h.dealCommunity(3)
			h.Stage = Flop
		case Flop:
			h.dealCommunity(1)
			h.Stage = Turn
		case Turn:
			h.dealCommunity(1)
			h.Stage = River
		}
	}
}

// finishFoldWin awards the pot to the last seat standing
func (h *Hand) finishFoldWin() {
	for i, s := range h.Seats {
		if s.InHand {
			_ = s.AddChips(h.Pot)
			h.Results = []Winner{{SeatIndex: i, Amount: h.Pot}}
			break
		}
	}
	h.Stage = Complete
	h.CurrentSeat = -1
	h.Deadline = time.Time{}
}

// showdown evaluates every remaining seat's best five of seven and
// splits the pot among the winners. Ties floor-divide; the remainder
// is dropped.
func (h *Hand) showdown() {
	h.Stage = Showdown

	type contender struct {
		idx   int
		value evaluator.HandValue
	}
	var best []contender

	for i, s := range h.Seats {
		if !s.InHand || len(s.HoleCards) != 2 {
			continue
		}
		seven := append(append([]deck.Card{}, s.HoleCards...), h.Community...)
		value, err := evaluator.Evaluate(seven)
		if err != nil {
			continue
		}

		if len(best) == 0 {
			best = []contender{{i, value}}
			continue
		}
		switch evaluator.Compare(value, best[0].value) {
		case 1:
			best = []contender{{i, value}}
		case 0:
			best = append(best, contender{i, value})
		}
	}

	if len(best) > 0 {
		share := h.Pot / len(best)
		for _, c := range best {
			_ = h.Seats[c.idx].AddChips(share)
			h.Results = append(h.Results, Winner{
				SeatIndex: c.idx,
				Amount:    share,
				HandLabel: c.value.Label(),
			})
		}
	}

	h.Stage = Complete
	h.CurrentSeat = -1
	h.Deadline = time.Time{}
}

// ValidAction describes an admissible action for the seat to act
type ValidAction struct {
	Kind      ActionKind
	MinAmount int
}

// ValidActions returns the legally admissible actions for a seat.
// Empty unless it is that seat's turn.
func (h *Hand) ValidActions(seatIdx int) []ValidAction {
	if !h.Stage.isBetting() || seatIdx != h.CurrentSeat {
		return nil
	}
	seat := h.Seats[seatIdx]
	if !seat.CanAct() {
		return nil
	}

	actions := []ValidAction{{Kind: Fold}}
	toCall := h.CurrentBet - seat.RoundBet

	if toCall <= 0 {
		actions = append(actions, ValidAction{Kind: Check})
	} else {
		actions = append(actions, ValidAction{Kind: Call, MinAmount: min(toCall, seat.Stack)})
	}

	if h.CurrentBet == 0 && seat.Stack > 0 {
		actions = append(actions, ValidAction{Kind: BetAction, MinAmount: min(h.Config.BigBlind, seat.Stack)})
	}
	if h.CurrentBet > 0 && seat.Stack > toCall {
		actions = append(actions, ValidAction{Kind: Raise, MinAmount: h.minRaiseIncrement()})
	}
	if seat.Stack > 0 {
		actions = append(actions, ValidAction{Kind: AllInAction, MinAmount: seat.Stack})
	}
	return actions
}
