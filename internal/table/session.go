package table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/holdemd/internal/cache"
	"github.com/cardroomlabs/holdemd/internal/directory"
	"github.com/cardroomlabs/holdemd/internal/game"
)

// nextHandDelay is the pause between a hand completing and the next
// one being dealt
const nextHandDelay = 3 * time.Second

var (
	// ErrNotSeated reports an operation for a player with no seat here
	ErrNotSeated = errors.New("player not seated at table")

	// ErrTableFull reports a seating attempt at a full table
	ErrTableFull = errors.New("table is full")
)

// DisconnectRecord tracks a player whose socket dropped mid-session.
// The seat survives until the reconnection grace expires.
type DisconnectRecord struct {
	UserID         string
	DisconnectedAt time.Time
}

// Options are the server-level defaults a session inherits
type Options struct {
	ReconnectGrace       time.Duration
	DefaultActionTimeout time.Duration
}

// Session is the actor that owns one table: its hand state machine,
// connection tracking, chat backlog and timers. Every mutation runs
// under the session mutex, which is what makes the table a single
// writer over its cached state.
type Session struct {
	ID        string
	Name      string
	maxSeats  int
	permanent bool
	community string

	mu          sync.Mutex
	hand        *game.Hand
	connected   map[string]bool
	disconnects map[string]DisconnectRecord
	graceTimers map[string]*quartz.Timer
	chat        *ChatRing

	actionTimer   *quartz.Timer
	nextHandTimer *quartz.Timer
	finishedHand  string

	store cache.Store
	dir   directory.Client
	bcast Broadcaster
	clock quartz.Clock
	log   *log.Logger
	grace time.Duration
}

// NewSession creates a session for the table described by cfg
func NewSession(cfg directory.TableConfig, opts Options, store cache.Store, dir directory.Client, bcast Broadcaster, clock quartz.Clock, logger *log.Logger) *Session {
	timeout := opts.DefaultActionTimeout
	if cfg.ActionTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.ActionTimeoutSeconds) * time.Second
	}

	return &Session{
		ID:        cfg.ID,
		Name:      cfg.Name,
		maxSeats:  cfg.MaxSeats,
		permanent: cfg.Permanent,
		community: cfg.CommunityID,
		hand: game.NewHand(game.Config{
			SmallBlind:    cfg.SmallBlind,
			BigBlind:      cfg.BigBlind,
			InitialStack:  cfg.BuyIn,
			ActionTimeout: timeout,
		}, nil),
		connected:   make(map[string]bool),
		disconnects: make(map[string]DisconnectRecord),
		graceTimers: make(map[string]*quartz.Timer),
		chat:        NewChatRing(),
		store:       store,
		dir:         dir,
		bcast:       bcast,
		clock:       clock,
		log:         logger.WithPrefix("table." + cfg.ID),
		grace:       opts.ReconnectGrace,
	}
}

// Restore rebuilds the hand from cached state, if any. A deadline
// already in the past resolves immediately through the timeout path.
func (s *Session) Restore(ctx context.Context) error {
	data, err := s.store.Load(ctx, cache.HandKey(s.ID))
	if errors.Is(err, cache.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore table %s: %w", s.ID, err)
	}

	hand, err := game.FromBytes(data)
	if err != nil {
		return fmt.Errorf("restore table %s: %w", s.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hand = hand
	s.log.Info("restored hand from cache", "hand", hand.HandID, "stage", hand.Stage)
	s.rescheduleActionTimerLocked()
	return nil
}

// SeatPlayer admits a player at a seat with a buy-in stack. The
// wallet debit happened upstream; chips only come back out through
// Leave.
func (s *Session) SeatPlayer(ctx context.Context, userID, username string, seatNumber, buyIn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSeats > 0 && len(s.hand.Seats) >= s.maxSeats {
		return ErrTableFull
	}
	if _, err := s.hand.AddSeat(userID, username, seatNumber, buyIn); err != nil {
		return err
	}

	s.log.Info("player seated", "user", userID, "seat", seatNumber, "buyIn", buyIn)
	s.persistLocked(ctx)
	s.broadcastStateLocked()
	return nil
}

// MarkConnected binds a live socket to a seated player. Reconnecting
// inside the grace window cancels the pending forfeit; connecting
// twice is idempotent. The hand starts once two players are ready.
func (s *Session) MarkConnected(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, _ := s.hand.SeatByID(userID)
	if seat == nil {
		return ErrNotSeated
	}

	if rec, ok := s.disconnects[userID]; ok {
		s.cancelGraceLocked(userID)
		s.connected[userID] = true
		away := s.clock.Now().Sub(rec.DisconnectedAt)
		s.log.Info("player reconnected", "user", userID, "away", away)

		s.bcast.ToUser(userID, EventReconnected, map[string]any{
			"tableId": s.ID,
			"state":   s.snapshotLocked(userID),
		})
		s.bcast.ToUser(userID, EventChatHistory, s.chat.History())
		s.bcast.ToTable(s.ID, EventPlayerReconnected, map[string]any{
			"userId": userID,
			"name":   seat.Name,
		})
		s.broadcastStateLocked()
		s.maybeStartHandLocked(ctx)
		return nil
	}

	if s.connected[userID] {
		s.bcast.ToUser(userID, EventTableState, s.snapshotLocked(userID))
		return nil
	}

	s.connected[userID] = true
	s.bcast.ToUser(userID, EventChatHistory, s.chat.History())
	s.broadcastStateLocked()
	s.maybeStartHandLocked(ctx)
	return nil
}

// MarkDisconnected records a dropped socket and arms the grace timer.
// The seat and stack stay put until it fires.
func (s *Session) MarkDisconnected(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected[userID] {
		return
	}
	s.connected[userID] = false

	name := userID
	if seat, _ := s.hand.SeatByID(userID); seat != nil {
		name = seat.Name
	}

	now := s.clock.Now()
	rec := DisconnectRecord{UserID: userID, DisconnectedAt: now}
	s.disconnects[userID] = rec
	s.graceTimers[userID] = s.clock.AfterFunc(s.grace, func() {
		s.onGraceExpired(userID, rec.DisconnectedAt)
	})

	s.log.Info("player disconnected", "user", userID, "grace", s.grace)
	s.bcast.ToTable(s.ID, EventPlayerDisconnected, map[string]any{
		"userId":  userID,
		"name":    name,
		"graceMs": s.grace.Milliseconds(),
	})
}

func (s *Session) onGraceExpired(userID string, disconnectedAt time.Time) {
	ctx := context.Background()

	s.mu.Lock()
	rec, ok := s.disconnects[userID]
	if !ok || !rec.DisconnectedAt.Equal(disconnectedAt) || s.connected[userID] {
		s.mu.Unlock()
		return
	}

	s.log.Warn("reconnection grace expired, forfeiting seat", "user", userID)
	settle, err := s.leaveLocked(ctx, userID)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("grace forfeit failed", "user", userID, "err", err)
		return
	}
	settle(ctx)
}

func (s *Session) cancelGraceLocked(userID string) {
	if timer, ok := s.graceTimers[userID]; ok {
		timer.Stop()
		delete(s.graceTimers, userID)
	}
	delete(s.disconnects, userID)
}

// SubmitAction funnels a player action into the hand state machine
// under the table lock, persists the resulting state, then broadcasts
// it. Rejected actions change nothing.
func (s *Session) SubmitAction(ctx context.Context, userID string, kind game.ActionKind, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, idx := s.hand.SeatByID(userID)
	if idx < 0 {
		return ErrNotSeated
	}

	if err := s.hand.SubmitAction(idx, kind, amount, s.clock.Now()); err != nil {
		metricActionsRejected.Inc()
		return err
	}

	metricActionsAdmitted.Inc()
	s.log.Info("action admitted", "user", userID, "action", kind, "amount", amount, "stage", s.hand.Stage)
	s.afterMutationLocked(ctx)
	return nil
}

// Chat appends a message to the table backlog and fans it out
func (s *Session) Chat(userID, text string) (ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, _ := s.hand.SeatByID(userID)
	if seat == nil {
		return ChatMessage{}, ErrNotSeated
	}

	msg := s.chat.Add(userID, seat.Name, text, s.clock.Now())
	s.bcast.ToTable(s.ID, EventChatMessage, msg)
	return msg, nil
}

// Leave removes the player from the table. Their remaining stack is
// the payout; the wallet credit here is the single point where chips
// leave the game.
func (s *Session) Leave(ctx context.Context, userID string) error {
	s.mu.Lock()
	settle, err := s.leaveLocked(ctx, userID)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	settle(ctx)
	return nil
}

// leaveLocked releases the seat and returns the settlement the caller
// must run after dropping the lock. Directory I/O never runs under the
// session mutex; a slow directory must not stall the table.
func (s *Session) leaveLocked(ctx context.Context, userID string) (func(context.Context), error) {
	seat, idx := s.hand.SeatByID(userID)
	if seat == nil {
		return nil, ErrNotSeated
	}

	if seat.InHand {
		if err := s.hand.FoldOut(idx, s.clock.Now()); err != nil {
			return nil, err
		}
	}

	payout := seat.Stack
	if _, err := s.hand.RemoveSeat(userID); err != nil {
		return nil, err
	}
	s.cancelGraceLocked(userID)
	delete(s.connected, userID)
	s.log.Info("player left", "user", userID, "payout", payout)

	empty := len(s.hand.Seats) == 0
	if empty {
		s.stopTimersLocked()
		if err := s.store.Delete(ctx, cache.HandKey(s.ID)); err != nil {
			s.log.Warn("cache delete failed", "err", err)
		}
	} else {
		s.afterMutationLocked(ctx)
	}

	return func(ctx context.Context) {
		s.settle(ctx, userID, payout, empty)
	}, nil
}

// settle runs the directory calls owed for a departed player: payout,
// seat release, and the cleanup check when the table emptied. Never
// called with the session lock held.
func (s *Session) settle(ctx context.Context, userID string, payout int, empty bool) {
	if payout > 0 {
		if err := s.dir.CreditWallet(ctx, userID, payout); err != nil {
			// The payout amount is in the log; reconciliation is manual
			s.log.Error("payout credit failed", "user", userID, "amount", payout, "err", err)
		}
	}
	if err := s.dir.UnseatPlayer(ctx, s.ID, userID); err != nil {
		s.log.Warn("unseat report failed", "user", userID, "err", err)
	}
	if empty {
		deleted, err := s.dir.CheckCleanup(ctx, s.ID)
		if err != nil {
			s.log.Warn("cleanup check failed", "err", err)
			return
		}
		s.log.Info("table empty", "deleted", deleted)
	}
}

func (s *Session) stopTimersLocked() {
	if s.actionTimer != nil {
		s.actionTimer.Stop()
		s.actionTimer = nil
	}
	if s.nextHandTimer != nil {
		s.nextHandTimer.Stop()
		s.nextHandTimer = nil
	}
	for id, timer := range s.graceTimers {
		timer.Stop()
		delete(s.graceTimers, id)
	}
}

// afterMutationLocked is the common tail of every successful hand
// mutation: persist to the cache first, broadcast second, then arm
// whichever timer the new state calls for.
func (s *Session) afterMutationLocked(ctx context.Context) {
	s.persistLocked(ctx)
	s.broadcastStateLocked()

	switch {
	case s.hand.Stage == game.Complete:
		if s.actionTimer != nil {
			s.actionTimer.Stop()
			s.actionTimer = nil
		}
		s.finishHandLocked()
	default:
		s.rescheduleActionTimerLocked()
	}
}

func (s *Session) finishHandLocked() {
	// A leave during the complete stage re-enters here for the same hand
	if s.finishedHand == s.hand.HandID {
		return
	}
	s.finishedHand = s.hand.HandID
	metricHandsCompleted.Inc()

	winners := make([]WinnerView, 0, len(s.hand.Results))
	for _, w := range s.hand.Results {
		if w.SeatIndex < 0 {
			continue
		}
		winners = append(winners, WinnerView{
			SeatNumber: s.hand.Seats[w.SeatIndex].SeatNumber,
			UserID:     s.hand.Seats[w.SeatIndex].ID,
			Amount:     w.Amount,
			HandLabel:  w.HandLabel,
		})
	}
	s.bcast.ToTable(s.ID, EventHandComplete, map[string]any{
		"handId":  s.hand.HandID,
		"winners": winners,
	})

	s.recordHistoryLocked()

	if s.nextHandTimer != nil {
		s.nextHandTimer.Stop()
	}
	s.nextHandTimer = s.clock.AfterFunc(nextHandDelay, s.onNextHand)
}

// recordHistoryLocked pushes the completed hand to the directory.
// Best-effort: a failure is logged, never surfaced to players.
func (s *Session) recordHistoryLocked() {
	data, err := s.hand.ToBytes()
	if err != nil {
		s.log.Error("hand history encode failed", "hand", s.hand.HandID, "err", err)
		return
	}
	rec := directory.HandHistory{
		CommunityID: s.community,
		TableID:     s.ID,
		TableName:   s.Name,
		HandData:    data,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.dir.RecordHandHistory(ctx, rec); err != nil {
			s.log.Warn("hand history record failed", "err", err)
		}
	}()
}

func (s *Session) onNextHand() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandTimer = nil
	s.maybeStartHandLocked(context.Background())
}

// maybeStartHandLocked deals a new hand when at least two connected
// players have chips and nothing is already running
func (s *Session) maybeStartHandLocked(ctx context.Context) {
	if s.hand.Stage != game.Waiting && s.hand.Stage != game.Complete {
		return
	}
	if s.nextHandTimer != nil {
		return
	}
	if s.readyCountLocked() < 2 {
		return
	}

	if err := s.hand.StartHand(s.clock.Now()); err != nil {
		s.log.Warn("hand start refused", "err", err)
		return
	}

	metricHandsStarted.Inc()
	s.log.Info("hand started", "hand", s.hand.HandID, "players", len(s.hand.Seats))
	s.afterMutationLocked(ctx)
}

func (s *Session) readyCountLocked() int {
	ready := 0
	for _, seat := range s.hand.Seats {
		if seat.Stack > 0 && !seat.SittingOut && s.connected[seat.ID] {
			ready++
		}
	}
	return ready
}

// rescheduleActionTimerLocked arms the auto-resolve timer for the
// current action deadline. The captured deadline lets a stale timer
// recognize itself and stand down.
func (s *Session) rescheduleActionTimerLocked() {
	if s.actionTimer != nil {
		s.actionTimer.Stop()
		s.actionTimer = nil
	}
	if s.hand.CurrentSeat < 0 || s.hand.Deadline.IsZero() {
		return
	}

	deadline := s.hand.Deadline
	wait := deadline.Sub(s.clock.Now())
	if wait < 0 {
		wait = 0
	}
	s.actionTimer = s.clock.AfterFunc(wait, func() {
		s.onActionDeadline(deadline)
	})
}

func (s *Session) onActionDeadline(deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hand.Deadline.Equal(deadline) || s.hand.CurrentSeat < 0 {
		return
	}

	seatIdx := s.hand.CurrentSeat
	userID := s.hand.Seats[seatIdx].ID
	kind, err := s.hand.ResolveTimeout(s.clock.Now())
	if err != nil {
		s.log.Error("timeout resolution failed", "seat", seatIdx, "err", err)
		return
	}

	metricTimeouts.Inc()
	s.log.Info("action deadline resolved", "user", userID, "action", kind)
	s.bcast.ToTable(s.ID, EventActionTimeout, map[string]any{
		"userId": userID,
		"action": kind.String(),
	})
	s.afterMutationLocked(context.Background())
}

// persistLocked writes the serialized hand to the cache. State is
// saved before any broadcast so a crash never acknowledges a state
// clients saw but the cache did not.
func (s *Session) persistLocked(ctx context.Context) {
	data, err := s.hand.ToBytes()
	if err != nil {
		s.log.Error("hand state encode failed", "err", err)
		return
	}
	if err := s.store.Save(ctx, cache.HandKey(s.ID), data); err != nil {
		s.log.Error("hand state save failed", "err", err)
	}
}

func (s *Session) broadcastStateLocked() {
	for userID, live := range s.connected {
		if live {
			s.bcast.ToUser(userID, EventTableState, s.snapshotLocked(userID))
		}
	}
}

// Snapshot returns the personalized state view for a viewer
func (s *Session) Snapshot(viewerID string) StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(viewerID)
}

func (s *Session) snapshotLocked(viewerID string) StateView {
	h := s.hand
	view := StateView{
		TableID:        s.ID,
		TableName:      s.Name,
		HandID:         h.HandID,
		Stage:          h.Stage.String(),
		Community:      cardStrings(h.Community),
		Pot:            h.Pot,
		CurrentBet:     h.CurrentBet,
		CurrentSeat:    h.CurrentSeat,
		DealerIndex:    h.DealerIdx,
		SmallBlindIdx:  h.SmallBlindIdx,
		BigBlindIdx:    h.BigBlindIdx,
		ChatMessageCnt: len(s.chat.History()),
	}
	if !h.Deadline.IsZero() {
		view.DeadlineMs = h.Deadline.UnixMilli()
	}

	for i, seat := range h.Seats {
		sv := SeatView{
			UserID:     seat.ID,
			Username:   seat.Name,
			SeatNumber: seat.SeatNumber,
			Stack:      seat.Stack,
			RoundBet:   seat.RoundBet,
			Folded:     seat.Folded,
			AllIn:      seat.AllIn,
			InHand:     seat.InHand,
			SittingOut: seat.SittingOut,
			Connected:  s.connected[seat.ID],
			CardCount:  len(seat.HoleCards),
		}
		// Own cards always; everyone's at a completed showdown
		if seat.ID == viewerID || (h.Stage == game.Complete && seat.InHand && len(h.Results) > 0 && h.Results[0].HandLabel != "") {
			sv.HoleCards = cardStrings(seat.HoleCards)
		}
		view.Seats = append(view.Seats, sv)

		if seat.ID == viewerID && i == h.CurrentSeat {
			view.ValidActions = actionViews(h.ValidActions(i))
		}
	}

	for _, w := range h.Results {
		if w.SeatIndex < 0 {
			continue
		}
		view.Winners = append(view.Winners, WinnerView{
			SeatNumber: h.Seats[w.SeatIndex].SeatNumber,
			UserID:     h.Seats[w.SeatIndex].ID,
			Amount:     w.Amount,
			HandLabel:  w.HandLabel,
		})
	}
	return view
}

// AdminState is the unredacted table state for the operator API
type AdminState struct {
	TableID   string          `json:"tableId"`
	TableName string          `json:"tableName"`
	Connected []string        `json:"connected"`
	Hand      json.RawMessage `json:"hand"`
}

// AdminSnapshot returns the full serialized hand, hole cards included
func (s *Session) AdminSnapshot() (AdminState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.hand.ToBytes()
	if err != nil {
		return AdminState{}, err
	}
	state := AdminState{TableID: s.ID, TableName: s.Name, Hand: data}
	for userID, live := range s.connected {
		if live {
			state.Connected = append(state.Connected, userID)
		}
	}
	return state, nil
}

// Occupancy reports the number of occupied seats and the seat cap
func (s *Session) Occupancy() (players, maxSeats int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hand.Seats), s.maxSeats
}

// HasSeat reports whether the user holds a seat at this table
func (s *Session) HasSeat(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, _ := s.hand.SeatByID(userID)
	return seat != nil
}
