package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/cardroomlabs/holdemd/internal/deck"
)

// Serialized hand schema. Every field is explicit; unknown fields in
// persisted state are a hard error rather than silently dropped.

type handState struct {
	Config        configState  `json:"config"`
	HandID        string       `json:"handId"`
	Seats         []seatState  `json:"seats"`
	Community     []string     `json:"community"`
	Pot           int          `json:"pot"`
	Stage         string       `json:"stage"`
	CurrentSeat   int          `json:"currentSeat"`
	CurrentBet    int          `json:"currentBet"`
	DealerIdx     int          `json:"dealerIdx"`
	SmallBlindIdx int          `json:"smallBlindIdx"`
	BigBlindIdx   int          `json:"bigBlindIdx"`
	LastAggressor int          `json:"lastAggressor"`
	LastRaiseSize int          `json:"lastRaiseSize"`
	Acted         []int        `json:"acted"`
	BigBlindActed bool         `json:"bigBlindActed"`
	Deck          []string     `json:"deck"`
	Burned        int          `json:"burned"`
	DeadlineMs    int64        `json:"deadlineMs"`
	Results       []stateWin   `json:"results,omitempty"`
}

type configState struct {
	SmallBlind     int `json:"smallBlind"`
	BigBlind       int `json:"bigBlind"`
	InitialStack   int `json:"initialStack"`
	Ante           int `json:"ante"`
	ActionTimeoutS int `json:"actionTimeoutSeconds"`
}

type seatState struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	SeatNumber int      `json:"seatNumber"`
	Stack      int      `json:"stack"`
	RoundBet   int      `json:"roundBet"`
	HandBet    int      `json:"handBet"`
	HoleCards  []string `json:"holeCards"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"allIn"`
	InHand     bool     `json:"inHand"`
	SittingOut bool     `json:"sittingOut"`
}

type stateWin struct {
	SeatIndex int    `json:"seatIndex"`
	Amount    int    `json:"amount"`
	HandLabel string `json:"handLabel,omitempty"`
}

// ToBytes encodes the complete hand state, including hole cards and
// the remaining deck order, for the cache.
func (h *Hand) ToBytes() ([]byte, error) {
	state := handState{
		Config: configState{
			SmallBlind:     h.Config.SmallBlind,
			BigBlind:       h.Config.BigBlind,
			InitialStack:   h.Config.InitialStack,
			Ante:           h.Config.Ante,
			ActionTimeoutS: int(h.Config.ActionTimeout / time.Second),
		},
		HandID:        h.HandID,
		Community:     cardCodes(h.Community),
		Pot:           h.Pot,
		Stage:         h.Stage.String(),
		CurrentSeat:   h.CurrentSeat,
		CurrentBet:    h.CurrentBet,
		DealerIdx:     h.DealerIdx,
		SmallBlindIdx: h.SmallBlindIdx,
		BigBlindIdx:   h.BigBlindIdx,
		LastAggressor: h.LastAggressor,
		LastRaiseSize: h.LastRaiseSize,
		BigBlindActed: h.bbActed,
		Deck:          cardCodes(h.deck.Cards()),
		Burned:        h.deck.Burned(),
	}

	for i := range h.Seats {
		s := h.Seats[i]
		state.Seats = append(state.Seats, seatState{
			ID:         s.ID,
			Name:       s.Name,
			SeatNumber: s.SeatNumber,
			Stack:      s.Stack,
			RoundBet:   s.RoundBet,
			HandBet:    s.HandBet,
			HoleCards:  cardCodes(s.HoleCards),
			Folded:     s.Folded,
			AllIn:      s.AllIn,
			InHand:     s.InHand,
			SittingOut: s.SittingOut,
		})
	}

	// Emit acted indexes in seat order so encodings are deterministic
	for i := range h.Seats {
		if h.Acted[i] {
			state.Acted = append(state.Acted, i)
		}
	}

	if !h.Deadline.IsZero() {
		state.DeadlineMs = h.Deadline.UnixMilli()
	}

	for _, w := range h.Results {
		state.Results = append(state.Results, stateWin(w))
	}

	return json.Marshal(state)
}

// FromBytes reconstructs a hand with behavior identical to the one
// that was serialized
func FromBytes(data []byte) (*Hand, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var state handState
	if err := dec.Decode(&state); err != nil {
		return nil, fmt.Errorf("decode hand state: %w", err)
	}

	stage, err := ParseStage(state.Stage)
	if err != nil {
		return nil, fmt.Errorf("decode hand state: %w", err)
	}

	h := NewHand(Config{
		SmallBlind:    state.Config.SmallBlind,
		BigBlind:      state.Config.BigBlind,
		InitialStack:  state.Config.InitialStack,
		Ante:          state.Config.Ante,
		ActionTimeout: time.Duration(state.Config.ActionTimeoutS) * time.Second,
	}, rand.New(rand.NewSource(time.Now().UnixNano())))

	h.HandID = state.HandID
	h.Stage = stage
	h.Pot = state.Pot
	h.CurrentSeat = state.CurrentSeat
	h.CurrentBet = state.CurrentBet
	h.DealerIdx = state.DealerIdx
	h.SmallBlindIdx = state.SmallBlindIdx
	h.BigBlindIdx = state.BigBlindIdx
	h.LastAggressor = state.LastAggressor
	h.LastRaiseSize = state.LastRaiseSize
	h.bbActed = state.BigBlindActed

	if h.Community, err = parseCardCodes(state.Community); err != nil {
		return nil, fmt.Errorf("decode community: %w", err)
	}

	for _, ss := range state.Seats {
		seat := NewSeat(ss.ID, ss.Name, ss.SeatNumber, ss.Stack)
		seat.RoundBet = ss.RoundBet
		seat.HandBet = ss.HandBet
		seat.Folded = ss.Folded
		seat.AllIn = ss.AllIn
		seat.InHand = ss.InHand
		seat.SittingOut = ss.SittingOut
		if seat.HoleCards, err = parseCardCodes(ss.HoleCards); err != nil {
			return nil, fmt.Errorf("decode seat %d hole cards: %w", ss.SeatNumber, err)
		}
		h.Seats = append(h.Seats, seat)
	}

	for _, i := range state.Acted {
		if i < 0 || i >= len(h.Seats) {
			return nil, fmt.Errorf("decode hand state: acted index %d out of range", i)
		}
		h.Acted[i] = true
	}

	deckCards, err := parseCardCodes(state.Deck)
	if err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	h.deck.Restore(deckCards, state.Burned)

	if state.DeadlineMs != 0 {
		h.Deadline = time.UnixMilli(state.DeadlineMs)
	}

	for _, w := range state.Results {
		h.Results = append(h.Results, Winner(w))
	}

	return h, nil
}

func cardCodes(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Code()
	}
	return out
}

func parseCardCodes(codes []string) ([]deck.Card, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	out := make([]deck.Card, len(codes))
	for i, code := range codes {
		c, err := deck.ParseCard(code)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
