package table

import (
	"github.com/cardroomlabs/holdemd/internal/deck"
	"github.com/cardroomlabs/holdemd/internal/game"
)

// SeatView is one seat as a client sees it. Hole cards appear only in
// the owning player's view, or for contesting seats once the hand is
// complete; everyone else sees the card count.
type SeatView struct {
	UserID     string   `json:"userId"`
	Username   string   `json:"username"`
	SeatNumber int      `json:"seatNumber"`
	Stack      int      `json:"stack"`
	RoundBet   int      `json:"roundBet"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"allIn"`
	InHand     bool     `json:"inHand"`
	SittingOut bool     `json:"sittingOut"`
	Connected  bool     `json:"connected"`
	CardCount  int      `json:"cardCount"`
	HoleCards  []string `json:"holeCards,omitempty"`
}

// ActionView is one admissible action hint for the seat to act
type ActionView struct {
	Action    string `json:"action"`
	MinAmount int    `json:"minAmount,omitempty"`
}

// WinnerView is one pot award in a completed hand
type WinnerView struct {
	SeatNumber int    `json:"seatNumber"`
	UserID     string `json:"userId"`
	Amount     int    `json:"amount"`
	HandLabel  string `json:"handLabel,omitempty"`
}

// StateView is the personalized table snapshot sent to clients
type StateView struct {
	TableID        string       `json:"tableId"`
	TableName      string       `json:"tableName"`
	HandID         string       `json:"handId,omitempty"`
	Stage          string       `json:"stage"`
	Community      []string     `json:"community"`
	Pot            int          `json:"pot"`
	CurrentBet     int          `json:"currentBet"`
	CurrentSeat    int          `json:"currentSeat"`
	DealerIndex    int          `json:"dealerIndex"`
	SmallBlindIdx  int          `json:"smallBlindIndex"`
	BigBlindIdx    int          `json:"bigBlindIndex"`
	DeadlineMs     int64        `json:"deadlineMs,omitempty"`
	Seats          []SeatView   `json:"seats"`
	Winners        []WinnerView `json:"winners,omitempty"`
	ValidActions   []ActionView `json:"validActions,omitempty"`
	ChatMessageCnt int          `json:"chatMessageCount"`
}

func cardStrings(cards []deck.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Code())
	}
	return out
}

func actionViews(actions []game.ValidAction) []ActionView {
	out := make([]ActionView, 0, len(actions))
	for _, a := range actions {
		out = append(out, ActionView{Action: a.Kind.String(), MinAmount: a.MinAmount})
	}
	return out
}
