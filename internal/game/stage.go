package game

import "fmt"

// Stage represents where a hand is in its lifecycle
type Stage int

const (
	Waiting Stage = iota
	Preflop
	Flop
	Turn
	River
	Showdown
	Complete
)

// String returns the wire name of the stage
func (s Stage) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// ParseStage parses a wire stage name. Unknown names are a hard error
// so corrupted persisted state is rejected rather than guessed at.
func ParseStage(s string) (Stage, error) {
	switch s {
	case "waiting":
		return Waiting, nil
	case "preflop":
		return Preflop, nil
	case "flop":
		return Flop, nil
	case "turn":
		return Turn, nil
	case "river":
		return River, nil
	case "showdown":
		return Showdown, nil
	case "complete":
		return Complete, nil
	default:
		return 0, fmt.Errorf("unknown stage %q", s)
	}
}

// isBetting reports whether the stage is a betting street
func (s Stage) isBetting() bool {
	return s >= Preflop && s <= River
}

// ActionKind is a player action admitted by the hand state machine
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	BetAction
	Raise
	AllInAction
)

// String returns the wire name of the action
func (a ActionKind) String() string {
	switch a {
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case BetAction:
		return "bet"
	case Raise:
		return "raise"
	case AllInAction:
		return "all-in"
	default:
		return "unknown"
	}
}

// ParseAction parses a wire action name
func ParseAction(s string) (ActionKind, error) {
	switch s {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet":
		return BetAction, nil
	case "raise":
		return Raise, nil
	case "all-in", "allin":
		return AllInAction, nil
	default:
		return 0, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, s)
	}
}
