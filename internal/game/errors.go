package game

import "errors"

// Error kinds for the hand state machine. Callers classify with
// errors.Is; the wrapped message carries the human-readable reason
// that is reported back to the acting player.
var (
	// ErrInvalidInput reports a malformed argument (negative amount)
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAction reports a turn, stage or amount precondition
	// violation. Hand state is unchanged.
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvariant reports a should-never-happen condition such as
	// dealing hole cards twice
	ErrInvariant = errors.New("invariant violation")

	// ErrTimeout reports that the action deadline has passed; the
	// table resolves it through ResolveTimeout
	ErrTimeout = errors.New("action deadline passed")
)
