// Package directory talks to the platform directory service, which
// owns accounts, wallets, table records and hand history. The game
// server treats it as the source of truth for money and seating
// outside a running hand.
package directory

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized reports a token that failed verification
	ErrUnauthorized = errors.New("token verification failed")

	// ErrInsufficientFunds reports a debit larger than the wallet balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnavailable reports that the directory could not be reached
	ErrUnavailable = errors.New("directory unavailable")
)

// Identity is the verified owner of a session token
type Identity struct {
	UserID   string
	Username string
}

// TableConfig is the directory's record of a table's parameters
type TableConfig struct {
	ID                   string
	Name                 string
	CommunityID          string
	MaxSeats             int
	SmallBlind           int
	BigBlind             int
	BuyIn                int
	Permanent            bool
	ActionTimeoutSeconds int
}

// HandHistory is the completed-hand record pushed to the directory
type HandHistory struct {
	CommunityID string
	TableID     string
	TableName   string
	HandData    []byte
}

// Client is the directory surface the game server depends on
type Client interface {
	// VerifyToken validates a session token and returns its identity
	VerifyToken(ctx context.Context, token string) (Identity, error)

	// DebitWallet withdraws a buy-in and returns the new balance
	DebitWallet(ctx context.Context, userID string, amount int) (int, error)

	// CreditWallet deposits a payout. Implementations retry transient
	// failures; chips must not be lost on a single network blip.
	CreditWallet(ctx context.Context, userID string, amount int) error

	// UnseatPlayer releases the player's seat record
	UnseatPlayer(ctx context.Context, tableID, userID string) error

	// CheckCleanup asks the directory to delete the table if it is
	// non-permanent and empty; reports whether it was deleted
	CheckCleanup(ctx context.Context, tableID string) (bool, error)

	// GetTableConfig fetches the table's parameters
	GetTableConfig(ctx context.Context, tableID string) (TableConfig, error)

	// RecordHandHistory stores a completed hand. Best-effort: callers
	// log failures rather than fail the game
	RecordHandHistory(ctx context.Context, rec HandHistory) error
}
