package directory

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// Local is a self-contained Client for test mode: tokens verify
// against a shared secret instead of a directory round trip, and
// wallets live in memory. It lets the server run without the rest of
// the platform.
type Local struct {
	secret []byte

	mu      sync.Mutex
	wallets map[string]int
	opening int
}

// NewLocal creates a test-mode client. Wallets are created on first
// use with the opening balance.
func NewLocal(secret string, openingBalance int) *Local {
	return &Local{
		secret:  []byte(secret),
		wallets: make(map[string]int),
		opening: openingBalance,
	}
}

// MintToken produces a token Local will accept for the given identity
func MintToken(secret, userID, username string) string {
	payload := userID + "." + username
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return payload + "." + hex.EncodeToString(mac.Sum(nil))
}

// VerifyToken checks the token's signature against the shared secret.
// Tokens are "userID.username.signature".
func (l *Local) VerifyToken(_ context.Context, token string) (Identity, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Identity{}, fmt.Errorf("%w: malformed token", ErrUnauthorized)
	}

	payload := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(payload))
	want := mac.Sum(nil)

	got, err := hex.DecodeString(parts[2])
	if err != nil || !hmac.Equal(want, got) {
		return Identity{}, fmt.Errorf("%w: bad signature", ErrUnauthorized)
	}
	return Identity{UserID: parts[0], Username: parts[1]}, nil
}

func (l *Local) balance(userID string) int {
	if _, ok := l.wallets[userID]; !ok {
		l.wallets[userID] = l.opening
	}
	return l.wallets[userID]
}

func (l *Local) DebitWallet(_ context.Context, userID string, amount int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balance(userID)
	if balance < amount {
		return balance, fmt.Errorf("%w: available %d, required %d", ErrInsufficientFunds, balance, amount)
	}
	l.wallets[userID] = balance - amount
	return l.wallets[userID], nil
}

func (l *Local) CreditWallet(_ context.Context, userID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets[userID] = l.balance(userID) + amount
	return nil
}

func (l *Local) UnseatPlayer(context.Context, string, string) error {
	return nil
}

func (l *Local) CheckCleanup(context.Context, string) (bool, error) {
	return false, nil
}

func (l *Local) GetTableConfig(_ context.Context, tableID string) (TableConfig, error) {
	return TableConfig{
		ID:                   tableID,
		Name:                 "local-" + tableID,
		MaxSeats:             9,
		SmallBlind:           10,
		BigBlind:             20,
		BuyIn:                1000,
		Permanent:            true,
		ActionTimeoutSeconds: 30,
	}, nil
}

func (l *Local) RecordHandHistory(context.Context, HandHistory) error {
	return nil
}
