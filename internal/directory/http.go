package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

const creditRetries = 3

// HTTP is the production Client speaking the directory's internal
// REST API
type HTTP struct {
	baseURL string
	client  *http.Client
	log     *log.Logger
}

// NewHTTP creates a client for the directory at baseURL
func NewHTTP(baseURL string, logger *log.Logger) *HTTP {
	return &HTTP{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logger,
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (h *HTTP) VerifyToken(ctx context.Context, token string) (Identity, error) {
	var resp verifyResponse
	err := h.post(ctx, "/api/internal/auth/verify", verifyRequest{Token: token}, &resp)
	if err != nil {
		return Identity{}, err
	}
	if !resp.Valid {
		return Identity{}, fmt.Errorf("%w: %s", ErrUnauthorized, resp.Message)
	}
	return Identity{UserID: resp.UserID, Username: resp.Username}, nil
}

type walletOperation struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
}

type walletResponse struct {
	Success    bool   `json:"success"`
	NewBalance int    `json:"new_balance"`
	Message    string `json:"message"`
}

func (h *HTTP) DebitWallet(ctx context.Context, userID string, amount int) (int, error) {
	var resp walletResponse
	err := h.post(ctx, "/api/internal/wallets/debit", walletOperation{UserID: userID, Amount: amount}, &resp)
	if err != nil {
		return 0, err
	}
	if !resp.Success {
		return resp.NewBalance, fmt.Errorf("%w: %s", ErrInsufficientFunds, resp.Message)
	}
	return resp.NewBalance, nil
}

// CreditWallet retries transient failures so a payout is not lost to a
// single network blip
func (h *HTTP) CreditWallet(ctx context.Context, userID string, amount int) error {
	var lastErr error
	for attempt := 1; attempt <= creditRetries; attempt++ {
		var resp walletResponse
		lastErr = h.post(ctx, "/api/internal/wallets/credit", walletOperation{UserID: userID, Amount: amount}, &resp)
		if lastErr == nil {
			return nil
		}

		h.log.Warn("wallet credit failed", "user", userID, "attempt", attempt, "err", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
		}
	}
	return fmt.Errorf("credit wallet for %s: %w", userID, lastErr)
}

func (h *HTTP) UnseatPlayer(ctx context.Context, tableID, userID string) error {
	return h.post(ctx, fmt.Sprintf("/api/internal/tables/%s/unseat/%s", tableID, userID), nil, nil)
}

func (h *HTTP) CheckCleanup(ctx context.Context, tableID string) (bool, error) {
	var resp struct {
		Deleted bool   `json:"deleted"`
		Message string `json:"message"`
	}
	err := h.post(ctx, fmt.Sprintf("/api/internal/tables/%s/check-cleanup", tableID), nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

func (h *HTTP) GetTableConfig(ctx context.Context, tableID string) (TableConfig, error) {
	var resp struct {
		ID                   string `json:"id"`
		Name                 string `json:"name"`
		CommunityID          string `json:"community_id"`
		MaxSeats             int    `json:"max_seats"`
		SmallBlind           int    `json:"small_blind"`
		BigBlind             int    `json:"big_blind"`
		BuyIn                int    `json:"buy_in"`
		IsPermanent          bool   `json:"is_permanent"`
		ActionTimeoutSeconds int    `json:"action_timeout_seconds"`
	}
	if err := h.get(ctx, "/api/internal/tables/"+tableID, &resp); err != nil {
		return TableConfig{}, err
	}
	return TableConfig{
		ID:                   resp.ID,
		Name:                 resp.Name,
		CommunityID:          resp.CommunityID,
		MaxSeats:             resp.MaxSeats,
		SmallBlind:           resp.SmallBlind,
		BigBlind:             resp.BigBlind,
		BuyIn:                resp.BuyIn,
		Permanent:            resp.IsPermanent,
		ActionTimeoutSeconds: resp.ActionTimeoutSeconds,
	}, nil
}

func (h *HTTP) RecordHandHistory(ctx context.Context, rec HandHistory) error {
	payload := struct {
		CommunityID string          `json:"community_id,omitempty"`
		TableID     string          `json:"table_id"`
		TableName   string          `json:"table_name"`
		HandData    json.RawMessage `json:"hand_data"`
	}{rec.CommunityID, rec.TableID, rec.TableName, json.RawMessage(rec.HandData)}
	return h.post(ctx, "/_internal/history/record", payload, nil)
}

func (h *HTTP) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, out)
}

func (h *HTTP) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return h.do(req, out)
}

func (h *HTTP) do(req *http.Request, out any) error {
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: directory returned %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("directory %s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
