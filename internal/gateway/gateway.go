package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable marks gateway failures the caller may retry. Session
// creation has no safe fallback, so it always surfaces.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Session is a hosted payment session the user is redirected to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateSessionParams describes the charge for a hosted checkout session.
// Amount is the total charged to the card, in the given currency.
type CreateSessionParams struct {
	Amount      decimal.Decimal
	Currency    string
	Name        string
	Description string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Gateway creates hosted payment sessions with an external processor.
type Gateway interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
}

// Client talks to the processor's checkout-session API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type createSessionRequest struct {
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreateSession creates a hosted checkout session. The processor charges in
// minor units, so the amount is converted to cents here.
func (c *Client) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	body, err := json.Marshal(createSessionRequest{
		AmountMinor: params.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Currency:    params.Currency,
		Name:        params.Name,
		Description: params.Description,
		SuccessURL:  params.SuccessURL,
		CancelURL:   params.CancelURL,
		Metadata:    params.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: processor returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create session rejected with status %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("processor returned incomplete session")
	}
	return &session, nil
}
