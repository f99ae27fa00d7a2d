package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

// ErrNotConfigured is returned when no secret key was supplied.
var ErrNotConfigured = errors.New("payment service configuration error: missing Paystack secret key")

// CommError covers timeouts, connection failures and gateway 5xx — the
// true transaction state is unknown, so callers should treat it as retryable.
type CommError struct {
	Err error
}

func (e *CommError) Error() string {
	return "failed to communicate with payment service: " + e.Err.Error()
}

func (e *CommError) Unwrap() error { return e.Err }

// APIError is an explicit rejection from the Paystack API.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithBaseURL exists for tests pointed at a local server.
func NewClientWithBaseURL(secretKey, baseURL string) *Client {
	c := NewClient(secretKey)
	c.baseURL = baseURL
	return c
}

type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type Customer struct {
	Email string `json:"email"`
}

// VerifyData is the transaction object Paystack returns from verify and
// embeds in webhook events. Status is Paystack's own vocabulary
// (success, failed, abandoned, ...).
type VerifyData struct {
	TransactionID   int64           `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"` // kobo
	Currency        string          `json:"currency"`
	GatewayResponse string          `json:"gateway_response"`
	PaidAt          string          `json:"paid_at"`
	Channel         string          `json:"channel"`
	Customer        Customer        `json:"customer"`
	Metadata        json.RawMessage `json:"metadata"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize opens a hosted checkout session. The amount is an integer in
// kobo; Paystack rejects floats.
func (c *Client) Initialize(ctx context.Context, email string, amountKobo int64, reference, callbackURL string, metadata map[string]interface{}) (*InitializeData, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]interface{}{
		"email":        email,
		"amount":       amountKobo,
		"reference":    reference,
		"callback_url": callbackURL,
		"metadata":     metadata,
	})
	if err != nil {
		return nil, err
	}

	env, err := c.do(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}
	if !env.Status || len(env.Data) == 0 {
		msg := env.Message
		if msg == "" {
			msg = "Failed to initialize Paystack transaction."
		}
		return nil, &APIError{Message: msg}
	}

	var data InitializeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &CommError{Err: err}
	}
	return &data, nil
}

// Verify fetches the authoritative state of a transaction. A nil error
// only means Paystack answered; inspect Status to learn the outcome.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyData, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}

	env, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	if !env.Status || len(env.Data) == 0 {
		msg := env.Message
		if msg == "" {
			msg = "Failed to verify Paystack transaction."
		}
		return nil, &APIError{Message: msg}
	}

	var data VerifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &CommError{Err: err}
	}
	return &data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*apiEnvelope, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &CommError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &CommError{Err: fmt.Errorf("paystack returned %d", resp.StatusCode)}
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &CommError{Err: err}
	}
	return &env, nil
}
