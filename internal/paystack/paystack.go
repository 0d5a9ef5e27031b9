package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

// ErrUnavailable covers timeouts and non-success HTTP responses from
// Paystack. Callers treat it as retriable and must not persist anything.
var ErrUnavailable = errors.New("paystack unavailable")

// Client talks to the Paystack transaction API.
type Client struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Transaction is the canonical state Paystack reports for a reference.
type Transaction struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize starts a transaction and returns the checkout redirect info.
func (c *Client) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResult, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("%w: secret key not configured", ErrUnavailable)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	result := &InitializeResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to decode initialize response: %w", err)
	}
	return result, nil
}

// Verify fetches the authoritative status for a reference. Paystack reports
// more states than we track; everything that is not success or a known
// in-flight state counts as failed.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("%w: secret key not configured", ErrUnavailable)
	}

	data, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return &Transaction{
		ID:        raw.ID,
		Status:    NormalizeStatus(raw.Status),
		Reference: raw.Reference,
		Amount:    raw.Amount,
		Currency:  raw.Currency,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, respBody)
	}

	envelope := &apiEnvelope{}
	if err := json.Unmarshal(respBody, envelope); err != nil {
		return nil, fmt.Errorf("failed to decode paystack envelope: %w", err)
	}
	if !envelope.Status {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, envelope.Message)
	}

	return envelope.Data, nil
}

// NormalizeStatus maps Paystack transaction states onto the three we store.
func NormalizeStatus(s string) string {
	switch s {
	case "success":
		return "success"
	case "pending", "ongoing", "processing", "queued":
		return "pending"
	default:
		// failed, abandoned, reversed
		return "failed"
	}
}

// VerifySignature checks the x-paystack-signature header against the raw,
// unparsed webhook body. Any reserialization changes the digest, so callers
// must pass the bytes exactly as received. An unset secret fails closed.
func VerifySignature(secret string, rawBody []byte, providedSignatureHex string) bool {
	if secret == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	computed := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(providedSignatureHex))
}
