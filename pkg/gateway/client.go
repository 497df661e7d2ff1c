// Package gateway talks to the online payment gateway: it opens remote
// payment orders and verifies callback signatures.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.razorpay.com/v1"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

var (
	errKeyIDRequired     = errors.New("gateway key id is required")
	errKeySecretRequired = errors.New("gateway key secret is required")
)

// Client wraps the gateway REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a gateway client from the public key id and the signing
// secret.
func NewClient(keyID, keySecret string, opts ...Option) (*Client, error) {
	keyID = strings.TrimSpace(keyID)
	keySecret = strings.TrimSpace(keySecret)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	client := &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// KeyID is the public identifier the client widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrderRequest is the payload for opening a remote payment order.
// Amount is in minor units.
type CreateOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Order is the gateway's view of a payment order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder opens a payment order on the gateway.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "gateway client not configured")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order amount must be positive")
	}
	if strings.TrimSpace(req.Receipt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order receipt is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "marshal gateway order request")
	}

	url := strings.TrimRight(c.baseURL, "/") + "/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "build gateway order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "execute gateway order request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gateway order request failed")
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "decode gateway order response")
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "gateway order response missing id")
	}
	return &order, nil
}
