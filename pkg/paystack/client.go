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
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralmart/ruralmart-backend/pkg/config"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
	"github.com/ruralmart/ruralmart-backend/pkg/money"
)

const (
	defaultBaseURL              = "https://api.paystack.co"
	defaultTimeout              = 15 * time.Second
	responseBodyReadLimit int64 = 4096
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// ChargeOutcome is the gateway-reported state of a charge.
type ChargeOutcome string

const (
	OutcomeSuccess   ChargeOutcome = "success"
	OutcomeFailed    ChargeOutcome = "failed"
	OutcomeAbandoned ChargeOutcome = "abandoned"
	OutcomePending   ChargeOutcome = "pending"
)

// Client wraps the Paystack transaction APIs used for checkout payments.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
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

// WithBaseURL overrides the configured Paystack base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Paystack client from configuration.
func NewClient(cfg config.PaystackConfig, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(cfg.SecretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		secretKey:   trimmedKey,
		baseURL:     defaultBaseURL,
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		httpClient:  &http.Client{Timeout: timeout},
	}
	if trimmed := strings.TrimSpace(cfg.BaseURL); trimmed != "" {
		client.baseURL = trimmed
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// InitializeRequest describes a charge to be initialized with the gateway.
type InitializeRequest struct {
	Email    string
	Amount   decimal.Decimal
	OrderRef string
}

// InitializeResult holds the gateway handles for a newly initialized charge.
type InitializeResult struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// VerifyResult is the normalized outcome of a transaction verification call.
type VerifyResult struct {
	Reference  string
	Outcome    ChargeOutcome
	Amount     decimal.Decimal
	Channel    string
	PaidAt     string
	RawPayload json.RawMessage
}

// Initialize registers a charge with Paystack and returns the checkout handles.
// Amounts are converted to the gateway's minor units.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	payload := map[string]any{
		"email":  req.Email,
		"amount": money.Subunits(req.Amount),
	}
	if req.OrderRef != "" {
		payload["metadata"] = map[string]any{"order_id": req.OrderRef}
	}
	if c.callbackURL != "" {
		payload["callback_url"] = c.callbackURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal initialize request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("transaction/initialize"), bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build initialize request")
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err, "execute initialize request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, rejectionError(resp, "initialize request failed")
	}

	var apiResp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode initialize response")
	}
	if !apiResp.Status {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayRejected, fmt.Sprintf("gateway declined initialization: %s", apiResp.Message))
	}
	if apiResp.Data.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned an empty reference")
	}

	return &InitializeResult{
		Reference:        apiResp.Data.Reference,
		AuthorizationURL: apiResp.Data.AuthorizationURL,
		AccessCode:       apiResp.Data.AccessCode,
	}, nil
}

// Verify fetches the current state of a charge by its gateway reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build verify request")
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err, "execute verify request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit*4))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read verify response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction reference not found at gateway")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayRejected, fmt.Sprintf("verify request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var apiResp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Amount    int64  `json:"amount"`
			Channel   string `json:"channel"`
			PaidAt    string `json:"paid_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode verify response")
	}
	if !apiResp.Status {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayRejected, fmt.Sprintf("gateway declined verification: %s", apiResp.Message))
	}

	return &VerifyResult{
		Reference:  apiResp.Data.Reference,
		Outcome:    parseOutcome(apiResp.Data.Status),
		Amount:     money.FromSubunits(apiResp.Data.Amount),
		Channel:    apiResp.Data.Channel,
		PaidAt:     apiResp.Data.PaidAt,
		RawPayload: json.RawMessage(raw),
	}, nil
}

// VerifySignature checks a webhook body against the x-paystack-signature header.
// Paystack signs the raw body with HMAC-SHA512 keyed by the secret key.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c == nil || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func parseOutcome(status string) ChargeOutcome {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success":
		return OutcomeSuccess
	case "failed":
		return OutcomeFailed
	case "abandoned":
		return OutcomeAbandoned
	default:
		return OutcomePending
	}
}

func transportError(err error, msg string) error {
	if isTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayTimeout, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}
	return false
}

func rejectionError(resp *http.Response, msg string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	return pkgerrors.Wrap(pkgerrors.CodeGatewayRejected, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), msg)
}
