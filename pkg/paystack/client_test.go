package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralmart/ruralmart-backend/pkg/config"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
)

func testConfig() config.PaystackConfig {
	return config.PaystackConfig{
		SecretKey: "sk_test_abc",
		Timeout:   5 * time.Second,
	}
}

func TestClientInitializeRequest(t *testing.T) {
	const expectedURL = "http://paystack.test/transaction/initialize"
	respBody := `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc123","access_code":"abc123","reference":"ref_001"}}`

	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload["email"] != "buyer@example.com" {
			t.Fatalf("unexpected email %q", payload["email"])
		}
		// 1500.00 major units in minor units.
		if payload["amount"] != float64(150000) {
			t.Fatalf("unexpected amount %v", payload["amount"])
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Initialize(context.Background(), InitializeRequest{
		Email:    "buyer@example.com",
		Amount:   decimal.RequireFromString("1500.00"),
		OrderRef: "order-42",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer sk_test_abc" {
		t.Fatalf("authorization header missing")
	}
	if result.Reference != "ref_001" {
		t.Fatalf("unexpected reference %q", result.Reference)
	}
	if result.AuthorizationURL != "https://checkout.paystack.com/abc123" {
		t.Fatalf("unexpected authorization url %q", result.AuthorizationURL)
	}
}

func TestClientInitializeRejected(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader(`{"status":false,"message":"Invalid amount"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Initialize(context.Background(), InitializeRequest{
		Email:  "buyer@example.com",
		Amount: decimal.RequireFromString("10.00"),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeGatewayRejected) {
		t.Fatalf("expected gateway rejection, got %v", err)
	}
}

func TestClientInitializeTimeout(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, &url.Error{Op: "Post", URL: req.URL.String(), Err: timeoutErr{}}
	})

	client, err := NewClient(testConfig(), WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Initialize(context.Background(), InitializeRequest{
		Email:  "buyer@example.com",
		Amount: decimal.RequireFromString("10.00"),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeGatewayTimeout) {
		t.Fatalf("expected gateway timeout, got %v", err)
	}
}

func TestClientVerifyRequest(t *testing.T) {
	const expectedURL = "http://paystack.test/transaction/verify/ref_001"
	respBody := `{"status":true,"message":"Verification successful","data":{"reference":"ref_001","status":"success","amount":150000,"channel":"card","paid_at":"2026-08-30T10:00:00.000Z"}}`

	var capturedURL string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Verify(context.Background(), "ref_001")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("unexpected outcome %q", result.Outcome)
	}
	if result.Amount.StringFixed(2) != "1500.00" {
		t.Fatalf("unexpected amount %s", result.Amount)
	}
	if len(result.RawPayload) == 0 {
		t.Fatalf("raw payload not captured")
	}
}

func TestClientVerifyNotFound(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader(`{"status":false,"message":"Transaction reference not found"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Verify(context.Background(), "missing")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	body := []byte(`{"event":"charge.success","data":{"reference":"ref_001"}}`)
	mac := hmac.New(sha512.New, []byte("sk_test_abc"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifySignature(body, signature) {
		t.Fatalf("valid signature rejected")
	}
	if client.VerifySignature(body, "deadbeef") {
		t.Fatalf("invalid signature accepted")
	}
	if client.VerifySignature(body, "") {
		t.Fatalf("empty signature accepted")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "request timed out" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
