package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeabdala/fanbroj-cli/internal/config"
	"github.com/codeabdala/fanbroj-cli/internal/httpclient"
)

// Client handles communication with the Fanbroj backend.
type Client struct {
	baseURL string
	// http is the general-purpose client with retries.
	http *httpclient.Client
	// verifyHTTP has retries disabled and a short timeout so a
	// verification tick never overlaps the next one.
	verifyHTTP *httpclient.Client
	debug      bool
	logger     *slog.Logger
}

// NewClient creates a new backend API client
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	http := httpclient.NewClient(httpclient.ClientConfig{
		Timeout:    cfg.API.Timeout,
		MaxRetries: 3,
		UserAgent:  "fanbroj/1.0",
		Debug:      cfg.Advanced.Debug,
		Logger:     logger,
	})

	verifyHTTP := httpclient.NewClient(httpclient.ClientConfig{
		Timeout:   2500 * time.Millisecond,
		NoRetry:   true,
		UserAgent: "fanbroj/1.0",
		Debug:     cfg.Advanced.Debug,
		Logger:    logger,
	})

	return &Client{
		baseURL:    cfg.API.BaseURL,
		http:       http,
		verifyHTTP: verifyHTTP,
		debug:      cfg.Advanced.Debug,
		logger:     logger,
	}
}

// CreateSifaloCheckout requests a Sifalo (EVC Plus / Zaad) hosted
// checkout session for plan, keyed to deviceID.
func (c *Client) CreateSifaloCheckout(ctx context.Context, plan, deviceID string) (*CheckoutSession, error) {
	return c.createCheckout(ctx, "/api/pay/checkout", plan, deviceID)
}

// CreateStripeCheckout requests a Stripe hosted checkout session for
// plan, keyed to deviceID.
func (c *Client) CreateStripeCheckout(ctx context.Context, plan, deviceID string) (*CheckoutSession, error) {
	return c.createCheckout(ctx, "/api/pay/stripe/checkout", plan, deviceID)
}

func (c *Client) createCheckout(ctx context.Context, endpoint, plan, deviceID string) (*CheckoutSession, error) {
	var session CheckoutSession
	body := checkoutRequest{Plan: plan, DeviceID: deviceID}
	if err := c.post(ctx, endpoint, body, &session); err != nil {
		return nil, err
	}
	if session.CheckoutURL == "" || session.OrderID == "" {
		return nil, fmt.Errorf("checkout session response missing checkoutUrl or orderId")
	}
	return &session, nil
}

// VerifyPayment asks the backend whether orderID has been paid.
// Uses the non-retrying client; the polling loop owns retry semantics.
func (c *Client) VerifyPayment(ctx context.Context, orderID, deviceID string) (*VerifyResult, error) {
	url := c.baseURL + "/api/pay/verify"
	body := verifyRequest{OrderID: orderID, DeviceID: deviceID}

	resp, err := c.verifyHTTP.Post(ctx, url, body)
	if err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}

	var result VerifyResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse verify response: %w", err)
	}
	return &result, nil
}

// SubmitMpesa submits a manual M-Pesa transaction code for review.
func (c *Client) SubmitMpesa(ctx context.Context, plan, deviceID, txID string) error {
	body := mpesaSubmitRequest{Plan: plan, DeviceID: deviceID, MpesaTxID: txID}
	return c.post(ctx, "/api/pay/mpesa/submit", body, nil)
}

// SubmitPaypal submits a manual PayPal transaction id for review.
func (c *Client) SubmitPaypal(ctx context.Context, plan, deviceID, txID string) error {
	body := paypalSubmitRequest{Plan: plan, DeviceID: deviceID, PaypalTxID: txID}
	return c.post(ctx, "/api/pay/paypal/submit", body, nil)
}

// GeoPricing fetches the region price multiplier for the caller.
func (c *Client) GeoPricing(ctx context.Context) (*GeoPricing, error) {
	url := c.baseURL + "/api/geo"

	resp, err := c.http.Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("geo pricing request failed: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, apiError(resp.StatusCode(), resp.Body())
	}

	var pricing GeoPricing
	if err := json.Unmarshal(resp.Body(), &pricing); err != nil {
		return nil, fmt.Errorf("failed to parse geo pricing response: %w", err)
	}
	if pricing.Multiplier <= 0 {
		return nil, fmt.Errorf("geo pricing response missing multiplier")
	}
	return &pricing, nil
}

// Subscription fetches the entitlement record for deviceID.
func (c *Client) Subscription(ctx context.Context, deviceID string) (*Subscription, error) {
	url := c.baseURL + "/api/subscriptions"
	params := map[string]string{"deviceId": deviceID}

	resp, err := c.http.Get(ctx, url, params)
	if err != nil {
		return nil, fmt.Errorf("subscription request failed: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, apiError(resp.StatusCode(), resp.Body())
	}

	var sub Subscription
	if err := json.Unmarshal(resp.Body(), &sub); err != nil {
		return nil, fmt.Errorf("failed to parse subscription response: %w", err)
	}
	return &sub, nil
}

// post performs a POST request and decodes the JSON response into
// result (when non-nil). Backend error envelopes are surfaced as
// errors carrying the server-supplied message.
func (c *Client) post(ctx context.Context, endpoint string, body, result interface{}) error {
	url := c.baseURL + endpoint

	resp, err := c.http.Post(ctx, url, body)
	if err != nil {
		return fmt.Errorf("request failed (is the backend reachable at %s?): %w", c.baseURL, err)
	}

	if resp.StatusCode() >= 400 {
		return apiError(resp.StatusCode(), resp.Body())
	}

	// Success bodies may still carry an error envelope.
	var errResp ErrorResponse
	if err := json.Unmarshal(resp.Body(), &errResp); err == nil && errResp.Error != "" {
		return &ServerError{Message: errResp.Error, StatusCode: resp.StatusCode()}
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body(), result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// ServerError is a backend-reported failure whose message is meant to
// be shown to the user verbatim.
type ServerError struct {
	Message    string
	StatusCode int
}

func (e *ServerError) Error() string {
	return e.Message
}

func apiError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &ServerError{Message: errResp.Error, StatusCode: status}
	}
	return fmt.Errorf("API error: HTTP %d", status)
}
