package api

import "time"

// CheckoutSession is the backend's response to a provider checkout
// request: a hosted payment page plus the order to poll for.
type CheckoutSession struct {
	CheckoutURL string `json:"checkoutUrl"`
	OrderID     string `json:"orderId"`
}

// VerifyResult is one payment verification response.
type VerifyResult struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"` // "failed" marks an explicit provider failure
}

// GeoPricing is the region pricing response. Multiplier scales the
// base USD price of every plan for the caller's region.
type GeoPricing struct {
	Country    string  `json:"country"`
	Multiplier float64 `json:"multiplier"`
}

// Subscription is the entitlement record for a device.
type Subscription struct {
	Active    bool      `json:"active"`
	Plan      string    `json:"plan"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ErrorResponse is the error envelope used by every backend endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// checkoutRequest is the body for provider checkout-session creation.
type checkoutRequest struct {
	Plan     string `json:"plan"`
	DeviceID string `json:"deviceId"`
}

// verifyRequest is the body for payment verification.
type verifyRequest struct {
	OrderID  string `json:"orderId"`
	DeviceID string `json:"deviceId"`
}

// mpesaSubmitRequest is the body for manual M-Pesa submission.
type mpesaSubmitRequest struct {
	Plan      string `json:"plan"`
	DeviceID  string `json:"deviceId"`
	MpesaTxID string `json:"mpesaTxId"`
}

// paypalSubmitRequest is the body for manual PayPal submission.
type paypalSubmitRequest struct {
	Plan       string `json:"plan"`
	DeviceID   string `json:"deviceId"`
	PaypalTxID string `json:"paypalTxId"`
}
