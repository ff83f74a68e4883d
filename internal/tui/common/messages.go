package common

import (
	"github.com/codeabdala/fanbroj-cli/internal/checkout"
	"github.com/codeabdala/fanbroj-cli/internal/entitlement"
)

// This file contains custom tea.Msg types for communication between
// components.

// OpenCheckoutMsg opens the quick-checkout overlay.
type OpenCheckoutMsg struct {
	Plan checkout.PlanID
}

// CheckoutSessionChangedMsg signals that the checkout controller state
// changed and the overlay should re-render.
type CheckoutSessionChangedMsg struct{}

// CheckoutSuccessMsg signals that a payment was confirmed.
type CheckoutSuccessMsg struct{}

// EntitlementRefreshedMsg carries a freshly fetched entitlement status.
type EntitlementRefreshedMsg struct {
	Status entitlement.Status
	Err    error
}

// PasteResultMsg carries clipboard contents for the manual tx form.
type PasteResultMsg struct {
	Text string
	Err  error
}
