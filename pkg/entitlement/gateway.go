package entitlement

import (
	"context"
	"errors"
)

var (
	// ErrGatewayUnavailable is returned when the payment gateway cannot be
	// reached or answers with a server error. Callers must fail closed: no
	// entitlement mutation may proceed on this error.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrInvalidSignature is returned when a webhook signature does not match
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Invoice is a billing document issued for a team. The JSON field names are
// part of the public API contract.
type Invoice struct {
	AmountDue int64 `json:"amount_due"`
	Paid      bool  `json:"paid"`
}

// EventCheckoutCompleted is the event type emitted when a customer
// finishes checkout. Checkout sessions carry the team id in their
// metadata so the event can be resolved to an entitlement.
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutEvent is a verified webhook notification from the gateway.
// PeriodStart and PeriodEnd are unix seconds of the subscription period
// opened by the checkout.
type CheckoutEvent struct {
	Type        string `json:"type"`
	CustomerID  string `json:"customer_id"`
	TeamID      int64  `json:"team_id,omitempty"`
	PeriodStart int64  `json:"period_start,omitempty"`
	PeriodEnd   int64  `json:"period_end,omitempty"`
	InvoiceID   string `json:"invoice_id,omitempty"`
	AmountDue   int64  `json:"amount_due,omitempty"`
	Paid        bool   `json:"paid,omitempty"`
}

// PaymentGateway is the external billing provider client
type PaymentGateway interface {
	// HasPaymentMethod reports whether the customer has a chargeable
	// payment method on file.
	HasPaymentMethod(ctx context.Context, customerID string) (bool, error)

	// ListInvoices returns the customer's invoices, newest first
	ListInvoices(ctx context.Context, customerID string) ([]Invoice, error)

	// Charge bills the customer immediately
	Charge(ctx context.Context, customerID string, amountCents int64, description string) error

	// VerifyWebhook authenticates a webhook payload and decodes the event
	VerifyWebhook(payload []byte, signature string) (*CheckoutEvent, error)
}
