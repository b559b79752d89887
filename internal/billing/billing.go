package billing

import (
	"context"
	"time"
)

// Provider is the payment processor used around checkout.
// The checkout workflow itself only stores the payment id; callers confirm the
// payment before placing an order and refund it when an order is cancelled.
type Provider interface {
	// CreatePaymentIntent creates a payment intent for the cart total.
	// Returns the client secret the storefront confirms with.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntent retrieves an existing payment intent.
	// Checkout uses it to verify the payment succeeded before reserving stock.
	GetPaymentIntent(ctx context.Context, params GetPaymentIntentParams) (*PaymentIntent, error)

	// RefundPayment refunds a completed payment, in full when AmountCents is 0.
	RefundPayment(ctx context.Context, params RefundParams) (*Refund, error)
}

// CreatePaymentIntentParams contains parameters for creating a payment intent.
type CreatePaymentIntentParams struct {
	// AmountCents is the amount in smallest currency unit (cents for USD)
	AmountCents int32

	// Currency code (ISO 4217) - e.g., "usd", "eur"
	Currency string

	// CustomerEmail receives the Stripe receipt
	CustomerEmail string

	Description string
	Metadata    map[string]string

	// IdempotencyKey prevents duplicate payment intents for one cart
	IdempotencyKey string
}

// PaymentIntent is the provider-neutral view of a payment intent.
type PaymentIntent struct {
	// ID is the Stripe payment intent ID (pi_...)
	ID string

	// ClientSecret is used by Stripe.js on frontend to confirm payment
	ClientSecret string

	AmountCents int32
	Currency    string

	// Status: requires_payment_method, requires_confirmation, succeeded, etc.
	Status string

	Metadata  map[string]string
	CreatedAt time.Time

	// LastPaymentError contains details if payment failed
	LastPaymentError *PaymentError

	ReceiptEmail string
}

// Succeeded reports whether the payment has been captured.
func (pi *PaymentIntent) Succeeded() bool {
	return pi != nil && pi.Status == "succeeded"
}

// PaymentError contains details about a failed payment attempt.
type PaymentError struct {
	Code        string // Stripe error code
	Message     string // Human-readable message
	DeclineCode string // Reason card was declined (if applicable)
}

// GetPaymentIntentParams contains parameters for retrieving a payment intent.
type GetPaymentIntentParams struct {
	PaymentIntentID string
}

// RefundParams contains parameters for creating a refund.
type RefundParams struct {
	PaymentIntentID string
	AmountCents     int32  // If 0, refunds full amount
	Reason          string // "duplicate", "fraudulent", "requested_by_customer"
	Metadata        map[string]string
}

// Refund represents a payment refund.
type Refund struct {
	ID        string
	PaymentID string
	Amount    int64
	Status    string // succeeded, pending, failed
	CreatedAt time.Time
}
