package billing

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

// ErrInvalidSignature is returned when a webhook payload does not carry a
// valid signature for the configured secret.
var ErrInvalidSignature = errors.New("billing: invalid webhook signature")

// ErrMalformedEvent is returned when a correctly signed payload cannot be
// decoded into the event shape its type promises.
var ErrMalformedEvent = errors.New("billing: malformed webhook event")

// Webhook event types acted on by the service.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
)

// Event is the provider-neutral view of a verified webhook event.
type Event struct {
	ID   string
	Type string

	// PaymentIntentID is the payment the event concerns, when it has one.
	PaymentIntentID string

	AmountCents int64

	// Refunded is set on charge.refunded when the charge is refunded in full.
	Refunded bool

	// FailureCode is the last payment error code on payment_failed events.
	FailureCode string
}

// ParseStripeEvent verifies the Stripe-Signature header against secret and
// decodes the fields the service cares about. The API version is not checked
// since only stable fields are read.
func ParseStripeEvent(payload []byte, signature, secret string) (*Event, error) {
	if err := webhook.ValidatePayloadWithTolerance(payload, signature, secret, webhook.DefaultTolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var raw stripe.Event
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	event := &Event{ID: raw.ID, Type: string(raw.Type)}
	if raw.Data == nil {
		return event, nil
	}

	switch event.Type {
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: payment intent: %v", ErrMalformedEvent, err)
		}
		event.PaymentIntentID = pi.ID
		event.AmountCents = pi.Amount
		if pi.LastPaymentError != nil {
			event.FailureCode = string(pi.LastPaymentError.Code)
		}

	case EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(raw.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: charge: %v", ErrMalformedEvent, err)
		}
		if ch.PaymentIntent != nil {
			event.PaymentIntentID = ch.PaymentIntent.ID
		}
		event.AmountCents = ch.AmountRefunded
		event.Refunded = ch.Refunded
	}
	return event, nil
}
