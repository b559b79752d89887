package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v83"
)

const minAmountCents = 50

// StripeProvider implements Provider using the Stripe API.
type StripeProvider struct {
	client *stripe.Client
	config StripeConfig
}

// NewStripeProvider creates a Stripe billing provider.
func NewStripeProvider(config StripeConfig) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = 30
	}

	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second},
		MaxNetworkRetries: stripe.Int64(int64(config.MaxRetries)),
	})

	return &StripeProvider{
		client: stripe.NewClient(config.APIKey, stripe.WithBackends(backends)),
		config: config,
	}, nil
}

// CreatePaymentIntent creates a Stripe payment intent with automatic payment methods.
func (s *StripeProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	if params.AmountCents < minAmountCents {
		return nil, ErrAmountTooSmall
	}
	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}

	p := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(int64(params.AmountCents)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}
	if params.CustomerEmail != "" {
		p.ReceiptEmail = stripe.String(params.CustomerEmail)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}

	pi, err := s.client.V1PaymentIntents.Create(ctx, p)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return toPaymentIntent(pi), nil
}

// GetPaymentIntent retrieves a Stripe payment intent.
func (s *StripeProvider) GetPaymentIntent(ctx context.Context, params GetPaymentIntentParams) (*PaymentIntent, error) {
	if params.PaymentIntentID == "" {
		return nil, ErrPaymentIntentNotFound
	}

	pi, err := s.client.V1PaymentIntents.Retrieve(ctx, params.PaymentIntentID, nil)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return toPaymentIntent(pi), nil
}

// RefundPayment refunds a Stripe payment intent.
func (s *StripeProvider) RefundPayment(ctx context.Context, params RefundParams) (*Refund, error) {
	if params.PaymentIntentID == "" {
		return nil, ErrPaymentIntentNotFound
	}

	p := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(params.PaymentIntentID),
	}
	if params.AmountCents > 0 {
		p.Amount = stripe.Int64(int64(params.AmountCents))
	}
	if params.Reason != "" {
		p.Reason = stripe.String(params.Reason)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}

	r, err := s.client.V1Refunds.Create(ctx, p)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	refund := &Refund{
		ID:        r.ID,
		PaymentID: params.PaymentIntentID,
		Amount:    r.Amount,
		Status:    string(r.Status),
		CreatedAt: time.Unix(r.Created, 0),
	}
	return refund, nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	out := &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  int32(pi.Amount),
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
		CreatedAt:    time.Unix(pi.Created, 0),
		ReceiptEmail: pi.ReceiptEmail,
	}
	if pe := pi.LastPaymentError; pe != nil {
		out.LastPaymentError = &PaymentError{
			Code:        string(pe.Code),
			Message:     pe.Msg,
			DeclineCode: string(pe.DeclineCode),
		}
	}
	return out
}

// wrapStripeError maps SDK errors onto the package's sentinel errors where one
// applies and wraps everything else in a StripeError.
func wrapStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("stripe: %w", err)
	}

	wrapped := &StripeError{
		Message:        se.Msg,
		Code:           string(se.Code),
		DeclineCode:    string(se.DeclineCode),
		HTTPStatusCode: se.HTTPStatusCode,
		RequestID:      se.RequestID,
		OriginalError:  err,
	}

	switch {
	case se.Code == "resource_missing":
		return fmt.Errorf("%w: %w", ErrPaymentIntentNotFound, wrapped)
	case se.Code == "charge_already_refunded":
		return fmt.Errorf("%w: %w", ErrAlreadyRefunded, wrapped)
	case se.HTTPStatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrInvalidAPIKey, wrapped)
	case wrapped.IsDeclined():
		return fmt.Errorf("%w: %w", ErrPaymentFailed, wrapped)
	}
	return wrapped
}

var _ Provider = (*StripeProvider)(nil)
