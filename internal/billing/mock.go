package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing and local development.
// Simulates payment flows without calling the Stripe API.
type MockProvider struct {
	// GetPaymentIntentFunc allows customizing payment intent retrieval behavior
	GetPaymentIntentFunc func(ctx context.Context, params GetPaymentIntentParams) (*PaymentIntent, error)

	// RefundPaymentFunc allows customizing refund behavior
	RefundPaymentFunc func(ctx context.Context, params RefundParams) (*Refund, error)

	// PaymentIntents stores created payment intents for retrieval
	PaymentIntents map[string]*PaymentIntent

	// Refunds stores issued refunds keyed by payment intent
	Refunds map[string]*Refund

	// CallLog tracks method calls for test assertions
	CallLog []string

	mu sync.Mutex
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		PaymentIntents: make(map[string]*PaymentIntent),
		Refunds:        make(map[string]*Refund),
		CallLog:        []string{},
	}
}

func (m *MockProvider) log(call string) {
	m.CallLog = append(m.CallLog, call)
}

// CreatePaymentIntent creates a mock payment intent awaiting confirmation.
func (m *MockProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log(fmt.Sprintf("CreatePaymentIntent(%d, %s)", params.AmountCents, params.Currency))

	if params.AmountCents < minAmountCents {
		return nil, ErrAmountTooSmall
	}

	pi := &PaymentIntent{
		ID:           "pi_" + uuid.New().String(),
		ClientSecret: "pi_" + uuid.New().String() + "_secret_" + uuid.New().String(),
		AmountCents:  params.AmountCents,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
		Metadata:     params.Metadata,
		CreatedAt:    time.Now(),
		ReceiptEmail: params.CustomerEmail,
	}
	m.PaymentIntents[pi.ID] = pi
	return pi, nil
}

// GetPaymentIntent retrieves a mock payment intent.
func (m *MockProvider) GetPaymentIntent(ctx context.Context, params GetPaymentIntentParams) (*PaymentIntent, error) {
	m.mu.Lock()
	m.log(fmt.Sprintf("GetPaymentIntent(%s)", params.PaymentIntentID))
	fn := m.GetPaymentIntentFunc
	pi, exists := m.PaymentIntents[params.PaymentIntentID]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}
	if !exists {
		return nil, ErrPaymentIntentNotFound
	}
	return pi, nil
}

// RefundPayment refunds a mock payment intent in full or in part.
func (m *MockProvider) RefundPayment(ctx context.Context, params RefundParams) (*Refund, error) {
	m.mu.Lock()
	m.log(fmt.Sprintf("RefundPayment(%s)", params.PaymentIntentID))
	fn := m.RefundPaymentFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pi, exists := m.PaymentIntents[params.PaymentIntentID]
	if !exists {
		return nil, ErrPaymentIntentNotFound
	}
	if _, done := m.Refunds[pi.ID]; done {
		return nil, ErrAlreadyRefunded
	}

	amount := int64(params.AmountCents)
	if amount == 0 {
		amount = int64(pi.AmountCents)
	}
	refund := &Refund{
		ID:        "re_" + uuid.New().String()[:8],
		PaymentID: pi.ID,
		Amount:    amount,
		Status:    "succeeded",
		CreatedAt: time.Now(),
	}
	m.Refunds[pi.ID] = refund
	return refund, nil
}

// SimulateSucceededPayment updates a payment intent to succeeded status.
func (m *MockProvider) SimulateSucceededPayment(paymentIntentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pi, exists := m.PaymentIntents[paymentIntentID]
	if !exists {
		return ErrPaymentIntentNotFound
	}
	pi.Status = "succeeded"
	return nil
}

// SimulateFailedPayment updates a payment intent to failed status.
func (m *MockProvider) SimulateFailedPayment(paymentIntentID string, errorCode string, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pi, exists := m.PaymentIntents[paymentIntentID]
	if !exists {
		return ErrPaymentIntentNotFound
	}
	pi.Status = "requires_payment_method"
	pi.LastPaymentError = &PaymentError{
		Code:    errorCode,
		Message: errorMessage,
	}
	return nil
}

// Calls returns a copy of the call log.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}

var _ Provider = (*MockProvider)(nil)
