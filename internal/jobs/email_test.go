package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/email"
	"github.com/dukerupert/skein/internal/repository"
	"github.com/dukerupert/skein/internal/repository/repotest"
)

type capturingSender struct {
	mu   sync.Mutex
	sent []*email.Email
	err  error
}

func (s *capturingSender) Send(ctx context.Context, msg *email.Email) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return "msg", nil
}

func sampleOrder() domain.Order {
	return domain.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-20260309-7Q2K",
		Status:        domain.OrderStatusPending,
		TotalCents:    6500,
		CustomerName:  "Ada Weaver",
		CustomerEmail: "ada@example.com",
		Shipping: domain.Address{
			Line1:      "12 Loom Street",
			City:       "Portland",
			PostalCode: "97201",
			Country:    "US",
		},
		Lines: []domain.OrderLine{
			{ID: uuid.New(), Title: "Crew Tee", Size: domain.SizeM, UnitPriceCents: 2500, Quantity: 2, SubtotalCents: 5000, StockReserved: true},
			{ID: uuid.New(), Title: "Tote", UnitPriceCents: 1500, Quantity: 1, SubtotalCents: 1500, StockReserved: true},
		},
		CreatedAt: time.Date(2026, 3, 9, 15, 4, 0, 0, time.UTC),
	}
}

func TestEmailNotifier_OrderPlaced(t *testing.T) {
	store := repotest.NewMemory()
	n := NewEmailNotifier(store, EnqueueOptions{})

	order := sampleOrder()
	require.NoError(t, n.OrderPlaced(context.Background(), order))

	jobs := store.Jobs()
	require.Len(t, jobs, 1)
	job := jobs[0]
	assert.Equal(t, JobTypeOrderConfirmation, job.JobType)
	assert.Equal(t, EmailQueue, job.Queue)
	assert.Equal(t, "pending", job.Status)
	assert.Equal(t, int32(100), job.Priority)
	assert.Equal(t, int32(3), job.MaxRetries)
	assert.Equal(t, int32(30), job.TimeoutSeconds)

	var payload OrderConfirmationPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, order.ID, payload.OrderID)
	assert.Equal(t, "ada@example.com", payload.Email)
	assert.Equal(t, int32(6500), payload.TotalCents)
	assert.Equal(t, "Portland", payload.Shipping.City)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, EmailItem{Title: "Crew Tee", Size: "M", Quantity: 2, PriceCents: 2500, TotalCents: 5000}, payload.Items[0])
	assert.Empty(t, payload.Items[1].Size)
}

func TestEmailNotifier_OrderStatusChanged(t *testing.T) {
	tests := []struct {
		name         string
		status       domain.OrderStatus
		from         domain.OrderStatus
		wantPriority int32
	}{
		{name: "shipped", status: domain.OrderStatusShipped, from: domain.OrderStatusProcessing, wantPriority: 75},
		{name: "cancelled", status: domain.OrderStatusCancelled, from: domain.OrderStatusPending, wantPriority: 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repotest.NewMemory()
			n := NewEmailNotifier(store, EnqueueOptions{MaxRetries: 5, TimeoutSeconds: 10})

			order := sampleOrder()
			order.Status = tt.status
			require.NoError(t, n.OrderStatusChanged(context.Background(), order, tt.from))

			jobs := store.Jobs()
			require.Len(t, jobs, 1)
			assert.Equal(t, JobTypeOrderStatus, jobs[0].JobType)
			assert.Equal(t, tt.wantPriority, jobs[0].Priority)
			assert.Equal(t, int32(5), jobs[0].MaxRetries)
			assert.Equal(t, int32(10), jobs[0].TimeoutSeconds)

			var payload OrderStatusPayload
			require.NoError(t, json.Unmarshal(jobs[0].Payload, &payload))
			assert.Equal(t, string(tt.status), payload.Status)
			assert.Equal(t, string(tt.from), payload.PreviousStatus)
		})
	}
}

func TestEmailNotifier_EnqueueFailure(t *testing.T) {
	store := repotest.NewMemory()
	down := errors.New("outbox unavailable")
	store.FailOn = func(method string) error {
		if method == "EnqueueJob" {
			return down
		}
		return nil
	}

	err := NewEmailNotifier(store, EnqueueOptions{}).OrderPlaced(context.Background(), sampleOrder())
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), JobTypeOrderConfirmation)
	assert.Empty(t, store.Jobs())
}

func TestProcessEmailJob(t *testing.T) {
	store := repotest.NewMemory()
	n := NewEmailNotifier(store, EnqueueOptions{})
	order := sampleOrder()
	require.NoError(t, n.OrderPlaced(context.Background(), order))
	order.Status = domain.OrderStatusShipped
	require.NoError(t, n.OrderStatusChanged(context.Background(), order, domain.OrderStatusProcessing))

	sender := &capturingSender{}
	svc, err := email.NewService(sender, "orders@skein.test", "Skein")
	require.NoError(t, err)

	for _, job := range store.Jobs() {
		assert.True(t, IsEmailJob(job.JobType))
		require.NoError(t, ProcessEmailJob(context.Background(), &job, svc))
	}

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "Order Confirmation - ORD-20260309-7Q2K", sender.sent[0].Subject)
	assert.Equal(t, []string{"ada@example.com"}, sender.sent[0].To)
	assert.Contains(t, sender.sent[0].TextBody, "Crew Tee")
	assert.Contains(t, sender.sent[0].TextBody, "$65.00")
	assert.Equal(t, "Your Order Has Shipped - ORD-20260309-7Q2K", sender.sent[1].Subject)
}

func TestProcessEmailJob_Errors(t *testing.T) {
	cause := errors.New("smtp down")
	svc, err := email.NewService(&capturingSender{err: cause}, "orders@skein.test", "Skein")
	require.NoError(t, err)

	tests := []struct {
		name    string
		job     repository.Job
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown type",
			job:     repository.Job{JobType: "email:newsletter", Payload: []byte("{}")},
			wantMsg: "unknown email job type",
		},
		{
			name:    "corrupt payload",
			job:     repository.Job{JobType: JobTypeOrderStatus, Payload: []byte("{not json")},
			wantMsg: "failed to unmarshal order status payload",
		},
		{
			name:    "sender failure",
			job:     repository.Job{JobType: JobTypeOrderStatus, Payload: []byte(`{"order_number":"ORD-1","email":"ada@example.com","status":"shipped"}`)},
			wantErr: cause,
		},
		{
			name:    "missing recipient",
			job:     repository.Job{JobType: JobTypeOrderConfirmation, Payload: []byte(`{"order_number":"ORD-1"}`)},
			wantErr: email.ErrInvalidToAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ProcessEmailJob(context.Background(), &tt.job, svc)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
	assert.False(t, IsEmailJob("email:newsletter"))
}
