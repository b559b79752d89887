package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/email"
	"github.com/dukerupert/skein/internal/repository"
	"github.com/dukerupert/skein/internal/service"
	"github.com/dukerupert/skein/internal/telemetry"
)

// Job types for email jobs
const (
	JobTypeOrderConfirmation = "email:order_confirmation"
	JobTypeOrderStatus       = "email:order_status"
)

// EmailQueue is the queue every email job is written to.
const EmailQueue = "email"

// EmailItem is one order line as rendered in an email.
type EmailItem struct {
	Title      string `json:"title"`
	Size       string `json:"size,omitempty"`
	Quantity   int32  `json:"quantity"`
	PriceCents int32  `json:"price_cents"`
	TotalCents int32  `json:"total_cents"`
}

// OrderConfirmationPayload contains data for order confirmation emails
type OrderConfirmationPayload struct {
	OrderID      uuid.UUID      `json:"order_id"`
	OrderNumber  string         `json:"order_number"`
	Email        string         `json:"email"`
	CustomerName string         `json:"customer_name"`
	OrderDate    time.Time      `json:"order_date"`
	Items        []EmailItem    `json:"items"`
	TotalCents   int32          `json:"total_cents"`
	Shipping     domain.Address `json:"shipping"`
}

// OrderStatusPayload contains data for order status update emails
type OrderStatusPayload struct {
	OrderID        uuid.UUID   `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	Email          string      `json:"email"`
	CustomerName   string      `json:"customer_name"`
	Status         string      `json:"status"`
	PreviousStatus string      `json:"previous_status"`
	Items          []EmailItem `json:"items"`
	TotalCents     int32       `json:"total_cents"`
}

// EnqueueOptions tune how email jobs are written to the outbox.
type EnqueueOptions struct {
	MaxRetries     int32
	TimeoutSeconds int32
}

func (o EnqueueOptions) withDefaults() EnqueueOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = 30
	}
	return o
}

// EnqueueOrderConfirmationEmail enqueues an order confirmation email job
func EnqueueOrderConfirmationEmail(ctx context.Context, q repository.JobQuerier, payload OrderConfirmationPayload, opts EnqueueOptions) error {
	return enqueue(ctx, q, JobTypeOrderConfirmation, 100, payload, opts)
}

// EnqueueOrderStatusEmail enqueues an order status email job
func EnqueueOrderStatusEmail(ctx context.Context, q repository.JobQuerier, payload OrderStatusPayload, opts EnqueueOptions) error {
	// Cancellations go ahead of other status mail.
	priority := int32(75)
	if payload.Status == string(domain.OrderStatusCancelled) {
		priority = 90
	}
	return enqueue(ctx, q, JobTypeOrderStatus, priority, payload, opts)
}

func enqueue(ctx context.Context, q repository.JobQuerier, jobType string, priority int32, payload any, opts EnqueueOptions) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	opts = opts.withDefaults()
	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:    jobType,
		Queue:      EmailQueue,
		Payload:    payloadJSON,
		Priority:   priority,
		MaxRetries: opts.MaxRetries,
		ScheduledAt: pgtype.Timestamptz{
			Time:  time.Now(),
			Valid: true,
		},
		TimeoutSeconds: opts.TimeoutSeconds,
		Metadata:       []byte("{}"),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", jobType, err)
	}

	telemetry.Business.RecordJobEnqueued(jobType)
	return nil
}

// EmailNotifier turns order notifications into email jobs.
type EmailNotifier struct {
	queries repository.JobQuerier
	opts    EnqueueOptions
}

func NewEmailNotifier(queries repository.JobQuerier, opts EnqueueOptions) *EmailNotifier {
	return &EmailNotifier{queries: queries, opts: opts}
}

func (n *EmailNotifier) OrderPlaced(ctx context.Context, order domain.Order) error {
	return EnqueueOrderConfirmationEmail(ctx, n.queries, OrderConfirmationPayload{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Email:        order.CustomerEmail,
		CustomerName: order.CustomerName,
		OrderDate:    order.CreatedAt,
		Items:        emailItems(order.Lines),
		TotalCents:   order.TotalCents,
		Shipping:     order.Shipping,
	}, n.opts)
}

func (n *EmailNotifier) OrderStatusChanged(ctx context.Context, order domain.Order, from domain.OrderStatus) error {
	return EnqueueOrderStatusEmail(ctx, n.queries, OrderStatusPayload{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Email:          order.CustomerEmail,
		CustomerName:   order.CustomerName,
		Status:         string(order.Status),
		PreviousStatus: string(from),
		Items:          emailItems(order.Lines),
		TotalCents:     order.TotalCents,
	}, n.opts)
}

var _ service.Notifier = (*EmailNotifier)(nil)

func emailItems(lines []domain.OrderLine) []EmailItem {
	items := make([]EmailItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, EmailItem{
			Title:      l.Title,
			Size:       string(l.Size),
			Quantity:   l.Quantity,
			PriceCents: l.UnitPriceCents,
			TotalCents: l.SubtotalCents,
		})
	}
	return items
}

// IsEmailJob reports whether ProcessEmailJob handles the job type.
func IsEmailJob(jobType string) bool {
	switch jobType {
	case JobTypeOrderConfirmation, JobTypeOrderStatus:
		return true
	}
	return false
}

// ProcessEmailJob processes an email job based on its type
func ProcessEmailJob(ctx context.Context, job *repository.Job, emailService *email.Service) error {
	switch job.JobType {
	case JobTypeOrderConfirmation:
		var payload OrderConfirmationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal order confirmation payload: %w", err)
		}
		return emailService.SendOrderConfirmation(ctx, email.OrderConfirmationEmail{
			OrderNumber:   payload.OrderNumber,
			CustomerName:  payload.CustomerName,
			CustomerEmail: payload.Email,
			OrderDate:     payload.OrderDate,
			Items:         toEmailItems(payload.Items),
			TotalCents:    int64(payload.TotalCents),
			ShippingAddr: email.Address{
				Name:       payload.CustomerName,
				Line1:      payload.Shipping.Line1,
				Line2:      payload.Shipping.Line2,
				City:       payload.Shipping.City,
				State:      payload.Shipping.State,
				PostalCode: payload.Shipping.PostalCode,
				Country:    payload.Shipping.Country,
			},
		})

	case JobTypeOrderStatus:
		var payload OrderStatusPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal order status payload: %w", err)
		}
		return emailService.SendOrderStatus(ctx, email.OrderStatusEmail{
			OrderNumber:    payload.OrderNumber,
			CustomerName:   payload.CustomerName,
			CustomerEmail:  payload.Email,
			Status:         payload.Status,
			PreviousStatus: payload.PreviousStatus,
			Items:          toEmailItems(payload.Items),
			TotalCents:     int64(payload.TotalCents),
		})

	default:
		return fmt.Errorf("unknown email job type: %s", job.JobType)
	}
}

func toEmailItems(items []EmailItem) []email.OrderItem {
	out := make([]email.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, email.OrderItem{
			ProductName: it.Title,
			VariantName: it.Size,
			Quantity:    int(it.Quantity),
			PriceCents:  int64(it.PriceCents),
			TotalCents:  int64(it.TotalCents),
		})
	}
	return out
}
