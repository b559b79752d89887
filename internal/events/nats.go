// Package events publishes committed order and stock changes to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/service"
)

// Subjects, relative to the publisher's prefix.
const (
	SubjectOrderPlaced        = "order.placed"
	SubjectOrderStatusChanged = "order.status_changed"
	SubjectStockAdjusted      = "stock.adjusted"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// OrderEvent is the body of order.* messages.
type OrderEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Status      domain.OrderStatus `json:"status"`
	From        domain.OrderStatus `json:"from,omitempty"`
	TotalCents  int32              `json:"total_cents"`
	ItemCount   int                `json:"item_count"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// StockEvent is the body of stock.adjusted messages.
type StockEvent struct {
	Level      domain.StockLevel `json:"level"`
	Op         domain.AdjustOp   `json:"op"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NATSPublisher implements service.Notifier and service.StockEvents.
type NATSPublisher struct {
	conn   Conn
	prefix string
	now    func() time.Time
}

// NewNATSPublisher publishes on conn. A non-empty prefix is prepended to
// every subject, e.g. "skein" gives "skein.order.placed".
func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix, now: time.Now}
}

func (p *NATSPublisher) OrderPlaced(ctx context.Context, order domain.Order) error {
	return p.publish(SubjectOrderPlaced, p.orderEvent(order, ""))
}

func (p *NATSPublisher) OrderStatusChanged(ctx context.Context, order domain.Order, from domain.OrderStatus) error {
	return p.publish(SubjectOrderStatusChanged, p.orderEvent(order, from))
}

func (p *NATSPublisher) StockAdjusted(ctx context.Context, level domain.StockLevel, op domain.AdjustOp) error {
	return p.publish(SubjectStockAdjusted, StockEvent{Level: level, Op: op, OccurredAt: p.now().UTC()})
}

func (p *NATSPublisher) orderEvent(order domain.Order, from domain.OrderStatus) OrderEvent {
	return OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		From:        from,
		TotalCents:  order.TotalCents,
		ItemCount:   order.ItemCount(),
		OccurredAt:  p.now().UTC(),
	}
}

// Subject returns the full subject name for a relative subject.
func (p *NATSPublisher) Subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

func (p *NATSPublisher) publish(name string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}
	subject := p.Subject(name)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

var (
	_ service.Notifier    = (*NATSPublisher)(nil)
	_ service.StockEvents = (*NATSPublisher)(nil)
	_ Conn                = (*nats.Conn)(nil)
)

// Connect dials NATS with reconnect handling that logs through logger.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("nats async error", "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return nc, nil
}
