package domain

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order-related domain errors.
var (
	ErrOrderNotFound = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrUnknownStatus = &Error{Code: EINVALID, Message: "Unknown order status"}
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// transitions lists the statuses reachable from each status.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// ParseOrderStatus accepts only the known statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	}
	return "", ErrUnknownStatus
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Address is a shipping address captured at checkout.
type Address struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state,omitempty" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,len=2"`
}

// CheckoutLine is one requested line at checkout. UnitPriceCents is what the
// client saw; the live product price is charged.
type CheckoutLine struct {
	ProductID      uuid.UUID
	ColorID        uuid.UUID
	Size           Size
	Title          string
	UnitPriceCents int32
	Quantity       int32
}

// CheckoutRequest is the input of the reservation workflow.
type CheckoutRequest struct {
	CustomerName  string
	CustomerEmail string
	Shipping      Address
	PaymentID     string
	Lines         []CheckoutLine

	// ChargedCents, when set, is the amount the payment provider captured.
	// An order whose live-priced total differs is rejected and rolled back.
	ChargedCents *int32
}

// Validate checks request shape before anything touches the ledger.
func (r CheckoutRequest) Validate(op string) error {
	var err error
	if strings.TrimSpace(r.CustomerName) == "" {
		err = AddFieldError(err, "customer_name", "is required")
	}
	if !strings.Contains(r.CustomerEmail, "@") {
		err = AddFieldError(err, "customer_email", "must be a valid email")
	}
	if len(r.Lines) == 0 {
		err = AddFieldError(err, "lines", "must not be empty")
	}
	for i, l := range r.Lines {
		if l.ProductID == uuid.Nil {
			err = AddFieldError(err, LineField(i, "product_id"), "is required")
		}
		if l.Quantity <= 0 {
			err = AddFieldError(err, LineField(i, "quantity"), "must be at least 1")
		}
		if l.Size != "" && l.ColorID == uuid.Nil {
			err = AddFieldError(err, LineField(i, "color_id"), "is required when a size is selected")
		}
	}
	if ve, ok := err.(*ValidationError); ok {
		ve.Op = op
	}
	return err
}

// LineField names a field of checkout line i in validation errors.
func LineField(i int, name string) string {
	return "lines[" + strconv.Itoa(i) + "]." + name
}

// OrderLine is an immutable snapshot of a purchased line.
type OrderLine struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	ColorID        uuid.UUID `json:"color_id,omitzero"`
	Size           Size      `json:"size,omitempty"`
	Title          string    `json:"title"`
	UnitPriceCents int32     `json:"unit_price_cents"`
	Quantity       int32     `json:"quantity"`
	SubtotalCents  int32     `json:"subtotal_cents"`
	// StockReserved is false for lines that matched no tracked bucket.
	StockReserved bool `json:"stock_reserved"`
}

// Order is a recorded sale.
type Order struct {
	ID            uuid.UUID   `json:"id"`
	OrderNumber   string      `json:"order_number"`
	Status        OrderStatus `json:"status"`
	TotalCents    int32       `json:"total_cents"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	Shipping      Address     `json:"shipping"`
	PaymentID     string      `json:"payment_id,omitempty"`
	Lines         []OrderLine `json:"lines"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ItemCount is the number of units across all lines.
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += int(l.Quantity)
	}
	return n
}

// OrderFilter selects a page of orders.
type OrderFilter struct {
	Status *OrderStatus
	Limit  int32
	Offset int32
}

// OrderPage is one page of orders without their lines.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Limit  int32   `json:"limit"`
	Offset int32   `json:"offset"`
}

// CheckoutService turns a cart into an order while reserving stock.
type CheckoutService interface {
	// PlaceOrder validates, reserves stock and records the order in one
	// transaction. A repeated payment id returns the order already recorded.
	PlaceOrder(ctx context.Context, req CheckoutRequest) (*Order, error)
}

// OrderService manages recorded orders.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error)

	// UpdateStatus moves an order along its lifecycle. Cancelling restocks
	// reserved lines.
	UpdateStatus(ctx context.Context, orderID string, status string) (*Order, error)

	// CancelRefunded cancels the order paid by paymentID once the provider
	// reports the payment refunded, without refunding again.
	CancelRefunded(ctx context.Context, paymentID string) (*Order, error)
}
