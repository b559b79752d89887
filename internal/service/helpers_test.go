package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/skein/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newNumbers(t *testing.T) *SnowflakeNumbers {
	t.Helper()
	n, err := NewSnowflakeNumbers(1)
	require.NoError(t, err)
	return n
}

func testAddress() domain.Address {
	return domain.Address{
		Line1:      "12 Loom Street",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}
}

func checkoutRequest(lines ...domain.CheckoutLine) domain.CheckoutRequest {
	return domain.CheckoutRequest{
		CustomerName:  "Ada Weaver",
		CustomerEmail: "ada@example.com",
		Shipping:      testAddress(),
		Lines:         lines,
	}
}

// recordingNotifier captures notifications and optionally fails them.
type recordingNotifier struct {
	mu      sync.Mutex
	placed  []domain.Order
	changed []statusChange
	adjusts []domain.StockLevel
	err     error
}

type statusChange struct {
	order domain.Order
	from  domain.OrderStatus
}

func (n *recordingNotifier) OrderPlaced(ctx context.Context, order domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, order)
	return n.err
}

func (n *recordingNotifier) OrderStatusChanged(ctx context.Context, order domain.Order, from domain.OrderStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, statusChange{order: order, from: from})
	return n.err
}

func (n *recordingNotifier) StockAdjusted(ctx context.Context, level domain.StockLevel, op domain.AdjustOp) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.adjusts = append(n.adjusts, level)
	return n.err
}

var errNotifyDown = errors.New("notifier unavailable")
