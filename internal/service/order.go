package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/skein/internal/billing"
	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/repository"
	"github.com/dukerupert/skein/internal/telemetry"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

type orderService struct {
	store    repository.Store
	notifier Notifier
	payments billing.Provider
	logger   *slog.Logger
}

// NewOrderService creates the order service. payments is used to refund
// cancelled orders and may be nil.
func NewOrderService(store repository.Store, notifier Notifier, payments billing.Provider, logger *slog.Logger) domain.OrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &orderService{
		store:    store,
		notifier: notifier,
		payments: payments,
		logger:   logger,
	}
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	const op = "order.get"

	id, err := parseID(op, "id", orderID)
	if err != nil {
		return nil, err
	}
	o, err := s.store.GetOrder(ctx, pgUUID(id))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}
	return loadOrder(ctx, s.store, op, o)
}

func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	const op = "order.get_by_number"

	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, domain.NewValidationError(op, "order_number", "is required")
	}
	o, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}
	return loadOrder(ctx, s.store, op, o)
}

// ListOrders returns a page of orders, newest first, without their lines.
func (s *orderService) ListOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error) {
	const op = "order.list"

	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultOrderPageSize
	case limit > maxOrderPageSize:
		limit = maxOrderPageSize
	}
	offset := max(filter.Offset, 0)

	var status pgtype.Text
	if filter.Status != nil {
		status = pgText(string(*filter.Status))
	}

	rows, err := s.store.ListOrders(ctx, repository.ListOrdersParams{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}
	total, err := s.store.CountOrders(ctx, status)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count orders")
	}

	page := &domain.OrderPage{
		Orders: make([]domain.Order, 0, len(rows)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, o := range rows {
		page.Orders = append(page.Orders, toOrder(o, nil))
	}
	return page, nil
}

// UpdateStatus moves an order to status when the lifecycle allows it.
// Cancelling returns reserved units to their buckets in the same transaction
// and, after commit, refunds the payment when one is on record.
func (s *orderService) UpdateStatus(ctx context.Context, orderID string, status string) (*domain.Order, error) {
	const op = "order.update_status"

	id, err := parseID(op, "id", orderID)
	if err != nil {
		return nil, err
	}
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, op, pgUUID(id), next, true)
}

// CancelRefunded cancels the order paid by paymentID after the payment was
// refunded at the provider. Reserved units are restocked; no second refund
// is issued. An order already cancelled is returned unchanged.
func (s *orderService) CancelRefunded(ctx context.Context, paymentID string) (*domain.Order, error) {
	const op = "order.cancel_refunded"

	if strings.TrimSpace(paymentID) == "" {
		return nil, domain.NewValidationError(op, "payment_id", "is required")
	}
	o, err := s.store.GetOrderByPaymentID(ctx, paymentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to look up payment")
	}
	if domain.OrderStatus(o.Status) == domain.OrderStatusCancelled {
		return loadOrder(ctx, s.store, op, o)
	}
	return s.transition(ctx, op, o.ID, domain.OrderStatusCancelled, false)
}

// transition moves an order to next inside one transaction, restocking
// reserved lines on cancel. refund controls whether a cancelled order's
// payment is refunded after commit.
func (s *orderService) transition(ctx context.Context, op string, id pgtype.UUID, next domain.OrderStatus, refund bool) (*domain.Order, error) {
	var (
		updated   repository.Order
		lines     []repository.OrderLine
		from      domain.OrderStatus
		restocked int32
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		restocked = 0

		current, err := q.GetOrderForUpdate(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrOrderNotFound
			}
			return domain.Internal(err, op, "failed to load order")
		}

		from = domain.OrderStatus(current.Status)
		if !from.CanTransitionTo(next) {
			return domain.Conflict(op, fmt.Sprintf("cannot change order from %s to %s", from, next))
		}

		lines, err = q.ListOrderLines(ctx, current.ID)
		if err != nil {
			return domain.Internal(err, op, "failed to load order lines")
		}

		if next == domain.OrderStatusCancelled {
			for _, l := range lines {
				if !l.StockReserved {
					continue
				}
				if err := s.restock(ctx, q, op, l); err != nil {
					return err
				}
				restocked += l.Quantity
			}
		}

		updated, err = q.UpdateOrderStatus(ctx, repository.UpdateOrderStatusParams{
			ID:     current.ID,
			Status: string(next),
		})
		if err != nil {
			return domain.Internal(err, op, "failed to update order status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order := toOrder(updated, lines)
	telemetry.Business.RecordTransition(string(from), string(next))
	telemetry.Business.RecordRestock(restocked)
	s.logger.Info("order status changed",
		"order_number", order.OrderNumber,
		"from", from,
		"to", next,
		"restocked_units", restocked,
	)

	if err := s.notifier.OrderStatusChanged(ctx, order, from); err != nil {
		telemetry.Business.RecordNotifyFailure("status_changed")
		s.logger.Error("failed to notify status change", "order_number", order.OrderNumber, "error", err)
	}

	if refund && next == domain.OrderStatusCancelled {
		s.refund(ctx, order)
	}
	return &order, nil
}

// restock returns a line's units to the bucket it was reserved from, using
// the same resolution as checkout.
func (s *orderService) restock(ctx context.Context, q repository.Querier, op string, l repository.OrderLine) error {
	add := repository.AdjustStockParams{Op: string(domain.AdjustAdd), Amount: l.Quantity}

	var err error
	switch {
	case !l.ColorID.Valid:
		add.ID = l.ProductID
		_, err = q.AdjustProductStock(ctx, add)
	default:
		var n int64
		n, err = q.CountVariantsByColor(ctx, l.ColorID)
		if err != nil {
			break
		}
		if n == 0 {
			add.ID = l.ColorID
			_, err = q.AdjustColorStock(ctx, add)
			break
		}
		var v repository.Variant
		v, err = q.GetVariantByColorAndSize(ctx, repository.GetVariantByColorAndSizeParams{
			ColorID: l.ColorID,
			Size:    l.Size.String,
		})
		if err != nil {
			break
		}
		add.ID = v.ID
		_, err = q.AdjustVariantStock(ctx, add)
	}

	if repository.IsNotFound(err) {
		s.logger.Warn("stock bucket gone, units not restocked",
			"product_id", fromPG(l.ProductID),
			"color_id", fromPG(l.ColorID),
			"size", l.Size.String,
			"quantity", l.Quantity,
		)
		return nil
	}
	if err != nil {
		return domain.Internal(err, op, "failed to restock order line")
	}
	return nil
}

func (s *orderService) refund(ctx context.Context, order domain.Order) {
	if s.payments == nil || order.PaymentID == "" {
		return
	}
	refund, err := s.payments.RefundPayment(ctx, billing.RefundParams{
		PaymentIntentID: order.PaymentID,
		Reason:          "requested_by_customer",
		Metadata:        map[string]string{"order_number": order.OrderNumber},
	})
	if err != nil {
		telemetry.Business.RecordNotifyFailure("refund")
		telemetry.CaptureErrorFromContext(ctx, err, map[string]any{
			"order_number": order.OrderNumber,
			"payment_id":   order.PaymentID,
		})
		s.logger.Error("failed to refund cancelled order",
			"order_number", order.OrderNumber,
			"payment_id", order.PaymentID,
			"error", err,
		)
		return
	}
	s.logger.Info("cancelled order refunded",
		"order_number", order.OrderNumber,
		"refund_id", refund.ID,
		"status", refund.Status,
	)
}
