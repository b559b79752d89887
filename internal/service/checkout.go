package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/repository"
	"github.com/dukerupert/skein/internal/telemetry"
)

type checkoutService struct {
	store    repository.Store
	numbers  OrderNumbers
	notifier Notifier
	logger   *slog.Logger
}

// NewCheckoutService creates the checkout workflow. notifier may be nil.
func NewCheckoutService(store repository.Store, numbers OrderNumbers, notifier Notifier, logger *slog.Logger) domain.CheckoutService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &checkoutService{
		store:    store,
		numbers:  numbers,
		notifier: notifier,
		logger:   logger,
	}
}

// PlaceOrder reserves stock for every line and records the order.
//
// Flow:
//  1. Validate the request shape
//  2. Return the existing order when the payment id was already used
//  3. In one transaction, for each line in order:
//     resolve its stock bucket, decrement it conditionally, snapshot the line
//  4. Create the order and its lines in the same transaction
//  5. After commit, notify (failures are logged, never returned)
//
// A line whose (color, size) has no variant row is sold without a decrement
// and recorded with StockReserved=false.
func (s *checkoutService) PlaceOrder(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	const op = "checkout.place_order"

	if err := req.Validate(op); err != nil {
		telemetry.Business.RecordCheckoutRejected("validation")
		return nil, err
	}

	if req.PaymentID != "" {
		existing, err := s.existingOrder(ctx, op, req.PaymentID)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	number := s.numbers.Next()
	ctx, finish := telemetry.StartSpan(ctx, "checkout.reserve", number)
	defer finish()

	var (
		order     domain.Order
		committed bool
		start     = time.Now()
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		committed = false

		lines := make([]repository.CreateOrderLineParams, 0, len(req.Lines))
		var total int64

		for i, line := range req.Lines {
			product, err := q.GetProduct(ctx, pgUUID(line.ProductID))
			if err != nil {
				if repository.IsNotFound(err) {
					return domain.NotFound(op, "product", line.ProductID.String())
				}
				return domain.Internal(err, op, "failed to load product")
			}

			// Cents columns are int4; a wrapped total would still look valid.
			subtotal := int64(product.PriceCents) * int64(line.Quantity)
			if subtotal > math.MaxInt32 {
				return domain.NewValidationError(op, domain.LineField(i, "quantity"), "line total is too large")
			}
			total += subtotal
			if total > math.MaxInt32 {
				return domain.NewValidationError(op, "lines", "order total is too large")
			}

			reserved, err := s.reserve(ctx, q, op, i, line, product)
			if err != nil {
				return err
			}

			if line.UnitPriceCents != 0 && line.UnitPriceCents != product.PriceCents {
				telemetry.Business.RecordPriceMismatch()
				s.logger.Warn("checkout price differs from catalog",
					"order_number", number,
					"product_id", line.ProductID,
					"client_price_cents", line.UnitPriceCents,
					"price_cents", product.PriceCents,
				)
			}

			lines = append(lines, repository.CreateOrderLineParams{
				Position:       int32(i),
				ProductID:      product.ID,
				ColorID:        pgUUID(line.ColorID),
				Size:           pgText(string(line.Size)),
				Title:          product.Title,
				UnitPriceCents: product.PriceCents,
				Quantity:       line.Quantity,
				SubtotalCents:  int32(subtotal),
				StockReserved:  reserved,
			})
		}

		if req.ChargedCents != nil && int64(*req.ChargedCents) != total {
			s.logger.Warn("order total differs from captured payment",
				"order_number", number,
				"payment_id", req.PaymentID,
				"total_cents", total,
				"paid_cents", *req.ChargedCents,
			)
			return domain.ErrPaymentMismatch
		}

		created, err := q.CreateOrder(ctx, repository.CreateOrderParams{
			OrderNumber:        number,
			Status:             string(domain.OrderStatusPending),
			TotalCents:         int32(total),
			CustomerName:       req.CustomerName,
			CustomerEmail:      req.CustomerEmail,
			ShippingLine1:      req.Shipping.Line1,
			ShippingLine2:      pgText(req.Shipping.Line2),
			ShippingCity:       req.Shipping.City,
			ShippingState:      pgText(req.Shipping.State),
			ShippingPostalCode: req.Shipping.PostalCode,
			ShippingCountry:    req.Shipping.Country,
			PaymentID:          pgText(req.PaymentID),
		})
		if err != nil {
			if repository.IsUniqueViolation(err, "orders_payment_id_key") {
				return errDuplicatePayment
			}
			return domain.Internal(err, op, "failed to create order")
		}

		recorded := make([]repository.OrderLine, 0, len(lines))
		for _, params := range lines {
			params.OrderID = created.ID
			l, err := q.CreateOrderLine(ctx, params)
			if err != nil {
				return domain.Internal(err, op, "failed to create order line")
			}
			recorded = append(recorded, l)
		}

		order = toOrder(created, recorded)
		committed = true
		return nil
	})
	telemetry.Business.ObserveCheckoutSeconds(time.Since(start).Seconds())

	if errors.Is(err, errDuplicatePayment) {
		existing, lookupErr := s.existingOrder(ctx, op, req.PaymentID)
		if lookupErr == nil && existing == nil {
			lookupErr = domain.Internal(err, op, "order for payment disappeared")
		}
		return existing, lookupErr
	}
	if err != nil {
		return nil, s.checkoutFailed(ctx, op, number, req.PaymentID, committed, err)
	}

	telemetry.Business.RecordOrderCreated(order.TotalCents, order.ItemCount())
	s.logger.Info("order placed",
		"order_number", order.OrderNumber,
		"order_id", order.ID,
		"total_cents", order.TotalCents,
		"lines", len(order.Lines),
	)

	if err := s.notifier.OrderPlaced(ctx, order); err != nil {
		telemetry.Business.RecordNotifyFailure("order_placed")
		s.logger.Error("failed to notify order placed",
			"order_number", order.OrderNumber,
			"error", err,
		)
	}
	return &order, nil
}

// existingOrder returns the order already recorded for paymentID, or nil.
func (s *checkoutService) existingOrder(ctx context.Context, op, paymentID string) (*domain.Order, error) {
	existing, err := s.store.GetOrderByPaymentID(ctx, paymentID)
	if repository.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to look up payment")
	}

	order, err := loadOrder(ctx, s.store, op, existing)
	if err != nil {
		return nil, err
	}
	telemetry.Business.RecordDuplicateCheckout()
	s.logger.Info("checkout repeated for recorded payment",
		"order_number", order.OrderNumber,
		"payment_id", paymentID,
	)
	return order, nil
}

// checkoutFailed classifies a failed transaction. committed means the
// callback finished, so the failure happened at COMMIT.
func (s *checkoutService) checkoutFailed(ctx context.Context, op, number, paymentID string, committed bool, err error) error {
	if committed {
		telemetry.Business.RecordStockNotRecorded()
		notRecorded := &domain.StockNotRecordedError{OrderNumber: number, Err: err}
		telemetry.CaptureErrorFromContext(ctx, notRecorded, map[string]any{
			"order_number": number,
			"payment_id":   paymentID,
		})
		s.logger.Error("checkout commit failed after stock decrement",
			"order_number", number,
			"error", err,
		)
		return notRecorded
	}

	switch {
	case domain.IsValidationError(err):
		telemetry.Business.RecordCheckoutRejected("validation")
	case domain.IsInsufficientStock(err):
		telemetry.Business.RecordCheckoutRejected("insufficient_stock")
	case domain.IsCode(err, domain.ENOTFOUND):
		telemetry.Business.RecordCheckoutRejected("not_found")
	case errors.Is(err, domain.ErrPaymentMismatch):
		telemetry.Business.RecordCheckoutRejected("payment_mismatch")
	default:
		telemetry.Business.RecordCheckoutError()
		s.logger.Error("checkout failed", "order_number", number, "error", err)
	}
	return err
}

// reserve decrements the stock bucket the line resolves to and reports
// whether anything was decremented.
func (s *checkoutService) reserve(ctx context.Context, q repository.Querier, op string, i int, line domain.CheckoutLine, product repository.Product) (bool, error) {
	if line.ColorID == uuid.Nil {
		n, err := q.CountColorsByProduct(ctx, product.ID)
		if err != nil {
			return false, domain.Internal(err, op, "failed to count colors")
		}
		if n > 0 {
			return false, domain.NewValidationError(op, domain.LineField(i, "color_id"), "is required for this product")
		}
		return true, s.decrement(ctx, op, i, line, product, "product", product.ID,
			q.DecrementProductStock,
			func() (int32, error) {
				p, err := q.GetProduct(ctx, product.ID)
				return p.Quantity, err
			})
	}

	color, err := q.GetColorForProduct(ctx, repository.GetColorForProductParams{
		ID:        pgUUID(line.ColorID),
		ProductID: product.ID,
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return false, domain.NewValidationError(op, domain.LineField(i, "color_id"), "does not belong to this product")
		}
		return false, domain.Internal(err, op, "failed to load color")
	}

	variants, err := q.CountVariantsByColor(ctx, color.ID)
	if err != nil {
		return false, domain.Internal(err, op, "failed to count variants")
	}

	if variants == 0 {
		return true, s.decrement(ctx, op, i, line, product, "color", color.ID,
			q.DecrementColorStock,
			func() (int32, error) {
				c, err := q.GetColor(ctx, color.ID)
				return c.Quantity, err
			})
	}

	if line.Size == "" {
		return false, domain.NewValidationError(op, domain.LineField(i, "size"), "is required for this color")
	}

	variant, err := q.GetVariantByColorAndSize(ctx, repository.GetVariantByColorAndSizeParams{
		ColorID: color.ID,
		Size:    string(line.Size),
	})
	if repository.IsNotFound(err) {
		telemetry.Business.RecordUnitsReserved("untracked", line.Quantity)
		return false, nil
	}
	if err != nil {
		return false, domain.Internal(err, op, "failed to load variant")
	}

	return true, s.decrement(ctx, op, i, line, product, "variant", variant.ID,
		q.DecrementVariantStock,
		func() (int32, error) {
			v, err := q.GetVariantByColorAndSize(ctx, repository.GetVariantByColorAndSizeParams{
				ColorID: color.ID,
				Size:    variant.Size,
			})
			return v.Quantity, err
		})
}

// decrement runs a conditional decrement. When no row matched it rereads the
// bucket and reports how many units were actually available.
func (s *checkoutService) decrement(
	ctx context.Context,
	op string,
	i int,
	line domain.CheckoutLine,
	product repository.Product,
	kind string,
	target pgtype.UUID,
	dec func(context.Context, repository.DecrementStockParams) (int64, error),
	current func() (int32, error),
) error {
	rows, err := dec(ctx, repository.DecrementStockParams{ID: target, Quantity: line.Quantity})
	if err != nil {
		return domain.Internal(err, op, "failed to decrement stock")
	}
	if rows == 1 {
		telemetry.Business.RecordUnitsReserved(kind, line.Quantity)
		return nil
	}

	available, err := current()
	if err != nil {
		return domain.Internal(err, op, "failed to read stock")
	}
	if available < 0 {
		available = 0
	}
	return &domain.InsufficientStockError{
		ProductID: fromPG(product.ID),
		Title:     product.Title,
		Requested: line.Quantity,
		Available: available,
		Line:      i,
	}
}

func loadOrder(ctx context.Context, q repository.Querier, op string, o repository.Order) (*domain.Order, error) {
	lines, err := q.ListOrderLines(ctx, o.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load order lines")
	}
	order := toOrder(o, lines)
	return &order, nil
}
