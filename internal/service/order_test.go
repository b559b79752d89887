package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/skein/internal/billing"
	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/repository/repotest"
)

type orderFixture struct {
	store    *repotest.Memory
	checkout domain.CheckoutService
	orders   domain.OrderService
	notifier *recordingNotifier
	payments *billing.MockProvider

	product uuid.UUID
	black   uuid.UUID
	medium  uuid.UUID
	tote    uuid.UUID
	natural uuid.UUID
	card    uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := repotest.NewMemory()
	f := &orderFixture{
		store:    store,
		notifier: &recordingNotifier{},
		payments: billing.NewMockProvider(),
	}
	f.product = store.SeedProduct("Crew Tee", 2500, 0)
	f.black = store.SeedColor(f.product, "Black", 0)
	f.medium = store.SeedVariant(f.black, "M", 5)
	f.tote = store.SeedProduct("Tote", 1800, 0)
	f.natural = store.SeedColor(f.tote, "Natural", 10)
	f.card = store.SeedProduct("Gift Card", 5000, 8)

	f.checkout = NewCheckoutService(store, newNumbers(t), nil, discardLogger())
	f.orders = NewOrderService(store, f.notifier, f.payments, discardLogger())
	return f
}

func (f *orderFixture) place(t *testing.T, paymentID string, lines ...domain.CheckoutLine) *domain.Order {
	t.Helper()
	req := checkoutRequest(lines...)
	req.PaymentID = paymentID
	order, err := f.checkout.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	return order
}

func TestOrderService_GetOrder(t *testing.T) {
	f := newOrderFixture(t)
	placed := f.place(t, "", domain.CheckoutLine{ProductID: f.card, Quantity: 1})
	ctx := context.Background()

	got, err := f.orders.GetOrder(ctx, placed.ID.String())
	require.NoError(t, err)
	assert.Equal(t, placed.OrderNumber, got.OrderNumber)
	assert.Len(t, got.Lines, 1)

	byNumber, err := f.orders.GetOrderByNumber(ctx, "  "+strings.ToLower(placed.OrderNumber)+" ")
	require.NoError(t, err)
	assert.Equal(t, placed.ID, byNumber.ID)

	_, err = f.orders.GetOrder(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.orders.GetOrder(ctx, "not-a-uuid")
	assert.True(t, domain.IsValidationError(err))

	_, err = f.orders.GetOrderByNumber(ctx, " ")
	assert.True(t, domain.IsValidationError(err))
}

func TestOrderService_ListOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	for range 3 {
		f.place(t, "", domain.CheckoutLine{ProductID: f.card, Quantity: 1})
	}
	advanced := f.place(t, "", domain.CheckoutLine{ProductID: f.card, Quantity: 1})
	_, err := f.orders.UpdateStatus(ctx, advanced.ID.String(), "processing")
	require.NoError(t, err)

	page, err := f.orders.ListOrders(ctx, domain.OrderFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, int32(2), page.Limit)

	processing := domain.OrderStatusProcessing
	page, err = f.orders.ListOrders(ctx, domain.OrderFilter{Status: &processing})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, advanced.ID, page.Orders[0].ID)
	assert.Equal(t, int32(defaultOrderPageSize), page.Limit)

	page, err = f.orders.ListOrders(ctx, domain.OrderFilter{Limit: 1000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, int32(maxOrderPageSize), page.Limit)
	assert.Equal(t, int32(0), page.Offset)
	assert.Len(t, page.Orders, 4)
}

func TestOrderService_UpdateStatus_Lifecycle(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t, "", domain.CheckoutLine{ProductID: f.card, Quantity: 1})
	ctx := context.Background()

	for _, next := range []domain.OrderStatus{
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		updated, err := f.orders.UpdateStatus(ctx, order.ID.String(), string(next))
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	require.Len(t, f.notifier.changed, 3)
	assert.Equal(t, domain.OrderStatusPending, f.notifier.changed[0].from)
	assert.Equal(t, domain.OrderStatusShipped, f.notifier.changed[2].from)

	_, err := f.orders.UpdateStatus(ctx, order.ID.String(), "cancelled")
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestOrderService_UpdateStatus_Rejections(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t, "", domain.CheckoutLine{ProductID: f.card, Quantity: 1})
	ctx := context.Background()

	tests := []struct {
		name     string
		orderID  string
		status   string
		wantCode string
	}{
		{name: "unknown status", orderID: order.ID.String(), status: "lost", wantCode: domain.EINVALID},
		{name: "skip ahead", orderID: order.ID.String(), status: "shipped", wantCode: domain.ECONFLICT},
		{name: "same status", orderID: order.ID.String(), status: "pending", wantCode: domain.ECONFLICT},
		{name: "missing order", orderID: uuid.NewString(), status: "processing", wantCode: domain.ENOTFOUND},
		{name: "malformed id", orderID: "42", status: "processing", wantCode: domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.UpdateStatus(ctx, tt.orderID, tt.status)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}

	got, err := f.orders.GetOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestOrderService_UpdateStatus_CancelRestocksReservedLines(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order := f.place(t, "",
		domain.CheckoutLine{ProductID: f.product, ColorID: f.black, Size: domain.SizeM, Quantity: 2},
		domain.CheckoutLine{ProductID: f.product, ColorID: f.black, Size: domain.SizeXL, Quantity: 1},
		domain.CheckoutLine{ProductID: f.tote, ColorID: f.natural, Quantity: 3},
		domain.CheckoutLine{ProductID: f.card, Quantity: 4},
	)
	assert.Equal(t, int32(3), f.store.VariantQuantity(f.medium))
	assert.Equal(t, int32(7), f.store.ColorQuantity(f.natural))
	assert.Equal(t, int32(4), f.store.ProductQuantity(f.card))

	cancelled, err := f.orders.UpdateStatus(ctx, order.ID.String(), "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Len(t, cancelled.Lines, 4)

	assert.Equal(t, int32(5), f.store.VariantQuantity(f.medium))
	assert.Equal(t, int32(10), f.store.ColorQuantity(f.natural))
	assert.Equal(t, int32(8), f.store.ProductQuantity(f.card))
}

func TestOrderService_UpdateStatus_CancelRefundsPayment(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	pi, err := f.payments.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{AmountCents: 5000, Currency: "usd"})
	require.NoError(t, err)
	require.NoError(t, f.payments.SimulateSucceededPayment(pi.ID))

	order := f.place(t, pi.ID, domain.CheckoutLine{ProductID: f.card, Quantity: 1})

	_, err = f.orders.UpdateStatus(ctx, order.ID.String(), "cancelled")
	require.NoError(t, err)

	refund, ok := f.payments.Refunds[pi.ID]
	require.True(t, ok)
	assert.Equal(t, int64(5000), refund.Amount)
}

func TestOrderService_UpdateStatus_RefundFailureIsNotFatal(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order := f.place(t, "pi_unknown", domain.CheckoutLine{ProductID: f.card, Quantity: 2})

	cancelled, err := f.orders.UpdateStatus(ctx, order.ID.String(), "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Contains(t, f.payments.Calls(), "RefundPayment(pi_unknown)")
	assert.Equal(t, int32(8), f.store.ProductQuantity(f.card))
}

func TestOrderService_UpdateStatus_NotifierFailureIsNotFatal(t *testing.T) {
	f := newOrderFixture(t)
	f.notifier.err = errNotifyDown
	order := f.place(t, "", domain.CheckoutLine{ProductID: f.card, Quantity: 1})

	updated, err := f.orders.UpdateStatus(context.Background(), order.ID.String(), "processing")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, updated.Status)
}

func TestOrderService_UpdateStatus_CancelWithoutPaymentSkipsRefund(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t, "", domain.CheckoutLine{ProductID: f.card, Quantity: 1})

	_, err := f.orders.UpdateStatus(context.Background(), order.ID.String(), "cancelled")
	require.NoError(t, err)
	assert.Empty(t, f.payments.Calls())
}

func TestOrderService_CancelRefunded(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order := f.place(t, "pi_refunded", domain.CheckoutLine{ProductID: f.card, Quantity: 3})
	require.Equal(t, int32(5), f.store.ProductQuantity(f.card))

	cancelled, err := f.orders.CancelRefunded(ctx, "pi_refunded")
	require.NoError(t, err)
	assert.Equal(t, order.ID, cancelled.ID)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, int32(8), f.store.ProductQuantity(f.card))
	assert.Empty(t, f.payments.Calls(), "provider already refunded")

	again, err := f.orders.CancelRefunded(ctx, "pi_refunded")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, again.Status)
	assert.Equal(t, int32(8), f.store.ProductQuantity(f.card), "no double restock")
}

func TestOrderService_CancelRefunded_Rejections(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shipped := f.place(t, "pi_shipped", domain.CheckoutLine{ProductID: f.card, Quantity: 1})
	for _, s := range []string{"processing", "shipped"} {
		_, err := f.orders.UpdateStatus(ctx, shipped.ID.String(), s)
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		paymentID string
		wantCode  string
	}{
		{name: "blank", paymentID: " ", wantCode: domain.EINVALID},
		{name: "unknown payment", paymentID: "pi_missing", wantCode: domain.ENOTFOUND},
		{name: "already shipped", paymentID: "pi_shipped", wantCode: domain.ECONFLICT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CancelRefunded(ctx, tt.paymentID)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}
