package storefront

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/dukerupert/skein/internal/address"
	"github.com/dukerupert/skein/internal/billing"
	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
	"github.com/dukerupert/skein/internal/middleware"
	"github.com/dukerupert/skein/internal/telemetry"
)

// ErrPaymentNotFound is returned when the payment id is unknown to the provider.
var ErrPaymentNotFound = &domain.Error{Code: domain.EPAYMENT, Message: "Payment not found"}

// CheckoutHandler handles payment intent creation and order placement.
type CheckoutHandler struct {
	checkout  domain.CheckoutService
	inventory domain.InventoryService
	payments  billing.Provider
	carts     *CartStore
	addresses address.Validator
	currency  string
}

// NewCheckoutHandler creates a new checkout handler. currency defaults to
// "usd" and a nil validator to address.BasicValidator.
func NewCheckoutHandler(
	checkout domain.CheckoutService,
	inventory domain.InventoryService,
	payments billing.Provider,
	carts *CartStore,
	addresses address.Validator,
	currency string,
) *CheckoutHandler {
	if currency == "" {
		currency = "usd"
	}
	if addresses == nil {
		addresses = address.NewBasicValidator()
	}
	return &CheckoutHandler{
		checkout:  checkout,
		inventory: inventory,
		payments:  payments,
		carts:     carts,
		addresses: addresses,
		currency:  currency,
	}
}

type paymentIntentRequest struct {
	CustomerEmail string `json:"customer_email" validate:"required,email,max=254"`
}

// PaymentIntentResponse is returned by CreatePaymentIntent.
type PaymentIntentResponse struct {
	PaymentID    string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int32  `json:"amount_cents"`
	Currency     string `json:"currency"`
}

// CreatePaymentIntent handles POST /checkout/payment-intent
//
// The amount is priced from the catalog, not from the cart snapshot, so it
// matches what PlaceOrder will charge.
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	const op = "checkout.payment_intent"
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	var req paymentIntentRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart := h.carts.Load(r)
	if cart.IsEmpty() {
		handler.ErrorResponse(w, r, domain.ErrCartEmpty)
		return
	}

	amount, err := h.livePrice(r, cart)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	pi, err := h.payments.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		AmountCents:   amount,
		Currency:      h.currency,
		CustomerEmail: req.CustomerEmail,
		Description:   "Skein order",
		Metadata: map[string]string{
			"item_count": strconv.Itoa(cart.ItemCount()),
			"lines":      strconv.Itoa(len(cart.Lines)),
		},
	})
	if err != nil {
		if errors.Is(err, billing.ErrAmountTooSmall) {
			handler.ErrorResponse(w, r, domain.WrapError(err, domain.EINVALID, op, "Order total is below the minimum charge"))
			return
		}
		handler.ErrorResponse(w, r, domain.Internal(err, op, "failed to create payment intent"))
		return
	}

	logger.Info("payment intent created", "payment_id", pi.ID, "amount_cents", pi.AmountCents)
	handler.WriteJSON(w, http.StatusCreated, PaymentIntentResponse{
		PaymentID:    pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.AmountCents,
		Currency:     pi.Currency,
	})
}

// livePrice totals the cart at current catalog prices.
func (h *CheckoutHandler) livePrice(r *http.Request, cart domain.Cart) (int32, error) {
	prices := make(map[uuid.UUID]int32, len(cart.Lines))
	var total int64
	for _, l := range cart.Lines {
		price, ok := prices[l.ProductID]
		if !ok {
			p, err := h.inventory.ProductStock(r.Context(), l.ProductID.String())
			if err != nil {
				return 0, err
			}
			price = p.PriceCents
			prices[l.ProductID] = price
		}
		total += int64(price) * int64(l.Quantity)
	}
	if total > int64(^uint32(0)>>1) {
		return 0, domain.Invalid("checkout.payment_intent", "Order total is too large")
	}
	return int32(total), nil
}

type checkoutLineRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	ColorID        string `json:"color_id,omitempty" validate:"omitempty,uuid"`
	Size           string `json:"size,omitempty" validate:"max=8"`
	Title          string `json:"title,omitempty" validate:"max=200"`
	UnitPriceCents int32  `json:"unit_price_cents,omitempty" validate:"gte=0"`
	Quantity       int32  `json:"quantity" validate:"gte=1,lte=1000"`
}

type placeOrderRequest struct {
	CustomerName  string         `json:"customer_name" validate:"required,max=200"`
	CustomerEmail string         `json:"customer_email" validate:"required,email,max=254"`
	Shipping      domain.Address `json:"shipping"`
	PaymentID     string         `json:"payment_id" validate:"required,max=255"`
	// Lines overrides the cart cookie. Clients that keep their own cart, and
	// retries after the cookie was cleared, send the lines explicitly.
	Lines []checkoutLineRequest `json:"lines,omitempty" validate:"omitempty,max=100,dive"`
}

// PlaceOrder handles POST /checkout
//
// The payment must have succeeded with the provider before any stock is
// touched, and its amount must equal the order total at live prices. Repeating the request with the same payment id returns the order
// already placed. On success the cart cookie is cleared.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	const op = "checkout.place_order"
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	var req placeOrderRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	lines, err := h.lines(op, r, req.Lines)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	shipping, err := h.addresses.Validate(ctx, req.Shipping)
	if err != nil {
		handler.ErrorResponse(w, r, shippingError(op, err))
		return
	}

	pi, err := h.payments.GetPaymentIntent(ctx, billing.GetPaymentIntentParams{PaymentIntentID: req.PaymentID})
	if err != nil {
		if errors.Is(err, billing.ErrPaymentIntentNotFound) {
			handler.ErrorResponse(w, r, ErrPaymentNotFound)
			return
		}
		handler.ErrorResponse(w, r, domain.Internal(err, op, "failed to verify payment"))
		return
	}
	if !pi.Succeeded() {
		telemetry.Business.RecordCheckoutRejected("payment")
		logger.Info("checkout with unconfirmed payment", "payment_id", pi.ID, "payment_status", pi.Status)
		handler.ErrorResponse(w, r, domain.ErrPaymentNotConfirmed)
		return
	}

	order, err := h.checkout.PlaceOrder(ctx, domain.CheckoutRequest{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Shipping:      shipping,
		PaymentID:     pi.ID,
		Lines:         lines,
		ChargedCents:  &pi.AmountCents,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.carts.Clear(w)
	handler.WriteJSON(w, http.StatusCreated, order)
}

// shippingError moves address field errors under the "shipping." prefix
// used by the request body.
func shippingError(op string, err error) error {
	fields := domain.GetValidationFields(err)
	if fields == nil {
		return domain.WrapError(err, domain.EINVALID, op, "Shipping address could not be verified")
	}
	prefixed := make(map[string]string, len(fields))
	for f, msg := range fields {
		prefixed["shipping."+f] = msg
	}
	return &domain.ValidationError{Op: op, Fields: prefixed}
}

// lines returns the explicit request lines, or the cookie cart when none
// were sent.
func (h *CheckoutHandler) lines(op string, r *http.Request, in []checkoutLineRequest) ([]domain.CheckoutLine, error) {
	if len(in) == 0 {
		cart := h.carts.Load(r)
		if cart.IsEmpty() {
			return nil, domain.ErrCartEmpty
		}
		return cart.CheckoutLines(), nil
	}

	lines := make([]domain.CheckoutLine, 0, len(in))
	var verr error
	for i, l := range in {
		size, err := domain.ParseSize(l.Size)
		if err != nil {
			verr = domain.AddFieldError(verr, domain.LineField(i, "size"), "unknown size")
			continue
		}
		line := domain.CheckoutLine{
			ProductID:      uuid.MustParse(l.ProductID),
			Size:           size,
			Title:          l.Title,
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
		}
		if l.ColorID != "" {
			line.ColorID = uuid.MustParse(l.ColorID)
		}
		lines = append(lines, line)
	}
	if ve, ok := verr.(*domain.ValidationError); ok {
		ve.Op = op
		return nil, ve
	}
	return lines, nil
}
