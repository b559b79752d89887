package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/skein/internal/billing"
	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
	"github.com/dukerupert/skein/internal/middleware"
	"github.com/dukerupert/skein/internal/telemetry"
)

// maxPayloadBytes bounds a webhook body. Stripe events are far smaller.
const maxPayloadBytes = 64 << 10

var errMissingSignature = domain.Errorf(domain.EINVALID, "webhook.stripe", "Missing signature")

// StripeHandler handles Stripe webhook events
type StripeHandler struct {
	orders domain.OrderService
	secret string
}

// NewStripeHandler creates a new Stripe webhook handler. secret is the
// endpoint signing secret from the Stripe dashboard.
func NewStripeHandler(orders domain.OrderService, secret string) *StripeHandler {
	return &StripeHandler{orders: orders, secret: secret}
}

// HandleWebhook processes incoming Stripe webhook events
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/webhooks/stripe
//	stripe trigger charge.refunded
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := middleware.GetLogger(r.Context())

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, "webhook.stripe", "Payload too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		handler.ErrorResponse(w, r, errMissingSignature)
		return
	}

	event, err := billing.ParseStripeEvent(payload, signature, h.secret)
	if err != nil {
		logger.Warn("webhook rejected", "error", err)
		if errors.Is(err, billing.ErrInvalidSignature) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "webhook.stripe", "Invalid signature"))
		} else {
			handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Malformed event"))
		}
		return
	}

	logger = logger.With("event_id", event.ID, "event_type", event.Type)

	var outcome string
	switch event.Type {
	case billing.EventChargeRefunded:
		outcome, err = h.handleChargeRefunded(r.Context(), logger, event)

	case billing.EventPaymentSucceeded:
		logger.Info("payment captured", "payment_id", event.PaymentIntentID, "amount_cents", event.AmountCents)
		outcome = "logged"

	case billing.EventPaymentFailed:
		logger.Info("payment failed", "payment_id", event.PaymentIntentID, "failure_code", event.FailureCode)
		outcome = "logged"

	default:
		logger.Debug("unhandled event type")
		outcome = "ignored"
	}

	if err != nil {
		telemetry.Business.RecordWebhook(event.Type, "error", time.Since(start).Seconds())
		// A non-2xx makes Stripe retry the delivery.
		handler.ErrorResponse(w, r, err)
		return
	}

	telemetry.Business.RecordWebhook(event.Type, outcome, time.Since(start).Seconds())
	handler.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleChargeRefunded cancels and restocks the order behind a fully
// refunded payment. Partial refunds leave the order alone.
func (h *StripeHandler) handleChargeRefunded(ctx context.Context, logger *slog.Logger, event *billing.Event) (string, error) {
	if event.PaymentIntentID == "" {
		logger.Info("refund without payment intent")
		return "ignored", nil
	}
	logger = logger.With("payment_id", event.PaymentIntentID)

	if !event.Refunded {
		logger.Info("partial refund, order unchanged", "amount_refunded_cents", event.AmountCents)
		return "partial", nil
	}

	order, err := h.orders.CancelRefunded(ctx, event.PaymentIntentID)
	switch {
	case err == nil:
		logger.Info("refunded order cancelled", "order_number", order.OrderNumber)
		return "cancelled", nil

	case domain.IsCode(err, domain.ENOTFOUND):
		logger.Info("refund for unknown payment")
		return "unmatched", nil

	case domain.IsCode(err, domain.ECONFLICT):
		logger.Warn("refunded order can no longer be cancelled", "error", domain.ErrorMessage(err))
		return "conflict", nil

	default:
		return "", err
	}
}
