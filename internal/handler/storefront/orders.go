package storefront

import (
	"net/http"
	"strings"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
)

// OrderLookupHandler lets a guest look up their own order.
type OrderLookupHandler struct {
	orders domain.OrderService
}

// NewOrderLookupHandler creates a new order lookup handler
func NewOrderLookupHandler(orders domain.OrderService) *OrderLookupHandler {
	return &OrderLookupHandler{orders: orders}
}

// Get handles GET /orders/{number}?email=...
//
// Guests have no account, so the order number must be paired with the email
// used at checkout. A mismatch looks exactly like an unknown order.
func (h *OrderLookupHandler) Get(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		handler.ErrorResponse(w, r, domain.NewValidationError("order.lookup", "email", "is required"))
		return
	}

	order, err := h.orders.GetOrderByNumber(r.Context(), r.PathValue("number"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if !strings.EqualFold(order.CustomerEmail, email) {
		handler.ErrorResponse(w, r, domain.ErrOrderNotFound)
		return
	}

	order.PaymentID = ""
	handler.WriteJSON(w, http.StatusOK, order)
}
