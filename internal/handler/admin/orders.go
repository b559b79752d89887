package admin

import (
	"net/http"
	"strconv"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
	"github.com/dukerupert/skein/internal/middleware"
)

// OrderHandler lists orders and moves them through their lifecycle.
type OrderHandler struct {
	orders domain.OrderService
}

// NewOrderHandler creates a new admin order handler
func NewOrderHandler(orders domain.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List handles GET /admin/orders?status=&limit=&offset=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "admin.orders.list"

	filter, err := parseOrderFilter(op, r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	page, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, page)
}

func parseOrderFilter(op string, r *http.Request) (domain.OrderFilter, error) {
	var filter domain.OrderFilter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status, err := domain.ParseOrderStatus(s)
		if err != nil {
			return filter, domain.NewValidationError(op, "status", "is not a known order status")
		}
		filter.Status = &status
	}

	var verr error
	for _, p := range []struct {
		name string
		dst  *int32
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 0 {
			if verr == nil {
				verr = domain.NewValidationError(op, p.name, "must be a non-negative integer")
			} else {
				domain.AddFieldError(verr, p.name, "must be a non-negative integer")
			}
			continue
		}
		*p.dst = int32(n)
	}
	return filter, verr
}

// Get handles GET /admin/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

// UpdateStatus handles PATCH /admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("admin changed order status",
		"order_number", order.OrderNumber,
		"status", order.Status,
	)
	handler.WriteJSON(w, http.StatusOK, order)
}
