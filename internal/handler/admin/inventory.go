package admin

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
	"github.com/dukerupert/skein/internal/middleware"
)

// InventoryHandler adjusts stock buckets and manages size variants.
type InventoryHandler struct {
	inventory domain.InventoryService
}

// NewInventoryHandler creates a new admin inventory handler
func NewInventoryHandler(inventory domain.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

type adjustRequest struct {
	TargetID string `json:"target_id" validate:"required,uuid"`
	Kind     string `json:"kind" validate:"required,oneof=product color variant"`
	Op       string `json:"op" validate:"required,oneof=set add subtract"`
	Amount   int32  `json:"amount" validate:"gte=0"`
}

// Adjust handles POST /admin/stock/adjust
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	level, err := h.inventory.Adjust(r.Context(), domain.StockAdjustment{
		TargetID: uuid.MustParse(req.TargetID),
		Kind:     domain.StockKind(req.Kind),
		Op:       domain.AdjustOp(req.Op),
		Amount:   req.Amount,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, level)
}

type addVariantRequest struct {
	Size     string `json:"size" validate:"required,max=8"`
	Quantity int32  `json:"quantity" validate:"gte=0"`
}

// AddVariant handles POST /admin/colors/{id}/variants
func (h *InventoryHandler) AddVariant(w http.ResponseWriter, r *http.Request) {
	var req addVariantRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	variant, err := h.inventory.AddVariant(r.Context(), r.PathValue("id"), req.Size, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("variant added",
		"color_id", variant.ColorID,
		"size", variant.Size,
		"quantity", variant.Quantity,
	)
	handler.WriteJSON(w, http.StatusCreated, variant)
}

// ProductStock handles GET /admin/products/{id}/stock
func (h *InventoryHandler) ProductStock(w http.ResponseWriter, r *http.Request) {
	product, err := h.inventory.ProductStock(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, product)
}
