package storefront

import (
	"net/http"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
)

// StockHandler serves the advisory stock reads behind the product page.
type StockHandler struct {
	inventory domain.InventoryService
}

// NewStockHandler creates a new stock handler
func NewStockHandler(inventory domain.InventoryService) *StockHandler {
	return &StockHandler{inventory: inventory}
}

// Level handles GET /stock?color_id=...&size=...
func (h *StockHandler) Level(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	colorID := q.Get("color_id")
	if colorID == "" {
		handler.ErrorResponse(w, r, domain.NewValidationError("stock.level", "color_id", "is required"))
		return
	}

	level, err := h.inventory.StockFor(r.Context(), colorID, q.Get("size"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, level)
}

// Product handles GET /products/{id}
func (h *StockHandler) Product(w http.ResponseWriter, r *http.Request) {
	product, err := h.inventory.ProductStock(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, product)
}
