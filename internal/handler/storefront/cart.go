package storefront

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
	"github.com/dukerupert/skein/internal/telemetry"
)

// CartHandler handles all cart-related storefront routes. The cart itself
// lives in the client's cookie; the server only reads the ledger to annotate it.
type CartHandler struct {
	inventory domain.InventoryService
	carts     *CartStore
}

// NewCartHandler creates a new cart handler
func NewCartHandler(inventory domain.InventoryService, carts *CartStore) *CartHandler {
	return &CartHandler{
		inventory: inventory,
		carts:     carts,
	}
}

// CartResponse is the cart as returned by every cart route.
type CartResponse struct {
	Lines      []domain.CartLineStock `json:"lines"`
	ItemCount  int                    `json:"item_count"`
	TotalCents int64                  `json:"total_cents"`
	// CanCheckout is false when the cart is empty or any line asks for more
	// than the ledger currently holds.
	CanCheckout bool `json:"can_checkout"`
}

// lineKeyRequest selects a cart line, or a product selection when adding.
type lineKeyRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	ColorID   string `json:"color_id,omitempty" validate:"omitempty,uuid"`
	Size      string `json:"size,omitempty" validate:"max=8"`
}

func (req lineKeyRequest) key(op string) (domain.CartKey, error) {
	size, err := domain.ParseSize(req.Size)
	if err != nil {
		return domain.CartKey{}, domain.NewValidationError(op, "size", "unknown size")
	}
	key := domain.CartKey{ProductID: uuid.MustParse(req.ProductID), Size: size}
	if req.ColorID != "" {
		key.ColorID = uuid.MustParse(req.ColorID)
	}
	return key, nil
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	cart := h.carts.Load(r)
	h.respond(w, r, http.StatusOK, cart)
}

// AddItem handles POST /cart/items
//
// The product snapshot (title, price, image) is taken from the catalog now
// and kept on the line. Stock is not checked here; the cart view reports it.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	const op = "cart.add_item"
	ctx := r.Context()

	var req lineKeyRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	key, err := req.key(op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.inventory.ProductStock(ctx, key.ProductID.String())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := checkSelection(op, product, key); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart := h.carts.Load(r)
	cart.Add(domain.CartProduct{
		ID:         product.ID,
		Title:      product.Title,
		PriceCents: product.PriceCents,
		ImageURL:   product.ImageURL,
	}, key.ColorID, key.Size)

	if err := h.carts.Save(w, r, cart); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	telemetry.Business.RecordCartUpdate("add")
	h.respond(w, r, http.StatusOK, cart)
}

// Increase handles POST /cart/items/increase
func (h *CartHandler) Increase(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "increase", (*domain.Cart).Increase)
}

// Decrease handles POST /cart/items/decrease
func (h *CartHandler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "decrease", (*domain.Cart).Decrease)
}

// Remove handles POST /cart/items/remove
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "remove", (*domain.Cart).Remove)
}

// Clear handles DELETE /cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.carts.Clear(w)
	telemetry.Business.RecordCartUpdate("clear")
	h.respond(w, r, http.StatusOK, domain.Cart{})
}

// mutate applies a keyed change to the cart. Keys that are not in the cart
// leave it unchanged and the current cart is returned.
func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, action string, apply func(*domain.Cart, domain.CartKey) bool) {
	op := "cart." + action

	var req lineKeyRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	key, err := req.key(op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart := h.carts.Load(r)
	if apply(&cart, key) {
		if err := h.carts.Save(w, r, cart); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		telemetry.Business.RecordCartUpdate(action)
	}
	h.respond(w, r, http.StatusOK, cart)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, status int, cart domain.Cart) {
	lines, err := h.inventory.AnnotateCart(r.Context(), cart)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	canCheckout := len(lines) > 0
	for _, l := range lines {
		if l.ExceedsStock {
			canCheckout = false
			break
		}
	}

	handler.WriteJSON(w, status, CartResponse{
		Lines:       lines,
		ItemCount:   cart.ItemCount(),
		TotalCents:  cart.TotalCents(),
		CanCheckout: canCheckout,
	})
}

// checkSelection rejects selections checkout would refuse: a color from
// another product, a missing color on a colored product, and a missing size
// on a color sold by size.
func checkSelection(op string, product *domain.Product, key domain.CartKey) error {
	if !key.HasColor() {
		if key.Size != "" {
			return domain.NewValidationError(op, "color_id", "is required when a size is selected")
		}
		if product.HasColors() {
			return domain.NewValidationError(op, "color_id", "is required for this product")
		}
		return nil
	}

	color, ok := product.Color(key.ColorID)
	if !ok {
		return domain.NewValidationError(op, "color_id", "does not belong to this product")
	}
	if color.HasVariants() && key.Size == "" {
		return domain.NewValidationError(op, "size", "is required for this color")
	}
	return nil
}
