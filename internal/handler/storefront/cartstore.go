package storefront

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/skein/internal/cookie"
	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/middleware"
)

const (
	// DefaultCartMaxAge keeps an idle cart for 30 days.
	DefaultCartMaxAge = 30 * 24 * 60 * 60

	// maxCartBytes keeps the sealed, base64 cookie under the 4KB browsers accept.
	maxCartBytes = 2800
)

// ErrCartFull is returned when the cart no longer fits in its cookie.
var ErrCartFull = &domain.Error{Code: domain.ECONFLICT, Message: "Cart is full"}

// CartStore keeps the cart in a sealed cookie.
type CartStore struct {
	sealer *cookie.Sealer
	maxAge int
}

// NewCartStore creates a cart store. maxAge <= 0 uses DefaultCartMaxAge.
func NewCartStore(sealer *cookie.Sealer, maxAge int) *CartStore {
	if maxAge <= 0 {
		maxAge = DefaultCartMaxAge
	}
	return &CartStore{sealer: sealer, maxAge: maxAge}
}

// Load returns the request's cart. A missing, forged or unreadable cookie
// yields an empty cart; the client cannot make the server fail by sending
// garbage.
func (s *CartStore) Load(r *http.Request) domain.Cart {
	var cart domain.Cart

	raw, err := s.sealer.Get(r, cookie.CartCookieName)
	if err != nil {
		if !cookie.IsMissing(err) {
			middleware.GetLogger(r.Context()).Warn("discarding unreadable cart cookie", "error", err)
		}
		return cart
	}

	if err := json.Unmarshal(raw, &cart); err != nil {
		middleware.GetLogger(r.Context()).Warn("discarding malformed cart", "error", err)
		return domain.Cart{}
	}
	cart.Normalize()
	return cart
}

// Save writes the cart back. An empty cart clears the cookie.
func (s *CartStore) Save(w http.ResponseWriter, r *http.Request, cart domain.Cart) error {
	if cart.IsEmpty() {
		s.Clear(w)
		return nil
	}

	raw, err := json.Marshal(cart)
	if err != nil {
		return domain.Internal(err, "cart.save", "failed to encode cart")
	}
	if len(raw) > maxCartBytes {
		return ErrCartFull
	}
	if err := s.sealer.Set(w, cookie.CartCookieName, raw, s.maxAge); err != nil {
		return domain.Internal(err, "cart.save", "failed to seal cart")
	}

	middleware.GetLogger(r.Context()).Debug("cart saved",
		slog.Int("lines", len(cart.Lines)),
		slog.Int("items", cart.ItemCount()),
	)
	return nil
}

// Clear removes the cart cookie.
func (s *CartStore) Clear(w http.ResponseWriter) {
	s.sealer.Clear(w, cookie.CartCookieName)
}
