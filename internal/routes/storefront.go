package routes

import (
	"github.com/dukerupert/skein/internal/router"
)

// RegisterStorefrontRoutes registers all customer-facing routes: the cart,
// stock lookups, checkout, guest order lookup and reviews.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	shop := r.Group(deps.CartLimiter.Middleware)

	// Shopping cart
	shop.Get("/cart", deps.CartHandler.View)
	shop.Post("/cart/items", deps.CartHandler.AddItem)
	shop.Post("/cart/items/increase", deps.CartHandler.Increase)
	shop.Post("/cart/items/decrease", deps.CartHandler.Decrease)
	shop.Post("/cart/items/remove", deps.CartHandler.Remove)
	shop.Delete("/cart", deps.CartHandler.Clear)

	// Catalog stock
	shop.Get("/stock", deps.StockHandler.Level)
	shop.Get("/products/{id}", deps.StockHandler.Product)
	shop.Get("/products/{id}/reviews", deps.ReviewHandler.List)

	// Order lookup
	shop.Get("/orders/{number}", deps.OrderHandler.Get)

	// Writes that touch payments or public content get the strict limiter
	strict := r.Group(deps.StrictLimiter.Middleware)
	strict.Post("/checkout/payment-intent", deps.CheckoutHandler.CreatePaymentIntent)
	strict.Post("/checkout", deps.CheckoutHandler.PlaceOrder)
	strict.Post("/products/{id}/reviews", deps.ReviewHandler.Add)
}
