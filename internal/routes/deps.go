package routes

import (
	"net/http"

	"github.com/dukerupert/skein/internal/handler/admin"
	"github.com/dukerupert/skein/internal/handler/storefront"
	"github.com/dukerupert/skein/internal/handler/webhook"
	"github.com/dukerupert/skein/internal/middleware"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	CartHandler     *storefront.CartHandler
	StockHandler    *storefront.StockHandler
	CheckoutHandler *storefront.CheckoutHandler
	OrderHandler    *storefront.OrderLookupHandler
	ReviewHandler   *storefront.ReviewHandler

	// CartLimiter guards cart and stock reads. StrictLimiter guards
	// checkout and review writes.
	CartLimiter   *middleware.RateLimiter
	StrictLimiter *middleware.RateLimiter
}

// AdminDeps contains dependencies for admin routes
type AdminDeps struct {
	Auth middleware.AuthConfig

	OrderHandler     *admin.OrderHandler
	InventoryHandler *admin.InventoryHandler
	ReviewHandler    *admin.ReviewHandler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	StripeHandler *webhook.StripeHandler
}

// OpsDeps contains dependencies for health and metrics endpoints
type OpsDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler
}
