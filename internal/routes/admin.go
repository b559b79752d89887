package routes

import (
	"github.com/dukerupert/skein/internal/middleware"
	"github.com/dukerupert/skein/internal/router"
)

// RegisterAdminRoutes registers all admin routes.
// All routes require a bearer token with the admin role.
func RegisterAdminRoutes(r *router.Router, deps AdminDeps) {
	admin := r.Group(middleware.RequireAdmin(deps.Auth))

	// Order management
	admin.Get("/admin/orders", deps.OrderHandler.List)
	admin.Get("/admin/orders/{id}", deps.OrderHandler.Get)
	admin.Patch("/admin/orders/{id}/status", deps.OrderHandler.UpdateStatus)

	// Stock ledger
	admin.Post("/admin/stock/adjust", deps.InventoryHandler.Adjust)
	admin.Post("/admin/colors/{id}/variants", deps.InventoryHandler.AddVariant)
	admin.Get("/admin/products/{id}/stock", deps.InventoryHandler.ProductStock)

	// Review moderation
	admin.Delete("/admin/products/{id}/reviews/{reviewID}", deps.ReviewHandler.Delete)
	admin.Post("/admin/products/{id}/rating/recompute", deps.ReviewHandler.RecomputeRating)
}
