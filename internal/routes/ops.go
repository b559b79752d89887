package routes

import (
	"net/http"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
	"github.com/dukerupert/skein/internal/router"
)

// RegisterOpsRoutes registers the health check and the Prometheus scrape
// endpoint, and answers unmatched routes with the JSON error envelope.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.Health)
	if deps.Metrics != nil {
		r.Handle("GET", "/metrics", deps.Metrics)
	}
	r.Fallback(unmatched)
}

func unmatched(w http.ResponseWriter, req *http.Request, status int) {
	if status == http.StatusMethodNotAllowed {
		handler.ErrorResponse(w, req, domain.Errorf(domain.EMETHOD, "router", "Method not allowed"))
		return
	}
	handler.ErrorResponse(w, req, domain.Errorf(domain.ENOTFOUND, "router", "Route not found"))
}
