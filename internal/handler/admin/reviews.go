package admin

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
	"github.com/dukerupert/skein/internal/middleware"
)

// ReviewHandler moderates reviews.
type ReviewHandler struct {
	reviews domain.ReviewService
}

// NewReviewHandler creates a new admin review handler
func NewReviewHandler(reviews domain.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Delete handles DELETE /admin/products/{id}/reviews/{reviewID}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID, reviewID := r.PathValue("id"), r.PathValue("reviewID")
	if err := h.reviews.DeleteReview(r.Context(), productID, reviewID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("review deleted", "product_id", productID, "review_id", reviewID)
	w.WriteHeader(http.StatusNoContent)
}

// RatingResponse is the response of RecomputeRating.
type RatingResponse struct {
	ProductID string          `json:"product_id"`
	RatingAvg decimal.Decimal `json:"rating_avg"`
}

// RecomputeRating handles POST /admin/products/{id}/rating/recompute
func (h *ReviewHandler) RecomputeRating(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")
	avg, err := h.reviews.RecomputeRating(r.Context(), productID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, RatingResponse{ProductID: productID, RatingAvg: avg})
}
