package storefront

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/handler"
)

// ReviewHandler serves product reviews.
type ReviewHandler struct {
	reviews domain.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews domain.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// ReviewList is the response of List.
type ReviewList struct {
	Reviews   []domain.Review `json:"reviews"`
	Count     int             `json:"count"`
	RatingAvg decimal.Decimal `json:"rating_avg"`
}

// List handles GET /products/{id}/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListReviews(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	ratings := make([]int16, 0, len(reviews))
	for _, rv := range reviews {
		ratings = append(ratings, rv.Rating)
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}

	handler.WriteJSON(w, http.StatusOK, ReviewList{
		Reviews:   reviews,
		Count:     len(reviews),
		RatingAvg: domain.AverageRating(ratings),
	})
}

type addReviewRequest struct {
	Author string `json:"author" validate:"required,max=100"`
	Rating int16  `json:"rating" validate:"gte=1,lte=5"`
	Body   string `json:"body,omitempty" validate:"max=5000"`
}

// Add handles POST /products/{id}/reviews
func (h *ReviewHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addReviewRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	review, err := h.reviews.AddReview(r.Context(), r.PathValue("id"), domain.NewReview{
		Author: req.Author,
		Rating: req.Rating,
		Body:   req.Body,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, review)
}
