package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

var ErrReviewNotFound = &Error{Code: ENOTFOUND, Message: "Review not found"}

type Review struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Author    string    `json:"author"`
	Rating    int16     `json:"rating"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewReview is the input for adding a review.
type NewReview struct {
	Author string
	Rating int16
	Body   string
}

func (r NewReview) Validate(op string) error {
	var err error
	if strings.TrimSpace(r.Author) == "" {
		err = AddFieldError(err, "author", "is required")
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		err = AddFieldError(err, "rating", "must be between 1 and 5")
	}
	if ve, ok := err.(*ValidationError); ok {
		ve.Op = op
	}
	return err
}

// AverageRating averages ratings rounded half away from zero to two decimals.
// No ratings yields zero.
func AverageRating(ratings []int16) decimal.Decimal {
	if len(ratings) == 0 {
		return decimal.Zero
	}
	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}
	return decimal.NewFromInt(sum).
		DivRound(decimal.NewFromInt(int64(len(ratings))), 2)
}

// ReviewService records reviews and keeps the product rating in step.
type ReviewService interface {
	AddReview(ctx context.Context, productID string, in NewReview) (*Review, error)
	DeleteReview(ctx context.Context, productID, reviewID string) error
	ListReviews(ctx context.Context, productID string) ([]Review, error)

	// RecomputeRating rereads every rating of the product and overwrites the
	// stored average.
	RecomputeRating(ctx context.Context, productID string) (decimal.Decimal, error)
}
