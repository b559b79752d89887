package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/repository"
	"github.com/dukerupert/skein/internal/telemetry"
)

type reviewService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewReviewService(store repository.Store, logger *slog.Logger) domain.ReviewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &reviewService{store: store, logger: logger}
}

func (s *reviewService) AddReview(ctx context.Context, productID string, in domain.NewReview) (*domain.Review, error) {
	const op = "review.add"

	id, err := parseID(op, "product_id", productID)
	if err != nil {
		return nil, err
	}
	in.Author = strings.TrimSpace(in.Author)
	in.Body = strings.TrimSpace(in.Body)
	if err := in.Validate(op); err != nil {
		return nil, err
	}

	var review domain.Review
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := requireProduct(ctx, q, op, id); err != nil {
			return err
		}
		r, err := q.CreateReview(ctx, repository.CreateReviewParams{
			ProductID: pgUUID(id),
			Author:    in.Author,
			Rating:    in.Rating,
			Body:      pgText(in.Body),
		})
		if err != nil {
			return domain.Internal(err, op, "failed to create review")
		}
		review = toReview(r)
		_, err = recompute(ctx, q, op, pgUUID(id))
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.Business.RecordReviewChange("add")
	return &review, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, productID, reviewID string) error {
	const op = "review.delete"

	pid, err := parseID(op, "product_id", productID)
	if err != nil {
		return err
	}
	rid, err := parseID(op, "review_id", reviewID)
	if err != nil {
		return err
	}

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		n, err := q.DeleteReview(ctx, repository.DeleteReviewParams{ID: pgUUID(rid), ProductID: pgUUID(pid)})
		if err != nil {
			return domain.Internal(err, op, "failed to delete review")
		}
		if n == 0 {
			return domain.ErrReviewNotFound
		}
		_, err = recompute(ctx, q, op, pgUUID(pid))
		return err
	})
	if err != nil {
		return err
	}

	telemetry.Business.RecordReviewChange("delete")
	return nil
}

func (s *reviewService) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	const op = "review.list"

	id, err := parseID(op, "product_id", productID)
	if err != nil {
		return nil, err
	}
	if err := requireProduct(ctx, s.store, op, id); err != nil {
		return nil, err
	}
	rows, err := s.store.ListReviewsByProduct(ctx, pgUUID(id))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reviews")
	}
	reviews := make([]domain.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, toReview(r))
	}
	return reviews, nil
}

func (s *reviewService) RecomputeRating(ctx context.Context, productID string) (decimal.Decimal, error) {
	const op = "review.recompute_rating"

	id, err := parseID(op, "product_id", productID)
	if err != nil {
		return decimal.Zero, err
	}

	var avg decimal.Decimal
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := requireProduct(ctx, q, op, id); err != nil {
			return err
		}
		avg, err = recompute(ctx, q, op, pgUUID(id))
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return avg, nil
}

func requireProduct(ctx context.Context, q repository.ProductQuerier, op string, id uuid.UUID) error {
	if _, err := q.GetProduct(ctx, pgUUID(id)); err != nil {
		if repository.IsNotFound(err) {
			return domain.NotFound(op, "product", id.String())
		}
		return domain.Internal(err, op, "failed to load product")
	}
	return nil
}

// recompute rereads every rating of the product and overwrites its average.
func recompute(ctx context.Context, q repository.Querier, op string, productID pgtype.UUID) (decimal.Decimal, error) {
	ratings, err := q.ListReviewRatings(ctx, productID)
	if err != nil {
		return decimal.Zero, domain.Internal(err, op, "failed to read ratings")
	}
	avg := domain.AverageRating(ratings)
	if _, err := q.UpdateProductRating(ctx, repository.UpdateProductRatingParams{
		ID:        productID,
		RatingAvg: numericFromDecimal(avg),
	}); err != nil {
		return decimal.Zero, domain.Internal(err, op, "failed to store rating")
	}
	return avg, nil
}
