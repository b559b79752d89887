package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// ProductQuerier covers product rows and the product-level stock bucket.
type ProductQuerier interface {
	GetProduct(ctx context.Context, id pgtype.UUID) (Product, error)
	CountColorsByProduct(ctx context.Context, productID pgtype.UUID) (int64, error)
	DecrementProductStock(ctx context.Context, arg DecrementStockParams) (int64, error)
	AdjustProductStock(ctx context.Context, arg AdjustStockParams) (int32, error)
	UpdateProductRating(ctx context.Context, arg UpdateProductRatingParams) (int64, error)
}

// ColorQuerier covers colors and the color-level stock bucket.
type ColorQuerier interface {
	GetColor(ctx context.Context, id pgtype.UUID) (Color, error)
	GetColorForProduct(ctx context.Context, arg GetColorForProductParams) (Color, error)
	ListColorsByProduct(ctx context.Context, productID pgtype.UUID) ([]Color, error)
	DecrementColorStock(ctx context.Context, arg DecrementStockParams) (int64, error)
	AdjustColorStock(ctx context.Context, arg AdjustStockParams) (int32, error)
}

// VariantQuerier covers size variants.
type VariantQuerier interface {
	ListVariantsByColor(ctx context.Context, colorID pgtype.UUID) ([]Variant, error)
	ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]Variant, error)
	GetVariantByColorAndSize(ctx context.Context, arg GetVariantByColorAndSizeParams) (Variant, error)
	CountVariantsByColor(ctx context.Context, colorID pgtype.UUID) (int64, error)
	DecrementVariantStock(ctx context.Context, arg DecrementStockParams) (int64, error)
	AdjustVariantStock(ctx context.Context, arg AdjustStockParams) (int32, error)
	CreateVariant(ctx context.Context, arg CreateVariantParams) (Variant, error)
}

type OrderQuerier interface {
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	GetOrder(ctx context.Context, id pgtype.UUID) (Order, error)
	GetOrderForUpdate(ctx context.Context, id pgtype.UUID) (Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (Order, error)
	ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error)
	CountOrders(ctx context.Context, status pgtype.Text) (int64, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error)
	CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error)
	ListOrderLines(ctx context.Context, orderID pgtype.UUID) ([]OrderLine, error)
}

type ReviewQuerier interface {
	CreateReview(ctx context.Context, arg CreateReviewParams) (Review, error)
	DeleteReview(ctx context.Context, arg DeleteReviewParams) (int64, error)
	ListReviewsByProduct(ctx context.Context, productID pgtype.UUID) ([]Review, error)
	ListReviewRatings(ctx context.Context, productID pgtype.UUID) ([]int16, error)
}

// JobQuerier is the notification outbox.
type JobQuerier interface {
	EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error)
	ClaimNextJob(ctx context.Context, arg ClaimNextJobParams) (Job, error)
	CompleteJob(ctx context.Context, id pgtype.UUID) error
	FailJob(ctx context.Context, arg FailJobParams) (Job, error)
}

type Querier interface {
	ProductQuerier
	ColorQuerier
	VariantQuerier
	OrderQuerier
	ReviewQuerier
	JobQuerier
}

var _ Querier = (*Queries)(nil)
