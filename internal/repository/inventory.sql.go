package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, title, description, price_cents, rating_avg, category_id, image_url, quantity, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.PriceCents,
		&i.RatingAvg,
		&i.CategoryID,
		&i.ImageUrl,
		&i.Quantity,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + ` FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id pgtype.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const countColorsByProduct = `-- name: CountColorsByProduct :one
SELECT count(*) FROM colors WHERE product_id = $1
`

func (q *Queries) CountColorsByProduct(ctx context.Context, productID pgtype.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countColorsByProduct, productID).Scan(&count)
	return count, err
}

// DecrementStockParams drives the conditional decrements used at checkout.
type DecrementStockParams struct {
	ID       pgtype.UUID `json:"id"`
	Quantity int32       `json:"quantity"`
}

// AdjustStockParams drives manual admin adjustments. Op is one of
// "set", "add", "subtract".
type AdjustStockParams struct {
	ID     pgtype.UUID `json:"id"`
	Op     string      `json:"op"`
	Amount int32       `json:"amount"`
}

const decrementProductStock = `-- name: DecrementProductStock :execrows
UPDATE products
SET quantity = quantity - $2, updated_at = now()
WHERE id = $1
  AND quantity >= $2
  AND NOT EXISTS (SELECT 1 FROM colors WHERE colors.product_id = products.id)
`

func (q *Queries) DecrementProductStock(ctx context.Context, arg DecrementStockParams) (int64, error) {
	result, err := q.db.Exec(ctx, decrementProductStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const adjustProductStock = `-- name: AdjustProductStock :one
UPDATE products
SET quantity = CASE $2::text
        WHEN 'set' THEN $3::integer
        WHEN 'add' THEN quantity + $3::integer
        ELSE GREATEST(quantity - $3::integer, 0)
    END,
    updated_at = now()
WHERE id = $1
RETURNING quantity
`

func (q *Queries) AdjustProductStock(ctx context.Context, arg AdjustStockParams) (int32, error) {
	var quantity int32
	err := q.db.QueryRow(ctx, adjustProductStock, arg.ID, arg.Op, arg.Amount).Scan(&quantity)
	return quantity, err
}

type UpdateProductRatingParams struct {
	ID        pgtype.UUID    `json:"id"`
	RatingAvg pgtype.Numeric `json:"rating_avg"`
}

const updateProductRating = `-- name: UpdateProductRating :execrows
UPDATE products SET rating_avg = $2, updated_at = now() WHERE id = $1
`

func (q *Queries) UpdateProductRating(ctx context.Context, arg UpdateProductRatingParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateProductRating, arg.ID, arg.RatingAvg)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const colorColumns = `id, product_id, name, code, quantity, created_at, updated_at`

func scanColor(row interface{ Scan(...any) error }) (Color, error) {
	var i Color
	err := row.Scan(
		&i.ID,
		&i.ProductID,
		&i.Name,
		&i.Code,
		&i.Quantity,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getColor = `-- name: GetColor :one
SELECT ` + colorColumns + ` FROM colors WHERE id = $1
`

func (q *Queries) GetColor(ctx context.Context, id pgtype.UUID) (Color, error) {
	return scanColor(q.db.QueryRow(ctx, getColor, id))
}

type GetColorForProductParams struct {
	ID        pgtype.UUID `json:"id"`
	ProductID pgtype.UUID `json:"product_id"`
}

const getColorForProduct = `-- name: GetColorForProduct :one
SELECT ` + colorColumns + ` FROM colors WHERE id = $1 AND product_id = $2
`

func (q *Queries) GetColorForProduct(ctx context.Context, arg GetColorForProductParams) (Color, error) {
	return scanColor(q.db.QueryRow(ctx, getColorForProduct, arg.ID, arg.ProductID))
}

const listColorsByProduct = `-- name: ListColorsByProduct :many
SELECT ` + colorColumns + ` FROM colors WHERE product_id = $1 ORDER BY name, id
`

func (q *Queries) ListColorsByProduct(ctx context.Context, productID pgtype.UUID) ([]Color, error) {
	rows, err := q.db.Query(ctx, listColorsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Color
	for rows.Next() {
		i, err := scanColor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const decrementColorStock = `-- name: DecrementColorStock :execrows
UPDATE colors
SET quantity = quantity - $2, updated_at = now()
WHERE id = $1
  AND quantity >= $2
  AND NOT EXISTS (SELECT 1 FROM variants WHERE variants.color_id = colors.id)
`

func (q *Queries) DecrementColorStock(ctx context.Context, arg DecrementStockParams) (int64, error) {
	result, err := q.db.Exec(ctx, decrementColorStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const adjustColorStock = `-- name: AdjustColorStock :one
UPDATE colors
SET quantity = CASE $2::text
        WHEN 'set' THEN $3::integer
        WHEN 'add' THEN quantity + $3::integer
        ELSE GREATEST(quantity - $3::integer, 0)
    END,
    updated_at = now()
WHERE id = $1
RETURNING quantity
`

func (q *Queries) AdjustColorStock(ctx context.Context, arg AdjustStockParams) (int32, error) {
	var quantity int32
	err := q.db.QueryRow(ctx, adjustColorStock, arg.ID, arg.Op, arg.Amount).Scan(&quantity)
	return quantity, err
}

const variantColumns = `id, color_id, size, quantity, created_at, updated_at`

func scanVariant(row interface{ Scan(...any) error }) (Variant, error) {
	var i Variant
	err := row.Scan(
		&i.ID,
		&i.ColorID,
		&i.Size,
		&i.Quantity,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectVariants(ctx context.Context, db DBTX, query string, arg pgtype.UUID) ([]Variant, error) {
	rows, err := db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Variant
	for rows.Next() {
		i, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listVariantsByColor = `-- name: ListVariantsByColor :many
SELECT ` + variantColumns + ` FROM variants WHERE color_id = $1 ORDER BY created_at, id
`

func (q *Queries) ListVariantsByColor(ctx context.Context, colorID pgtype.UUID) ([]Variant, error) {
	return collectVariants(ctx, q.db, listVariantsByColor, colorID)
}

const listVariantsByProduct = `-- name: ListVariantsByProduct :many
SELECT v.id, v.color_id, v.size, v.quantity, v.created_at, v.updated_at
FROM variants v
JOIN colors c ON c.id = v.color_id
WHERE c.product_id = $1
ORDER BY v.created_at, v.id
`

func (q *Queries) ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]Variant, error) {
	return collectVariants(ctx, q.db, listVariantsByProduct, productID)
}

type GetVariantByColorAndSizeParams struct {
	ColorID pgtype.UUID `json:"color_id"`
	Size    string      `json:"size"`
}

const getVariantByColorAndSize = `-- name: GetVariantByColorAndSize :one
SELECT ` + variantColumns + ` FROM variants WHERE color_id = $1 AND size = $2
`

func (q *Queries) GetVariantByColorAndSize(ctx context.Context, arg GetVariantByColorAndSizeParams) (Variant, error) {
	return scanVariant(q.db.QueryRow(ctx, getVariantByColorAndSize, arg.ColorID, arg.Size))
}

const countVariantsByColor = `-- name: CountVariantsByColor :one
SELECT count(*) FROM variants WHERE color_id = $1
`

func (q *Queries) CountVariantsByColor(ctx context.Context, colorID pgtype.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countVariantsByColor, colorID).Scan(&count)
	return count, err
}

const decrementVariantStock = `-- name: DecrementVariantStock :execrows
UPDATE variants
SET quantity = quantity - $2, updated_at = now()
WHERE id = $1 AND quantity >= $2
`

func (q *Queries) DecrementVariantStock(ctx context.Context, arg DecrementStockParams) (int64, error) {
	result, err := q.db.Exec(ctx, decrementVariantStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const adjustVariantStock = `-- name: AdjustVariantStock :one
UPDATE variants
SET quantity = CASE $2::text
        WHEN 'set' THEN $3::integer
        WHEN 'add' THEN quantity + $3::integer
        ELSE GREATEST(quantity - $3::integer, 0)
    END,
    updated_at = now()
WHERE id = $1
RETURNING quantity
`

func (q *Queries) AdjustVariantStock(ctx context.Context, arg AdjustStockParams) (int32, error) {
	var quantity int32
	err := q.db.QueryRow(ctx, adjustVariantStock, arg.ID, arg.Op, arg.Amount).Scan(&quantity)
	return quantity, err
}

type CreateVariantParams struct {
	ColorID  pgtype.UUID `json:"color_id"`
	Size     string      `json:"size"`
	Quantity int32       `json:"quantity"`
}

const createVariant = `-- name: CreateVariant :one
INSERT INTO variants (color_id, size, quantity)
VALUES ($1, $2, $3)
RETURNING ` + variantColumns + `
`

func (q *Queries) CreateVariant(ctx context.Context, arg CreateVariantParams) (Variant, error) {
	return scanVariant(q.db.QueryRow(ctx, createVariant, arg.ColorID, arg.Size, arg.Quantity))
}
