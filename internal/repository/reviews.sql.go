package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const reviewColumns = `id, product_id, author, rating, body, created_at`

func scanReview(row interface{ Scan(...any) error }) (Review, error) {
	var i Review
	err := row.Scan(
		&i.ID,
		&i.ProductID,
		&i.Author,
		&i.Rating,
		&i.Body,
		&i.CreatedAt,
	)
	return i, err
}

type CreateReviewParams struct {
	ProductID pgtype.UUID `json:"product_id"`
	Author    string      `json:"author"`
	Rating    int16       `json:"rating"`
	Body      pgtype.Text `json:"body"`
}

const createReview = `-- name: CreateReview :one
INSERT INTO reviews (product_id, author, rating, body)
VALUES ($1, $2, $3, $4)
RETURNING ` + reviewColumns + `
`

func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) (Review, error) {
	return scanReview(q.db.QueryRow(ctx, createReview, arg.ProductID, arg.Author, arg.Rating, arg.Body))
}

type DeleteReviewParams struct {
	ID        pgtype.UUID `json:"id"`
	ProductID pgtype.UUID `json:"product_id"`
}

const deleteReview = `-- name: DeleteReview :execrows
DELETE FROM reviews WHERE id = $1 AND product_id = $2
`

func (q *Queries) DeleteReview(ctx context.Context, arg DeleteReviewParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteReview, arg.ID, arg.ProductID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listReviewsByProduct = `-- name: ListReviewsByProduct :many
SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC, id
`

func (q *Queries) ListReviewsByProduct(ctx context.Context, productID pgtype.UUID) ([]Review, error) {
	rows, err := q.db.Query(ctx, listReviewsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Review
	for rows.Next() {
		i, err := scanReview(rows)
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

const listReviewRatings = `-- name: ListReviewRatings :many
SELECT rating FROM reviews WHERE product_id = $1
`

func (q *Queries) ListReviewRatings(ctx context.Context, productID pgtype.UUID) ([]int16, error) {
	rows, err := q.db.Query(ctx, listReviewRatings, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int16
	for rows.Next() {
		var rating int16
		if err := rows.Scan(&rating); err != nil {
			return nil, err
		}
		items = append(items, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
