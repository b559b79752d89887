package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, status, total_cents, customer_name, customer_email,
    shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_postal_code, shipping_country,
    payment_id, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.Status,
		&i.TotalCents,
		&i.CustomerName,
		&i.CustomerEmail,
		&i.ShippingLine1,
		&i.ShippingLine2,
		&i.ShippingCity,
		&i.ShippingState,
		&i.ShippingPostalCode,
		&i.ShippingCountry,
		&i.PaymentID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type CreateOrderParams struct {
	OrderNumber        string      `json:"order_number"`
	Status             string      `json:"status"`
	TotalCents         int32       `json:"total_cents"`
	CustomerName       string      `json:"customer_name"`
	CustomerEmail      string      `json:"customer_email"`
	ShippingLine1      string      `json:"shipping_line1"`
	ShippingLine2      pgtype.Text `json:"shipping_line2"`
	ShippingCity       string      `json:"shipping_city"`
	ShippingState      pgtype.Text `json:"shipping_state"`
	ShippingPostalCode string      `json:"shipping_postal_code"`
	ShippingCountry    string      `json:"shipping_country"`
	PaymentID          pgtype.Text `json:"payment_id"`
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    order_number, status, total_cents, customer_name, customer_email,
    shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_postal_code, shipping_country,
    payment_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + orderColumns + `
`

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.Status,
		arg.TotalCents,
		arg.CustomerName,
		arg.CustomerEmail,
		arg.ShippingLine1,
		arg.ShippingLine2,
		arg.ShippingCity,
		arg.ShippingState,
		arg.ShippingPostalCode,
		arg.ShippingCountry,
		arg.PaymentID,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE
`

// GetOrderForUpdate locks the order row until the surrounding transaction ends.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const getOrderByNumber = `-- name: GetOrderByNumber :one
SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1
`

func (q *Queries) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumber, orderNumber))
}

const getOrderByPaymentID = `-- name: GetOrderByPaymentID :one
SELECT ` + orderColumns + ` FROM orders WHERE payment_id = $1
`

func (q *Queries) GetOrderByPaymentID(ctx context.Context, paymentID string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByPaymentID, paymentID))
}

type ListOrdersParams struct {
	Status pgtype.Text `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3
`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
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

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM orders WHERE ($1::text IS NULL OR status = $1)
`

func (q *Queries) CountOrders(ctx context.Context, status pgtype.Text) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrders, status).Scan(&count)
	return count, err
}

type UpdateOrderStatusParams struct {
	ID     pgtype.UUID `json:"id"`
	Status string      `json:"status"`
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const orderLineColumns = `id, order_id, position, product_id, color_id, size, title, unit_price_cents, quantity, subtotal_cents, stock_reserved`

func scanOrderLine(row interface{ Scan(...any) error }) (OrderLine, error) {
	var i OrderLine
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Position,
		&i.ProductID,
		&i.ColorID,
		&i.Size,
		&i.Title,
		&i.UnitPriceCents,
		&i.Quantity,
		&i.SubtotalCents,
		&i.StockReserved,
	)
	return i, err
}

type CreateOrderLineParams struct {
	OrderID        pgtype.UUID `json:"order_id"`
	Position       int32       `json:"position"`
	ProductID      pgtype.UUID `json:"product_id"`
	ColorID        pgtype.UUID `json:"color_id"`
	Size           pgtype.Text `json:"size"`
	Title          string      `json:"title"`
	UnitPriceCents int32       `json:"unit_price_cents"`
	Quantity       int32       `json:"quantity"`
	SubtotalCents  int32       `json:"subtotal_cents"`
	StockReserved  bool        `json:"stock_reserved"`
}

const createOrderLine = `-- name: CreateOrderLine :one
INSERT INTO order_lines (
    order_id, position, product_id, color_id, size, title,
    unit_price_cents, quantity, subtotal_cents, stock_reserved
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderLineColumns + `
`

func (q *Queries) CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error) {
	row := q.db.QueryRow(ctx, createOrderLine,
		arg.OrderID,
		arg.Position,
		arg.ProductID,
		arg.ColorID,
		arg.Size,
		arg.Title,
		arg.UnitPriceCents,
		arg.Quantity,
		arg.SubtotalCents,
		arg.StockReserved,
	)
	return scanOrderLine(row)
}

const listOrderLines = `-- name: ListOrderLines :many
SELECT ` + orderLineColumns + ` FROM order_lines WHERE order_id = $1 ORDER BY position
`

func (q *Queries) ListOrderLines(ctx context.Context, orderID pgtype.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLines, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderLine
	for rows.Next() {
		i, err := scanOrderLine(rows)
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
