package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Product struct {
	ID          pgtype.UUID        `json:"id"`
	Title       string             `json:"title"`
	Description pgtype.Text        `json:"description"`
	PriceCents  int32              `json:"price_cents"`
	RatingAvg   pgtype.Numeric     `json:"rating_avg"`
	CategoryID  pgtype.UUID        `json:"category_id"`
	ImageUrl    pgtype.Text        `json:"image_url"`
	Quantity    int32              `json:"quantity"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type Color struct {
	ID        pgtype.UUID        `json:"id"`
	ProductID pgtype.UUID        `json:"product_id"`
	Name      string             `json:"name"`
	Code      string             `json:"code"`
	Quantity  int32              `json:"quantity"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type Variant struct {
	ID        pgtype.UUID        `json:"id"`
	ColorID   pgtype.UUID        `json:"color_id"`
	Size      string             `json:"size"`
	Quantity  int32              `json:"quantity"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type Order struct {
	ID                 pgtype.UUID        `json:"id"`
	OrderNumber        string             `json:"order_number"`
	Status             string             `json:"status"`
	TotalCents         int32              `json:"total_cents"`
	CustomerName       string             `json:"customer_name"`
	CustomerEmail      string             `json:"customer_email"`
	ShippingLine1      string             `json:"shipping_line1"`
	ShippingLine2      pgtype.Text        `json:"shipping_line2"`
	ShippingCity       string             `json:"shipping_city"`
	ShippingState      pgtype.Text        `json:"shipping_state"`
	ShippingPostalCode string             `json:"shipping_postal_code"`
	ShippingCountry    string             `json:"shipping_country"`
	PaymentID          pgtype.Text        `json:"payment_id"`
	CreatedAt          pgtype.Timestamptz `json:"created_at"`
	UpdatedAt          pgtype.Timestamptz `json:"updated_at"`
}

type OrderLine struct {
	ID             pgtype.UUID `json:"id"`
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

type Review struct {
	ID        pgtype.UUID        `json:"id"`
	ProductID pgtype.UUID        `json:"product_id"`
	Author    string             `json:"author"`
	Rating    int16              `json:"rating"`
	Body      pgtype.Text        `json:"body"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Job struct {
	ID             pgtype.UUID        `json:"id"`
	JobType        string             `json:"job_type"`
	Queue          string             `json:"queue"`
	Payload        []byte             `json:"payload"`
	Status         string             `json:"status"`
	Priority       int32              `json:"priority"`
	RetryCount     int32              `json:"retry_count"`
	MaxRetries     int32              `json:"max_retries"`
	TimeoutSeconds int32              `json:"timeout_seconds"`
	ScheduledAt    pgtype.Timestamptz `json:"scheduled_at"`
	LockedBy       pgtype.Text        `json:"locked_by"`
	LockedAt       pgtype.Timestamptz `json:"locked_at"`
	ErrorMessage   pgtype.Text        `json:"error_message"`
	Metadata       []byte             `json:"metadata"`
	CompletedAt    pgtype.Timestamptz `json:"completed_at"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
}
