package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/repository"
)

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

func fromPG(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return uuid.UUID(id.Bytes)
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// parseID parses a client-supplied id. Malformed ids are a validation failure
// on field rather than a not-found.
func parseID(op, field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, domain.NewValidationError(op, field, "must be a valid id")
	}
	return id, nil
}

func numericFromDecimal(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func decimalFromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func toVariant(v repository.Variant) domain.Variant {
	return domain.Variant{
		ID:       fromPG(v.ID),
		ColorID:  fromPG(v.ColorID),
		Size:     domain.Size(v.Size),
		Quantity: v.Quantity,
	}
}

func toColor(c repository.Color, variants []repository.Variant) domain.Color {
	color := domain.Color{
		ID:        fromPG(c.ID),
		ProductID: fromPG(c.ProductID),
		Name:      c.Name,
		Code:      c.Code,
		Quantity:  c.Quantity,
	}
	for _, v := range variants {
		color.Variants = append(color.Variants, toVariant(v))
	}
	return color
}

func toProduct(p repository.Product) domain.Product {
	return domain.Product{
		ID:          fromPG(p.ID),
		Title:       p.Title,
		Description: p.Description.String,
		PriceCents:  p.PriceCents,
		ImageURL:    p.ImageUrl.String,
		RatingAvg:   decimalFromNumeric(p.RatingAvg).StringFixed(2),
		Quantity:    p.Quantity,
	}
}

func toOrderLine(l repository.OrderLine) domain.OrderLine {
	return domain.OrderLine{
		ID:             fromPG(l.ID),
		ProductID:      fromPG(l.ProductID),
		ColorID:        fromPG(l.ColorID),
		Size:           domain.Size(l.Size.String),
		Title:          l.Title,
		UnitPriceCents: l.UnitPriceCents,
		Quantity:       l.Quantity,
		SubtotalCents:  l.SubtotalCents,
		StockReserved:  l.StockReserved,
	}
}

func toOrder(o repository.Order, lines []repository.OrderLine) domain.Order {
	order := domain.Order{
		ID:            fromPG(o.ID),
		OrderNumber:   o.OrderNumber,
		Status:        domain.OrderStatus(o.Status),
		TotalCents:    o.TotalCents,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Shipping: domain.Address{
			Line1:      o.ShippingLine1,
			Line2:      o.ShippingLine2.String,
			City:       o.ShippingCity,
			State:      o.ShippingState.String,
			PostalCode: o.ShippingPostalCode,
			Country:    o.ShippingCountry,
		},
		PaymentID: o.PaymentID.String,
		Lines:     make([]domain.OrderLine, 0, len(lines)),
		CreatedAt: o.CreatedAt.Time,
		UpdatedAt: o.UpdatedAt.Time,
	}
	for _, l := range lines {
		order.Lines = append(order.Lines, toOrderLine(l))
	}
	return order
}

func toReview(r repository.Review) domain.Review {
	return domain.Review{
		ID:        fromPG(r.ID),
		ProductID: fromPG(r.ProductID),
		Author:    r.Author,
		Rating:    r.Rating,
		Body:      r.Body.String,
		CreatedAt: r.CreatedAt.Time,
	}
}
