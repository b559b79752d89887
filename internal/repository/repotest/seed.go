package repotest

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/skein/internal/repository"
)

// PG converts an id to its pgtype form.
func PG(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// SeedProduct inserts a product and returns its id.
func (m *Memory) SeedProduct(title string, priceCents, quantity int32) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.view.now()
	p := repository.Product{
		ID:         newID(),
		Title:      title,
		PriceCents: priceCents,
		Quantity:   quantity,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	m.d.products[p.ID] = p
	return p.ID.Bytes
}

// SeedColor inserts a color under productID and returns its id.
func (m *Memory) SeedColor(productID uuid.UUID, name string, quantity int32) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.view.now()
	c := repository.Color{
		ID:        newID(),
		ProductID: PG(productID),
		Name:      name,
		Code:      "#000000",
		Quantity:  quantity,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	m.d.colors[c.ID] = c
	return c.ID.Bytes
}

// SeedVariant inserts a size variant under colorID and returns its id.
func (m *Memory) SeedVariant(colorID uuid.UUID, size string, quantity int32) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.view.now()
	v := repository.Variant{
		ID:        newID(),
		ColorID:   PG(colorID),
		Size:      size,
		Quantity:  quantity,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	m.d.variants[v.ID] = v
	return v.ID.Bytes
}

func (m *Memory) ProductQuantity(id uuid.UUID) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.products[PG(id)].Quantity
}

func (m *Memory) ColorQuantity(id uuid.UUID) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.colors[PG(id)].Quantity
}

func (m *Memory) VariantQuantity(id uuid.UUID) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.variants[PG(id)].Quantity
}

// ProductRating returns the stored rating average.
func (m *Memory) ProductRating(id uuid.UUID) pgtype.Numeric {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.products[PG(id)].RatingAvg
}

// OrderCount returns the number of recorded orders.
func (m *Memory) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.d.orders)
}

// LineCount returns the number of recorded order lines across all orders.
func (m *Memory) LineCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, lines := range m.d.lines {
		n += len(lines)
	}
	return n
}

// Jobs returns a copy of the outbox.
func (m *Memory) Jobs() []repository.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.Job(nil), m.d.jobs...)
}
