package domain

import (
	"github.com/google/uuid"
)

// =============================================================================
// CART
// =============================================================================

// CartKey identifies a cart line. A zero ColorID means no color was chosen and
// an empty Size means no size was chosen; two keys match only when all three
// parts are equal.
type CartKey struct {
	ProductID uuid.UUID `json:"product_id"`
	ColorID   uuid.UUID `json:"color_id,omitzero"`
	Size      Size      `json:"size,omitempty"`
}

// HasColor reports whether a color was selected.
func (k CartKey) HasColor() bool {
	return k.ColorID != uuid.Nil
}

// CartProduct is the product snapshot captured when a line is added.
type CartProduct struct {
	ID         uuid.UUID
	Title      string
	PriceCents int32
	ImageURL   string
}

// CartLine is one entry of the client-held cart. Title, price and image are
// copied at add time and not refreshed.
type CartLine struct {
	CartKey
	Title          string `json:"title"`
	UnitPriceCents int32  `json:"unit_price_cents"`
	ImageURL       string `json:"image_url,omitempty"`
	Quantity       int32  `json:"quantity"`
}

// SubtotalCents is unit price times quantity.
func (l CartLine) SubtotalCents() int64 {
	return int64(l.UnitPriceCents) * int64(l.Quantity)
}

// Cart is client-held state. The server never stores it; it is carried in a
// sealed cookie and mutated with the methods below.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func (c *Cart) index(key CartKey) int {
	for i := range c.Lines {
		if c.Lines[i].CartKey == key {
			return i
		}
	}
	return -1
}

// Line returns the line for key, if present.
func (c *Cart) Line(key CartKey) (CartLine, bool) {
	if i := c.index(key); i >= 0 {
		return c.Lines[i], true
	}
	return CartLine{}, false
}

// Add merges into an existing line with the same key or appends a new line
// with quantity 1.
func (c *Cart) Add(p CartProduct, colorID uuid.UUID, size Size) CartLine {
	key := CartKey{ProductID: p.ID, ColorID: colorID, Size: size}
	if i := c.index(key); i >= 0 {
		c.Lines[i].Quantity++
		return c.Lines[i]
	}
	line := CartLine{
		CartKey:        key,
		Title:          p.Title,
		UnitPriceCents: p.PriceCents,
		ImageURL:       p.ImageURL,
		Quantity:       1,
	}
	c.Lines = append(c.Lines, line)
	return line
}

// Increase adds one unit to the line. Stock is not consulted here.
// Returns false when the key is not in the cart.
func (c *Cart) Increase(key CartKey) bool {
	i := c.index(key)
	if i < 0 {
		return false
	}
	c.Lines[i].Quantity++
	return true
}

// Decrease removes one unit; a line that reaches zero is dropped.
func (c *Cart) Decrease(key CartKey) bool {
	i := c.index(key)
	if i < 0 {
		return false
	}
	if c.Lines[i].Quantity <= 1 {
		c.removeAt(i)
		return true
	}
	c.Lines[i].Quantity--
	return true
}

// Remove drops the line regardless of quantity.
func (c *Cart) Remove(key CartKey) bool {
	i := c.index(key)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) removeAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = nil
}

// TotalCents is the sum of unit price times quantity over all lines.
func (c Cart) TotalCents() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.SubtotalCents()
	}
	return total
}

// ItemCount is the number of units across all lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += int(l.Quantity)
	}
	return n
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Normalize repairs a cart decoded from client storage: non-positive lines are
// dropped and lines sharing a key are merged, keeping the first snapshot.
func (c *Cart) Normalize() {
	out := c.Lines[:0]
	pos := make(map[CartKey]int, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity <= 0 || l.ProductID == uuid.Nil {
			continue
		}
		if i, ok := pos[l.CartKey]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		pos[l.CartKey] = len(out)
		out = append(out, l)
	}
	c.Lines = out
}

// CheckoutLines converts the cart into checkout input.
func (c Cart) CheckoutLines() []CheckoutLine {
	lines := make([]CheckoutLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, CheckoutLine{
			ProductID:      l.ProductID,
			ColorID:        l.ColorID,
			Size:           l.Size,
			Title:          l.Title,
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
		})
	}
	return lines
}
