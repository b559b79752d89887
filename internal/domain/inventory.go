package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// STOCK LEDGER TYPES
// =============================================================================

// Size is a variant size. Apparel uses letter sizes; footwear uses numeric
// sizes with optional halves ("9", "9.5").
type Size string

const (
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	Size2XL Size = "2XL"
	Size3XL Size = "3XL"
)

// ApparelSizes lists the letter sizes in display order.
var ApparelSizes = []Size{SizeS, SizeM, SizeL, SizeXL, Size2XL, Size3XL}

const (
	minShoeSize = 1.0
	maxShoeSize = 20.0
)

// ParseSize normalizes and validates a size. An empty string yields an empty
// Size with no error, meaning "no size selected".
func ParseSize(s string) (Size, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, size := range ApparelSizes {
		if Size(s) == size {
			return size, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < minShoeSize || f > maxShoeSize || f*2 != float64(int(f*2)) {
		return "", Errorf(EINVALID, "size.parse", "unknown size: %s", s)
	}
	return Size(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// IsShoe reports whether the size is a numeric footwear size.
func (s Size) IsShoe() bool {
	_, err := strconv.ParseFloat(string(s), 64)
	return s != "" && err == nil
}

// StockKind identifies which ledger bucket an adjustment targets.
type StockKind string

const (
	StockKindProduct StockKind = "product"
	StockKindColor   StockKind = "color"
	StockKindVariant StockKind = "variant"
)

func ParseStockKind(s string) (StockKind, error) {
	switch k := StockKind(strings.ToLower(strings.TrimSpace(s))); k {
	case StockKindProduct, StockKindColor, StockKindVariant:
		return k, nil
	}
	return "", Errorf(EINVALID, "stock.kind", "unknown stock target kind: %s", s)
}

// AdjustOp is the manual adjustment operation applied by admins.
type AdjustOp string

const (
	AdjustSet      AdjustOp = "set"
	AdjustAdd      AdjustOp = "add"
	AdjustSubtract AdjustOp = "subtract"
)

func ParseAdjustOp(s string) (AdjustOp, error) {
	switch op := AdjustOp(strings.ToLower(strings.TrimSpace(s))); op {
	case AdjustSet, AdjustAdd, AdjustSubtract:
		return op, nil
	}
	return "", Errorf(EINVALID, "stock.op", "unknown adjustment operation: %s", s)
}

// Apply returns the quantity after applying op to current. Subtraction floors
// at zero rather than failing.
func (op AdjustOp) Apply(current, amount int32) int32 {
	switch op {
	case AdjustSet:
		return amount
	case AdjustAdd:
		return current + amount
	case AdjustSubtract:
		if amount >= current {
			return 0
		}
		return current - amount
	}
	return current
}

// Variant is a size-level stock unit within a color.
type Variant struct {
	ID       uuid.UUID `json:"id"`
	ColorID  uuid.UUID `json:"color_id"`
	Size     Size      `json:"size"`
	Quantity int32     `json:"quantity"`
}

// Color belongs to one product and either carries its own quantity or owns
// size variants. When variants exist the color's own quantity is ignored.
type Color struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Quantity  int32     `json:"quantity"`
	Variants  []Variant `json:"variants,omitempty"`
}

func (c Color) HasVariants() bool {
	return len(c.Variants) > 0
}

// Variant returns the variant for size, if any.
func (c Color) Variant(size Size) (Variant, bool) {
	if size == "" {
		return Variant{}, false
	}
	for _, v := range c.Variants {
		if v.Size == size {
			return v, true
		}
	}
	return Variant{}, false
}

// Available returns the sellable quantity for size. In variant mode it is the
// matching variant's quantity (0 when absent); otherwise it is the color's own
// quantity regardless of size.
func (c Color) Available(size Size) int32 {
	if c.HasVariants() {
		v, ok := c.Variant(size)
		if !ok {
			return 0
		}
		return nonNegative(v.Quantity)
	}
	return nonNegative(c.Quantity)
}

// TotalAvailable sums availability across all sizes of the color.
func (c Color) TotalAvailable() int32 {
	if !c.HasVariants() {
		return nonNegative(c.Quantity)
	}
	var total int32
	for _, v := range c.Variants {
		total += nonNegative(v.Quantity)
	}
	return total
}

// ValidateVariants checks that sizes are valid and unique within one color.
func ValidateVariants(variants []Variant) error {
	seen := make(map[Size]bool, len(variants))
	var err error
	for i, v := range variants {
		field := fmt.Sprintf("variants[%d].size", i)
		size, perr := ParseSize(string(v.Size))
		if perr != nil || size == "" {
			err = AddFieldError(err, field, "unknown size")
			continue
		}
		if seen[size] {
			err = AddFieldError(err, field, fmt.Sprintf("duplicate size %s", size))
			continue
		}
		seen[size] = true
		if v.Quantity < 0 {
			err = AddFieldError(err, fmt.Sprintf("variants[%d].quantity", i), "must not be negative")
		}
	}
	return err
}

// Product is the root of the stock tree. A product with colors never uses its
// own quantity.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PriceCents  int32     `json:"price_cents"`
	ImageURL    string    `json:"image_url,omitempty"`
	RatingAvg   string    `json:"rating_avg"`
	Quantity    int32     `json:"quantity"`
	Colors      []Color   `json:"colors,omitempty"`
}

func (p Product) HasColors() bool {
	return len(p.Colors) > 0
}

func (p Product) Color(id uuid.UUID) (Color, bool) {
	for _, c := range p.Colors {
		if c.ID == id {
			return c, true
		}
	}
	return Color{}, false
}

// Available resolves availability for a (color, size) selection on this product.
// A product with colors reports 0 when no color is selected.
func (p Product) Available(colorID uuid.UUID, size Size) int32 {
	if !p.HasColors() {
		return nonNegative(p.Quantity)
	}
	c, ok := p.Color(colorID)
	if !ok {
		return 0
	}
	return c.Available(size)
}

func nonNegative(n int32) int32 {
	if n < 0 {
		return 0
	}
	return n
}

// StockLevel is the availability of one ledger bucket.
type StockLevel struct {
	Kind      StockKind `json:"kind"`
	ID        uuid.UUID `json:"id"`
	ColorID   uuid.UUID `json:"color_id,omitzero"`
	Size      Size      `json:"size,omitempty"`
	Available int32     `json:"available"`
}

// StockAdjustment is a manual ledger change requested by an admin.
type StockAdjustment struct {
	TargetID uuid.UUID
	Kind     StockKind
	Op       AdjustOp
	Amount   int32
}

// CartLineStock annotates a cart line with advisory availability.
type CartLineStock struct {
	CartLine
	Available    int32 `json:"available"`
	CanIncrease  bool  `json:"can_increase"`
	ExceedsStock bool  `json:"exceeds_stock"`
}

// InventoryService exposes the stock ledger and its advisory read path.
type InventoryService interface {
	// GetAvailable returns the ledger quantity for a color and optional size.
	GetAvailable(ctx context.Context, colorID string, size string) (int32, error)

	// StockFor is the advisory lookup used by the cart. Unlike GetAvailable it
	// returns not found when the color has variants and none matches size.
	StockFor(ctx context.Context, colorID string, size string) (*StockLevel, error)

	// Adjust applies a manual set/add/subtract to one bucket.
	Adjust(ctx context.Context, adj StockAdjustment) (*StockLevel, error)

	// AddVariant creates a size variant under a color. Sizes are unique per color.
	AddVariant(ctx context.Context, colorID string, size string, quantity int32) (*Variant, error)

	// ProductStock loads a product with its colors and variants.
	ProductStock(ctx context.Context, productID string) (*Product, error)

	// AnnotateCart reports availability for every line in the cart.
	AnnotateCart(ctx context.Context, cart Cart) ([]CartLineStock, error)
}
