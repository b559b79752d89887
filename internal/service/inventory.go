package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/repository"
	"github.com/dukerupert/skein/internal/telemetry"
)

type inventoryService struct {
	store  repository.Store
	events StockEvents
	logger *slog.Logger
}

// NewInventoryService creates the stock ledger service. events may be nil.
func NewInventoryService(store repository.Store, events StockEvents, logger *slog.Logger) domain.InventoryService {
	if events == nil {
		events = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &inventoryService{
		store:  store,
		events: events,
		logger: logger,
	}
}

// lookupSize normalizes a requested size. A size that cannot be parsed can
// never match a variant, so it is kept as-is instead of failing the lookup.
func lookupSize(raw string) domain.Size {
	size, err := domain.ParseSize(raw)
	if err != nil {
		return domain.Size(strings.ToUpper(strings.TrimSpace(raw)))
	}
	return size
}

func loadColor(ctx context.Context, q repository.Querier, op string, id uuid.UUID) (domain.Color, error) {
	c, err := q.GetColor(ctx, pgUUID(id))
	if err != nil {
		if repository.IsNotFound(err) {
			return domain.Color{}, domain.NotFound(op, "color", id.String())
		}
		return domain.Color{}, domain.Internal(err, op, "failed to load color")
	}
	variants, err := q.ListVariantsByColor(ctx, c.ID)
	if err != nil {
		return domain.Color{}, domain.Internal(err, op, "failed to load variants")
	}
	return toColor(c, variants), nil
}

func (s *inventoryService) GetAvailable(ctx context.Context, colorID string, size string) (int32, error) {
	const op = "inventory.get_available"

	id, err := parseID(op, "color_id", colorID)
	if err != nil {
		return 0, err
	}
	color, err := loadColor(ctx, s.store, op, id)
	if err != nil {
		return 0, err
	}
	return color.Available(lookupSize(size)), nil
}

func (s *inventoryService) StockFor(ctx context.Context, colorID string, size string) (*domain.StockLevel, error) {
	const op = "inventory.stock_for"

	id, err := parseID(op, "color_id", colorID)
	if err != nil {
		return nil, err
	}
	color, err := loadColor(ctx, s.store, op, id)
	if err != nil {
		return nil, err
	}

	sz := lookupSize(size)
	if !color.HasVariants() {
		return &domain.StockLevel{
			Kind:      domain.StockKindColor,
			ID:        color.ID,
			Size:      sz,
			Available: color.Available(sz),
		}, nil
	}

	v, ok := color.Variant(sz)
	if !ok {
		return nil, domain.NotFound(op, "size", string(sz))
	}
	return &domain.StockLevel{
		Kind:      domain.StockKindVariant,
		ID:        v.ID,
		ColorID:   color.ID,
		Size:      v.Size,
		Available: color.Available(sz),
	}, nil
}

func (s *inventoryService) Adjust(ctx context.Context, adj domain.StockAdjustment) (*domain.StockLevel, error) {
	const op = "inventory.adjust"

	if adj.TargetID == uuid.Nil {
		return nil, domain.NewValidationError(op, "target_id", "must be a valid id")
	}
	if adj.Amount < 0 {
		return nil, ErrNegativeAmount
	}
	if _, err := domain.ParseAdjustOp(string(adj.Op)); err != nil {
		return nil, err
	}

	target := pgUUID(adj.TargetID)
	params := repository.AdjustStockParams{ID: target, Op: string(adj.Op), Amount: adj.Amount}
	level := domain.StockLevel{Kind: adj.Kind, ID: adj.TargetID}

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var (
			qty int32
			err error
		)
		switch adj.Kind {
		case domain.StockKindProduct:
			n, cerr := q.CountColorsByProduct(ctx, target)
			if cerr != nil {
				return domain.Internal(cerr, op, "failed to count colors")
			}
			if n > 0 {
				return ErrProductStockPerColor
			}
			qty, err = q.AdjustProductStock(ctx, params)
		case domain.StockKindColor:
			n, cerr := q.CountVariantsByColor(ctx, target)
			if cerr != nil {
				return domain.Internal(cerr, op, "failed to count variants")
			}
			if n > 0 {
				return ErrColorStockPerSize
			}
			qty, err = q.AdjustColorStock(ctx, params)
		case domain.StockKindVariant:
			qty, err = q.AdjustVariantStock(ctx, params)
		default:
			_, err = domain.ParseStockKind(string(adj.Kind))
			return err
		}
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.NotFound(op, string(adj.Kind), adj.TargetID.String())
			}
			if repository.IsOutOfRange(err) {
				return domain.NewValidationError(op, "amount", "would push the quantity past its maximum")
			}
			return domain.Internal(err, op, "failed to adjust stock")
		}
		level.Available = qty
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.Business.RecordStockAdjustment(string(adj.Kind), string(adj.Op))
	s.logger.Info("stock adjusted",
		"kind", adj.Kind,
		"target_id", adj.TargetID,
		"op", adj.Op,
		"amount", adj.Amount,
		"available", level.Available,
	)
	if err := s.events.StockAdjusted(ctx, level, adj.Op); err != nil {
		s.logger.Warn("failed to publish stock adjustment", "target_id", adj.TargetID, "error", err)
	}
	return &level, nil
}

func (s *inventoryService) AddVariant(ctx context.Context, colorID string, size string, quantity int32) (*domain.Variant, error) {
	const op = "inventory.add_variant"

	id, err := parseID(op, "color_id", colorID)
	if err != nil {
		return nil, err
	}
	sz, err := domain.ParseSize(size)
	if err != nil || sz == "" {
		return nil, domain.NewValidationError(op, "size", "must be a letter size or a footwear size")
	}
	if quantity < 0 {
		return nil, domain.NewValidationError(op, "quantity", "must not be negative")
	}

	if _, err := s.store.GetColor(ctx, pgUUID(id)); err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NotFound(op, "color", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load color")
	}

	v, err := s.store.CreateVariant(ctx, repository.CreateVariantParams{
		ColorID:  pgUUID(id),
		Size:     string(sz),
		Quantity: quantity,
	})
	if err != nil {
		if repository.IsUniqueViolation(err, "variants_color_size_key") {
			return nil, domain.Conflict(op, "size "+string(sz)+" already exists for this color")
		}
		return nil, domain.Internal(err, op, "failed to create variant")
	}

	variant := toVariant(v)
	return &variant, nil
}

func (s *inventoryService) ProductStock(ctx context.Context, productID string) (*domain.Product, error) {
	const op = "inventory.product_stock"

	id, err := parseID(op, "product_id", productID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProduct(ctx, pgUUID(id))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NotFound(op, "product", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load product")
	}
	colors, err := s.store.ListColorsByProduct(ctx, p.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load colors")
	}
	variants, err := s.store.ListVariantsByProduct(ctx, p.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load variants")
	}

	byColor := make(map[pgtype.UUID][]repository.Variant, len(colors))
	for _, v := range variants {
		byColor[v.ColorID] = append(byColor[v.ColorID], v)
	}

	product := toProduct(p)
	for _, c := range colors {
		product.Colors = append(product.Colors, toColor(c, byColor[c.ID]))
	}
	return &product, nil
}

// AnnotateCart reads current availability for each line. Nothing is locked,
// so the answer can be stale by the time the customer checks out.
func (s *inventoryService) AnnotateCart(ctx context.Context, cart domain.Cart) ([]domain.CartLineStock, error) {
	const op = "inventory.annotate_cart"

	colors := map[uuid.UUID]*domain.Color{}
	out := make([]domain.CartLineStock, 0, len(cart.Lines))

	for _, line := range cart.Lines {
		var available int32

		if line.HasColor() {
			c, ok := colors[line.ColorID]
			if !ok {
				loaded, err := loadColor(ctx, s.store, op, line.ColorID)
				if err != nil && !domain.IsCode(err, domain.ENOTFOUND) {
					return nil, err
				}
				if err == nil {
					c = &loaded
				}
				colors[line.ColorID] = c
			}
			if c != nil && c.ProductID == line.ProductID {
				available = c.Available(line.Size)
			}
		} else {
			p, err := s.store.GetProduct(ctx, pgUUID(line.ProductID))
			switch {
			case repository.IsNotFound(err):
			case err != nil:
				return nil, domain.Internal(err, op, "failed to load product")
			default:
				n, err := s.store.CountColorsByProduct(ctx, p.ID)
				if err != nil {
					return nil, domain.Internal(err, op, "failed to count colors")
				}
				if n == 0 && p.Quantity > 0 {
					available = p.Quantity
				}
			}
		}

		out = append(out, domain.CartLineStock{
			CartLine:     line,
			Available:    available,
			CanIncrease:  line.Quantity < available,
			ExceedsStock: line.Quantity > available,
		})
	}
	return out, nil
}
