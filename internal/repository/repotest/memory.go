// Package repotest provides an in-memory repository.Store for tests.
//
// Transactions take a global lock and restore a snapshot when the callback
// fails, so ExecTx is all-or-nothing like the PostgreSQL store. Statement
// semantics (conditional decrements, clamped adjustments, unique keys) mirror
// the SQL in package repository.
package repotest

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/skein/internal/repository"
)

// Memory is an in-memory repository.Store.
type Memory struct {
	*view

	mu sync.Mutex
	d  *data

	// FailOn, when set, is called before every write with the method name.
	// A non-nil result aborts that write.
	FailOn func(method string) error

	// FailCommit makes ExecTx discard a successful callback's writes and
	// return this error, as if COMMIT failed.
	FailCommit error

	base time.Time
	seq  int64
}

var _ repository.Store = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{
		d:    newData(),
		base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	m.view = &view{m: m}
	return m
}

type data struct {
	products map[pgtype.UUID]repository.Product
	colors   map[pgtype.UUID]repository.Color
	variants map[pgtype.UUID]repository.Variant
	orders   map[pgtype.UUID]repository.Order
	lines    map[pgtype.UUID][]repository.OrderLine
	reviews  map[pgtype.UUID]repository.Review
	jobs     []repository.Job
}

func newData() *data {
	return &data{
		products: map[pgtype.UUID]repository.Product{},
		colors:   map[pgtype.UUID]repository.Color{},
		variants: map[pgtype.UUID]repository.Variant{},
		orders:   map[pgtype.UUID]repository.Order{},
		lines:    map[pgtype.UUID][]repository.OrderLine{},
		reviews:  map[pgtype.UUID]repository.Review{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	c := &data{
		products: cloneMap(d.products),
		colors:   cloneMap(d.colors),
		variants: cloneMap(d.variants),
		orders:   cloneMap(d.orders),
		lines:    make(map[pgtype.UUID][]repository.OrderLine, len(d.lines)),
		reviews:  cloneMap(d.reviews),
		jobs:     append([]repository.Job(nil), d.jobs...),
	}
	for k, v := range d.lines {
		c.lines[k] = append([]repository.OrderLine(nil), v...)
	}
	return c
}

// ExecTx runs fn while holding the store lock. Writes are discarded when fn
// returns an error or FailCommit is set.
func (m *Memory) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := m.d.clone()
	err := fn(&view{m: m, inTx: true})
	if err == nil && m.FailCommit != nil {
		err = m.FailCommit
	}
	if err != nil {
		m.d = snapshot
		return err
	}
	return nil
}

// view implements repository.Querier over the Memory tables. Outside a
// transaction each call takes the lock itself.
type view struct {
	m    *Memory
	inTx bool
}

func (v *view) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.m.mu.Lock()
	return v.m.mu.Unlock
}

func (v *view) fail(method string) error {
	if v.m.FailOn != nil {
		return v.m.FailOn(method)
	}
	return nil
}

func (v *view) now() pgtype.Timestamptz {
	v.m.seq++
	return pgtype.Timestamptz{Time: v.m.base.Add(time.Duration(v.m.seq) * time.Millisecond), Valid: true}
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "violates foreign key constraint"}
}

// applyOp mirrors the SQL CASE in the Adjust*Stock queries, including the
// int4 overflow error Postgres raises on add.
func applyOp(current int32, op string, amount int32) (int32, error) {
	switch op {
	case "set":
		return amount, nil
	case "add":
		sum := int64(current) + int64(amount)
		if sum > math.MaxInt32 {
			return 0, &pgconn.PgError{Code: "22003", Message: "integer out of range"}
		}
		return int32(sum), nil
	default:
		if amount >= current {
			return 0, nil
		}
		return current - amount, nil
	}
}

// =============================================================================
// Products
// =============================================================================

func (v *view) GetProduct(ctx context.Context, id pgtype.UUID) (repository.Product, error) {
	defer v.lock()()
	p, ok := v.m.d.products[id]
	if !ok {
		return repository.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (v *view) CountColorsByProduct(ctx context.Context, productID pgtype.UUID) (int64, error) {
	defer v.lock()()
	return v.countColors(productID), nil
}

func (v *view) countColors(productID pgtype.UUID) int64 {
	var n int64
	for _, c := range v.m.d.colors {
		if c.ProductID == productID {
			n++
		}
	}
	return n
}

func (v *view) DecrementProductStock(ctx context.Context, arg repository.DecrementStockParams) (int64, error) {
	defer v.lock()()
	if err := v.fail("DecrementProductStock"); err != nil {
		return 0, err
	}
	p, ok := v.m.d.products[arg.ID]
	if !ok || p.Quantity < arg.Quantity || v.countColors(arg.ID) > 0 {
		return 0, nil
	}
	p.Quantity -= arg.Quantity
	p.UpdatedAt = v.now()
	v.m.d.products[arg.ID] = p
	return 1, nil
}

func (v *view) AdjustProductStock(ctx context.Context, arg repository.AdjustStockParams) (int32, error) {
	defer v.lock()()
	if err := v.fail("AdjustProductStock"); err != nil {
		return 0, err
	}
	p, ok := v.m.d.products[arg.ID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	qty, err := applyOp(p.Quantity, arg.Op, arg.Amount)
	if err != nil {
		return 0, err
	}
	p.Quantity = qty
	p.UpdatedAt = v.now()
	v.m.d.products[arg.ID] = p
	return p.Quantity, nil
}

func (v *view) UpdateProductRating(ctx context.Context, arg repository.UpdateProductRatingParams) (int64, error) {
	defer v.lock()()
	if err := v.fail("UpdateProductRating"); err != nil {
		return 0, err
	}
	p, ok := v.m.d.products[arg.ID]
	if !ok {
		return 0, nil
	}
	p.RatingAvg = arg.RatingAvg
	p.UpdatedAt = v.now()
	v.m.d.products[arg.ID] = p
	return 1, nil
}

// =============================================================================
// Colors
// =============================================================================

func (v *view) GetColor(ctx context.Context, id pgtype.UUID) (repository.Color, error) {
	defer v.lock()()
	c, ok := v.m.d.colors[id]
	if !ok {
		return repository.Color{}, pgx.ErrNoRows
	}
	return c, nil
}

func (v *view) GetColorForProduct(ctx context.Context, arg repository.GetColorForProductParams) (repository.Color, error) {
	defer v.lock()()
	c, ok := v.m.d.colors[arg.ID]
	if !ok || c.ProductID != arg.ProductID {
		return repository.Color{}, pgx.ErrNoRows
	}
	return c, nil
}

func (v *view) ListColorsByProduct(ctx context.Context, productID pgtype.UUID) ([]repository.Color, error) {
	defer v.lock()()
	var out []repository.Color
	for _, c := range v.m.d.colors {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return uuid.UUID(out[i].ID.Bytes).String() < uuid.UUID(out[j].ID.Bytes).String()
	})
	return out, nil
}

func (v *view) countVariants(colorID pgtype.UUID) int64 {
	var n int64
	for _, vr := range v.m.d.variants {
		if vr.ColorID == colorID {
			n++
		}
	}
	return n
}

func (v *view) DecrementColorStock(ctx context.Context, arg repository.DecrementStockParams) (int64, error) {
	defer v.lock()()
	if err := v.fail("DecrementColorStock"); err != nil {
		return 0, err
	}
	c, ok := v.m.d.colors[arg.ID]
	if !ok || c.Quantity < arg.Quantity || v.countVariants(arg.ID) > 0 {
		return 0, nil
	}
	c.Quantity -= arg.Quantity
	c.UpdatedAt = v.now()
	v.m.d.colors[arg.ID] = c
	return 1, nil
}

func (v *view) AdjustColorStock(ctx context.Context, arg repository.AdjustStockParams) (int32, error) {
	defer v.lock()()
	if err := v.fail("AdjustColorStock"); err != nil {
		return 0, err
	}
	c, ok := v.m.d.colors[arg.ID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	qty, err := applyOp(c.Quantity, arg.Op, arg.Amount)
	if err != nil {
		return 0, err
	}
	c.Quantity = qty
	c.UpdatedAt = v.now()
	v.m.d.colors[arg.ID] = c
	return c.Quantity, nil
}

// =============================================================================
// Variants
// =============================================================================

func (v *view) variantsWhere(keep func(repository.Variant) bool) []repository.Variant {
	var out []repository.Variant
	for _, vr := range v.m.d.variants {
		if keep(vr) {
			out = append(out, vr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Time.Before(out[j].CreatedAt.Time)
	})
	return out
}

func (v *view) ListVariantsByColor(ctx context.Context, colorID pgtype.UUID) ([]repository.Variant, error) {
	defer v.lock()()
	return v.variantsWhere(func(vr repository.Variant) bool { return vr.ColorID == colorID }), nil
}

func (v *view) ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]repository.Variant, error) {
	defer v.lock()()
	return v.variantsWhere(func(vr repository.Variant) bool {
		c, ok := v.m.d.colors[vr.ColorID]
		return ok && c.ProductID == productID
	}), nil
}

func (v *view) GetVariantByColorAndSize(ctx context.Context, arg repository.GetVariantByColorAndSizeParams) (repository.Variant, error) {
	defer v.lock()()
	for _, vr := range v.m.d.variants {
		if vr.ColorID == arg.ColorID && vr.Size == arg.Size {
			return vr, nil
		}
	}
	return repository.Variant{}, pgx.ErrNoRows
}

func (v *view) CountVariantsByColor(ctx context.Context, colorID pgtype.UUID) (int64, error) {
	defer v.lock()()
	return v.countVariants(colorID), nil
}

func (v *view) DecrementVariantStock(ctx context.Context, arg repository.DecrementStockParams) (int64, error) {
	defer v.lock()()
	if err := v.fail("DecrementVariantStock"); err != nil {
		return 0, err
	}
	vr, ok := v.m.d.variants[arg.ID]
	if !ok || vr.Quantity < arg.Quantity {
		return 0, nil
	}
	vr.Quantity -= arg.Quantity
	vr.UpdatedAt = v.now()
	v.m.d.variants[arg.ID] = vr
	return 1, nil
}

func (v *view) AdjustVariantStock(ctx context.Context, arg repository.AdjustStockParams) (int32, error) {
	defer v.lock()()
	if err := v.fail("AdjustVariantStock"); err != nil {
		return 0, err
	}
	vr, ok := v.m.d.variants[arg.ID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	qty, err := applyOp(vr.Quantity, arg.Op, arg.Amount)
	if err != nil {
		return 0, err
	}
	vr.Quantity = qty
	vr.UpdatedAt = v.now()
	v.m.d.variants[arg.ID] = vr
	return vr.Quantity, nil
}

func (v *view) CreateVariant(ctx context.Context, arg repository.CreateVariantParams) (repository.Variant, error) {
	defer v.lock()()
	if err := v.fail("CreateVariant"); err != nil {
		return repository.Variant{}, err
	}
	if _, ok := v.m.d.colors[arg.ColorID]; !ok {
		return repository.Variant{}, foreignKeyViolation("variants_color_id_fkey")
	}
	for _, vr := range v.m.d.variants {
		if vr.ColorID == arg.ColorID && vr.Size == arg.Size {
			return repository.Variant{}, uniqueViolation("variants_color_size_key")
		}
	}
	ts := v.now()
	vr := repository.Variant{
		ID:        newID(),
		ColorID:   arg.ColorID,
		Size:      arg.Size,
		Quantity:  arg.Quantity,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	v.m.d.variants[vr.ID] = vr
	return vr, nil
}

// =============================================================================
// Orders
// =============================================================================

func (v *view) CreateOrder(ctx context.Context, arg repository.CreateOrderParams) (repository.Order, error) {
	defer v.lock()()
	if err := v.fail("CreateOrder"); err != nil {
		return repository.Order{}, err
	}
	for _, o := range v.m.d.orders {
		if o.OrderNumber == arg.OrderNumber {
			return repository.Order{}, uniqueViolation("orders_order_number_key")
		}
		if arg.PaymentID.Valid && o.PaymentID.Valid && o.PaymentID.String == arg.PaymentID.String {
			return repository.Order{}, uniqueViolation("orders_payment_id_key")
		}
	}
	ts := v.now()
	o := repository.Order{
		ID:                 newID(),
		OrderNumber:        arg.OrderNumber,
		Status:             arg.Status,
		TotalCents:         arg.TotalCents,
		CustomerName:       arg.CustomerName,
		CustomerEmail:      arg.CustomerEmail,
		ShippingLine1:      arg.ShippingLine1,
		ShippingLine2:      arg.ShippingLine2,
		ShippingCity:       arg.ShippingCity,
		ShippingState:      arg.ShippingState,
		ShippingPostalCode: arg.ShippingPostalCode,
		ShippingCountry:    arg.ShippingCountry,
		PaymentID:          arg.PaymentID,
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}
	v.m.d.orders[o.ID] = o
	return o, nil
}

func (v *view) getOrder(id pgtype.UUID) (repository.Order, error) {
	o, ok := v.m.d.orders[id]
	if !ok {
		return repository.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (v *view) GetOrder(ctx context.Context, id pgtype.UUID) (repository.Order, error) {
	defer v.lock()()
	return v.getOrder(id)
}

func (v *view) GetOrderForUpdate(ctx context.Context, id pgtype.UUID) (repository.Order, error) {
	defer v.lock()()
	return v.getOrder(id)
}

func (v *view) GetOrderByNumber(ctx context.Context, orderNumber string) (repository.Order, error) {
	defer v.lock()()
	for _, o := range v.m.d.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return repository.Order{}, pgx.ErrNoRows
}

func (v *view) GetOrderByPaymentID(ctx context.Context, paymentID string) (repository.Order, error) {
	defer v.lock()()
	for _, o := range v.m.d.orders {
		if o.PaymentID.Valid && o.PaymentID.String == paymentID {
			return o, nil
		}
	}
	return repository.Order{}, pgx.ErrNoRows
}

func (v *view) ordersWithStatus(status pgtype.Text) []repository.Order {
	var out []repository.Order
	for _, o := range v.m.d.orders {
		if !status.Valid || o.Status == status.String {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time)
	})
	return out
}

func (v *view) ListOrders(ctx context.Context, arg repository.ListOrdersParams) ([]repository.Order, error) {
	defer v.lock()()
	all := v.ordersWithStatus(arg.Status)
	start := int(arg.Offset)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(arg.Limit)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (v *view) CountOrders(ctx context.Context, status pgtype.Text) (int64, error) {
	defer v.lock()()
	return int64(len(v.ordersWithStatus(status))), nil
}

func (v *view) UpdateOrderStatus(ctx context.Context, arg repository.UpdateOrderStatusParams) (repository.Order, error) {
	defer v.lock()()
	if err := v.fail("UpdateOrderStatus"); err != nil {
		return repository.Order{}, err
	}
	o, err := v.getOrder(arg.ID)
	if err != nil {
		return o, err
	}
	o.Status = arg.Status
	o.UpdatedAt = v.now()
	v.m.d.orders[o.ID] = o
	return o, nil
}

func (v *view) CreateOrderLine(ctx context.Context, arg repository.CreateOrderLineParams) (repository.OrderLine, error) {
	defer v.lock()()
	if err := v.fail("CreateOrderLine"); err != nil {
		return repository.OrderLine{}, err
	}
	if _, ok := v.m.d.orders[arg.OrderID]; !ok {
		return repository.OrderLine{}, foreignKeyViolation("order_lines_order_id_fkey")
	}
	for _, l := range v.m.d.lines[arg.OrderID] {
		if l.Position == arg.Position {
			return repository.OrderLine{}, uniqueViolation("order_lines_position_key")
		}
	}
	l := repository.OrderLine{
		ID:             newID(),
		OrderID:        arg.OrderID,
		Position:       arg.Position,
		ProductID:      arg.ProductID,
		ColorID:        arg.ColorID,
		Size:           arg.Size,
		Title:          arg.Title,
		UnitPriceCents: arg.UnitPriceCents,
		Quantity:       arg.Quantity,
		SubtotalCents:  arg.SubtotalCents,
		StockReserved:  arg.StockReserved,
	}
	v.m.d.lines[arg.OrderID] = append(v.m.d.lines[arg.OrderID], l)
	return l, nil
}

func (v *view) ListOrderLines(ctx context.Context, orderID pgtype.UUID) ([]repository.OrderLine, error) {
	defer v.lock()()
	lines := append([]repository.OrderLine(nil), v.m.d.lines[orderID]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].Position < lines[j].Position })
	return lines, nil
}

// =============================================================================
// Reviews
// =============================================================================

func (v *view) CreateReview(ctx context.Context, arg repository.CreateReviewParams) (repository.Review, error) {
	defer v.lock()()
	if err := v.fail("CreateReview"); err != nil {
		return repository.Review{}, err
	}
	if _, ok := v.m.d.products[arg.ProductID]; !ok {
		return repository.Review{}, foreignKeyViolation("reviews_product_id_fkey")
	}
	r := repository.Review{
		ID:        newID(),
		ProductID: arg.ProductID,
		Author:    arg.Author,
		Rating:    arg.Rating,
		Body:      arg.Body,
		CreatedAt: v.now(),
	}
	v.m.d.reviews[r.ID] = r
	return r, nil
}

func (v *view) DeleteReview(ctx context.Context, arg repository.DeleteReviewParams) (int64, error) {
	defer v.lock()()
	if err := v.fail("DeleteReview"); err != nil {
		return 0, err
	}
	r, ok := v.m.d.reviews[arg.ID]
	if !ok || r.ProductID != arg.ProductID {
		return 0, nil
	}
	delete(v.m.d.reviews, arg.ID)
	return 1, nil
}

func (v *view) reviewsOf(productID pgtype.UUID) []repository.Review {
	var out []repository.Review
	for _, r := range v.m.d.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time)
	})
	return out
}

func (v *view) ListReviewsByProduct(ctx context.Context, productID pgtype.UUID) ([]repository.Review, error) {
	defer v.lock()()
	return v.reviewsOf(productID), nil
}

func (v *view) ListReviewRatings(ctx context.Context, productID pgtype.UUID) ([]int16, error) {
	defer v.lock()()
	var out []int16
	for _, r := range v.reviewsOf(productID) {
		out = append(out, r.Rating)
	}
	return out, nil
}

// =============================================================================
// Jobs
// =============================================================================

func (v *view) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	defer v.lock()()
	if err := v.fail("EnqueueJob"); err != nil {
		return repository.Job{}, err
	}
	j := repository.Job{
		ID:             newID(),
		JobType:        arg.JobType,
		Queue:          arg.Queue,
		Payload:        arg.Payload,
		Status:         "pending",
		Priority:       arg.Priority,
		MaxRetries:     arg.MaxRetries,
		TimeoutSeconds: arg.TimeoutSeconds,
		ScheduledAt:    arg.ScheduledAt,
		Metadata:       arg.Metadata,
		CreatedAt:      v.now(),
	}
	v.m.d.jobs = append(v.m.d.jobs, j)
	return j, nil
}

func (v *view) ClaimNextJob(ctx context.Context, arg repository.ClaimNextJobParams) (repository.Job, error) {
	defer v.lock()()
	best := -1
	now := time.Now()
	for i, j := range v.m.d.jobs {
		if j.Status != "pending" || (arg.Queue != "" && j.Queue != arg.Queue) {
			continue
		}
		if j.ScheduledAt.Valid && j.ScheduledAt.Time.After(now) {
			continue
		}
		if best < 0 || j.Priority > v.m.d.jobs[best].Priority ||
			(j.Priority == v.m.d.jobs[best].Priority && j.ScheduledAt.Time.Before(v.m.d.jobs[best].ScheduledAt.Time)) {
			best = i
		}
	}
	if best < 0 {
		return repository.Job{}, pgx.ErrNoRows
	}
	j := &v.m.d.jobs[best]
	j.Status = "running"
	j.LockedBy = arg.WorkerID
	j.LockedAt = pgtype.Timestamptz{Time: now, Valid: true}
	return *j, nil
}

func (v *view) findJob(id pgtype.UUID) *repository.Job {
	for i := range v.m.d.jobs {
		if v.m.d.jobs[i].ID == id {
			return &v.m.d.jobs[i]
		}
	}
	return nil
}

func (v *view) CompleteJob(ctx context.Context, id pgtype.UUID) error {
	defer v.lock()()
	j := v.findJob(id)
	if j == nil {
		return nil
	}
	j.Status = "completed"
	j.CompletedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	j.LockedBy = pgtype.Text{}
	j.LockedAt = pgtype.Timestamptz{}
	return nil
}

func (v *view) FailJob(ctx context.Context, arg repository.FailJobParams) (repository.Job, error) {
	defer v.lock()()
	j := v.findJob(arg.ID)
	if j == nil {
		return repository.Job{}, pgx.ErrNoRows
	}
	j.RetryCount++
	j.ErrorMessage = arg.ErrorMessage
	j.LockedBy = pgtype.Text{}
	j.LockedAt = pgtype.Timestamptz{}
	if j.RetryCount >= j.MaxRetries {
		j.Status = "failed"
	} else {
		j.Status = "pending"
		j.ScheduledAt = pgtype.Timestamptz{Time: time.Now().Add(time.Duration(1<<j.RetryCount) * time.Second), Valid: true}
	}
	return *j, nil
}
