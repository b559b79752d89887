package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct(price int32) CartProduct {
	return CartProduct{ID: uuid.New(), Title: "Crew Tee", PriceCents: price, ImageURL: "/img/tee.jpg"}
}

func TestCart_AddMergesSameKey(t *testing.T) {
	var cart Cart
	p := testProduct(2500)
	color := uuid.New()

	cart.Add(p, color, SizeM)
	cart.Add(p, color, SizeM)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int32(2), cart.Lines[0].Quantity)
	assert.Equal(t, int64(5000), cart.TotalCents())
}

func TestCart_DistinctKeysAreDistinctLines(t *testing.T) {
	var cart Cart
	p := testProduct(1000)
	color := uuid.New()

	cart.Add(p, uuid.Nil, "")
	cart.Add(p, color, "")
	cart.Add(p, color, SizeS)
	cart.Add(p, color, SizeM)

	assert.Len(t, cart.Lines, 4)
	assert.Equal(t, 4, cart.ItemCount())
}

func TestCart_SnapshotNotRefreshed(t *testing.T) {
	var cart Cart
	p := testProduct(1000)
	cart.Add(p, uuid.Nil, "")

	p.PriceCents = 9999
	p.Title = "Renamed"
	cart.Add(p, uuid.Nil, "")

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int32(1000), cart.Lines[0].UnitPriceCents)
	assert.Equal(t, "Crew Tee", cart.Lines[0].Title)
}

func TestCart_DecreaseRemovesAtZero(t *testing.T) {
	var cart Cart
	p := testProduct(1000)
	color := uuid.New()
	cart.Add(p, color, SizeM)
	key := CartKey{ProductID: p.ID, ColorID: color, Size: SizeM}

	assert.True(t, cart.Decrease(key))

	_, ok := cart.Line(key)
	assert.False(t, ok)
	assert.True(t, cart.IsEmpty())
	for _, l := range cart.Lines {
		assert.Positive(t, l.Quantity)
	}
}

func TestCart_IncreaseDecreaseRemove(t *testing.T) {
	var cart Cart
	p := testProduct(300)
	other := testProduct(700)
	cart.Add(p, uuid.Nil, "")
	cart.Add(other, uuid.Nil, "")
	key := CartKey{ProductID: p.ID}

	assert.True(t, cart.Increase(key))
	assert.True(t, cart.Increase(key))
	line, _ := cart.Line(key)
	assert.Equal(t, int32(3), line.Quantity)

	assert.True(t, cart.Decrease(key))
	line, _ = cart.Line(key)
	assert.Equal(t, int32(2), line.Quantity)
	assert.Equal(t, int64(2*300+700), cart.TotalCents())

	assert.True(t, cart.Remove(key))
	assert.Len(t, cart.Lines, 1)
	assert.Equal(t, other.ID, cart.Lines[0].ProductID)

	missing := CartKey{ProductID: uuid.New()}
	assert.False(t, cart.Increase(missing))
	assert.False(t, cart.Decrease(missing))
	assert.False(t, cart.Remove(missing))
}

func TestCart_Normalize(t *testing.T) {
	p := uuid.New()
	cart := Cart{Lines: []CartLine{
		{CartKey: CartKey{ProductID: p, Size: SizeM}, Title: "first", Quantity: 1},
		{CartKey: CartKey{ProductID: p, Size: SizeM}, Title: "dup", Quantity: 2},
		{CartKey: CartKey{ProductID: uuid.New()}, Quantity: 0},
		{CartKey: CartKey{ProductID: uuid.New()}, Quantity: -3},
		{CartKey: CartKey{}, Quantity: 1},
	}}

	cart.Normalize()

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "first", cart.Lines[0].Title)
	assert.Equal(t, int32(3), cart.Lines[0].Quantity)
}

func TestCart_CheckoutLines(t *testing.T) {
	var cart Cart
	p := testProduct(1500)
	color := uuid.New()
	cart.Add(p, color, Size("10"))
	cart.Add(p, color, Size("10"))

	lines := cart.CheckoutLines()
	require.Len(t, lines, 1)
	assert.Equal(t, CheckoutLine{
		ProductID:      p.ID,
		ColorID:        color,
		Size:           "10",
		Title:          p.Title,
		UnitPriceCents: 1500,
		Quantity:       2,
	}, lines[0])
}
