package client

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testProduct(name string, price float64, stock int) *Product {
	return &Product{ID: primitive.NewObjectID(), Name: name, Price: price, Stock: stock, IsActive: true}
}

func TestCartTotals(t *testing.T) {
	cart, err := NewCart(nil)
	require.NoError(t, err)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cart.now = func() time.Time { return now }

	assert.Equal(t, CartTotals{}, cart.Totals())

	lamp := testProduct("Lamp", 40, 10)
	lamp.Discount = &Discount{Percentage: 25, ValidUntil: now.Add(time.Hour)}
	require.NoError(t, cart.Add(lamp, 2))

	totals := cart.Totals()
	assert.Equal(t, 60.0, totals.Subtotal)
	assert.Equal(t, FlatShippingCost, totals.Shipping)
	assert.Equal(t, 9.0, totals.Tax)
	assert.Equal(t, 79.0, totals.Total)

	require.NoError(t, cart.Add(testProduct("Rug", 50, 1), 1))
	totals = cart.Totals()
	assert.Equal(t, 110.0, totals.Subtotal)
	assert.Zero(t, totals.Shipping)
	assert.Equal(t, 16.5, totals.Tax)
	assert.Equal(t, 126.5, totals.Total)
}

func TestCartExpiredDiscount(t *testing.T) {
	cart, err := NewCart(nil)
	require.NoError(t, err)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cart.now = func() time.Time { return now }

	p := testProduct("Lamp", 40, 10)
	p.Discount = &Discount{Percentage: 25, ValidUntil: now.Add(-time.Minute)}
	require.NoError(t, cart.Add(p, 1))
	assert.Equal(t, 40.0, cart.Totals().Subtotal)
}

func TestCartQuantityCappedAtStock(t *testing.T) {
	cart, err := NewCart(nil)
	require.NoError(t, err)
	p := testProduct("Mug", 8, 3)

	require.NoError(t, cart.Add(p, 2))
	require.NoError(t, cart.Add(p, 5))
	assert.Equal(t, 3, cart.Count())
	require.Len(t, cart.Items(), 1)

	require.NoError(t, cart.SetQuantity(p.ID, 1))
	assert.Equal(t, 1, cart.Count())

	require.NoError(t, cart.Remove(p.ID))
	assert.Empty(t, cart.Items())
	assert.Error(t, cart.Remove(p.ID))

	assert.Error(t, cart.Add(testProduct("Gone", 5, 0), 1))
}

func TestCartOrderInput(t *testing.T) {
	cart, err := NewCart(nil)
	require.NoError(t, err)
	p := testProduct("Mug", 8, 3)
	require.NoError(t, cart.Add(p, 2))

	in := cart.OrderInput(Address{Street: "1 Main St", City: "Springfield", PostalCode: "1", Country: "US"}, "paypal")
	require.Len(t, in.Items, 1)
	assert.Equal(t, p.ID.Hex(), in.Items[0].ProductID)
	assert.Equal(t, 2, in.Items[0].Quantity)
	assert.Equal(t, FlatShippingCost, in.ShippingCost)
	assert.Equal(t, 2.4, in.Tax)
	assert.NoError(t, in.Validate())
}

func TestFileStorePersistsCart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cart.json")

	cart, err := NewCart(NewFileStore(path))
	require.NoError(t, err)
	assert.Empty(t, cart.Items())

	p := testProduct("Mug", 8, 3)
	require.NoError(t, cart.Add(p, 2))

	reloaded, err := NewCart(NewFileStore(path))
	require.NoError(t, err)
	require.Len(t, reloaded.Items(), 1)
	assert.Equal(t, p.ID, reloaded.Items()[0].ProductID)
	assert.Equal(t, 2, reloaded.Count())

	require.NoError(t, reloaded.Clear())
	again, err := NewCart(NewFileStore(path))
	require.NoError(t, err)
	assert.Empty(t, again.Items())
}
