package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

func TestFixtureRepository_Embedded(t *testing.T) {
	r, err := NewFixtureRepository("", 0)
	require.NoError(t, err)

	ctx := context.Background()

	cart, err := r.GetCart(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cart.Items)
	require.NoError(t, validation.ValidateLineItems(cart.Items))

	orders, err := r.ListOrders(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, orders)
	for i := 1; i < len(orders); i++ {
		assert.False(t, orders[i].PlacedAt.After(orders[i-1].PlacedAt), "orders must be newest first")
	}
	for _, o := range orders {
		assert.NoError(t, validation.ValidateOrder(o), "fixture order %d", o.ID)
	}
}

func TestFixtureRepository_FindOrder(t *testing.T) {
	r, err := NewFixtureRepository("", 0)
	require.NoError(t, err)

	ctx := context.Background()

	byNumber, err := r.FindOrder(ctx, "ORD-2024-0002")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, byNumber.Status)

	byTracking, err := r.FindOrder(ctx, " 9400111899223100012345 ")
	require.NoError(t, err)
	assert.Equal(t, byNumber.ID, byTracking.ID)

	_, err = r.FindOrder(ctx, "ORD-404")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = r.FindOrder(ctx, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestFixtureRepository_GetOrderReturnsCopy(t *testing.T) {
	r, err := NewFixtureRepository("", 0)
	require.NoError(t, err)

	ctx := context.Background()

	o, err := r.GetOrder(ctx, 1)
	require.NoError(t, err)
	o.Items[0].Quantity = 100
	delete(o.MilestoneDates, model.OrderStatusOrdered)

	again, err := r.GetOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
	assert.Contains(t, again.MilestoneDates, model.OrderStatusOrdered)

	_, err = r.GetOrder(ctx, 999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestFixtureRepository_Directory(t *testing.T) {
	dir := t.TempDir()
	orders := `[{"id": 7, "orderNumber": "ORD-7", "status": "ordered", "orderDate": "2024-04-01T00:00:00Z",
		"items": [{"id": "1", "name": "Mug", "price": 8.5, "quantity": 2}]}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.json"), []byte(orders), 0o600))

	r, err := NewFixtureRepository(dir, 0)
	require.NoError(t, err)

	ctx := context.Background()

	o, err := r.GetOrder(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "17", o.Items[0].LineTotal().String())

	_, err = r.GetCart(ctx)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestFixtureRepository_BadJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.json"), []byte("{"), 0o600))

	_, err := NewFixtureRepository(dir, 0)
	assert.Error(t, err)
}

func TestFixtureRepository_DelayHonorsContext(t *testing.T) {
	r, err := NewFixtureRepository("", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = r.ListOrders(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
