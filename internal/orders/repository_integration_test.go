//go:build integration

package orders_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/burgerverse/internal/catalog"
	"github.com/joao-fontenele/burgerverse/internal/domain"
	"github.com/joao-fontenele/burgerverse/internal/orders"
	"github.com/joao-fontenele/burgerverse/internal/testutil"
)

// seeded by migrations
var vegBurgerID = uuid.MustParse("0b7e5d1a-2c3f-4a8b-9e6d-1f2a3b4c5d02")

func TestPostgresCartLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := testutil.Postgres(ctx, t)
	userID := uuid.MustParse(testutil.CreateUser(ctx, t, db, "alice"))

	products := catalog.NewRepository(db)
	svc, err := orders.NewService(orders.NewRepository(db), products)
	require.NoError(t, err)

	cart, err := svc.GetOrCreateActiveCart(ctx, userID)
	require.NoError(t, err)
	assert.True(t, cart.TotalPrice.IsZero())

	order, err := svc.AddProduct(ctx, cart.ID, vegBurgerID, 1)
	require.NoError(t, err)
	assert.Equal(t, "5.00", order.TotalPrice.StringFixed(2))

	_, err = products.UpdateProductPrice(ctx, vegBurgerID, decimal.RequireFromString("7.25"))
	require.NoError(t, err)

	order, err = svc.AddProduct(ctx, cart.ID, vegBurgerID, 1)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "Veg Burger", order.Items[0].ProductName)
	assert.Equal(t, "5.00", order.Items[0].Price.StringFixed(2))
	assert.Equal(t, "10.00", order.TotalPrice.StringFixed(2))

	order, err = svc.Checkout(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPreparing, order.Status)

	stored, err := orders.NewRepository(db).GetOrder(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPreparing, stored.Status)
	assert.Equal(t, "10.00", stored.TotalPrice.StringFixed(2))

	fresh, err := svc.GetOrCreateActiveCart(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, cart.ID, fresh.ID)

	_, err = svc.Checkout(ctx, fresh.ID)
	assert.ErrorIs(t, err, orders.ErrEmptyCart)
}

func TestPostgresConcurrentAddsUseOneCart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := testutil.Postgres(ctx, t)
	userID := uuid.MustParse(testutil.CreateUser(ctx, t, db, "bob"))

	svc, err := orders.NewService(orders.NewRepository(db), catalog.NewRepository(db))
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddToActiveCart(ctx, userID, vegBurgerID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var pending int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status = 'PENDING'`, userID).Scan(&pending)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	cart, err := svc.ActiveCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, workers, cart.Items[0].Quantity)
	assert.Equal(t, "50.00", cart.TotalPrice.StringFixed(2))
}
