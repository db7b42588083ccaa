package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

func TestRedisCache_Miss(t *testing.T) {
	cache, _ := newRedisCache(t)

	_, err := cache.GetMenu(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_SetGetKeepsDecimalPrecision(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()

	menu := []domain.MenuSection{{
		Category: burgers,
		Products: []domain.Product{{ID: uuid.New(), Name: "Whopper", Price: decimal.RequireFromString("6.50")}},
	}}
	require.NoError(t, cache.SetMenu(ctx, menu))

	ttl := mr.TTL(menuKey)
	assert.GreaterOrEqual(t, ttl, 5*time.Minute)
	assert.Less(t, ttl, 5*time.Minute+30*time.Second)

	got, err := cache.GetMenu(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "6.50", got[0].Products[0].Price.StringFixed(2))
	assert.Equal(t, burgers.ID, got[0].Category.ID)
}

func TestRedisCache_Expiry(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetMenu(ctx, []domain.MenuSection{}))
	mr.FastForward(6 * time.Minute)

	_, err := cache.GetMenu(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Invalidate(t *testing.T) {
	cache, _ := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetMenu(ctx, []domain.MenuSection{}))
	require.NoError(t, cache.InvalidateMenu(ctx))

	_, err := cache.GetMenu(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
