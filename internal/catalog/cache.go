package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

const menuKey = "menu:v1"

// RedisCache stores the rendered menu as JSON. Expiry is ttl plus up to 10%
// jitter so replicas do not all refill at once.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetMenu(ctx context.Context) ([]domain.MenuSection, error) {
	data, err := c.client.Get(ctx, menuKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get menu: %w", err)
	}

	var sections []domain.MenuSection
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	return sections, nil
}

func (c *RedisCache) SetMenu(ctx context.Context, sections []domain.MenuSection) error {
	data, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encode menu: %w", err)
	}

	if err := c.client.Set(ctx, menuKey, data, c.expiry()).Err(); err != nil {
		return fmt.Errorf("set menu: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateMenu(ctx context.Context) error {
	if err := c.client.Del(ctx, menuKey).Err(); err != nil {
		return fmt.Errorf("invalidate menu: %w", err)
	}
	return nil
}

func (c *RedisCache) expiry() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitter := c.ttl / 10
	if jitter <= 0 {
		return c.ttl
	}
	return c.ttl + rand.N(jitter)
}
