package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"belezapos/backend/internal/domain"
)

type RedisCommissionCache struct {
	client *redis.Client
}

func NewRedisCommissionCache(addr string, password string, db int) *RedisCommissionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCommissionCache{client: client}
}

func (c *RedisCommissionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCommissionCache) Close() error {
	return c.client.Close()
}

func (c *RedisCommissionCache) Get(ctx context.Context, key string) (*domain.CommissionSummary, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var summary domain.CommissionSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, false, err
	}
	return &summary, true, nil
}

func (c *RedisCommissionCache) Set(ctx context.Context, key string, value *domain.CommissionSummary, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisCommissionCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
