package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/tablekeep/backoffice/internal/database"
)

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

type RedisMenuCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisMenuCache(client redis.Cmdable, ttl time.Duration) *RedisMenuCache {
	return &RedisMenuCache{client: client, ttl: ttl}
}

func (c *RedisMenuCache) GetMenu(ctx context.Context, branchID uuid.UUID) ([]database.MenuItem, bool, error) {
	val, err := c.client.Get(ctx, menuKey(branchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var items []database.MenuItem
	if err := json.Unmarshal(val, &items); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

func (c *RedisMenuCache) SetMenu(ctx context.Context, branchID uuid.UUID, items []database.MenuItem) error {
	if items == nil {
		items = []database.MenuItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, menuKey(branchID), payload, c.ttl).Err()
}

func (c *RedisMenuCache) InvalidateMenu(ctx context.Context, branchID uuid.UUID) error {
	return c.client.Del(ctx, menuKey(branchID)).Err()
}
