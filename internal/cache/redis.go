package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/sync-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, sessionID, cartID string) (*domain.CartSnapshot, error) {
	key := cacheKey(sessionID, cartID)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snapshot domain.CartSnapshot
	if err2 := json.Unmarshal(data, &snapshot); err2 != nil {
		return nil, fmt.Errorf("unmarshal snapshot failed: %w", err2)
	}

	return &snapshot, nil
}

func (r RedisCache) Set(ctx context.Context, sessionID, cartID string, snapshot *domain.CartSnapshot) error {
	key := cacheKey(sessionID, cartID)
	jsonSnapshot, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	ret := r.client.Set(ctx, key, string(jsonSnapshot), ttl)
	if ret.Err() != nil {
		return fmt.Errorf("redis set failed: %w", ret.Err())
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, sessionID, cartID string) error {
	key := cacheKey(sessionID, cartID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func cacheKey(sessionID, cartID string) string {
	return fmt.Sprintf("snapshot:%s:%s", sessionID, cartID)
}
