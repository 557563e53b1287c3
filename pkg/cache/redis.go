// Package cache keeps background-removal masks in Redis so repeated uploads
// of the same image skip inference.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/logging"
)

const keyPrefix = "promptcanvas:mask:"

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(opts Options) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisCache{client: client, ttl: opts.TTL}
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetMask returns the stored mask PNG, or nil on a miss.
func (c *RedisCache) GetMask(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (c *RedisCache) SetMask(ctx context.Context, key string, maskPNG []byte) error {
	if err := c.client.Set(ctx, keyPrefix+key, maskPNG, c.ttl).Err(); err != nil {
		logging.Logger.Warn("failed to cache mask", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
