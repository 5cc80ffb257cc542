package viewcache

import (
	"context"
	"errors"

	rds "github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by redis, for deployments running more than
// one instance behind a load balancer
type RedisCache struct {
	client *rds.Client
}

// NewRedisCache creates new RedisCache instance
func NewRedisCache(addr string) *RedisCache {
	client := rds.NewClient(&rds.Options{
		Addr: addr,
	})
	return &RedisCache{client: client}
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, 0).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, rds.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return value, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close releases the redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
