package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRemote is a Remote backed by redis.
type RedisRemote struct {
	client *redis.Client
}

func NewRedisRemote(client *redis.Client) *RedisRemote {
	return &RedisRemote{client: client}
}

func (r *RedisRemote) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisRemote) Generation(ctx context.Context, key string) (uint64, error) {
	g, err := r.client.Get(ctx, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return g, err
}

func (r *RedisRemote) Bump(ctx context.Context, key string) (uint64, error) {
	g, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return uint64(g), nil
}

// Close is a no-op; the redis client is shared with the session store.
func (r *RedisRemote) Close() error {
	return nil
}
