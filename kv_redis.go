package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV persists the session record in Redis, for clients that survive
// process restarts without a local disk (or share a record between workers).
type RedisKV struct {
	client redis.UniversalClient
	logger Logger
}

// NewRedisKV wraps an existing Redis client.
func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return &RedisKV{client: client, logger: defLogger{}}
}

// WithLogger overrides the logger used for lookup failures.
func (r *RedisKV) WithLogger(logger Logger) *RedisKV {
	if logger != nil {
		r.logger = logger
	}
	return r
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Debug("redis get %s: %v", key, err)
		}
		return "", false
	}
	return val, true
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
