package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rds "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCacheMiss is returned by Get when the key does not exist
var ErrCacheMiss = errors.New("cache miss")

// Redis wraps a go-redis client with JSON values
type Redis struct {
	Client *rds.Client
	Logger zerolog.Logger
}

// New connects to the Redis server at uri and pings it
func New(ctx context.Context, uri string, logger zerolog.Logger) (*Redis, error) {
	ops, err := rds.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	redis := &Redis{
		Client: rds.NewClient(ops),
		Logger: logger,
	}

	if err := redis.Ping(ctx); err != nil {
		_ = redis.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return redis, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}

// Set stores value as JSON under key. A zero expiration keeps the key forever.
func (r *Redis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}

	r.Logger.Debug().Str("key", key).Msg("setting cache value")
	return r.Client.Set(ctx, key, v, expiration).Err()
}

// Get decodes the JSON value stored under key into dest
func (r *Redis) Get(ctx context.Context, key string, dest any) error {
	r.Logger.Debug().Str("key", key).Msg("getting cache value")
	val, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, rds.Nil) {
			r.Logger.Debug().Str("key", key).Msg("cache miss")
			return ErrCacheMiss
		}
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete removes key and reports ErrCacheMiss when it did not exist
func (r *Redis) Delete(ctx context.Context, key string) error {
	n, err := r.Client.Del(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCacheMiss
	}
	return nil
}
