package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisKV stores each key as a plain Redis string under a namespace prefix.
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func NewRedisKV(rdb *redis.Client, prefix string) *RedisKV {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "syncare"
	}
	return &RedisKV{rdb: rdb, prefix: prefix}
}

func (r *RedisKV) key(k string) string {
	return r.prefix + ":" + k
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}
