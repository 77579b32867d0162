package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "servhooks:account:"
	redisDialTimeout = 5 * time.Second
)

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis keeps each account's metadata in one hash.
type Redis struct {
	client *redis.Client
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &Redis{client: client}, nil
}

func redisKey(account string) string { return redisKeyPrefix + account }

func (r *Redis) Get(ctx context.Context, account, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, redisKey(account), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", account, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, account, key, value string) error {
	if err := r.client.HSet(ctx, redisKey(account), key, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", account, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, account, key string) error {
	if err := r.client.HDel(ctx, redisKey(account), key).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", account, err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
