package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"github.com/redis/go-redis/v9"
)

const reservedMarker = "__reserved__"

type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(ctx context.Context, cfg *config.Redis) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisURL(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{client: client}, nil
}

// NewRedisIdempotencyStoreFromClient wraps an existing client. Used by tests.
func NewRedisIdempotencyStoreFromClient(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (r *RedisIdempotencyStore) idempotencyKey(userID, key string) string {
	return fmt.Sprintf("payment_idempotency:%s:%s", userID, key)
}

// Reserve holds the key for ttl, which bounds how long a crashed request can
// block it.
func (r *RedisIdempotencyStore) Reserve(ctx context.Context, userID, key string, ttl time.Duration) (string, error) {
	k := r.idempotencyKey(userID, key)

	ok, err := r.client.SetNX(ctx, k, reservedMarker, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return "", nil
	}

	existing, err := r.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; the caller may retry.
			return "", model.ErrIdempotencyInProgress
		}
		return "", fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if existing == reservedMarker {
		return "", model.ErrIdempotencyInProgress
	}
	return existing, nil
}

func (r *RedisIdempotencyStore) Complete(ctx context.Context, userID, key, paymentID string, ttl time.Duration) error {
	return r.client.Set(ctx, r.idempotencyKey(userID, key), paymentID, ttl).Err()
}

func (r *RedisIdempotencyStore) Release(ctx context.Context, userID, key string) error {
	return r.client.Del(ctx, r.idempotencyKey(userID, key)).Err()
}

// Ping checks if Redis is healthy
func (r *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisIdempotencyStore) Close() error {
	return r.client.Close()
}
