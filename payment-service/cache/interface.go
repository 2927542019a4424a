package cache

import (
	"context"
	"time"
)

// IdempotencyStore remembers which payment an Idempotency-Key produced so a
// retried create returns the original payment instead of charging twice.
type IdempotencyStore interface {
	// Reserve claims key for userID until ttl runs out. When the key already
	// completed it returns the stored payment id. While another request holds
	// the key it returns model.ErrIdempotencyInProgress.
	Reserve(ctx context.Context, userID, key string, ttl time.Duration) (string, error)
	// Complete records the payment id produced under key.
	Complete(ctx context.Context, userID, key, paymentID string, ttl time.Duration) error
	// Release drops a reservation that did not produce a payment.
	Release(ctx context.Context, userID, key string) error

	// Health check
	Ping(ctx context.Context) error
}
