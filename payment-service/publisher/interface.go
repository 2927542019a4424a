package publisher

import (
	"context"

	"github.com/arunvm123/tourismbooking/payment-service/model"
)

// EventPublisher delivers payment events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event model.PaymentEvent) error
	Close() error
}
