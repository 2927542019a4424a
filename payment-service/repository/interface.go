package repository

import (
	"context"
	"time"

	"github.com/arunvm123/tourismbooking/payment-service/model"
)

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	GetPaymentByID(ctx context.Context, id string) (*model.Payment, error)
	ListUserPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, int, error)

	// TransitionPayment applies req only if the stored status still equals
	// req.From and returns the updated record. A NotFoundError is returned for
	// an unknown id and a ConflictError when the status moved underneath.
	TransitionPayment(ctx context.Context, req model.TransitionRequest) (*model.Payment, error)

	// ClaimCharge marks the payment as being charged at now. It succeeds only
	// for a pending payment without a gateway response whose previous claim,
	// if any, is older than staleBefore. Exactly one concurrent caller wins.
	ClaimCharge(ctx context.Context, paymentID string, now, staleBefore time.Time) (bool, error)
	ReleaseCharge(ctx context.Context, paymentID string) error

	// ListPendingPayments returns pending payments created before olderThan
	// that never got a gateway response, oldest first.
	ListPendingPayments(ctx context.Context, olderThan time.Time, limit int) ([]model.Payment, error)

	// Health check
	Ping(ctx context.Context) error
}
