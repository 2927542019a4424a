package model

import (
	"errors"
	"fmt"
)

// ValidationError is returned when request input is malformed or out of range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

type CapacityExceededError struct {
	Requested   int
	MaxCapacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("visitor count %d exceeds place capacity %d", e.Requested, e.MaxCapacity)
}

// InvalidAmountError means the computed total is not a positive amount.
type InvalidAmountError struct {
	Amount float64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("computed amount %.2f is not payable", e.Amount)
}

// GatewayRejectedError carries the provider's code and message for a
// definitive decline.
type GatewayRejectedError struct {
	PaymentID string
	Code      string
	Message   string
}

func (e *GatewayRejectedError) Error() string {
	return fmt.Sprintf("payment %s rejected by gateway (code %q): %s", e.PaymentID, e.Code, e.Message)
}

// GatewayUnreachableError means the gateway outcome is unknown. The payment
// stays pending.
type GatewayUnreachableError struct {
	PaymentID string
	Err       error
}

func (e *GatewayUnreachableError) Error() string {
	return fmt.Sprintf("payment %s: gateway unreachable: %v", e.PaymentID, e.Err)
}

func (e *GatewayUnreachableError) Unwrap() error {
	return e.Err
}

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move payment from %s to %s", e.From, e.To)
}

// ConflictError is returned when a payment changed underneath an operation,
// or another operation on it is already in flight.
type ConflictError struct {
	PaymentID string
	Reason    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("payment %s: %s", e.PaymentID, e.Reason)
}

// ErrIdempotencyInProgress is returned while a request with the same
// Idempotency-Key is still being processed.
var ErrIdempotencyInProgress = errors.New("a request with this idempotency key is already in progress")

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InternalError wraps a persistence or infrastructure failure.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
