// Package gateway defines the payment gateway contract the orchestrator
// charges through.
package gateway

import (
	"context"
	"errors"
	"regexp"
)

// Outcome classifies a charge attempt.
type Outcome int

const (
	// Approved means the provider accepted the charge.
	Approved Outcome = iota + 1
	// Rejected is a definitive decline. It is terminal and never retried.
	Rejected
	// Unreachable means no provider decision was obtained and the charge
	// state is unknown.
	Unreachable
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	case Unreachable:
		return "unreachable"
	}
	return "unknown"
}

// ChargeRequest is one wallet debit.
type ChargeRequest struct {
	Amount       float64
	PayerAccount string
	Description  string
	ReferenceID  string
}

// ChargeResult carries the provider's answer. Err is set only for
// Unreachable and describes the transport failure.
type ChargeResult struct {
	Outcome             Outcome
	ReferenceID         string
	TransactionID       string
	IssuerTransactionID string
	State               string
	ResponseCode        string
	ResponseMsg         string
	MerchantCharges     float64
	TxAmount            float64
	Err                 error
}

// Client charges a payer account. The returned error is reserved for invalid
// input; every provider or transport result is reported as a ChargeResult.
type Client interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

var (
	ErrInvalidAmount       = errors.New("charge amount must be positive")
	ErrInvalidPayerAccount = errors.New("payer account must be a phone-style wallet number")
	ErrMissingReference    = errors.New("charge reference id is required")
)

var walletAccountPattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// IsWalletAccount reports whether s looks like a mobile wallet number.
func IsWalletAccount(s string) bool {
	return walletAccountPattern.MatchString(s)
}

// Validate checks the request before anything goes on the wire.
func (r ChargeRequest) Validate() error {
	if !(r.Amount > 0) {
		return ErrInvalidAmount
	}
	if !IsWalletAccount(r.PayerAccount) {
		return ErrInvalidPayerAccount
	}
	if r.ReferenceID == "" {
		return ErrMissingReference
	}
	return nil
}
