// Package orchestrator drives a booking payment from request to a terminal
// gateway outcome and owns every status change afterwards.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/arunvm123/tourismbooking/internal/clock"
	"github.com/arunvm123/tourismbooking/payment-service/cache"
	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/gateway"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"github.com/arunvm123/tourismbooking/payment-service/publisher"
	"github.com/arunvm123/tourismbooking/payment-service/repository"
	"github.com/arunvm123/tourismbooking/payment-service/service"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	bookingDateLayout = "2006-01-02"

	defaultPageSize = 10
	maxPageSize     = 100

	// settleGrace is added to the gateway timeout to persist the outcome.
	settleGrace    = 5 * time.Second
	publishTimeout = 5 * time.Second
)

// Options are the payment policy knobs.
type Options struct {
	Mode               string
	SandboxAmount      float64
	FallbackEnabled    bool
	MinPricePerPerson  float64
	GatewayTimeout     time.Duration
	PlaceLookupTimeout time.Duration
	IdempotencyTTL     time.Duration
	Currency           string
	PaymentMethod      string
}

// OptionsFromConfig maps the service configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Mode:               cfg.Payment.Mode,
		SandboxAmount:      cfg.Payment.SandboxAmount,
		FallbackEnabled:    cfg.Payment.FallbackEnabled,
		MinPricePerPerson:  cfg.Payment.MinPricePerPerson,
		GatewayTimeout:     cfg.Gateway.Timeout(),
		PlaceLookupTimeout: time.Duration(cfg.PlaceService.RequestTimeout) * time.Second,
		IdempotencyTTL:     cfg.Payment.IdempotencyTTL(),
		Currency:           cfg.Gateway.Currency,
		PaymentMethod:      cfg.Gateway.PaymentMethod,
	}
}

// CreateResult is returned by Create and Retry. It is also returned next to
// GatewayRejectedError and GatewayUnreachableError so callers can report the
// payment id.
type CreateResult struct {
	Payment      *model.Payment
	FallbackMode bool
	// Replayed is true when an Idempotency-Key matched an earlier request.
	Replayed bool
}

// History is one page of a user's payments.
type History struct {
	Payments   []model.Payment
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

type Orchestrator struct {
	repo        repository.PaymentRepository
	places      service.PlaceService
	gateway     gateway.Client
	events      publisher.EventPublisher
	idempotency cache.IdempotencyStore
	clock       clock.Clock
	opts        Options
	log         *slog.Logger
	validate    *validator.Validate

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New builds an Orchestrator. idempotency may be nil, in which case
// Idempotency-Key headers are ignored.
func New(
	repo repository.PaymentRepository,
	places service.PlaceService,
	gw gateway.Client,
	events publisher.EventPublisher,
	idempotency cache.IdempotencyStore,
	clk clock.Clock,
	opts Options,
	log *slog.Logger,
) *Orchestrator {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.PaymentMethod == "" {
		opts.PaymentMethod = "mwallet_account"
	}
	return &Orchestrator{
		repo:        repo,
		places:      places,
		gateway:     gw,
		events:      events,
		idempotency: idempotency,
		clock:       clk,
		opts:        opts,
		log:         log.With("component", "payment_orchestrator"),
		validate:    newValidator(),
		inFlight:    make(map[string]struct{}),
	}
}

// Create validates the request, prices the booking, persists a pending
// payment and charges it once.
func (o *Orchestrator) Create(ctx context.Context, req CreatePaymentRequest, idempotencyKey string) (*CreateResult, error) {
	if err := o.validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}
	bookingDate, err := time.Parse(bookingDateLayout, req.BookingDate)
	if err != nil {
		return nil, &model.ValidationError{Field: "booking_date", Reason: "must be a date in YYYY-MM-DD format"}
	}

	if idempotencyKey != "" && o.idempotency != nil {
		existingID, err := o.idempotency.Reserve(ctx, req.UserID, idempotencyKey, o.reservationTTL())
		switch {
		case errors.Is(err, model.ErrIdempotencyInProgress):
			return nil, &model.ConflictError{PaymentID: existingID, Reason: err.Error()}
		case err != nil:
			return nil, &model.InternalError{Op: "reserve idempotency key", Err: err}
		case existingID != "":
			payment, err := o.GetByID(ctx, existingID)
			if err != nil {
				return nil, err
			}
			return &CreateResult{Payment: payment, FallbackMode: payment.IsFallback(), Replayed: true}, nil
		}

		var createdID string
		defer func() {
			o.settleIdempotency(ctx, req.UserID, idempotencyKey, createdID)
		}()
		result, err := o.create(ctx, req, bookingDate)
		if result != nil && result.Payment != nil {
			createdID = result.Payment.ID
		}
		return result, err
	}

	return o.create(ctx, req, bookingDate)
}

func (o *Orchestrator) create(ctx context.Context, req CreatePaymentRequest, bookingDate time.Time) (*CreateResult, error) {
	place, err := o.places.GetPlace(ctx, req.PlaceID)
	if err != nil {
		if model.IsNotFound(err) {
			return nil, err
		}
		return nil, &model.InternalError{Op: "look up place", Err: err}
	}

	if place.MaxCapacity > 0 && req.VisitorCount > place.MaxCapacity {
		return nil, &model.CapacityExceededError{Requested: req.VisitorCount, MaxCapacity: place.MaxCapacity}
	}

	pricePerPerson := math.Max(place.PricePerPerson, o.opts.MinPricePerPerson)
	total := roundCents(pricePerPerson * float64(req.VisitorCount))
	if !(total > 0) {
		return nil, &model.InvalidAmountError{Amount: total}
	}

	actualPaid := total
	if o.opts.Mode == config.PaymentModeSandbox {
		actualPaid = math.Min(total, o.opts.SandboxAmount)
	}

	// A new payment is born claimed, so no other process can charge it
	// while this one does.
	createdAt := o.clock.Now()
	payment := &model.Payment{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		UserFullName:     req.UserFullName,
		UserAccountNo:    req.UserAccountNo,
		PlaceID:          place.ID,
		PlaceName:        place.NameEng,
		BookingDate:      bookingDate,
		TimeSlot:         req.TimeSlot,
		VisitorCount:     req.VisitorCount,
		PricePerPerson:   pricePerPerson,
		TotalAmount:      total,
		ActualPaidAmount: actualPaid,
		Currency:         o.opts.Currency,
		PaymentMethod:    o.opts.PaymentMethod,
		ContactEmail:     req.ContactEmail,
		ContactPhone:     req.ContactPhone,
		Status:           model.StatusPending,
		ChargeClaimedAt:  &createdAt,
		CreatedAt:        createdAt,
	}

	if err := o.chargeRequest(payment).Validate(); err != nil {
		return nil, &model.ValidationError{Field: "user_account_no", Reason: err.Error()}
	}

	if err := o.repo.CreatePayment(ctx, payment); err != nil {
		return nil, &model.InternalError{Op: "persist payment", Err: err}
	}

	o.log.Info("payment created",
		"payment_id", payment.ID,
		"user_id", payment.UserID,
		"place_id", payment.PlaceID,
		"total_amount", payment.TotalAmount,
		"actual_paid_amount", payment.ActualPaidAmount,
	)

	// A fresh id cannot already be in flight.
	o.acquire(payment.ID)
	defer o.release(payment.ID)

	return o.charge(ctx, payment)
}

// Retry charges a payment that was left pending by an unreachable gateway.
func (o *Orchestrator) Retry(ctx context.Context, paymentID string) (*CreateResult, error) {
	if !o.acquire(paymentID) {
		return nil, &model.ConflictError{PaymentID: paymentID, Reason: "a gateway call for this payment is already in progress"}
	}
	defer o.release(paymentID)

	payment, err := o.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.StatusPending {
		return nil, &model.ConflictError{
			PaymentID: paymentID,
			Reason:    fmt.Sprintf("payment is %s, only pending payments can be retried", payment.Status),
		}
	}
	// A payment that already reached the gateway was either charged or
	// rejected. Charging it again would debit twice.
	if payment.HasGatewayResponse() {
		return nil, &model.ConflictError{
			PaymentID: paymentID,
			Reason:    "payment already has a gateway response and cannot be charged again",
		}
	}

	claimed, err := o.claimCharge(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, &model.ConflictError{PaymentID: paymentID, Reason: "a gateway call for this payment is already in progress"}
	}

	o.log.Info("retrying pending payment", "payment_id", paymentID)
	return o.charge(ctx, payment)
}

// chargeLease bounds how long a claim blocks other processes. It matches
// the detached context a charge runs under.
func (o *Orchestrator) chargeLease() time.Duration {
	return o.opts.GatewayTimeout + settleGrace
}

// reservationTTL covers a whole create: the place lookup, then the charge
// and its settle.
func (o *Orchestrator) reservationTTL() time.Duration {
	return o.opts.PlaceLookupTimeout + o.chargeLease()
}

func (o *Orchestrator) claimCharge(ctx context.Context, paymentID string) (bool, error) {
	now := o.clock.Now()
	claimed, err := o.repo.ClaimCharge(ctx, paymentID, now, now.Add(-o.chargeLease()))
	if err != nil {
		return false, &model.InternalError{Op: "claim payment charge", Err: err}
	}
	return claimed, nil
}

// releaseCharge drops the claim on a payment left pending so a later retry
// does not wait for the lease to run out.
func (o *Orchestrator) releaseCharge(ctx context.Context, paymentID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := o.repo.ReleaseCharge(ctx, paymentID); err != nil {
		o.log.Warn("failed to release payment charge claim", "payment_id", paymentID, "error", err)
	}
}

// charge runs the gateway call and persists its outcome. Both run detached
// from the caller's cancellation so an abandoned request still settles.
func (o *Orchestrator) charge(ctx context.Context, payment *model.Payment) (*CreateResult, error) {
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.GatewayTimeout+settleGrace)
	defer cancel()

	res, err := o.gateway.Charge(settleCtx, o.chargeRequest(payment))
	if err != nil {
		o.releaseCharge(ctx, payment.ID)
		return &CreateResult{Payment: payment}, &model.InternalError{Op: "charge payment", Err: err}
	}

	now := o.clock.Now()
	switch res.Outcome {
	case gateway.Approved:
		updated, err := o.settle(settleCtx, payment, model.StatusConfirmed, gatewayResponse(res, now), &now)
		if err != nil {
			var conflict *model.ConflictError
			if errors.As(err, &conflict) {
				o.log.Error("gateway approved a charge that could not be recorded, reconcile manually",
					"payment_id", payment.ID,
					"reference_id", res.ReferenceID,
					"transaction_id", res.TransactionID,
					"issuer_transaction_id", res.IssuerTransactionID,
					"state", res.State,
					"response_code", res.ResponseCode,
					"response_msg", res.ResponseMsg,
					"tx_amount", res.TxAmount,
					"merchant_charges", res.MerchantCharges,
					"error", err,
				)
			}
			return &CreateResult{Payment: payment}, err
		}
		o.publish(ctx, updated, model.EventPaymentConfirmed, model.StatusPending)
		return &CreateResult{Payment: updated}, nil

	case gateway.Rejected:
		updated, err := o.settle(settleCtx, payment, model.StatusCancelled, gatewayResponse(res, now), nil)
		if err != nil {
			return &CreateResult{Payment: payment}, err
		}
		o.publish(ctx, updated, model.EventPaymentCancelled, model.StatusPending)
		return &CreateResult{Payment: updated}, &model.GatewayRejectedError{
			PaymentID: updated.ID,
			Code:      res.ResponseCode,
			Message:   res.ResponseMsg,
		}

	default:
		if !o.opts.FallbackEnabled {
			o.log.Warn("gateway unreachable, payment left pending",
				"payment_id", payment.ID,
				"error", res.Err,
			)
			o.releaseCharge(ctx, payment.ID)
			return &CreateResult{Payment: payment}, &model.GatewayUnreachableError{PaymentID: payment.ID, Err: res.Err}
		}

		updated, err := o.settle(settleCtx, payment, model.StatusConfirmed, fallbackResponse(payment, now), &now)
		if err != nil {
			return &CreateResult{Payment: payment}, err
		}
		o.log.Warn("gateway unreachable, payment confirmed in fallback mode",
			"payment_id", updated.ID,
			"transaction_id", updated.Gateway.TransactionID,
			"error", res.Err,
		)
		o.publish(ctx, updated, model.EventPaymentFallbackConfirmed, model.StatusPending)
		return &CreateResult{Payment: updated, FallbackMode: true}, nil
	}
}

func (o *Orchestrator) settle(ctx context.Context, payment *model.Payment, to string, gw *model.GatewayResponse, paidAt *time.Time) (*model.Payment, error) {
	updated, err := o.repo.TransitionPayment(ctx, model.TransitionRequest{
		PaymentID: payment.ID,
		From:      model.StatusPending,
		To:        to,
		Gateway:   gw,
		PaidAt:    paidAt,
	})
	if err != nil {
		var conflict *model.ConflictError
		if errors.As(err, &conflict) || model.IsNotFound(err) {
			return nil, err
		}
		o.log.Error("failed to persist gateway outcome",
			"payment_id", payment.ID,
			"status", to,
			"response_code", gw.ResponseCode,
			"error", err,
		)
		return nil, &model.InternalError{Op: "persist gateway outcome", Err: err}
	}
	return updated, nil
}

// UpdateStatus sets an administrative status. Payments never leave
// completed, and a payment with a gateway call in flight cannot be touched.
func (o *Orchestrator) UpdateStatus(ctx context.Context, paymentID, status string) (*model.Payment, error) {
	if !model.IsValidStatus(status) {
		return nil, &model.ValidationError{Field: "status", Reason: "must be one of pending, confirmed, cancelled, completed"}
	}

	if !o.acquire(paymentID) {
		return nil, &model.ConflictError{PaymentID: paymentID, Reason: "a gateway call for this payment is in progress"}
	}
	defer o.release(paymentID)

	payment, err := o.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status == model.StatusCompleted && status != model.StatusCompleted {
		return nil, &model.InvalidTransitionError{From: payment.Status, To: status}
	}
	if payment.Status == status {
		return payment, nil
	}

	// Claiming a chargeable pending payment keeps other processes from
	// charging it while its status changes. The transition clears the claim.
	var claimed bool
	if payment.Status == model.StatusPending && !payment.HasGatewayResponse() {
		claimed, err = o.claimCharge(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, &model.ConflictError{PaymentID: paymentID, Reason: "a gateway call for this payment is in progress"}
		}
	}

	req := model.TransitionRequest{PaymentID: paymentID, From: payment.Status, To: status}
	if (status == model.StatusConfirmed || status == model.StatusCompleted) && payment.PaidAt == nil {
		now := o.clock.Now()
		req.PaidAt = &now
	}

	updated, err := o.repo.TransitionPayment(ctx, req)
	if err != nil {
		if claimed {
			o.releaseCharge(ctx, paymentID)
		}
		var conflict *model.ConflictError
		if errors.As(err, &conflict) || model.IsNotFound(err) {
			return nil, err
		}
		return nil, &model.InternalError{Op: "update payment status", Err: err}
	}

	o.log.Info("payment status updated",
		"payment_id", paymentID,
		"from", payment.Status,
		"to", status,
	)
	o.publish(ctx, updated, model.EventPaymentStatusUpdated, payment.Status)
	return updated, nil
}

func (o *Orchestrator) GetByID(ctx context.Context, paymentID string) (*model.Payment, error) {
	payment, err := o.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		if model.IsNotFound(err) {
			return nil, err
		}
		return nil, &model.InternalError{Op: "get payment", Err: err}
	}
	return payment, nil
}

// GetHistory returns a user's payments newest first. Out of range page
// values fall back to the first page of defaultPageSize.
func (o *Orchestrator) GetHistory(ctx context.Context, userID string, page, pageSize int) (*History, error) {
	if userID == "" {
		return nil, &model.ValidationError{Field: "user_id", Reason: "is required"}
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	payments, total, err := o.repo.ListUserPayments(ctx, model.PaymentFilter{
		UserID: userID,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, &model.InternalError{Op: "list payments", Err: err}
	}

	return &History{
		Payments:   payments,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// IsInFlight reports whether a gateway call or status update for paymentID
// is running.
func (o *Orchestrator) IsInFlight(paymentID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inFlight[paymentID]
	return ok
}

func (o *Orchestrator) acquire(paymentID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[paymentID]; busy {
		return false
	}
	o.inFlight[paymentID] = struct{}{}
	return true
}

func (o *Orchestrator) release(paymentID string) {
	o.mu.Lock()
	delete(o.inFlight, paymentID)
	o.mu.Unlock()
}

func (o *Orchestrator) chargeRequest(p *model.Payment) gateway.ChargeRequest {
	return gateway.ChargeRequest{
		Amount:       p.ActualPaidAmount,
		PayerAccount: p.UserAccountNo,
		Description:  fmt.Sprintf("Tourism booking for %s - %d visitors", p.PlaceName, p.VisitorCount),
		ReferenceID:  p.ID,
	}
}

func (o *Orchestrator) settleIdempotency(ctx context.Context, userID, key, paymentID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	var err error
	if paymentID == "" {
		err = o.idempotency.Release(ctx, userID, key)
	} else {
		err = o.idempotency.Complete(ctx, userID, key, paymentID, o.opts.IdempotencyTTL)
	}
	if err != nil {
		o.log.Warn("failed to settle idempotency key", "user_id", userID, "payment_id", paymentID, "error", err)
	}
}

// publish is best effort. A lost event never changes the payment outcome.
func (o *Orchestrator) publish(ctx context.Context, p *model.Payment, eventType, previousStatus string) {
	if o.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := o.events.Publish(ctx, p.ToPaymentEvent(eventType, previousStatus, o.clock.Now())); err != nil {
		o.log.Warn("failed to publish payment event", "payment_id", p.ID, "type", eventType, "error", err)
	}
}

func gatewayResponse(res *gateway.ChargeResult, at time.Time) *model.GatewayResponse {
	return &model.GatewayResponse{
		ReferenceID:         res.ReferenceID,
		TransactionID:       res.TransactionID,
		IssuerTransactionID: res.IssuerTransactionID,
		State:               res.State,
		ResponseCode:        res.ResponseCode,
		ResponseMsg:         res.ResponseMsg,
		MerchantCharges:     res.MerchantCharges,
		TxAmount:            res.TxAmount,
		RespondedAt:         &at,
	}
}

func fallbackResponse(p *model.Payment, at time.Time) *model.GatewayResponse {
	return &model.GatewayResponse{
		ReferenceID:   p.ID,
		TransactionID: fmt.Sprintf("DEMO_%d", at.UnixMilli()),
		State:         "APPROVED",
		ResponseCode:  model.FallbackResponseCode,
		ResponseMsg:   model.FallbackResponseMsg,
		TxAmount:      p.ActualPaidAmount,
		Fallback:      true,
		RespondedAt:   &at,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
