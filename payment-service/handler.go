package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"github.com/arunvm123/tourismbooking/payment-service/orchestrator"
	"github.com/gin-gonic/gin"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

// PaymentOrchestrator is the subset of *orchestrator.Orchestrator the
// handlers use.
type PaymentOrchestrator interface {
	Create(ctx context.Context, req orchestrator.CreatePaymentRequest, idempotencyKey string) (*orchestrator.CreateResult, error)
	Retry(ctx context.Context, paymentID string) (*orchestrator.CreateResult, error)
	UpdateStatus(ctx context.Context, paymentID, status string) (*model.Payment, error)
	GetByID(ctx context.Context, paymentID string) (*model.Payment, error)
	GetHistory(ctx context.Context, userID string, page, pageSize int) (*orchestrator.History, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type PaymentHandler struct {
	payments PaymentOrchestrator
	db       pinger
	redis    pinger
	log      *slog.Logger
}

// NewPaymentHandler builds the handler. redis may be nil when idempotency
// keys are disabled.
func NewPaymentHandler(payments PaymentOrchestrator, db, redis pinger, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		db:       db,
		redis:    redis,
		log:      log,
	}
}

// CreatePayment handles POST /api/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var body model.CreatePaymentAPIRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.bindError(c, err)
		return
	}

	key := c.GetHeader(idempotencyHeader)
	if len(key) > maxIdempotencyKeyLen {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_failed",
			Message: fmt.Sprintf("%s must be at most %d characters", idempotencyHeader, maxIdempotencyKeyLen),
		})
		return
	}

	req := orchestrator.NewCreatePaymentRequest(auth.UserID(c), body)
	result, err := h.payments.Create(c.Request.Context(), req, key)
	if err != nil {
		h.writeCreateError(c, result, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, createResponse(result))
}

// RetryPayment handles POST /api/payments/:paymentId/retry
func (h *PaymentHandler) RetryPayment(c *gin.Context) {
	payment, ok := h.loadOwnedPayment(c)
	if !ok {
		return
	}

	result, err := h.payments.Retry(c.Request.Context(), payment.ID)
	if err != nil {
		h.writeCreateError(c, result, err)
		return
	}
	c.JSON(http.StatusOK, createResponse(result))
}

// GetPayment handles GET /api/payments/:paymentId
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, ok := h.loadOwnedPayment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, payment.ToPaymentResponse())
}

// GetPaymentHistory handles GET /api/payments/history/:userId?page=&limit=
func (h *PaymentHandler) GetPaymentHistory(c *gin.Context) {
	userID := c.Param("userId")
	if userID != auth.UserID(c) && !auth.IsAdmin(c) {
		h.forbidden(c)
		return
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		h.bindError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		h.bindError(c, err)
		return
	}

	history, err := h.payments.GetHistory(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	payments := make([]model.PaymentResponse, len(history.Payments))
	for i := range history.Payments {
		payments[i] = history.Payments[i].ToPaymentResponse()
	}
	c.JSON(http.StatusOK, model.PaymentHistoryResponse{
		Payments:    payments,
		Total:       history.Total,
		TotalPages:  history.TotalPages,
		CurrentPage: history.Page,
		PageSize:    history.PageSize,
	})
}

// UpdatePaymentStatus handles PUT /api/payments/:paymentId/status (admin)
func (h *PaymentHandler) UpdatePaymentStatus(c *gin.Context) {
	var req model.UpdateStatusAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	payment, err := h.payments.UpdateStatus(c.Request.Context(), c.Param("paymentId"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment.ToPaymentResponse())
}

func (h *PaymentHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	healthy := true
	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unavailable"
		healthy = false
	}
	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "unavailable"
			healthy = false
		}
	}

	resp := model.HealthResponse{
		Status:    "healthy",
		Service:   "payment-service",
		Timestamp: time.Now(),
		Checks:    checks,
	}
	if !healthy {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) loadOwnedPayment(c *gin.Context) (*model.Payment, bool) {
	payment, err := h.payments.GetByID(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	if payment.UserID != auth.UserID(c) && !auth.IsAdmin(c) {
		h.forbidden(c)
		return nil, false
	}
	return payment, true
}

func createResponse(result *orchestrator.CreateResult) model.CreatePaymentResponse {
	p := result.Payment
	resp := model.CreatePaymentResponse{
		PaymentID:        p.ID,
		TotalAmount:      p.TotalAmount,
		ActualPaidAmount: p.ActualPaidAmount,
		Status:           p.Status,
		FallbackMode:     result.FallbackMode,
	}
	if p.HasGatewayResponse() {
		resp.GatewayResponse = p.Gateway.ToDTO()
	}

	switch {
	case result.FallbackMode:
		resp.Message = "Payment confirmed in demo mode, pending reconciliation"
	case p.Status == model.StatusConfirmed || p.Status == model.StatusCompleted:
		resp.Message = "Payment successful"
	case p.Status == model.StatusCancelled:
		resp.Message = "Payment failed"
	default:
		resp.Message = "Payment pending"
	}
	return resp
}

// writeCreateError reports gateway failures together with the payment they
// left behind.
func (h *PaymentHandler) writeCreateError(c *gin.Context, result *orchestrator.CreateResult, err error) {
	var (
		rejected    *model.GatewayRejectedError
		unreachable *model.GatewayUnreachableError
	)
	switch {
	case errors.As(err, &rejected) && result != nil:
		c.JSON(http.StatusPaymentRequired, model.ErrorResponse{
			Error:   "payment_rejected",
			Message: rejected.Message,
			Details: createResponse(result),
		})
	case errors.As(err, &unreachable) && result != nil:
		h.log.Warn("payment left pending", "payment_id", unreachable.PaymentID, "error", unreachable.Err)
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "gateway_unreachable",
			Message: "Payment gateway unavailable, the payment is pending and can be retried",
			Details: createResponse(result),
		})
	default:
		h.writeError(c, err)
	}
}

// writeError maps orchestrator errors onto HTTP responses
func (h *PaymentHandler) writeError(c *gin.Context, err error) {
	var (
		verr        *model.ValidationError
		notFound    *model.NotFoundError
		capacity    *model.CapacityExceededError
		amount      *model.InvalidAmountError
		transition  *model.InvalidTransitionError
		conflict    *model.ConflictError
		rejected    *model.GatewayRejectedError
		unreachable *model.GatewayUnreachableError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "validation_failed", Message: verr.Error(), Details: gin.H{"field": verr.Field}})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not_found", Message: notFound.Error()})
	case errors.As(err, &capacity):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "capacity_exceeded", Message: capacity.Error()})
	case errors.As(err, &amount):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid_amount", Message: amount.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid_transition", Message: transition.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, model.ErrorResponse{Error: "conflict", Message: conflict.Reason})
	case errors.As(err, &rejected):
		c.JSON(http.StatusPaymentRequired, model.ErrorResponse{Error: "payment_rejected", Message: rejected.Message})
	case errors.As(err, &unreachable):
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "gateway_unreachable", Message: "Payment gateway unavailable"})
	default:
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "internal_error", Message: "Internal server error"})
	}
}

func (h *PaymentHandler) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "validation_failed",
		Message: err.Error(),
	})
}

func (h *PaymentHandler) forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, model.ErrorResponse{
		Error:   "forbidden",
		Message: "Not allowed to access this payment",
	})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
