package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/arunvm123/tourismbooking/internal/clock"
	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/payment-service/cache/redis"
	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/gateway/waafi"
	"github.com/arunvm123/tourismbooking/payment-service/orchestrator"
	"github.com/arunvm123/tourismbooking/payment-service/publisher/kafka"
	"github.com/arunvm123/tourismbooking/payment-service/repository/postgres"
	httpservice "github.com/arunvm123/tourismbooking/payment-service/service/http"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires every dependency. The returned cleanup closes the
// broker and redis connections.
func SetupRouter(ctx context.Context, cfg *config.Config, log *slog.Logger) (*gin.Engine, func(), error) {
	repo, err := postgres.NewPaymentRepository(&cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	idempotency, err := redis.NewRedisIdempotencyStore(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize idempotency store: %w", err)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, "payment-service")
	placeService := httpservice.NewHTTPPlaceService(&cfg.PlaceService, jwtService)
	gatewayClient := waafi.NewClient(&cfg.Gateway, clock.Real(), log)
	events := kafka.NewKafkaEventPublisher(&cfg.Kafka)

	payments := orchestrator.New(
		repo,
		placeService,
		gatewayClient,
		events,
		idempotency,
		clock.Real(),
		orchestrator.OptionsFromConfig(cfg),
		log,
	)

	if cfg.Payment.FallbackEnabled {
		log.Warn("payment fallback mode enabled: unreachable gateway payments will be confirmed without a charge")
	}
	log.Info("payment orchestrator ready", "mode", cfg.Payment.Mode, "currency", cfg.Gateway.Currency)

	handler := NewPaymentHandler(payments, repo, idempotency, log)

	cleanup := func() {
		if err := events.Close(); err != nil {
			log.Error("failed to close event publisher", "error", err)
		}
		if err := idempotency.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	}

	gin.SetMode(logging.GinMode(cfg.Env))
	return newRouter(handler, jwtService, log), cleanup, nil
}

func newRouter(handler *PaymentHandler, jwtService *auth.JWTService, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(auth.CORSMiddleware())
	r.Use(logging.RequestLogger(log))

	// Health check endpoint (no auth required)
	r.GET("/health", handler.HealthCheck)

	protected := r.Group("/api/payments")
	protected.Use(auth.AuthMiddleware(jwtService))

	protected.POST("", handler.CreatePayment)
	protected.GET("/history/:userId", handler.GetPaymentHistory)
	protected.GET("/:paymentId", handler.GetPayment)
	protected.POST("/:paymentId/retry", handler.RetryPayment)
	protected.PUT("/:paymentId/status", auth.RequireRole(auth.RoleAdmin), handler.UpdatePaymentStatus)

	return r
}
