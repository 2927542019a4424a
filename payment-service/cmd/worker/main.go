package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/arunvm123/tourismbooking/internal/clock"
	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/gateway/waafi"
	"github.com/arunvm123/tourismbooking/payment-service/orchestrator"
	"github.com/arunvm123/tourismbooking/payment-service/publisher/kafka"
	"github.com/arunvm123/tourismbooking/payment-service/repository/postgres"
	httpservice "github.com/arunvm123/tourismbooking/payment-service/service/http"
	"github.com/arunvm123/tourismbooking/payment-service/worker"
)

func main() {
	cfg, err := config.Initialise("config.yaml", false)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Env).With("process", "payment-worker")

	repo, err := postgres.NewPaymentRepository(&cfg.Database, log)
	if err != nil {
		log.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}

	events := kafka.NewKafkaEventPublisher(&cfg.Kafka)
	defer events.Close()

	jwtService := auth.NewJWTService(cfg.JWTSecret, "payment-worker")

	// Retries never take an Idempotency-Key, so no redis store here.
	payments := orchestrator.New(
		repo,
		httpservice.NewHTTPPlaceService(&cfg.PlaceService, jwtService),
		waafi.NewClient(&cfg.Gateway, clock.Real(), log),
		events,
		nil,
		clock.Real(),
		orchestrator.OptionsFromConfig(cfg),
		log,
	)

	sweeper := worker.NewPendingSweeper(repo, payments, clock.Real(), worker.SweeperConfigFrom(&cfg.Worker), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker error", "error", err)
		os.Exit(1)
	}

	log.Info("worker stopped gracefully")
}
