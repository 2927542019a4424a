package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/notification-service/config"
	"github.com/arunvm123/tourismbooking/notification-service/model"
	"github.com/arunvm123/tourismbooking/notification-service/processor"
	"github.com/segmentio/kafka-go"
)

func main() {
	cfg, err := config.Initialise("config.yaml", false)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Env).With("service", "notification-worker")

	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.PaymentTopic,
		GroupID: cfg.Kafka.ConsumerGroup,
	})
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := processor.New(
		processor.NewLogSender(log),
		model.Sender{Name: cfg.Email.FromName, SupportEmail: cfg.Email.SupportEmail},
		log,
	)

	log.Info("notification worker started", "topic", cfg.Kafka.PaymentTopic, "group", cfg.Kafka.ConsumerGroup)
	if err := p.Run(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker error", "error", err)
		os.Exit(1)
	}

	log.Info("worker stopped gracefully", "processed", p.Processed(), "failed", p.Failed())
}
