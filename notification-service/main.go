package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/notification-service/config"
	"github.com/arunvm123/tourismbooking/notification-service/model"
	"github.com/arunvm123/tourismbooking/notification-service/processor"
	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
)

// The API process consumes payment events itself so /health reports live
// counters. cmd/worker runs the same consumer headless.
func main() {
	cfg, err := config.Initialise("config.yaml", false)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Env).With("service", "notification-service")
	gin.SetMode(logging.GinMode(cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.PaymentTopic,
		GroupID: cfg.Kafka.ConsumerGroup,
	})
	defer consumer.Close()

	p := processor.New(
		processor.NewLogSender(log),
		model.Sender{Name: cfg.Email.FromName, SupportEmail: cfg.Email.SupportEmail},
		log,
	)
	go func() {
		if err := p.Run(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("consumer stopped", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(p, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting notification service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down notification service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
}

type counters interface {
	Processed() int64
	Failed() int64
}

func newRouter(stats counters, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.HealthResponse{
			Status:            "healthy",
			Service:           "notification-service",
			Timestamp:         time.Now(),
			MessagesProcessed: stats.Processed(),
			MessagesFailed:    stats.Failed(),
		})
	})

	return r
}
