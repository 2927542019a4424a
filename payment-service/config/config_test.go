package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_USER", "tourism")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "payments")
}

func TestInitialise(t *testing.T) {
	t.Run("Given only required vars, When loaded, Then payment defaults are safe", func(t *testing.T) {
		setRequired(t)

		cfg, err := Initialise("", true)
		if err != nil {
			t.Fatalf("Initialise: %v", err)
		}
		if cfg.Payment.Mode != PaymentModeProduction {
			t.Errorf("expected production mode by default, got %q", cfg.Payment.Mode)
		}
		if cfg.Payment.FallbackEnabled {
			t.Error("expected fallback to be disabled by default")
		}
		if cfg.Gateway.Timeout() != 30*time.Second {
			t.Errorf("expected 30s gateway timeout, got %v", cfg.Gateway.Timeout())
		}
		if cfg.Gateway.Currency != "USD" || cfg.Gateway.PaymentMethod != "mwallet_account" {
			t.Errorf("unexpected gateway defaults: %+v", cfg.Gateway)
		}
		if cfg.Gateway.MaxIdleConnsPerHost != 10 || cfg.Gateway.IdleConnTimeout != 90 {
			t.Errorf("unexpected gateway pool defaults: %+v", cfg.Gateway)
		}
		if cfg.Payment.IdempotencyTTL() != 24*time.Hour {
			t.Errorf("expected 24h idempotency ttl, got %v", cfg.Payment.IdempotencyTTL())
		}
		if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
			t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
		}
	})

	t.Run("Given sandbox mode, When loaded, Then the sandbox amount is read", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PAYMENT_MODE", "sandbox")
		t.Setenv("PAYMENT_SANDBOX_AMOUNT", "0.05")
		t.Setenv("PAYMENT_FALLBACK_ENABLED", "true")

		cfg, err := Initialise("", true)
		if err != nil {
			t.Fatalf("Initialise: %v", err)
		}
		if cfg.Payment.Mode != PaymentModeSandbox || cfg.Payment.SandboxAmount != 0.05 || !cfg.Payment.FallbackEnabled {
			t.Errorf("unexpected payment config: %+v", cfg.Payment)
		}
	})

	t.Run("Given an unknown mode, When loaded, Then it is rejected", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PAYMENT_MODE", "demo")
		if _, err := Initialise("", true); err == nil {
			t.Error("expected error for unknown payment mode")
		}
	})

	t.Run("Given a missing secret, When loaded, Then it fails", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("DB_USER", "tourism")
		t.Setenv("DB_PASSWORD", "pw")
		t.Setenv("DB_NAME", "payments")
		if _, err := Initialise("", true); err == nil {
			t.Error("expected error for missing JWT_SECRET")
		}
	})
}
