package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/spf13/cobra"
)

var Version = "dev"

type options struct {
	placeURL   string
	paymentURL string
	notifyURL  string
	jwtSecret  string
	token      string
	timeout    time.Duration
}

// bearer returns --token when given, otherwise signs a short-lived admin
// token with --jwt-secret.
func (o *options) bearer() (string, error) {
	if o.token != "" {
		return o.token, nil
	}
	if o.jwtSecret == "" {
		return "", errors.New("either --token or --jwt-secret (JWT_SECRET) is required")
	}
	return auth.NewJWTService(o.jwtSecret, "tourismctl").
		GenerateToken("tourismctl", "tourismctl@internal", auth.RoleAdmin, 15*time.Minute)
}

func (o *options) client(baseURL string) (*apiClient, error) {
	token, err := o.bearer()
	if err != nil {
		return nil, err
	}
	return newAPIClient(baseURL, token, o.timeout), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "tourismctl",
		Short:         "Admin CLI for the tourism booking services",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.placeURL, "place-url", envOr("PLACE_SERVICE_URL", "http://localhost:8082"), "Place service base URL")
	flags.StringVar(&opts.paymentURL, "payment-url", envOr("PAYMENT_SERVICE_URL", "http://localhost:8083"), "Payment service base URL")
	flags.StringVar(&opts.notifyURL, "notification-url", envOr("NOTIFICATION_SERVICE_URL", "http://localhost:8084"), "Notification service base URL")
	flags.StringVar(&opts.jwtSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "Secret used to sign an admin token")
	flags.StringVar(&opts.token, "token", "", "Bearer token to use instead of signing one")
	flags.DurationVar(&opts.timeout, "timeout", 45*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(cacheCmd(opts))
	rootCmd.AddCommand(paymentCmd(opts))
	rootCmd.AddCommand(tokenCmd(opts))
	rootCmd.AddCommand(healthCmd(opts))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
