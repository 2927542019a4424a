package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func healthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check every service's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			services := []struct {
				name string
				url  string
			}{
				{"place-service", opts.placeURL},
				{"payment-service", opts.paymentURL},
				{"notification-service", opts.notifyURL},
			}

			results := make([]string, len(services))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, svc := range services {
				g.Go(func() error {
					c := newAPIClient(svc.url, "", 5*time.Second)
					start := time.Now()
					_, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
					status := "healthy"
					if err != nil {
						status = "unhealthy: " + err.Error()
					}
					results[i] = fmt.Sprintf("%-22s %s (%s)", svc.name, status, time.Since(start).Round(time.Millisecond))
					return nil
				})
			}
			_ = g.Wait()

			for _, line := range results {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
