package main

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func paymentCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Inspect and manage payments",
	}

	get := &cobra.Command{
		Use:   "get <payment-id>",
		Short: "Show one payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(opts.paymentURL)
			if err != nil {
				return err
			}
			body, err := c.do(cmd.Context(), http.MethodGet, "/api/payments/"+url.PathEscape(args[0]), nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	history := &cobra.Command{
		Use:   "history <user-id>",
		Short: "List a user's payments, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(opts.paymentURL)
			if err != nil {
				return err
			}
			page, _ := cmd.Flags().GetInt("page")
			limit, _ := cmd.Flags().GetInt("limit")
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			q.Set("limit", strconv.Itoa(limit))
			path := "/api/payments/history/" + url.PathEscape(args[0]) + "?" + q.Encode()
			body, err := c.do(cmd.Context(), http.MethodGet, path, nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	history.Flags().Int("page", 1, "Page number")
	history.Flags().Int("limit", 10, "Page size")

	setStatus := &cobra.Command{
		Use:   "set-status <payment-id> <status>",
		Short: "Administratively change a payment's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(opts.paymentURL)
			if err != nil {
				return err
			}
			req := map[string]string{"status": args[1]}
			body, err := c.do(cmd.Context(), http.MethodPut, "/api/payments/"+url.PathEscape(args[0])+"/status", req, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	retry := &cobra.Command{
		Use:   "retry <payment-id>",
		Short: "Re-attempt the charge of a pending payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(opts.paymentURL)
			if err != nil {
				return err
			}
			body, err := c.do(cmd.Context(), http.MethodPost, "/api/payments/"+url.PathEscape(args[0])+"/retry", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	cmd.AddCommand(get, history, setStatus, retry)
	return cmd
}
