package main

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func cacheCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the place service caches",
	}

	stats := &cobra.Command{
		Use:   "stats [namespace]",
		Short: "Show cache statistics for one or all namespaces",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(opts.placeURL)
			if err != nil {
				return err
			}
			path := "/api/admin/cache/stats"
			if len(args) == 1 {
				path += "?namespace=" + url.QueryEscape(args[0])
			}
			body, err := c.do(cmd.Context(), http.MethodGet, path, nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <namespace|all>",
		Short: "Invalidate a cache namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(opts.placeURL)
			if err != nil {
				return err
			}
			body, err := c.do(cmd.Context(), http.MethodDelete, "/api/admin/cache/"+url.PathEscape(args[0]), nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	preload := &cobra.Command{
		Use:   "preload",
		Short: "Warm the catalog and optionally one user's favorites",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(opts.placeURL)
			if err != nil {
				return err
			}
			path := "/api/admin/cache/preload"
			if userID, _ := cmd.Flags().GetString("user"); userID != "" {
				path += "?user_id=" + url.QueryEscape(userID)
			}
			body, err := c.do(cmd.Context(), http.MethodPost, path, nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	preload.Flags().StringP("user", "u", "", "User whose favorites should be warmed")

	cmd.AddCommand(stats, clearCmd, preload)
	return cmd
}
