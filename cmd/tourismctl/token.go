package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/spf13/cobra"
)

func tokenCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue development tokens",
	}

	issue := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Sign a token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.jwtSecret == "" {
				return errors.New("--jwt-secret (JWT_SECRET) is required")
			}
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			switch role {
			case auth.RoleUser, auth.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := auth.NewJWTService(opts.jwtSecret, "tourismctl").GenerateToken(args[0], email, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().String("email", "", "Email claim")
	issue.Flags().String("role", auth.RoleUser, "Role claim (user or admin)")
	issue.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	cmd.AddCommand(issue)
	return cmd
}
