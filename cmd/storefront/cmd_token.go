package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dronestore/storefront/internal/infrastructure/auth"
)

func newTokenCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect bearer tokens",
	}

	var username string
	issue := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Sign an access token with the configured jwt.secret",
		Long: `Sign an access token with the configured jwt.secret.

Meant for development against a local server that shares the same secret:

  export STOREFRONT_TOKEN=$(storefront token issue pilot-1)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.NewJWTService(opts.cfg.JWT).Issue(args[0], username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token.Token)
			return nil
		},
	}
	issue.Flags().StringVar(&username, "username", "", "username claim")

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Print the identity the current token shops as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := auth.NewSessionWithToken(opts.token)
			if err != nil {
				return fmt.Errorf("invalid --token: %w", err)
			}
			if !session.Identity().IsAuthenticated() && opts.token != "" {
				return errors.New("token has no user_id claim")
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.Identity())
			return nil
		},
	}

	cmd.AddCommand(issue, whoami)
	return cmd
}
