package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAuthCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run OAuth authorization flows",
	}
	cmd.AddCommand(
		newLoginCommand(root),
		newAppOnlyCommand(root),
		newInvalidateCommand(root),
	)
	return cmd
}

func newLoginCommand(root *rootOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize a user with the three-legged OAuth flow",
		Long: `Obtain a request token, print the authorization URL and wait for the
provider to redirect to the local callback listener. The resulting access
token is printed in config.yml form.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.loadClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(context.WithoutCancel(cmd.Context())) }()

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			out := cmd.OutOrStdout()
			tok, err := c.Authorize(ctx, func(_ context.Context, authorizeURL string) error {
				_, err := fmt.Fprintf(out, "Open this URL in a browser to authorize birdctl:\n\n  %s\n\n", authorizeURL)
				return err
			})
			if err != nil {
				return err
			}

			if name := tok.ScreenName(); name != "" {
				fmt.Fprintf(out, "Authorized as @%s (%s)\n", name, tok.UserID())
			}
			fmt.Fprintf(out, "credentials:\n  access_token: %s\n  access_token_secret: %s\n", tok.Key, tok.Secret)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Minute, "How long to wait for the authorization callback")
	return cmd
}

func newAppOnlyCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "app-only",
		Short: "Obtain an application-only bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.loadClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(cmd.Context()) }()

			tok, err := c.AuthorizeAppOnly(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credentials:\n  bearer_token: %s\n", tok.Key)
			return nil
		},
	}
}

func newInvalidateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Revoke the configured bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.loadClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(cmd.Context()) }()

			if c.Credential().Bearer == "" {
				return fmt.Errorf("no bearer token configured (set credentials.bearer_token or --bearer-token)")
			}
			tok, err := c.InvalidateBearer(cmd.Context())
			if err != nil {
				return err
			}
			if tok == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "The server did not confirm the invalidation.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s\n", tok.Key)
			return nil
		},
	}
}
