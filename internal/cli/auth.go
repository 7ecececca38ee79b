package cli

import (
	"errors"
	"fmt"

	"github.com/pribylovaa/go-admin-bff/pkg/adminclient"
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				return fmt.Errorf("--password is required")
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}

			if _, err := a.client.SignIn(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			a.sess.Email = email
			if err := a.persist(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")

	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session on the server and locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}

			err = a.client.Logout(cmd.Context())
			switch {
			case errors.Is(err, adminclient.ErrSessionExpired):
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			case err != nil:
				return fmt.Errorf("logout failed: %w", err)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			}

			a.sess.Email = ""
			return a.persist()
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}

			res, err := a.client.Check(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.persist(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Authenticated {
				fmt.Fprintln(out, "Not logged in.")
				fmt.Fprintln(out, "Use 'adminctl login' to authenticate.")
				return nil
			}

			if len(res.User) == 0 {
				fmt.Fprintf(out, "Logged in as %s (session refreshed)\n", a.sess.Email)
				return nil
			}
			return printJSON(out, res.User)
		},
	}
}
