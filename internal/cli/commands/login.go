package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scdash-dev/scdash/internal/cli/client"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with an scdash server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), email, password, WithServerAlias(serverAlias), WithOutput(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set SCDASH_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set SCDASH_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL (uses selected server if not specified)")

	return cmd
}

func runLogin(ctx context.Context, email, password string, opts ...Option) error {
	o := newOptions(opts)

	email, err := resolveEmail(email)
	if err != nil {
		return err
	}

	store, server, err := o.newSession()
	if err != nil {
		return err
	}

	password, err = o.resolvePassword(password)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.out, "Logging in to %s (%s)...\n", server.Alias, server.URL)

	if err := store.Login(ctx, client.Credentials{Email: email, Password: password}); err != nil {
		return fmt.Errorf("login failed: %s", store.State().Error)
	}

	user := store.State().User
	fmt.Fprintln(o.out, "✓ Login successful!")
	fmt.Fprintf(o.out, "  User: %s (%s)\n", user.Name, user.Email)
	fmt.Fprintf(o.out, "  Role: %s\n", user.Role)

	return nil
}
