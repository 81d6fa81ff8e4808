package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scdash-dev/scdash/internal/cli/client"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var email, name, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on an scdash server and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), email, name, password, WithServerAlias(serverAlias), WithOutput(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set SCDASH_EMAIL)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set SCDASH_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL (uses selected server if not specified)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runRegister(ctx context.Context, email, name, password string, opts ...Option) error {
	o := newOptions(opts)

	email, err := resolveEmail(email)
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required (use --name flag)")
	}

	store, server, err := o.newSession()
	if err != nil {
		return err
	}

	password, err = o.resolvePassword(password)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.out, "Registering with %s (%s)...\n", server.Alias, server.URL)

	req := client.RegisterRequest{Email: email, Password: password, Name: name}
	if err := store.Register(ctx, req); err != nil {
		return fmt.Errorf("registration failed: %s", store.State().Error)
	}

	user := store.State().User
	fmt.Fprintln(o.out, "✓ Registration successful!")
	fmt.Fprintf(o.out, "  User: %s (%s)\n", user.Name, user.Email)
	fmt.Fprintf(o.out, "  Role: %s\n", user.Role)

	return nil
}
