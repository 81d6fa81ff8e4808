package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored token and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), WithServerAlias(serverAlias), WithOutput(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL (uses selected server if not specified)")

	return cmd
}

// runLogout always leaves the local session cleared; a failed server call is
// only logged.
func runLogout(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)

	store, server, err := o.newSession()
	if err != nil {
		return err
	}

	store.Logout(ctx)

	fmt.Fprintf(o.out, "✓ Logged out of %s (%s)\n", server.Alias, server.URL)
	return nil
}
