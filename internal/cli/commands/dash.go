package commands

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/scdash-dev/scdash/internal/cli/auth"
)

// NewDashCmd creates the dash command
func NewDashCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Open the web dashboard in browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDash(cmd.Context(), WithServerAlias(serverAlias), WithOutput(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL (uses selected server if not specified)")

	return cmd
}

// runDash opens the dashboard once the stored session checks out
func runDash(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)

	store, server, err := o.newSession()
	if err != nil {
		return err
	}

	store.CheckAuth(ctx)
	if !store.State().IsAuthenticated {
		return auth.ErrNotAuthenticated
	}

	fmt.Fprintf(o.out, "Opening dashboard for %s (%s)...\n", server.Alias, server.URL)

	if err := o.openBrowser(server.URL); err != nil {
		return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, server.URL)
	}

	return nil
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
