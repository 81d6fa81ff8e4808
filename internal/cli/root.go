package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scdash-dev/scdash/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the scdash command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scdash",
		Short: "scdash - Supply chain compliance dashboard",
		Long: `scdash CLI - Sign in to a supply chain compliance dashboard server.

Servers are listed in ./scdash.json; tokens are kept in the OS keyring.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scdash version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewDashCmd())

	return rootCmd
}

// Execute runs the root command, cancelling in-flight requests on Ctrl-C
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
