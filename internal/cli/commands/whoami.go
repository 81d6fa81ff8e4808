package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scdash-dev/scdash/internal/cli/auth"
	"github.com/scdash-dev/scdash/internal/cli/client"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

type whoamiResult struct {
	Server string       `json:"server" yaml:"server"`
	User   *client.User `json:"user" yaml:"user"`
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var output, serverAlias string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the stored token belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context(), output, WithServerAlias(serverAlias), WithOutput(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json or yaml")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL (uses selected server if not specified)")

	return cmd
}

func runWhoami(ctx context.Context, output string, opts ...Option) error {
	switch output {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unsupported output format %q (use table, json or yaml)", output)
	}

	o := newOptions(opts)

	store, server, err := o.newSession()
	if err != nil {
		return err
	}

	store.CheckAuth(ctx)

	state := store.State()
	if !state.IsAuthenticated {
		return auth.ErrNotAuthenticated
	}

	result := whoamiResult{Server: server.URL, User: state.User}

	switch output {
	case outputJSON:
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case outputYAML:
		enc := yaml.NewEncoder(o.out)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SERVER\t%s\n", server.URL)
	fmt.Fprintf(w, "ID\t%s\n", state.User.ID)
	fmt.Fprintf(w, "EMAIL\t%s\n", state.User.Email)
	fmt.Fprintf(w, "NAME\t%s\n", state.User.Name)
	fmt.Fprintf(w, "ROLE\t%s\n", state.User.Role)
	fmt.Fprintf(w, "CREATED\t%s\n", state.User.CreatedAt.Format("2006-01-02 15:04"))
	return w.Flush()
}
