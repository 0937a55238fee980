// Package cli implements the xray command line tool for inspecting recorded
// executions from a terminal.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/decisionxray/xray/internal/service"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON}

// Opener builds the execution service the commands work against. The
// returned func releases its connections.
type Opener func(ctx context.Context) (*service.ExecutionService, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string
	Verbose bool
	Open    Opener
}

// NewRootCommand creates the root command wired to the configured store
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&RootOptions{Open: OpenFromConfig}, version)
}

func newRootCommand(opts *RootOptions, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xray",
		Short: "Inspect decision traces",
		Long: `xray reads executions recorded by the decision trace API and shows why
each step decided what it did.

The store is chosen by the same configuration as the API server
(STORE_BACKEND, POSTGRES_*, CLICKHOUSE_* or config.yaml).

Examples:
  xray executions list --limit 5
  xray executions show exec_1697000000000_k3j9x2abc
  xray run --format json`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "show step inputs and outputs")

	cmd.AddCommand(NewExecutionsCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// withService opens the service for the duration of fn
func withService(ctx context.Context, opts *RootOptions, fn func(*service.ExecutionService) error) error {
	svc, closeFn, err := opts.Open(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer closeFn()
	return fn(svc)
}
