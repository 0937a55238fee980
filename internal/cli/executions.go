package cli

import (
	"github.com/spf13/cobra"

	"github.com/decisionxray/xray/internal/domain"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/service"
)

// NewExecutionsCommand creates the executions command group.
func NewExecutionsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "executions",
		Aliases: []string{"exec"},
		Short:   "List and inspect recorded executions",
	}

	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	return cmd
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withService(ctx, opts, func(svc *service.ExecutionService) error {
				executions, err := svc.ListRecent(ctx, limit)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list executions", err)
				}
				out := newPrinter(cmd.OutOrStdout(), opts)
				if opts.Format == FormatJSON {
					return out.json(executions)
				}
				return out.executionTable(executions)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", service.DefaultListLimit, "number of executions to show")
	return cmd
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <execution-id>",
		Short: "Show an execution with its steps and evaluations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withService(ctx, opts, func(svc *service.ExecutionService) error {
				trace, err := svc.GetWithSteps(ctx, domain.ExecutionID(args[0]))
				if apperrors.IsNotFound(err) {
					return NewExitError(ExitCommandError, "execution "+args[0]+" not found")
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load execution", err)
				}
				out := newPrinter(cmd.OutOrStdout(), opts)
				if opts.Format == FormatJSON {
					return out.json(trace)
				}
				return out.trace(trace)
			})
		},
	}
}
