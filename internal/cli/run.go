package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/decisionxray/xray/internal/dto"
	"github.com/decisionxray/xray/internal/service"
	"github.com/decisionxray/xray/internal/validator"
	"github.com/decisionxray/xray/internal/workflow"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Product workflow.Product
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts, Product: workflow.ReferenceProduct}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the competitor selection workflow and record its trace",
		Long: `Run competitor selection for a reference product against the demo
catalogue. The trace is written to the configured store and printed.

Examples:
  xray run
  xray run --title "Ceramic Coffee Mug 12oz" --price 14.5 --rating 4.1 --reviews 300`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return runSelection(ctx, cmd, opts)
		},
	}

	p := &opts.Product
	cmd.Flags().StringVar(&p.ASIN, "asin", p.ASIN, "reference product ASIN")
	cmd.Flags().StringVar(&p.Title, "title", p.Title, "reference product title")
	cmd.Flags().Float64Var(&p.Price, "price", p.Price, "reference product price")
	cmd.Flags().Float64Var(&p.Rating, "rating", p.Rating, "reference product rating (0-5)")
	cmd.Flags().IntVar(&p.Reviews, "reviews", p.Reviews, "reference product review count")
	cmd.Flags().StringVar(&p.Category, "category", p.Category, "reference product category")

	return cmd
}

func runSelection(ctx context.Context, cmd *cobra.Command, opts *RunOptions) error {
	p := opts.Product
	input := dto.ProductInput{
		ASIN:     &p.ASIN,
		Title:    &p.Title,
		Price:    &p.Price,
		Rating:   &p.Rating,
		Reviews:  &p.Reviews,
		Category: p.Category,
	}
	if err := validator.Validate(&input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return NewExitError(ExitCommandError, "invalid reference product: "+verrs.First())
		}
		return WrapExitError(ExitCommandError, "invalid reference product", err)
	}

	return withService(ctx, opts.RootOptions, func(svc *service.ExecutionService) error {
		result, err := svc.RunCompetitorSelection(ctx, input.Product())
		if err != nil {
			var stageErr *workflow.StageError
			if errors.As(err, &stageErr) {
				return WrapExitError(ExitFailure,
					fmt.Sprintf("execution %s failed at %s", stageErr.ExecutionID, stageErr.Stage), stageErr.Err)
			}
			return WrapExitError(ExitCommandError, "failed to run workflow", err)
		}

		out := newPrinter(cmd.OutOrStdout(), opts.RootOptions)
		if opts.Format == FormatJSON {
			return out.json(dto.NewRunResponse(result))
		}
		return out.runResult(result)
	})
}
