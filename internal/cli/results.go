package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/client"
)

type ResultsOptions struct {
	GlobalOptions

	Output string
}

func DefaultResultsOptions() *ResultsOptions {
	return &ResultsOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdResults() *cobra.Command {
	o := DefaultResultsOptions()
	cmd := &cobra.Command{
		Use:   "results RESULTS_ID",
		Short: "Display the results of a completed analysis.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ResultsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *ResultsOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return validateOutput(o.Output)
}

func (o *ResultsOptions) Run(ctx context.Context, args []string) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	rs, err := c.ResultsByID(ctx, args[0])
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("results %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("reading results %s: %w", args[0], err)
	}
	return printResults(o.out, rs, o.Output)
}
