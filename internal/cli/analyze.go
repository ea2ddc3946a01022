package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/client"
)

const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

type AnalyzeOptions struct {
	GlobalOptions

	Wait         bool
	PollInterval time.Duration
	Output       string
}

func DefaultAnalyzeOptions() *AnalyzeOptions {
	return &AnalyzeOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Wait:          true,
		PollInterval:  time.Second,
	}
}

func NewCmdAnalyze() *cobra.Command {
	o := DefaultAnalyzeOptions()
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Submit CVs for analysis and wait for the results.",
		Args:  cobra.MinimumNArgs(1),
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

func (o *AnalyzeOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVarP(&o.Wait, "wait", "w", o.Wait, "Wait for the analysis to finish and print the results.")
	fs.DurationVar(&o.PollInterval, "poll-interval", o.PollInterval, "How often the job status is polled.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *AnalyzeOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	for _, path := range args {
		fi, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		if fi.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
	}

	if o.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	return validateOutput(o.Output)
}

func (o *AnalyzeOptions) Run(ctx context.Context, args []string) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	submitted, err := c.Submit(ctx, args)
	if err != nil {
		return fmt.Errorf("submitting files: %w", err)
	}

	if !o.Wait {
		if o.Output != "" {
			return printObject(o.out, submitted, o.Output)
		}
		_, err := fmt.Fprintf(o.out, "job %s submitted\n", submitted.JobID)
		return err
	}

	if err := o.waitForJob(ctx, c, submitted.JobID); err != nil {
		return err
	}

	// the completed poll bound the results to this client's session
	rs, err := c.Results(ctx)
	if err != nil {
		return fmt.Errorf("reading results: %w", err)
	}
	return printResults(o.out, rs, o.Output)
}

func (o *AnalyzeOptions) waitForJob(ctx context.Context, c *client.APIClient, jobID string) error {
	ticker := time.NewTicker(o.PollInterval)
	defer ticker.Stop()

	lastMessage := ""
	for {
		status, err := c.Status(ctx, jobID)
		if err != nil {
			return fmt.Errorf("polling job %s: %w", jobID, err)
		}

		switch status.Status {
		case statusCompleted:
			return nil
		case statusFailed:
			return fmt.Errorf("job %s failed: %s", jobID, status.Message)
		}

		if status.Message != lastMessage && o.Output == "" {
			fmt.Fprintf(o.out, "[%3.0f%%] %s\n", status.Progress*100, status.Message)
			lastMessage = status.Message
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}
