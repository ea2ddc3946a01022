package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/janitor"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
)

var dryRun bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove the expired jobs once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		undo := initLogger(cfg)
		defer undo()

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		report, err := janitor.SweepReport(context.Background(), s, dryRun)
		if err != nil {
			return err
		}

		processing := make([]string, 0, len(report.Processing))
		for _, job := range report.Processing {
			processing = append(processing, job.ID)
		}

		zap.S().Infow("sweep completed", "dry_run", dryRun, "deleted", report.Deleted, "processing", processing)
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without removing it")
}
