package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/analysis"
	apiserver "github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/api_server"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/client"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/extract"
	handlers "github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/handlers/v1alpha1"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/janitor"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/service"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/session"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/upload"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cv analysis api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		undo := initLogger(cfg)
		defer undo()

		zap.S().Info("Starting API service...")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		if err := migrate(db, cfg); err != nil {
			zap.S().Fatalw("running migrations", "error", err)
		}

		s, err := newStore(db, cfg)
		if err != nil {
			zap.S().Fatalw("initializing result store", "error", err)
		}
		defer s.Close()

		producer, err := newEventProducer(cfg)
		if err != nil {
			zap.S().Fatalw("initializing event producer", "error", err)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				zap.S().Warnw("failed to flush events", "error", err)
			}
		}()

		uploads, err := upload.NewStorage(cfg.Service.UploadFolder, cfg.Service.AllowedExtensions)
		if err != nil {
			zap.S().Fatalw("initializing upload folder", "error", err)
		}
		zap.S().Infow("storing uploads", "folder", uploads.Dir())

		analyzer := client.NewAnalyzerClient(cfg.Service.Analyzer)

		workerOpts := []analysis.WorkerOption{
			analysis.WithEvents(producer),
			analysis.WithAnalyzerTimeout(cfg.Service.Analyzer.Timeout),
		}
		serviceOpts := []service.AnalysisServiceOption{
			service.WithFeedback(analyzer),
			service.WithEventWriter(producer),
		}
		if cfg.Service.OpenAI.Configured() {
			llm := client.NewOpenAIClient(cfg.Service.OpenAI)
			workerOpts = append(workerOpts,
				analysis.WithSummarizer(llm),
				analysis.WithSummarizerTimeout(cfg.Service.OpenAI.Timeout),
			)
			serviceOpts = append(serviceOpts, service.WithSummarizer(llm), service.WithInterviewer(llm))
		} else {
			zap.S().Warn("azure openai is not configured, summaries are disabled")
		}

		worker := analysis.NewWorker(s.Job(), s.Result(), extract.NewTextExtractor(), analyzer, uploads, workerOpts...)
		dispatcher := analysis.NewDispatcher(worker, cfg.Service.MaxWorkers)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		j := janitor.New(s.Job())
		if cfg.Service.Janitor.Interval > 0 {
			go j.Run(ctx, cfg.Service.Janitor.Interval)
		}
		if cfg.Service.Janitor.Schedule != "" {
			if err := j.Schedule(ctx, cfg.Service.Janitor.Schedule); err != nil {
				zap.S().Fatalw("scheduling janitor", "error", err)
			}
		}

		sessions, err := session.NewManager(cfg.Service.Session, apiserver.SecureCookies(cfg.Service.BaseUrl))
		if err != nil {
			zap.S().Fatalw("initializing sessions", "error", err)
		}

		srv := service.NewAnalysisService(s, uploads, dispatcher, j, cfg.Service.AllowedExtensions, serviceOpts...)
		h := handlers.NewServiceHandler(srv, cfg.Service.MaxUploadSize)

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, h, sessions, dispatcher, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("failed to run metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		// the api server drains the dispatcher before returning
		<-stopped
		return nil
	},
}
