package main

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/events"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/log"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/migrations"
)

const (
	resultBackendDB = "db"
	resultBackendS3 = "s3"
)

// initLogger replaces the global zap logger. The returned func restores it and flushes.
func initLogger(cfg *config.Config) func() {
	logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
	if err != nil {
		logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger := log.InitLog(logLvl, cfg.Service.LogFormat)
	undo := zap.ReplaceGlobals(logger)

	return func() {
		_ = logger.Sync()
		undo()
	}
}

// migrate applies the sql migrations when a folder is configured and falls back to gorm's
// automigration otherwise.
func migrate(db *gorm.DB, cfg *config.Config) error {
	if cfg.Service.MigrationFolder == "" {
		zap.S().Info("no migration folder configured, running automigration")
		return store.AutoMigrate(db)
	}
	return migrations.MigrateStore(db, cfg)
}

func newStore(db *gorm.DB, cfg *config.Config) (store.Store, error) {
	switch cfg.Service.ResultStore.Backend {
	case resultBackendDB, "":
		return store.NewStore(db), nil
	case resultBackendS3:
		rs := cfg.Service.ResultStore
		results, err := store.NewObjectResultStore(
			store.WithEndpoint(rs.Endpoint),
			store.WithBucket(rs.Bucket),
			store.WithAccessKey(rs.AccessKey),
			store.WithSecretKey(rs.SecretKey),
			store.WithSSL(rs.UseSSL),
		)
		if err != nil {
			return nil, fmt.Errorf("creating object result store: %w", err)
		}
		return store.NewStoreWithResults(db, results), nil
	default:
		return nil, fmt.Errorf("unknown result store backend %q", cfg.Service.ResultStore.Backend)
	}
}

func newEventProducer(cfg *config.Config) (*events.EventProducer, error) {
	var opts []events.ProducerOptions
	if cfg.Service.Kafka.Topic != "" {
		opts = append(opts, events.WithOutputTopic(cfg.Service.Kafka.Topic))
	}

	if !cfg.Service.Kafka.Enabled() {
		return events.NewEventProducer(&events.StdoutWriter{}, opts...), nil
	}

	saramaCfg, err := cfg.Service.Kafka.NewSaramaConfig()
	if err != nil {
		return nil, fmt.Errorf("building kafka config: %w", err)
	}
	w, err := events.NewKafkaWriter(cfg.Service.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}
	zap.S().Infow("shipping events to kafka", "brokers", cfg.Service.Kafka.Brokers)
	return events.NewEventProducer(w, opts...), nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
