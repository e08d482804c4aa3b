package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	kafkaadapter "github.com/couchcryptid/grid-status-etl/internal/adapter/kafka"
	"github.com/couchcryptid/grid-status-etl/internal/adapter/store"
	"github.com/couchcryptid/grid-status-etl/internal/adapter/upstream"
	"github.com/couchcryptid/grid-status-etl/internal/config"
	"github.com/couchcryptid/grid-status-etl/internal/domain"
	"github.com/couchcryptid/grid-status-etl/internal/observability"
	"github.com/couchcryptid/grid-status-etl/internal/pipeline"
	"github.com/couchcryptid/grid-status-etl/internal/sandbox"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg).With("run_id", uuid.NewString())
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	runErr := run(ctx, cfg, logger, metrics)
	stop()

	pushMetrics(cfg, logger)

	if runErr != nil {
		var stageErr *pipeline.StageError
		if errors.As(runErr, &stageErr) {
			logger.Error("ingestion failed",
				"source", stageErr.Source,
				"stage", stageErr.Stage,
				"error", stageErr.Err,
			)
		} else {
			logger.Error("run failed", "mode", cfg.Mode, "error", runErr)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	db, err := store.Open(ctx, cfg.DatabaseURL,
		store.WithPolicy(cfg.InsertPolicy),
		store.WithSchemaPath(cfg.SchemaPath),
		store.WithLogger(logger),
		store.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()
	logger.Info("database opened", "dialect", db.Dialect(), "insert_policy", cfg.InsertPolicy)

	return dispatch(ctx, cfg.Mode, db, logger, func(ctx context.Context) error {
		return ingest(ctx, cfg, db, logger, metrics)
	})
}

// dispatch performs the action selected by mode against an open store.
func dispatch(ctx context.Context, mode config.Mode, db *store.Store, logger *slog.Logger, update func(context.Context) error) error {
	switch mode {
	case config.ModeCreate:
		return db.Bootstrap(ctx)
	case config.ModeUpdate:
		return update(ctx)
	default:
		logger.Info("nothing ran", "hint", "set CREATE=1 or UPDATE=1")
		return nil
	}
}

func ingest(ctx context.Context, cfg *config.Config, db *store.Store, logger *slog.Logger, metrics *observability.Metrics) error {
	resolver, err := domain.LoadTimeResolver(cfg.SourceTimezone)
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	if cfg.KafkaEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithPublisher(publisher))
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(
		upstream.NewClient(cfg.FetchTimeout, metrics, logger),
		sandbox.NewEvaluator(cfg.EvalTimeout, clockwork.NewRealClock()),
		db,
		resolver,
		pipeline.Sources{OutageURL: cfg.OutageURL, GenerationURL: cfg.GenerationURL},
		logger,
		metrics,
		opts...,
	)
	return p.Run(ctx)
}

func pushMetrics(cfg *config.Config, logger *slog.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := observability.Push(ctx, cfg.PushgatewayURL, cfg.PushgatewayJob, prometheus.DefaultGatherer); err != nil {
		logger.Warn("metrics push failed", "error", err)
		return
	}
	logger.Debug("metrics pushed", "url", cfg.PushgatewayURL, "job", cfg.PushgatewayJob)
}
