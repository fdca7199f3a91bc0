package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/airq-etl/internal/adapter/csvfile"
	kafkaadapter "github.com/couchcryptid/airq-etl/internal/adapter/kafka"
	"github.com/couchcryptid/airq-etl/internal/adapter/postgres"
	"github.com/couchcryptid/airq-etl/internal/adapter/stationfile"
	"github.com/couchcryptid/airq-etl/internal/config"
	"github.com/couchcryptid/airq-etl/internal/observability"
	"github.com/couchcryptid/airq-etl/internal/pipeline"
	"github.com/couchcryptid/airq-etl/internal/profile"
)

const dbConnectAttempts = 5

// processMetrics registers the collectors with the default registry once per process.
var processMetrics = sync.OnceValue(observability.NewMetrics)

// app holds the collaborators every subcommand shares.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	registry *profile.Registry
	closers  []func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	registry, err := profile.Load(cfg.ProfilesDir)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  processMetrics(),
		registry: registry,
	}, nil
}

// pipeline builds a Pipeline writing format, with the exporters enabled by configuration.
func (a *app) pipeline(ctx context.Context, format string) (*pipeline.Pipeline, error) {
	if format == "" {
		format = a.cfg.OutputFormat
	}
	exporters, err := a.exporters(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	stations := stationfile.NewCachedLoader(stationfile.NewLoader(a.logger), a.cfg.StationCacheSize, a.metrics)
	return pipeline.New(a.registry, csvfile.NewWriter(), a.logger, a.metrics,
		pipeline.WithStationSource(stations),
		pipeline.WithExporters(exporters...),
		pipeline.WithFormat(format),
	), nil
}

func (a *app) exporters(ctx context.Context) ([]pipeline.Exporter, error) {
	var out []pipeline.Exporter
	if a.cfg.KafkaEnabled {
		k := kafkaadapter.NewExporter(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.logger)
		a.closers = append(a.closers, k.Close)
		out = append(out, k)
		a.logger.Info("kafka export enabled", "brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaTopic)
	}
	if a.cfg.DatabaseURL != "" {
		store, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		out = append(out, store)
		a.logger.Info("postgres export enabled")
	}
	return out, nil
}

// openStore connects to Postgres, retrying with backoff while the database starts.
func (a *app) openStore(ctx context.Context) (*postgres.Store, error) {
	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		store, err := postgres.Open(ctx, a.cfg.DatabaseURL, a.logger)
		if err == nil {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, err
			}
			return store, nil
		}
		lastErr = err
		a.logger.Warn("postgres unavailable", "attempt", attempt, "error", err)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = sharedretry.NextBackoff(backoff, 8*time.Second)
	}
	return nil, fmt.Errorf("connect postgres after %d attempts: %w", dbConnectAttempts, lastErr)
}

// close releases every exporter opened so far. It is safe to call twice.
func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Error("close exporter", "error", err)
		}
	}
	a.closers = nil
}
