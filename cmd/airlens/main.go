package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/airlens/aqi-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/airlens/aqi-service/internal/adapter/kafka"
	"github.com/airlens/aqi-service/internal/adapter/provider"
	"github.com/airlens/aqi-service/internal/config"
	"github.com/airlens/aqi-service/internal/domain"
	"github.com/airlens/aqi-service/internal/observability"
	"github.com/airlens/aqi-service/internal/pipeline"
	"github.com/airlens/aqi-service/internal/scheduler"
	"github.com/airlens/aqi-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// The breakpoint table is validated before anything else starts. A
	// malformed table means every computation would be wrong, so this is
	// the one fatal domain error.
	table, err := loadTable(cfg, logger)
	if err != nil {
		logger.Error("breakpoint table rejected", "error", err)
		os.Exit(1)
	}

	openaq := provider.NewOpenAQClient(cfg.OpenAQBaseURL, cfg.OpenAQAPIKey, cfg.ProviderTimeout, logger)
	openmeteo := provider.NewOpenMeteoClient(cfg.OpenMeteoBaseURL, cfg.OpenMeteoAirBaseURL, cfg.ProviderTimeout, logger)

	sources := []pipeline.MeasurementSource{
		provider.NewCachedSource(openaq, cfg.CacheSize, cfg.CacheTTL, metrics),
		provider.NewCachedSource(openmeteo, cfg.CacheSize, cfg.CacheTTL, metrics),
	}

	// Kafka publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		metrics.PublishEnabled.Set(1)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	snapshots := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	refresher := pipeline.New(pipeline.Config{
		Sources:      sources,
		Weather:      openmeteo,
		Table:        table,
		Store:        snapshots,
		Publisher:    publisher,
		Locations:    cfg.Locations,
		FetchTimeout: cfg.FetchTimeout,
	}, logger, metrics)

	sched := scheduler.New(refresher, cfg.FetchInterval, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, snapshots, cfg.Locations, refresher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := sched.Start(ctx); err != nil {
		logger.Error("scheduler start error", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// loadTable returns the built-in EPA table, or the operator-supplied override
// when BREAKPOINT_TABLE_PATH is set. Either way the table is fully validated.
func loadTable(cfg *config.Config, logger *slog.Logger) (domain.Table, error) {
	if cfg.BreakpointTablePath == "" {
		return domain.DefaultTable(), nil
	}
	logger.Info("loading breakpoint table override", "path", cfg.BreakpointTablePath)
	return domain.LoadTable(cfg.BreakpointTablePath)
}
