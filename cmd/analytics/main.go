package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/incident-analytics/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/incident-analytics/internal/adapter/kafka"
	"github.com/couchcryptid/incident-analytics/internal/adapter/registry"
	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/config"
	"github.com/couchcryptid/incident-analytics/internal/ingest"
	"github.com/couchcryptid/incident-analytics/internal/observability"
	"github.com/couchcryptid/incident-analytics/internal/store"
)

// alwaysReady satisfies the readiness check in registry mode, where there is
// no ingest loop to wait for.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		st    analytics.Store
		ready httpadapter.ReadinessChecker = alwaysReady{}
		closeStore                         = func() {}
	)

	switch cfg.StoreMode {
	case config.StoreModeKafka:
		memory := store.NewMemory(metrics)
		if cfg.FacilitiesPath != "" {
			if err := memory.LoadFacilitiesFile(cfg.FacilitiesPath); err != nil {
				logger.Error("failed to load facilities", "path", cfg.FacilitiesPath, "error", err)
				os.Exit(1)
			}
			logger.Info("facilities loaded", "path", cfg.FacilitiesPath)
		}

		reader := kafkaadapter.NewReader(cfg, logger)
		ing := ingest.New(reader, memory, logger, metrics, cfg.BatchSize)

		go func() {
			if err := ing.Run(ctx); err != nil {
				logger.Error("ingest error", "error", err)
			}
		}()

		st = memory
		ready = ing
		closeStore = func() {
			if err := reader.Close(); err != nil {
				logger.Error("kafka reader close error", "error", err)
			}
		}
		logger.Info("store mode: kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)

	case config.StoreModeRegistry:
		client := registry.NewClient(cfg.RegistryBaseURL, cfg.RegistryToken, cfg.RegistryTimeout, logger, metrics)
		st = registry.NewCachedStore(client, cfg.RegistryCacheTTL, clockwork.NewRealClock(), metrics)
		logger.Info("store mode: registry", "base_url", cfg.RegistryBaseURL, "cache_ttl", cfg.RegistryCacheTTL)
	}

	service := analytics.New(st, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, service, ready, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeStore()

	logger.Info("shutdown complete")
}
