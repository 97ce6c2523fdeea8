package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/traffic-count-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/traffic-count-etl/internal/adapter/kafka"
	"github.com/couchcryptid/traffic-count-etl/internal/config"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
	"github.com/couchcryptid/traffic-count-etl/internal/sitedata"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	cache := sitedata.NewFromConfig(cfg, logger, metrics)
	logger.Info("site registry loaded", "path", cfg.SitesFile, "sites", len(cache.Sites()))

	srv := httpadapter.NewServer(cfg.HTTPAddr, cache, cache, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Rebuild notifications are optional (KAFKA_BROKERS).
	var listener *kafkaadapter.Listener
	if cfg.KafkaEnabled() {
		listener = kafkaadapter.NewListener(cfg, cache, logger, metrics)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Error("rebuild listener error", "error", err)
			}
		}()
	} else {
		logger.Info("rebuild notifications disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if listener != nil {
		if err := listener.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
