// Command build-dataset rebuilds the Parquet snapshot and metadata sidecar of
// every registered site from a folder of sensor CSV exports.
//
// Usage:
//
//	go run ./cmd/build-dataset -source /mnt/exports
//
// The source root holds one sub-folder per site id. A sites.json found at the
// source root replaces the registry in DATA_DIR before the rebuild starts.
// When KAFKA_BROKERS is set, one notification per rebuilt site is published
// so running dashboards reload it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/traffic-count-etl/internal/adapter/kafka"
	"github.com/couchcryptid/traffic-count-etl/internal/config"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
	"github.com/couchcryptid/traffic-count-etl/internal/pipeline"
	"github.com/couchcryptid/traffic-count-etl/internal/sitedata"
	"github.com/couchcryptid/traffic-count-etl/internal/store"
)

func main() {
	source := flag.String("source", "", "root folder of site CSV exports (defaults to SOURCE_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *source != "" {
		cfg.SourceDir = *source
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, cfg); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config) int {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if info, err := os.Stat(cfg.SourceDir); err != nil || !info.IsDir() {
		logger.Error("source folder not found", "source", cfg.SourceDir)
		return 1
	}

	imported, err := store.NewRegistry(cfg.SitesFile).ImportRegistry(cfg.SourceDir)
	if err != nil {
		logger.Error("import site registry failed", "error", err)
		return 1
	}
	if imported {
		logger.Info("site registry imported", "from", cfg.SourceDir, "to", cfg.SitesFile)
	}

	cache := sitedata.NewFromConfig(cfg, logger, metrics)

	var notifier pipeline.Notifier
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = writer
	}

	summary, err := pipeline.New(cache, notifier, cfg.SourceDir, logger, metrics).Run(ctx)
	printSummary(summary)

	switch {
	case errors.Is(err, pipeline.ErrNoSites):
		logger.Error("no sites to rebuild", "registry", cfg.SitesFile)
		return 1
	case err != nil:
		logger.Error("rebuild failed", "error", err)
		return 1
	case len(summary.Failed) > 0:
		return 2
	}
	return 0
}

func printSummary(s pipeline.Summary) {
	fmt.Printf("rebuilt: %d  empty: %d  failed: %d\n", len(s.Rebuilt), len(s.Empty), len(s.Failed))
	for _, id := range s.Failed {
		fmt.Printf("  FAILED %s\n", id)
	}
}
