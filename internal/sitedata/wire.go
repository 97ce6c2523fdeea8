package sitedata

import (
	"log/slog"

	"github.com/couchcryptid/traffic-count-etl/internal/config"
	"github.com/couchcryptid/traffic-count-etl/internal/ingest"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
	"github.com/couchcryptid/traffic-count-etl/internal/store"
)

// NewFromConfig wires a Cache to the directories named by cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Cache {
	return New(Options{
		Registry:   store.NewRegistry(cfg.SitesFile),
		Snapshots:  store.NewParquetStore(cfg.ParquetDir()),
		Sidecars:   store.NewSidecars(cfg.DataDir),
		Reader:     ingest.NewReader(cfg.Location, logger, metrics),
		SourceRoot: cfg.SourceDir,
		Location:   cfg.Location,
		Logger:     logger,
		Metrics:    metrics,
	})
}
