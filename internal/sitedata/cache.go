// Package sitedata owns the per-site datasets served by the dashboard.
//
// A lookup is answered from memory when possible, then from the site's
// Parquet snapshot, and finally by ingesting the site's source CSV folder.
// Snapshots are never checked for staleness: a snapshot on disk is used as
// is until Rebuild replaces it.
package sitedata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/ingest"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
	"github.com/couchcryptid/traffic-count-etl/internal/store"
)

// Options wires a Cache to its storage and source locations.
type Options struct {
	Registry   *store.Registry
	Snapshots  *store.ParquetStore
	Sidecars   *store.Sidecars
	Reader     *ingest.Reader
	SourceRoot string
	Location   *time.Location
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// Cache is the process-lifetime site dataset cache.
type Cache struct {
	registry   *store.Registry
	snapshots  *store.ParquetStore
	sidecars   *store.Sidecars
	reader     *ingest.Reader
	sourceRoot string
	loc        *time.Location
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu     sync.RWMutex
	data   map[string]domain.Dataset
	gens   map[string]uint64 // bumped by Invalidate and Rebuild
	builds singleflight.Group
}

// New creates an empty cache.
func New(opts Options) *Cache {
	return &Cache{
		registry:   opts.Registry,
		snapshots:  opts.Snapshots,
		sidecars:   opts.Sidecars,
		reader:     opts.Reader,
		sourceRoot: opts.SourceRoot,
		loc:        opts.Location,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		data:       make(map[string]domain.Dataset),
		gens:       make(map[string]uint64),
	}
}

// Sites returns the registered sites. A missing or malformed registry yields
// an empty list.
func (c *Cache) Sites() []domain.Site {
	sites, rejected, err := c.registry.Load()
	if err != nil {
		c.logger.Warn("site registry unavailable", "path", c.registry.Path(), "error", err)
		return nil
	}
	for _, r := range rejected {
		c.logger.Warn("ignoring invalid site entry", "path", c.registry.Path(), "entry", r)
	}
	return sites
}

// Site looks up one registered site.
func (c *Cache) Site(siteID string) (domain.Site, bool) {
	return domain.FindSite(c.Sites(), siteID)
}

// Get returns the dataset for a site, or an empty dataset when the site is
// unknown, has no source files, or cannot be loaded. A non-empty
// sourceOverride bypasses the snapshot and reads CSVs under that root.
func (c *Cache) Get(ctx context.Context, siteID, sourceOverride string) domain.Dataset {
	ds, err := c.Load(ctx, siteID, sourceOverride)
	if err != nil {
		c.metrics.CacheLookups.WithLabelValues("empty").Inc()
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrUnknownSite) || errors.Is(err, domain.ErrNoSourceFiles) {
			level = slog.LevelInfo
		}
		c.logger.Log(ctx, level, "no data for site", "site_id", siteID, "error", err)
		return c.empty(siteID)
	}
	return ds
}

// Load is Get with the reason for an empty result. It returns
// domain.ErrUnknownSite or domain.ErrNoSourceFiles for the expected
// "no data" cases.
func (c *Cache) Load(ctx context.Context, siteID, sourceOverride string) (domain.Dataset, error) {
	if ds, ok := c.cached(siteID); ok {
		c.metrics.CacheLookups.WithLabelValues("memory").Inc()
		return ds, nil
	}

	v, err, _ := c.builds.Do(siteID+"\x00"+sourceOverride, func() (any, error) {
		if ds, ok := c.cached(siteID); ok {
			c.metrics.CacheLookups.WithLabelValues("memory").Inc()
			return ds, nil
		}
		gen := c.generation(siteID)
		ds, err := c.load(ctx, siteID, sourceOverride)
		if err != nil {
			return domain.Dataset{}, err
		}
		if !c.putIfCurrent(ds, gen) {
			c.logger.Debug("discarding superseded site load", "site_id", siteID)
		}
		return ds, nil
	})
	if err != nil {
		return domain.Dataset{}, err
	}
	return v.(domain.Dataset), nil
}

// Invalidate drops the in-memory dataset of a site. The next lookup reads
// the snapshot again.
func (c *Cache) Invalidate(siteID string) {
	c.mu.Lock()
	delete(c.data, siteID)
	c.gens[siteID]++
	c.mu.Unlock()
	c.logger.Debug("site dataset invalidated", "site_id", siteID)
}

// Rebuild discards the cached dataset of a site and rebuilds it from the
// source CSVs under sourceRoot (the configured root when empty), overwriting
// its snapshot and sidecar. A lookup already in flight when Rebuild starts
// cannot overwrite the rebuilt dataset.
func (c *Cache) Rebuild(ctx context.Context, siteID, sourceRoot string) (domain.Dataset, error) {
	c.Invalidate(siteID)

	v, err, _ := c.builds.Do("rebuild\x00"+siteID, func() (any, error) {
		site, ok := c.Site(siteID)
		if !ok {
			return domain.Dataset{}, fmt.Errorf("%q: %w", siteID, domain.ErrUnknownSite)
		}
		ds, err := c.build(ctx, site, sourceRoot)
		if err != nil {
			return domain.Dataset{}, err
		}
		c.replace(ds)
		return ds, nil
	})
	if err != nil {
		return domain.Dataset{}, err
	}
	return v.(domain.Dataset), nil
}

// CheckReadiness reports an error until the registry lists at least one site.
func (c *Cache) CheckReadiness(_ context.Context) error {
	if len(c.Sites()) == 0 {
		return errors.New("site registry is empty or unreadable")
	}
	return nil
}

func (c *Cache) load(ctx context.Context, siteID, sourceOverride string) (domain.Dataset, error) {
	site, ok := c.Site(siteID)
	if !ok {
		return domain.Dataset{}, fmt.Errorf("%q: %w", siteID, domain.ErrUnknownSite)
	}

	if sourceOverride == "" && c.snapshots.Exists(siteID) {
		records, err := c.snapshots.Read(ctx, siteID, c.loc)
		switch {
		case err != nil:
			c.logger.Warn("snapshot unreadable, rebuilding from source", "site_id", siteID, "path", c.snapshots.Path(siteID), "error", err)
		case len(records) > 0:
			c.metrics.CacheLookups.WithLabelValues("disk").Inc()
			c.logger.Info("loaded site snapshot", "site_id", siteID, "records", len(records))
			return c.dataset(site, records), nil
		}
	}

	return c.build(ctx, site, sourceOverride)
}

// build ingests the site's CSV folder, persists the result, and returns it.
// Persistence failures are logged; the dataset is still returned.
func (c *Cache) build(ctx context.Context, site domain.Site, sourceRoot string) (domain.Dataset, error) {
	start := time.Now()
	if sourceRoot == "" {
		sourceRoot = c.sourceRoot
	}
	dir := filepath.Join(sourceRoot, site.ID)

	batch, err := c.reader.ReadDir(ctx, dir)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("ingest site %s: %w", site.ID, err)
	}

	records, dropped := domain.ApplyCategoryPass(batch.Records, site.Kind())
	c.metrics.RowsDropped.WithLabelValues("unclassified").Add(float64(dropped))

	if batch.Metadata.HasDirections() {
		meta := store.SiteMetadata{
			SiteName:   site.Name,
			Direction1: batch.Metadata.Direction1.Value,
			Direction2: batch.Metadata.Direction2.Value,
		}
		if err := c.sidecars.Write(site.ID, meta); err != nil {
			c.metrics.CacheWriteErrors.Inc()
			c.logger.Error("save site metadata failed", "site_id", site.ID, "error", err)
		}
	}

	if len(records) > 0 {
		if err := c.snapshots.Write(site.ID, records); err != nil {
			c.metrics.CacheWriteErrors.Inc()
			c.logger.Error("save site snapshot failed", "site_id", site.ID, "error", err)
		}
	}

	c.metrics.CacheLookups.WithLabelValues("build").Inc()
	c.metrics.SiteBuildDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("built site dataset",
		"site_id", site.ID,
		"files", len(batch.Files),
		"skipped_files", len(batch.Skipped),
		"records", len(records),
		"unclassified", dropped,
	)
	return c.dataset(site, records), nil
}

// dataset attaches site metadata: registry name and coordinates, generic
// direction labels, then any labels saved in the sidecar.
func (c *Cache) dataset(site domain.Site, records []domain.Record) domain.Dataset {
	meta := domain.Metadata{
		SiteName:   site.Name,
		Direction1: domain.DefaultDirection1,
		Direction2: domain.DefaultDirection2,
		Latitude:   site.Lat(),
		Longitude:  site.Lon(),
	}
	sc, ok, err := c.sidecars.Read(site.ID)
	if err != nil {
		c.logger.Warn("site metadata unreadable", "site_id", site.ID, "error", err)
	} else if ok {
		meta = sc.Apply(meta)
	}

	return domain.Dataset{
		SiteID:   site.ID,
		Kind:     site.Kind(),
		Location: c.loc,
		Metadata: meta,
		Records:  records,
	}
}

func (c *Cache) empty(siteID string) domain.Dataset {
	return domain.Dataset{
		SiteID:   siteID,
		Location: c.loc,
		Metadata: domain.Metadata{Direction1: domain.DefaultDirection1, Direction2: domain.DefaultDirection2},
	}
}

func (c *Cache) cached(siteID string) (domain.Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.data[siteID]
	return ds, ok
}

func (c *Cache) generation(siteID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[siteID]
}

// putIfCurrent stores ds unless the site was invalidated or rebuilt since gen
// was read.
func (c *Cache) putIfCurrent(ds domain.Dataset, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[ds.SiteID] != gen {
		return false
	}
	c.data[ds.SiteID] = ds
	return true
}

// replace stores a rebuilt dataset and supersedes every load in flight.
func (c *Cache) replace(ds domain.Dataset) {
	c.mu.Lock()
	c.data[ds.SiteID] = ds
	c.gens[ds.SiteID]++
	c.mu.Unlock()
}
