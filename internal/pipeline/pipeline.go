// Package pipeline drives the batch rebuild of every registered site.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
)

// ErrNoSites is returned when the registry lists nothing to rebuild.
var ErrNoSites = errors.New("no sites registered")

// SiteRebuilder lists sites and rebuilds their cached datasets.
// It is implemented by sitedata.Cache.
type SiteRebuilder interface {
	Sites() []domain.Site
	Rebuild(ctx context.Context, siteID, sourceRoot string) (domain.Dataset, error)
}

// Notifier publishes rebuild notifications.
type Notifier interface {
	LoadBatch(ctx context.Context, events []domain.RebuildEvent) error
}

// Summary lists the site ids of a run by outcome.
type Summary struct {
	Rebuilt []string
	Empty   []string
	Failed  []string
}

const notifyAttempts = 3

// Pipeline rebuilds every site from one source root and announces the
// rebuilt ones.
type Pipeline struct {
	rebuilder  SiteRebuilder
	notifier   Notifier
	sourceRoot string
	logger     *slog.Logger
	metrics    *observability.Metrics
	done       atomic.Bool

	// initialBackoff is the first notify retry delay; it doubles up to maxBackoff.
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a Pipeline. notifier may be nil to skip notifications.
func New(r SiteRebuilder, n Notifier, sourceRoot string, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		rebuilder:      r,
		notifier:       n,
		sourceRoot:     sourceRoot,
		logger:         logger,
		metrics:        metrics,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// WithBackoff overrides the notify retry delays.
func (p *Pipeline) WithBackoff(initial, maxBackoff time.Duration) *Pipeline {
	p.initialBackoff = initial
	p.maxBackoff = maxBackoff
	return p
}

// CheckReadiness returns nil once a run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.done.Load() {
		return errors.New("rebuild has not completed yet")
	}
	return nil
}

// Run rebuilds each registered site in registry order. A site that fails is
// logged and counted; the run carries on with the next one. Run stops early
// only when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	sites := p.rebuilder.Sites()
	if len(sites) == 0 {
		return summary, ErrNoSites
	}

	p.logger.Info("rebuild started", "sites", len(sites), "source", p.sourceRoot)
	p.metrics.BuildRunning.Set(1)
	defer p.metrics.BuildRunning.Set(0)

	events := make([]domain.RebuildEvent, 0, len(sites))
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ds, err := p.rebuilder.Rebuild(ctx, site.ID, p.sourceRoot)
		switch {
		case errors.Is(err, domain.ErrNoSourceFiles):
			p.logger.Info("no source data for site", "site_id", site.ID)
			summary.Empty = append(summary.Empty, site.ID)
			p.metrics.SitesRebuilt.WithLabelValues("empty").Inc()
		case err != nil:
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			p.logger.Warn("site rebuild failed", "site_id", site.ID, "error", err)
			summary.Failed = append(summary.Failed, site.ID)
			p.metrics.SitesRebuilt.WithLabelValues("failed").Inc()
		case ds.Empty():
			p.logger.Info("site has no classified records", "site_id", site.ID)
			summary.Empty = append(summary.Empty, site.ID)
			p.metrics.SitesRebuilt.WithLabelValues("empty").Inc()
		default:
			summary.Rebuilt = append(summary.Rebuilt, site.ID)
			p.metrics.SitesRebuilt.WithLabelValues("rebuilt").Inc()
			events = append(events, domain.RebuildEvent{
				SiteID:    site.ID,
				Records:   len(ds.Records),
				Source:    p.sourceRoot,
				RebuiltAt: domain.Now().UTC(),
			})
		}
	}

	p.logger.Info("rebuild finished",
		"rebuilt", len(summary.Rebuilt),
		"empty", len(summary.Empty),
		"failed", len(summary.Failed),
	)

	if err := p.notify(ctx, events); err != nil {
		return summary, err
	}
	p.done.Store(true)
	return summary, nil
}

// notify publishes events, retrying with exponential backoff.
func (p *Pipeline) notify(ctx context.Context, events []domain.RebuildEvent) error {
	if p.notifier == nil || len(events) == 0 {
		return nil
	}

	backoff := p.initialBackoff
	var err error
	for attempt := 1; attempt <= notifyAttempts; attempt++ {
		err = p.notifier.LoadBatch(ctx, events)
		if err == nil {
			p.metrics.Notifications.WithLabelValues("published", "success").Add(float64(len(events)))
			p.logger.Info("rebuild notifications published", "count", len(events))
			return nil
		}
		p.logger.Warn("publish rebuild notifications failed", "attempt", attempt, "error", err)
		if attempt == notifyAttempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}

	p.metrics.Notifications.WithLabelValues("published", "error").Add(float64(len(events)))
	return fmt.Errorf("publish rebuild notifications: %w", err)
}
