package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/traffic-count-etl/internal/config"
	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
)

// Invalidator drops a site's in-memory dataset. It is implemented by
// sitedata.Cache.
type Invalidator interface {
	Invalidate(siteID string)
}

// Listener consumes rebuild notifications and invalidates the matching
// cached datasets, so a running dashboard picks up snapshots written by a
// batch rebuild.
type Listener struct {
	reader  *kafkago.Reader
	target  Invalidator
	logger  *slog.Logger
	metrics *observability.Metrics

	retryDelay time.Duration
}

// NewListener creates a consumer group member on the rebuild topic.
func NewListener(cfg *config.Config, target Invalidator, logger *slog.Logger, metrics *observability.Metrics) *Listener {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaRebuildTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &Listener{reader: r, target: target, logger: logger, metrics: metrics, retryDelay: time.Second}
}

// Run consumes notifications until ctx is cancelled. Undecodable messages are
// logged and committed so they are not redelivered.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("rebuild listener started", "topic", l.reader.Config().Topic)
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("rebuild listener stopping", "reason", ctx.Err())
				return nil
			}
			l.logger.Error("fetch rebuild notification failed", "error", err)
			if !retry.SleepWithContext(ctx, l.retryDelay) {
				return nil
			}
			continue
		}

		l.handle(msg)

		if err := l.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			l.logger.Warn("commit offset failed", "error", err,
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

func (l *Listener) handle(msg kafkago.Message) {
	event, err := decodeMessage(msg)
	if err != nil {
		l.metrics.Notifications.WithLabelValues("received", "error").Inc()
		l.logger.Warn("dropping rebuild notification", "error", err,
			"partition", msg.Partition, "offset", msg.Offset)
		return
	}
	l.metrics.Notifications.WithLabelValues("received", "success").Inc()
	l.target.Invalidate(event.SiteID)
	l.logger.Info("site invalidated by rebuild notification",
		"site_id", event.SiteID,
		"records", event.Records,
		"rebuilt_at", event.RebuiltAt,
	)
}

func (l *Listener) Close() error {
	return l.reader.Close()
}

// decodeMessage reads a RebuildEvent. The site_id header is used when the
// body does not name a site.
func decodeMessage(msg kafkago.Message) (domain.RebuildEvent, error) {
	var event domain.RebuildEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.RebuildEvent{}, fmt.Errorf("decode rebuild event: %w", err)
	}
	if event.SiteID == "" {
		for _, h := range msg.Headers {
			if h.Key == "site_id" {
				event.SiteID = string(h.Value)
			}
		}
	}
	if event.SiteID == "" {
		return domain.RebuildEvent{}, errors.New("decode rebuild event: missing site id")
	}
	return event, nil
}
