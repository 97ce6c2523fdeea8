package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/traffic-count-etl/internal/config"
	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// Writer publishes site rebuild notifications.
// It implements pipeline.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured rebuild topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaRebuildTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes one message per rebuilt site in a single
// WriteMessages call. Messages are keyed by site id so notifications for a
// site stay ordered.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.RebuildEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write rebuild notifications: %w", err)
	}
	w.logger.Debug("rebuild notifications written", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(event domain.RebuildEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize rebuild event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.SiteID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "site_id", Value: []byte(event.SiteID)},
			{Key: "rebuilt_at", Value: []byte(event.RebuiltAt.Format(time.RFC3339))},
		},
	}, nil
}
