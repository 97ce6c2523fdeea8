//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"golang.org/x/text/encoding/charmap"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/ingest"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
	"github.com/couchcryptid/traffic-count-etl/internal/sitedata"
	"github.com/couchcryptid/traffic-count-etl/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("traffic-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// siteEnv is a data dir with a one-site registry and a source root.
type siteEnv struct {
	dataDir   string
	sourceDir string
}

const registryJSON = `[{"id": "bonette", "name": "Col de la Bonette", "type": "routier"}]`

const exportCSV = `horodate_generated;lane (A, Col de la Bonette);direction_1_2 (1: vers Bonette) (2: vers Jausiers);categorySterela_label;category1;speed
2023-06-12 08:15:00;A;1;Vélo;;18,5
2023-06-12 09:30:00;A;2;;1;72
2023-06-17 10:00:00;A;1;;5;61
`

func newSiteEnv(t *testing.T) siteEnv {
	t.Helper()
	e := siteEnv{dataDir: t.TempDir(), sourceDir: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(e.dataDir, "sites.json"), []byte(registryJSON), 0o644))
	e.addExport(t, "2023-06.csv")
	return e
}

func (e siteEnv) addExport(t *testing.T, name string) {
	t.Helper()
	dir := filepath.Join(e.sourceDir, "bonette")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := charmap.ISO8859_1.NewEncoder().String(exportCSV)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
}

// cache opens a fresh process-level cache over the environment.
func (e siteEnv) cache(t *testing.T, metrics *observability.Metrics) *sitedata.Cache {
	t.Helper()
	loc, err := time.LoadLocation(domain.DefaultTimezone)
	require.NoError(t, err)
	logger := discardLogger()
	return sitedata.New(sitedata.Options{
		Registry:   store.NewRegistry(filepath.Join(e.dataDir, "sites.json")),
		Snapshots:  store.NewParquetStore(filepath.Join(e.dataDir, "parquet_store")),
		Sidecars:   store.NewSidecars(e.dataDir),
		Reader:     ingest.NewReader(loc, logger, metrics),
		SourceRoot: e.sourceDir,
		Location:   loc,
		Logger:     logger,
		Metrics:    metrics,
	})
}
