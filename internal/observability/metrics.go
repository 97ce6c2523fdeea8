package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "traffic_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion,
// the site cache and rebuild notifications.
type Metrics struct {
	FilesIngested prometheus.Counter
	FilesSkipped  prometheus.Counter
	RowsRead      prometheus.Counter
	RowsDropped   *prometheus.CounterVec // labels: reason={malformed,timestamp,unclassified}
	ValuesCoerced *prometheus.CounterVec // labels: field={Speed,Count,Category_SIREDO}

	// Site cache metrics.
	CacheLookups      *prometheus.CounterVec // labels: source={memory,disk,build,empty}
	CacheWriteErrors  prometheus.Counter
	SiteBuildDuration prometheus.Histogram

	// Batch rebuild metrics.
	SitesRebuilt  *prometheus.CounterVec // labels: outcome={rebuilt,empty,failed}
	BuildRunning  prometheus.Gauge
	Notifications *prometheus.CounterVec // labels: direction={published,received}, outcome={success,error}
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		FilesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_ingested_total",
			Help:      help("Source CSV files read successfully."),
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      help("Source CSV files skipped because they were unreadable or had no timestamp column."),
		}),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      help("Data rows read from source CSV files."),
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      help("Rows dropped during ingestion by reason."),
		}, []string{"reason"}),
		ValuesCoerced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "values_coerced_total",
			Help:      help("Unparseable numeric cells stored as missing, by field."),
		}, []string{"field"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      help("Site dataset lookups by the layer that served them."),
		}, []string{"source"}),
		CacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_errors_total",
			Help:      help("Failures persisting a site snapshot or its metadata sidecar."),
		}),
		SiteBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "site_build_duration_seconds",
			Help:      help("Duration of a site dataset build from source CSV files."),
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		SitesRebuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sites_rebuilt_total",
			Help:      help("Forced site rebuilds by outcome."),
		}, []string{"outcome"}),
		BuildRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_running",
			Help:      help("1 while a batch rebuild is in progress, 0 otherwise."),
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuild_notifications_total",
			Help:      help("Rebuild notifications by direction and outcome."),
		}, []string{"direction", "outcome"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FilesIngested,
		m.FilesSkipped,
		m.RowsRead,
		m.RowsDropped,
		m.ValuesCoerced,
		m.CacheLookups,
		m.CacheWriteErrors,
		m.SiteBuildDuration,
		m.SitesRebuilt,
		m.BuildRunning,
		m.Notifications,
	}
}
