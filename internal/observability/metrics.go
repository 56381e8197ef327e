package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lane_heatmap"

// Metrics holds the Prometheus collectors for lane loading and ZIP resolution.
type Metrics struct {
	RowsProcessed  prometheus.Counter
	RowsSkipped    prometheus.Counter
	LanesEmitted   prometheus.Counter
	InvalidZips    prometheus.Counter
	DatasetsLoaded *prometheus.CounterVec // labels: outcome={success,error}
	LoadDuration   prometheus.Histogram
	LanesPublished prometheus.Counter
	PublishErrors  prometheus.Counter

	// ZIP resolution metrics.
	ZipResolutions     *prometheus.CounterVec   // labels: source={reference,memo,online,failed}
	ZipCache           *prometheus.CounterVec   // labels: result={hit,miss,error}
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider
	OnlineFallback     prometheus.Gauge
	ReferenceZips      prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsProcessed,
		m.RowsSkipped,
		m.LanesEmitted,
		m.InvalidZips,
		m.DatasetsLoaded,
		m.LoadDuration,
		m.LanesPublished,
		m.PublishErrors,
		m.ZipResolutions,
		m.ZipCache,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.OnlineFallback,
		m.ReferenceZips,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Data rows read from lane files.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows dropped for missing, malformed or unresolvable ZIPs.",
		}),
		LanesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lanes_emitted_total",
			Help:      "Lanes derived from lane files.",
		}),
		InvalidZips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_zips_total",
			Help:      "Distinct ZIP values per load that could not be resolved.",
		}),
		DatasetsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_loaded_total",
			Help:      "Lane file loads by outcome.",
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete lane file load.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LanesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lanes_published_total",
			Help:      "Lanes written to the Kafka lanes topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed dataset publishes.",
		}),
		ZipResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zip_resolutions_total",
			Help:      "ZIP resolutions by source.",
		}, []string{"source"}),
		ZipCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zip_cache_total",
			Help:      "Geocoded ZIP cache lookups by result.",
		}, []string{"result"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		OnlineFallback: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_fallback_enabled",
			Help:      "1 when unresolved ZIPs are geocoded online, 0 otherwise.",
		}),
		ReferenceZips: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reference_zips",
			Help:      "ZIPs in the merged reference dataset.",
		}),
	}
}
