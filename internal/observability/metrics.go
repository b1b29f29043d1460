package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the AQI
// computation pipeline.
type Metrics struct {
	ReadingsNormalized prometheus.Counter
	ReadingsDropped    *prometheus.CounterVec // label: reason
	Computations       prometheus.Counter
	ComputeFailures    *prometheus.CounterVec // label: reason={insufficient_data,internal}
	AQIValue           *prometheus.GaugeVec   // label: location
	RefreshDuration    prometheus.Histogram
	PipelineRunning    prometheus.Gauge

	// Provider fetch metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	ProviderDuration *prometheus.HistogramVec // label: provider
	ProviderCache    *prometheus.CounterVec   // labels: provider, result={hit,miss}

	// Snapshot sink metrics.
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
	PublishEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReadingsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airlens",
			Name:      "readings_normalized_total",
			Help:      "Total raw measurements normalized into canonical readings.",
		}),
		ReadingsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airlens",
			Name:      "readings_dropped_total",
			Help:      "Raw measurements dropped during normalization, by reason.",
		}, []string{"reason"}),
		Computations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airlens",
			Name:      "aqi_computations_total",
			Help:      "Total successful AQI computations.",
		}),
		ComputeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airlens",
			Name:      "aqi_compute_failures_total",
			Help:      "AQI computations that produced no result, by reason.",
		}, []string{"reason"}),
		AQIValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "airlens",
			Name:      "aqi_value",
			Help:      "Most recently computed overall AQI per location.",
		}, []string{"location"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airlens",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-compute cycle for one location.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airlens",
			Name:      "pipeline_running",
			Help:      "1 when the refresh pipeline is active, 0 when shut down.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airlens",
			Name:      "provider_requests_total",
			Help:      "Upstream API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "airlens",
			Name:      "provider_request_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		ProviderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airlens",
			Name:      "provider_cache_total",
			Help:      "Provider cache lookups by provider and result.",
		}, []string{"provider", "result"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airlens",
			Name:      "snapshots_published_total",
			Help:      "Snapshots published to the Kafka sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airlens",
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publishes.",
		}),
		PublishEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airlens",
			Name:      "publish_enabled",
			Help:      "1 when the Kafka snapshot sink is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ReadingsNormalized,
		m.ReadingsDropped,
		m.Computations,
		m.ComputeFailures,
		m.AQIValue,
		m.RefreshDuration,
		m.PipelineRunning,
		m.ProviderRequests,
		m.ProviderDuration,
		m.ProviderCache,
		m.SnapshotsPublished,
		m.PublishErrors,
		m.PublishEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReadingsNormalized: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "airlens", Name: "readings_normalized_total"}),
		ReadingsDropped:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "airlens", Name: "readings_dropped_total"}, []string{"reason"}),
		Computations:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "airlens", Name: "aqi_computations_total"}),
		ComputeFailures:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "airlens", Name: "aqi_compute_failures_total"}, []string{"reason"}),
		AQIValue:           prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "airlens", Name: "aqi_value"}, []string{"location"}),
		RefreshDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "airlens", Name: "refresh_duration_seconds"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "airlens", Name: "pipeline_running"}),
		ProviderRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "airlens", Name: "provider_requests_total"}, []string{"provider", "outcome"}),
		ProviderDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "airlens", Name: "provider_request_duration_seconds"}, []string{"provider"}),
		ProviderCache:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "airlens", Name: "provider_cache_total"}, []string{"provider", "result"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "airlens", Name: "snapshots_published_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "airlens", Name: "publish_errors_total"}),
		PublishEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "airlens", Name: "publish_enabled"}),
	}
}
