// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	IngestRecords   *prometheus.CounterVec
	SearchRequests  *prometheus.CounterVec
	FeedMessages    *prometheus.CounterVec
	FeedDisconnects prometheus.Counter
	SearchLatency   prometheus.Histogram

	// Risk report metrics
	RiskReportLatency  prometheus.Histogram
	RiskReportRequests *prometheus.CounterVec
	RiskCacheLookups   *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	Verdicts          *prometheus.CounterVec
	BundledFlagged    prometheus.Counter

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "memebot"
	}
	factory := promauto.With(reg)

	return &Metrics{
		IngestRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_total",
			Help:      "Ingested records by source and outcome",
		}, []string{"source", "outcome"}),
		SearchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "search_requests_total",
			Help:      "Search endpoint calls by status",
		}, []string{"status"}),
		FeedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feed_messages_total",
			Help:      "Feed messages by kind",
		}, []string{"kind"}),
		FeedDisconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feed_disconnects_total",
			Help:      "Listener runs ended by a connection error",
		}),
		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "search_latency_seconds",
			Help:      "Search endpoint latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		RiskReportLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "report_latency_seconds",
			Help:      "Risk report fetch latency in seconds, limiter wait excluded",
			Buckets:   prometheus.DefBuckets,
		}),
		RiskReportRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "report_requests_total",
			Help:      "Risk report fetches by outcome",
		}, []string{"outcome"}),
		RiskCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "cache_lookups_total",
			Help:      "Risk report cache lookups by result",
		}, []string{"result"}),

		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Classification passes by status",
		}, []string{"status"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Classification pass duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "verdicts_total",
			Help:      "Per-coin verdicts by stage",
		}, []string{"stage"}),
		BundledFlagged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "bundled_supply_flagged_total",
			Help:      "Coins flagged with bundled supply",
		}),

		LastSuccessfulIngestion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordIngest counts one ingested record.
// outcome is one of upserted, inserted, existing, skipped.
func RecordIngest(source, outcome string) {
	DefaultMetrics.IngestRecords.WithLabelValues(source, outcome).Inc()
}

// RecordSearch records one search call.
func RecordSearch(status string, d time.Duration) {
	DefaultMetrics.SearchRequests.WithLabelValues(status).Inc()
	DefaultMetrics.SearchLatency.Observe(d.Seconds())
}

// RecordFeedMessage counts one feed message by kind (event, ignored, malformed).
func RecordFeedMessage(kind string) {
	DefaultMetrics.FeedMessages.WithLabelValues(kind).Inc()
}

// RecordFeedDisconnect counts a listener run ended by the connection.
func RecordFeedDisconnect() {
	DefaultMetrics.FeedDisconnects.Inc()
}

// RecordRiskReport records one risk report fetch.
func RecordRiskReport(outcome string, d time.Duration) {
	DefaultMetrics.RiskReportRequests.WithLabelValues(outcome).Inc()
	DefaultMetrics.RiskReportLatency.Observe(d.Seconds())
}

// RecordRiskCache records a cache hit or miss.
func RecordRiskCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.RiskCacheLookups.WithLabelValues(result).Inc()
}

// RecordVerdict counts one per-coin verdict.
func RecordVerdict(stage string) {
	DefaultMetrics.Verdicts.WithLabelValues(stage).Inc()
}

// RecordBundledFlagged counts one bundled-supply write.
func RecordBundledFlagged() {
	DefaultMetrics.BundledFlagged.Inc()
}

// RecordPipelineRun records a classification pass.
func RecordPipelineRun(status string, d time.Duration) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PipelineDuration.Observe(d.Seconds())
	if status == "success" {
		DefaultMetrics.LastSuccessfulPipeline.SetToCurrentTime()
	}
}

// RecordIngestionSuccess marks the last successful ingestion run.
func RecordIngestionSuccess() {
	DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
}
