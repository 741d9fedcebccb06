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
	// Transfer metrics
	TransfersTotal    *prometheus.CounterVec
	TransferDuration  *prometheus.HistogramVec
	StageDuration     *prometheus.HistogramVec
	BlockhashRestarts prometheus.Counter
	SubmitRetries     prometheus.Counter
	InFlight          prometheus.Gauge

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Bus metrics
	MessagesConsumed  *prometheus.CounterVec
	MessagesDuplicate prometheus.Counter
	ResultsPublished  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulTransfer prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_transfer_operator"
	}

	return &Metrics{
		TransfersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "requests_total",
			Help:      "Total number of transfer requests by kind, status and error kind",
		}, []string{"kind", "status", "error_kind"}),
		TransferDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "End-to-end request duration from RECEIVED to terminal state",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"kind", "status"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "stage_duration_seconds",
			Help:      "Time spent reaching each stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		BlockhashRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "blockhash_restarts_total",
			Help:      "Attempts restarted after the blockhash expired",
		}),
		SubmitRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "submit_retries_total",
			Help:      "Resubmissions of identical signed bytes after a network failure",
		}),
		InFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "in_flight",
			Help:      "Requests currently being processed",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "RPC call latency in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "RPC call failures by method",
		}, []string{"method"}),

		MessagesConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_consumed_total",
			Help:      "Inbound bus messages by kind",
		}, []string{"kind"}),
		MessagesDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_duplicate_total",
			Help:      "Redelivered messages skipped by the idempotency guard",
		}),
		ResultsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "results_published_total",
			Help:      "Outbound results by status",
		}, []string{"status"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulTransfer: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_transfer_timestamp",
			Help:      "Unix timestamp of last SUBMITTED transfer",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTransfer records a finished request.
func RecordTransfer(kind, status, errorKind string, durationSeconds float64) {
	DefaultMetrics.TransfersTotal.WithLabelValues(kind, status, errorKind).Inc()
	DefaultMetrics.TransferDuration.WithLabelValues(kind, status).Observe(durationSeconds)
	if errorKind == "" {
		DefaultMetrics.LastSuccessfulTransfer.Set(float64(time.Now().Unix()))
	}
}

// RecordStage records time taken to reach a stage.
func RecordStage(stage string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordBlockhashRestart increments the blockhash restart counter.
func RecordBlockhashRestart() {
	DefaultMetrics.BlockhashRestarts.Inc()
}

// RecordSubmitRetry increments the resubmission counter.
func RecordSubmitRetry() {
	DefaultMetrics.SubmitRetries.Inc()
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func TrackInFlight() func() {
	DefaultMetrics.InFlight.Inc()
	return DefaultMetrics.InFlight.Dec
}

// RecordRPCCall records RPC call latency and failure.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordMessageConsumed counts an inbound bus message.
func RecordMessageConsumed(kind string) {
	DefaultMetrics.MessagesConsumed.WithLabelValues(kind).Inc()
}

// RecordDuplicateMessage counts a redelivered message.
func RecordDuplicateMessage() {
	DefaultMetrics.MessagesDuplicate.Inc()
}

// RecordResultPublished counts an outbound result.
func RecordResultPublished(status string) {
	DefaultMetrics.ResultsPublished.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
