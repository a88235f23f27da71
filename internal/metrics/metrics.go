package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks the number of outbound API calls to BrokerOps services.
	BrokerOpsRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brokerops_api_requests_total",
			Help: "Total number of BrokerOps API requests made (by endpoint, method, outcome).",
		},
		[]string{"endpoint", "method", "outcome"},
	)

	// Measures duration of API requests to BrokerOps.
	BrokerOpsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brokerops_api_request_duration_seconds",
			Help:    "Duration of BrokerOps API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint", "method"},
	)

	// Tracks sync runs by final state.
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mt5_sync_runs_total",
			Help: "Total number of deal sync runs by final state.",
		},
		[]string{"state"}, // done | aborted
	)

	// Tracks per-deal sync outcomes.
	SyncDealsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mt5_sync_deals_total",
			Help: "Total number of deals processed by outcome.",
		},
		[]string{"outcome"}, // delivered | already_synced | failed
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks cache hits and misses for secrets / credentials.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_errors_total",
			Help: "Count of adapter-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful sync run time (seconds since epoch).
	LastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mt5_last_sync_timestamp",
			Help: "Timestamp (unix seconds) of the last completed deal sync run.",
		},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// silently ignore counters; they're not meant for duration tracking
	}
}

func IncBrokerOpsRequest(endpoint, method, outcome string) {
	BrokerOpsRequestsTotal.WithLabelValues(endpoint, method, outcome).Inc()
}

func IncSyncRun(state string) {
	SyncRunsTotal.WithLabelValues(state).Inc()
}

func IncSyncDeal(outcome string) {
	SyncDealsTotal.WithLabelValues(outcome).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastSync(t time.Time) {
	LastSyncTimestamp.Set(float64(t.Unix()))
}
