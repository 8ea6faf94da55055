// Package metrics holds the Prometheus collectors shared by the daemon
// client, the live sync engine and the HTTP layer, plus small helpers so
// callers never touch label plumbing directly.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "vibetorrent"

	subsystemRPC  = "rpc"
	subsystemSync = "sync"
)

// Poll results.
const (
	PollOK      = "ok"
	PollError   = "error"
	PollSkipped = "skipped"
)

var (
	rpcDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemRPC,
			Name:      "call_duration_seconds",
			Help:      "Duration of XML-RPC calls to the daemon",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	rpcErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRPC,
			Name:      "call_errors_total",
			Help:      "XML-RPC calls that failed, by method and error kind",
		},
		[]string{"method", "kind"},
	)

	polls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSync,
			Name:      "polls_total",
			Help:      "Snapshot polls by result",
		},
		[]string{"result"},
	)

	patchesFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSync,
			Name:      "patches_flushed_total",
			Help:      "Patches delivered to subscribers after merging",
		},
	)

	batchesFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSync,
			Name:      "batches_flushed_total",
			Help:      "Non-empty patch batches broadcast",
		},
	)

	subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSync,
			Name:      "subscribers",
			Help:      "Currently registered live subscribers",
		},
	)

	pollInterval = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSync,
			Name:      "poll_interval_seconds",
			Help:      "Current adaptive poll interval",
		},
	)

	droppedSubscribers = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSync,
			Name:      "dropped_subscribers_total",
			Help:      "Subscribers removed after a failed send",
		},
	)
)

// ObserveCall records one daemon call. kind is empty on success.
func ObserveCall(method string, elapsed time.Duration, kind string) {
	rpcDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	if kind != "" {
		rpcErrors.WithLabelValues(method, kind).Inc()
	}
}

// IncPoll counts a poll with the given result.
func IncPoll(result string) {
	polls.WithLabelValues(result).Inc()
}

// AddFlushed records one broadcast batch of n patches.
func AddFlushed(n int) {
	batchesFlushed.Inc()
	patchesFlushed.Add(float64(n))
}

// SetSubscribers sets the subscriber gauge.
func SetSubscribers(n int) {
	subscribers.Set(float64(n))
}

// IncDropped counts a subscriber removed for a send failure.
func IncDropped() {
	droppedSubscribers.Inc()
}

// SetPollInterval sets the cadence gauge.
func SetPollInterval(d time.Duration) {
	pollInterval.Set(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
