// Package metrics exposes Prometheus instrumentation for the strategy
// engine and a small HTTP server for the /metrics and /health
// endpoints.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "strategy_engine"

var (
	TicksIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_ingested_total",
		Help:      "Ticks delivered to the engine, by symbol.",
	}, []string{"symbol"})

	BarsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bars_ingested_total",
		Help:      "Bars delivered to the engine, by bar type.",
	}, []string{"bar_type"})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_processed_total",
		Help:      "Order, account, position, and time events processed.",
	}, []string{"event"})

	CommandsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_issued_total",
		Help:      "Commands forwarded to the execution client.",
	}, []string{"command"})

	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_submitted_total",
		Help:      "Orders submitted, by side and purpose.",
	}, []string{"side", "purpose"})

	HookFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hook_failures_total",
		Help:      "Strategy hook errors and panics, by hook.",
	}, []string{"hook"})

	HookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "hook_duration_seconds",
		Help:      "Strategy hook execution time.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"hook"})

	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build metadata; the value is always 1.",
	}, []string{"version", "commit", "date"})
)

// SetBuildInfo publishes build metadata.
func SetBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
}
