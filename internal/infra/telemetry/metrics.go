package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrorsReported tracks reported failures by kind and severity
	ErrorsReported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_errors_reported_total",
			Help: "Total number of failures reported to the engine",
		},
		[]string{"kind", "severity"},
	)

	// ActionsDecided tracks decided recovery actions by type
	ActionsDecided = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_actions_decided_total",
			Help: "Total number of recovery actions decided",
		},
		[]string{"action"},
	)

	// RetriesScheduled tracks scheduled retries by kind
	RetriesScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_retries_scheduled_total",
			Help: "Total number of retries scheduled",
		},
		[]string{"kind"},
	)

	// RecoveriesInFlight tracks currently registered recovery operations
	RecoveriesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recovery_operations_in_flight",
			Help: "Number of recovery operations currently registered",
		},
	)

	// RecoveryDuration tracks time from decision to completion
	RecoveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recovery_operation_duration_seconds",
			Help:    "Time from action decision to operation completion",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// HistorySize tracks the current history log length
	HistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recovery_history_size",
			Help: "Number of events currently held in the history log",
		},
	)

	// DegradedMode reports whether the process is in degraded/offline mode
	DegradedMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recovery_degraded_mode",
			Help: "1 when the process is in degraded/offline mode, 0 otherwise",
		},
	)

	// SinkErrors tracks delivery failures to telemetry sinks
	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_sink_errors_total",
			Help: "Total number of failed telemetry sink deliveries",
		},
		[]string{"sink"},
	)
)
