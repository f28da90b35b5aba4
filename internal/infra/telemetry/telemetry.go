package telemetry

import (
	"context"
	"log/slog"

	"github.com/notekeep/recovery/internal/core/domain"
)

// Sink receives error events whose severity requires telemetry reporting.
// Deliveries are fire-and-forget: the engine never consumes a return value
// beyond logging it.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Record delivers one event.
	Record(ctx context.Context, ev domain.ErrorEvent) error
}

// Multi fans an event out to several sinks. Delivery failures are counted
// per sink and do not stop the fan-out.
type Multi struct {
	sinks []Sink
	log   *slog.Logger
}

// NewMulti creates a fan-out sink.
func NewMulti(log *slog.Logger, sinks ...Sink) *Multi {
	if log == nil {
		log = slog.Default()
	}
	return &Multi{sinks: sinks, log: log}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Record(ctx context.Context, ev domain.ErrorEvent) error {
	for _, s := range m.sinks {
		if err := s.Record(ctx, ev); err != nil {
			SinkErrors.WithLabelValues(s.Name()).Inc()
			m.log.Warn("telemetry delivery failed",
				"sink", s.Name(),
				"kind", ev.Failure.Kind,
				"error", err)
		}
	}
	return nil
}

// LogSink writes qualifying events to the structured log. It is the
// always-on baseline sink.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Record(_ context.Context, ev domain.ErrorEvent) error {
	s.log.Error("failure reported",
		"kind", ev.Failure.Kind,
		"group", ev.Failure.Kind.Group(),
		"severity", ev.Severity.String(),
		"component", ev.Context.Component,
		"operation", ev.Context.Operation,
		"retry_count", ev.Context.RetryCount,
	)
	return nil
}
