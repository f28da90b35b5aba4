package health

import (
	"sync"
	"time"

	"github.com/notekeep/recovery/internal/core/domain"
)

// Status is the aggregate health classification.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// EngineStatus is the slice of the engine the monitor reads. Everything
// here is a consistent, read-only snapshot.
type EngineStatus interface {
	InFlight() int
	HistorySize() int
	Frequency() map[domain.Kind]int
}

// ModeReader reads the process-wide degraded mode.
type ModeReader interface {
	Degraded() bool
}

// Report describes the engine's current condition.
type Report struct {
	Status       Status              `json:"status"`
	DegradedMode bool                `json:"degraded_mode"`
	InFlight     int                 `json:"recoveries_in_flight"`
	HistorySize  int                 `json:"history_size"`
	Frequency    map[domain.Kind]int `json:"frequency_by_kind"`
	CheckedAt    time.Time           `json:"checked_at"`
}

// Monitor aggregates health status from the engine and mode switch.
type Monitor struct {
	engine EngineStatus
	mode   ModeReader

	mu         sync.RWMutex
	lastReport Report
}

// NewMonitor creates a new health monitor.
func NewMonitor(engine EngineStatus, mode ModeReader) *Monitor {
	return &Monitor{engine: engine, mode: mode}
}

// Check computes a fresh report.
func (m *Monitor) Check() Report {
	report := Report{
		Status:      StatusHealthy,
		InFlight:    m.engine.InFlight(),
		HistorySize: m.engine.HistorySize(),
		Frequency:   m.engine.Frequency(),
		CheckedAt:   time.Now(),
	}
	if m.mode != nil && m.mode.Degraded() {
		report.DegradedMode = true
		report.Status = StatusDegraded
	}

	m.mu.Lock()
	m.lastReport = report
	m.mu.Unlock()
	return report
}

// Last returns the most recent report without recomputing.
func (m *Monitor) Last() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastReport
}
