package engine

import (
	"sync"

	"github.com/notekeep/recovery/internal/core/domain"
)

// History is a bounded, most-recent-first log of error events. Appends
// happen only on the engine goroutine; the mutex exists so diagnostics
// (health endpoints, tests) can read a consistent snapshot from outside.
type History struct {
	mu       sync.RWMutex
	events   []domain.ErrorEvent // ring buffer
	head     int                 // index of the most recent event
	size     int
	capacity int

	// reportHook is invoked for every appended event whose severity
	// qualifies for telemetry. Set once before the engine starts.
	reportHook func(domain.ErrorEvent)
}

// NewHistory creates a history log with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{
		events:   make([]domain.ErrorEvent, capacity),
		head:     -1,
		capacity: capacity,
	}
}

// SetReportHook installs the telemetry hook.
func (h *History) SetReportHook(hook func(domain.ErrorEvent)) {
	h.reportHook = hook
}

// Append inserts ev as the most recent entry, evicting the oldest entry
// once the log is full. O(1).
func (h *History) Append(ev domain.ErrorEvent) {
	h.mu.Lock()
	h.head = (h.head + 1) % h.capacity
	h.events[h.head] = ev
	if h.size < h.capacity {
		h.size++
	}
	h.mu.Unlock()

	if h.reportHook != nil && ev.Severity.ShouldReportToTelemetry() {
		h.reportHook(ev)
	}
}

// Len returns the number of retained events.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Snapshot returns the retained events, most recent first.
func (h *History) Snapshot() []domain.ErrorEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.ErrorEvent, h.size)
	for i := 0; i < h.size; i++ {
		idx := (h.head - i + h.capacity) % h.capacity
		out[i] = h.events[idx]
	}
	return out
}

// Frequency returns the count of retained events per kind.
func (h *History) Frequency() map[domain.Kind]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	freq := make(map[domain.Kind]int, h.size)
	for i := 0; i < h.size; i++ {
		idx := (h.head - i + h.capacity) % h.capacity
		freq[h.events[idx].Failure.Kind]++
	}
	return freq
}

// CountByKind returns how many retained events carry the given kind.
func (h *History) CountByKind(kind domain.Kind) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for i := 0; i < h.size; i++ {
		idx := (h.head - i + h.capacity) % h.capacity
		if h.events[idx].Failure.Kind == kind {
			n++
		}
	}
	return n
}
