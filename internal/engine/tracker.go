package engine

import (
	"errors"
	"sync"

	"github.com/notekeep/recovery/internal/core/domain"
)

// ErrDuplicateOperation is returned when an operation id is registered
// while an operation with the same id is still in flight.
var ErrDuplicateOperation = errors.New("operation id already registered")

// Tracker is the registry of in-flight recovery operations. Registration
// happens on the engine goroutine; completion may arrive from retry
// goroutines, and diagnostics read snapshots from anywhere, so all
// access goes through the mutex.
type Tracker struct {
	mu  sync.RWMutex
	ops map[string]*domain.RecoveryOperation
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{ops: make(map[string]*domain.RecoveryOperation)}
}

// Register inserts op at decision time.
func (t *Tracker) Register(op *domain.RecoveryOperation) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.ops[op.ID]; exists {
		return ErrDuplicateOperation
	}
	t.ops[op.ID] = op
	return nil
}

// Complete removes the operation with the given id and returns it, or nil
// if no such operation is registered.
func (t *Tracker) Complete(id string) *domain.RecoveryOperation {
	t.mu.Lock()
	defer t.mu.Unlock()
	op := t.ops[id]
	delete(t.ops, id)
	return op
}

// InFlight returns the number of registered operations.
func (t *Tracker) InFlight() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ops)
}

// Snapshot returns copies of all registered operations for diagnostics.
func (t *Tracker) Snapshot() []domain.RecoveryOperation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.RecoveryOperation, 0, len(t.ops))
	for _, op := range t.ops {
		out = append(out, *op)
	}
	return out
}
