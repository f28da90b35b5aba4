package memory

import (
	"context"
	"sync"
	"time"

	"github.com/notekeep/recovery/internal/core/domain"
)

// Archive implements storage.EventArchive in memory. It is the default
// archive when no database is configured, and the test double.
type Archive struct {
	mu     sync.RWMutex
	events []domain.ErrorEvent // append order; oldest first
}

// NewArchive creates an empty in-memory archive.
func NewArchive() *Archive {
	return &Archive{}
}

// Save persists one event.
func (a *Archive) Save(ctx context.Context, ev domain.ErrorEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil
}

// Recent returns up to limit events, most recent first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]domain.ErrorEvent, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := len(a.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.ErrorEvent, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.events[i])
	}
	return out, nil
}

// CountByKind returns the number of archived events for a kind.
func (a *Archive) CountByKind(ctx context.Context, kind domain.Kind) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := 0
	for _, ev := range a.events {
		if ev.Failure.Kind == kind {
			n++
		}
	}
	return n, nil
}

// DeleteOlderThan removes events reported before the cutoff.
func (a *Archive) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.events[:0]
	var removed int64
	for _, ev := range a.events {
		if ev.ReportedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	a.events = kept
	return removed, nil
}
