package storage

import (
	"context"
	"time"

	"github.com/notekeep/recovery/internal/core/domain"
)

// EventArchive is the durable record of reported error events. The
// in-memory history log remains the engine's source of truth for policy;
// the archive exists for diagnostics across restarts and is written
// asynchronously, so a failing archive never affects recovery decisions.
type EventArchive interface {
	// Save persists one event.
	Save(ctx context.Context, ev domain.ErrorEvent) error

	// Recent returns up to limit events, most recent first.
	Recent(ctx context.Context, limit int) ([]domain.ErrorEvent, error)

	// CountByKind returns the number of archived events for a kind.
	CountByKind(ctx context.Context, kind domain.Kind) (int, error)

	// DeleteOlderThan removes events reported before the cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
