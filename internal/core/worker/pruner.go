package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/notekeep/recovery/internal/infra/storage"
)

// Pruner deletes archived error events past the retention period.
type Pruner struct {
	archive   storage.EventArchive
	retention time.Duration
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(archive storage.EventArchive, retention time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{archive: archive, retention: retention, log: log}
}

// Start runs the pruner loop until ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check at 10% of the retention period, clamped to [1m, 1h].
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)
	removed, err := p.archive.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Error("failed to prune archived events", "error", err)
		return
	}
	if removed > 0 {
		p.log.Debug("pruned archived events", "removed", removed)
	}
}
