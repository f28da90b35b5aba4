package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/notekeep/recovery/internal/core/domain"
)

// EventRepo implements storage.EventArchive using PostgreSQL.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a new PostgreSQL event archive.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

type eventRow struct {
	Kind       string    `db:"kind"`
	Severity   string    `db:"severity"`
	Component  string    `db:"component"`
	Operation  string    `db:"operation"`
	RetryCount int       `db:"retry_count"`
	Reason     string    `db:"reason"`
	ReportedAt time.Time `db:"reported_at"`
}

// Save persists one event.
func (r *EventRepo) Save(ctx context.Context, ev domain.ErrorEvent) error {
	query := `
		INSERT INTO error_events (kind, severity, component, operation, retry_count, reason, reported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		string(ev.Failure.Kind),
		ev.Severity.String(),
		ev.Context.Component,
		ev.Context.Operation,
		ev.Context.RetryCount,
		ev.Failure.Reason,
		ev.ReportedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, most recent first.
func (r *EventRepo) Recent(ctx context.Context, limit int) ([]domain.ErrorEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT kind, severity, component, operation, retry_count, reason, reported_at
		FROM error_events
		ORDER BY reported_at DESC
		LIMIT $1
	`

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}

	events := make([]domain.ErrorEvent, 0, len(rows))
	for _, row := range rows {
		ec := domain.NewErrorContext(row.Component, row.Operation, nil, nil)
		ec.RetryCount = row.RetryCount
		events = append(events, domain.ErrorEvent{
			Failure:    domain.Failure{Kind: domain.Kind(row.Kind), Reason: row.Reason},
			Context:    ec,
			Severity:   domain.SeverityOf(domain.Kind(row.Kind)),
			ReportedAt: row.ReportedAt,
		})
	}
	return events, nil
}

// CountByKind returns the number of archived events for a kind.
func (r *EventRepo) CountByKind(ctx context.Context, kind domain.Kind) (int, error) {
	query := `SELECT COUNT(*) FROM error_events WHERE kind = $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, string(kind)); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes events reported before the cutoff.
func (r *EventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM error_events WHERE reported_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}
	return res.RowsAffected()
}
