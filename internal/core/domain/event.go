package domain

import "time"

// ErrorEvent is an immutable record of one classified failure. Events are
// appended to the history log in report order and never mutated.
type ErrorEvent struct {
	Failure    Failure
	Context    ErrorContext
	Severity   Severity
	ReportedAt time.Time
}
