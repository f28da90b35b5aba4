package domain

import "time"

// RecoveryOperation is one in-flight recovery attempt. It exists from the
// moment a decided action starts executing until the action completes.
type RecoveryOperation struct {
	ID        string
	Failure   Failure
	Action    RecoveryAction
	Context   ErrorContext
	StartedAt time.Time
}
