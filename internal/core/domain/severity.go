package domain

// Severity is the ordinal urgency classification of a failure. It is
// derived from the kind via the classification table and never stored
// independently.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// RequiresUserNotification reports whether failures at this severity must
// be surfaced to the user once recovery is exhausted. Low-severity
// failures are handled silently.
func (s Severity) RequiresUserNotification() bool {
	return s >= SeverityMedium
}

// ShouldReportToTelemetry reports whether events at this severity are
// forwarded to the crash-reporting sink.
func (s Severity) ShouldReportToTelemetry() bool {
	return s >= SeverityHigh
}
