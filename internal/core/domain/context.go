package domain

import "context"

// RetryHandle re-attempts the original failed operation. Implementations
// are supplied by the failing subsystem; the engine invokes them with a
// fresh context carrying the incremented retry count. A returned Failure
// re-enters the engine with that context, chaining the attempts.
type RetryHandle interface {
	Retry(ctx context.Context, ec ErrorContext) error
}

// RetryFunc adapts a plain function to a RetryHandle.
type RetryFunc func(ctx context.Context, ec ErrorContext) error

func (f RetryFunc) Retry(ctx context.Context, ec ErrorContext) error {
	return f(ctx, ec)
}

// ErrorContext describes the failing call site and its retry lineage.
// Contexts are never mutated; NextAttempt derives the successor for each
// retry.
type ErrorContext struct {
	Component  string
	Operation  string
	RetryCount int
	Info       map[string]string
	Handle     RetryHandle
}

// NewErrorContext creates the context for a first failure (retry count 0).
func NewErrorContext(component, operation string, info map[string]string, handle RetryHandle) ErrorContext {
	var copied map[string]string
	if len(info) > 0 {
		copied = make(map[string]string, len(info))
		for k, v := range info {
			copied[k] = v
		}
	}
	return ErrorContext{
		Component: component,
		Operation: operation,
		Info:      copied,
		Handle:    handle,
	}
}

// NextAttempt returns a copy with the retry count incremented by exactly
// one. Component, operation, info, and handle are preserved.
func (ec ErrorContext) NextAttempt() ErrorContext {
	next := ec
	next.RetryCount++
	return next
}
