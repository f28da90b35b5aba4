package engine

import (
	"sync/atomic"

	"github.com/notekeep/recovery/internal/core/domain"
)

// The default engine backs the free-function entry points. It is set once
// by the composition root; there is no implicit global construction.
var defaultEngine atomic.Pointer[Engine]

// SetDefault installs the process-wide engine used by Report and
// ReportError.
func SetDefault(e *Engine) {
	defaultEngine.Store(e)
}

// Default returns the process-wide engine, or nil if none is set.
func Default() *Engine {
	return defaultEngine.Load()
}

// Report forwards a classified failure to the default engine. Reports
// before SetDefault are dropped.
func Report(f domain.Failure, ec domain.ErrorContext) {
	if e := Default(); e != nil {
		e.Report(f, ec)
	}
}

// ReportError is the process-wide convenience entry point: it constructs
// a first-failure context (retry count 0, no retry handle) and forwards.
// Subscribers on the engine's event bus observe the resulting event
// whether or not they are wired through Report directly.
func ReportError(kind domain.Kind, component, operation string, info map[string]string) {
	Report(
		domain.Failure{Kind: kind},
		domain.NewErrorContext(component, operation, info, nil),
	)
}
