package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/notekeep/recovery/internal/core/domain"
	"github.com/notekeep/recovery/internal/infra/telemetry"
)

// Presenter receives user-facing recovery payloads. Implementations live
// in the UI layer. Presentation is fire-and-forget from the engine's
// perspective: for choices, the UI invokes the selected option's handler
// through its own machinery.
type Presenter interface {
	PresentChoices(f domain.Failure, choices []domain.Choice)
	RequireIntervention(f domain.Failure, message string)
}

// ComponentRegistry restarts named subsystems. A registry that fails to
// restart a component reports that failure through its own Report call.
type ComponentRegistry interface {
	Restart(ctx context.Context, name string) error
}

// ModeSwitch flips and reads the process-wide degraded/offline mode.
type ModeSwitch interface {
	EnterDegradedMode(reason string)
	Degraded() bool
}

// FallbackRunner executes a named fallback operation before a retry.
type FallbackRunner interface {
	Run(ctx context.Context, fb domain.Fallback) error
}

// FallbackTable dispatches fallbacks through a lookup table. Unknown
// fallbacks are a configuration error.
type FallbackTable map[domain.Fallback]func(ctx context.Context) error

var errUnknownFallback = errors.New("no handler registered for fallback")

func (t FallbackTable) Run(ctx context.Context, fb domain.Fallback) error {
	fn, ok := t[fb]
	if !ok {
		return errUnknownFallback
	}
	return fn(ctx)
}

// Executor interprets decided recovery actions and performs their side
// effects. Execute runs on the engine goroutine; anything that can block
// (retry handles, component restarts) is pushed onto its own goroutine,
// and delayed work re-enters the engine through the schedule callback.
type Executor struct {
	presenter Presenter
	registry  ComponentRegistry
	mode      ModeSwitch
	fallbacks FallbackRunner
	log       *slog.Logger

	// schedule runs fn on the engine goroutine after d elapses.
	schedule func(d time.Duration, fn func())
	// complete deregisters the operation. Safe from any goroutine and
	// called inline so in-loop branches never block on the engine queue.
	complete func(opID string)
	// reenter reports a retry failure with its already-incremented context.
	reenter func(f domain.Failure, ec domain.ErrorContext)
}

// Execute performs the operation's decided action. Every branch ends with
// the operation's completion being observed.
func (e *Executor) Execute(ctx context.Context, op *domain.RecoveryOperation) {
	switch op.Action.Type {
	case domain.ActionRetry:
		if op.Action.Delay <= 0 {
			e.runRetry(ctx, op)
			return
		}
		e.schedule(op.Action.Delay, func() {
			e.runRetry(ctx, op)
		})

	case domain.ActionRetryWithFallback:
		if err := e.fallbacks.Run(ctx, op.Action.Fallback); err != nil {
			e.log.Warn("fallback failed, retrying anyway",
				"fallback", op.Action.Fallback, "error", err)
		}
		e.runRetry(ctx, op)

	case domain.ActionPresentUserChoice:
		e.presenter.PresentChoices(op.Failure, op.Action.Choices)
		e.complete(op.ID)

	case domain.ActionHandleSilently:
		e.log.Debug("failure handled silently",
			"kind", op.Failure.Kind,
			"component", op.Context.Component,
			"operation", op.Context.Operation)
		e.complete(op.ID)

	case domain.ActionRequireUserIntervention:
		e.presenter.RequireIntervention(op.Failure, op.Action.Message)
		e.complete(op.ID)

	case domain.ActionRestartComponent:
		name := op.Action.Component
		go func() {
			if err := e.registry.Restart(ctx, name); err != nil {
				e.log.Error("component restart failed", "component", name, "error", err)
			}
		}()
		e.complete(op.ID)

	case domain.ActionEnterDegradedMode:
		e.mode.EnterDegradedMode(op.Failure.Error())
		e.complete(op.ID)

	default:
		e.log.Error("unknown recovery action", "type", int(op.Action.Type))
		e.complete(op.ID)
	}
}

// runRetry invokes the operation's retry handle with the successor
// context. The handle runs off the engine goroutine; its completion is
// observed (via complete) before any re-report, which keeps retries for
// one operation id strictly ordered.
func (e *Executor) runRetry(ctx context.Context, op *domain.RecoveryOperation) {
	next := op.Context.NextAttempt()
	handle := op.Context.Handle

	if handle == nil {
		e.log.Warn("no retry handle supplied, dropping retry",
			"kind", op.Failure.Kind,
			"component", op.Context.Component,
			"operation", op.Context.Operation)
		e.complete(op.ID)
		return
	}

	telemetry.RetriesScheduled.WithLabelValues(string(op.Failure.Kind)).Inc()
	go func() {
		err := handle.Retry(ctx, next)
		e.complete(op.ID)
		if err != nil {
			e.reenter(failureFrom(op.Failure, err), next)
		}
	}()
}

// failureFrom extracts a classified failure from a retry handle's error.
// Handles are expected to return a domain.Failure; a plain error is
// folded back into the triggering kind as a safety net.
func failureFrom(prev domain.Failure, err error) domain.Failure {
	var f domain.Failure
	if errors.As(err, &f) {
		return f
	}
	prev.Reason = err.Error()
	return prev
}
