package control

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/notekeep/recovery/internal/core/domain"
	"github.com/notekeep/recovery/internal/engine"
	"github.com/notekeep/recovery/internal/infra/telemetry"
)

// Switch is the process-wide degraded/offline mode. Subsystems check it
// before attempting remote work.
type Switch struct {
	degraded atomic.Bool
	log      *slog.Logger
}

// NewSwitch creates a mode switch in normal mode.
func NewSwitch(log *slog.Logger) *Switch {
	if log == nil {
		log = slog.Default()
	}
	return &Switch{log: log}
}

// EnterDegradedMode flips the process into degraded/offline mode.
func (s *Switch) EnterDegradedMode(reason string) {
	if s.degraded.CompareAndSwap(false, true) {
		telemetry.DegradedMode.Set(1)
		s.log.Warn("entering degraded mode", "reason", reason)
	}
}

// ExitDegradedMode returns to normal mode (e.g. after connectivity is
// restored).
func (s *Switch) ExitDegradedMode() {
	if s.degraded.CompareAndSwap(true, false) {
		telemetry.DegradedMode.Set(0)
		s.log.Info("leaving degraded mode")
	}
}

// Degraded reports whether the process is in degraded mode.
func (s *Switch) Degraded() bool {
	return s.degraded.Load()
}

// RestartFunc restarts one subsystem.
type RestartFunc func(ctx context.Context) error

// Registry maps component names to restart functions. It implements
// engine.ComponentRegistry; a component that fails to restart is expected
// to report that failure itself.
type Registry struct {
	mu         sync.RWMutex
	components map[string]RestartFunc
	log        *slog.Logger
}

// NewRegistry creates an empty component registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{components: make(map[string]RestartFunc), log: log}
}

// Register adds or replaces a component's restart function.
func (r *Registry) Register(name string, fn RestartFunc) {
	r.mu.Lock()
	r.components[name] = fn
	r.mu.Unlock()
}

// Restart restarts the named component.
func (r *Registry) Restart(ctx context.Context, name string) error {
	r.mu.RLock()
	fn, ok := r.components[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown component %q", name)
	}
	r.log.Info("restarting component", "component", name)
	return fn(ctx)
}

// Fallbacks builds the engine's fallback dispatch table. The offline-mode
// fallback flips the mode switch; the free-memory fallback returns memory
// to the OS. localStore is the application's hook for promoting the local
// store to primary; nil makes it a logged no-op.
func Fallbacks(sw *Switch, localStore func(ctx context.Context) error, log *slog.Logger) engine.FallbackTable {
	if log == nil {
		log = slog.Default()
	}
	if localStore == nil {
		localStore = func(ctx context.Context) error {
			log.Debug("local store fallback not configured")
			return nil
		}
	}
	return engine.FallbackTable{
		domain.FallbackOfflineMode: func(ctx context.Context) error {
			sw.EnterDegradedMode("network unavailable")
			return nil
		},
		domain.FallbackLocalStore: localStore,
		domain.FallbackFreeMemory: func(ctx context.Context) error {
			debug.FreeOSMemory()
			return nil
		},
	}
}
