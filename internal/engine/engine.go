package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notekeep/recovery/internal/core/domain"
	"github.com/notekeep/recovery/internal/infra/telemetry"
)

// Config holds the engine's tunable constants. Zero values select the
// reference defaults.
type Config struct {
	MaxRetries     int           `yaml:"max_retries"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffCeiling time.Duration `yaml:"backoff_ceiling"`
	HistorySize    int           `yaml:"history_size"`
	QueueSize      int           `yaml:"queue_size"`
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 1 * time.Second
	}
	if c.BackoffCeiling <= 0 {
		c.BackoffCeiling = 30 * time.Second
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 100
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return c
}

// Deps are the engine's collaborators. Nil fields get no-op defaults so a
// partially wired engine (tests, early boot) still runs.
type Deps struct {
	Presenter Presenter
	Registry  ComponentRegistry
	Mode      ModeSwitch
	Fallbacks FallbackRunner
	Sink      telemetry.Sink
	Logger    *slog.Logger
}

// Engine turns reported failures into recovery actions and executes them.
// Decisions (history, policy, operation registration, scheduled retries)
// happen on one confined goroutine; Report marshals onto it. Operation
// completion goes straight to the mutex-guarded tracker so in-loop
// executor branches never post back onto their own command queue.
type Engine struct {
	policy  Policy
	history *History
	tracker *Tracker
	exec    *Executor
	bus     *Bus
	sink    telemetry.Sink
	log     *slog.Logger

	cmds    chan func()
	done    chan struct{}
	stopped chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once

	timerMu sync.Mutex
	timers  map[*time.Timer]struct{}
}

// New constructs an engine. The engine is inert until Start is called.
func New(cfg Config, deps Deps) (*Engine, error) {
	if err := domain.VerifyClassification(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{log: deps.Logger}
	}
	if deps.Registry == nil {
		deps.Registry = nopRegistry{}
	}
	if deps.Mode == nil {
		deps.Mode = &nopModeSwitch{}
	}
	if deps.Fallbacks == nil {
		deps.Fallbacks = FallbackTable{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		policy: Policy{
			MaxRetries: cfg.MaxRetries,
			Backoff: Backoff{
				Base:       cfg.BackoffBase,
				Multiplier: 2.0,
				Ceiling:    cfg.BackoffCeiling,
			},
		},
		history: NewHistory(cfg.HistorySize),
		tracker: NewTracker(),
		bus:     NewBus(),
		sink:    deps.Sink,
		log:     deps.Logger,
		cmds:    make(chan func(), cfg.QueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		baseCtx: ctx,
		cancel:  cancel,
		timers:  make(map[*time.Timer]struct{}),
	}

	e.history.SetReportHook(e.reportToSink)

	e.exec = &Executor{
		presenter: deps.Presenter,
		registry:  deps.Registry,
		mode:      deps.Mode,
		fallbacks: deps.Fallbacks,
		log:       deps.Logger,
		schedule:  e.scheduleAfter,
		complete:  e.completeOperation,
		reenter:   e.Report,
	}

	return e, nil
}

// Start launches the confined goroutine.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		go e.run()
	})
}

// Stop cancels scheduled retries and shuts the loop down. Waits for the
// loop to exit or ctx to expire.
func (e *Engine) Stop(ctx context.Context) error {
	e.stopOnce.Do(func() {
		e.timerMu.Lock()
		for t := range e.timers {
			t.Stop()
			delete(e.timers, t)
		}
		e.timerMu.Unlock()

		e.cancel()
		close(e.done)
	})

	select {
	case <-e.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) run() {
	defer close(e.stopped)
	for {
		select {
		case fn := <-e.cmds:
			fn()
		case <-e.done:
			return
		}
	}
}

// post marshals fn onto the confined goroutine. Posts after Stop are
// dropped.
func (e *Engine) post(fn func()) {
	select {
	case e.cmds <- fn:
	case <-e.done:
	}
}

// Report classifies the failure, records it, decides a recovery action,
// and executes it. Safe to call from any goroutine.
func (e *Engine) Report(f domain.Failure, ec domain.ErrorContext) {
	e.post(func() { e.handleReport(f, ec) })
}

// handleReport runs on the confined goroutine.
func (e *Engine) handleReport(f domain.Failure, ec domain.ErrorContext) {
	cls := domain.Classify(f.Kind)
	ev := domain.ErrorEvent{
		Failure:    f,
		Context:    ec,
		Severity:   cls.Severity,
		ReportedAt: time.Now(),
	}

	e.history.Append(ev)
	e.bus.Publish(ev)

	telemetry.ErrorsReported.WithLabelValues(string(f.Kind), cls.Severity.String()).Inc()
	telemetry.HistorySize.Set(float64(e.history.Len()))

	action := e.policy.Decide(f, ec)
	telemetry.ActionsDecided.WithLabelValues(action.Type.String()).Inc()

	op := &domain.RecoveryOperation{
		ID:        uuid.NewString(),
		Failure:   f,
		Action:    action,
		Context:   ec,
		StartedAt: time.Now(),
	}
	if err := e.tracker.Register(op); err != nil {
		// uuid collisions do not happen in practice; log and drop.
		e.log.Error("failed to register recovery operation", "id", op.ID, "error", err)
		return
	}
	telemetry.RecoveriesInFlight.Set(float64(e.tracker.InFlight()))

	e.log.Info("recovery decided",
		"kind", f.Kind,
		"severity", cls.Severity.String(),
		"component", ec.Component,
		"operation", ec.Operation,
		"retry_count", ec.RetryCount,
		"action", action.Type.String(),
	)

	e.exec.Execute(e.baseCtx, op)
}

// completeOperation deregisters an operation. It runs inline rather than
// posting: the tracker is mutex-guarded, and several executor branches
// complete while already on the confined goroutine, where a self-post
// against a full command queue would wedge the loop. Inline completion
// also keeps the ordering guarantee for retries: the retry goroutine
// completes before it posts the re-report.
func (e *Engine) completeOperation(id string) {
	op := e.tracker.Complete(id)
	telemetry.RecoveriesInFlight.Set(float64(e.tracker.InFlight()))
	if op != nil {
		telemetry.RecoveryDuration.
			WithLabelValues(op.Action.Type.String()).
			Observe(time.Since(op.StartedAt).Seconds())
	}
}

// scheduleAfter runs fn on the confined goroutine after d elapses. Timers
// are tracked so Stop can cancel pending retries.
func (e *Engine) scheduleAfter(d time.Duration, fn func()) {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		e.timerMu.Lock()
		delete(e.timers, t)
		e.timerMu.Unlock()
		e.post(fn)
	})
	e.timerMu.Lock()
	e.timers[t] = struct{}{}
	e.timerMu.Unlock()
}

// reportToSink forwards a qualifying event to the telemetry sink,
// fire-and-forget.
func (e *Engine) reportToSink(ev domain.ErrorEvent) {
	if e.sink == nil {
		return
	}
	go func() {
		if err := e.sink.Record(e.baseCtx, ev); err != nil {
			telemetry.SinkErrors.WithLabelValues(e.sink.Name()).Inc()
			e.log.Warn("telemetry delivery failed", "sink", e.sink.Name(), "error", err)
		}
	}()
}

// Diagnostics accessors. All return consistent snapshots and are safe
// from any goroutine.

// InFlight returns the number of registered recovery operations.
func (e *Engine) InFlight() int { return e.tracker.InFlight() }

// HistorySize returns the number of retained history events.
func (e *Engine) HistorySize() int { return e.history.Len() }

// History returns the retained events, most recent first.
func (e *Engine) History() []domain.ErrorEvent { return e.history.Snapshot() }

// Frequency returns the count of retained events per kind.
func (e *Engine) Frequency() map[domain.Kind]int { return e.history.Frequency() }

// Operations returns copies of the in-flight recovery operations.
func (e *Engine) Operations() []domain.RecoveryOperation { return e.tracker.Snapshot() }

// Subscribe registers an error-event observer.
func (e *Engine) Subscribe(buffer int) (<-chan domain.ErrorEvent, func()) {
	return e.bus.Subscribe(buffer)
}

// No-op collaborator defaults.

type nopPresenter struct{ log *slog.Logger }

func (p nopPresenter) PresentChoices(f domain.Failure, choices []domain.Choice) {
	p.log.Warn("no presenter wired, dropping user choice", "kind", f.Kind, "options", len(choices))
}

func (p nopPresenter) RequireIntervention(f domain.Failure, message string) {
	p.log.Warn("no presenter wired, dropping intervention", "kind", f.Kind, "message", message)
}

type nopRegistry struct{}

func (nopRegistry) Restart(context.Context, string) error { return nil }

type nopModeSwitch struct {
	mu       sync.Mutex
	degraded bool
}

func (m *nopModeSwitch) EnterDegradedMode(string) {
	m.mu.Lock()
	m.degraded = true
	m.mu.Unlock()
}

func (m *nopModeSwitch) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}
