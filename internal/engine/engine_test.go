package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/notekeep/recovery/internal/core/domain"
)

// =============================================================================
// Mock collaborators
// =============================================================================

type mockPresenter struct {
	mu            sync.Mutex
	choices       [][]domain.Choice
	interventions []string
}

func (p *mockPresenter) PresentChoices(f domain.Failure, choices []domain.Choice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.choices = append(p.choices, choices)
}

func (p *mockPresenter) RequireIntervention(f domain.Failure, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interventions = append(p.interventions, message)
}

func (p *mockPresenter) interventionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.interventions)
}

func (p *mockPresenter) choiceCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.choices)
}

type mockRegistry struct {
	mu        sync.Mutex
	restarted []string
}

func (r *mockRegistry) Restart(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restarted = append(r.restarted, name)
	return nil
}

func (r *mockRegistry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.restarted...)
}

type mockHandle struct {
	mu       sync.Mutex
	contexts []domain.ErrorContext
	results  []error // consumed in order; nil-padded once exhausted
}

func (h *mockHandle) Retry(ctx context.Context, ec domain.ErrorContext) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contexts = append(h.contexts, ec)
	if len(h.contexts) <= len(h.results) {
		return h.results[len(h.contexts)-1]
	}
	return nil
}

func (h *mockHandle) calls() []domain.ErrorContext {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.ErrorContext(nil), h.contexts...)
}

type mockSink struct {
	mu     sync.Mutex
	events []domain.ErrorEvent
}

func (s *mockSink) Name() string { return "mock" }

func (s *mockSink) Record(ctx context.Context, ev domain.ErrorEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *mockSink) kinds() []domain.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Kind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Failure.Kind
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func testConfig() Config {
	return Config{
		MaxRetries:     3,
		BackoffBase:    1 * time.Millisecond,
		BackoffCeiling: 4 * time.Millisecond,
		HistorySize:    100,
	}
}

func startEngine(t *testing.T, cfg Config, deps Deps) *Engine {
	t.Helper()
	e, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	e.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		e.Stop(ctx)
	})
	return e
}

// =============================================================================
// Report flow
// =============================================================================

func TestEngine_ReportAppendsHistory(t *testing.T) {
	e := startEngine(t, testConfig(), Deps{})

	e.Report(domain.CaptureTimeout(time.Second), domain.NewErrorContext("capture", "grab", nil, nil))

	waitFor(t, func() bool { return e.HistorySize() == 1 }, "history append")

	snap := e.History()
	if snap[0].Failure.Kind != domain.KindCaptureTimeout {
		t.Errorf("unexpected kind in history: %s", snap[0].Failure.Kind)
	}
	if snap[0].Severity != domain.SeverityLow {
		t.Errorf("unexpected severity: %v", snap[0].Severity)
	}
}

func TestEngine_RetryChainThreading(t *testing.T) {
	handle := &mockHandle{results: []error{
		domain.SaveFailed("still failing"),
		domain.SaveFailed("still failing"),
		nil, // third retry succeeds
	}}
	e := startEngine(t, testConfig(), Deps{})

	e.Report(domain.SaveFailed("io error"), domain.NewErrorContext("store", "save_note", nil, handle))

	waitFor(t, func() bool { return len(handle.calls()) == 3 }, "three retry attempts")

	calls := handle.calls()
	for i, ec := range calls {
		if ec.RetryCount != i+1 {
			t.Errorf("attempt %d: retry count %d, want %d", i, ec.RetryCount, i+1)
		}
		if ec.Component != "store" || ec.Operation != "save_note" {
			t.Errorf("attempt %d: component/operation not preserved: %s/%s", i, ec.Component, ec.Operation)
		}
	}

	// The chain is finished: nothing left in flight.
	waitFor(t, func() bool { return e.InFlight() == 0 }, "operations drained")
	if e.HistorySize() != 3 {
		t.Errorf("expected 3 history events (one per failed report), got %d", e.HistorySize())
	}
}

func TestEngine_RetryCeilingThenIntervention(t *testing.T) {
	// The handle always fails with a network loss; after three retries
	// (each preceded by the offline-mode fallback) the user is asked to
	// intervene.
	handle := &mockHandle{results: []error{
		domain.NetworkUnavailable(),
		domain.NetworkUnavailable(),
		domain.NetworkUnavailable(),
	}}
	presenter := &mockPresenter{}

	fallbackRuns := 0
	var fbMu sync.Mutex
	fallbacks := FallbackTable{
		domain.FallbackOfflineMode: func(ctx context.Context) error {
			fbMu.Lock()
			fallbackRuns++
			fbMu.Unlock()
			return nil
		},
	}

	e := startEngine(t, testConfig(), Deps{Presenter: presenter, Fallbacks: fallbacks})

	e.Report(domain.NetworkUnavailable(), domain.NewErrorContext("sync", "push", nil, handle))

	waitFor(t, func() bool { return presenter.interventionCount() == 1 }, "intervention after exhaustion")

	if got := len(handle.calls()); got != 3 {
		t.Errorf("expected exactly 3 retries, got %d", got)
	}
	fbMu.Lock()
	if fallbackRuns != 3 {
		t.Errorf("expected offline-mode fallback before each retry, got %d runs", fallbackRuns)
	}
	fbMu.Unlock()
	waitFor(t, func() bool { return e.InFlight() == 0 }, "operations drained")
}

func TestEngine_SyncConflictPresentsThreeChoices(t *testing.T) {
	presenter := &mockPresenter{}
	e := startEngine(t, testConfig(), Deps{Presenter: presenter})

	ec := domain.NewErrorContext("sync", "merge_note", nil, nil)
	ec.RetryCount = 3
	e.Report(domain.SyncConflict("v1", "v2"), ec)

	waitFor(t, func() bool { return presenter.choiceCount() == 1 }, "choices presented")

	choices := presenter.choices[0]
	if len(choices) != 3 {
		t.Fatalf("expected 3 choices, got %d", len(choices))
	}
	hasMerge := false
	for _, c := range choices {
		if c.ID == domain.ChoiceMerge {
			hasMerge = true
		}
	}
	if !hasMerge {
		t.Error("missing merge choice")
	}
	waitFor(t, func() bool { return e.InFlight() == 0 }, "operation completed at hand-off")
}

func TestEngine_CorruptionNeverInvokesHandle(t *testing.T) {
	handle := &mockHandle{}
	presenter := &mockPresenter{}
	e := startEngine(t, testConfig(), Deps{Presenter: presenter})

	e.Report(domain.DataCorruption("Node", "X"), domain.NewErrorContext("store", "load", nil, handle))

	waitFor(t, func() bool { return presenter.choiceCount() == 1 }, "repair choices presented")
	if len(handle.calls()) != 0 {
		t.Error("corruption must never invoke the retry handle")
	}
}

func TestEngine_IndexCorruptedRestartsSearch(t *testing.T) {
	registry := &mockRegistry{}
	e := startEngine(t, testConfig(), Deps{Registry: registry})

	ec := domain.NewErrorContext("search", "query", nil, nil)
	ec.RetryCount = 3
	e.Report(domain.Failure{Kind: domain.KindIndexCorrupted}, ec)

	waitFor(t, func() bool { return len(registry.names()) == 1 }, "component restart")
	if registry.names()[0] != "search" {
		t.Errorf("expected search restart, got %q", registry.names()[0])
	}
}

func TestEngine_SilentHandling(t *testing.T) {
	presenter := &mockPresenter{}
	e := startEngine(t, testConfig(), Deps{Presenter: presenter})

	ec := domain.NewErrorContext("capture", "grab", nil, nil)
	ec.RetryCount = 3
	e.Report(domain.CaptureTimeout(time.Second), ec)

	waitFor(t, func() bool { return e.HistorySize() == 1 && e.InFlight() == 0 }, "silent completion")
	if presenter.interventionCount() != 0 || presenter.choiceCount() != 0 {
		t.Error("silent handling must not reach the presenter")
	}
}

// A burst larger than the command queue must drain: in-loop completions
// go straight to the tracker, so the loop never blocks posting to itself.
func TestEngine_BurstBeyondQueueSizeDrains(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 8
	e := startEngine(t, cfg, Deps{})

	const reports = 200
	go func() {
		for i := 0; i < reports; i++ {
			ec := domain.NewErrorContext("capture", "grab", nil, nil)
			ec.RetryCount = 3
			e.Report(domain.CaptureTimeout(time.Second), ec)
		}
	}()

	waitFor(t, func() bool {
		return e.HistorySize() == cfg.HistorySize && e.InFlight() == 0
	}, "burst of silent reports drained")
}

// =============================================================================
// Telemetry and events
// =============================================================================

func TestEngine_SinkReceivesOnlyQualifyingSeverities(t *testing.T) {
	sink := &mockSink{}
	e := startEngine(t, testConfig(), Deps{Sink: sink})

	ec := domain.NewErrorContext("test", "op", nil, nil)
	ec.RetryCount = 3 // exhausted, so no retries muddy the water
	e.Report(domain.CaptureTimeout(time.Second), ec) // low
	e.Report(domain.SaveFailed("io"), ec)            // high

	waitFor(t, func() bool { return len(sink.kinds()) == 1 }, "one telemetry event")
	// Give the low-severity event a chance to (incorrectly) arrive.
	time.Sleep(20 * time.Millisecond)

	kinds := sink.kinds()
	if len(kinds) != 1 || kinds[0] != domain.KindSaveFailed {
		t.Errorf("expected only save_failed in telemetry, got %v", kinds)
	}
}

func TestEngine_BusBroadcast(t *testing.T) {
	e := startEngine(t, testConfig(), Deps{})

	events, unsubscribe := e.Subscribe(4)
	defer unsubscribe()

	ec := domain.NewErrorContext("capture", "grab", nil, nil)
	ec.RetryCount = 3
	e.Report(domain.CaptureTimeout(time.Second), ec)

	select {
	case ev := <-events:
		if ev.Failure.Kind != domain.KindCaptureTimeout {
			t.Errorf("unexpected event kind: %s", ev.Failure.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received on the bus")
	}
}

func TestEngine_DefaultInstance(t *testing.T) {
	e := startEngine(t, testConfig(), Deps{})
	SetDefault(e)
	defer SetDefault(nil)

	ReportError(domain.KindClipboardAccessFailed, "capture", "paste", map[string]string{"source": "menu"})

	waitFor(t, func() bool { return e.HistorySize() == 1 }, "default engine report")

	snap := e.History()
	if snap[0].Context.RetryCount != 0 {
		t.Errorf("free-function report must carry retry count 0, got %d", snap[0].Context.RetryCount)
	}
	if snap[0].Context.Info["source"] != "menu" {
		t.Error("free-function report lost its info map")
	}
}

func TestEngine_StopCancelsScheduledRetries(t *testing.T) {
	handle := &mockHandle{results: []error{domain.SaveFailed("fail")}}
	cfg := testConfig()
	cfg.BackoffBase = 200 * time.Millisecond // leave the retry pending
	cfg.BackoffCeiling = time.Second

	e, err := New(cfg, Deps{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	e.Start()

	ec := domain.NewErrorContext("store", "save", nil, handle)
	ec = ec.NextAttempt() // retry count 1: plain delayed retry, no fallback shortcut
	e.Report(domain.SaveFailed("io"), ec)

	waitFor(t, func() bool { return e.HistorySize() == 1 }, "report processed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := len(handle.calls()); got != 0 {
		t.Errorf("scheduled retry ran after Stop: %d calls", got)
	}
}
