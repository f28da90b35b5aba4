package engine

import (
	"testing"
	"time"

	"github.com/notekeep/recovery/internal/core/domain"
)

func ctxAt(retryCount int) domain.ErrorContext {
	ec := domain.NewErrorContext("sync", "push_changes", nil, nil)
	ec.RetryCount = retryCount
	return ec
}

// =============================================================================
// Tier 1: retry-eligible
// =============================================================================

func TestPolicy_RetryWithBackoffDelay(t *testing.T) {
	p := DefaultPolicy()

	for attempt := 0; attempt < p.MaxRetries; attempt++ {
		action := p.Decide(domain.SaveFailed("io error"), ctxAt(attempt))
		if action.Type != domain.ActionRetry {
			t.Fatalf("attempt %d: expected retry, got %s", attempt, action.Type)
		}
		if want := p.Backoff.Delay(attempt); action.Delay != want {
			t.Errorf("attempt %d: delay %v, want %v", attempt, action.Delay, want)
		}
	}
}

func TestPolicy_FallbackBeforeRetry(t *testing.T) {
	p := DefaultPolicy()

	action := p.Decide(domain.NetworkUnavailable(), ctxAt(0))
	if action.Type != domain.ActionRetryWithFallback {
		t.Fatalf("expected retry_with_fallback, got %s", action.Type)
	}
	if action.Fallback != domain.FallbackOfflineMode {
		t.Errorf("expected offline_mode fallback, got %s", action.Fallback)
	}

	action = p.Decide(domain.ServiceUnavailable("cloud"), ctxAt(2))
	if action.Type != domain.ActionRetryWithFallback {
		t.Fatalf("expected retry_with_fallback, got %s", action.Type)
	}
	if action.Fallback != domain.FallbackLocalStore {
		t.Errorf("expected local_store fallback, got %s", action.Fallback)
	}
}

func TestPolicy_NetworkExhaustedRequiresIntervention(t *testing.T) {
	p := DefaultPolicy()

	// Scenario: network loss retries with fallback until the ceiling,
	// then surfaces to the user.
	action := p.Decide(domain.NetworkUnavailable(), ctxAt(3))
	if action.Type != domain.ActionRequireUserIntervention {
		t.Fatalf("expected require_user_intervention at retry count 3, got %s", action.Type)
	}
	if action.Message == "" {
		t.Error("intervention message is empty")
	}
}

// =============================================================================
// Tier 2: kind dispatch
// =============================================================================

func TestPolicy_SyncConflictChoices(t *testing.T) {
	p := DefaultPolicy()

	// Retryable tier still applies below the ceiling.
	if a := p.Decide(domain.SyncConflict("v1", "v2"), ctxAt(0)); a.Type != domain.ActionRetry {
		t.Fatalf("expected retry below ceiling, got %s", a.Type)
	}

	action := p.Decide(domain.SyncConflict("v1", "v2"), ctxAt(3))
	if action.Type != domain.ActionPresentUserChoice {
		t.Fatalf("expected present_user_choice, got %s", action.Type)
	}
	if len(action.Choices) != 3 {
		t.Fatalf("expected exactly 3 choices, got %d", len(action.Choices))
	}

	ids := map[string]bool{}
	for _, c := range action.Choices {
		ids[c.ID] = true
		if c.Destructive {
			t.Errorf("sync conflict choice %q must not be destructive", c.ID)
		}
	}
	for _, want := range []string{domain.ChoiceKeepLocal, domain.ChoiceKeepRemote, domain.ChoiceMerge} {
		if !ids[want] {
			t.Errorf("missing choice %q", want)
		}
	}
}

func TestPolicy_DataCorruptionNeverRetries(t *testing.T) {
	p := DefaultPolicy()

	for _, retryCount := range []int{0, 1, 3, 10} {
		action := p.Decide(domain.DataCorruption("Node", "X"), ctxAt(retryCount))
		if action.Type == domain.ActionRetry || action.Type == domain.ActionRetryWithFallback {
			t.Fatalf("retry count %d: corruption must never retry, got %s", retryCount, action.Type)
		}
		if action.Type != domain.ActionPresentUserChoice {
			t.Fatalf("retry count %d: expected present_user_choice, got %s", retryCount, action.Type)
		}
		if len(action.Choices) != 3 {
			t.Fatalf("expected exactly 3 choices, got %d", len(action.Choices))
		}

		var reset *domain.Choice
		for i := range action.Choices {
			if action.Choices[i].ID == domain.ChoiceResetData {
				reset = &action.Choices[i]
			}
		}
		if reset == nil {
			t.Fatal("missing reset_data choice")
		}
		if !reset.Destructive {
			t.Error("reset_data choice must be marked destructive")
		}
	}
}

func TestPolicy_NonRetryableNeverRetry(t *testing.T) {
	p := DefaultPolicy()

	kinds := []domain.Failure{
		domain.DataCorruption("Note", "n1"),
		domain.MigrationFailed("3", "4"),
		domain.PermissionDenied(domain.KindSyncPermissionDenied, "icloud"),
		domain.PermissionDenied(domain.KindCapturePermissionDenied, "screen"),
	}
	for _, f := range kinds {
		for _, retryCount := range []int{0, 1, 5} {
			action := p.Decide(f, ctxAt(retryCount))
			if action.Type == domain.ActionRetry || action.Type == domain.ActionRetryWithFallback {
				t.Errorf("%s at retry count %d: got retry action %s", f.Kind, retryCount, action.Type)
			}
		}
	}
}

func TestPolicy_PermissionDeniedIntervention(t *testing.T) {
	p := DefaultPolicy()

	action := p.Decide(domain.PermissionDenied(domain.KindCapturePermissionDenied, "screen"), ctxAt(0))
	if action.Type != domain.ActionRequireUserIntervention {
		t.Fatalf("expected require_user_intervention, got %s", action.Type)
	}
	if action.Message != domain.Classify(domain.KindCapturePermissionDenied).RecoverySuggestion {
		t.Errorf("intervention message should be the recovery suggestion, got %q", action.Message)
	}
}

func TestPolicy_MemoryPressureBypassesGate(t *testing.T) {
	p := DefaultPolicy()

	// At the ceiling, memory pressure is still granted one more attempt
	// after the free-memory fallback.
	action := p.Decide(domain.Failure{Kind: domain.KindMemoryPressure}, ctxAt(3))
	if action.Type != domain.ActionRetryWithFallback {
		t.Fatalf("expected retry_with_fallback at retry count 3, got %s", action.Type)
	}
	if action.Fallback != domain.FallbackFreeMemory {
		t.Errorf("expected free_memory fallback, got %s", action.Fallback)
	}

	// Beyond the extra attempt it degrades to the severity default.
	action = p.Decide(domain.Failure{Kind: domain.KindMemoryPressure}, ctxAt(4))
	if action.Type != domain.ActionRequireUserIntervention {
		t.Errorf("expected require_user_intervention at retry count 4, got %s", action.Type)
	}
}

func TestPolicy_IndexCorruptedRestartsSearch(t *testing.T) {
	p := DefaultPolicy()

	action := p.Decide(domain.Failure{Kind: domain.KindIndexCorrupted}, ctxAt(3))
	if action.Type != domain.ActionRestartComponent {
		t.Fatalf("expected restart_component, got %s", action.Type)
	}
	if action.Component != "search" {
		t.Errorf("expected component search, got %q", action.Component)
	}
}

func TestPolicy_LowSeverityHandledSilently(t *testing.T) {
	p := DefaultPolicy()

	action := p.Decide(domain.CaptureTimeout(5*time.Second), ctxAt(3))
	if action.Type != domain.ActionHandleSilently {
		t.Errorf("expected handle_silently for exhausted low-severity kind, got %s", action.Type)
	}
}

func TestPolicy_RetryCeiling(t *testing.T) {
	p := DefaultPolicy()

	// Count the retry decisions one logical chain can collect.
	retries := 0
	for attempt := 0; attempt < 20; attempt++ {
		action := p.Decide(domain.SaveFailed("io"), ctxAt(attempt))
		if action.Type == domain.ActionRetry || action.Type == domain.ActionRetryWithFallback {
			retries++
		}
	}
	if retries != p.MaxRetries {
		t.Errorf("expected exactly %d retry decisions, got %d", p.MaxRetries, retries)
	}
}
