package engine

import (
	"github.com/notekeep/recovery/internal/core/domain"
)

// Policy decides the recovery action for a classified failure. Decisions
// are pure: the same failure and context always produce the same action.
type Policy struct {
	// MaxRetries is the retry-count ceiling for one logical failure chain.
	MaxRetries int
	Backoff    Backoff
}

// DefaultPolicy returns the reference constants: 3 retries, default
// backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		Backoff:    DefaultBackoff(),
	}
}

// Decide evaluates two tiers in order.
//
// Tier 1 (retry-eligible): retryable kinds under the retry ceiling get a
// retry, with a fallback first for kinds that have one (service
// unavailable switches to the local store, network loss switches to
// offline mode).
//
// Tier 2 (exhausted or non-retryable): kind-specific dispatch, then
// severity decides between user intervention and silent handling.
func (p Policy) Decide(f domain.Failure, ec domain.ErrorContext) domain.RecoveryAction {
	cls := domain.Classify(f.Kind)

	if cls.Retryable && ec.RetryCount < p.MaxRetries {
		if fb, ok := retryFallbacks[f.Kind]; ok {
			return domain.RecoveryAction{Type: domain.ActionRetryWithFallback, Fallback: fb}
		}
		return domain.RecoveryAction{
			Type:  domain.ActionRetry,
			Delay: p.Backoff.Delay(ec.RetryCount),
		}
	}

	switch {
	case f.Kind == domain.KindSyncConflict:
		return domain.RecoveryAction{
			Type:    domain.ActionPresentUserChoice,
			Choices: syncConflictChoices(),
		}

	case domain.IsPermissionDenied(f.Kind):
		return domain.RecoveryAction{
			Type:    domain.ActionRequireUserIntervention,
			Message: cls.RecoverySuggestion,
		}

	case f.Kind == domain.KindDataCorruption:
		return domain.RecoveryAction{
			Type:    domain.ActionPresentUserChoice,
			Choices: corruptionChoices(),
		}

	case f.Kind == domain.KindMemoryPressure && ec.RetryCount <= p.MaxRetries:
		// Memory pressure bypasses the normal retry gate: after freeing
		// resources the operation is granted exactly one attempt beyond
		// the ceiling, then falls through like any other kind.
		return domain.RecoveryAction{
			Type:     domain.ActionRetryWithFallback,
			Fallback: domain.FallbackFreeMemory,
		}

	case f.Kind == domain.KindIndexCorrupted:
		return domain.RecoveryAction{
			Type:      domain.ActionRestartComponent,
			Component: "search",
		}
	}

	if cls.Severity.RequiresUserNotification() {
		return domain.RecoveryAction{
			Type:    domain.ActionRequireUserIntervention,
			Message: cls.UserMessage,
		}
	}
	return domain.RecoveryAction{Type: domain.ActionHandleSilently}
}

// retryFallbacks lists the kinds with a fallback-before-retry rule.
var retryFallbacks = map[domain.Kind]domain.Fallback{
	domain.KindServiceUnavailable: domain.FallbackLocalStore,
	domain.KindNetworkUnavailable: domain.FallbackOfflineMode,
}

func syncConflictChoices() []domain.Choice {
	return []domain.Choice{
		{ID: domain.ChoiceKeepLocal, Label: "Keep this device's version"},
		{ID: domain.ChoiceKeepRemote, Label: "Keep the other device's version"},
		{ID: domain.ChoiceMerge, Label: "Merge both versions"},
	}
}

func corruptionChoices() []domain.Choice {
	return []domain.Choice{
		{ID: domain.ChoiceRepair, Label: "Repair the database"},
		{ID: domain.ChoiceRestoreFromBackup, Label: "Restore from backup"},
		{ID: domain.ChoiceResetData, Label: "Erase and start over", Destructive: true},
	}
}
