package domain

import "time"

// ActionType tags the closed set of recovery actions.
type ActionType int

const (
	ActionRetry ActionType = iota
	ActionRetryWithFallback
	ActionPresentUserChoice
	ActionHandleSilently
	ActionRequireUserIntervention
	ActionRestartComponent
	ActionEnterDegradedMode
)

// String returns the string representation of the action type.
func (t ActionType) String() string {
	switch t {
	case ActionRetry:
		return "retry"
	case ActionRetryWithFallback:
		return "retry_with_fallback"
	case ActionPresentUserChoice:
		return "present_user_choice"
	case ActionHandleSilently:
		return "handle_silently"
	case ActionRequireUserIntervention:
		return "require_user_intervention"
	case ActionRestartComponent:
		return "restart_component"
	case ActionEnterDegradedMode:
		return "enter_degraded_mode"
	default:
		return "unknown"
	}
}

// Fallback names a known fallback operation executed before a retry.
// Fallbacks are dispatched through a lookup table configured at the
// composition root rather than captured closures.
type Fallback string

const (
	FallbackOfflineMode Fallback = "offline_mode"
	FallbackLocalStore  Fallback = "local_store"
	FallbackFreeMemory  Fallback = "free_memory"
)

// Choice is one option presented to the user. The UI routes the selected
// ID back through its own machinery; the engine does not await the
// resolution.
type Choice struct {
	ID          string
	Label       string
	Destructive bool
}

// Choice IDs produced by the policy engine.
const (
	ChoiceKeepLocal         = "keep_local"
	ChoiceKeepRemote        = "keep_remote"
	ChoiceMerge             = "merge"
	ChoiceRepair            = "repair"
	ChoiceRestoreFromBackup = "restore_from_backup"
	ChoiceResetData         = "reset_data"
)

// RecoveryAction is the decided response to a classified failure. It is
// produced once per report and consumed exactly once by the executor.
// Which payload fields are meaningful is selected by Type.
type RecoveryAction struct {
	Type      ActionType
	Delay     time.Duration // ActionRetry
	Fallback  Fallback      // ActionRetryWithFallback
	Choices   []Choice      // ActionPresentUserChoice
	Message   string        // ActionRequireUserIntervention
	Component string        // ActionRestartComponent
}
