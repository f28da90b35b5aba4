package domain

import "fmt"

// Classification carries the policy-relevant attributes of a kind.
type Classification struct {
	Severity           Severity
	Retryable          bool
	UserMessage        string
	RecoverySuggestion string
}

// classifications maps every declared kind to its classification. Kinds
// missing an entry fall back to defaultClassification, so lookups are
// total even if the table drifts; VerifyClassification catches the drift
// at startup.
var classifications = map[Kind]Classification{
	KindOCRFailed: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "Text recognition failed for this capture.",
		RecoverySuggestion: "Try capturing the content again with better lighting or resolution.",
	},
	KindAIProcessingFailed: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "Content analysis is temporarily unavailable.",
		RecoverySuggestion: "The capture was saved and will be analyzed later.",
	},
	KindContentTooLarge: {
		Severity:           SeverityMedium,
		Retryable:          false,
		UserMessage:        "This content is too large to process.",
		RecoverySuggestion: "Split the content into smaller captures.",
	},
	KindUnsupportedFormat: {
		Severity:           SeverityMedium,
		Retryable:          false,
		UserMessage:        "This content format is not supported.",
		RecoverySuggestion: "Convert the content to a supported format and capture again.",
	},
	KindSaveFailed: {
		Severity:           SeverityHigh,
		Retryable:          true,
		UserMessage:        "Your changes could not be saved.",
		RecoverySuggestion: "Check available storage and try again.",
	},
	KindFetchFailed: {
		Severity:           SeverityHigh,
		Retryable:          true,
		UserMessage:        "Your data could not be loaded.",
		RecoverySuggestion: "Restart the app; if the problem persists, restore from backup.",
	},
	KindDataCorruption: {
		Severity:           SeverityCritical,
		Retryable:          false,
		UserMessage:        "Stored data is damaged and cannot be read.",
		RecoverySuggestion: "Repair the database or restore from a backup.",
	},
	KindMigrationFailed: {
		Severity:           SeverityCritical,
		Retryable:          false,
		UserMessage:        "The data store could not be upgraded to the new version.",
		RecoverySuggestion: "Restore from a backup made before the update.",
	},
	KindNetworkUnavailable: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "No network connection.",
		RecoverySuggestion: "Your changes are kept locally and will sync when you are back online.",
	},
	KindServiceUnavailable: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "The sync service is temporarily unavailable.",
		RecoverySuggestion: "Work continues locally; sync will resume automatically.",
	},
	KindSyncConflict: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "This item was changed on another device.",
		RecoverySuggestion: "Choose which version to keep.",
	},
	KindQuotaExceeded: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "Your cloud storage is full.",
		RecoverySuggestion: "Free up cloud storage or upgrade your plan.",
	},
	KindSyncPermissionDenied: {
		Severity:           SeverityMedium,
		Retryable:          false,
		UserMessage:        "Sync is not permitted for this account.",
		RecoverySuggestion: "Sign in to your cloud account and grant access in Settings.",
	},
	KindClipboardAccessFailed: {
		Severity:           SeverityLow,
		Retryable:          true,
		UserMessage:        "The clipboard could not be read.",
		RecoverySuggestion: "Copy the content again.",
	},
	KindCaptureTimeout: {
		Severity:           SeverityLow,
		Retryable:          true,
		UserMessage:        "The capture took too long and was cancelled.",
		RecoverySuggestion: "Try again with a smaller selection.",
	},
	KindCapturePermissionDenied: {
		Severity:           SeverityMedium,
		Retryable:          false,
		UserMessage:        "Capture permission has not been granted.",
		RecoverySuggestion: "Allow capture access in Settings.",
	},
	KindIndexCorrupted: {
		Severity:           SeverityHigh,
		Retryable:          true,
		UserMessage:        "The search index is damaged.",
		RecoverySuggestion: "The index will be rebuilt automatically.",
	},
	KindIndexingFailed: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "New content could not be added to search.",
		RecoverySuggestion: "Indexing will be retried in the background.",
	},
	KindMemoryPressure: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "The app is low on memory.",
		RecoverySuggestion: "Close other apps and try again.",
	},
	KindDiskSpaceLow: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "The device is low on storage.",
		RecoverySuggestion: "Free up space on this device.",
	},
	KindBackgroundTaskExpired: {
		Severity:           SeverityMedium,
		Retryable:          true,
		UserMessage:        "A background task ran out of time.",
		RecoverySuggestion: "The task will resume next time the app is active.",
	},
	KindServiceTimeout: {
		Severity:           SeverityLow,
		Retryable:          true,
		UserMessage:        "The operation timed out.",
		RecoverySuggestion: "Try again in a moment.",
	},
}

// defaultClassification covers declared-but-unlisted kinds: medium
// severity, retryable, generic message.
var defaultClassification = Classification{
	Severity:    SeverityMedium,
	Retryable:   true,
	UserMessage: "Something went wrong.",
}

// nonRetryable kinds are never retried regardless of attempt count, even
// if the table is edited to say otherwise.
var nonRetryable = map[Kind]bool{
	KindSyncPermissionDenied:    true,
	KindCapturePermissionDenied: true,
	KindDataCorruption:          true,
	KindMigrationFailed:         true,
}

// Classify returns the classification for k. The lookup is total: unknown
// kinds get the default classification with the denylist still applied.
func Classify(k Kind) Classification {
	c, ok := classifications[k]
	if !ok {
		c = defaultClassification
	}
	if nonRetryable[k] {
		c.Retryable = false
	}
	return c
}

// SeverityOf returns the severity for k.
func SeverityOf(k Kind) Severity {
	return Classify(k).Severity
}

// IsRetryable reports whether automatic re-attempt is permitted for k.
func IsRetryable(k Kind) bool {
	return Classify(k).Retryable
}

// IsPermissionDenied reports whether k is one of the permission-denied
// variants, which always require user intervention.
func IsPermissionDenied(k Kind) bool {
	return k == KindSyncPermissionDenied || k == KindCapturePermissionDenied
}

// VerifyClassification checks that every declared kind has an explicit
// entry with a user message. Call it once at startup; a failure indicates
// a kind was added without updating the table.
func VerifyClassification() error {
	for _, k := range AllKinds {
		c, ok := classifications[k]
		if !ok {
			return fmt.Errorf("kind %q has no classification entry", k)
		}
		if c.UserMessage == "" {
			return fmt.Errorf("kind %q has no user message", k)
		}
	}
	return nil
}
