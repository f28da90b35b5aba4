package domain

import (
	"fmt"
	"time"
)

// Group classifies error kinds by the subsystem that produces them.
type Group string

const (
	GroupContent     Group = "content"
	GroupPersistence Group = "persistence"
	GroupSync        Group = "sync"
	GroupCapture     Group = "capture"
	GroupSearch      Group = "search"
	GroupResource    Group = "resource"
	GroupSystem      Group = "system"
)

// Kind identifies one member of the closed failure taxonomy. Subsystems
// translate raw platform errors into a Kind before reporting; the engine
// never sees untranslated errors.
type Kind string

const (
	// Content processing
	KindOCRFailed          Kind = "ocr_failed"
	KindAIProcessingFailed Kind = "ai_processing_failed"
	KindContentTooLarge    Kind = "content_too_large"
	KindUnsupportedFormat  Kind = "unsupported_format"

	// Persistence
	KindSaveFailed      Kind = "save_failed"
	KindFetchFailed     Kind = "fetch_failed"
	KindDataCorruption  Kind = "data_corruption"
	KindMigrationFailed Kind = "migration_failed"

	// Synchronization
	KindNetworkUnavailable   Kind = "network_unavailable"
	KindServiceUnavailable   Kind = "service_unavailable"
	KindSyncConflict         Kind = "sync_conflict"
	KindQuotaExceeded        Kind = "quota_exceeded"
	KindSyncPermissionDenied Kind = "sync_permission_denied"

	// Capture
	KindClipboardAccessFailed   Kind = "clipboard_access_failed"
	KindCaptureTimeout          Kind = "capture_timeout"
	KindCapturePermissionDenied Kind = "capture_permission_denied"

	// Search
	KindIndexCorrupted Kind = "index_corrupted"
	KindIndexingFailed Kind = "indexing_failed"

	// Resource
	KindMemoryPressure Kind = "memory_pressure"
	KindDiskSpaceLow   Kind = "disk_space_low"

	// System
	KindBackgroundTaskExpired Kind = "background_task_expired"
	KindServiceTimeout        Kind = "service_timeout"
)

// AllKinds lists every declared kind. The classification table is verified
// against this set at startup.
var AllKinds = []Kind{
	KindOCRFailed,
	KindAIProcessingFailed,
	KindContentTooLarge,
	KindUnsupportedFormat,
	KindSaveFailed,
	KindFetchFailed,
	KindDataCorruption,
	KindMigrationFailed,
	KindNetworkUnavailable,
	KindServiceUnavailable,
	KindSyncConflict,
	KindQuotaExceeded,
	KindSyncPermissionDenied,
	KindClipboardAccessFailed,
	KindCaptureTimeout,
	KindCapturePermissionDenied,
	KindIndexCorrupted,
	KindIndexingFailed,
	KindMemoryPressure,
	KindDiskSpaceLow,
	KindBackgroundTaskExpired,
	KindServiceTimeout,
}

// Group returns the taxonomy group a kind belongs to.
func (k Kind) Group() Group {
	switch k {
	case KindOCRFailed, KindAIProcessingFailed, KindContentTooLarge, KindUnsupportedFormat:
		return GroupContent
	case KindSaveFailed, KindFetchFailed, KindDataCorruption, KindMigrationFailed:
		return GroupPersistence
	case KindNetworkUnavailable, KindServiceUnavailable, KindSyncConflict,
		KindQuotaExceeded, KindSyncPermissionDenied:
		return GroupSync
	case KindClipboardAccessFailed, KindCaptureTimeout, KindCapturePermissionDenied:
		return GroupCapture
	case KindIndexCorrupted, KindIndexingFailed:
		return GroupSearch
	case KindMemoryPressure, KindDiskSpaceLow:
		return GroupResource
	default:
		return GroupSystem
	}
}

// Failure is a classified failure constructed at the failure site. Fields
// beyond Kind carry kind-specific diagnostics and stay zero when unused.
// Failures are immutable once constructed and compare by value.
type Failure struct {
	Kind          Kind
	Reason        string
	Entity        string
	RecordID      string
	Service       string
	Format        string
	Resource      string
	LocalVersion  string
	RemoteVersion string
	FromVersion   string
	ToVersion     string
	Bytes         int64
	Timeout       time.Duration
}

// Error implements the error interface so failures can travel through
// ordinary error returns back into Report.
func (f Failure) Error() string {
	if f.Reason != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
	}
	return string(f.Kind)
}

// Constructors for kinds with payloads. Zero-payload kinds are reported
// as Failure{Kind: ...} directly.

func OCRFailed(reason string) Failure {
	return Failure{Kind: KindOCRFailed, Reason: reason}
}

func AIProcessingFailed(reason string) Failure {
	return Failure{Kind: KindAIProcessingFailed, Reason: reason}
}

func ContentTooLarge(bytes int64) Failure {
	return Failure{Kind: KindContentTooLarge, Bytes: bytes}
}

func UnsupportedFormat(format string) Failure {
	return Failure{Kind: KindUnsupportedFormat, Format: format}
}

func SaveFailed(reason string) Failure {
	return Failure{Kind: KindSaveFailed, Reason: reason}
}

func FetchFailed(reason string) Failure {
	return Failure{Kind: KindFetchFailed, Reason: reason}
}

func DataCorruption(entity, recordID string) Failure {
	return Failure{Kind: KindDataCorruption, Entity: entity, RecordID: recordID}
}

func MigrationFailed(fromVersion, toVersion string) Failure {
	return Failure{Kind: KindMigrationFailed, FromVersion: fromVersion, ToVersion: toVersion}
}

func NetworkUnavailable() Failure {
	return Failure{Kind: KindNetworkUnavailable}
}

func ServiceUnavailable(service string) Failure {
	return Failure{Kind: KindServiceUnavailable, Service: service}
}

func SyncConflict(localVersion, remoteVersion string) Failure {
	return Failure{Kind: KindSyncConflict, LocalVersion: localVersion, RemoteVersion: remoteVersion}
}

func PermissionDenied(kind Kind, resource string) Failure {
	return Failure{Kind: kind, Resource: resource}
}

func CaptureTimeout(timeout time.Duration) Failure {
	return Failure{Kind: KindCaptureTimeout, Timeout: timeout}
}

func IndexingFailed(reason string) Failure {
	return Failure{Kind: KindIndexingFailed, Reason: reason}
}

func DiskSpaceLow(bytesAvailable int64) Failure {
	return Failure{Kind: KindDiskSpaceLow, Bytes: bytesAvailable}
}

func ServiceTimeout(service string, timeout time.Duration) Failure {
	return Failure{Kind: KindServiceTimeout, Service: service, Timeout: timeout}
}
