package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared across modules.
const (
	ErrCodeUnknown         ErrorCode = "COMMON_000"
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeNotFound        ErrorCode = "COMMON_002"
	ErrCodeConflict        ErrorCode = "COMMON_003"
	ErrCodeTimeout         ErrorCode = "COMMON_004"
	ErrCodeValidation      ErrorCode = "COMMON_005"
	ErrCodeSerialization   ErrorCode = "COMMON_006"
	ErrCodeDatabaseError   ErrorCode = "COMMON_007"
	ErrCodeCacheError      ErrorCode = "COMMON_008"
	ErrCodeExternalService ErrorCode = "COMMON_009"

	// CodeOK is the sentinel returned by GetCode for a nil error.
	CodeOK ErrorCode = "OK"
)

// Ingest module error codes.  These carry the upstream-portal failure
// taxonomy: auth failures are fatal and operator-visible, not-found is fatal
// for the single case, unavailability is retried and then surfaced as
// transient.
const (
	ErrCodeIngestAuth        ErrorCode = "ING_001"
	ErrCodeCaseNotFound      ErrorCode = "ING_002"
	ErrCodeIngestUnavailable ErrorCode = "ING_003"
	ErrCodeIngestUnexpected  ErrorCode = "ING_004"
)

// Classification module error codes.
const (
	// ErrCodeClassificationDegraded marks an AI-path failure that fell back
	// to the heuristic result.  It is logged, never propagated to callers.
	ErrCodeClassificationDegraded ErrorCode = "CLS_001"
	ErrCodeAIResponseInvalid      ErrorCode = "CLS_002"
)

// Synchronizer module error codes.
const (
	// ErrCodeSyncFailed means the sync transaction aborted; no partial
	// party replacement or act upsert survives.
	ErrCodeSyncFailed ErrorCode = "SYNC_001"
	ErrCodeActNotFound ErrorCode = "SYNC_002"
)

// Notification module error codes.
const (
	ErrCodeNotificationNotFound ErrorCode = "NTF_001"
	ErrCodeRuleInvalid          ErrorCode = "NTF_002"
)

// Retryable reports whether the code represents a transient condition that a
// caller may retry.  Everything else is fail-fast.
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrCodeIngestUnavailable, ErrCodeTimeout, ErrCodeCacheError:
		return true
	default:
		return false
	}
}
