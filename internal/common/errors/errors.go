// Package errors provides standardized error handling for the search subsystem.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Input validation (surfaced to callers)
	ErrCodeInvalidLimit        ErrorCode = "INVALID_LIMIT"
	ErrCodeInvalidPage         ErrorCode = "INVALID_PAGE"
	ErrCodeInvalidSortMode     ErrorCode = "INVALID_SORT_MODE"
	ErrCodeInvalidWeightString ErrorCode = "INVALID_WEIGHT_STRING"
	ErrCodeInvalidWeights      ErrorCode = "INVALID_WEIGHTS"
	ErrCodeMissingTenant       ErrorCode = "MISSING_TENANT"
	ErrCodeRequestInvalid      ErrorCode = "REQUEST_INVALID"

	// Datastore (recovered via the mirror fallback)
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeSearchTimeout    ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeQueryFailed      ErrorCode = "QUERY_FAILED"
	ErrCodeMirrorEmpty      ErrorCode = "MIRROR_EMPTY"

	// Cache (recovered via the in-process backend)
	ErrCodeCacheBackendFailed ErrorCode = "CACHE_BACKEND_FAILED"

	// Fuzzy index (swallowed; fuzzy stage yields no matches)
	ErrCodeFuzzyBuildFailed ErrorCode = "FUZZY_INDEX_BUILD_FAILED"
	ErrCodeQueryTooShort    ErrorCode = "QUERY_TOO_SHORT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidLimitError creates a non-retryable validation error for a limit
// above the configured maximum. Requests are rejected, never clamped.
func NewInvalidLimitError(limit, maxLimit int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidLimit,
		Message:   "Requested page size exceeds the configured maximum",
		Details:   fmt.Sprintf("limit: %d, max: %d", limit, maxLimit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPageError creates a non-retryable validation error.
func NewInvalidPageError(page int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPage,
		Message:   "Page numbers are 1-based",
		Details:   fmt.Sprintf("page: %d", page),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidSortModeError creates a non-retryable validation error.
func NewInvalidSortModeError(sort string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSortMode,
		Message:   "Unsupported sort mode",
		Details:   fmt.Sprintf("sort: %s", sort),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidWeightStringError creates a non-retryable weight codec error.
func NewInvalidWeightStringError(raw string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidWeightString,
		Message:   "Malformed weight vector encoding",
		Details:   fmt.Sprintf("value: %q", raw),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidWeightsError creates a non-retryable weight validation error.
func NewInvalidWeightsError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidWeights,
		Message:   "Weight components must be finite non-negative numbers",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingTenantError creates a non-retryable validation error.
func NewMissingTenantError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingTenant,
		Message:   "Tenant is required",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequestInvalidError creates a non-retryable validation error with
// field-level details from the schema validator.
func NewRequestInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestInvalid,
		Message:   "Search request failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreUnavailableError creates a retryable datastore error.
func NewStoreUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "Catalog store unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable timeout error.
func NewSearchTimeoutError(budget time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Catalog query exceeded its time budget",
		Details:   fmt.Sprintf("budget: %s", budget),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryFailedError creates a retryable query error.
func NewQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryFailed,
		Message:   "Catalog query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMirrorEmptyError creates a retryable error for when both the store and
// the in-process mirror are unusable.
func NewMirrorEmptyError(tenant string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMirrorEmpty,
		Message:   "Catalog store unavailable and mirror has no data",
		Details:   fmt.Sprintf("tenant: %s", tenant),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheBackendFailedError creates a retryable cache backend error. It is
// logged and recovered locally, never surfaced to the caller.
func NewCacheBackendFailedError(backend string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheBackendFailed,
		Message:   "Cache backend error",
		Details:   fmt.Sprintf("backend: %s, error: %s", backend, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFuzzyBuildFailedError creates a swallowed fuzzy-index build error.
func NewFuzzyBuildFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFuzzyBuildFailed,
		Message:   "Fuzzy index build failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// GetErrorCode extracts the ErrorCode from any error, or empty string.
func GetErrorCode(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsRetryable reports whether an error is safe to retry.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// IsValidation reports whether an error belongs to the input-validation
// category, the only category surfaced to callers as a rejected request.
func IsValidation(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeInvalidLimit, ErrCodeInvalidPage, ErrCodeInvalidSortMode,
		ErrCodeInvalidWeightString, ErrCodeInvalidWeights,
		ErrCodeMissingTenant, ErrCodeRequestInvalid:
		return true
	}
	return false
}
