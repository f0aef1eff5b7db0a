// Package errors defines the categorized errors used across the reconciliation
// engine: record anomalies that become diagnostics, and service failures that
// become HTTP responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/portfolio-reconciler/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryMalformedRecord represents an input record missing a required field
	CategoryMalformedRecord ErrorCategory = "malformed_record"
	// CategoryUnresolvedReference represents a reference to a token or entity that cannot be resolved
	CategoryUnresolvedReference ErrorCategory = "unresolved_reference"
	// CategoryArithmeticAnomaly represents a negative, fractional or out-of-range amount
	CategoryArithmeticAnomaly ErrorCategory = "arithmetic_anomaly"
	// CategoryUserInput represents user input errors (4xx)
	CategoryUserInput ErrorCategory = "user_input"
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategorySource represents record source errors
	CategorySource ErrorCategory = "source"
	// CategoryCache represents cache errors
	CategoryCache ErrorCategory = "cache"
	// CategoryRateLimit represents rate limit errors
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
)

// Record types named in diagnostics
const (
	RecordToken       = "token"
	RecordReport      = "revenue_report"
	RecordTransaction = "distribution_transaction"
	RecordEntity      = "entity"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	RecordType string
	RecordID   string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// ToDiagnostic converts a record anomaly to the diagnostic attached to an aggregate
func (e *CategorizedError) ToDiagnostic() types.Diagnostic {
	return types.Diagnostic{
		Category:   string(e.Category),
		Code:       e.Code,
		RecordType: e.RecordType,
		RecordID:   e.RecordID,
		Message:    e.Message,
	}
}

// IsRecordAnomaly reports whether the error describes a single input record
// rather than a failure of the computation
func (e *CategorizedError) IsRecordAnomaly() bool {
	switch e.Category {
	case CategoryMalformedRecord, CategoryUnresolvedReference, CategoryArithmeticAnomaly:
		return true
	default:
		return false
	}
}

// Record anomalies

// NewMissingFieldError creates a malformed record error for an absent required field
func NewMissingFieldError(recordType, recordID, field string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryMalformedRecord,
		Code:       "MISSING_" + upperSnake(field),
		Message:    fmt.Sprintf("%s %q has no %s; record skipped", recordType, recordID, field),
		RecordType: recordType,
		RecordID:   recordID,
	}
}

// NewDuplicateRecordError creates a malformed record error for a repeated id
func NewDuplicateRecordError(recordType, recordID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryMalformedRecord,
		Code:       "DUPLICATE_RECORD",
		Message:    fmt.Sprintf("%s %q appears more than once; later copies ignored", recordType, recordID),
		RecordType: recordType,
		RecordID:   recordID,
	}
}

// NewInconsistentReportError creates a malformed record error for a report whose
// distributed flag disagrees with its transaction list
func NewInconsistentReportError(reportID, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryMalformedRecord,
		Code:       "INCONSISTENT_DISTRIBUTION",
		Message:    fmt.Sprintf("revenue_report %q %s; treated as having no realized payouts", reportID, reason),
		RecordType: RecordReport,
		RecordID:   reportID,
	}
}

// NewUnresolvedTokenError creates an unresolved reference error for a transaction
// whose token is not among the investor's holdings
func NewUnresolvedTokenError(tokenID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUnresolvedReference,
		Code:       "UNRESOLVED_TOKEN",
		Message:    fmt.Sprintf("token %q is not held by the investor; title synthesized", tokenID),
		RecordType: RecordToken,
		RecordID:   tokenID,
	}
}

// NewUnresolvedEntityError creates an unresolved reference error for an entity without profile
func NewUnresolvedEntityError(entityID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUnresolvedReference,
		Code:       "UNRESOLVED_ENTITY",
		Message:    fmt.Sprintf("entity %q has no profile; substituted %q", entityID, types.UnknownLabel),
		RecordType: RecordEntity,
		RecordID:   entityID,
	}
}

// NewAmountAnomalyError creates an arithmetic anomaly error for a coerced amount
func NewAmountAnomalyError(recordType, recordID, field, value, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryArithmeticAnomaly,
		Code:       "INVALID_AMOUNT",
		Message:    fmt.Sprintf("%s %q field %s=%s is %s; coerced to 0", recordType, recordID, field, value, reason),
		RecordType: recordType,
		RecordID:   recordID,
		Details: map[string]interface{}{
			"field": field,
			"value": value,
		},
	}
}

// User input errors (4xx)

// NewInvalidIdentityError creates an invalid identity error
func NewInvalidIdentityError(identity string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_IDENTITY",
		Message:    fmt.Sprintf("invalid account identity: %q", identity),
		Details: map[string]interface{}{
			"identity": identity,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(limit float64) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "rate limit exceeded, please try again later",
		Details: map[string]interface{}{
			"limit": limit,
		},
	}
}

// System errors (5xx)

// NewSourceUnavailableError creates an error for a record source that could not be read
func NewSourceUnavailableError(source string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySource,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SOURCE_UNAVAILABLE",
		Message:    fmt.Sprintf("record source %s is unavailable", source),
		Details: map[string]interface{}{
			"source": source,
		},
		Cause: cause,
	}
}

// NewCacheError creates a cache error
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       "CACHE_ERROR",
		Message:    fmt.Sprintf("cache operation failed: %s", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause: cause,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil && catErr.StatusCode != 0 {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if a failed operation may succeed when repeated
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategorySource, CategoryCache:
		return true
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable ||
			catErr.StatusCode == http.StatusGatewayTimeout
	default:
		return false
	}
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	code := GetHTTPStatusCode(err)
	return code >= 400 && code < 500
}

func upperSnake(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c >= 'A' && c <= 'Z':
			if i > 0 {
				out = append(out, '_')
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
