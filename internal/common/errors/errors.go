// Package errors provides the standardized error taxonomy shared by the API and the workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Geolocation errors. These never leave the nearby view; they become notices.
const (
	ErrCodeGeolocationPermissionDenied   ErrorCode = "GEOLOCATION_PERMISSION_DENIED"
	ErrCodeGeolocationPositionUnavailable ErrorCode = "GEOLOCATION_POSITION_UNAVAILABLE"
	ErrCodeGeolocationTimeout            ErrorCode = "GEOLOCATION_TIMEOUT"
	ErrCodeGeolocationFailed             ErrorCode = "GEOLOCATION_FAILED"
)

// Data errors.
const (
	ErrCodeInvalidCoordinates ErrorCode = "INVALID_COORDINATES"
	ErrCodeInvalidDocument    ErrorCode = "INVALID_DOCUMENT"
	ErrCodeItemFetchFailed    ErrorCode = "ITEM_FETCH_FAILED"
	ErrCodeItemNotFound       ErrorCode = "ITEM_NOT_FOUND"
	ErrCodeDatabaseFailed     ErrorCode = "DATABASE_OPERATION_FAILED"
)

// Listing errors.
const (
	ErrCodeListingForbidden        ErrorCode = "LISTING_FORBIDDEN"
	ErrCodeListingValidationFailed ErrorCode = "LISTING_VALIDATION_FAILED"
	ErrCodeUnauthenticated         ErrorCode = "UNAUTHENTICATED"
)

// Integration errors.
const (
	ErrCodeSearchQueryFailed  ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchIndexFailed  ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeEventPublishFailed ErrorCode = "EVENT_PUBLISH_FAILED"
	ErrCodeParseError         ErrorCode = "PARSE_ERROR"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error metadata and returns the error for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Zeebe workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewGeolocationPermissionDeniedError() *StandardError {
	return newError(ErrCodeGeolocationPermissionDenied, "Location permission was denied.", "", false)
}

func NewGeolocationPositionUnavailableError(details string) *StandardError {
	return newError(ErrCodeGeolocationPositionUnavailable, "Location information is unavailable.", details, false)
}

func NewGeolocationTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeGeolocationTimeout, "The request to get your location timed out.",
		fmt.Sprintf("timeout: %s", timeout), false)
}

func NewGeolocationFailedError(err error) *StandardError {
	return newError(ErrCodeGeolocationFailed, "Unable to retrieve your location.", err.Error(), false)
}

// NewInvalidCoordinatesError describes an item carrying missing or non-numeric coordinates.
func NewInvalidCoordinatesError(itemID string) *StandardError {
	return newError(ErrCodeInvalidCoordinates, "Invalid latitude or longitude for item",
		fmt.Sprintf("itemId: %s", itemID), false)
}

func NewInvalidDocumentError(collection, id, details string) *StandardError {
	return newError(ErrCodeInvalidDocument, "Document failed schema validation",
		fmt.Sprintf("collection: %s, id: %s, %s", collection, id, details), false)
}

// NewItemFetchFailedError wraps a store failure while loading candidate items.
func NewItemFetchFailedError(err error) *StandardError {
	return newError(ErrCodeItemFetchFailed, "Error fetching items", err.Error(), true)
}

func NewItemNotFoundError(itemID string) *StandardError {
	return newError(ErrCodeItemNotFound, "Item not found", fmt.Sprintf("itemId: %s", itemID), false)
}

func NewDatabaseError(operation string, err error) *StandardError {
	return newError(ErrCodeDatabaseFailed, "Database operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

func NewListingForbiddenError(itemID, userID string) *StandardError {
	return newError(ErrCodeListingForbidden, "Only the owner can modify this listing",
		fmt.Sprintf("itemId: %s, userId: %s", itemID, userID), false)
}

// NewListingValidationError carries a field -> message map in Metadata["fields"].
func NewListingValidationError(fields map[string]string) *StandardError {
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v))
	}
	e := newError(ErrCodeListingValidationFailed, "Please fill all required fields", strings.Join(parts, "; "), false)
	return e.WithMetadata("fields", fields)
}

func NewUnauthenticatedError(details string) *StandardError {
	return newError(ErrCodeUnauthenticated, "Authentication required", details, false)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", err.Error(), true)
}

func NewSearchIndexFailedError(itemID string, err error) *StandardError {
	return newError(ErrCodeSearchIndexFailed, "Search index update failed",
		fmt.Sprintf("itemId: %s, error: %s", itemID, err.Error()), true)
}

func NewEventPublishFailedError(eventType string, err error) *StandardError {
	return newError(ErrCodeEventPublishFailed, "Listing event publish failed",
		fmt.Sprintf("type: %s, error: %s", eventType, err.Error()), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, "External service call failed",
		fmt.Sprintf("service: %s, error: %s", service, err.Error()), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, "Operation timed out",
		fmt.Sprintf("service: %s, error: %s", service, err.Error()), true)
}

func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Failed to parse input", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeItemFetchFailed,
		ErrCodeDatabaseFailed,
		ErrCodeSearchIndexFailed,
		ErrCodeEventPublishFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	case ErrCodeSearchQueryFailed:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// As extracts a *StandardError anywhere in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "GEOLOCATION"):
		return "GEOLOCATION"
	case strings.Contains(codeStr, "COORDINATES") || strings.Contains(codeStr, "DOCUMENT"):
		return "DATA"
	case strings.HasPrefix(codeStr, "ITEM") || strings.HasPrefix(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.HasPrefix(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.HasPrefix(codeStr, "LISTING") || codeStr == string(ErrCodeUnauthenticated):
		return "LISTING"
	case strings.HasPrefix(codeStr, "EVENT"):
		return "EVENTS"
	default:
		return "OTHER"
	}
}
