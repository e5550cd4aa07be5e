package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeProviderFailure = "PROVIDER_FAILURE"
	ErrCodeStoreFailure    = "STORE_FAILURE"
)

// Validation errors
var (
	ErrInvalidContentType     = NewDomainError(ErrCodeValidation, "invalid content type")
	ErrInvalidKnowledgeSource = NewDomainError(ErrCodeValidation, "invalid knowledge source")
	ErrMissingRequiredField   = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrKnowledgeItemNotFound = NewDomainError(ErrCodeNotFound, "knowledge item not found")
	ErrTranscriptNotFound    = NewDomainError(ErrCodeNotFound, "transcript not found")
)

// Degradation errors. These stay internal to the engine: every public entry
// point converts them into a fallback path or a structured result.
var (
	ErrProviderUnavailable = NewDomainError(ErrCodeProviderFailure, "embedding provider unavailable")
	ErrStoreQueryFailure   = NewDomainError(ErrCodeStoreFailure, "knowledge store query failed")
)
